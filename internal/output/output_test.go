// internal/output/output_test.go
package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"mzflow-core/align"
	"mzflow-core/msdata"
	"mzflow-core/trace"

	"mzflow/pkg/api"
)

func sampleROI() *trace.ROI {
	r := &trace.ROI{
		ID:      2,
		MZ:      100.05,
		RT:      1.2,
		RTStart: 1.1,
		RTEnd:   1.3,
		Height:  20000,
		Area:    3200,
		ScanIdx: []int{4, 5, 6},
		MZSeq:   []float64{100.05, 100.05, 100.05},
		IntSeq:  []float64{8000, 20000, 7000},
		RTSeq:   []float64{1.1, 1.2, 1.3},
		Quality: 0.88,
		Scored:  true,
	}
	r.MS2 = []msdata.Spectrum{{
		PrecursorMZ: 100.05, RT: 1.21,
		Peaks: []msdata.Peak{{MZ: 55.01, Intensity: 900}},
	}}
	r.BestMS2 = &r.MS2[0]
	return r
}

func TestSampleSetRoundTrip(t *testing.T) {
	in := &trace.SampleSet{SampleID: "QC_01", ROIs: []*trace.ROI{sampleROI()}}
	back := FromAPISampleSet(ToAPISampleSet(in))
	if back.SampleID != "QC_01" || len(back.ROIs) != 1 {
		t.Fatalf("set: %+v", back)
	}
	r := back.ROIs[0]
	if r.ID != 2 || r.MZ != 100.05 || r.Height != 20000 || r.Len() != 3 {
		t.Fatalf("roi: %+v", r)
	}
	if !r.Scored || r.Quality != 0.88 {
		t.Fatal("quality lost")
	}
	if r.BestMS2 == nil || r.BestMS2.Peaks[0].MZ != 55.01 {
		t.Fatal("ms2 lost")
	}
}

func tableOf(t *testing.T) *align.Table {
	t.Helper()
	roi := sampleROI()
	f := &align.Feature{
		ID: 0, MZ: 100.05, RT: 1.2, GroupID: 3, Role: "monoisotopic",
		Entries: []align.Entry{
			{ROI: roi, Intensity: 20000},
			{}, // absent in second sample
		},
		Annotations: []align.Annotation{
			{LibraryID: "LIB1", Name: "glucose", Formula: "C6H12O6", Similarity: 0.91, MatchedPeaks: 6},
		},
	}
	return &align.Table{Samples: []string{"a", "b"}, Features: []*align.Feature{f}}
}

func TestToAPITableAbsentEntry(t *testing.T) {
	v := ToAPITable(tableOf(t))
	f := v.Features[0]
	if f.Entries[0].ROIID == nil || *f.Entries[0].ROIID != 2 {
		t.Fatalf("entry 0: %+v", f.Entries[0])
	}
	if f.Entries[1].ROIID != nil || f.Entries[1].Intensity != 0 {
		t.Fatalf("absent entry must stay empty: %+v", f.Entries[1])
	}
	if f.Entries[1].SampleID != "b" {
		t.Fatalf("sample id: %+v", f.Entries[1])
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, tableOf(t)); err != nil {
		t.Fatal(err)
	}
	var got api.FeatureTableV1
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if len(got.Features) != 1 || got.Features[0].Annotations[0].Name != "glucose" {
		t.Fatalf("decoded: %+v", got)
	}
}

func TestWriteTSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteTSV(&buf, tableOf(t)); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines: %q", lines)
	}
	if !strings.HasPrefix(lines[0], "feature_id\tmz\trt") || !strings.HasSuffix(lines[0], "a\tb") {
		t.Fatalf("header: %q", lines[0])
	}
	cols := strings.Split(lines[1], "\t")
	if len(cols) != 14 {
		t.Fatalf("got %d columns: %q", len(cols), lines[1])
	}
	if cols[4] != "monoisotopic" || cols[8] != "glucose" {
		t.Fatalf("row: %q", lines[1])
	}
	if cols[12] != "20000.0" || cols[13] != "0" {
		t.Fatalf("intensities: %q %q", cols[12], cols[13])
	}
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteText(&buf, tableOf(t)); err != nil {
		t.Fatal(err)
	}
	line := strings.TrimRight(buf.String(), "\n")
	if !strings.Contains(line, "100.0500") || !strings.Contains(line, "1/2") {
		t.Fatalf("text line: %q", line)
	}
}
