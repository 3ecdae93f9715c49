// internal/writers/feature_test.go
package writers

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"mzflow-core/align"

	"mzflow/pkg/api"
)

func twoFeatures() []*align.Feature {
	return []*align.Feature{
		{ID: 0, MZ: 100.05, RT: 1.2, GroupID: -1, Entries: make([]align.Entry, 1)},
		{ID: 1, MZ: 200.10, RT: 2.4, GroupID: -1, Entries: make([]align.Entry, 1)},
	}
}

func TestStartFeatureWriterJSONL(t *testing.T) {
	var buf bytes.Buffer
	in, errCh := StartFeatureWriter(&buf, "jsonl", []string{"a"}, 0)
	for _, f := range twoFeatures() {
		in <- f
	}
	close(in)
	if err := <-errCh; err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines: %q", lines)
	}
	var f api.FeatureV1
	if err := json.Unmarshal([]byte(lines[1]), &f); err != nil {
		t.Fatal(err)
	}
	if f.ID != 1 || f.MZ != 200.10 {
		t.Fatalf("decoded: %+v", f)
	}
}

func TestStartFeatureWriterBufferedJSON(t *testing.T) {
	var buf bytes.Buffer
	in, errCh := StartFeatureWriter(&buf, "json", []string{"a"}, 4)
	for _, f := range twoFeatures() {
		in <- f
	}
	close(in)
	if err := <-errCh; err != nil {
		t.Fatal(err)
	}
	var table api.FeatureTableV1
	if err := json.Unmarshal(buf.Bytes(), &table); err != nil {
		t.Fatal(err)
	}
	if len(table.Features) != 2 || table.Samples[0] != "a" {
		t.Fatalf("decoded: %+v", table)
	}
}

func TestStartFeatureWriterUnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	in, errCh := StartFeatureWriter(&buf, "parquet", []string{"a"}, 0)
	close(in)
	if err := <-errCh; err == nil {
		t.Fatal("expected unknown format error")
	}
}

func TestRegistryFormats(t *testing.T) {
	for _, format := range []string{"json", "tsv", "text"} {
		if _, ok := TableWriters[format]; !ok {
			t.Errorf("format %q not registered", format)
		}
	}
}
