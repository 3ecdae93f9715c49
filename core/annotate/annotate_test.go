// core/annotate/annotate_test.go
package annotate

import (
	"testing"

	"mzflow-core/align"
	"mzflow-core/msdata"
	"mzflow-core/trace"
)

type stubScorer struct {
	out []align.Annotation
}

func (s stubScorer) Search(q msdata.Spectrum, minSim float64) ([]align.Annotation, error) {
	var keep []align.Annotation
	for _, a := range s.out {
		if a.Similarity >= minSim {
			keep = append(keep, a)
		}
	}
	return keep, nil
}

func ms2Feature() *align.Feature {
	roi := &trace.ROI{
		MZ: 200, RT: 5, Height: 1000,
		BestMS2: &msdata.Spectrum{PrecursorMZ: 200, Peaks: []msdata.Peak{{MZ: 100, Intensity: 10}}},
	}
	return &align.Feature{
		Entries: []align.Entry{{ROI: roi, Intensity: 1000}},
		GroupID: -1,
	}
}

// Ties in similarity break by matched peak count, then library id.
func TestRankingTieBreaks(t *testing.T) {
	f := ms2Feature()
	table := &align.Table{Samples: []string{"a"}, Features: []*align.Feature{f}}
	scorer := stubScorer{out: []align.Annotation{
		{LibraryID: "lib3", Similarity: 0.9, MatchedPeaks: 4},
		{LibraryID: "lib1", Similarity: 0.9, MatchedPeaks: 6},
		{LibraryID: "lib2", Similarity: 0.9, MatchedPeaks: 6},
		{LibraryID: "lib0", Similarity: 0.95, MatchedPeaks: 2},
	}}

	n, err := Run(table, scorer, Config{TopK: 3, MinSimilarity: 0.5})
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expected 1 annotated feature, got %d", n)
	}
	got := f.Annotations
	if len(got) != 3 {
		t.Fatalf("expected top 3, got %d", len(got))
	}
	want := []string{"lib0", "lib1", "lib2"}
	for i, id := range want {
		if got[i].LibraryID != id {
			t.Fatalf("rank %d = %s, want %s", i, got[i].LibraryID, id)
		}
	}
}

// Re-running on identical input yields identical ranked lists.
func TestAnnotationDeterminism(t *testing.T) {
	scorer := stubScorer{out: []align.Annotation{
		{LibraryID: "x", Similarity: 0.8, MatchedPeaks: 3},
		{LibraryID: "y", Similarity: 0.8, MatchedPeaks: 3},
		{LibraryID: "z", Similarity: 0.7, MatchedPeaks: 9},
	}}
	run := func() []align.Annotation {
		f := ms2Feature()
		table := &align.Table{Samples: []string{"a"}, Features: []*align.Feature{f}}
		if _, err := Run(table, scorer, Config{TopK: 5, MinSimilarity: 0}); err != nil {
			t.Fatal(err)
		}
		return f.Annotations
	}
	a, b := run(), run()
	if len(a) != len(b) {
		t.Fatalf("lengths differ")
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("rank %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

// Features without MS2 stay unannotated; a nil scorer is not an error.
func TestNoMS2AndNoScorer(t *testing.T) {
	plain := &align.Feature{Entries: []align.Entry{{}}, GroupID: -1}
	table := &align.Table{Samples: []string{"a"}, Features: []*align.Feature{plain}}

	n, err := Run(table, stubScorer{}, Config{TopK: 1})
	if err != nil || n != 0 {
		t.Fatalf("expected no annotations, got n=%d err=%v", n, err)
	}
	n, err = Run(table, nil, Config{TopK: 1})
	if err != nil || n != 0 {
		t.Fatalf("nil scorer must degrade, got n=%d err=%v", n, err)
	}
}
