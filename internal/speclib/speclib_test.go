// internal/speclib/speclib_test.go
package speclib

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"mzflow-core/msdata"
)

func testLibrary() *Library {
	return New([]Record{
		{ID: "LIB2", Name: "far", PrecursorMZ: 350.00,
			Peaks: [][2]float64{{90.01, 400}, {120.05, 900}}},
		{ID: "LIB1", Name: "glucose", Formula: "C6H12O6", PrecursorMZ: 181.07,
			Peaks: [][2]float64{{85.03, 500}, {127.04, 1000}, {163.06, 300}}},
	})
}

func TestSearchExactMatch(t *testing.T) {
	lib := testLibrary()
	query := msdata.Spectrum{
		PrecursorMZ: 181.07,
		Peaks: []msdata.Peak{
			{MZ: 85.03, Intensity: 500},
			{MZ: 127.04, Intensity: 1000},
			{MZ: 163.06, Intensity: 300},
		},
	}
	hits, err := lib.Search(query, 0.7)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 {
		t.Fatalf("got %d hits", len(hits))
	}
	h := hits[0]
	if h.LibraryID != "LIB1" || h.Formula != "C6H12O6" || h.MatchedPeaks != 3 {
		t.Fatalf("hit: %+v", h)
	}
	if math.Abs(h.Similarity-1.0) > 1e-9 {
		t.Fatalf("identical spectra should score 1, got %v", h.Similarity)
	}
}

func TestSearchPrecursorWindow(t *testing.T) {
	lib := testLibrary()
	query := msdata.Spectrum{
		PrecursorMZ: 200.00,
		Peaks:       []msdata.Peak{{MZ: 127.04, Intensity: 1000}},
	}
	hits, err := lib.Search(query, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 0 {
		t.Fatalf("precursor outside every window, got %d hits", len(hits))
	}
}

func TestSearchMinSimilarity(t *testing.T) {
	lib := testLibrary()
	// Shares one weak fragment with LIB1 out of three.
	query := msdata.Spectrum{
		PrecursorMZ: 181.07,
		Peaks: []msdata.Peak{
			{MZ: 163.06, Intensity: 300},
			{MZ: 50.00, Intensity: 5000},
		},
	}
	strict, err := lib.Search(query, 0.9)
	if err != nil {
		t.Fatal(err)
	}
	if len(strict) != 0 {
		t.Fatalf("low-overlap query passed strict threshold: %+v", strict)
	}
	loose, err := lib.Search(query, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(loose) != 1 || loose[0].MatchedPeaks != 1 {
		t.Fatalf("loose search: %+v", loose)
	}
}

func TestLoadBareArrayAndWrapped(t *testing.T) {
	dir := t.TempDir()
	bare := filepath.Join(dir, "bare.json")
	os.WriteFile(bare, []byte(`[{"id":"X","name":"x","precursor_mz":100,"peaks":[[50,10]]}]`), 0o644)
	wrapped := filepath.Join(dir, "wrapped.json")
	os.WriteFile(wrapped, []byte(`{"spectra":[{"id":"Y","name":"y","precursor_mz":200,"peaks":[[60,20]]}]}`), 0o644)

	for _, path := range []string{bare, wrapped} {
		lib, err := Load(path)
		if err != nil {
			t.Fatalf("%s: %v", path, err)
		}
		if lib.Len() != 1 {
			t.Fatalf("%s: %d records", path, lib.Len())
		}
	}
}

func TestEmptyQuery(t *testing.T) {
	hits, err := testLibrary().Search(msdata.Spectrum{PrecursorMZ: 181.07}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if hits != nil {
		t.Fatalf("empty query must not match: %+v", hits)
	}
}
