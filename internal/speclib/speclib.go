// internal/speclib/speclib.go
package speclib

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"

	"mzflow-core/align"
	"mzflow-core/msdata"
)

// Record is one library spectrum.
type Record struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Formula     string       `json:"formula,omitempty"`
	PrecursorMZ float64      `json:"precursor_mz"`
	Peaks       [][2]float64 `json:"peaks"` // [mz, intensity]
}

// Library is an in-memory spectral library searchable by precursor m/z.
// It implements the annotation scorer contract with dot-product cosine
// similarity over tolerance-matched fragments.
type Library struct {
	records      []Record // sorted by PrecursorMZ
	PrecursorTol float64
	FragmentTol  float64
}

// Load reads a JSON library file: either a bare array of records or an
// object with a "spectra" array.
func Load(path string) (*Library, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		var wrapped struct {
			Spectra []Record `json:"spectra"`
		}
		if err2 := json.Unmarshal(data, &wrapped); err2 != nil {
			return nil, fmt.Errorf("parse library %s: %w", path, err)
		}
		records = wrapped.Spectra
	}
	return New(records), nil
}

// New builds a library from records with default tolerances.
func New(records []Record) *Library {
	sorted := make([]Record, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].PrecursorMZ < sorted[j].PrecursorMZ })
	return &Library{records: sorted, PrecursorTol: 0.01, FragmentTol: 0.015}
}

// Len returns the number of library spectra.
func (l *Library) Len() int { return len(l.records) }

// Search scores query against all library spectra whose precursor m/z
// lies within the precursor tolerance and returns those at or above
// minSimilarity, unordered.
func (l *Library) Search(query msdata.Spectrum, minSimilarity float64) ([]align.Annotation, error) {
	if len(query.Peaks) == 0 {
		return nil, nil
	}
	lo := sort.Search(len(l.records), func(i int) bool {
		return l.records[i].PrecursorMZ >= query.PrecursorMZ-l.PrecursorTol
	})
	var out []align.Annotation
	for i := lo; i < len(l.records); i++ {
		rec := l.records[i]
		if rec.PrecursorMZ > query.PrecursorMZ+l.PrecursorTol {
			break
		}
		sim, matched := cosine(query.Peaks, rec.Peaks, l.FragmentTol)
		if matched == 0 || sim < minSimilarity {
			continue
		}
		out = append(out, align.Annotation{
			LibraryID:    rec.ID,
			Name:         rec.Name,
			Formula:      rec.Formula,
			Similarity:   sim,
			MatchedPeaks: matched,
		})
	}
	return out, nil
}

// cosine computes the normalized dot product between two fragment
// spectra. Fragments pair greedily in ascending m/z within tol; each
// library fragment pairs at most once.
func cosine(query []msdata.Peak, ref [][2]float64, tol float64) (float64, int) {
	var dot float64
	matched := 0
	j := 0
	used := make([]bool, len(ref))
	for _, q := range query {
		for j < len(ref) && ref[j][0] < q.MZ-tol {
			j++
		}
		for k := j; k < len(ref) && ref[k][0] <= q.MZ+tol; k++ {
			if used[k] {
				continue
			}
			dot += q.Intensity * ref[k][1]
			used[k] = true
			matched++
			break
		}
	}
	if matched == 0 {
		return 0, 0
	}
	var qn, rn float64
	for _, q := range query {
		qn += q.Intensity * q.Intensity
	}
	for _, r := range ref {
		rn += r[1] * r[1]
	}
	if qn == 0 || rn == 0 {
		return 0, 0
	}
	return dot / (math.Sqrt(qn) * math.Sqrt(rn)), matched
}
