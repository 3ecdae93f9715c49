// core/annotate/annotate.go
package annotate

import (
	"sort"

	"mzflow-core/align"
	"mzflow-core/msdata"
)

// Config controls library annotation.
type Config struct {
	TopK          int     // ranked candidates kept per feature
	MinSimilarity float64 // candidates below this are discarded
}

// Scorer matches a query spectrum against a reference library. It must be
// deterministic for identical inputs; ordering of the returned candidates
// is not relied upon.
type Scorer interface {
	Search(query msdata.Spectrum, minSimilarity float64) ([]align.Annotation, error)
}

// Run attaches ranked library identities to every feature that carries an
// MS2 spectrum. Features without MS2 are left unannotated; a nil scorer
// degrades to an unannotated table. Returns the number of features that
// received at least one candidate.
func Run(table *align.Table, scorer Scorer, cfg Config) (int, error) {
	if scorer == nil {
		return 0, nil
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 1
	}
	annotated := 0
	for _, f := range table.Features {
		ms2 := f.BestMS2()
		if ms2 == nil {
			continue
		}
		cands, err := scorer.Search(*ms2, cfg.MinSimilarity)
		if err != nil {
			return annotated, err
		}
		if len(cands) == 0 {
			continue
		}
		rank(cands)
		if len(cands) > cfg.TopK {
			cands = cands[:cfg.TopK]
		}
		f.Annotations = cands
		annotated++
	}
	return annotated, nil
}

// rank orders candidates by similarity descending; ties break on matched
// fragment count, then library id, so reruns yield identical lists.
func rank(cands []align.Annotation) {
	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.Similarity != b.Similarity {
			return a.Similarity > b.Similarity
		}
		if a.MatchedPeaks != b.MatchedPeaks {
			return a.MatchedPeaks > b.MatchedPeaks
		}
		return a.LibraryID < b.LibraryID
	})
}
