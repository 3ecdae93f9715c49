// core/trace/refine.go
package trace

// RefineConfig controls post-processing of detected traces.
type RefineConfig struct {
	MinPoints     int     // traces shorter than this are dropped unless they carry MS2
	CutTraces     bool    // split multi-apex traces at deep local minima
	ValleyRatio   float64 // minimum drop relative to the lower apex (default 0.5)
	ProfileLength int     // resampled profile length for scoring (default 32)
}

// Scorer assigns a peak-shape probability in [0,1] to each profile.
// Implementations are stateless; a batch call per sample keeps external
// model invocations cheap. A nil Scorer skips scoring entirely.
type Scorer interface {
	Score(profiles [][]float64) ([]float64, error)
}

// SampleSet is the refined trace collection for one sample. It is treated
// as immutable once Refine returns.
type SampleSet struct {
	SampleID string
	ROIs     []*ROI
}

// Refine filters, splits and scores the builder's output. Zero-point traces
// are a local precondition violation: they are dropped and counted, never
// escalated to a sample failure. When the scorer fails or is absent the
// traces stay unscored and accepted.
func Refine(sampleID string, rois []*ROI, cfg RefineConfig, scorer Scorer) (*SampleSet, int, error) {
	if cfg.ValleyRatio <= 0 {
		cfg.ValleyRatio = 0.5
	}
	if cfg.ProfileLength <= 0 {
		cfg.ProfileLength = 32
	}

	warnings := 0
	var kept []*ROI
	for _, r := range rois {
		if r.Len() == 0 {
			warnings++
			continue
		}
		if cfg.CutTraces {
			kept = append(kept, cutTrace(r, cfg.ValleyRatio)...)
		} else {
			kept = append(kept, r)
		}
	}

	out := kept[:0]
	for _, r := range kept {
		if r.Len() < cfg.MinPoints && r.BestMS2 == nil {
			continue
		}
		out = append(out, r)
	}

	if scorer != nil && len(out) > 0 {
		profiles := make([][]float64, len(out))
		for i, r := range out {
			profiles[i] = r.ApexProfile(cfg.ProfileLength)
		}
		probs, err := scorer.Score(profiles)
		if err == nil && len(probs) == len(out) {
			for i, r := range out {
				r.Quality = probs[i]
				r.Scored = true
			}
		}
	}

	for i, r := range out {
		r.ID = i
	}
	return &SampleSet{SampleID: sampleID, ROIs: out}, warnings, nil
}

// cutTrace splits a multi-apex trace at every local minimum that drops
// below valleyRatio of the lower neighboring apex. Each piece keeps its
// own point range; the union of pieces covers the original points exactly
// once.
func cutTrace(r *ROI, valleyRatio float64) []*ROI {
	cuts := cutPositions(r.IntSeq, valleyRatio)
	if len(cuts) == 0 {
		return []*ROI{r}
	}
	var out []*ROI
	lo := 0
	for _, c := range cuts {
		out = append(out, r.subROI(lo, c))
		lo = c + 1
	}
	out = append(out, r.subROI(lo, r.Len()-1))
	return out
}

// cutPositions finds the minima separating apexes. A cut lands on the
// lowest point between two local maxima when that valley is deeper than
// valleyRatio of the lower apex.
func cutPositions(y []float64, valleyRatio float64) []int {
	var maxima []int
	for i := 1; i < len(y)-1; i++ {
		if y[i] >= y[i-1] && y[i] > y[i+1] {
			maxima = append(maxima, i)
		}
	}
	if len(maxima) < 2 {
		return nil
	}
	var cuts []int
	prev := maxima[0]
	for _, m := range maxima[1:] {
		valley := prev + 1
		for i := prev + 1; i < m; i++ {
			if y[i] < y[valley] {
				valley = i
			}
		}
		lower := y[prev]
		if y[m] < lower {
			lower = y[m]
		}
		if valley < m && y[valley] < valleyRatio*lower {
			cuts = append(cuts, valley)
			prev = m
		} else if y[m] > y[prev] {
			prev = m
		}
	}
	return cuts
}
