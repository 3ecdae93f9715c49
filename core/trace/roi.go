// core/trace/roi.go
package trace

import (
	"math"

	"mzflow-core/msdata"
)

// ROI is one ion trace: the intensity of a single inferred ion over a
// contiguous-ish run of scans. Scan indices strictly increase.
type ROI struct {
	ID      int
	ScanIdx []int
	MZSeq   []float64
	IntSeq  []float64
	RTSeq   []float64

	MZ      float64 // intensity-weighted m/z center
	RT      float64 // apex retention time
	RTStart float64
	RTEnd   float64
	Height  float64
	Area    float64

	// Quality in [0,1] once scored; Scored stays false when no scorer
	// is configured and the trace is accepted unconditionally.
	Quality float64
	Scored  bool

	BestMS2 *msdata.Spectrum
	MS2     []msdata.Spectrum

	gap    int
	sumInt float64 // running intensity mass for the weighted m/z mean
}

// Len returns the number of points in the trace.
func (r *ROI) Len() int { return len(r.ScanIdx) }

func newROI(scanIdx int, rt float64, p msdata.Peak) *ROI {
	return &ROI{
		ScanIdx: []int{scanIdx},
		MZSeq:   []float64{p.MZ},
		IntSeq:  []float64{p.Intensity},
		RTSeq:   []float64{rt},
		MZ:      p.MZ,
		sumInt:  p.Intensity,
	}
}

func (r *ROI) extend(scanIdx int, rt float64, p msdata.Peak) {
	r.ScanIdx = append(r.ScanIdx, scanIdx)
	r.MZSeq = append(r.MZSeq, p.MZ)
	r.IntSeq = append(r.IntSeq, p.Intensity)
	r.RTSeq = append(r.RTSeq, rt)
	if r.sumInt+p.Intensity > 0 {
		r.MZ = (r.MZ*r.sumInt + p.MZ*p.Intensity) / (r.sumInt + p.Intensity)
	}
	r.sumInt += p.Intensity
	r.gap = 0
}

// finalize freezes the trace statistics: apex, bounds, height and the
// trapezoidal area over retention time. Also elects the best MS2 spectrum
// (highest summed fragment intensity).
func (r *ROI) finalize() {
	if r.Len() == 0 {
		return
	}
	apex := 0
	for i, v := range r.IntSeq {
		if v > r.IntSeq[apex] {
			apex = i
		}
	}
	r.Height = r.IntSeq[apex]
	r.RT = r.RTSeq[apex]
	r.RTStart = r.RTSeq[0]
	r.RTEnd = r.RTSeq[r.Len()-1]
	r.Area = trapezoid(r.RTSeq, r.IntSeq)

	r.BestMS2 = nil
	best := -1.0
	for i := range r.MS2 {
		if t := r.MS2[i].TotalIntensity(); t > best {
			best = t
			r.BestMS2 = &r.MS2[i]
		}
	}
}

func trapezoid(x, y []float64) float64 {
	var a float64
	for i := 1; i < len(x); i++ {
		a += (y[i] + y[i-1]) * (x[i] - x[i-1]) / 2
	}
	return a
}

// ApexProfile resamples the trace intensities into a fixed-length vector
// centered on the apex, for shape scoring. Missing flanks are zero-padded.
func (r *ROI) ApexProfile(n int) []float64 {
	out := make([]float64, n)
	if r.Len() == 0 || n == 0 {
		return out
	}
	apex := 0
	for i, v := range r.IntSeq {
		if v > r.IntSeq[apex] {
			apex = i
		}
	}
	half := n / 2
	for i := 0; i < n; i++ {
		src := apex - half + i
		if src >= 0 && src < r.Len() {
			out[i] = r.IntSeq[src]
		}
	}
	// normalize to apex height so the scorer sees shape, not scale
	if h := r.IntSeq[apex]; h > 0 {
		for i := range out {
			out[i] /= h
		}
	}
	return out
}

// subROI builds an independent trace from a point range [lo,hi] inclusive,
// recomputing center and statistics. MS2 spectra follow the piece whose
// rt window contains their precursor rt.
func (r *ROI) subROI(lo, hi int) *ROI {
	s := &ROI{
		ScanIdx: append([]int(nil), r.ScanIdx[lo:hi+1]...),
		MZSeq:   append([]float64(nil), r.MZSeq[lo:hi+1]...),
		IntSeq:  append([]float64(nil), r.IntSeq[lo:hi+1]...),
		RTSeq:   append([]float64(nil), r.RTSeq[lo:hi+1]...),
	}
	var wmz, wsum float64
	for i := range s.MZSeq {
		wmz += s.MZSeq[i] * s.IntSeq[i]
		wsum += s.IntSeq[i]
	}
	if wsum > 0 {
		s.MZ = wmz / wsum
	} else {
		s.MZ = s.MZSeq[0]
	}
	s.sumInt = wsum
	for _, sp := range r.MS2 {
		if sp.RT >= s.RTSeq[0] && sp.RT <= s.RTSeq[len(s.RTSeq)-1] {
			s.MS2 = append(s.MS2, sp)
		}
	}
	s.finalize()
	return s
}

// mzDist is the absolute m/z distance from the trace center.
func (r *ROI) mzDist(mz float64) float64 { return math.Abs(r.MZ - mz) }
