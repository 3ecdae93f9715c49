// core/trace/builder.go
package trace

import (
	"context"
	"sort"

	"mzflow-core/msdata"
)

// Config controls region-of-interest detection for one sample.
type Config struct {
	MZTolerance        float64 // max |m/z - trace center| to extend a trace
	IntensityThreshold float64 // centroids below this never open or extend
	MaxGapScans        int     // consecutive missing scans before a trace closes
	MS2Offset          float64 // precursor offset used when cleaning MS2
}

// Builder maintains the working set of open traces for one sample. It is
// single-use: one Build call per sample, no shared state across samples.
type Builder struct {
	cfg      Config
	open     []*ROI // sorted by MZ
	finished []*ROI
}

// NewBuilder returns a Builder for one sample run.
func NewBuilder(cfg Config) *Builder { return &Builder{cfg: cfg} }

// Build consumes a scan source and returns all detected traces sorted by
// m/z center, with IDs assigned. Cancellation is checked between scans.
func (b *Builder) Build(ctx context.Context, src msdata.Source) ([]*ROI, error) {
	scans, err := src.Scans()
	if err != nil {
		return nil, err
	}
	if err := msdata.ValidateRun(scans); err != nil {
		return nil, err
	}
	ms1 := 0
	for i := range scans {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s := &scans[i]
		switch {
		case s.Level == 1:
			b.processMS1(ms1, s)
			ms1++
		case s.Level >= 2:
			b.attachMS2(s)
		}
	}
	b.closeAll()
	sort.Slice(b.finished, func(i, j int) bool { return b.finished[i].MZ < b.finished[j].MZ })
	for i, r := range b.finished {
		r.ID = i
	}
	return b.finished, nil
}

// candidate pairs a centroid with an open trace it could extend.
type candidate struct {
	peak  int
	trace int
	dist  float64
}

// processMS1 extends/opens traces for one survey scan. Assignment is
// globally nearest-first so that when two centroids compete for one trace
// the closer centroid wins; no trace takes two centroids from one scan.
func (b *Builder) processMS1(scanIdx int, s *msdata.Scan) {
	var cands []candidate
	for pi, p := range s.Peaks {
		if p.Intensity < b.cfg.IntensityThreshold {
			continue
		}
		lo := sort.Search(len(b.open), func(i int) bool {
			return b.open[i].MZ >= p.MZ-b.cfg.MZTolerance
		})
		for ti := lo; ti < len(b.open) && b.open[ti].MZ <= p.MZ+b.cfg.MZTolerance; ti++ {
			cands = append(cands, candidate{peak: pi, trace: ti, dist: b.open[ti].mzDist(p.MZ)})
		}
	}
	sort.Slice(cands, func(i, j int) bool {
		a, c := cands[i], cands[j]
		if a.dist != c.dist {
			return a.dist < c.dist
		}
		if a.peak != c.peak {
			return a.peak < c.peak
		}
		return a.trace < c.trace
	})

	peakTaken := make(map[int]bool, len(cands))
	traceTaken := make(map[int]bool, len(cands))
	for _, c := range cands {
		if peakTaken[c.peak] || traceTaken[c.trace] {
			continue
		}
		peakTaken[c.peak] = true
		traceTaken[c.trace] = true
		b.open[c.trace].extend(scanIdx, s.RT, s.Peaks[c.peak])
	}

	// unmatched centroids above threshold open new traces
	var opened []*ROI
	for pi, p := range s.Peaks {
		if p.Intensity < b.cfg.IntensityThreshold || peakTaken[pi] {
			continue
		}
		opened = append(opened, newROI(scanIdx, s.RT, p))
	}

	// age out traces that were not extended this scan
	kept := b.open[:0]
	for ti, r := range b.open {
		if traceTaken[ti] {
			kept = append(kept, r)
			continue
		}
		r.gap++
		if r.gap > b.cfg.MaxGapScans {
			r.finalize()
			b.finished = append(b.finished, r)
			continue
		}
		kept = append(kept, r)
	}
	b.open = append(kept, opened...)
	sort.Slice(b.open, func(i, j int) bool { return b.open[i].MZ < b.open[j].MZ })
}

// attachMS2 files a fragmentation scan against the nearest open trace
// whose center lies within tolerance of the precursor.
func (b *Builder) attachMS2(s *msdata.Scan) {
	if len(b.open) == 0 {
		return
	}
	lo := sort.Search(len(b.open), func(i int) bool {
		return b.open[i].MZ >= s.PrecursorMZ-b.cfg.MZTolerance
	})
	best := -1
	bestDist := b.cfg.MZTolerance
	for ti := lo; ti < len(b.open) && b.open[ti].MZ <= s.PrecursorMZ+b.cfg.MZTolerance; ti++ {
		if d := b.open[ti].mzDist(s.PrecursorMZ); d <= bestDist {
			best = ti
			bestDist = d
		}
	}
	if best < 0 {
		return
	}
	sp := msdata.Spectrum{
		PrecursorMZ: s.PrecursorMZ,
		RT:          s.RT,
		Peaks:       append([]msdata.Peak(nil), s.Peaks...),
	}
	offset := b.cfg.MS2Offset
	if offset == 0 {
		offset = 1.5
	}
	msdata.CleanMS2(&sp, offset, b.cfg.IntensityThreshold)
	r := b.open[best]
	r.MS2 = append(r.MS2, sp)
}

func (b *Builder) closeAll() {
	for _, r := range b.open {
		r.finalize()
		b.finished = append(b.finished, r)
	}
	b.open = nil
}
