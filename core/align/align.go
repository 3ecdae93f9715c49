// core/align/align.go
package align

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"mzflow-core/msdata"
	"mzflow-core/trace"
)

// Config controls cross-sample alignment.
type Config struct {
	MZTolerance     float64 // max |m/z - cluster centroid|
	RTTolerance     float64 // max |rt - cluster centroid|
	DiscardShortROI bool    // traces <5 points without MS2 cannot seed clusters
}

// minSeedPoints is the anchor reliability cutoff: shorter MS2-less traces
// may still join a cluster another sample formed, but never open one.
const minSeedPoints = 5

// Entry is one sample's contribution to a consensus feature.
type Entry struct {
	ROI       *trace.ROI // nil = absent in that sample
	Intensity float64
}

// Feature is a cross-sample-aligned signal: representative coordinates
// plus one entry per sample. Group/annotation labels are attached later
// by the grouping and annotation stages.
type Feature struct {
	ID int
	MZ float64
	RT float64

	Entries []Entry // indexed by sample position in Table.Samples

	GroupID     int    // -1 until grouped
	Role        string // "", "monoisotopic", "isotope", "adduct", "fragment"
	IsotopeRank int
	AdductType  string

	Annotations []Annotation
}

// Annotation is one ranked library match for a feature.
type Annotation struct {
	LibraryID    string
	Name         string
	Formula      string
	Similarity   float64
	MatchedPeaks int
}

// Table is the consensus feature list over all samples, ordered by
// (m/z, rt) ascending. The ordering is part of the output contract.
type Table struct {
	Samples  []string
	Features []*Feature
}

// BestMS2 returns the strongest fragmentation spectrum among the member
// traces, or nil.
func (f *Feature) BestMS2() *msdata.Spectrum {
	var best *msdata.Spectrum
	bestInt := -1.0
	for _, e := range f.Entries {
		if e.ROI == nil || e.ROI.BestMS2 == nil {
			continue
		}
		if t := e.ROI.BestMS2.TotalIntensity(); t > bestInt {
			bestInt = t
			best = e.ROI.BestMS2
		}
	}
	return best
}

// MaxIntensity is the highest per-sample height of the feature.
func (f *Feature) MaxIntensity() float64 {
	m := 0.0
	for _, e := range f.Entries {
		if e.Intensity > m {
			m = e.Intensity
		}
	}
	return m
}

// Present counts the samples in which the feature was detected.
func (f *Feature) Present() int {
	n := 0
	for _, e := range f.Entries {
		if e.ROI != nil {
			n++
		}
	}
	return n
}

type pooled struct {
	sample  int
	roi     *trace.ROI
	cluster int // -1 = unassigned
}

type cluster struct {
	mz, rt  float64
	sumInt  float64
	members []int // indices into the pool, one per sample at most
}

// dist is the Euclidean distance in normalized tolerance units.
func (c *cluster) dist(r *trace.ROI, cfg Config) float64 {
	dm := (r.MZ - c.mz) / cfg.MZTolerance
	dr := (r.RT - c.rt) / cfg.RTTolerance
	return math.Sqrt(dm*dm + dr*dr)
}

func (c *cluster) absorb(pool []pooled, idx int) {
	r := pool[idx].roi
	w := r.Height
	if c.sumInt+w > 0 {
		c.mz = (c.mz*c.sumInt + r.MZ*w) / (c.sumInt + w)
		c.rt = (c.rt*c.sumInt + r.RT*w) / (c.sumInt + w)
	}
	c.sumInt += w
	c.members = append(c.members, idx)
}

// Align merges N sample sets into one consensus table. Traces are pooled
// and sorted by m/z; clusters grow greedily over a sliding window, with a
// nearer-wins rule for traces satisfying two windows and eviction of the
// lower-intensity trace when one sample would contribute twice.
func Align(sets []*trace.SampleSet, cfg Config) (*Table, error) {
	if len(sets) == 0 {
		return nil, errors.New("align: empty sample set")
	}
	if cfg.MZTolerance <= 0 || cfg.RTTolerance <= 0 {
		return nil, fmt.Errorf("align: tolerances must be positive (mz=%v rt=%v)", cfg.MZTolerance, cfg.RTTolerance)
	}

	var pool []pooled
	for si, set := range sets {
		for _, r := range set.ROIs {
			pool = append(pool, pooled{sample: si, roi: r, cluster: -1})
		}
	}
	sort.SliceStable(pool, func(i, j int) bool {
		a, b := pool[i].roi, pool[j].roi
		if a.MZ != b.MZ {
			return a.MZ < b.MZ
		}
		if a.RT != b.RT {
			return a.RT < b.RT
		}
		return pool[i].sample < pool[j].sample
	})

	canSeed := func(r *trace.ROI) bool {
		if !cfg.DiscardShortROI {
			return true
		}
		return r.Len() >= minSeedPoints || r.BestMS2 != nil
	}

	var clusters []*cluster

	// worklist in m/z order; evicted traces come back around
	queue := make([]int, len(pool))
	for i := range pool {
		queue[i] = i
	}

	for qi := 0; qi < len(queue); qi++ {
		seedIdx := queue[qi]
		if pool[seedIdx].cluster >= 0 || !canSeed(pool[seedIdx].roi) {
			continue
		}
		c := &cluster{}
		ci := len(clusters)
		clusters = append(clusters, c)
		pool[seedIdx].cluster = ci
		c.absorb(pool, seedIdx)

		// sliding window around the seed, both directions
		for _, dir := range []int{1, -1} {
			for j := seedIdx + dir; j >= 0 && j < len(pool); j += dir {
				r := pool[j].roi
				if math.Abs(r.MZ-c.mz) > cfg.MZTolerance {
					break
				}
				if pool[j].cluster >= 0 {
					continue
				}
				if math.Abs(r.RT-c.rt) > cfg.RTTolerance {
					continue
				}
				if evicted, ok := c.admit(pool, j, ci, cfg); ok {
					pool[j].cluster = ci
					if evicted >= 0 {
						pool[evicted].cluster = -1
						queue = append(queue, evicted)
					}
				}
			}
		}
	}

	samples := make([]string, len(sets))
	for i, s := range sets {
		samples[i] = s.SampleID
	}
	table := &Table{Samples: samples}
	for ci, c := range clusters {
		f := &Feature{
			MZ:      c.mz,
			RT:      c.rt,
			Entries: make([]Entry, len(sets)),
			GroupID: -1,
		}
		empty := true
		for _, idx := range c.members {
			if pool[idx].cluster != ci {
				continue // evicted after absorption
			}
			f.Entries[pool[idx].sample] = Entry{ROI: pool[idx].roi, Intensity: pool[idx].roi.Height}
			empty = false
		}
		if !empty {
			table.Features = append(table.Features, f)
		}
	}

	sort.SliceStable(table.Features, func(i, j int) bool {
		a, b := table.Features[i], table.Features[j]
		if a.MZ != b.MZ {
			return a.MZ < b.MZ
		}
		return a.RT < b.RT
	})
	for i, f := range table.Features {
		f.ID = i
	}
	return table, nil
}

// admit decides whether the pool entry at idx joins the cluster. When the
// entry's sample already contributed, the nearer trace stays and the other
// is evicted (reported back to the caller to re-seed elsewhere).
func (c *cluster) admit(pool []pooled, idx, ci int, cfg Config) (evicted int, ok bool) {
	incumbent := -1
	for _, m := range c.members {
		if pool[m].cluster == ci && pool[m].sample == pool[idx].sample {
			incumbent = m
			break
		}
	}
	if incumbent < 0 {
		c.absorb(pool, idx)
		return -1, true
	}
	dNew := c.dist(pool[idx].roi, cfg)
	dOld := c.dist(pool[incumbent].roi, cfg)
	if dNew < dOld {
		c.absorb(pool, idx)
		return incumbent, true
	}
	return -1, false
}
