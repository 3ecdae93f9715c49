// core/align/align_test.go
package align

import (
	"context"
	"math/rand"
	"testing"

	"mzflow-core/msdata"
	"mzflow-core/trace"
)

// makeROI builds a 5-point trace apexing at (mz, rt, height) through the
// real builder so its invariants hold.
func makeROI(t *testing.T, mz, rt, height float64) *trace.ROI {
	t.Helper()
	step := 0.05
	heights := []float64{height * 0.2, height * 0.6, height, height * 0.5, height * 0.1}
	scans := make([]msdata.Scan, len(heights))
	for i, h := range heights {
		scans[i] = msdata.Scan{
			RT:    rt + step*float64(i-2),
			Level: 1,
			Peaks: []msdata.Peak{{MZ: mz, Intensity: h}},
		}
	}
	b := trace.NewBuilder(trace.Config{MZTolerance: 0.01, IntensityThreshold: 1, MaxGapScans: 5})
	rois, err := b.Build(context.Background(), msdata.SliceSource(scans))
	if err != nil || len(rois) != 1 {
		t.Fatalf("setup trace: %v (%d rois)", err, len(rois))
	}
	return rois[0]
}

func set(id string, rois ...*trace.ROI) *trace.SampleSet {
	return &trace.SampleSet{SampleID: id, ROIs: rois}
}

// Three samples each with one trace at mz=100, rt≈5.0 must collapse to one
// consensus feature with three present entries.
func TestAlignThreeSamplesOneFeature(t *testing.T) {
	cfg := Config{MZTolerance: 0.01, RTTolerance: 0.3}
	table, err := Align([]*trace.SampleSet{
		set("a", makeROI(t, 100.000, 5.00, 1000)),
		set("b", makeROI(t, 100.001, 5.05, 1200)),
		set("c", makeROI(t, 99.999, 4.96, 900)),
	}, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if len(table.Features) != 1 {
		t.Fatalf("expected 1 consensus feature, got %d", len(table.Features))
	}
	f := table.Features[0]
	if f.Present() != 3 {
		t.Fatalf("expected 3 present entries, got %d", f.Present())
	}
	if f.MZ < 99.99 || f.MZ > 100.01 {
		t.Errorf("representative m/z off: %v", f.MZ)
	}
	if f.RT < 4.9 || f.RT > 5.1 {
		t.Errorf("representative rt off: %v", f.RT)
	}
	for i, e := range f.Entries {
		if e.ROI == nil {
			t.Fatalf("sample %d should be present", i)
		}
	}
}

// Traces outside tolerance never share a cluster.
func TestAlignOutsideTolerance(t *testing.T) {
	cfg := Config{MZTolerance: 0.005, RTTolerance: 0.1}
	table, err := Align([]*trace.SampleSet{
		set("a", makeROI(t, 100.000, 5.0, 1000)),
		set("b", makeROI(t, 100.100, 5.0, 1000)),
	}, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if len(table.Features) != 2 {
		t.Fatalf("expected 2 separate features, got %d", len(table.Features))
	}
}

// The table (as a set of features with their presence pattern) is the same
// whatever the sample input order.
func TestAlignSampleOrderInvariant(t *testing.T) {
	cfg := Config{MZTolerance: 0.01, RTTolerance: 0.3}
	build := func() []*trace.SampleSet {
		return []*trace.SampleSet{
			set("a", makeROI(t, 100.000, 5.0, 1000), makeROI(t, 200.000, 7.0, 500)),
			set("b", makeROI(t, 100.001, 5.1, 1200)),
			set("c", makeROI(t, 200.002, 7.05, 450), makeROI(t, 300.000, 2.0, 800)),
		}
	}

	sig := func(tab *Table) []string {
		var out []string
		for _, f := range tab.Features {
			key := ""
			for si, name := range tab.Samples {
				if f.Entries[si].ROI != nil {
					key += name
				}
			}
			out = append(out, key)
		}
		return out
	}

	fwd := build()
	rev := []*trace.SampleSet{fwd[2], fwd[0], fwd[1]}

	t1, err := Align(fwd, cfg)
	if err != nil {
		t.Fatal(err)
	}
	t2, err := Align(rev, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if len(t1.Features) != len(t2.Features) {
		t.Fatalf("feature counts differ: %d vs %d", len(t1.Features), len(t2.Features))
	}
	s1, s2 := sig(t1), sig(t2)
	for i := range s1 {
		if t1.Features[i].MZ != t2.Features[i].MZ {
			t.Fatalf("feature %d m/z differs: %v vs %v", i, t1.Features[i].MZ, t2.Features[i].MZ)
		}
		// presence patterns must match as sets of sample names
		if len(s1[i]) != len(s2[i]) {
			t.Fatalf("feature %d presence differs: %q vs %q", i, s1[i], s2[i])
		}
	}
}

// Output ordering contract: (m/z, rt) ascending.
func TestAlignOutputOrdered(t *testing.T) {
	cfg := Config{MZTolerance: 0.005, RTTolerance: 0.1}
	table, err := Align([]*trace.SampleSet{
		set("a",
			makeROI(t, 300.0, 2.0, 100),
			makeROI(t, 100.0, 5.0, 100),
			makeROI(t, 100.0, 9.0, 100),
		),
	}, cfg)
	if err != nil {
		t.Fatal(err)
	}
	for i := 1; i < len(table.Features); i++ {
		a, b := table.Features[i-1], table.Features[i]
		if a.MZ > b.MZ || (a.MZ == b.MZ && a.RT > b.RT) {
			t.Fatalf("features out of order at %d", i)
		}
	}
}

// Property: randomly placed ground-truth clusters far apart relative to
// tolerance are recovered exactly; same-cluster traces always co-cluster.
func TestAlignGroundTruthProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	cfg := Config{MZTolerance: 0.01, RTTolerance: 0.1}

	const nClusters = 40
	const nSamples = 4

	sets := make([]*trace.SampleSet, nSamples)
	for si := 0; si < nSamples; si++ {
		sets[si] = &trace.SampleSet{SampleID: string(rune('a' + si))}
	}

	for c := 0; c < nClusters; c++ {
		mz := 100.0 + float64(c)*1.0 // 1 Da apart >> tolerance
		rt := 1.0 + rng.Float64()*10
		for si := 0; si < nSamples; si++ {
			jmz := (rng.Float64() - 0.5) * cfg.MZTolerance * 0.8
			jrt := (rng.Float64() - 0.5) * cfg.RTTolerance * 0.8
			sets[si].ROIs = append(sets[si].ROIs, makeROI(t, mz+jmz, rt+jrt, 500+rng.Float64()*1000))
		}
	}

	table, err := Align(sets, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if len(table.Features) != nClusters {
		t.Fatalf("expected %d recovered clusters, got %d", nClusters, len(table.Features))
	}
	for _, f := range table.Features {
		if f.Present() != nSamples {
			t.Fatalf("feature %v missing entries: %d/%d", f.MZ, f.Present(), nSamples)
		}
	}
}

// Two traces from the same sample cannot both stay in one cluster; the
// nearer one stays and the other seeds its own feature.
func TestAlignSameSampleEviction(t *testing.T) {
	cfg := Config{MZTolerance: 0.01, RTTolerance: 0.5}
	near := makeROI(t, 100.0000, 5.00, 1000)
	far := makeROI(t, 100.0080, 5.00, 400)
	other := makeROI(t, 100.0002, 5.01, 1100)

	table, err := Align([]*trace.SampleSet{
		set("a", near, far),
		set("b", other),
	}, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if len(table.Features) != 2 {
		t.Fatalf("expected 2 features after eviction, got %d", len(table.Features))
	}
	for _, f := range table.Features {
		seen := map[int]int{}
		for si, e := range f.Entries {
			if e.ROI != nil {
				seen[si]++
			}
		}
		for si, n := range seen {
			if n > 1 {
				t.Fatalf("sample %d doubled in one feature", si)
			}
		}
	}
}

// Config violations surface immediately.
func TestAlignConfigValidation(t *testing.T) {
	if _, err := Align(nil, Config{MZTolerance: 0.01, RTTolerance: 0.1}); err == nil {
		t.Fatal("expected error for empty sample set")
	}
	if _, err := Align([]*trace.SampleSet{set("a")}, Config{MZTolerance: 0, RTTolerance: 0.1}); err == nil {
		t.Fatal("expected error for zero tolerance")
	}
}
