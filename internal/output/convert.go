// internal/output/convert.go
package output

import (
	"mzflow-core/align"
	"mzflow-core/msdata"
	"mzflow-core/trace"

	"mzflow/pkg/api"
)

// ToAPIROI converts a domain trace to the stable wire schema (v1).
func ToAPIROI(r *trace.ROI) api.ROIV1 {
	v := api.ROIV1{
		ID:      r.ID,
		MZ:      r.MZ,
		RT:      r.RT,
		RTStart: r.RTStart,
		RTEnd:   r.RTEnd,
		Height:  r.Height,
		Area:    r.Area,
		Length:  r.Len(),
		ScanIdx: append([]int(nil), r.ScanIdx...),
		IntSeq:  append([]float64(nil), r.IntSeq...),
		RTSeq:   append([]float64(nil), r.RTSeq...),
	}
	if r.Scored {
		q := r.Quality
		v.Quality = &q
	}
	if r.BestMS2 != nil {
		v.MS2 = toAPISpectrum(r.BestMS2)
	}
	return v
}

func toAPISpectrum(sp *msdata.Spectrum) *api.MS2V1 {
	out := &api.MS2V1{PrecursorMZ: sp.PrecursorMZ, RT: sp.RT}
	out.Peaks = make([][2]float64, len(sp.Peaks))
	for i, p := range sp.Peaks {
		out.Peaks[i] = [2]float64{p.MZ, p.Intensity}
	}
	return out
}

// ToAPISampleSet converts one sample's refined traces.
func ToAPISampleSet(set *trace.SampleSet) *api.SampleSetV1 {
	out := &api.SampleSetV1{SampleID: set.SampleID}
	out.ROIs = make([]api.ROIV1, 0, len(set.ROIs))
	for _, r := range set.ROIs {
		out.ROIs = append(out.ROIs, ToAPIROI(r))
	}
	return out
}

// FromAPISampleSet rebuilds a domain sample set from a checkpoint. The
// per-point m/z sequence is not persisted; the trace center stands in
// for every point, which downstream stages never inspect.
func FromAPISampleSet(set *api.SampleSetV1) *trace.SampleSet {
	out := &trace.SampleSet{SampleID: set.SampleID}
	out.ROIs = make([]*trace.ROI, 0, len(set.ROIs))
	for i := range set.ROIs {
		out.ROIs = append(out.ROIs, fromAPIROI(&set.ROIs[i]))
	}
	return out
}

func fromAPIROI(v *api.ROIV1) *trace.ROI {
	r := &trace.ROI{
		ID:      v.ID,
		MZ:      v.MZ,
		RT:      v.RT,
		RTStart: v.RTStart,
		RTEnd:   v.RTEnd,
		Height:  v.Height,
		Area:    v.Area,
		ScanIdx: append([]int(nil), v.ScanIdx...),
		IntSeq:  append([]float64(nil), v.IntSeq...),
		RTSeq:   append([]float64(nil), v.RTSeq...),
	}
	r.MZSeq = make([]float64, len(r.ScanIdx))
	for i := range r.MZSeq {
		r.MZSeq[i] = v.MZ
	}
	if v.Quality != nil {
		r.Quality = *v.Quality
		r.Scored = true
	}
	if v.MS2 != nil {
		sp := msdata.Spectrum{PrecursorMZ: v.MS2.PrecursorMZ, RT: v.MS2.RT}
		sp.Peaks = make([]msdata.Peak, len(v.MS2.Peaks))
		for i, p := range v.MS2.Peaks {
			sp.Peaks[i] = msdata.Peak{MZ: p[0], Intensity: p[1]}
		}
		r.MS2 = []msdata.Spectrum{sp}
		r.BestMS2 = &r.MS2[0]
	}
	return r
}

// ToAPITable converts the consensus table.
func ToAPITable(t *align.Table) *api.FeatureTableV1 {
	out := &api.FeatureTableV1{Samples: append([]string(nil), t.Samples...)}
	out.Features = make([]api.FeatureV1, 0, len(t.Features))
	for _, f := range t.Features {
		out.Features = append(out.Features, ToAPIFeature(f, t.Samples))
	}
	return out
}

// ToAPIFeature converts one consensus feature; samples supplies the
// per-entry sample ids.
func ToAPIFeature(f *align.Feature, samples []string) api.FeatureV1 {
	v := api.FeatureV1{
		ID:          f.ID,
		MZ:          f.MZ,
		RT:          f.RT,
		GroupID:     f.GroupID,
		Role:        f.Role,
		IsotopeRank: f.IsotopeRank,
		AdductType:  f.AdductType,
	}
	v.Entries = make([]api.EntryV1, len(f.Entries))
	for i, e := range f.Entries {
		v.Entries[i] = api.EntryV1{SampleID: samples[i]}
		if e.ROI != nil {
			id := e.ROI.ID
			v.Entries[i].ROIID = &id
			v.Entries[i].Intensity = e.Intensity
		}
	}
	for _, a := range f.Annotations {
		v.Annotations = append(v.Annotations, api.AnnotationV1{
			LibraryID:    a.LibraryID,
			Name:         a.Name,
			Formula:      a.Formula,
			Similarity:   a.Similarity,
			MatchedPeaks: a.MatchedPeaks,
		})
	}
	return v
}
