// pkg/api/features_v1.go
package api

// Stable serializable records for the project persistence boundary.
// Keep fields, names, and types stable. Add new fields only with ",omitempty".

// ROIV1 is one detected ion trace of a sample.
type ROIV1 struct {
	ID      int       `json:"id"`
	MZ      float64   `json:"mz"`
	RT      float64   `json:"rt"`
	RTStart float64   `json:"rt_start"`
	RTEnd   float64   `json:"rt_end"`
	Height  float64   `json:"height"`
	Area    float64   `json:"area"`
	Length  int       `json:"length"`
	Quality *float64  `json:"quality,omitempty"` // nil = unscored
	MS2     *MS2V1    `json:"ms2,omitempty"`
	ScanIdx []int     `json:"scan_idx,omitempty"`
	IntSeq  []float64 `json:"int_seq,omitempty"`
	RTSeq   []float64 `json:"rt_seq,omitempty"`
}

// MS2V1 is a fragmentation spectrum.
type MS2V1 struct {
	PrecursorMZ float64      `json:"precursor_mz"`
	RT          float64      `json:"rt"`
	Peaks       [][2]float64 `json:"peaks"` // [mz, intensity]
}

// SampleSetV1 is the refined trace collection of one sample.
type SampleSetV1 struct {
	SampleID string  `json:"sample_id"`
	ROIs     []ROIV1 `json:"rois"`
}

// EntryV1 is one sample's contribution to a consensus feature.
// A nil ROIID marks the feature absent in that sample.
type EntryV1 struct {
	SampleID  string  `json:"sample_id"`
	ROIID     *int    `json:"roi_id,omitempty"`
	Intensity float64 `json:"intensity,omitempty"`
}

// FeatureV1 is one cross-sample consensus feature.
type FeatureV1 struct {
	ID          int            `json:"id"`
	MZ          float64        `json:"mz"`
	RT          float64        `json:"rt"`
	Entries     []EntryV1      `json:"entries"`
	GroupID     int            `json:"group_id"`
	Role        string         `json:"role,omitempty"`
	IsotopeRank int            `json:"isotope_rank,omitempty"`
	AdductType  string         `json:"adduct_type,omitempty"`
	Annotations []AnnotationV1 `json:"annotations,omitempty"`
}

// AnnotationV1 is one ranked library identity.
type AnnotationV1 struct {
	LibraryID    string  `json:"library_id"`
	Name         string  `json:"name"`
	Formula      string  `json:"formula,omitempty"`
	Similarity   float64 `json:"similarity"`
	MatchedPeaks int     `json:"matched_peaks"`
}

// FeatureTableV1 is the full consensus table.
type FeatureTableV1 struct {
	Samples  []string    `json:"samples"`
	Features []FeatureV1 `json:"features"`
}

// SampleFailureV1 records one rejected sample run.
type SampleFailureV1 struct {
	SampleID string `json:"sample_id"`
	Error    string `json:"error"`
}

// RunSummaryV1 is the end-of-run report.
type RunSummaryV1 struct {
	RunID       string            `json:"run_id"`
	Samples     int               `json:"samples"`
	Failures    []SampleFailureV1 `json:"failures,omitempty"`
	EmptyTraces int               `json:"empty_traces,omitempty"`
	Features    int               `json:"features"`
	Groups      int               `json:"groups"`
	Annotated   int               `json:"annotated"`
}
