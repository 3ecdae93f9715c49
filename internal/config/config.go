// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Params is the full configuration surface of the pipeline. Components
// receive the relevant slice of it explicitly; nothing reads it as
// ambient state.
type Params struct {
	// trace detection
	MZToleranceMS1     float64 `yaml:"mz_tolerance_ms1"`
	MZToleranceMS2     float64 `yaml:"mz_tolerance_ms2"`
	IntensityThreshold float64 `yaml:"intensity_threshold"`
	MaxGapScans        int     `yaml:"max_gap_scans"`

	// refinement
	MinPoints     int  `yaml:"min_points"`
	CutLongTraces bool `yaml:"cut_long_traces"`

	// alignment
	AlignMZTolerance float64 `yaml:"align_mz_tolerance"`
	AlignRTTolerance float64 `yaml:"align_rt_tolerance"`
	DiscardShortROI  bool    `yaml:"discard_short_roi"`

	// grouping
	PPRThreshold   float64 `yaml:"ppr_threshold"`
	GroupMZTol     float64 `yaml:"group_mz_tolerance"`
	GroupRTTol     float64 `yaml:"group_rt_tolerance"`
	MaxIsotopeRank int     `yaml:"max_isotope_rank"`
	IonMode        string  `yaml:"ion_mode"` // positive | negative

	// annotation
	AnnotationTopK int     `yaml:"annotation_top_k"`
	MinSimilarity  float64 `yaml:"min_similarity"`
}

// Default returns the standard parameter set for orbitrap-class data.
func Default() Params {
	return Params{
		MZToleranceMS1:     0.01,
		MZToleranceMS2:     0.015,
		IntensityThreshold: 1000,
		MaxGapScans:        2,
		MinPoints:          5,
		CutLongTraces:      true,
		AlignMZTolerance:   0.01,
		AlignRTTolerance:   0.2,
		DiscardShortROI:    true,
		PPRThreshold:       0.7,
		GroupMZTol:         0.01,
		GroupRTTol:         0.1,
		MaxIsotopeRank:     4,
		IonMode:            "positive",
		AnnotationTopK:     1,
		MinSimilarity:      0.7,
	}
}

// Load reads a YAML parameter file over the defaults.
func Load(path string) (Params, error) {
	p := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return p, err
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("parse %s: %w", path, err)
	}
	return p, nil
}

// Validate rejects configurations the pipeline must not start with.
func (p Params) Validate() error {
	switch {
	case p.MZToleranceMS1 <= 0:
		return errors.New("mz_tolerance_ms1 must be > 0")
	case p.IntensityThreshold < 0:
		return errors.New("intensity_threshold must be >= 0")
	case p.MaxGapScans < 0:
		return errors.New("max_gap_scans must be >= 0")
	case p.MinPoints < 1:
		return errors.New("min_points must be >= 1")
	case p.AlignMZTolerance <= 0 || p.AlignRTTolerance <= 0:
		return errors.New("alignment tolerances must be > 0")
	case p.PPRThreshold < -1 || p.PPRThreshold > 1:
		return errors.New("ppr_threshold must be in [-1,1]")
	case p.IonMode != "positive" && p.IonMode != "negative":
		return fmt.Errorf("ion_mode %q must be positive or negative", p.IonMode)
	case p.AnnotationTopK < 1:
		return errors.New("annotation_top_k must be >= 1")
	}
	return nil
}
