// internal/common/ids.go
package common

import (
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// NewRunID returns a fresh identifier for one pipeline run, recorded in
// checkpoints and the run summary.
func NewRunID() string { return uuid.NewString() }

// SampleID derives the sample identifier from a raw-data path: the base
// name without its extension ("QC_01.mzML" → "QC_01").
func SampleID(path string) string {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	return strings.TrimSuffix(base, ext)
}
