// core/msdata/source.go
package msdata

// Source supplies the ordered scans of one sample. Implementations must
// honor the ValidateRun contract; callers validate before trace building.
type Source interface {
	// Scans returns the full run in acquisition order.
	Scans() ([]Scan, error)
}

// SliceSource adapts an in-memory scan list to Source.
type SliceSource []Scan

func (s SliceSource) Scans() ([]Scan, error) { return s, nil }
