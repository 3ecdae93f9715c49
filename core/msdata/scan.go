// core/msdata/scan.go
package msdata

import (
	"errors"
	"fmt"
)

// Peak is a single centroid (m/z, intensity).
type Peak struct {
	MZ        float64
	Intensity float64
}

// Scan is one spectrum acquired at a retention time. Level 1 scans carry
// survey centroids; level >=2 scans carry fragment peaks plus precursor info.
// Scans are immutable once produced by a source.
type Scan struct {
	Index              int
	RT                 float64 // minutes
	Level              int
	Peaks              []Peak // sorted by m/z ascending
	PrecursorMZ        float64
	PrecursorIntensity float64
}

// Spectrum is a fragmentation spectrum detached from its scan, kept on an
// ion trace as MS2 evidence.
type Spectrum struct {
	PrecursorMZ float64
	RT          float64
	Peaks       []Peak
}

// ErrMalformedScan marks a run whose scans violate the source contract
// (non-increasing retention time or unsorted centroids). The whole sample
// is rejected; other samples are unaffected.
var ErrMalformedScan = errors.New("malformed scan")

// ValidateRun checks the source contract over a full run:
// retention times strictly increase and centroids are m/z-sorted per scan.
func ValidateRun(scans []Scan) error {
	lastRT := -1.0
	for i, s := range scans {
		if s.RT <= lastRT {
			return fmt.Errorf("%w: scan %d rt %.4f not after %.4f", ErrMalformedScan, i, s.RT, lastRT)
		}
		lastRT = s.RT
		for j := 1; j < len(s.Peaks); j++ {
			if s.Peaks[j].MZ < s.Peaks[j-1].MZ {
				return fmt.Errorf("%w: scan %d centroids unsorted at %d", ErrMalformedScan, i, j)
			}
		}
	}
	return nil
}

// TotalIntensity sums the fragment intensities of a spectrum.
func (s *Spectrum) TotalIntensity() float64 {
	var t float64
	for _, p := range s.Peaks {
		t += p.Intensity
	}
	return t
}

// CleanMS2 prunes a fragmentation spectrum in place:
// fragments above precursor-offset, below 1% of the base peak, or below
// the absolute threshold are dropped.
func CleanMS2(sp *Spectrum, offset, intensityThreshold float64) {
	if len(sp.Peaks) == 0 {
		return
	}
	kept := sp.Peaks[:0]
	for _, p := range sp.Peaks {
		if p.MZ < sp.PrecursorMZ-offset {
			kept = append(kept, p)
		}
	}
	sp.Peaks = kept
	base := 0.0
	for _, p := range sp.Peaks {
		if p.Intensity > base {
			base = p.Intensity
		}
	}
	kept = sp.Peaks[:0]
	for _, p := range sp.Peaks {
		if p.Intensity > 0.01*base && p.Intensity > intensityThreshold {
			kept = append(kept, p)
		}
	}
	sp.Peaks = kept
}
