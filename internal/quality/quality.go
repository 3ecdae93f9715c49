// internal/quality/quality.go
package quality

import (
	"fmt"
	"math"
)

// GaussianScorer rates apex-centered elution profiles by their best
// Pearson correlation against a bank of Gaussian templates. Scores are
// clamped to [0,1]; flat or empty profiles score 0.
type GaussianScorer struct {
	sigmas []float64
}

// NewGaussianScorer builds a scorer with the default template widths,
// expressed as fractions of the profile length.
func NewGaussianScorer() *GaussianScorer {
	return &GaussianScorer{sigmas: []float64{0.05, 0.08, 0.12, 0.18, 0.25}}
}

// Score rates each profile independently. All profiles in one batch
// must share a length.
func (g *GaussianScorer) Score(profiles [][]float64) ([]float64, error) {
	if len(profiles) == 0 {
		return nil, nil
	}
	n := len(profiles[0])
	templates := make([][]float64, len(g.sigmas))
	for i, s := range g.sigmas {
		templates[i] = gaussian(n, s*float64(n))
	}
	out := make([]float64, len(profiles))
	for i, p := range profiles {
		if len(p) != n {
			return nil, fmt.Errorf("profile %d has length %d, batch uses %d", i, len(p), n)
		}
		best := 0.0
		for _, tpl := range templates {
			if r := pearson(p, tpl); r > best {
				best = r
			}
		}
		out[i] = best
	}
	return out, nil
}

// gaussian returns a unit-height bell centered on the apex slot of an
// apex-centered profile.
func gaussian(n int, sigma float64) []float64 {
	v := make([]float64, n)
	center := float64(n / 2)
	for i := range v {
		d := float64(i) - center
		v[i] = math.Exp(-d * d / (2 * sigma * sigma))
	}
	return v
}

func pearson(a, b []float64) float64 {
	n := float64(len(a))
	var sa, sb float64
	for i := range a {
		sa += a[i]
		sb += b[i]
	}
	ma, mb := sa/n, sb/n
	var cov, va, vb float64
	for i := range a {
		da, db := a[i]-ma, b[i]-mb
		cov += da * db
		va += da * da
		vb += db * db
	}
	if va == 0 || vb == 0 {
		return 0
	}
	return cov / math.Sqrt(va*vb)
}
