// core/group/chem.go
package group

// IsotopeSpacing is the averaged 13C mass increment per isotope rank.
const IsotopeSpacing = 1.003355

// Adduct is a known ionization variant with its mass shift relative to the
// default ion ([M+H]+ in positive mode, [M-H]- in negative mode).
type Adduct struct {
	Name    string
	DeltaMZ float64
}

// PositiveAdducts are shifts against [M+H]+.
var PositiveAdducts = []Adduct{
	{Name: "[M+H-H2O]+", DeltaMZ: -18.010565},
	{Name: "[M+NH4]+", DeltaMZ: 17.026550},
	{Name: "[M+Na]+", DeltaMZ: 21.981945},
	{Name: "[M+K]+", DeltaMZ: 37.955882},
}

// NegativeAdducts are shifts against [M-H]-.
var NegativeAdducts = []Adduct{
	{Name: "[M-H-H2O]-", DeltaMZ: -18.010564},
	{Name: "[M+Cl]-", DeltaMZ: 35.976677},
	{Name: "[M+HCOO]-", DeltaMZ: 46.005479},
	{Name: "[M+CH3COO]-", DeltaMZ: 60.021129},
}

// AdductsForMode returns the default adduct table for an ion mode.
func AdductsForMode(mode string) []Adduct {
	if mode == "negative" {
		return NegativeAdducts
	}
	return PositiveAdducts
}

// ChargeState guesses 1 or 2 from the spacing of the first isotope step.
func ChargeState(mzSeq []float64) int {
	if len(mzSeq) < 2 {
		return 1
	}
	d := mzSeq[1] - mzSeq[0]
	if abs(d-1) < abs(d-0.5) {
		return 1
	}
	return 2
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
