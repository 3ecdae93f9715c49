// internal/quality/quality_test.go
package quality

import (
	"math"
	"testing"
)

func profileOf(f func(i int) float64, n int) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = f(i)
	}
	return v
}

func TestGaussianScoresHigh(t *testing.T) {
	n := 32
	bell := profileOf(func(i int) float64 {
		d := float64(i - n/2)
		return math.Exp(-d * d / (2 * 9))
	}, n)
	got, err := NewGaussianScorer().Score([][]float64{bell})
	if err != nil {
		t.Fatal(err)
	}
	if got[0] < 0.95 {
		t.Fatalf("gaussian profile scored %v", got[0])
	}
}

func TestNoiseScoresLow(t *testing.T) {
	n := 32
	// sign-alternating sawtooth: nothing bell-like
	jagged := profileOf(func(i int) float64 {
		if i%2 == 0 {
			return 1
		}
		return 0.1
	}, n)
	got, err := NewGaussianScorer().Score([][]float64{jagged})
	if err != nil {
		t.Fatal(err)
	}
	if got[0] > 0.5 {
		t.Fatalf("jagged profile scored %v", got[0])
	}
}

func TestFlatProfileScoresZero(t *testing.T) {
	got, err := NewGaussianScorer().Score([][]float64{make([]float64, 32)})
	if err != nil {
		t.Fatal(err)
	}
	if got[0] != 0 {
		t.Fatalf("flat profile scored %v", got[0])
	}
}

func TestBatchLengthMismatch(t *testing.T) {
	_, err := NewGaussianScorer().Score([][]float64{make([]float64, 32), make([]float64, 16)})
	if err == nil {
		t.Fatal("expected length mismatch error")
	}
}

func TestEmptyBatch(t *testing.T) {
	got, err := NewGaussianScorer().Score(nil)
	if err != nil || got != nil {
		t.Fatalf("got %v, %v", got, err)
	}
}
