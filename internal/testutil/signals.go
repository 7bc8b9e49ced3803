package testutil

import (
	"math"
	"math/rand/v2"
	"testing"
)

// DeterministicSine returns length samples of a sine at freqHz.
func DeterministicSine(freqHz, sampleRate, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	step := 2 * math.Pi * freqHz / sampleRate
	for i := range out {
		out[i] = amplitude * math.Sin(step*float64(i))
	}

	return out
}

// DeterministicNoise returns uniform noise in [-amplitude, amplitude); the
// same seed always yields the same signal.
func DeterministicNoise(seed uint64, amplitude float64, length int) []float64 {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	out := make([]float64, length)
	for i := range out {
		out[i] = (2*rng.Float64() - 1) * amplitude
	}

	return out
}

// DC returns a constant signal.
func DC(value float64, length int) []float64 {
	out := make([]float64, length)
	for i := range out {
		out[i] = value
	}

	return out
}

// Ones is DC(1, n).
func Ones(n int) []float64 { return DC(1, n) }

// RequireSliceNearlyEqual fails t at the first index where got and want
// differ by more than eps.
func RequireSliceNearlyEqual(t *testing.T, got, want []float64, eps float64) {
	t.Helper()

	if len(got) != len(want) {
		t.Fatalf("length = %d, want %d", len(got), len(want))
	}

	for i := range got {
		if d := math.Abs(got[i] - want[i]); d > eps || math.IsNaN(d) {
			t.Fatalf("[%d] = %v, want %v (|diff| %v > %v)", i, got[i], want[i], d, eps)
		}
	}
}
