package testutil

import (
	"math"
	"slices"
	"testing"
)

func TestDeterministicSine(t *testing.T) {
	t.Parallel()

	s := DeterministicSine(1000, 48000, 0.5, 48)
	if s[0] != 0 {
		t.Fatalf("s[0] = %v", s[0])
	}
	// a quarter period is 12 samples
	if math.Abs(s[12]-0.5) > 1e-12 {
		t.Fatalf("peak = %v, want 0.5", s[12])
	}
	if math.Abs(s[36]+0.5) > 1e-12 {
		t.Fatalf("trough = %v, want -0.5", s[36])
	}
}

func TestDeterministicNoise(t *testing.T) {
	t.Parallel()

	a := DeterministicNoise(42, 0.25, 1000)
	if !slices.Equal(a, DeterministicNoise(42, 0.25, 1000)) {
		t.Fatal("same seed gave different noise")
	}
	if slices.Equal(a, DeterministicNoise(43, 0.25, 1000)) {
		t.Fatal("different seeds gave the same noise")
	}

	for i, v := range a {
		if v < -0.25 || v >= 0.25 {
			t.Fatalf("[%d] = %v out of range", i, v)
		}
	}
}

func TestDCAndOnes(t *testing.T) {
	t.Parallel()

	if got := DC(-2, 3); !slices.Equal(got, []float64{-2, -2, -2}) {
		t.Fatalf("DC = %v", got)
	}
	if got := Ones(2); !slices.Equal(got, []float64{1, 1}) {
		t.Fatalf("Ones = %v", got)
	}
}

func TestStereoFramesRoundTrip(t *testing.T) {
	t.Parallel()

	mono := []float64{0.1, -0.2, 0.3}
	frames := StereoFrames(mono)
	if frames[1] != [2]float64{-0.2, -0.2} {
		t.Fatalf("frame = %v", frames[1])
	}

	RequireSliceNearlyEqual(t, Left(frames), mono, 0)
}
