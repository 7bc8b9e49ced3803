package analyser

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/algo-player/internal/testutil"
)

func TestDefaults(t *testing.T) {
	t.Parallel()

	a, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if a.FFTSize() != 2048 || a.FrequencyBinCount() != 1024 || a.Smoothing() != 0.8 {
		t.Fatalf("defaults = %d/%d/%v", a.FFTSize(), a.FrequencyBinCount(), a.Smoothing())
	}
}

func TestInvalidOptions(t *testing.T) {
	t.Parallel()

	if _, err := New(WithFFTSize(1000)); !errors.Is(err, ErrFFTSize) {
		t.Fatalf("fft size 1000: err = %v, want ErrFFTSize", err)
	}
	if _, err := New(WithFFTSize(16)); !errors.Is(err, ErrFFTSize) {
		t.Fatalf("fft size 16: err = %v, want ErrFFTSize", err)
	}
	if _, err := New(WithSmoothing(1.5)); err == nil {
		t.Fatal("smoothing 1.5 accepted")
	}
	if _, err := New(WithDecibelRange(-30, -100)); err == nil {
		t.Fatal("inverted dB range accepted")
	}
}

func TestSilence(t *testing.T) {
	t.Parallel()

	a, err := New(WithFFTSize(256))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	a.Write(make([]float64, 256))

	freq := make([]byte, a.FrequencyBinCount())
	a.ByteFrequencyData(freq)
	for k, v := range freq {
		if v != 0 {
			t.Fatalf("bin %d = %d on silence", k, v)
		}
	}

	td := make([]byte, a.FFTSize())
	a.ByteTimeDomainData(td)
	for i, v := range td {
		if v != 128 {
			t.Fatalf("time sample %d = %d on silence, want 128", i, v)
		}
	}
}

func TestBinCentredSinePeaks(t *testing.T) {
	t.Parallel()

	const (
		n   = 1024
		sr  = 48000.0
		bin = 40
	)

	a, err := New(WithFFTSize(n), WithSmoothing(0))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	a.Write(testutil.DeterministicSine(bin*sr/n, sr, 0.5, n))

	db := make([]float64, a.FrequencyBinCount())
	a.FloatFrequencyData(db)

	peak := 0
	for k := range db {
		if db[k] > db[peak] {
			peak = k
		}
	}
	if peak != bin {
		t.Fatalf("peak bin = %d, want %d", peak, bin)
	}

	// Blackman main lobe: 0.5 amplitude * 0.42 / 2.
	want := 20 * math.Log10(0.5*0.42/2)
	if math.Abs(db[bin]-want) > 0.01 {
		t.Fatalf("peak level = %.3f dB, want %.3f", db[bin], want)
	}

	bytes := make([]byte, a.FrequencyBinCount())
	a.ByteFrequencyData(bytes)
	if bytes[bin] != 255 {
		t.Fatalf("peak byte = %d, want 255", bytes[bin])
	}
	if bytes[bin+20] != 0 {
		t.Fatalf("far bin byte = %d, want 0", bytes[bin+20])
	}
}

func TestSmoothingBlendsHistory(t *testing.T) {
	t.Parallel()

	a, err := New(WithFFTSize(256), WithSmoothing(0.5))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	a.Write(testutil.DeterministicSine(48000.0*8/256, 48000, 1, 256))

	first := make([]float64, a.FrequencyBinCount())
	second := make([]float64, a.FrequencyBinCount())
	a.FloatFrequencyData(first)
	a.FloatFrequencyData(second)

	// Same input twice: 0.5*m then 0.75*m, i.e. 20*log10(1.5) dB louder.
	if got := second[8] - first[8]; math.Abs(got-20*math.Log10(1.5)) > 1e-9 {
		t.Fatalf("smoothing step = %v dB", got)
	}

	a.Reset()
	a.FloatFrequencyData(first)
	if !math.IsInf(first[8], -1) {
		t.Fatalf("after reset bin = %v, want -Inf", first[8])
	}
}

func TestTimeDomainOrder(t *testing.T) {
	t.Parallel()

	a, err := New(WithFFTSize(32))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for i := 0; i < 40; i++ {
		a.Write([]float64{float64(i) / 100})
	}

	got := make([]float64, 32)
	a.FloatTimeDomainData(got)
	if got[0] != 0.08 || got[31] != 0.39 {
		t.Fatalf("oldest/newest = %v/%v, want 0.08/0.39", got[0], got[31])
	}

	a.Write([]float64{1, -1})
	b := make([]byte, 32)
	a.ByteTimeDomainData(b)
	if b[30] != 255 || b[31] != 0 {
		t.Fatalf("full scale bytes = %d/%d, want 255/0", b[30], b[31])
	}
}
