// Package analyser implements a real-time spectrum tap modelled on the
// browser AnalyserNode.
//
// Samples are written into a ring of the last FFTSize values. Each read of
// frequency data windows that ring with a periodic Blackman window, runs a
// forward FFT, normalizes the magnitudes by 1/N and blends them into the
// previous result with the smoothing time constant. Byte readers map the
// decibel range [MinDecibels, MaxDecibels] onto 0..255 and time-domain bytes
// centre silence on 128.
package analyser

import (
	"errors"
	"fmt"
	"math"
	"sync"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-player/dsp/window"
	"github.com/cwbudde/algo-vecmath"
)

const (
	DefaultFFTSize     = 2048
	DefaultSmoothing   = 0.8
	DefaultMinDecibels = -100.0
	DefaultMaxDecibels = -30.0

	minFFTSize = 32
	maxFFTSize = 32768
)

// ErrFFTSize is returned for FFT sizes that are not a power of two in
// [32, 32768].
var ErrFFTSize = errors.New("analyser: fft size must be a power of two in [32, 32768]")

// Option configures an Analyser.
type Option func(*config)

type config struct {
	fftSize   int
	smoothing float64
	minDB     float64
	maxDB     float64
}

// WithFFTSize sets the transform length.
func WithFFTSize(n int) Option {
	return func(c *config) { c.fftSize = n }
}

// WithSmoothing sets the smoothing time constant in [0, 1].
func WithSmoothing(s float64) Option {
	return func(c *config) { c.smoothing = s }
}

// WithDecibelRange sets the range mapped onto byte frequency data.
func WithDecibelRange(minDB, maxDB float64) Option {
	return func(c *config) {
		c.minDB = minDB
		c.maxDB = maxDB
	}
}

// Analyser is safe for one writer (the audio render path) and any number
// of readers.
type Analyser struct {
	mu sync.Mutex

	fftSize   int
	smoothing float64
	minDB     float64
	maxDB     float64

	ring  []float64
	write int

	win      []float64
	plan     *algofft.Plan[complex128]
	frame    []float64
	in, out  []complex128
	re, im   []float64
	mag      []float64
	smoothed []float64
}

// New returns an analyser with the browser defaults unless overridden.
func New(opts ...Option) (*Analyser, error) {
	cfg := config{
		fftSize:   DefaultFFTSize,
		smoothing: DefaultSmoothing,
		minDB:     DefaultMinDecibels,
		maxDB:     DefaultMaxDecibels,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.fftSize < minFFTSize || cfg.fftSize > maxFFTSize || cfg.fftSize&(cfg.fftSize-1) != 0 {
		return nil, fmt.Errorf("%w: %d", ErrFFTSize, cfg.fftSize)
	}

	if cfg.smoothing < 0 || cfg.smoothing > 1 || math.IsNaN(cfg.smoothing) {
		return nil, fmt.Errorf("analyser: smoothing must be in [0,1]: %f", cfg.smoothing)
	}

	if !(cfg.minDB < cfg.maxDB) {
		return nil, fmt.Errorf("analyser: min decibels %f must be below max %f", cfg.minDB, cfg.maxDB)
	}

	plan, err := algofft.NewPlan64(cfg.fftSize)
	if err != nil {
		return nil, fmt.Errorf("analyser: init fft plan: %w", err)
	}

	bins := cfg.fftSize / 2

	return &Analyser{
		fftSize:   cfg.fftSize,
		smoothing: cfg.smoothing,
		minDB:     cfg.minDB,
		maxDB:     cfg.maxDB,
		ring:      make([]float64, cfg.fftSize),
		win:       window.Generate(window.TypeBlackman, cfg.fftSize, window.WithPeriodic()),
		plan:      plan,
		frame:     make([]float64, cfg.fftSize),
		in:        make([]complex128, cfg.fftSize),
		out:       make([]complex128, cfg.fftSize),
		re:        make([]float64, bins),
		im:        make([]float64, bins),
		mag:       make([]float64, bins),
		smoothed:  make([]float64, bins),
	}, nil
}

// FFTSize returns the transform length.
func (a *Analyser) FFTSize() int { return a.fftSize }

// FrequencyBinCount is half the FFT size.
func (a *Analyser) FrequencyBinCount() int { return a.fftSize / 2 }

// Smoothing returns the smoothing time constant.
func (a *Analyser) Smoothing() float64 { return a.smoothing }

// Write appends mono samples to the analysis ring.
func (a *Analyser) Write(samples []float64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(samples) >= a.fftSize {
		copy(a.ring, samples[len(samples)-a.fftSize:])
		a.write = 0

		return
	}

	for _, s := range samples {
		a.ring[a.write] = s
		a.write++
		if a.write == a.fftSize {
			a.write = 0
		}
	}
}

// Reset clears the ring and the smoothing history.
func (a *Analyser) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	clear(a.ring)
	clear(a.smoothed)
	a.write = 0
}

// FloatFrequencyData writes the smoothed spectrum in dB into dst. Empty
// bins read as -Inf.
func (a *Analyser) FloatFrequencyData(dst []float64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.analyse()

	n := min(len(dst), len(a.smoothed))
	for k := 0; k < n; k++ {
		dst[k] = linearToDB(a.smoothed[k])
	}
}

// ByteFrequencyData writes the smoothed spectrum scaled to 0..255 into dst.
func (a *Analyser) ByteFrequencyData(dst []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.analyse()

	scale := 255 / (a.maxDB - a.minDB)
	n := min(len(dst), len(a.smoothed))

	for k := 0; k < n; k++ {
		db := linearToDB(a.smoothed[k])
		dst[k] = clampByte(math.Floor(scale * (db - a.minDB)))
	}
}

// FloatTimeDomainData writes the most recent samples, oldest first.
func (a *Analyser) FloatTimeDomainData(dst []float64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.snapshot()
	copy(dst, a.frame)
}

// ByteTimeDomainData writes the most recent samples mapped so that 0.0
// reads as 128.
func (a *Analyser) ByteTimeDomainData(dst []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.snapshot()

	n := min(len(dst), len(a.frame))
	for i := 0; i < n; i++ {
		dst[i] = clampByte(math.Floor(128 * (1 + a.frame[i])))
	}
}

// snapshot orders the ring into frame. Caller holds mu.
func (a *Analyser) snapshot() {
	n := copy(a.frame, a.ring[a.write:])
	copy(a.frame[n:], a.ring[:a.write])
}

// analyse runs one windowed transform and updates the smoothed
// magnitudes. Caller holds mu.
func (a *Analyser) analyse() {
	a.snapshot()
	_ = window.ApplyInPlace(a.frame, a.win)

	for i, v := range a.frame {
		a.in[i] = complex(v, 0)
	}

	if err := a.plan.Forward(a.out, a.in); err != nil {
		return
	}

	for k := range a.re {
		a.re[k] = real(a.out[k])
		a.im[k] = imag(a.out[k])
	}

	vecmath.Magnitude(a.mag, a.re, a.im)

	norm := 1 / float64(a.fftSize)
	tau := a.smoothing

	for k, m := range a.mag {
		v := tau*a.smoothed[k] + (1-tau)*m*norm
		if math.IsNaN(v) || math.IsInf(v, 0) {
			v = 0
		}

		a.smoothed[k] = v
	}
}

func clampByte(v float64) byte {
	switch {
	case math.IsNaN(v) || v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return byte(v)
	}
}
