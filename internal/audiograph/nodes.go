package audiograph

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/cwbudde/algo-player/dsp/analyser"
	"github.com/cwbudde/algo-player/dsp/filter/biquad"
	"github.com/cwbudde/algo-player/dsp/filter/design"
	"github.com/gopxl/beep/v2"
)

type base struct {
	ctx *Context
}

func (b base) owner() *Context { return b.ctx }

// MediaElementSource pulls frames from a media element. It is bound to
// one element and one context for its whole life.
type MediaElementSource struct {
	base
	element beep.Streamer
}

// NewMediaElementSource wraps element as a source node of c.
func (c *Context) NewMediaElementSource(element beep.Streamer) *MediaElementSource {
	return &MediaElementSource{base: base{ctx: c}, element: element}
}

// Element returns the wrapped streamer.
func (s *MediaElementSource) Element() beep.Streamer { return s.element }

// Context returns the context the source was created on.
func (s *MediaElementSource) Context() *Context { return s.ctx }

func (s *MediaElementSource) Process(block [][2]float64) {
	filled := 0
	for filled < len(block) {
		n, ok := s.element.Stream(block[filled:])
		filled += n
		if !ok || n == 0 {
			break
		}
	}

	clear(block[filled:])
}

// AnalyserNode taps the mono downmix of its input into an analyser and
// passes the signal through unchanged.
type AnalyserNode struct {
	base
	*analyser.Analyser

	mono []float64
}

// NewAnalyser creates an analyser node with the given analyser options.
func (c *Context) NewAnalyser(opts ...analyser.Option) (*AnalyserNode, error) {
	a, err := analyser.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("audiograph: create analyser: %w", err)
	}

	return &AnalyserNode{base: base{ctx: c}, Analyser: a}, nil
}

func (a *AnalyserNode) Process(block [][2]float64) {
	if cap(a.mono) < len(block) {
		a.mono = make([]float64, len(block))
	}

	mono := a.mono[:len(block)]
	for i, f := range block {
		mono[i] = 0.5 * (f[0] + f[1])
	}

	a.Write(mono)
}

// GainNode scales its input.
type GainNode struct {
	base
	gain atomic.Uint64
}

// NewGain creates a gain node at unity.
func (c *Context) NewGain() *GainNode {
	g := &GainNode{base: base{ctx: c}}
	g.SetGain(1)

	return g
}

func (g *GainNode) Gain() float64 { return math.Float64frombits(g.gain.Load()) }

func (g *GainNode) SetGain(v float64) { g.gain.Store(math.Float64bits(v)) }

func (g *GainNode) Process(block [][2]float64) {
	v := g.Gain()
	if v == 1 {
		return
	}

	for i := range block {
		block[i][0] *= v
		block[i][1] *= v
	}
}

// FilterType selects the response of a BiquadFilterNode.
type FilterType int

const (
	LowShelf FilterType = iota
	Peaking
	HighShelf
	Lowpass
	Highpass
)

func (t FilterType) String() string {
	switch t {
	case LowShelf:
		return "lowshelf"
	case Peaking:
		return "peaking"
	case HighShelf:
		return "highshelf"
	case Lowpass:
		return "lowpass"
	case Highpass:
		return "highpass"
	default:
		return "unknown"
	}
}

// FilterParams are the audio parameters of a BiquadFilterNode.
type FilterParams struct {
	Type      FilterType
	Frequency float64
	Q         float64
	Gain      float64
}

const (
	minFilterFrequency = 10
	defaultFilterQ     = 1
)

// BiquadFilterNode is a stereo second-order filter whose parameters can be
// changed while it runs without resetting its state.
type BiquadFilterNode struct {
	base

	mu       sync.Mutex
	params   FilterParams
	coeffs   biquad.Coefficients
	sections [2]*biquad.Section
}

// NewBiquadFilter creates a filter node. A zero-gain shelf or peak is an
// exact passthrough.
func (c *Context) NewBiquadFilter(p FilterParams) *BiquadFilterNode {
	f := &BiquadFilterNode{
		base:     base{ctx: c},
		sections: [2]*biquad.Section{biquad.NewSection(biquad.Identity()), biquad.NewSection(biquad.Identity())},
	}
	f.Set(p)

	return f
}

// Set applies all parameters at once. Applying the same parameters twice
// leaves the filter unchanged.
func (f *BiquadFilterNode) Set(p FilterParams) {
	sr := float64(f.ctx.sampleRate)
	p.Frequency = clampFrequency(p.Frequency, sr)
	if p.Q <= 0 || math.IsNaN(p.Q) {
		p.Q = defaultFilterQ
	}

	c := coefficientsFor(p, sr)

	f.mu.Lock()
	defer f.mu.Unlock()

	f.params = p
	f.coeffs = c
	f.sections[0].SetCoefficients(c)
	f.sections[1].SetCoefficients(c)
}

// Params returns the effective (clamped) parameters.
func (f *BiquadFilterNode) Params() FilterParams {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.params
}

func (f *BiquadFilterNode) SetFrequency(hz float64) {
	p := f.Params()
	p.Frequency = hz
	f.Set(p)
}

func (f *BiquadFilterNode) SetGain(db float64) {
	p := f.Params()
	p.Gain = db
	f.Set(p)
}

func (f *BiquadFilterNode) SetQ(q float64) {
	p := f.Params()
	p.Q = q
	f.Set(p)
}

// Coefficients returns the active coefficients.
func (f *BiquadFilterNode) Coefficients() biquad.Coefficients {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.coeffs
}

// ResponseDB returns the filter's magnitude response at hz.
func (f *BiquadFilterNode) ResponseDB(hz float64) float64 {
	return f.Coefficients().MagnitudeDB(hz, float64(f.ctx.sampleRate))
}

func (f *BiquadFilterNode) Process(block [][2]float64) {
	f.mu.Lock()
	defer f.mu.Unlock()

	l, r := f.sections[0], f.sections[1]
	for i := range block {
		block[i][0] = l.ProcessSample(block[i][0])
		block[i][1] = r.ProcessSample(block[i][1])
	}
}

func clampFrequency(hz, sampleRate float64) float64 {
	maxHz := 0.49 * sampleRate
	switch {
	case math.IsNaN(hz) || hz < minFilterFrequency:
		return minFilterFrequency
	case hz > maxHz:
		return maxHz
	default:
		return hz
	}
}

func coefficientsFor(p FilterParams, sr float64) biquad.Coefficients {
	switch p.Type {
	case LowShelf:
		return design.LowShelf(p.Frequency, p.Gain, sr)
	case Peaking:
		return design.Peak(p.Frequency, p.Gain, p.Q, sr)
	case HighShelf:
		return design.HighShelf(p.Frequency, p.Gain, sr)
	case Lowpass:
		return design.Lowpass(p.Frequency, p.Q, sr)
	case Highpass:
		return design.Highpass(p.Frequency, p.Q, sr)
	default:
		return biquad.Identity()
	}
}
