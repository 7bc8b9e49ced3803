package visualizer

import (
	"math"
	"math/rand/v2"
	"slices"

	"github.com/fogleman/gg"
)

// Type names a drawing strategy. The values are the persisted setting
// strings.
type Type string

const (
	TypeNone        Type = ""
	TypeBars        Type = "bars"
	TypeRadial      Type = "radial"
	TypeSpectrum    Type = "spectrum"
	TypeWaveform    Type = "waveform"
	TypeParticle    Type = "particle"
	TypeCircleWave  Type = "circlewave"
	TypeHexagonGrid Type = "hexagongrid"
)

// Types lists every strategy in menu order.
var Types = []Type{TypeBars, TypeRadial, TypeSpectrum, TypeWaveform, TypeParticle, TypeCircleWave, TypeHexagonGrid}

// Valid reports whether t names a strategy.
func (t Type) Valid() bool { return slices.Contains(Types, t) }

// Frame is the input to one strategy draw.
type Frame struct {
	Data          []byte
	Width, Height float64
	Dark          bool
	Intensity     float64
	// Time is a monotonically increasing clock in seconds for animated
	// phases.
	Time float64
}

// Strategy paints one frame. Implementations may keep state between
// frames; the renderer owns them and calls them from one goroutine.
type Strategy interface {
	Draw(dc *gg.Context, f Frame)
}

// resetter drops per-run state such as live particles.
type resetter interface{ Reset() }

// cacheClearer drops theme-dependent caches.
type cacheClearer interface{ ClearCache() }

// timeDomain marks strategies that read the waveform instead of the
// spectrum.
type timeDomain interface{ TimeDomain() bool }

func newStrategies(rng *rand.Rand) map[Type]Strategy {
	return map[Type]Strategy{
		TypeBars:        bars{},
		TypeRadial:      radial{},
		TypeSpectrum:    newSpectrum(),
		TypeWaveform:    waveform{},
		TypeParticle:    newParticles(rng),
		TypeCircleWave:  newCircleWave(),
		TypeHexagonGrid: hexagonGrid{},
	}
}

type bars struct{}

func (bars) Draw(dc *gg.Context, f Frame) {
	n := len(f.Data)
	if n == 0 {
		return
	}

	barWidth := f.Width * 1.1 / float64(n)

	if f.Dark {
		dc.SetColor(rgba(100, 200, 255, 1))
	} else {
		dc.SetColor(rgba(50, 100, 150, 1))
	}

	for i, v := range f.Data {
		h := float64(v) / 255 * (f.Height / 2) * f.Intensity
		if h <= 0 {
			continue
		}
		dc.DrawRectangle(float64(i)*barWidth, f.Height-h, barWidth, h)
	}
	dc.Fill()
}

type radial struct{}

const (
	radialBars   = 360
	radialRadius = 20
)

func (radial) Draw(dc *gg.Context, f Frame) {
	n := len(f.Data)
	if n == 0 {
		return
	}

	cx, cy := f.Width/2, f.Height/2
	step := 2 * math.Pi / radialBars

	dc.SetLineWidth(1)
	for i := range radialBars {
		h := float64(f.Data[i%n]) * 0.4 * f.Intensity
		sin, cos := math.Sincos(step * float64(i))

		level := math.Min(h/30, 1)
		if f.Dark {
			dc.SetColor(hsl(25+level*20, 75+level*15, 45+level*25))
		} else {
			dc.SetColor(hsl(30+level*30, 60+level*10, 25+level*15))
		}

		dc.DrawLine(cx+cos*radialRadius, cy+sin*radialRadius, cx+cos*(radialRadius+h), cy+sin*(radialRadius+h))
		dc.Stroke()
	}
}

type waveform struct{}

func (waveform) TimeDomain() bool { return true }

func (waveform) Draw(dc *gg.Context, f Frame) {
	n := len(f.Data)
	if n == 0 {
		return
	}

	slice := f.Width / float64(n)
	for i, v := range f.Data {
		y := float64(v) / 128 * f.Intensity * f.Height / 2
		if i == 0 {
			dc.MoveTo(0, y)
		} else {
			dc.LineTo(float64(i)*slice, y)
		}
	}

	if f.Dark {
		dc.SetColor(rgba(200, 200, 255, 1))
	} else {
		dc.SetColor(rgba(0, 0, 100, 1))
	}
	dc.SetLineWidth(2)
	dc.Stroke()
}

// mean returns the average of data, 0 for an empty slice.
func mean(data []byte) float64 {
	if len(data) == 0 {
		return 0
	}

	sum := 0
	for _, v := range data {
		sum += int(v)
	}

	return float64(sum) / float64(len(data))
}

// band returns data[lo:hi] clipped to the slice bounds.
func band(data []byte, lo, hi int) []byte {
	hi = min(hi, len(data))
	if lo >= hi {
		return nil
	}

	return data[lo:hi]
}
