package visualizer

import (
	"math"

	"github.com/fogleman/gg"
	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	circleWaveCacheSize = 50
	circleBaseRadius    = 40
)

type circleKey struct {
	radius int
	dark   bool
	cx, cy float64
}

// circleWave is a pulsing disc with a wavy ring, orbiting dots and rays.
// Low bins drive the disc, mid bins the ring, high bins the wave.
type circleWave struct {
	cache *lru.Cache[circleKey, gg.Gradient]
}

func newCircleWave() *circleWave {
	cache, _ := lru.New[circleKey, gg.Gradient](circleWaveCacheSize)

	return &circleWave{cache: cache}
}

func (c *circleWave) ClearCache() { c.cache.Purge() }

func (c *circleWave) Draw(dc *gg.Context, f Frame) {
	low := mean(band(f.Data, 0, 10)) * f.Intensity
	mid := mean(band(f.Data, 10, 30)) * f.Intensity
	high := mean(band(f.Data, 30, 50)) * f.Intensity

	cx, cy := f.Width/2, f.Height/2
	t := f.Time

	mainRadius := circleBaseRadius + low/8 + math.Sin(t*2)*5
	dc.DrawCircle(cx, cy, mainRadius)
	dc.SetFillStyle(c.gradient(circleKey{radius: int(math.Round(mainRadius)), dark: f.Dark, cx: cx, cy: cy}, mainRadius))
	dc.Fill()

	waveRadius := mainRadius + 20 + mid/6
	dc.DrawCircle(cx, cy, waveRadius)
	dc.SetColor(ink(f.Dark, 0.3))
	dc.SetLineWidth(2)
	dc.Stroke()

	const waves = 8
	for i := 0; i <= waves; i++ {
		a := float64(i) / waves * 2 * math.Pi
		r := waveRadius + 15 + math.Sin(a*3+t*3)*(high/10)
		x, y := cx+math.Cos(a)*r, cy+math.Sin(a)*r
		if i == 0 {
			dc.MoveTo(x, y)
		} else {
			dc.LineTo(x, y)
		}
	}
	dc.ClosePath()
	if f.Dark {
		dc.SetColor(rgba(255, 100, 255, 0.6))
	} else {
		dc.SetColor(rgba(150, 50, 150, 0.6))
	}
	dc.SetLineWidth(1.5)
	dc.Stroke()

	const dots = 12
	for i := range dots {
		a := float64(i)/dots*2*math.Pi + t
		r := waveRadius + 25 + math.Sin(a*2+t*4)*8
		size := 2 + math.Sin(a*3+t*2)*2
		if size <= 0 {
			continue
		}

		dc.DrawCircle(cx+math.Cos(a)*r, cy+math.Sin(a)*r, size)
		alpha := 0.3 + math.Sin(t)*0.3
		if f.Dark {
			dc.SetColor(rgba(255, 100+math.Sin(a)*155, 255, alpha))
		} else {
			dc.SetColor(rgba(100, 50+math.Sin(a)*100, 150, alpha))
		}
		dc.Fill()
	}

	dc.SetLineWidth(0.5)
	for ring := 1; ring <= 3; ring++ {
		fr := float64(ring)
		dc.DrawCircle(cx, cy, circleBaseRadius*0.3*fr+math.Sin(t*3+fr)*3)
		dc.SetColor(ink(f.Dark, 0.1+math.Sin(t+fr)*0.1))
		dc.Stroke()
	}

	dc.DrawCircle(cx, cy, 3+math.Sin(t*4)*2+low/20)
	dc.SetColor(ink(f.Dark, 0.9))
	dc.Fill()

	const rays = 6
	dc.SetLineWidth(1)
	for i := range rays {
		a := float64(i)/rays*2*math.Pi + t*0.5
		length := 15 + math.Sin(a*2+t*2)*5 + mid/15
		dc.DrawLine(cx, cy, cx+math.Cos(a)*length, cy+math.Sin(a)*length)
		alpha := 0.3 + math.Sin(t+float64(i))*0.2
		if f.Dark {
			dc.SetColor(rgba(255, 200, 255, alpha))
		} else {
			dc.SetColor(rgba(100, 50, 100, alpha))
		}
		dc.Stroke()
	}
}

func (c *circleWave) gradient(k circleKey, radius float64) gg.Gradient {
	if g, ok := c.cache.Peek(k); ok {
		return g
	}

	g := gg.NewRadialGradient(k.cx, k.cy, 0, k.cx, k.cy, radius)
	if k.dark {
		g.AddColorStop(0, rgba(255, 255, 255, 0.8))
		g.AddColorStop(0.7, rgba(100, 150, 255, 0.4))
	} else {
		g.AddColorStop(0, rgba(0, 0, 0, 0.8))
		g.AddColorStop(0.7, rgba(50, 100, 150, 0.4))
	}
	g.AddColorStop(1, transparent)

	c.cache.Add(k, g)

	return g
}
