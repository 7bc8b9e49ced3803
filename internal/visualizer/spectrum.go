package visualizer

import (
	"math"

	"github.com/fogleman/gg"
	lru "github.com/hashicorp/golang-lru/v2"
)

const spectrumCacheSize = 100

type spectrumKey struct {
	hue       int
	dark      bool
	width     float64
	barHeight float64
}

// spectrum draws horizontal bars mirrored around the vertical centre line,
// one hue per bin. Gradients are cached per hue and theme.
type spectrum struct {
	cache *lru.Cache[spectrumKey, gg.Gradient]
}

func newSpectrum() *spectrum {
	cache, _ := lru.New[spectrumKey, gg.Gradient](spectrumCacheSize)

	return &spectrum{cache: cache}
}

func (s *spectrum) ClearCache() { s.cache.Purge() }

func (s *spectrum) Draw(dc *gg.Context, f Frame) {
	n := len(f.Data)
	if n == 0 {
		return
	}

	barHeight := f.Height / float64(n)
	for i, v := range f.Data {
		y := float64(i) * barHeight
		w := float64(v) / 255 * (f.Width / 2) * f.Intensity
		if w <= 0 {
			continue
		}

		hue := int(math.Round(float64(i) / float64(n) * 360))
		dc.DrawRectangle(f.Width/2-w, y, w*2, barHeight-1)
		dc.SetFillStyle(s.gradient(spectrumKey{hue: hue, dark: f.Dark, width: f.Width, barHeight: barHeight}, y))
		dc.Fill()
	}
}

// gradient looks entries up without refreshing them, so the oldest
// insertion is evicted first.
func (s *spectrum) gradient(k spectrumKey, y float64) gg.Gradient {
	if g, ok := s.cache.Peek(k); ok {
		return g
	}

	h := float64(k.hue)
	g := gg.NewLinearGradient(0, y, k.width, y+k.barHeight)
	if k.dark {
		g.AddColorStop(0, hsla(h, 80, 70, 0.9))
		g.AddColorStop(0.5, hsla(h, 80, 50, 0.7))
		g.AddColorStop(1, hsla(h, 80, 30, 0.5))
	} else {
		g.AddColorStop(0, hsla(h, 80, 50, 0.9))
		g.AddColorStop(0.5, hsla(h, 80, 70, 0.7))
		g.AddColorStop(1, hsla(h, 80, 90, 0.5))
	}

	s.cache.Add(k, g)

	return g
}
