package visualizer

import (
	"math"
	"math/rand/v2"

	"github.com/fogleman/gg"
)

const maxParticles = 50

type shape int

const (
	shapeCircle shape = iota
	shapeSquare
	shapeTriangle
	shapeStar
)

var (
	darkPalette  = []string{"#ff6b6b", "#4ecdc4", "#45b7d1", "#96ceb4", "#feca57", "#ff9ff3", "#54a0ff", "#5f27cd"}
	lightPalette = []string{"#e74c3c", "#27ae60", "#3498db", "#f39c12", "#9b59b6", "#e67e22", "#1abc9c", "#34495e"}
)

type particle struct {
	x, y, vx, vy   float64
	size           float64
	life           float64
	rotation, spin float64
	shape          shape
	color          string
}

// particles emits short-lived shapes from the centre at a rate that
// follows the average level.
type particles struct {
	rng  *rand.Rand
	live []particle
}

func newParticles(rng *rand.Rand) *particles {
	return &particles{rng: rng, live: make([]particle, 0, maxParticles)}
}

func (p *particles) Reset() { p.live = p.live[:0] }

func (p *particles) Draw(dc *gg.Context, f Frame) {
	level := mean(f.Data) * f.Intensity
	if len(p.live) < maxParticles && p.rng.Float64() < level/255 {
		p.spawn(f)
	}

	kept := p.live[:0]
	for _, q := range p.live {
		if q.life <= 0 {
			continue
		}

		q.x += q.vx * 2
		q.y += q.vy
		q.life -= 0.02
		q.rotation += q.spin

		q.draw(dc)
		kept = append(kept, q)
	}
	p.live = kept
}

func (p *particles) spawn(f Frame) {
	palette := lightPalette
	if f.Dark {
		palette = darkPalette
	}

	r := p.rng
	p.live = append(p.live, particle{
		color:    palette[r.IntN(len(palette))],
		life:     1,
		rotation: r.Float64() * 2 * math.Pi,
		spin:     (r.Float64() - 0.5) * 0.2,
		shape:    shape(r.IntN(4)),
		size:     r.Float64()*4 + 2,
		vx:       (r.Float64() - 0.5) * 4,
		vy:       (r.Float64() - 0.5) * 4,
		x:        f.Width / 2,
		y:        f.Height / 2,
	})
}

func (q particle) draw(dc *gg.Context) {
	dc.Push()
	defer dc.Pop()

	dc.Translate(q.x, q.y)
	dc.Rotate(q.rotation)
	dc.SetColor(hex(q.color, q.life))

	s := q.size
	switch q.shape {
	case shapeCircle:
		dc.DrawCircle(0, 0, s)
	case shapeSquare:
		dc.DrawRectangle(-s, -s, s*2, s*2)
	case shapeTriangle:
		dc.MoveTo(0, -s)
		dc.LineTo(-s, s)
		dc.LineTo(s, s)
		dc.ClosePath()
	case shapeStar:
		for i := range 5 {
			a := float64(i)*2*math.Pi/5 - math.Pi/2
			if i == 0 {
				dc.MoveTo(math.Cos(a)*s, math.Sin(a)*s)
			} else {
				dc.LineTo(math.Cos(a)*s, math.Sin(a)*s)
			}
			inner := a + math.Pi/5
			dc.LineTo(math.Cos(inner)*s*0.5, math.Sin(inner)*s*0.5)
		}
		dc.ClosePath()
	}
	dc.Fill()
}
