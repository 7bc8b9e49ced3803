package visualizer

import (
	"math"

	"github.com/fogleman/gg"
)

const (
	hexSize      = 18
	hexThreshold = 0.05
)

// hexagonGrid lights a honeycomb whose cells respond to low bins near the
// centre, mid bins in the middle ring and high bins at the edges.
type hexagonGrid struct{}

type hexCell struct {
	x, y     float64
	level    float64
	r, g, b  float64
	onCanvas bool
}

func (hexagonGrid) Draw(dc *gg.Context, f Frame) {
	n := len(f.Data)
	if n == 0 {
		return
	}

	low := mean(band(f.Data, 0, n*3/10)) / 255 * f.Intensity
	mid := mean(band(f.Data, n*3/10, n*7/10)) / 255 * f.Intensity
	high := mean(band(f.Data, n*7/10, n)) / 255 * f.Intensity

	hexW := hexSize * math.Sqrt(3)
	hexH := float64(hexSize * 2)
	cols := int(math.Ceil(f.Width/(hexW*0.75))) + 3
	rows := int(math.Ceil(f.Height/(hexH*0.5))) + 3
	maxDist := math.Hypot(f.Width/2, f.Height/2)

	grid := make([][]hexCell, rows)
	for row := range grid {
		grid[row] = make([]hexCell, cols)
		for col := range grid[row] {
			x := float64(col)*hexW*0.75 + float64(row%2)*hexW*0.375
			y := float64(row) * hexH * 0.5
			d := math.Hypot(x-f.Width/2, y-f.Height/2) / maxDist

			c := hexCell{
				x:        x,
				y:        y,
				level:    hexLevel(d, low, mid, high),
				onCanvas: x >= -hexSize && x <= f.Width+hexSize && y >= -hexSize && y <= f.Height+hexSize,
			}
			c.r, c.g, c.b = hexColor(d)
			if !f.Dark {
				c.r, c.g, c.b = math.Round(c.r*0.8), math.Round(c.g*0.8), math.Round(c.b*0.8)
			}
			grid[row][col] = c
		}
	}

	for _, cells := range grid {
		for _, c := range cells {
			if c.onCanvas && c.level > hexThreshold {
				drawHexagon(dc, c, f.Dark)
			}
		}
	}

	dc.SetLineWidth(1)
	for row, cells := range grid {
		odd := row % 2
		for col, c := range cells {
			if !c.onCanvas || c.level <= hexThreshold {
				continue
			}

			neighbours := [...]struct {
				row, col int
				dx, dy   float64
			}{
				{row, col + 1, hexW * 0.75, 0},
				{row + 1, col + odd, hexW * 0.375, hexH * 0.5},
				{row + 1, col - 1 + odd, -hexW * 0.375, hexH * 0.5},
			}
			for _, nb := range neighbours {
				if nb.row >= rows || nb.col < 0 || nb.col >= cols {
					continue
				}
				other := grid[nb.row][nb.col].level
				if other <= hexThreshold {
					continue
				}

				dc.DrawLine(c.x, c.y, c.x+nb.dx, c.y+nb.dy)
				dc.SetColor(ink(f.Dark, math.Min((c.level+other)*0.4, 0.6)))
				dc.Stroke()
			}
		}
	}
}

// hexLevel blends the three band levels by normalised distance from the
// centre.
func hexLevel(d, low, mid, high float64) float64 {
	switch {
	case d < 0.3:
		return low*(1-d/0.3) + mid*(d/0.3)*0.3
	case d < 0.7:
		midW := 1 - (d-0.3)/0.4
		lowW := math.Max(0, 1-(d-0.2)/0.2) * 0.3
		highW := math.Max(0, (d-0.5)/0.2) * 0.3

		return mid*midW + low*lowW + high*highW
	default:
		return high*(1-(d-0.7)/0.3) + mid*((d-0.7)/0.3)*0.3
	}
}

// hexColor shades from red at the centre through green to blue at the
// corners.
func hexColor(d float64) (r, g, b float64) {
	rw := math.Max(0, 1-d*2)
	gw := math.Max(0, 1-math.Abs(d-0.5)*2)
	bw := math.Max(0, (d-0.5)*2)

	total := rw + gw + bw
	if total == 0 {
		return 100, 100, 100
	}
	rw, gw, bw = rw/total, gw/total, bw/total

	return math.Round(255*rw + 100*gw + 100*bw),
		math.Round(100*rw + 255*gw + 100*bw),
		math.Round(100*rw + 100*gw + 255*bw)
}

func drawHexagon(dc *gg.Context, c hexCell, dark bool) {
	size := hexSize * (0.3 + c.level*0.7)
	for i := range 6 {
		a := float64(i) * math.Pi / 3
		x, y := c.x+math.Cos(a)*size, c.y+math.Sin(a)*size
		if i == 0 {
			dc.MoveTo(x, y)
		} else {
			dc.LineTo(x, y)
		}
	}
	dc.ClosePath()

	alpha := 0.2 + c.level*0.8
	g := gg.NewRadialGradient(c.x, c.y, 0, c.x, c.y, size)
	g.AddColorStop(0, rgba(c.r, c.g, c.b, alpha))
	g.AddColorStop(0.5, rgba(c.r, c.g, c.b, alpha*0.7))
	g.AddColorStop(1, rgba(c.r, c.g, c.b, alpha*0.3))

	dc.SetFillStyle(g)
	dc.FillPreserve()
	dc.SetColor(ink(dark, 0.1+c.level*0.2))
	dc.SetLineWidth(1)
	dc.Stroke()
}
