package visualizer

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/fogleman/gg"
)

// Canvas is the drawing surface. Strategies draw on an off-screen layer;
// the layer is composited onto the output with the current fade alpha,
// since gg has no global alpha of its own.
type Canvas struct {
	width, height int
	layer         *gg.Context
	out           *image.RGBA
	present       func(image.Image)
}

// NewCanvas returns a w×h canvas. present, if non-nil, receives the output
// image after every drawn frame; it must not call back into the renderer.
func NewCanvas(w, h int, present func(image.Image)) *Canvas {
	return &Canvas{
		width:   w,
		height:  h,
		layer:   gg.NewContext(w, h),
		out:     image.NewRGBA(image.Rect(0, 0, w, h)),
		present: present,
	}
}

// Size returns the canvas dimensions.
func (c *Canvas) Size() (w, h int) { return c.width, c.height }

// Image is the composited output. It is reused between frames.
func (c *Canvas) Image() *image.RGBA { return c.out }

// Snapshot copies the output.
func (c *Canvas) Snapshot() *image.RGBA {
	cp := image.NewRGBA(c.out.Bounds())
	copy(cp.Pix, c.out.Pix)

	return cp
}

func (c *Canvas) begin() *gg.Context {
	c.layer.Identity()
	c.layer.ResetClip()
	c.layer.SetColor(transparent)
	c.layer.Clear()
	c.layer.SetLineWidth(1)

	return c.layer
}

func (c *Canvas) clear() {
	draw.Draw(c.out, c.out.Bounds(), image.Transparent, image.Point{}, draw.Src)
}

func (c *Canvas) compose(alpha float64) {
	c.clear()

	mask := image.NewUniform(color.Alpha{A: alpha8(alpha)})
	draw.DrawMask(c.out, c.out.Bounds(), c.layer.Image(), image.Point{}, mask, image.Point{}, draw.Over)

	if c.present != nil {
		c.present(c.out)
	}
}
