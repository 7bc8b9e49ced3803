package visualizer

import (
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// hsla converts CSS-style hue (degrees) and percentages to a colour.
func hsla(h, s, l, a float64) color.Color {
	r, g, b := colorful.Hsl(math.Mod(h, 360), s/100, l/100).Clamped().RGB255()

	return color.NRGBA{R: r, G: g, B: b, A: alpha8(a)}
}

func hsl(h, s, l float64) color.Color { return hsla(h, s, l, 1) }

func rgba(r, g, b, a float64) color.Color {
	return color.NRGBA{R: channel(r), G: channel(g), B: channel(b), A: alpha8(a)}
}

// hex parses #rrggbb; invalid input yields opaque grey.
func hex(s string, a float64) color.Color {
	c, err := colorful.Hex(s)
	if err != nil {
		return rgba(128, 128, 128, a)
	}

	r, g, b := c.RGB255()

	return color.NRGBA{R: r, G: g, B: b, A: alpha8(a)}
}

func channel(v float64) uint8 {
	return uint8(math.Round(math.Max(0, math.Min(v, 255))))
}

func alpha8(a float64) uint8 {
	return uint8(math.Round(math.Max(0, math.Min(a, 1)) * 255))
}

var transparent = color.NRGBA{}

// ink is white on dark backgrounds and black on light ones.
func ink(dark bool, a float64) color.Color {
	if dark {
		return rgba(255, 255, 255, a)
	}

	return rgba(0, 0, 0, a)
}
