package annotation

import (
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
)

// Style controls mark geometry. Values are in pixels at the reference
// image height and scale linearly for larger images.
type Style struct {
	EllipseThickness       int
	StrikethroughThickness int
	FontHeightRatio        float64
	TextGap                int
	CaretSize              int
	// ReferenceHeight is the image height the pixel values above are
	// calibrated for.
	ReferenceHeight int
}

// DefaultStyle matches the marks a teacher would make with a medium pen.
func DefaultStyle() Style {
	return Style{
		EllipseThickness:       3,
		StrikethroughThickness: 3,
		FontHeightRatio:        0.8,
		TextGap:                6,
		CaretSize:              10,
		ReferenceHeight:        1000,
	}
}

// scaleFor returns the geometry multiplier for an image of the given height.
func (s Style) scaleFor(imageHeight int) float64 {
	if s.ReferenceHeight <= 0 {
		return 1
	}
	scale := float64(imageHeight) / float64(s.ReferenceHeight)
	if scale < 1 {
		return 1
	}
	return scale
}

var (
	colorWrong   = mustHex("#dc0000")
	colorExtra   = mustHex("#ff8c00")
	colorMissing = mustHex("#0078dc")
)

func mustHex(hex string) colorful.Color {
	c, err := colorful.Hex(hex)
	if err != nil {
		panic(err)
	}
	return c
}

func toNRGBA(c colorful.Color) color.NRGBA {
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}
}

// labelColor darkens the mark color slightly so small text stays legible
// against light paper.
func labelColor(c colorful.Color) color.NRGBA {
	darkened := c.BlendLab(mustHex("#000000"), 0.15)
	return toNRGBA(darkened)
}
