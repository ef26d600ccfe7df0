package annotation

import (
	"image"
	"image/color"
	"math"
)

// plotDisc fills a small disc, giving lines and curves their thickness.
func plotDisc(img *image.NRGBA, cx, cy int, radius float64, c color.NRGBA) {
	r := int(math.Ceil(radius))
	bounds := img.Bounds()
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if float64(dx*dx+dy*dy) > radius*radius {
				continue
			}
			x, y := cx+dx, cy+dy
			if x >= bounds.Min.X && x < bounds.Max.X && y >= bounds.Min.Y && y < bounds.Max.Y {
				img.SetNRGBA(x, y, c)
			}
		}
	}
}

// drawLine draws a straight line segment with the given thickness.
func drawLine(img *image.NRGBA, x1, y1, x2, y2 int, thickness int, c color.NRGBA) {
	radius := float64(thickness) / 2
	dx := float64(x2 - x1)
	dy := float64(y2 - y1)
	length := math.Hypot(dx, dy)
	if length == 0 {
		plotDisc(img, x1, y1, radius, c)
		return
	}
	steps := int(length) + 1
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		plotDisc(img, x1+int(math.Round(dx*t)), y1+int(math.Round(dy*t)), radius, c)
	}
}

// drawEllipse draws an ellipse outline centered at (cx, cy) with the given
// radii and stroke thickness.
func drawEllipse(img *image.NRGBA, cx, cy int, rx, ry float64, thickness int, c color.NRGBA) {
	if rx <= 0 || ry <= 0 {
		return
	}
	radius := float64(thickness) / 2
	// Step fine enough that consecutive points are under a pixel apart on
	// the major axis.
	perimeter := 2 * math.Pi * math.Max(rx, ry)
	steps := int(perimeter) + 8
	for i := 0; i < steps; i++ {
		theta := 2 * math.Pi * float64(i) / float64(steps)
		x := cx + int(math.Round(rx*math.Cos(theta)))
		y := cy + int(math.Round(ry*math.Sin(theta)))
		plotDisc(img, x, y, radius, c)
	}
}

// drawCaret draws an insertion mark: two strokes meeting at the top.
func drawCaret(img *image.NRGBA, tipX, tipY, size, thickness int, c color.NRGBA) {
	half := size / 2
	drawLine(img, tipX, tipY, tipX-half, tipY+size, thickness, c)
	drawLine(img, tipX, tipY, tipX+half, tipY+size, thickness, c)
}
