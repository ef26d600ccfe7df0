package annotation

import (
	"image"
	"image/color"
	"math"
	"sort"

	dimg "github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"

	"redink/internal/diff"
	"redink/internal/queue"
)

// label is a piece of text pending placement above a mark.
type label struct {
	text   string
	x, y   int
	w, h   int
	size   int
	color  color.NRGBA
	pinned bool // user-positioned labels are never nudged
}

// Render draws the given marks onto a copy of the page image. The source
// image is not modified. Marks with error type "correct" and marks with
// degenerate boxes are skipped.
func Render(base image.Image, annotations []*queue.Annotation, style Style) (*image.NRGBA, error) {
	img := dimg.Clone(base)
	scale := style.scaleFor(base.Bounds().Dy())

	gap := int(math.Round(float64(style.TextGap) * scale))
	var labels []*label

	for _, ann := range annotations {
		if ann.ErrorType == diff.Correct {
			continue
		}
		w := ann.X2 - ann.X1
		h := ann.Y2 - ann.Y1
		if w <= 1 || h <= 1 {
			continue
		}

		markColor, text := markAppearance(ann)
		cx := int(math.Round((ann.X1 + ann.X2) / 2))
		cy := int(math.Round((ann.Y1 + ann.Y2) / 2))

		var labelAnchorY int
		switch shapeFor(ann) {
		case queue.ShapeEllipse:
			rx := w/2 + 6*scale
			ry := h/2 + 4*scale
			thickness := int(math.Round(float64(style.EllipseThickness) * scale))
			drawEllipse(img, cx, cy, rx, ry, thickness, toNRGBA(markColor))
			labelAnchorY = int(math.Round(ann.Y1)) - gap
		case queue.ShapeUnderline:
			thickness := int(math.Round(float64(style.StrikethroughThickness) * scale))
			drawLine(img, int(math.Round(ann.X1)), cy, int(math.Round(ann.X2)), cy, thickness, toNRGBA(markColor))
			continue
		case queue.ShapeCaret:
			size := int(math.Round(float64(style.CaretSize) * scale))
			thickness := int(math.Round(float64(style.StrikethroughThickness) * scale))
			tipY := int(math.Round(ann.Y2)) - size
			drawCaret(img, cx, tipY, size, thickness, toNRGBA(markColor))
			labelAnchorY = tipY - int(math.Round(4*scale))
		default:
			continue
		}

		if text == "" {
			continue
		}
		size := labelFontSize(h, style.FontHeightRatio)
		if ann.LabelFontSize != nil && *ann.LabelFontSize > 0 {
			size = int(math.Round(*ann.LabelFontSize))
		}
		lw, lh, err := measureLabel(text, size)
		if err != nil {
			return nil, err
		}
		lbl := &label{
			text:  text,
			x:     cx - lw/2,
			y:     labelAnchorY - lh,
			w:     lw,
			h:     lh,
			size:  size,
			color: labelColor(markColor),
		}
		if ann.LabelX != nil {
			lbl.x = int(math.Round(*ann.LabelX))
			lbl.pinned = true
		}
		if ann.LabelY != nil {
			lbl.y = int(math.Round(*ann.LabelY))
			lbl.pinned = true
		}
		labels = append(labels, lbl)
	}

	resolveLabelOverlaps(labels)

	bounds := img.Bounds()
	for _, lbl := range labels {
		if lbl.y < bounds.Min.Y {
			lbl.y = bounds.Min.Y
		}
		if lbl.x < bounds.Min.X {
			lbl.x = bounds.Min.X
		}
		if err := drawLabel(img, lbl.text, lbl.x, lbl.y, lbl.size, lbl.color); err != nil {
			return nil, err
		}
	}
	return img, nil
}

func markAppearance(ann *queue.Annotation) (colorful.Color, string) {
	switch ann.ErrorType {
	case diff.Wrong:
		return colorWrong, ann.ReferenceWord
	case diff.Missing:
		return colorMissing, ann.ReferenceWord
	default:
		return colorExtra, ""
	}
}

func shapeFor(ann *queue.Annotation) string {
	if ann.Shape != "" {
		return ann.Shape
	}
	switch ann.ErrorType {
	case diff.Wrong:
		return queue.ShapeEllipse
	case diff.Extra:
		return queue.ShapeUnderline
	case diff.Missing:
		return queue.ShapeCaret
	}
	return ""
}

// resolveLabelOverlaps nudges overlapping labels upward until they clear
// each other or the iteration budget runs out. User-pinned labels stay put.
func resolveLabelOverlaps(labels []*label) {
	const (
		maxIterations = 20
		spacing       = 4
	)
	for iter := 0; iter < maxIterations; iter++ {
		sort.SliceStable(labels, func(i, j int) bool {
			if labels[i].y != labels[j].y {
				return labels[i].y < labels[j].y
			}
			return labels[i].x < labels[j].x
		})
		moved := false
		for i := 0; i < len(labels); i++ {
			for j := i + 1; j < len(labels); j++ {
				if labels[j].pinned || !labelsOverlap(labels[i], labels[j]) {
					continue
				}
				labels[j].y = labels[i].y - labels[j].h - spacing
				moved = true
			}
		}
		if !moved {
			return
		}
	}
}

func labelsOverlap(a, b *label) bool {
	return a.x < b.x+b.w && b.x < a.x+a.w && a.y < b.y+b.h && b.y < a.y+a.h
}
