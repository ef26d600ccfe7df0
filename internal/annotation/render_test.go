package annotation

import (
	"image"
	"image/color"
	"image/draw"
	"testing"

	"redink/internal/diff"
	"redink/internal/queue"
)

func testCanvas(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	return img
}

func countColored(img *image.NRGBA, rect image.Rectangle, c color.NRGBA) int {
	count := 0
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			if img.NRGBAAt(x, y) == c {
				count++
			}
		}
	}
	return count
}

func floatPtr(v float64) *float64 { return &v }

func TestRenderWrongDrawsEllipse(t *testing.T) {
	base := testCanvas(400, 200)
	ann := &queue.Annotation{
		ErrorType:     diff.Wrong,
		Shape:         queue.ShapeEllipse,
		X1:            100, Y1: 80, X2: 180, Y2: 120,
		ReferenceWord: "cat",
	}

	out, err := Render(base, []*queue.Annotation{ann}, DefaultStyle())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	red := toNRGBA(colorWrong)
	if countColored(out, out.Bounds(), red) == 0 {
		t.Fatal("expected ellipse pixels on the canvas")
	}
	// The ellipse surrounds the box, so the box interior center stays white.
	if out.NRGBAAt(140, 100) != (color.NRGBA{255, 255, 255, 255}) {
		t.Error("box center should not be painted")
	}
	// Some mark pixels sit left of the box edge (the ellipse overshoots it).
	left := image.Rect(80, 80, 100, 120)
	if countColored(out, left, red) == 0 {
		t.Error("expected ellipse pixels left of the word box")
	}
	// Label lands above the box.
	above := image.Rect(0, 0, 400, 74)
	if countColored(out, above, labelColor(colorWrong)) == 0 {
		t.Error("expected label pixels above the box")
	}
}

func TestRenderExtraDrawsStrikethrough(t *testing.T) {
	base := testCanvas(400, 200)
	ann := &queue.Annotation{
		ErrorType: diff.Extra,
		Shape:     queue.ShapeUnderline,
		X1:        50, Y1: 60, X2: 150, Y2: 100,
		OcrWord:   "blob",
	}

	out, err := Render(base, []*queue.Annotation{ann}, DefaultStyle())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	orange := toNRGBA(colorExtra)
	// Stroke runs across the vertical midline of the box.
	mid := image.Rect(50, 78, 150, 83)
	if countColored(out, mid, orange) == 0 {
		t.Fatal("expected strikethrough across the box midline")
	}
	// Extra words get no label.
	if countColored(out, image.Rect(0, 0, 400, 55), labelColor(colorExtra)) != 0 {
		t.Error("extra words should not be labelled")
	}
}

func TestRenderMissingDrawsCaretAndLabel(t *testing.T) {
	base := testCanvas(400, 200)
	ann := &queue.Annotation{
		ErrorType:     diff.Missing,
		Shape:         queue.ShapeCaret,
		X1:            180, Y1: 100, X2: 220, Y2: 140,
		ReferenceWord: "dog",
	}

	out, err := Render(base, []*queue.Annotation{ann}, DefaultStyle())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	blue := toNRGBA(colorMissing)
	// Caret sits in the lower half of the box, tip near the baseline.
	caretZone := image.Rect(180, 120, 220, 145)
	if countColored(out, caretZone, blue) == 0 {
		t.Fatal("expected caret pixels near the baseline")
	}
	if countColored(out, image.Rect(0, 0, 400, 128), labelColor(colorMissing)) == 0 {
		t.Error("expected label pixels above the caret tip")
	}
}

func TestRenderSkipsCorrectAndDegenerate(t *testing.T) {
	base := testCanvas(200, 100)
	anns := []*queue.Annotation{
		{ErrorType: diff.Correct, Shape: queue.ShapeEllipse, X1: 10, Y1: 10, X2: 60, Y2: 40},
		{ErrorType: diff.Wrong, Shape: queue.ShapeEllipse, X1: 80, Y1: 20, X2: 81, Y2: 40, ReferenceWord: "thin"},
		{ErrorType: diff.Wrong, Shape: queue.ShapeEllipse, X1: 100, Y1: 30, X2: 140, Y2: 31, ReferenceWord: "flat"},
	}

	out, err := Render(base, anns, DefaultStyle())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got := countColored(out, out.Bounds(), toNRGBA(colorWrong)); got != 0 {
		t.Errorf("expected a clean canvas, found %d mark pixels", got)
	}
}

func TestRenderHonorsLabelOverrides(t *testing.T) {
	base := testCanvas(400, 300)
	ann := &queue.Annotation{
		ErrorType:     diff.Wrong,
		Shape:         queue.ShapeEllipse,
		X1:            100, Y1: 150, X2: 180, Y2: 190,
		ReferenceWord: "moved",
		LabelX:        floatPtr(250),
		LabelY:        floatPtr(20),
		LabelFontSize: floatPtr(24),
	}

	out, err := Render(base, []*queue.Annotation{ann}, DefaultStyle())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	lc := labelColor(colorWrong)
	placed := image.Rect(250, 20, 400, 60)
	if countColored(out, placed, lc) == 0 {
		t.Fatal("expected label pixels at the overridden position")
	}
	defaultSpot := image.Rect(0, 100, 230, 150)
	if countColored(out, defaultSpot, lc) != 0 {
		t.Error("label should not render at the default position when overridden")
	}
}

func TestRenderDoesNotModifySource(t *testing.T) {
	base := testCanvas(200, 100)
	ann := &queue.Annotation{
		ErrorType: diff.Extra,
		Shape:     queue.ShapeUnderline,
		X1:        20, Y1: 30, X2: 120, Y2: 70,
	}

	if _, err := Render(base, []*queue.Annotation{ann}, DefaultStyle()); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got := countColored(base, base.Bounds(), toNRGBA(colorExtra)); got != 0 {
		t.Errorf("source image was modified: %d mark pixels", got)
	}
}

func TestRenderShapeDefaultsFromErrorType(t *testing.T) {
	base := testCanvas(300, 150)
	ann := &queue.Annotation{
		ErrorType: diff.Extra,
		X1:        40, Y1: 40, X2: 140, Y2: 90,
	}

	out, err := Render(base, []*queue.Annotation{ann}, DefaultStyle())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	mid := image.Rect(40, 62, 140, 68)
	if countColored(out, mid, toNRGBA(colorExtra)) == 0 {
		t.Error("expected a strikethrough when shape is unset")
	}
}

func TestResolveLabelOverlaps(t *testing.T) {
	a := &label{text: "one", x: 100, y: 50, w: 60, h: 20}
	b := &label{text: "two", x: 110, y: 55, w: 60, h: 20}
	resolveLabelOverlaps([]*label{a, b})
	if labelsOverlap(a, b) {
		t.Errorf("labels still overlap: a=(%d,%d) b=(%d,%d)", a.x, a.y, b.x, b.y)
	}
}

func TestResolveLabelOverlapsKeepsPinned(t *testing.T) {
	a := &label{text: "auto", x: 100, y: 50, w: 60, h: 20}
	b := &label{text: "pinned", x: 110, y: 55, w: 60, h: 20, pinned: true}
	resolveLabelOverlaps([]*label{a, b})
	if b.x != 110 || b.y != 55 {
		t.Errorf("pinned label moved to (%d,%d)", b.x, b.y)
	}
}

func TestLabelFontSizeClamp(t *testing.T) {
	if got := labelFontSize(5, 0.8); got != 10 {
		t.Errorf("tiny box: got %d, want 10", got)
	}
	if got := labelFontSize(500, 0.8); got != 48 {
		t.Errorf("huge box: got %d, want 48", got)
	}
	if got := labelFontSize(40, 0.8); got != 32 {
		t.Errorf("mid box: got %d, want 32", got)
	}
}
