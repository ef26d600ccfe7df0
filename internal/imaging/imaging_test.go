package imaging

import (
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func whiteCanvas(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.White)
		}
	}
	return img
}

// drawLine paints a thick dark line with the given slope, starting at y0.
func drawLine(img *image.NRGBA, y0 int, slope float64) {
	bounds := img.Bounds()
	for x := bounds.Min.X; x < bounds.Max.X; x++ {
		y := y0 + int(math.Round(float64(x)*slope))
		for dy := 0; dy < 3; dy++ {
			if y+dy >= bounds.Min.Y && y+dy < bounds.Max.Y {
				img.Set(x, y+dy, color.Black)
			}
		}
	}
}

func TestEstimateSkewLevelText(t *testing.T) {
	img := whiteCanvas(400, 200)
	for _, y := range []int{40, 80, 120, 160} {
		drawLine(img, y, 0)
	}

	angle := EstimateSkew(img)
	if math.Abs(angle) > 0.3 {
		t.Errorf("estimated skew for level lines = %v", angle)
	}
}

func TestEstimateSkewTiltedText(t *testing.T) {
	img := whiteCanvas(400, 200)
	slope := math.Tan(3 * math.Pi / 180)
	for _, y := range []int{30, 70, 110, 150} {
		drawLine(img, y, slope)
	}

	angle := EstimateSkew(img)
	if math.Abs(angle-3) > 0.75 {
		t.Errorf("estimated skew = %v, want about 3", angle)
	}
}

func TestEstimateSkewBlankPage(t *testing.T) {
	img := whiteCanvas(200, 200)
	if angle := EstimateSkew(img); angle != 0 {
		t.Errorf("blank page skew = %v", angle)
	}
}

func TestDeskewSkipsSmallAngles(t *testing.T) {
	img := whiteCanvas(400, 200)
	for _, y := range []int{40, 80, 120, 160} {
		drawLine(img, y, 0)
	}
	if out := Deskew(img); out != image.Image(img) {
		t.Error("expected level image to be returned unchanged")
	}
}

func TestRefineBoxTightensToInk(t *testing.T) {
	img := whiteCanvas(200, 100)
	for y := 30; y < 50; y++ {
		for x := 50; x < 70; x++ {
			img.Set(x, y, color.Black)
		}
	}

	refined := RefineBox(img, [4]float64{40, 20, 90, 70}, 0.2)
	wantApprox := [4]float64{50, 30, 70, 50}
	for i := range wantApprox {
		if math.Abs(refined[i]-wantApprox[i]) > 2 {
			t.Errorf("refined[%d] = %v, want about %v", i, refined[i], wantApprox[i])
		}
	}
}

func TestRefineBoxKeepsBoxWithoutInk(t *testing.T) {
	img := whiteCanvas(200, 100)
	box := [4]float64{40, 20, 90, 70}
	if refined := RefineBox(img, box, 0.2); refined != box {
		t.Errorf("expected original box, got %v", refined)
	}
}

func TestRefineBoxSkipsTinyBoxes(t *testing.T) {
	img := whiteCanvas(50, 50)
	box := [4]float64{10, 10, 11, 11}
	if refined := RefineBox(img, box, 0.2); refined != box {
		t.Errorf("expected tiny box unchanged, got %v", refined)
	}
}

func TestPrepareForOCRWritesTempCopy(t *testing.T) {
	dir := t.TempDir()
	original := filepath.Join(dir, "page.jpg")
	if err := SaveJPEG(whiteCanvas(100, 100), original, 90); err != nil {
		t.Fatalf("saving source image: %v", err)
	}

	processed, cleanup, err := PrepareForOCR(original, Options{Deskew: true, EnhanceContrast: true})
	if err != nil {
		t.Fatalf("preparing: %v", err)
	}
	if processed == original {
		t.Fatal("expected a temporary copy")
	}
	if _, err := os.Stat(processed); err != nil {
		t.Fatalf("processed file missing: %v", err)
	}
	if _, err := os.Stat(original); err != nil {
		t.Fatalf("original file touched: %v", err)
	}

	cleanup()
	if _, err := os.Stat(processed); !os.IsNotExist(err) {
		t.Error("cleanup did not remove the temporary copy")
	}
}

func TestPrepareForOCRMissingFileFallsBack(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.jpg")
	processed, cleanup, err := PrepareForOCR(missing, Options{})
	if err == nil {
		t.Error("expected error for missing file")
	}
	if processed != missing {
		t.Errorf("fallback path = %q", processed)
	}
	cleanup()
}
