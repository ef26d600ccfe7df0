package testsupport

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"redink/internal/imaging"
)

// WritePageImage writes a plain white page image of the given size and
// returns its path.
func WritePageImage(t testing.TB, path string, width, height int) string {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	white := color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, white)
		}
	}
	if err := imaging.SaveJPEG(img, path, 90); err != nil {
		t.Fatalf("write page image %s: %v", path, err)
	}
	return path
}

// WriteFile writes arbitrary bytes, creating parent directories.
func WriteFile(t testing.TB, path string, data []byte) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
