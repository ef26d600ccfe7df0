package imaging

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/anthonynsimon/bild/adjust"
	dimg "github.com/disintegration/imaging"
)

const (
	// maxSkewDegrees bounds the deskew search. Photos tilted further than
	// this are treated as intentionally rotated.
	maxSkewDegrees = 10.0
	// skewStepDegrees is the search resolution.
	skewStepDegrees = 0.25
	// minCorrectionDegrees below which rotation is skipped.
	minCorrectionDegrees = 0.5
	// estimateWidth is the downscale width used for skew estimation.
	estimateWidth = 800
	// inkLuma is the grayscale level below which a pixel counts as ink.
	inkLuma = 128
	// contrastBoost applied before OCR.
	contrastBoost = 0.2
)

// Options controls preprocessing behavior.
type Options struct {
	Deskew          bool
	EnhanceContrast bool
	JPEGQuality     int
}

// Load opens an image honouring EXIF orientation.
func Load(path string) (image.Image, error) {
	img, err := dimg.Open(path, dimg.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("open image %s: %w", path, err)
	}
	return img, nil
}

// SaveJPEG writes an image as JPEG with the given quality.
func SaveJPEG(img image.Image, path string, quality int) error {
	if quality <= 0 || quality > 100 {
		quality = 92
	}
	if err := dimg.Save(img, path, dimg.JPEGQuality(quality)); err != nil {
		return fmt.Errorf("save image %s: %w", path, err)
	}
	return nil
}

// PrepareForOCR writes a cleaned temporary copy of the page next to the
// original and returns its path plus a cleanup function. On any failure
// the original path is returned with the error, so callers can proceed
// with the unprocessed image after logging.
func PrepareForOCR(path string, opts Options) (string, func(), error) {
	noop := func() {}

	img, err := Load(path)
	if err != nil {
		return path, noop, err
	}

	processed := image.Image(img)
	if opts.Deskew {
		processed = Deskew(processed)
	}
	if opts.EnhanceContrast {
		processed = adjust.Contrast(processed, contrastBoost)
	}

	dir := filepath.Dir(path)
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	tmp, err := os.CreateTemp(dir, base+".ocr-*.jpg")
	if err != nil {
		return path, noop, fmt.Errorf("create preprocessed copy: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()

	if err := SaveJPEG(processed, tmpPath, opts.JPEGQuality); err != nil {
		os.Remove(tmpPath)
		return path, noop, err
	}
	return tmpPath, func() { os.Remove(tmpPath) }, nil
}

// Deskew straightens a page when its estimated skew exceeds half a degree.
func Deskew(img image.Image) image.Image {
	angle := EstimateSkew(img)
	if math.Abs(angle) < minCorrectionDegrees || math.Abs(angle) > maxSkewDegrees {
		return img
	}
	return dimg.Rotate(img, angle, color.White)
}

// EstimateSkew returns the angle in degrees that would level the text
// lines when passed to a counter-clockwise rotation. The estimate shears
// ink pixels through candidate angles and picks the one that concentrates
// them into the fewest rows.
func EstimateSkew(img image.Image) float64 {
	small := img
	if img.Bounds().Dx() > estimateWidth {
		small = dimg.Resize(img, estimateWidth, 0, dimg.Linear)
	}
	gray := dimg.Grayscale(small)

	bounds := gray.Bounds()
	type point struct{ x, y int }
	var ink []point
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if gray.NRGBAAt(x, y).R < inkLuma {
				ink = append(ink, point{x, y})
			}
		}
	}
	if len(ink) < 50 {
		return 0
	}

	height := bounds.Dy()
	best := 0.0
	bestScore := -1.0
	for angle := -maxSkewDegrees; angle <= maxSkewDegrees+1e-9; angle += skewStepDegrees {
		shear := math.Tan(angle * math.Pi / 180)
		bins := make(map[int]int, height)
		for _, p := range ink {
			row := int(math.Round(float64(p.y) - float64(p.x)*shear))
			bins[row]++
		}
		// Aligned text piles ink into few rows, maximizing the sum of
		// squared bin counts.
		var score float64
		for _, count := range bins {
			score += float64(count) * float64(count)
		}
		if score > bestScore {
			bestScore = score
			best = angle
		}
	}
	return best
}
