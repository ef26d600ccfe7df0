package imaging

import (
	"image"
	"math"

	"github.com/anthonynsimon/bild/segment"
	dimg "github.com/disintegration/imaging"
)

const (
	// minPadPixels is the smallest padding added around a word box before
	// searching for ink.
	minPadPixels = 4
	// minInkPixels below which a refinement is considered noise.
	minInkPixels = 5
	// maxGrowthRatio caps how much a refined box may exceed the model's
	// box before the refinement is discarded.
	maxGrowthRatio = 1.5
)

// RefineBox tightens a word bounding box to the extent of actual ink.
// The box is padded by padRatio of its dimensions, the padded region is
// binarized, and the box shrinks to the ink extent. The original box is
// returned when the region holds too little ink or the result balloons.
func RefineBox(img image.Image, box [4]float64, padRatio float64) [4]float64 {
	bounds := img.Bounds()
	w := box[2] - box[0]
	h := box[3] - box[1]
	if w < 2 || h < 2 {
		return box
	}

	padX := math.Max(w*padRatio, minPadPixels)
	padY := math.Max(h*padRatio, minPadPixels)
	x1 := int(math.Max(box[0]-padX, float64(bounds.Min.X)))
	y1 := int(math.Max(box[1]-padY, float64(bounds.Min.Y)))
	x2 := int(math.Min(box[2]+padX, float64(bounds.Max.X)))
	y2 := int(math.Min(box[3]+padY, float64(bounds.Max.Y)))
	if x2-x1 < 2 || y2-y1 < 2 {
		return box
	}

	region := dimg.Grayscale(dimg.Crop(img, image.Rect(x1, y1, x2, y2)))
	level := otsuLevel(region)
	binary := segment.Threshold(region, level)

	// Ink is whatever fell below the threshold.
	rb := binary.Bounds()
	minX, minY := rb.Max.X, rb.Max.Y
	maxX, maxY := rb.Min.X-1, rb.Min.Y-1
	var inkCount int
	for y := rb.Min.Y; y < rb.Max.Y; y++ {
		for x := rb.Min.X; x < rb.Max.X; x++ {
			if binary.GrayAt(x, y).Y == 0 {
				inkCount++
				if x < minX {
					minX = x
				}
				if x > maxX {
					maxX = x
				}
				if y < minY {
					minY = y
				}
				if y > maxY {
					maxY = y
				}
			}
		}
	}
	if inkCount < minInkPixels || maxX < minX || maxY < minY {
		return box
	}

	refined := [4]float64{
		float64(x1 + minX),
		float64(y1 + minY),
		float64(x1 + maxX + 1),
		float64(y1 + maxY + 1),
	}
	if boxArea(refined) > boxArea(box)*maxGrowthRatio {
		return box
	}
	return refined
}

func boxArea(box [4]float64) float64 {
	return (box[2] - box[0]) * (box[3] - box[1])
}

// otsuLevel picks a binarization threshold maximizing between-class
// variance of the grayscale histogram.
func otsuLevel(img *image.NRGBA) uint8 {
	var hist [256]int
	bounds := img.Bounds()
	total := bounds.Dx() * bounds.Dy()
	if total == 0 {
		return 128
	}
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			hist[img.NRGBAAt(x, y).R]++
		}
	}

	var sum float64
	for level, count := range hist {
		sum += float64(level) * float64(count)
	}

	var sumBack, weightBack float64
	bestLevel := uint8(128)
	bestVariance := -1.0
	for level := 0; level < 256; level++ {
		weightBack += float64(hist[level])
		if weightBack == 0 {
			continue
		}
		weightFore := float64(total) - weightBack
		if weightFore == 0 {
			break
		}
		sumBack += float64(level) * float64(hist[level])
		meanBack := sumBack / weightBack
		meanFore := (sum - sumBack) / weightFore
		variance := weightBack * weightFore * (meanBack - meanFore) * (meanBack - meanFore)
		if variance > bestVariance {
			bestVariance = variance
			bestLevel = uint8(level)
		}
	}
	return bestLevel
}
