package annotation

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

const (
	minLabelFontSize = 10
	maxLabelFontSize = 48
)

var (
	labelFontOnce sync.Once
	labelFont     *opentype.Font
	labelFontErr  error

	faceMu    sync.Mutex
	faceCache = map[int]font.Face{}
)

func loadLabelFont() (*opentype.Font, error) {
	labelFontOnce.Do(func() {
		labelFont, labelFontErr = opentype.Parse(gobold.TTF)
		if labelFontErr != nil {
			labelFontErr = fmt.Errorf("parse label font: %w", labelFontErr)
		}
	})
	return labelFont, labelFontErr
}

func labelFace(size int) (font.Face, error) {
	if size < minLabelFontSize {
		size = minLabelFontSize
	}
	if size > maxLabelFontSize {
		size = maxLabelFontSize
	}
	faceMu.Lock()
	defer faceMu.Unlock()
	if face, ok := faceCache[size]; ok {
		return face, nil
	}
	parsed, err := loadLabelFont()
	if err != nil {
		return nil, err
	}
	face, err := opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    float64(size),
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("build label face: %w", err)
	}
	faceCache[size] = face
	return face, nil
}

// labelFontSize derives a label size from the height of the word being
// marked, clamped to keep tiny boxes readable and huge boxes sane.
func labelFontSize(boxHeight, ratio float64) int {
	size := int(math.Round(boxHeight * ratio))
	if size < minLabelFontSize {
		return minLabelFontSize
	}
	if size > maxLabelFontSize {
		return maxLabelFontSize
	}
	return size
}

// measureLabel returns the pixel width and height of text at the given size.
func measureLabel(text string, size int) (int, int, error) {
	face, err := labelFace(size)
	if err != nil {
		return 0, 0, err
	}
	width := font.MeasureString(face, text).Ceil()
	metrics := face.Metrics()
	height := (metrics.Ascent + metrics.Descent).Ceil()
	return width, height, nil
}

// drawLabel renders text with its baseline anchored so the text's top-left
// corner sits at (x, y).
func drawLabel(img *image.NRGBA, text string, x, y, size int, c color.NRGBA) error {
	face, err := labelFace(size)
	if err != nil {
		return err
	}
	metrics := face.Metrics()
	drawer := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(x, y+metrics.Ascent.Ceil()),
	}
	drawer.DrawString(text)
	return nil
}
