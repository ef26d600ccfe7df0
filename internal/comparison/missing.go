package comparison

import (
	"math"

	"redink/internal/diff"
	"redink/internal/queue"
)

const (
	minMissingWidth  = 10
	neighbourPadding = 2
	missingAspect    = 0.6
)

// neighbourBoxes finds the boxes of the nearest ops with an OCR position
// before and after the op at index i.
func neighbourBoxes(ops []diff.Op, i int, words []queue.Word) (prev, next *[4]float64) {
	for j := i - 1; j >= 0; j-- {
		if box, ok := wordBox(words, ops[j].OcrIndex); ok {
			prev = &box
			break
		}
	}
	for j := i + 1; j < len(ops); j++ {
		if box, ok := wordBox(words, ops[j].OcrIndex); ok {
			next = &box
			break
		}
	}
	return prev, next
}

// inferMissingBox places an insertion box for a word the student skipped.
// With neighbours on both sides the box spans the gap between them; with
// one neighbour it sits just past that word, sized from the word height.
// A page with no positioned words at all yields a zero box, which the
// renderer skips.
func inferMissingBox(prev, next *[4]float64) [4]float64 {
	switch {
	case prev != nil && next != nil:
		x1, x2 := prev[2], next[0]
		if x2-x1 < minMissingWidth {
			mid := (x1 + x2) / 2
			x1 = mid - minMissingWidth/2
			x2 = mid + minMissingWidth/2
		}
		y1 := math.Min(prev[1], next[1])
		y2 := math.Max(prev[3], next[3])
		return [4]float64{x1, y1, x2, y2}
	case prev != nil:
		h := prev[3] - prev[1]
		w := math.Max(h*missingAspect, minMissingWidth)
		x1 := prev[2] + neighbourPadding
		return [4]float64{x1, prev[1], x1 + w, prev[3]}
	case next != nil:
		h := next[3] - next[1]
		w := math.Max(h*missingAspect, minMissingWidth)
		x2 := next[0] - neighbourPadding
		return [4]float64{x2 - w, next[1], x2, next[3]}
	}
	return [4]float64{}
}
