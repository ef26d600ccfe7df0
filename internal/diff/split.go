package diff

// SplitOpsForRange extracts the ops belonging to one image's slice
// [start, end) of a concatenated OCR word list, remapping OcrIndex to
// local zero-based positions.
//
// Ops with an OcrIndex are included when the index falls in the range.
// Missing ops carry no OCR position; each one is assigned to the image
// owning the nearest preceding anchored op, treating missing words as a
// tail omission of that image. Leading Missing ops with no anchored
// predecessor go to the first image.
func SplitOpsForRange(allOps []Op, start, end int) []Op {
	var result []Op
	for i, op := range allOps {
		if op.OcrIndex != nil {
			if idx := *op.OcrIndex; start <= idx && idx < end {
				local := idx - start
				cp := op
				cp.OcrIndex = &local
				result = append(result, cp)
			}
			continue
		}
		if missingBelongsToRange(allOps, i, start, end) {
			result = append(result, op)
		}
	}
	return result
}

// missingBelongsToRange decides whether the Missing op at missingIdx is
// owned by the image covering [start, end) of the concatenated words.
func missingBelongsToRange(allOps []Op, missingIdx, start, end int) bool {
	for j := missingIdx - 1; j >= 0; j-- {
		if idx := allOps[j].OcrIndex; idx != nil {
			return start <= *idx && *idx < end
		}
	}

	// No anchored predecessor: a leading Missing belongs to the first
	// image, or to whichever image the next anchored op lands in.
	if start == 0 {
		return true
	}
	for j := missingIdx + 1; j < len(allOps); j++ {
		if idx := allOps[j].OcrIndex; idx != nil {
			return start <= *idx && *idx < end
		}
	}
	return false
}
