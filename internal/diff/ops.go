package diff

// Type classifies a single diff operation.
type Type string

const (
	// Correct means the OCR word matches the reference word.
	Correct Type = "correct"
	// Wrong means the OCR word differs from its paired reference word.
	Wrong Type = "wrong"
	// Missing means the reference has a word the OCR output lacks.
	Missing Type = "missing"
	// Extra means the OCR output has a word the reference lacks.
	Extra Type = "extra"
)

// Op is a single diff operation between the OCR and reference sequences.
//
// OcrIndex is set iff the type is Correct, Wrong, or Extra; RefIndex is
// set iff the type is Correct, Wrong, or Missing. Word fields mirror the
// corresponding index. Across an output sequence the set OcrIndex values
// cover 0..len(ocrWords) exactly once each, in increasing order, and
// likewise RefIndex over the reference words.
type Op struct {
	Type          Type    `json:"diff_type"`
	OcrIndex      *int    `json:"ocr_index"`
	RefIndex      *int    `json:"ref_index"`
	OcrWord       *string `json:"ocr_word"`
	ReferenceWord *string `json:"reference_word"`
}

func newCorrect(ocrIdx, refIdx int, ocrWord, refWord string) Op {
	return Op{
		Type:          Correct,
		OcrIndex:      &ocrIdx,
		RefIndex:      &refIdx,
		OcrWord:       &ocrWord,
		ReferenceWord: &refWord,
	}
}

func newWrong(ocrIdx, refIdx int, ocrWord, refWord string) Op {
	return Op{
		Type:          Wrong,
		OcrIndex:      &ocrIdx,
		RefIndex:      &refIdx,
		OcrWord:       &ocrWord,
		ReferenceWord: &refWord,
	}
}

func newMissing(refIdx int, refWord string) Op {
	return Op{
		Type:          Missing,
		RefIndex:      &refIdx,
		ReferenceWord: &refWord,
	}
}

func newExtra(ocrIdx int, ocrWord string) Op {
	return Op{
		Type:          Extra,
		OcrIndex:      &ocrIdx,
		OcrWord:       &ocrWord,
	}
}

// buildOps converts the edit script into typed diff operations carrying
// original-form tokens and original indices. Replace ranges of uneven
// length pair positionally as Wrong; leftover OCR words become Extra and
// leftover reference words become Missing.
func buildOps(script []opcode, ocrWords, refWords []string) []Op {
	var ops []Op
	for _, oc := range script {
		switch oc.tag {
		case tagEqual:
			for k := 0; oc.i1+k < oc.i2; k++ {
				ops = append(ops, newCorrect(oc.i1+k, oc.j1+k, ocrWords[oc.i1+k], refWords[oc.j1+k]))
			}
		case tagReplace:
			lenA, lenB := oc.i2-oc.i1, oc.j2-oc.j1
			for k := 0; k < max(lenA, lenB); k++ {
				switch {
				case k < lenA && k < lenB:
					ops = append(ops, newWrong(oc.i1+k, oc.j1+k, ocrWords[oc.i1+k], refWords[oc.j1+k]))
				case k < lenA:
					ops = append(ops, newExtra(oc.i1+k, ocrWords[oc.i1+k]))
				default:
					ops = append(ops, newMissing(oc.j1+k, refWords[oc.j1+k]))
				}
			}
		case tagDelete:
			for i := oc.i1; i < oc.i2; i++ {
				ops = append(ops, newExtra(i, ocrWords[i]))
			}
		case tagInsert:
			for j := oc.j1; j < oc.j2; j++ {
				ops = append(ops, newMissing(j, refWords[j]))
			}
		}
	}
	return ops
}
