package diff

// Compute compares OCR output words against reference words and returns
// an ordered list of diff operations.
//
// Both sequences are normalized for alignment; the emitted ops carry the
// original tokens with edge punctuation stripped for display. Compute is
// total: empty OCR input yields all Missing, empty reference input yields
// all Extra, and two empty inputs yield an empty list.
func Compute(ocrWords, refWords []string) []Op {
	ops := Align(ocrWords, refWords)
	ops = reconcile(ops, ocrWords, refWords)

	for i := range ops {
		if ops[i].OcrWord != nil {
			w := stripDisplay(*ops[i].OcrWord)
			ops[i].OcrWord = &w
		}
		if ops[i].ReferenceWord != nil {
			w := stripDisplay(*ops[i].ReferenceWord)
			ops[i].ReferenceWord = &w
		}
	}
	return ops
}

// Align returns the positional edit operations between the two word
// sequences without the equivalence pass: Correct means the comparison
// keys match token for token, and a contraction facing its expansion
// stays one op per token. Word fields carry the tokens exactly as given.
func Align(ocrWords, refWords []string) []Op {
	normOcr := make([]string, len(ocrWords))
	for i, w := range ocrWords {
		normOcr[i] = normalizeKey(w)
	}
	normRef := make([]string, len(refWords))
	for i, w := range refWords {
		normRef[i] = normalizeKey(w)
	}

	return buildOps(editScript(normOcr, normRef), ocrWords, refWords)
}
