package diff

import "strings"

// reconcile rewrites runs of non-Correct ops that are artifacts of
// comparing single tokens when the true equivalence spans several tokens.
// Correct ops are immutable anchors and are never touched.
//
// Patterns, per Wrong op encountered:
//
//	P0:  the two words are directly equivalent contractions, or number
//	     forms of the same value.
//	P1:  the OCR word is a contraction whose expansion spans the reference
//	     words of following ops in the window (P1b: the paired reference
//	     word is unrelated and stays Missing while later reference words
//	     alone complete the expansion).
//	P2:  mirror of P1 with the roles reversed: the reference word is a
//	     contraction spanning several OCR words (P2b likewise).
//
// When a Wrong op is consumed for one side during P1/P2 matching, the
// released counterpart re-pairs with an available Missing/Extra op in the
// rest of the window, or is demoted when none remains. Matching is greedy:
// smallest consumption first, first fit.
func reconcile(ops []Op, ocrWords, refWords []string) []Op {
	normOcr := make([]string, len(ocrWords))
	for i, w := range ocrWords {
		normOcr[i] = normalizeKey(w)
	}
	normRef := make([]string, len(refWords))
	for i, w := range refWords {
		normRef[i] = normalizeKey(w)
	}

	result := make([]Op, 0, len(ops))
	i := 0
	for i < len(ops) {
		op := ops[i]

		if op.Type != Wrong {
			result = append(result, op)
			i++
			continue
		}

		na := normOcr[*op.OcrIndex]
		nb := normRef[*op.RefIndex]

		// P0: direct single-token equivalence.
		if contractionsEquivalent([]string{na}, []string{nb}) || numbersEquivalent(na, nb) {
			result = append(result, newCorrect(*op.OcrIndex, *op.RefIndex, *op.OcrWord, *op.ReferenceWord))
			i++
			continue
		}

		// The reconciliation window: the maximal run of consecutive
		// non-Correct ops following this one.
		runEnd := i + 1
		for runEnd < len(ops) && ops[runEnd].Type != Correct {
			runEnd++
		}
		run := ops[i+1 : runEnd]

		if isContraction(na) && len(run) > 0 {
			if out, ok := absorbOcrContraction(op, run, na, nb, normRef, ocrWords); ok {
				result = append(result, out...)
				i = runEnd
				continue
			}
		}

		if isContraction(nb) && len(run) > 0 {
			if out, ok := absorbRefContraction(op, run, na, nb, normOcr, refWords); ok {
				result = append(result, out...)
				i = runEnd
				continue
			}
		}

		result = append(result, op)
		i++
	}
	return result
}

// absorbOcrContraction handles P1 and P1b: the OCR word na is a known
// contraction and the window may carry the reference words of its
// expansion. Returns the replacement ops for the whole window on success.
func absorbOcrContraction(op Op, run []Op, na, nb string, normRef []string, ocrWords []string) ([]Op, bool) {
	type bearing struct {
		runIdx int
		op     Op
	}
	var refBearing []bearing
	for k, r := range run {
		if r.RefIndex != nil {
			refBearing = append(refBearing, bearing{k, r})
		}
	}
	if len(refBearing) == 0 {
		return nil, false
	}

	// P1: nb opens the expansion; following reference words complete it.
	for take := 1; take <= len(refBearing); take++ {
		refNorms := make([]string, 0, take+1)
		refNorms = append(refNorms, nb)
		for _, rb := range refBearing[:take] {
			refNorms = append(refNorms, normRef[*rb.op.RefIndex])
		}
		if !contractionsEquivalent([]string{na}, refNorms) {
			continue
		}

		consumed := make(map[int]bool, take)
		mergedRef := []string{deref(op.ReferenceWord)}
		var releasedOcr []Op
		for _, rb := range refBearing[:take] {
			consumed[rb.runIdx] = true
			mergedRef = append(mergedRef, deref(rb.op.ReferenceWord))
			if rb.op.Type == Wrong {
				releasedOcr = append(releasedOcr, rb.op)
			}
		}

		out := []Op{newCorrect(*op.OcrIndex, *op.RefIndex, *op.OcrWord, strings.Join(mergedRef, " "))}
		out = append(out, repairReleasedOcr(releasedOcr, remainingOps(run, consumed), ocrWords)...)
		return out, true
	}

	// P1b: nb is an unrelated leading reference word; the expansion is
	// completed by later reference words alone. nb stays Missing.
	for take := 1; take <= len(refBearing); take++ {
		refNorms := make([]string, 0, take)
		for _, rb := range refBearing[:take] {
			refNorms = append(refNorms, normRef[*rb.op.RefIndex])
		}
		if !contractionsEquivalent([]string{na}, refNorms) {
			continue
		}

		out := []Op{newMissing(*op.RefIndex, deref(op.ReferenceWord))}

		consumed := make(map[int]bool, take)
		mergedRef := make([]string, 0, take)
		var releasedOcr []Op
		for _, rb := range refBearing[:take] {
			consumed[rb.runIdx] = true
			mergedRef = append(mergedRef, deref(rb.op.ReferenceWord))
			if rb.op.Type == Wrong {
				releasedOcr = append(releasedOcr, rb.op)
			}
		}

		out = append(out, newCorrect(*op.OcrIndex, *refBearing[0].op.RefIndex, *op.OcrWord, strings.Join(mergedRef, " ")))
		out = append(out, repairReleasedOcr(releasedOcr, remainingOps(run, consumed), ocrWords)...)
		return out, true
	}

	return nil, false
}

// absorbRefContraction handles P2 and P2b: the reference word nb is a
// known contraction spanning several OCR words in the window.
func absorbRefContraction(op Op, run []Op, na, nb string, normOcr []string, refWords []string) ([]Op, bool) {
	type bearing struct {
		runIdx int
		op     Op
	}
	var ocrBearing []bearing
	for k, r := range run {
		if r.OcrIndex != nil {
			ocrBearing = append(ocrBearing, bearing{k, r})
		}
	}
	if len(ocrBearing) == 0 {
		return nil, false
	}

	// P2: na opens the expansion; following OCR words complete it.
	for take := 1; take <= len(ocrBearing); take++ {
		ocrNorms := make([]string, 0, take+1)
		ocrNorms = append(ocrNorms, na)
		for _, ob := range ocrBearing[:take] {
			ocrNorms = append(ocrNorms, normOcr[*ob.op.OcrIndex])
		}
		if !contractionsEquivalent(ocrNorms, []string{nb}) {
			continue
		}

		consumed := make(map[int]bool, take)
		mergedOcr := []string{deref(op.OcrWord)}
		var releasedRef []Op
		for _, ob := range ocrBearing[:take] {
			consumed[ob.runIdx] = true
			mergedOcr = append(mergedOcr, deref(ob.op.OcrWord))
			if ob.op.Type == Wrong {
				releasedRef = append(releasedRef, ob.op)
			}
		}

		out := []Op{newCorrect(*op.OcrIndex, *op.RefIndex, strings.Join(mergedOcr, " "), deref(op.ReferenceWord))}
		out = append(out, repairReleasedRef(releasedRef, remainingOps(run, consumed), refWords)...)
		return out, true
	}

	// P2b: na is an unrelated leading OCR word; later OCR words alone
	// complete the expansion. na stays Extra.
	for take := 1; take <= len(ocrBearing); take++ {
		ocrNorms := make([]string, 0, take)
		for _, ob := range ocrBearing[:take] {
			ocrNorms = append(ocrNorms, normOcr[*ob.op.OcrIndex])
		}
		if !contractionsEquivalent(ocrNorms, []string{nb}) {
			continue
		}

		out := []Op{newExtra(*op.OcrIndex, deref(op.OcrWord))}

		consumed := make(map[int]bool, take)
		mergedOcr := make([]string, 0, take)
		var releasedRef []Op
		for _, ob := range ocrBearing[:take] {
			consumed[ob.runIdx] = true
			mergedOcr = append(mergedOcr, deref(ob.op.OcrWord))
			if ob.op.Type == Wrong {
				releasedRef = append(releasedRef, ob.op)
			}
		}

		out = append(out, newCorrect(*ocrBearing[0].op.OcrIndex, *op.RefIndex, strings.Join(mergedOcr, " "), deref(op.ReferenceWord)))
		out = append(out, repairReleasedRef(releasedRef, remainingOps(run, consumed), refWords)...)
		return out, true
	}

	return nil, false
}

// repairReleasedOcr re-pairs OCR words released from consumed Wrong ops
// with Missing ops left in the window, demoting the unpaired to Extra.
// Window ops that were neither consumed nor used for re-pairing pass
// through unchanged.
func repairReleasedOcr(released, remaining []Op, ocrWords []string) []Op {
	var out []Op
	used := make(map[int]bool)
	for _, rel := range released {
		paired := false
		for ri, rop := range remaining {
			if !used[ri] && rop.Type == Missing {
				out = append(out, newWrong(*rel.OcrIndex, *rop.RefIndex, ocrWords[*rel.OcrIndex], deref(rop.ReferenceWord)))
				used[ri] = true
				paired = true
				break
			}
		}
		if !paired {
			out = append(out, newExtra(*rel.OcrIndex, ocrWords[*rel.OcrIndex]))
		}
	}
	for ri, rop := range remaining {
		if !used[ri] {
			out = append(out, rop)
		}
	}
	return out
}

// repairReleasedRef is the mirror of repairReleasedOcr for reference words
// released during P2/P2b: re-pair with Extra ops or demote to Missing.
func repairReleasedRef(released, remaining []Op, refWords []string) []Op {
	var out []Op
	used := make(map[int]bool)
	for _, rel := range released {
		paired := false
		for ri, rop := range remaining {
			if !used[ri] && rop.Type == Extra {
				out = append(out, newWrong(*rop.OcrIndex, *rel.RefIndex, deref(rop.OcrWord), refWords[*rel.RefIndex]))
				used[ri] = true
				paired = true
				break
			}
		}
		if !paired {
			out = append(out, newMissing(*rel.RefIndex, refWords[*rel.RefIndex]))
		}
	}
	for ri, rop := range remaining {
		if !used[ri] {
			out = append(out, rop)
		}
	}
	return out
}

func remainingOps(run []Op, consumed map[int]bool) []Op {
	remaining := make([]Op, 0, len(run)-len(consumed))
	for k, r := range run {
		if !consumed[k] {
			remaining = append(remaining, r)
		}
	}
	return remaining
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
