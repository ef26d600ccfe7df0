package diff

import "testing"

func TestSplitOpsForRangeRemapsLocalIndices(t *testing.T) {
	// Two images of three OCR words each against a clean reference.
	ocr := words("the cat sat on the mat")
	ref := words("the cat sat on the mat")
	all := Compute(ocr, ref)

	first := SplitOpsForRange(all, 0, 3)
	second := SplitOpsForRange(all, 3, 6)
	if len(first) != 3 || len(second) != 3 {
		t.Fatalf("expected 3+3 ops, got %d+%d", len(first), len(second))
	}
	for i, op := range second {
		if *op.OcrIndex != i {
			t.Fatalf("expected local index %d, got %d", i, *op.OcrIndex)
		}
	}
}

func TestSplitOpsForRangeAssignsMissingToPrecedingImage(t *testing.T) {
	// The word "the" is dropped in the middle of the second image; the
	// Missing op stays with that image.
	ocr := words("the cat sat on mat")
	ref := words("the cat sat on the mat")
	all := Compute(ocr, ref)

	first := SplitOpsForRange(all, 0, 3)
	second := SplitOpsForRange(all, 3, 5)
	if countType(first, Missing) != 0 {
		t.Fatalf("first image should have no missing ops: %v", opTypes(first))
	}
	if countType(second, Missing) != 1 {
		t.Fatalf("second image should own the missing op: %v", opTypes(second))
	}
}

func TestSplitOpsForRangeMissingBetweenImages(t *testing.T) {
	// A word missing at an image boundary goes to the image of the
	// nearest preceding anchored op, i.e. the earlier image.
	ocr := words("the cat the mat")
	ref := words("the cat sat the mat")
	all := Compute(ocr, ref)

	first := SplitOpsForRange(all, 0, 2)
	second := SplitOpsForRange(all, 2, 4)
	if countType(first, Missing) != 1 {
		t.Fatalf("first image should own the boundary missing: %v", opTypes(first))
	}
	if countType(second, Missing) != 0 {
		t.Fatalf("second image should not own it: %v", opTypes(second))
	}
}

func TestSplitOpsForRangeLeadingMissingGoesToFirstImage(t *testing.T) {
	ocr := words("cat sat mat")
	ref := words("the cat sat mat")
	all := Compute(ocr, ref)

	first := SplitOpsForRange(all, 0, 2)
	second := SplitOpsForRange(all, 2, 3)
	if countType(first, Missing) != 1 {
		t.Fatalf("leading missing should go to the first image: %v", opTypes(first))
	}
	if countType(second, Missing) != 0 {
		t.Fatalf("second image should not own it: %v", opTypes(second))
	}
}

func TestSplitOpsForRangeAllMissing(t *testing.T) {
	all := Compute(nil, words("the cat"))
	first := SplitOpsForRange(all, 0, 0)
	if len(first) != 2 || !allType(first, Missing) {
		t.Fatalf("expected both missing ops on the empty first image, got %v", first)
	}
}

func TestTallyAndAccuracy(t *testing.T) {
	ops := Compute(words("the big cat set on mat"), words("the cat sat on the mat"))
	stats := Tally(ops)
	if stats.Total() != len(ops) {
		t.Fatalf("total %d != %d ops", stats.Total(), len(ops))
	}
	if stats.Correct == 0 || stats.Wrong == 0 {
		t.Fatalf("unexpected tally %+v", stats)
	}
	pct := stats.AccuracyPct()
	if pct <= 0 || pct >= 100 {
		t.Fatalf("accuracy out of range: %v", pct)
	}
}

func TestAccuracyPctRounding(t *testing.T) {
	s := Stats{Correct: 1, Wrong: 2}
	if got := s.AccuracyPct(); got != 33.3 {
		t.Fatalf("expected 33.3, got %v", got)
	}
	var empty Stats
	if got := empty.AccuracyPct(); got != 0 {
		t.Fatalf("expected 0 for empty stats, got %v", got)
	}
}
