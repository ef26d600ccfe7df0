package diff

import (
	"strings"
	"testing"
)

func words(text string) []string {
	return SplitWords(text)
}

func opTypes(ops []Op) []Type {
	types := make([]Type, len(ops))
	for i, op := range ops {
		types[i] = op.Type
	}
	return types
}

func countType(ops []Op, t Type) int {
	n := 0
	for _, op := range ops {
		if op.Type == t {
			n++
		}
	}
	return n
}

func allType(ops []Op, t Type) bool {
	return countType(ops, t) == len(ops)
}

// checkIndexes asserts that emitted indices are unique and that OcrIndex
// values appear in increasing order (the stable-order guarantee callers
// rely on when slicing a concatenated diff back per image). Merged
// contraction ops report only their first source index, so exact coverage
// is asserted separately in tests whose inputs cannot merge.
func checkIndexes(t *testing.T, ops []Op) {
	t.Helper()
	seenOcr := make(map[int]bool)
	seenRef := make(map[int]bool)
	lastOcr := -1
	for _, op := range ops {
		if op.OcrIndex != nil {
			idx := *op.OcrIndex
			if seenOcr[idx] {
				t.Fatalf("ocr index %d emitted twice", idx)
			}
			if idx <= lastOcr {
				t.Fatalf("ocr index %d not increasing after %d", idx, lastOcr)
			}
			seenOcr[idx] = true
			lastOcr = idx
		}
		if op.RefIndex != nil {
			idx := *op.RefIndex
			if seenRef[idx] {
				t.Fatalf("ref index %d emitted twice", idx)
			}
			seenRef[idx] = true
		}
	}
}

func computeChecked(t *testing.T, ocr, ref []string) []Op {
	t.Helper()
	ops := Compute(ocr, ref)
	checkIndexes(t, ops)
	return ops
}

func TestComputeCoverageWithoutEquivalences(t *testing.T) {
	ocr := words("one fish two fish red fish blue fish extra")
	ref := words("one fish green fish red fish blue fish")
	ops := computeChecked(t, ocr, ref)
	seenOcr := make(map[int]bool)
	seenRef := make(map[int]bool)
	for _, op := range ops {
		if op.OcrIndex != nil {
			seenOcr[*op.OcrIndex] = true
		}
		if op.RefIndex != nil {
			seenRef[*op.RefIndex] = true
		}
	}
	if len(seenOcr) != len(ocr) {
		t.Fatalf("expected every ocr index covered, got %d of %d", len(seenOcr), len(ocr))
	}
	if len(seenRef) != len(ref) {
		t.Fatalf("expected every ref index covered, got %d of %d", len(seenRef), len(ref))
	}
}

func TestAlignKeepsContractionTokensApart(t *testing.T) {
	ops := Align(words("I'll go"), words("I will go"))
	checkIndexes(t, ops)
	got := opTypes(ops)
	want := []Type{Wrong, Missing, Correct}
	if len(got) != len(want) {
		t.Fatalf("op types = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("op types = %v, want %v", got, want)
		}
	}
	if *ops[1].ReferenceWord != "will" {
		t.Fatalf("unpaired reference word = %q, want will", *ops[1].ReferenceWord)
	}
}

func TestAlignReportsNumberFormAsRetype(t *testing.T) {
	ops := Align(words("2"), words("two"))
	if len(ops) != 1 || ops[0].Type != Wrong {
		t.Fatalf("ops = %+v, want a single Wrong", ops)
	}
}

func TestAlignCarriesTokensVerbatim(t *testing.T) {
	ops := Align(words("Fox."), words("fox"))
	if len(ops) != 1 || ops[0].Type != Correct {
		t.Fatalf("ops = %+v, want a single Correct", ops)
	}
	if *ops[0].OcrWord != "Fox." {
		t.Fatalf("ocr word = %q, want the unstripped token", *ops[0].OcrWord)
	}
}

func TestSplitWordsPreservesCaseAndPunctuation(t *testing.T) {
	got := SplitWords("The quick,  Brown fox! ")
	want := []string{"The", "quick,", "Brown", "fox!"}
	if len(got) != len(want) {
		t.Fatalf("expected %d words, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("word %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestSplitWordsEmptyText(t *testing.T) {
	if got := SplitWords("   \n\t "); len(got) != 0 {
		t.Fatalf("expected no words, got %v", got)
	}
}

func TestComputeIdenticalSequences(t *testing.T) {
	ocr := words("the cat sat on the mat")
	ops := computeChecked(t, ocr, words("the cat sat on the mat"))
	if len(ops) != len(ocr) {
		t.Fatalf("expected %d ops, got %d", len(ocr), len(ops))
	}
	if !allType(ops, Correct) {
		t.Fatalf("expected all correct, got %v", opTypes(ops))
	}
}

func TestComputeSubstitution(t *testing.T) {
	ops := computeChecked(t, words("the cat set on the mat"), words("the cat sat on the mat"))
	if countType(ops, Wrong) != 1 {
		t.Fatalf("expected exactly one wrong, got %v", opTypes(ops))
	}
	for _, op := range ops {
		if op.Type == Wrong {
			if *op.OcrWord != "set" || *op.ReferenceWord != "sat" {
				t.Fatalf("wrong pair %q/%q", *op.OcrWord, *op.ReferenceWord)
			}
		}
	}
}

func TestComputeExtraWord(t *testing.T) {
	ops := computeChecked(t, words("the big cat sat"), words("the cat sat"))
	if countType(ops, Extra) != 1 {
		t.Fatalf("expected one extra, got %v", opTypes(ops))
	}
	for _, op := range ops {
		if op.Type == Extra && *op.OcrWord != "big" {
			t.Fatalf("expected extra %q, got %q", "big", *op.OcrWord)
		}
	}
}

func TestComputeMissingWord(t *testing.T) {
	ops := computeChecked(t, words("the sat on"), words("the cat sat on"))
	if countType(ops, Missing) != 1 {
		t.Fatalf("expected one missing, got %v", opTypes(ops))
	}
	for _, op := range ops {
		if op.Type == Missing {
			if op.OcrIndex != nil || op.OcrWord != nil {
				t.Fatal("missing op must not carry an ocr side")
			}
			if *op.ReferenceWord != "cat" {
				t.Fatalf("expected missing %q, got %q", "cat", *op.ReferenceWord)
			}
		}
	}
}

func TestComputeEmptyOcrAllMissing(t *testing.T) {
	ref := words("the cat sat")
	ops := computeChecked(t, nil, ref)
	if len(ops) != len(ref) || !allType(ops, Missing) {
		t.Fatalf("expected %d missing ops, got %v", len(ref), opTypes(ops))
	}
}

func TestComputeEmptyReferenceAllExtra(t *testing.T) {
	ocr := words("the cat sat")
	ops := computeChecked(t, ocr, nil)
	if len(ops) != len(ocr) || !allType(ops, Extra) {
		t.Fatalf("expected %d extra ops, got %v", len(ocr), opTypes(ops))
	}
}

func TestComputeBothEmpty(t *testing.T) {
	if ops := Compute(nil, nil); len(ops) != 0 {
		t.Fatalf("expected empty output, got %v", ops)
	}
}

func TestComputeCaseInsensitiveMatch(t *testing.T) {
	ops := computeChecked(t, words("The Cat SAT"), words("the cat sat"))
	if !allType(ops, Correct) {
		t.Fatalf("expected all correct, got %v", opTypes(ops))
	}
}

func TestComputePunctuationTolerantMatch(t *testing.T) {
	ops := computeChecked(t, words("hello, world!"), words("hello world"))
	if !allType(ops, Correct) {
		t.Fatalf("expected all correct, got %v", opTypes(ops))
	}
}

func TestComputeStripsDisplayPunctuationKeepsCase(t *testing.T) {
	ops := computeChecked(t, []string{"Hello,"}, []string{"Hello"})
	if len(ops) != 1 || ops[0].Type != Correct {
		t.Fatalf("expected single correct, got %v", ops)
	}
	if *ops[0].OcrWord != "Hello" {
		t.Fatalf("expected display word %q, got %q", "Hello", *ops[0].OcrWord)
	}
}

func TestContractionForward(t *testing.T) {
	ops := computeChecked(t, []string{"I'll"}, []string{"I", "will"})
	if len(ops) != 1 || ops[0].Type != Correct {
		t.Fatalf("expected single correct, got %v", ops)
	}
	if *ops[0].OcrWord != "I'll" || *ops[0].ReferenceWord != "I will" {
		t.Fatalf("unexpected pair %q/%q", *ops[0].OcrWord, *ops[0].ReferenceWord)
	}
}

func TestContractionDontDoNot(t *testing.T) {
	ops := computeChecked(t, []string{"don't"}, []string{"do", "not"})
	if len(ops) != 1 || ops[0].Type != Correct {
		t.Fatalf("expected single correct, got %v", ops)
	}
}

func TestContractionCantCannot(t *testing.T) {
	ops := computeChecked(t, []string{"can't"}, []string{"cannot"})
	if len(ops) != 1 || ops[0].Type != Correct {
		t.Fatalf("expected single correct, got %v", ops)
	}
}

func TestContractionAmbiguousExpansions(t *testing.T) {
	for _, ref := range [][]string{{"it", "is"}, {"it", "has"}} {
		ops := computeChecked(t, []string{"it's"}, ref)
		if len(ops) != 1 || ops[0].Type != Correct {
			t.Fatalf("it's vs %v: expected single correct, got %v", ref, ops)
		}
	}
}

func TestContractionReverse(t *testing.T) {
	ops := computeChecked(t, []string{"do", "not"}, []string{"don't"})
	if len(ops) != 1 || ops[0].Type != Correct {
		t.Fatalf("expected single correct, got %v", ops)
	}
	if *ops[0].OcrWord != "do not" {
		t.Fatalf("expected merged ocr word %q, got %q", "do not", *ops[0].OcrWord)
	}
}

func TestContractionInSentence(t *testing.T) {
	ops := computeChecked(t, words("I'll go home"), words("I will go home"))
	for _, op := range ops {
		if op.Type != Correct {
			t.Fatalf("expected all correct, got %v", opTypes(ops))
		}
	}
}

func TestContractionWithNeighboringError(t *testing.T) {
	ops := computeChecked(t, words("I'll sit"), words("I will set"))
	var sawContraction bool
	for _, op := range ops {
		if op.Type == Correct && *op.OcrWord == "I'll" {
			sawContraction = true
		}
	}
	if !sawContraction {
		t.Fatalf("contraction did not resolve to correct: %v", ops)
	}
	if countType(ops, Wrong) != 1 {
		t.Fatalf("expected exactly one wrong, got %v", opTypes(ops))
	}
	for _, op := range ops {
		if op.Type == Wrong {
			if *op.OcrWord != "sit" || *op.ReferenceWord != "set" {
				t.Fatalf("wrong pair %q/%q", *op.OcrWord, *op.ReferenceWord)
			}
		}
	}
}

func TestNoFalsePositiveWithoutApostrophe(t *testing.T) {
	ops := computeChecked(t, []string{"Ill"}, []string{"I'll"})
	if len(ops) != 1 || ops[0].Type != Wrong {
		t.Fatalf("expected single wrong, got %v", ops)
	}
}

func TestLeadingExtraBeforeReferenceContraction(t *testing.T) {
	ops := computeChecked(t,
		[]string{"because", "of", "you", "are", "in"},
		[]string{"because", "you're", "in"})

	if ops[0].Type != Correct || *ops[0].OcrWord != "because" {
		t.Fatalf("expected leading correct %q, got %v", "because", ops[0])
	}
	if last := ops[len(ops)-1]; last.Type != Correct || *last.OcrWord != "in" {
		t.Fatalf("expected trailing correct %q, got %v", "in", last)
	}
	if countType(ops, Wrong) != 0 {
		t.Fatalf("expected zero wrong, got %v", opTypes(ops))
	}
	if countType(ops, Extra) != 1 {
		t.Fatalf("expected one extra, got %v", opTypes(ops))
	}
	var merged *Op
	for i, op := range ops {
		if op.Type == Extra && *op.OcrWord != "of" {
			t.Fatalf("expected extra %q, got %q", "of", *op.OcrWord)
		}
		if op.Type == Correct && op.ReferenceWord != nil && *op.ReferenceWord == "you're" {
			merged = &ops[i]
		}
	}
	if merged == nil {
		t.Fatalf("no correct op pairing you're: %v", ops)
	}
	if *merged.OcrWord != "you are" {
		t.Fatalf("expected merged ocr %q, got %q", "you are", *merged.OcrWord)
	}
}

func TestLeadingMissingBeforeOcrContraction(t *testing.T) {
	ops := computeChecked(t,
		[]string{"because", "you're", "in"},
		[]string{"because", "of", "you", "are", "in"})

	if countType(ops, Missing) != 1 {
		t.Fatalf("expected one missing, got %v", opTypes(ops))
	}
	var sawMerged bool
	for _, op := range ops {
		if op.Type == Missing && *op.ReferenceWord != "of" {
			t.Fatalf("expected missing %q, got %q", "of", *op.ReferenceWord)
		}
		if op.Type == Correct && *op.OcrWord == "you're" {
			sawMerged = true
			if *op.ReferenceWord != "you are" {
				t.Fatalf("expected merged reference %q, got %q", "you are", *op.ReferenceWord)
			}
		}
	}
	if !sawMerged {
		t.Fatalf("you're did not resolve to correct: %v", ops)
	}
}

func TestNumberEquivalenceDigitsAndWords(t *testing.T) {
	cases := [][2]string{
		{"3", "three"},
		{"one", "1"},
		{"first", "1st"},
		{"2nd", "second"},
		{"twelve", "12"},
	}
	for _, c := range cases {
		ops := computeChecked(t, []string{c[0]}, []string{c[1]})
		if len(ops) != 1 || ops[0].Type != Correct {
			t.Fatalf("%s vs %s: expected correct, got %v", c[0], c[1], ops)
		}
	}
}

func TestNumberMismatchStaysWrong(t *testing.T) {
	ops := computeChecked(t, []string{"two"}, []string{"3"})
	if len(ops) != 1 || ops[0].Type != Wrong {
		t.Fatalf("expected wrong, got %v", ops)
	}
}

func TestNumberEquivalenceInSentence(t *testing.T) {
	ops := computeChecked(t, words("I have 3 cats"), words("I have three cats"))
	if !allType(ops, Correct) {
		t.Fatalf("expected all correct, got %v", opTypes(ops))
	}
}

func TestComputeLongerPassage(t *testing.T) {
	ocr := words("Once upon a time their lived a small dog")
	ref := words("Once upon a time there lived a small dog")
	ops := computeChecked(t, ocr, ref)
	if countType(ops, Wrong) != 1 {
		t.Fatalf("expected one wrong, got %v", opTypes(ops))
	}
	if countType(ops, Correct) != len(ref)-1 {
		t.Fatalf("expected %d correct, got %v", len(ref)-1, opTypes(ops))
	}
}

func TestComputeOutputOrderFollowsOcrStream(t *testing.T) {
	ops := computeChecked(t, words("a b c d"), words("a x c y"))
	var sequence []string
	for _, op := range ops {
		if op.OcrWord != nil {
			sequence = append(sequence, *op.OcrWord)
		}
	}
	if got := strings.Join(sequence, " "); got != "a b c d" {
		t.Fatalf("ocr words out of order: %q", got)
	}
}
