package api_test

import "redink/internal/diff"

func opCorrect(idx *int, word *string) diff.Op {
	return diff.Op{Type: diff.Correct, OcrIndex: idx, RefIndex: idx, OcrWord: word, ReferenceWord: word}
}

func opWrong(idx *int, ocrWord *string) diff.Op {
	ref := "ref"
	return diff.Op{Type: diff.Wrong, OcrIndex: idx, RefIndex: idx, OcrWord: ocrWord, ReferenceWord: &ref}
}
