// Package imaging prepares uploaded page photos for OCR and tightens the
// word boxes the model returns.
//
// Preprocessing writes a cleaned temporary copy (deskewed, contrast
// enhanced) next to the original; the original file is never modified and
// any preprocessing failure falls back to it. Box refinement shrinks a
// padded word box to the extent of actual ink so annotation marks hug the
// handwriting.
package imaging
