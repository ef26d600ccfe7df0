// Package recognition transcribes uploaded handwriting pages with the
// configured vision model. Each page is preprocessed (orientation,
// deskew, contrast), sent to the model, and stored with per-word pixel
// bounding boxes. Pages that already carry a transcript are skipped so an
// interrupted task resumes where it stopped.
package recognition
