// Package annotation renders grading marks onto page images.
//
// Wrong words get an ellipse around the handwriting with the expected word
// written above it, extra words get a strikethrough, and missing words get
// a caret at the insertion point with the omitted word above. Mark
// geometry scales with image height so a phone photo and a flatbed scan
// get visually similar ink. Label positions are nudged upward when they
// would overlap.
package annotation
