// Package annotating renders graded pages. It draws every stored mark
// for a page onto a copy of the original upload and writes the result as
// a JPEG under the annotated directory. Output files get a fresh random
// suffix on every render so stale browser caches never show an outdated
// grading.
package annotating
