// Package comparison grades a task's transcript against its reference
// text. The transcripts of all pages are concatenated so words split
// across page boundaries still align, diffed word-by-word against the
// cleaned reference, and the resulting ops are split back onto the pages
// they came from. Each page also gets its auto annotations rebuilt:
// ellipses on wrong words, strikethroughs on extra words, and carets at
// inferred insertion points for missing words. User-corrected annotations
// survive the rebuild.
package comparison
