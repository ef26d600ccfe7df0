// Package export bundles a task's annotated pages into a downloadable
// zip archive. Archives are written under the export directory and are
// throwaway artifacts: a retention sweep deletes them once they pass the
// configured age, and a fresh download simply rebuilds the archive.
package export
