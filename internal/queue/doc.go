// Package queue provides persistent storage for grading tasks, their
// uploaded page images, and the annotation overlays produced for them.
//
// The store is a single SQLite database. Tasks move through a linear set
// of statuses (pending through completed) as the workflow processes them,
// while images carry their own per-page status so partially transcribed
// tasks can resume without redoing finished pages. Annotations are
// replaced wholesale whenever a page's diff is recomputed, except for
// rows the user has edited, which survive recomputation.
//
// All mutating operations are safe for concurrent use from multiple
// goroutines within one process. Cross-process exclusion is handled by
// the daemon's lock file, not here.
package queue
