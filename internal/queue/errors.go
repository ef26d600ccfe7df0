package queue

// ErrorClassifier lets the workflow decide which terminal status a stage
// failure maps to without this package importing stage internals.
type ErrorClassifier interface {
	// NeedsReview reports whether the error stems from bad input rather
	// than a processing fault, so a human should look at the task.
	NeedsReview(err error) bool
}

// FailureStatus maps a stage error to the task status it should land in.
func FailureStatus(classifier ErrorClassifier, err error) Status {
	if classifier != nil && classifier.NeedsReview(err) {
		return StatusReview
	}
	return StatusFailed
}
