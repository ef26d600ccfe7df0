package stage

import (
	"redink/internal/queue"
	"redink/internal/services"
)

// TaskImages loads the ordered pages for a task. A task with no uploaded
// pages cannot be processed, so an empty result returns a
// services.ErrValidation suitable for stage Execute methods.
func TaskImages(store *queue.Store, task *queue.Task) ([]*queue.Image, error) {
	images, err := store.ImagesForTask(task.ID)
	if err != nil {
		return nil, services.Wrap(
			services.ErrTransient, "stage", "load task images", "", err)
	}
	if len(images) == 0 {
		return nil, services.Wrap(
			services.ErrValidation, "stage", "load task images",
			"task has no uploaded pages; add at least one image", nil)
	}
	return images, nil
}
