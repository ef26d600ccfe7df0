package stage

import (
	"errors"
	"path/filepath"
	"testing"

	"redink/internal/queue"
	"redink/internal/services"
)

func TestTaskImagesRequiresPages(t *testing.T) {
	store, err := queue.OpenPath(filepath.Join(t.TempDir(), "queue.db"))
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	task := &queue.Task{Title: "Week 1", ReferenceText: "cat dog", Status: queue.StatusPending}
	if err := store.Add(task); err != nil {
		t.Fatalf("Add: %v", err)
	}

	_, err = TaskImages(store, task)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for empty task, got %v", err)
	}

	img := &queue.Image{TaskID: task.ID, OriginalFilename: "page1.jpg", Path: "/tmp/page1.jpg", Status: queue.ImagePending}
	if err := store.AddImage(img); err != nil {
		t.Fatalf("AddImage: %v", err)
	}

	images, err := TaskImages(store, task)
	if err != nil {
		t.Fatalf("TaskImages: %v", err)
	}
	if len(images) != 1 || images[0].ID != img.ID {
		t.Fatalf("unexpected images: %+v", images)
	}
}
