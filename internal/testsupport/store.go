package testsupport

import (
	"testing"

	"redink/internal/config"
	"redink/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.NewStore(cfg)
	if err != nil {
		t.Fatalf("queue.NewStore: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewTask creates a task with a tokenized reference for tests.
func NewTask(t testing.TB, store *queue.Store, title, referenceText string, words []string) *queue.Task {
	t.Helper()

	task := &queue.Task{
		Title:         title,
		ReferenceText: referenceText,
		Status:        queue.StatusEditing,
	}
	if err := task.SetReferenceWords(words); err != nil {
		t.Fatalf("set reference words: %v", err)
	}
	if err := store.Add(task); err != nil {
		t.Fatalf("store.Add: %v", err)
	}
	return task
}

// AddPage appends an image row to a task for tests.
func AddPage(t testing.TB, store *queue.Store, taskID int64, filename, path string) *queue.Image {
	t.Helper()

	img := &queue.Image{
		TaskID:           taskID,
		OriginalFilename: filename,
		Path:             path,
		Status:           queue.ImagePending,
	}
	if err := store.AddImage(img); err != nil {
		t.Fatalf("store.AddImage: %v", err)
	}
	return img
}
