package export

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"redink/internal/config"
	"redink/internal/logging"
	"redink/internal/queue"
	"redink/internal/services"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = base
	cfg.Paths.ExportDir = filepath.Join(base, "exports")
	cfg.OCR.APIKey = "test-key"
	return &cfg
}

func newTestStore(t *testing.T, cfg *config.Config) *queue.Store {
	t.Helper()
	store, err := queue.NewStore(cfg)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func addAnnotatedTask(t *testing.T, store *queue.Store, title string, pages int) *queue.Task {
	t.Helper()
	dir := t.TempDir()
	task := &queue.Task{Title: title, ReferenceText: "cat dog", Status: queue.StatusCompleted}
	if err := store.Add(task); err != nil {
		t.Fatalf("Add: %v", err)
	}
	for i := 0; i < pages; i++ {
		annotated := filepath.Join(dir, fmt.Sprintf("rendered%d.jpg", i+1))
		if err := os.WriteFile(annotated, []byte(fmt.Sprintf("jpeg-bytes-%d", i+1)), 0o644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
		img := &queue.Image{
			TaskID:           task.ID,
			OriginalFilename: fmt.Sprintf("page%d.jpg", i+1),
			Path:             annotated,
			Status:           queue.ImageAnnotated,
			AnnotatedPath:    annotated,
		}
		if err := store.AddImage(img); err != nil {
			t.Fatalf("AddImage: %v", err)
		}
	}
	return task
}

func TestCreateBuildsOrderedArchive(t *testing.T) {
	cfg := testConfig(t)
	store := newTestStore(t, cfg)
	task := addAnnotatedTask(t, store, "Week 3: Dictation", 2)

	exporter := New(cfg, store, logging.NewNop())
	path, err := exporter.Create(context.Background(), task)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	wantName := fmt.Sprintf("annotated_Week 3- Dictation_%d.zip", task.ID)
	if got := filepath.Base(path); got != wantName {
		t.Errorf("archive name = %q, want %q", got, wantName)
	}

	reader, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	t.Cleanup(func() { _ = reader.Close() })

	if len(reader.File) != 2 {
		t.Fatalf("archive entries = %d, want 2", len(reader.File))
	}
	wantEntries := []string{"01_page1.jpg", "02_page2.jpg"}
	for i, f := range reader.File {
		if f.Name != wantEntries[i] {
			t.Errorf("entry %d = %q, want %q", i, f.Name, wantEntries[i])
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("entry open: %v", err)
		}
		buf := make([]byte, 32)
		n, _ := rc.Read(buf)
		rc.Close()
		if want := fmt.Sprintf("jpeg-bytes-%d", i+1); string(buf[:n]) != want {
			t.Errorf("entry %d content = %q, want %q", i, buf[:n], want)
		}
	}
}

func TestCreateRequiresAnnotatedPages(t *testing.T) {
	cfg := testConfig(t)
	store := newTestStore(t, cfg)

	task := &queue.Task{Title: "Ungraded", ReferenceText: "cat", Status: queue.StatusPending}
	if err := store.Add(task); err != nil {
		t.Fatalf("Add: %v", err)
	}
	img := &queue.Image{TaskID: task.ID, OriginalFilename: "p.jpg", Path: "/tmp/p.jpg", Status: queue.ImagePending}
	if err := store.AddImage(img); err != nil {
		t.Fatalf("AddImage: %v", err)
	}

	exporter := New(cfg, store, logging.NewNop())
	_, err := exporter.Create(context.Background(), task)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCleanupExpiredRemovesOldArchives(t *testing.T) {
	cfg := testConfig(t)
	cfg.Export.RetentionMinutes = 60
	store := newTestStore(t, cfg)

	if err := os.MkdirAll(cfg.Paths.ExportDir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	old := filepath.Join(cfg.Paths.ExportDir, "annotated_old_1.zip")
	fresh := filepath.Join(cfg.Paths.ExportDir, "annotated_fresh_2.zip")
	keepTxt := filepath.Join(cfg.Paths.ExportDir, "notes.txt")
	for _, path := range []string{old, fresh, keepTxt} {
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
	}
	stale := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(old, stale, stale); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}
	if err := os.Chtimes(keepTxt, stale, stale); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}

	exporter := New(cfg, store, logging.NewNop())
	removed, err := exporter.CleanupExpired(context.Background())
	if err != nil {
		t.Fatalf("CleanupExpired: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Error("expired archive still present")
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Errorf("fresh archive removed: %v", err)
	}
	if _, err := os.Stat(keepTxt); err != nil {
		t.Errorf("non-archive file removed: %v", err)
	}
}

func TestArchiveNameTruncatesLongTitles(t *testing.T) {
	long := ""
	for i := 0; i < 10; i++ {
		long += "dictationterms"
	}
	task := &queue.Task{ID: 7, Title: long}
	name := ArchiveName(task)
	if len(name) > len("annotated_")+maxTitleLength+len("_7.zip") {
		t.Errorf("archive name too long: %q (%d)", name, len(name))
	}
	if name[:10] != "annotated_" {
		t.Errorf("archive name prefix: %q", name)
	}
}
