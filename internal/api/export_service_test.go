package api_test

import (
	"archive/zip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"redink/internal/api"
	"redink/internal/imaging"
	"redink/internal/logging"
	"redink/internal/queue"
	"redink/internal/services"
	"redink/internal/testsupport"
)

func TestArchiveRequiresAnnotatedPages(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	svc := api.NewExportService(cfg, store, logging.NewNop())

	task := testsupport.NewTask(t, store, "t", "alpha beta", []string{"alpha", "beta"})
	testsupport.AddPage(t, store, task.ID, "p.jpg", "/tmp/p.jpg")

	if _, _, err := svc.Archive(context.Background(), task.ID); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("Archive without annotated pages = %v, want validation", err)
	}
}

func TestArchiveBundlesAnnotatedPages(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	svc := api.NewExportService(cfg, store, logging.NewNop())

	task := testsupport.NewTask(t, store, "Week 5", "alpha beta", []string{"alpha", "beta"})
	annotated := filepath.Join(cfg.Paths.AnnotatedDir, "1_1_done.jpg")
	testsupport.WritePageImage(t, annotated, 200, 120)
	img := testsupport.AddPage(t, store, task.ID, "p.jpg", "/tmp/p.jpg")
	img.Status = queue.ImageAnnotated
	img.AnnotatedPath = annotated
	if err := store.UpdateImage(img); err != nil {
		t.Fatalf("UpdateImage: %v", err)
	}

	path, name, err := svc.Archive(context.Background(), task.ID)
	if err != nil {
		t.Fatalf("Archive: %v", err)
	}
	if !strings.HasPrefix(name, "annotated_") || !strings.HasSuffix(name, ".zip") {
		t.Fatalf("download name = %q", name)
	}

	reader, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer reader.Close()
	if len(reader.File) != 1 {
		t.Fatalf("archive entries = %d, want 1", len(reader.File))
	}
}

func TestArchiveRerendersReviewedPages(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	svc := api.NewExportService(cfg, store, logging.NewNop())

	task := testsupport.NewTask(t, store, "t", "alpha beta", []string{"alpha", "beta"})
	original := filepath.Join(cfg.Paths.UploadsDir, "p.jpg")
	testsupport.WritePageImage(t, original, 200, 120)
	stale := filepath.Join(cfg.Paths.AnnotatedDir, "stale.jpg")
	testsupport.WritePageImage(t, stale, 200, 120)

	img := testsupport.AddPage(t, store, task.ID, "p.jpg", original)
	img.Status = queue.ImageReviewed
	img.AnnotatedPath = stale
	if err := store.UpdateImage(img); err != nil {
		t.Fatalf("UpdateImage: %v", err)
	}

	if _, _, err := svc.Archive(context.Background(), task.ID); err != nil {
		t.Fatalf("Archive: %v", err)
	}

	reloaded, err := store.ImageByID(img.ID)
	if err != nil {
		t.Fatalf("ImageByID: %v", err)
	}
	if reloaded.AnnotatedPath == stale {
		t.Fatal("reviewed page was not re-rendered")
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatalf("stale render should be removed, stat err = %v", err)
	}
	if reloaded.Status != queue.ImageAnnotated {
		t.Fatalf("page status = %q, want annotated after re-render", reloaded.Status)
	}
}

func TestRenderPageScales(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	svc := api.NewExportService(cfg, store, logging.NewNop())

	task := testsupport.NewTask(t, store, "t", "alpha beta", []string{"alpha", "beta"})
	original := filepath.Join(cfg.Paths.UploadsDir, "p.jpg")
	testsupport.WritePageImage(t, original, 200, 120)
	img := testsupport.AddPage(t, store, task.ID, "p.jpg", original)

	path, err := svc.RenderPage(context.Background(), img.ID, 2)
	if err != nil {
		t.Fatalf("RenderPage: %v", err)
	}
	if filepath.Dir(path) != cfg.Paths.ExportDir {
		t.Fatalf("render landed in %q, want export dir", filepath.Dir(path))
	}
	rendered, err := imaging.Load(path)
	if err != nil {
		t.Fatalf("Load render: %v", err)
	}
	if rendered.Bounds().Dx() == 0 {
		t.Fatal("empty render")
	}

	if _, err := svc.RenderPage(context.Background(), img.ID, 8); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("oversized scale = %v, want validation", err)
	}
}

func TestCleanupSweepsArchivesAndRenders(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Export.RetentionMinutes = 1
	store := testsupport.MustOpenStore(t, cfg)
	svc := api.NewExportService(cfg, store, logging.NewNop())

	oldZip := filepath.Join(cfg.Paths.ExportDir, "annotated_old_1.zip")
	oldRender := filepath.Join(cfg.Paths.ExportDir, "page_1_old.jpg")
	testsupport.WriteFile(t, oldZip, []byte("zip"))
	testsupport.WriteFile(t, oldRender, []byte("jpg"))
	expired := time.Now().Add(-10 * time.Minute)
	for _, path := range []string{oldZip, oldRender} {
		if err := os.Chtimes(path, expired, expired); err != nil {
			t.Fatalf("Chtimes: %v", err)
		}
	}
	fresh := filepath.Join(cfg.Paths.ExportDir, "annotated_fresh_2.zip")
	testsupport.WriteFile(t, fresh, []byte("zip"))

	removed, err := svc.Cleanup(context.Background())
	if err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if removed != 2 {
		t.Fatalf("removed = %d, want 2", removed)
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Fatalf("fresh archive should survive: %v", err)
	}
}
