package export

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"log/slog"

	"redink/internal/config"
	"redink/internal/logging"
	"redink/internal/queue"
	"redink/internal/services"
	"redink/internal/textutil"
)

const maxTitleLength = 50

// Exporter builds annotated-page archives for download.
type Exporter struct {
	store  *queue.Store
	cfg    *config.Config
	logger *slog.Logger
}

// New constructs an exporter.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Exporter {
	exportLogger := logger
	if exportLogger != nil {
		exportLogger = exportLogger.With(logging.String("component", "exporter"))
	}
	return &Exporter{store: store, cfg: cfg, logger: exportLogger}
}

// ArchiveName returns the download filename for a task's archive.
func ArchiveName(task *queue.Task) string {
	title := textutil.SanitizeFileName(textutil.TruncateForFilename(strings.TrimSpace(task.Title), maxTitleLength))
	if title == "" {
		title = "task"
	}
	return fmt.Sprintf("annotated_%s_%d.zip", title, task.ID)
}

// Create writes a zip of the task's annotated pages and returns its path.
// Pages are numbered in reading order so the archive unpacks sorted.
func (e *Exporter) Create(ctx context.Context, task *queue.Task) (string, error) {
	logger := logging.WithContext(ctx, e.logger)

	images, err := e.store.ImagesForTask(task.ID)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "export", "load task images", "", err)
	}
	var annotated []*queue.Image
	for _, img := range images {
		if strings.TrimSpace(img.AnnotatedPath) != "" {
			annotated = append(annotated, img)
		}
	}
	if len(annotated) == 0 {
		return "", services.Wrap(
			services.ErrValidation, "export", "collect annotated pages",
			"task has no annotated pages yet; wait for grading to finish", nil)
	}

	dir := strings.TrimSpace(e.cfg.Paths.ExportDir)
	if dir == "" {
		return "", services.Wrap(services.ErrConfiguration, "export", "resolve export dir",
			"export directory not configured; set paths.export_dir in your redink config.toml", nil)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", services.Wrap(services.ErrConfiguration, "export", "ensure export dir", "", err)
	}

	target := filepath.Join(dir, ArchiveName(task))
	if err := e.writeArchive(ctx, target, annotated); err != nil {
		return "", err
	}

	logger.Info(
		"export archive written",
		logging.Int64(logging.FieldTaskID, task.ID),
		logging.Int("pages", len(annotated)),
		logging.String("archive", target),
	)
	return target, nil
}

func (e *Exporter) writeArchive(ctx context.Context, target string, images []*queue.Image) error {
	out, err := os.Create(target)
	if err != nil {
		return services.Wrap(services.ErrTransient, "export", "create archive", "", err)
	}
	defer func() {
		_ = out.Close()
	}()

	writer := zip.NewWriter(out)
	for i, img := range images {
		select {
		case <-ctx.Done():
			writer.Close()
			os.Remove(target)
			return ctx.Err()
		default:
		}
		if err := addPage(writer, i+1, img); err != nil {
			writer.Close()
			os.Remove(target)
			return err
		}
	}
	if err := writer.Close(); err != nil {
		os.Remove(target)
		return services.Wrap(services.ErrTransient, "export", "finalize archive", "", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(target)
		return services.Wrap(services.ErrTransient, "export", "flush archive", "", err)
	}
	return nil
}

func addPage(writer *zip.Writer, position int, img *queue.Image) error {
	in, err := os.Open(img.AnnotatedPath)
	if err != nil {
		return services.Wrap(services.ErrValidation, "export", "open annotated page",
			"annotated page file is missing; re-render the page", err)
	}
	defer in.Close()

	entry, err := writer.Create(pageEntryName(position, img.OriginalFilename))
	if err != nil {
		return services.Wrap(services.ErrTransient, "export", "create archive entry", "", err)
	}
	if _, err := io.Copy(entry, in); err != nil {
		return services.Wrap(services.ErrTransient, "export", "copy annotated page", "", err)
	}
	return nil
}

func pageEntryName(position int, originalFilename string) string {
	base := strings.TrimSuffix(originalFilename, filepath.Ext(originalFilename))
	label := textutil.SanitizeFileName(textutil.TruncateForFilename(base, maxTitleLength))
	if label == "" {
		label = "page"
	}
	return fmt.Sprintf("%02d_%s.jpg", position, label)
}

// CleanupExpired deletes archives and single-page renders older than the
// configured retention and reports how many were removed.
func (e *Exporter) CleanupExpired(ctx context.Context) (int, error) {
	logger := logging.WithContext(ctx, e.logger)

	retention := time.Duration(e.cfg.Export.RetentionMinutes) * time.Minute
	if retention <= 0 {
		return 0, nil
	}
	dir := strings.TrimSpace(e.cfg.Paths.ExportDir)
	if dir == "" {
		return 0, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	cutoff := time.Now().Add(-retention)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !strings.HasSuffix(entry.Name(), ".zip") && !strings.HasSuffix(entry.Name(), ".jpg") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := os.Remove(path); err != nil {
			logger.Warn("could not remove expired archive", logging.Error(err), logging.String("path", path))
			continue
		}
		removed++
	}
	if removed > 0 {
		logger.Info("expired archives removed", logging.Int("count", removed))
	}
	return removed, nil
}
