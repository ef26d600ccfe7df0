package api

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"redink/internal/annotating"
	"redink/internal/annotation"
	"redink/internal/config"
	"redink/internal/export"
	"redink/internal/imaging"
	"redink/internal/logging"
	"redink/internal/queue"
	"redink/internal/services"
)

// ExportService builds downloadable artifacts from graded tasks. Pages
// whose marks were edited after the workflow rendered them are
// re-rendered first so the archive reflects the teacher's corrections.
type ExportService struct {
	cfg       *config.Config
	store     *queue.Store
	logger    *slog.Logger
	annotator *annotating.Annotator
	exporter  *export.Exporter
}

// NewExportService constructs an ExportService.
func NewExportService(cfg *config.Config, store *queue.Store, logger *slog.Logger) *ExportService {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &ExportService{
		cfg:       cfg,
		store:     store,
		logger:    logger.With(logging.String(logging.FieldComponent, "export-service")),
		annotator: annotating.New(cfg, store, logger),
		exporter:  export.New(cfg, store, logger),
	}
}

// Archive re-renders stale pages and writes the task's zip archive.
// It returns the archive path on disk and its download name.
func (s *ExportService) Archive(ctx context.Context, taskID int64) (string, string, error) {
	task, err := s.store.ByID(taskID)
	if err != nil {
		return "", "", err
	}

	images, err := s.store.ImagesForTask(taskID)
	if err != nil {
		return "", "", err
	}
	for _, img := range images {
		if img.Status != queue.ImageReviewed {
			continue
		}
		if err := s.annotator.AnnotateImage(ctx, task, img); err != nil {
			return "", "", err
		}
	}

	path, err := s.exporter.Create(ctx, task)
	if err != nil {
		return "", "", err
	}
	return path, export.ArchiveName(task), nil
}

// RenderPage re-renders one page at a caller-chosen scale factor into
// the export directory, without touching the stored annotated output.
// Factors above one enlarge the marks for print layouts.
func (s *ExportService) RenderPage(ctx context.Context, imageID int64, scale float64) (string, error) {
	if scale <= 0 {
		scale = 1
	}
	if scale > 4 {
		return "", services.Wrap(services.ErrValidation, "api", "render page",
			fmt.Sprintf("scale factor %.1f is out of range (max 4)", scale), nil)
	}

	img, err := s.store.ImageByID(imageID)
	if err != nil {
		return "", err
	}
	annotations, err := s.store.AnnotationsForImage(imageID)
	if err != nil {
		return "", err
	}

	base, err := imaging.Load(img.Path)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "api", "render page",
			"page image is missing or unreadable", err)
	}

	style := annotation.DefaultStyle()
	if scale != 1 {
		style.ReferenceHeight = int(math.Round(float64(style.ReferenceHeight) / scale))
	}
	marked, err := annotation.Render(base, annotations, style)
	if err != nil {
		return "", err
	}

	exportDir := strings.TrimSpace(s.cfg.Paths.ExportDir)
	if exportDir == "" {
		return "", services.Wrap(services.ErrConfiguration, "api", "render page",
			"export directory is not configured", nil)
	}
	if err := os.MkdirAll(exportDir, 0o755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}

	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	target := filepath.Join(exportDir, fmt.Sprintf("page_%d_%s.jpg", img.ID, suffix))
	if err := imaging.SaveJPEG(marked, target, s.cfg.Annotate.JPEGQuality); err != nil {
		return "", err
	}
	s.logger.Info("page rendered for export",
		logging.Int64(logging.FieldImageID, imageID),
		logging.Float64("scale", scale),
		logging.String("path", target))
	return target, nil
}

// Cleanup removes expired export files.
func (s *ExportService) Cleanup(ctx context.Context) (int, error) {
	return s.exporter.CleanupExpired(ctx)
}
