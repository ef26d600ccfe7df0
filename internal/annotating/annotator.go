package annotating

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"log/slog"

	"github.com/google/uuid"

	"redink/internal/annotation"
	"redink/internal/config"
	"redink/internal/imaging"
	"redink/internal/logging"
	"redink/internal/queue"
	"redink/internal/services"
	"redink/internal/stage"
)

// Annotator renders marked-up pages for every image of a task.
type Annotator struct {
	store  *queue.Store
	cfg    *config.Config
	logger *slog.Logger
	style  annotation.Style
}

// New constructs the annotating stage handler.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Annotator {
	stageLogger := logger
	if stageLogger != nil {
		stageLogger = stageLogger.With(logging.String("component", "annotator"))
	}
	return &Annotator{store: store, cfg: cfg, logger: stageLogger, style: annotation.DefaultStyle()}
}

// SetLogger installs the per-task logger the workflow manager provides.
func (a *Annotator) SetLogger(logger *slog.Logger) {
	if logger != nil {
		a.logger = logger
	}
}

func (a *Annotator) Prepare(ctx context.Context, task *queue.Task) error {
	logger := logging.WithContext(ctx, a.logger)
	task.ErrorMessage = ""
	logger.Info("starting annotation rendering", logging.Int("total_images", task.TotalImages))
	return nil
}

func (a *Annotator) Execute(ctx context.Context, task *queue.Task) error {
	logger := logging.WithContext(ctx, a.logger)
	images, err := stage.TaskImages(a.store, task)
	if err != nil {
		return err
	}

	rendered := 0
	for _, img := range images {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := a.AnnotateImage(ctx, task, img); err != nil {
			return err
		}
		rendered++
	}

	logger.Info("annotation rendering finished", logging.Int("pages", rendered))
	return nil
}

// AnnotateImage renders one page and persists the annotated output path.
// It is also called outside the workflow when a teacher edits marks on an
// already graded page.
func (a *Annotator) AnnotateImage(ctx context.Context, task *queue.Task, img *queue.Image) error {
	logger := logging.WithContext(ctx, a.logger)

	annotations, err := a.store.AnnotationsForImage(img.ID)
	if err != nil {
		return services.Wrap(services.ErrTransient, "annotating", "load annotations", "", err)
	}

	base, err := imaging.Load(img.Path)
	if err != nil {
		return services.Wrap(services.ErrValidation, "annotating", "load page image",
			"page image is missing or unreadable", err)
	}

	marked, err := annotation.Render(base, annotations, a.style)
	if err != nil {
		return services.Wrap(services.ErrTransient, "annotating", "render marks", "", err)
	}

	dir := strings.TrimSpace(a.cfg.Paths.AnnotatedDir)
	if dir == "" {
		return services.Wrap(services.ErrConfiguration, "annotating", "resolve annotated dir",
			"annotated directory not configured; set paths.annotated_dir in your redink config.toml", nil)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return services.Wrap(services.ErrConfiguration, "annotating", "ensure annotated dir", "", err)
	}

	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	target := filepath.Join(dir, fmt.Sprintf("%d_%d_%s.jpg", task.ID, img.ID, suffix))
	if err := imaging.SaveJPEG(marked, target, a.cfg.Annotate.JPEGQuality); err != nil {
		return services.Wrap(services.ErrTransient, "annotating", "write annotated page", "", err)
	}

	previous := img.AnnotatedPath
	img.AnnotatedPath = target
	img.Status = queue.ImageAnnotated
	img.ErrorMessage = ""
	if err := a.store.UpdateImage(img); err != nil {
		return services.Wrap(services.ErrTransient, "annotating", "persist annotated page", "", err)
	}
	if previous != "" && previous != target {
		if err := os.Remove(previous); err != nil && !os.IsNotExist(err) {
			logger.Warn("could not remove stale annotated page",
				logging.Error(err), logging.String("path", previous))
		}
	}

	logger.Info(
		"page annotated",
		logging.Int64("image_id", img.ID),
		logging.Int("marks", len(annotations)),
		logging.String("annotated_path", target),
	)
	return nil
}

// HealthCheck verifies annotator prerequisites such as output paths.
func (a *Annotator) HealthCheck(ctx context.Context) stage.Health {
	const name = "annotator"
	if a.cfg == nil {
		return stage.Unhealthy(name, "configuration unavailable")
	}
	if strings.TrimSpace(a.cfg.Paths.AnnotatedDir) == "" {
		return stage.Unhealthy(name, "annotated directory not configured")
	}
	return stage.Healthy(name)
}
