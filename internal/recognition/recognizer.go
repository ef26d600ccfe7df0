package recognition

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"log/slog"

	"redink/internal/config"
	"redink/internal/imaging"
	"redink/internal/logging"
	"redink/internal/queue"
	"redink/internal/services"
	"redink/internal/services/ocr"
	"redink/internal/stage"
)

// Transcriber describes the vision model client used to read a page.
type Transcriber interface {
	Transcribe(ctx context.Context, imageData []byte, mimeType string, width, height int) (ocr.Result, error)
}

// Recognizer runs handwriting transcription for every page of a task.
type Recognizer struct {
	store  *queue.Store
	cfg    *config.Config
	logger *slog.Logger
	client Transcriber
}

// New constructs the recognition stage handler using default dependencies.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Recognizer {
	client := ocr.NewClient(ocr.Config{
		APIKey:         cfg.OCR.APIKey,
		BaseURL:        cfg.OCR.BaseURL,
		Model:          cfg.OCR.Model,
		TimeoutSeconds: cfg.OCR.TimeoutSeconds,
		MaxAttempts:    cfg.OCR.MaxAttempts,
		RetryDelaySecs: cfg.OCR.RetryDelaySeconds,
	})
	return NewWithDependencies(cfg, store, logger, client)
}

// NewWithDependencies allows injecting collaborators (used in tests).
func NewWithDependencies(cfg *config.Config, store *queue.Store, logger *slog.Logger, client Transcriber) *Recognizer {
	stageLogger := logger
	if stageLogger != nil {
		stageLogger = stageLogger.With(logging.String("component", "recognizer"))
	}
	return &Recognizer{store: store, cfg: cfg, logger: stageLogger, client: client}
}

// SetLogger installs the per-task logger the workflow manager provides.
func (r *Recognizer) SetLogger(logger *slog.Logger) {
	if logger != nil {
		r.logger = logger
	}
}

func (r *Recognizer) Prepare(ctx context.Context, task *queue.Task) error {
	logger := logging.WithContext(ctx, r.logger)
	images, err := stage.TaskImages(r.store, task)
	if err != nil {
		return err
	}
	task.ErrorMessage = ""
	task.TotalImages = len(images)
	done := 0
	for _, img := range images {
		if imageTranscribed(img.Status) {
			done++
		}
	}
	task.CompletedImages = done
	logger.Info(
		"starting page recognition",
		logging.Int("total_images", task.TotalImages),
		logging.Int("already_transcribed", done),
		logging.String("model", strings.TrimSpace(r.cfg.OCR.Model)),
	)
	return nil
}

func (r *Recognizer) Execute(ctx context.Context, task *queue.Task) error {
	logger := logging.WithContext(ctx, r.logger)
	images, err := stage.TaskImages(r.store, task)
	if err != nil {
		return err
	}

	totalWords := 0
	for _, img := range images {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if imageTranscribed(img.Status) {
			words, wordsErr := img.Words()
			if wordsErr == nil {
				totalWords += len(words)
			}
			continue
		}

		count, err := r.transcribeImage(ctx, logger, img)
		if err != nil {
			return err
		}
		totalWords += count
		task.CompletedImages++
		if err := r.store.Update(task); err != nil {
			logger.Warn("failed to persist recognition progress", logging.Error(err))
		}
	}

	if totalWords == 0 {
		return services.Wrap(
			services.ErrValidation, "recognition", "verify transcription",
			"no handwriting recognized on any page; check image quality and orientation", nil)
	}

	logger.Info(
		"page recognition finished",
		logging.Int("total_images", len(images)),
		logging.Int("total_words", totalWords),
	)
	return nil
}

func (r *Recognizer) transcribeImage(ctx context.Context, logger *slog.Logger, img *queue.Image) (int, error) {
	img.Status = queue.ImageOCRRunning
	img.ErrorMessage = ""
	if err := r.store.UpdateImage(img); err != nil {
		return 0, services.Wrap(services.ErrTransient, "recognition", "mark page running", "", err)
	}

	prepared, cleanup, err := imaging.PrepareForOCR(img.Path, imaging.Options{
		Deskew:          r.cfg.Preprocess.Deskew,
		EnhanceContrast: r.cfg.Preprocess.EnhanceContrast,
		JPEGQuality:     r.cfg.Annotate.JPEGQuality,
	})
	if err != nil {
		logger.Warn("page preprocessing failed, using original image",
			logging.Error(err), logging.Int64("image_id", img.ID))
	}
	defer cleanup()

	page, err := imaging.Load(prepared)
	if err != nil {
		r.markImageFailed(logger, img, fmt.Sprintf("load page image: %v", err))
		return 0, services.Wrap(services.ErrValidation, "recognition", "load page image",
			"page image is missing or unreadable", err)
	}
	data, err := os.ReadFile(prepared)
	if err != nil {
		r.markImageFailed(logger, img, fmt.Sprintf("read page image: %v", err))
		return 0, services.Wrap(services.ErrTransient, "recognition", "read page image", "", err)
	}

	bounds := page.Bounds()
	result, err := r.client.Transcribe(ctx, data, mimeTypeFor(prepared), bounds.Dx(), bounds.Dy())
	if err != nil {
		r.markImageFailed(logger, img, fmt.Sprintf("transcribe page: %v", err))
		return 0, services.Wrap(services.ErrTransient, "recognition", "transcribe page", "", err)
	}

	words := make([]queue.Word, 0, len(result.Words))
	for _, w := range result.Words {
		box := w.Box
		if r.cfg.Preprocess.RefineBBoxes {
			box = imaging.RefineBox(page, box, r.cfg.Preprocess.BBoxPadRatio)
		}
		words = append(words, queue.Word{Text: w.Text, BBox: box, Confidence: w.Confidence})
	}
	if err := img.SetWords(words); err != nil {
		return 0, services.Wrap(services.ErrTransient, "recognition", "encode words", "", err)
	}
	img.OCRRawText = result.RawText
	img.Status = queue.ImageOCRDone
	img.ErrorMessage = ""
	if err := r.store.UpdateImage(img); err != nil {
		return 0, services.Wrap(services.ErrTransient, "recognition", "persist transcription", "", err)
	}

	logger.Info(
		"page transcribed",
		logging.Int64("image_id", img.ID),
		logging.Int("words", len(words)),
	)
	return len(words), nil
}

func (r *Recognizer) markImageFailed(logger *slog.Logger, img *queue.Image, message string) {
	img.Status = queue.ImageFailed
	img.ErrorMessage = message
	if err := r.store.UpdateImage(img); err != nil {
		logger.Warn("failed to persist page failure", logging.Error(err), logging.Int64("image_id", img.ID))
	}
}

// HealthCheck verifies recognizer prerequisites such as OCR credentials.
func (r *Recognizer) HealthCheck(ctx context.Context) stage.Health {
	const name = "recognizer"
	if r.cfg == nil {
		return stage.Unhealthy(name, "configuration unavailable")
	}
	if strings.TrimSpace(r.cfg.OCR.APIKey) == "" {
		return stage.Unhealthy(name, "ocr api key not configured")
	}
	if r.client == nil {
		return stage.Unhealthy(name, "ocr client unavailable")
	}
	return stage.Healthy(name)
}

func imageTranscribed(status queue.ImageStatus) bool {
	switch status {
	case queue.ImageOCRDone, queue.ImageDiffDone, queue.ImageAnnotated, queue.ImageReviewed:
		return true
	}
	return false
}

func mimeTypeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
