package api

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"redink/internal/config"
	"redink/internal/diff"
	"redink/internal/logging"
	"redink/internal/queue"
	"redink/internal/services"
)

// uploadExtensions are the page image formats accepted for upload.
var uploadExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".webp": {},
}

// correctedConfidence replaces the model confidence on words the user
// retyped; the bbox may no longer match the ink exactly.
const correctedConfidence = 0.5

// ImageService owns page uploads, ordering, and OCR text corrections.
type ImageService struct {
	cfg    *config.Config
	store  *queue.Store
	logger *slog.Logger
}

// NewImageService constructs an ImageService.
func NewImageService(cfg *config.Config, store *queue.Store, logger *slog.Logger) *ImageService {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &ImageService{cfg: cfg, store: store, logger: logger.With(logging.String(logging.FieldComponent, "image-service"))}
}

// Upload stores a page image under a fresh opaque name and appends it to
// the task's page list.
func (s *ImageService) Upload(taskID int64, filename string, data []byte) (*Image, error) {
	task, err := s.store.ByID(taskID)
	if err != nil {
		return nil, err
	}
	if queue.LaneForStatus(task.Status) != "" {
		return nil, fmt.Errorf("task %d is being processed: %w", taskID, ErrConflict)
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := uploadExtensions[ext]; !ok {
		return nil, services.Wrap(services.ErrValidation, "api", "upload image",
			fmt.Sprintf("unsupported image extension %q", ext), nil)
	}
	if len(data) == 0 {
		return nil, services.Wrap(services.ErrValidation, "api", "upload image", "image data is empty", nil)
	}

	uploadsDir := strings.TrimSpace(s.cfg.Paths.UploadsDir)
	if uploadsDir == "" {
		return nil, services.Wrap(services.ErrConfiguration, "api", "upload image", "uploads directory is not configured", nil)
	}
	if err := os.MkdirAll(uploadsDir, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads directory: %w", err)
	}

	storedName := strings.ReplaceAll(uuid.NewString(), "-", "") + ext
	storedPath := filepath.Join(uploadsDir, storedName)
	if err := os.WriteFile(storedPath, data, 0o644); err != nil {
		return nil, fmt.Errorf("write uploaded image: %w", err)
	}

	img := &queue.Image{
		TaskID:           taskID,
		OriginalFilename: filepath.Base(filename),
		Path:             storedPath,
		Status:           queue.ImagePending,
	}
	if err := s.store.AddImage(img); err != nil {
		_ = os.Remove(storedPath)
		return nil, err
	}

	task.TotalImages++
	if err := s.store.Update(task); err != nil {
		return nil, err
	}

	s.logger.Info("page uploaded",
		logging.Int64(logging.FieldTaskID, taskID),
		logging.Int64(logging.FieldImageID, img.ID),
		logging.String("filename", img.OriginalFilename))
	dto := FromImage(img)
	return &dto, nil
}

// Reorder reassigns page positions. When every page already carries OCR
// results the comparison is requeued, since page order decides how the
// reference flows across pages.
func (s *ImageService) Reorder(taskID int64, orderedIDs []int64) error {
	task, err := s.store.ByID(taskID)
	if err != nil {
		return err
	}
	if queue.LaneForStatus(task.Status) != "" {
		return fmt.Errorf("task %d is being processed: %w", taskID, ErrConflict)
	}

	if err := s.store.ReorderImages(taskID, orderedIDs); err != nil {
		return services.Wrap(services.ErrValidation, "api", "reorder images", err.Error(), nil)
	}

	images, err := s.store.ImagesForTask(taskID)
	if err != nil {
		return err
	}
	if len(images) > 0 && allRecognized(images) {
		task.Status = queue.StatusTranscribed
		task.ErrorMessage = ""
		task.ReviewReason = ""
		if err := s.store.Update(task); err != nil {
			return err
		}
		s.logger.Info("pages reordered, comparison requeued", logging.Int64(logging.FieldTaskID, taskID))
	}
	return nil
}

// Describe returns one page including words and diff operations.
func (s *ImageService) Describe(imageID int64) (*Image, error) {
	img, err := s.store.ImageByID(imageID)
	if err != nil {
		return nil, err
	}
	dto, err := FromImageDetail(img)
	if err != nil {
		return nil, err
	}
	return &dto, nil
}

// CorrectText replaces a page's recognized text with a user-typed
// correction, rebuilds the stored word list against the old one so
// surviving words keep their bounding boxes, and requeues the
// comparison.
func (s *ImageService) CorrectText(imageID int64, corrected string) (*Image, error) {
	img, err := s.store.ImageByID(imageID)
	if err != nil {
		return nil, err
	}
	task, err := s.store.ByID(img.TaskID)
	if err != nil {
		return nil, err
	}
	if queue.LaneForStatus(task.Status) != "" {
		return nil, fmt.Errorf("task %d is being processed: %w", task.ID, ErrConflict)
	}

	newTokens := diff.SplitWords(corrected)
	if len(newTokens) == 0 {
		return nil, services.Wrap(services.ErrValidation, "api", "correct text",
			"corrected text contains no words", nil)
	}

	oldWords, err := img.Words()
	if err != nil {
		return nil, err
	}
	rebuilt := rebuildWords(oldWords, newTokens)

	if err := img.SetWords(rebuilt); err != nil {
		return nil, err
	}
	img.OCRRawText = strings.Join(newTokens, " ")
	img.DiffOpsJSON = ""
	img.Status = queue.ImageOCRDone
	img.ErrorMessage = ""
	if err := s.store.UpdateImage(img); err != nil {
		return nil, err
	}

	images, err := s.store.ImagesForTask(task.ID)
	if err != nil {
		return nil, err
	}
	if allRecognized(images) {
		task.Status = queue.StatusTranscribed
		task.ErrorMessage = ""
		task.ReviewReason = ""
		if err := s.store.Update(task); err != nil {
			return nil, err
		}
	}

	s.logger.Info("page text corrected",
		logging.Int64(logging.FieldTaskID, task.ID),
		logging.Int64(logging.FieldImageID, img.ID),
		logging.Int("word_count", len(rebuilt)))
	dto, err := FromImageDetail(img)
	if err != nil {
		return nil, err
	}
	return &dto, nil
}

// Remove deletes a page, its stored files, and renumbers the rest.
func (s *ImageService) Remove(imageID int64) error {
	img, err := s.store.ImageByID(imageID)
	if err != nil {
		return err
	}
	task, err := s.store.ByID(img.TaskID)
	if err != nil {
		return err
	}
	if queue.LaneForStatus(task.Status) != "" {
		return fmt.Errorf("task %d is being processed: %w", task.ID, ErrConflict)
	}

	removeImageFiles(s.logger, img)
	if err := s.store.RemoveImage(imageID); err != nil {
		return err
	}

	images, err := s.store.ImagesForTask(task.ID)
	if err != nil {
		return err
	}
	task.TotalImages = len(images)
	completed := 0
	for _, remaining := range images {
		if remaining.Status != queue.ImagePending && remaining.Status != queue.ImageFailed {
			completed++
		}
	}
	task.CompletedImages = completed
	return s.store.Update(task)
}

// rebuildWords aligns the user's corrected tokens against the previous
// word list. Matching words keep bbox and confidence, retyped words keep
// the positional bbox with a reduced confidence, and inserted words get
// a zero bbox so the comparison stage infers a position for them.
//
// The alignment is positional: a correction that expands a contraction
// into several tokens must yield one word per token, so this uses
// diff.Align rather than diff.Compute.
func rebuildWords(oldWords []queue.Word, newTokens []string) []queue.Word {
	oldTexts := make([]string, len(oldWords))
	for i, w := range oldWords {
		oldTexts[i] = w.Text
	}

	ops := diff.Align(oldTexts, newTokens)
	rebuilt := make([]queue.Word, 0, len(newTokens))
	for _, op := range ops {
		if op.RefIndex == nil {
			continue
		}
		word := queue.Word{Text: newTokens[*op.RefIndex], Confidence: correctedConfidence}
		if op.OcrIndex != nil {
			old := oldWords[*op.OcrIndex]
			word.BBox = old.BBox
			if op.Type == diff.Correct {
				word.Confidence = old.Confidence
			}
		}
		rebuilt = append(rebuilt, word)
	}
	return rebuilt
}
