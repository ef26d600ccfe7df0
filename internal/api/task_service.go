package api

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"redink/internal/config"
	"redink/internal/diff"
	"redink/internal/logging"
	"redink/internal/queue"
	"redink/internal/services"
	"redink/internal/textutil"
)

// TaskService owns the task lifecycle exposed over HTTP and IPC.
type TaskService struct {
	cfg    *config.Config
	store  *queue.Store
	logger *slog.Logger
}

// NewTaskService constructs a TaskService.
func NewTaskService(cfg *config.Config, store *queue.Store, logger *slog.Logger) *TaskService {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &TaskService{cfg: cfg, store: store, logger: logger.With(logging.String(logging.FieldComponent, "task-service"))}
}

// CreateTaskRequest carries the fields accepted on task creation.
type CreateTaskRequest struct {
	Title         string `json:"title"`
	ReferenceText string `json:"referenceText"`
	OCRModel      string `json:"ocrModel,omitempty"`
}

// Create validates and stores a new task in the editing state. The
// reference text is cleaned of scaffolding lines and tokenized once so
// later diff runs all see the same word list.
func (s *TaskService) Create(req CreateTaskRequest) (*Task, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, services.Wrap(services.ErrValidation, "api", "create task", "title is required", nil)
	}

	cleaned := textutil.CleanReferenceText(req.ReferenceText)
	words := diff.SplitWords(cleaned)
	if len(words) == 0 {
		return nil, services.Wrap(services.ErrValidation, "api", "create task",
			"reference text contains no gradable words", nil)
	}

	task := &queue.Task{
		Title:         title,
		ReferenceText: cleaned,
		Status:        queue.StatusEditing,
		OCRModel:      strings.TrimSpace(req.OCRModel),
	}
	if err := task.SetReferenceWords(words); err != nil {
		return nil, err
	}
	if err := s.store.Add(task); err != nil {
		return nil, err
	}

	s.logger.Info("task created",
		logging.Int64(logging.FieldTaskID, task.ID),
		logging.Int("reference_words", len(words)))
	dto := FromTask(task)
	return &dto, nil
}

// List returns one page of task summaries plus the total count.
func (s *TaskService) List(offset, limit int) (*TaskListResponse, error) {
	tasks, total, err := s.store.ListPage(offset, limit)
	if err != nil {
		return nil, err
	}
	return &TaskListResponse{Tasks: FromTasks(tasks), Total: total}, nil
}

// Describe returns one task with full reference text and its pages.
func (s *TaskService) Describe(id int64) (*Task, error) {
	task, err := s.store.ByID(id)
	if err != nil {
		return nil, err
	}
	dto := FromTask(task)
	dto.ReferenceText = task.ReferenceText

	images, err := s.store.ImagesForTask(id)
	if err != nil {
		return nil, err
	}
	for _, img := range images {
		imageDTO, err := FromImageDetail(img)
		if err != nil {
			return nil, err
		}
		dto.Images = append(dto.Images, imageDTO)
	}
	return &dto, nil
}

// UpdateTaskRequest carries the mutable task fields. Nil pointers leave
// the stored value untouched.
type UpdateTaskRequest struct {
	Title         *string `json:"title,omitempty"`
	ReferenceText *string `json:"referenceText,omitempty"`
	OCRModel      *string `json:"ocrModel,omitempty"`
}

// Update edits title, reference text, or model override. A reference
// change on a task whose pages are already recognized requeues the
// comparison so stored diffs never disagree with the reference.
func (s *TaskService) Update(id int64, req UpdateTaskRequest) (*Task, error) {
	task, err := s.store.ByID(id)
	if err != nil {
		return nil, err
	}
	if queue.LaneForStatus(task.Status) != "" {
		return nil, fmt.Errorf("task %d is being processed: %w", id, ErrConflict)
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, services.Wrap(services.ErrValidation, "api", "update task", "title is required", nil)
		}
		task.Title = title
	}
	if req.OCRModel != nil {
		task.OCRModel = strings.TrimSpace(*req.OCRModel)
	}

	referenceChanged := false
	if req.ReferenceText != nil {
		cleaned := textutil.CleanReferenceText(*req.ReferenceText)
		words := diff.SplitWords(cleaned)
		if len(words) == 0 {
			return nil, services.Wrap(services.ErrValidation, "api", "update task",
				"reference text contains no gradable words", nil)
		}
		referenceChanged = cleaned != task.ReferenceText
		task.ReferenceText = cleaned
		if err := task.SetReferenceWords(words); err != nil {
			return nil, err
		}
	}

	if referenceChanged {
		requeued, err := s.requeueComparison(task)
		if err != nil {
			return nil, err
		}
		if requeued {
			s.logger.Info("reference changed, comparison requeued",
				logging.Int64(logging.FieldTaskID, task.ID))
		}
	}

	if err := s.store.Update(task); err != nil {
		return nil, err
	}
	dto := FromTask(task)
	dto.ReferenceText = task.ReferenceText
	return &dto, nil
}

// Delete removes a task, its database rows, and every file it produced.
func (s *TaskService) Delete(id int64) error {
	task, err := s.store.ByID(id)
	if err != nil {
		return err
	}
	if queue.LaneForStatus(task.Status) != "" {
		return fmt.Errorf("task %d is being processed: %w", id, ErrConflict)
	}

	images, err := s.store.ImagesForTask(id)
	if err != nil {
		return err
	}
	for _, img := range images {
		removeImageFiles(s.logger, img)
	}
	if err := s.store.Remove(id); err != nil {
		return err
	}
	s.logger.Info("task deleted", logging.Int64(logging.FieldTaskID, id))
	return nil
}

// Process enqueues a task for grading. With force set, every page is
// reset and recognized again; otherwise pages that already have OCR
// results keep them and only the diff and annotations are rebuilt.
func (s *TaskService) Process(id int64, force bool) (*Task, error) {
	task, err := s.store.ByID(id)
	if err != nil {
		return nil, err
	}
	if queue.LaneForStatus(task.Status) != "" {
		return nil, fmt.Errorf("task %d is already being processed: %w", id, ErrConflict)
	}

	images, err := s.store.ImagesForTask(id)
	if err != nil {
		return nil, err
	}
	if len(images) == 0 {
		return nil, services.Wrap(services.ErrValidation, "api", "process task",
			"task has no uploaded pages; add at least one image", nil)
	}

	if force {
		for _, img := range images {
			img.Status = queue.ImagePending
			img.OCRRawText = ""
			img.OCRWordsJSON = ""
			img.DiffOpsJSON = ""
			img.ErrorMessage = ""
			if err := s.store.UpdateImage(img); err != nil {
				return nil, err
			}
		}
		task.Status = queue.StatusPending
		task.CompletedImages = 0
	} else if allRecognized(images) {
		task.Status = queue.StatusTranscribed
	} else {
		task.Status = queue.StatusPending
	}
	task.ErrorMessage = ""
	task.ReviewReason = ""

	if err := s.store.Update(task); err != nil {
		return nil, err
	}
	s.logger.Info("task enqueued",
		logging.Int64(logging.FieldTaskID, task.ID),
		logging.String("status", string(task.Status)),
		logging.Bool("force", force))
	dto := FromTask(task)
	return &dto, nil
}

// Stats aggregates diff tallies across the task's pages.
func (s *TaskService) Stats(id int64) (*TaskStats, error) {
	task, err := s.store.ByID(id)
	if err != nil {
		return nil, err
	}
	images, err := s.store.ImagesForTask(task.ID)
	if err != nil {
		return nil, err
	}

	stats := &TaskStats{TaskID: task.ID}
	var overall diff.Stats
	for _, img := range images {
		ops, err := img.DiffOps()
		if err != nil {
			return nil, err
		}
		bare := make([]diff.Op, len(ops))
		for i, op := range ops {
			bare[i] = op.Op
		}
		tally := diff.Tally(bare)
		overall.Observe(bare)
		stats.Images = append(stats.Images, ImageStats{
			ImageID:     img.ID,
			SortOrder:   img.SortOrder,
			Correct:     tally.Correct,
			Wrong:       tally.Wrong,
			Missing:     tally.Missing,
			Extra:       tally.Extra,
			AccuracyPct: tally.AccuracyPct(),
		})
	}
	stats.Correct = overall.Correct
	stats.Wrong = overall.Wrong
	stats.Missing = overall.Missing
	stats.Extra = overall.Extra
	stats.Total = overall.Total()
	stats.AccuracyPct = overall.AccuracyPct()
	return stats, nil
}

// requeueComparison moves an idle task back to the comparison stage when
// all of its pages already carry OCR results. It reports whether the
// task status changed; the caller persists the task.
func (s *TaskService) requeueComparison(task *queue.Task) (bool, error) {
	images, err := s.store.ImagesForTask(task.ID)
	if err != nil {
		return false, err
	}
	if len(images) == 0 || !allRecognized(images) {
		return false, nil
	}
	task.Status = queue.StatusTranscribed
	task.ErrorMessage = ""
	task.ReviewReason = ""
	return true, nil
}

func allRecognized(images []*queue.Image) bool {
	for _, img := range images {
		switch img.Status {
		case queue.ImageOCRDone, queue.ImageDiffDone, queue.ImageAnnotated, queue.ImageReviewed:
		default:
			return false
		}
	}
	return true
}

func removeImageFiles(logger *slog.Logger, img *queue.Image) {
	for _, path := range []string{img.Path, img.AnnotatedPath} {
		if strings.TrimSpace(path) == "" {
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Warn("failed to remove image file",
				logging.Int64(logging.FieldImageID, img.ID),
				logging.String("path", path),
				logging.Error(err))
		}
	}
}
