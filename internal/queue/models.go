package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"redink/internal/diff"
)

// Status represents the lifecycle state of a grading task.
type Status string

const (
	// StatusEditing is the initial state: the task exists but the user is
	// still uploading pages, so no lane may claim it yet.
	StatusEditing      Status = "editing"
	StatusPending      Status = "pending"
	StatusTranscribing Status = "transcribing"
	StatusTranscribed  Status = "transcribed"
	StatusComparing    Status = "comparing"
	StatusCompared     Status = "compared"
	StatusAnnotating   Status = "annotating"
	StatusCompleted    Status = "completed"
	StatusFailed       Status = "failed"
	StatusReview       Status = "review"
)

var statusSet = map[Status]struct{}{
	StatusEditing:      {},
	StatusPending:      {},
	StatusTranscribing: {},
	StatusTranscribed:  {},
	StatusComparing:    {},
	StatusCompared:     {},
	StatusAnnotating:   {},
	StatusCompleted:    {},
	StatusFailed:       {},
	StatusReview:       {},
}

// processingStatuses are the transient states a worker holds while it
// owns a task. Tasks stuck in one of these after a crash get reset.
var processingStatuses = []Status{
	StatusTranscribing,
	StatusComparing,
	StatusAnnotating,
}

// ParseStatus validates a raw string from the CLI or API.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if _, ok := statusSet[s]; !ok {
		return "", fmt.Errorf("unknown status %q", raw)
	}
	return s, nil
}

// IsProcessing reports whether the status indicates an active worker.
func (s Status) IsProcessing() bool {
	for _, p := range processingStatuses {
		if s == p {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the task has finished, successfully or not.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// ProcessingLane partitions workflow work so slow comparison and
// annotation work cannot starve OCR of new uploads.
type ProcessingLane string

const (
	// LaneRecognition handles OCR transcription of freshly uploaded pages.
	LaneRecognition ProcessingLane = "recognition"
	// LaneGrading handles word diffing and annotation rendering.
	LaneGrading ProcessingLane = "grading"
)

// LaneForStatus returns the lane responsible for advancing a task in the
// given status, or "" when no lane claims it.
func LaneForStatus(s Status) ProcessingLane {
	switch s {
	case StatusPending, StatusTranscribing:
		return LaneRecognition
	case StatusTranscribed, StatusComparing, StatusCompared, StatusAnnotating:
		return LaneGrading
	}
	return ""
}

// ImageStatus represents the per-page lifecycle within a task.
type ImageStatus string

const (
	ImagePending    ImageStatus = "pending"
	ImageOCRRunning ImageStatus = "ocr_running"
	ImageOCRDone    ImageStatus = "ocr_done"
	ImageDiffDone   ImageStatus = "diff_done"
	ImageAnnotated  ImageStatus = "annotated"
	ImageReviewed   ImageStatus = "reviewed"
	ImageFailed     ImageStatus = "failed"
)

var imageStatusSet = map[ImageStatus]struct{}{
	ImagePending:    {},
	ImageOCRRunning: {},
	ImageOCRDone:    {},
	ImageDiffDone:   {},
	ImageAnnotated:  {},
	ImageReviewed:   {},
	ImageFailed:     {},
}

// ParseImageStatus validates a raw per-page status string.
func ParseImageStatus(raw string) (ImageStatus, error) {
	s := ImageStatus(raw)
	if _, ok := imageStatusSet[s]; !ok {
		return "", fmt.Errorf("unknown image status %q", raw)
	}
	return s, nil
}

// Word is one recognized word with its pixel bounding box.
type Word struct {
	Text       string     `json:"text"`
	BBox       [4]float64 `json:"bbox"`
	Confidence float64    `json:"confidence"`
}

// ImageOp is a diff operation localized to one page, carrying the OCR
// confidence of the word it refers to when one exists.
type ImageOp struct {
	diff.Op
	OcrConfidence *float64 `json:"ocr_confidence,omitempty"`
}

// Task is one grading job: a reference text plus one or more page images.
type Task struct {
	ID            int64
	Title         string
	ReferenceText string
	// ReferenceWordsJSON caches the tokenized reference so recomputation
	// after OCR corrections does not re-tokenize edited text differently.
	ReferenceWordsJSON string
	Status             Status
	OCRModel           string
	ErrorMessage       string
	ReviewReason       string
	TotalImages        int
	CompletedImages    int
	CreatedAt          time.Time
	UpdatedAt          time.Time
	LastHeartbeat      *time.Time
}

// ReferenceWords decodes the cached reference token list.
func (t *Task) ReferenceWords() ([]string, error) {
	if t.ReferenceWordsJSON == "" {
		return nil, nil
	}
	var words []string
	if err := json.Unmarshal([]byte(t.ReferenceWordsJSON), &words); err != nil {
		return nil, fmt.Errorf("decoding reference words for task %d: %w", t.ID, err)
	}
	return words, nil
}

// SetReferenceWords stores the tokenized reference.
func (t *Task) SetReferenceWords(words []string) error {
	data, err := json.Marshal(words)
	if err != nil {
		return fmt.Errorf("encoding reference words: %w", err)
	}
	t.ReferenceWordsJSON = string(data)
	return nil
}

// Image is one uploaded page belonging to a task.
type Image struct {
	ID               int64
	TaskID           int64
	SortOrder        int
	OriginalFilename string
	Path             string
	Status           ImageStatus
	OCRRawText       string
	OCRWordsJSON     string
	DiffOpsJSON      string
	AnnotatedPath    string
	ErrorMessage     string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Words decodes the recognized words for this page.
func (img *Image) Words() ([]Word, error) {
	if img.OCRWordsJSON == "" {
		return nil, nil
	}
	var words []Word
	if err := json.Unmarshal([]byte(img.OCRWordsJSON), &words); err != nil {
		return nil, fmt.Errorf("decoding ocr words for image %d: %w", img.ID, err)
	}
	return words, nil
}

// SetWords stores the recognized words.
func (img *Image) SetWords(words []Word) error {
	data, err := json.Marshal(words)
	if err != nil {
		return fmt.Errorf("encoding ocr words: %w", err)
	}
	img.OCRWordsJSON = string(data)
	return nil
}

// DiffOps decodes the page-local diff operations.
func (img *Image) DiffOps() ([]ImageOp, error) {
	if img.DiffOpsJSON == "" {
		return nil, nil
	}
	var ops []ImageOp
	if err := json.Unmarshal([]byte(img.DiffOpsJSON), &ops); err != nil {
		return nil, fmt.Errorf("decoding diff ops for image %d: %w", img.ID, err)
	}
	return ops, nil
}

// SetDiffOps stores the page-local diff operations.
func (img *Image) SetDiffOps(ops []ImageOp) error {
	data, err := json.Marshal(ops)
	if err != nil {
		return fmt.Errorf("encoding diff ops: %w", err)
	}
	img.DiffOpsJSON = string(data)
	return nil
}

// Annotation shape kinds.
const (
	ShapeEllipse   = "ellipse"
	ShapeUnderline = "underline"
	ShapeCaret     = "caret"
)

// Annotation is one rendered mark on a page image.
type Annotation struct {
	ID              int64
	ImageID         int64
	WordIndex       *int
	ErrorType       diff.Type
	OcrWord         string
	ReferenceWord   string
	Shape           string
	X1, Y1, X2, Y2  float64
	IsAuto          bool
	IsUserCorrected bool
	Note            string
	LabelX          *float64
	LabelY          *float64
	LabelFontSize   *float64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// QueueStats summarizes task counts per status.
type QueueStats struct {
	Total      int            `json:"total"`
	ByStatus   map[Status]int `json:"by_status"`
	Processing int            `json:"processing"`
}

// HealthStatus mirrors the database health probe result.
type HealthStatus struct {
	Healthy       bool      `json:"healthy"`
	DatabasePath  string    `json:"database_path"`
	SchemaVersion int       `json:"schema_version"`
	TaskCount     int       `json:"task_count"`
	CheckedAt     time.Time `json:"checked_at"`
	Error         string    `json:"error,omitempty"`
}
