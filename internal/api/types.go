package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Task describes a grading task in a transport-friendly format. Images
// is populated on describe responses only.
type Task struct {
	ID               int64   `json:"id"`
	Title            string  `json:"title"`
	Status           string  `json:"status"`
	ReferencePreview string  `json:"referencePreview"`
	ReferenceText    string  `json:"referenceText,omitempty"`
	OCRModel         string  `json:"ocrModel,omitempty"`
	ErrorMessage     string  `json:"errorMessage,omitempty"`
	ReviewReason     string  `json:"reviewReason,omitempty"`
	TotalImages      int     `json:"totalImages"`
	CompletedImages  int     `json:"completedImages"`
	CreatedAt        string  `json:"createdAt,omitempty"`
	UpdatedAt        string  `json:"updatedAt,omitempty"`
	Images           []Image `json:"images,omitempty"`
}

// Image describes an uploaded page. Words and Ops are populated on
// describe responses only.
type Image struct {
	ID               int64  `json:"id"`
	TaskID           int64  `json:"taskId"`
	SortOrder        int    `json:"sortOrder"`
	OriginalFilename string `json:"originalFilename"`
	Status           string `json:"status"`
	OCRRawText       string `json:"ocrRawText,omitempty"`
	Words            []Word `json:"words,omitempty"`
	Ops              []Op   `json:"ops,omitempty"`
	Annotated        bool   `json:"annotated"`
	ErrorMessage     string `json:"errorMessage,omitempty"`
}

// Word is one recognized word with its pixel bounding box.
type Word struct {
	Text       string     `json:"text"`
	BBox       [4]float64 `json:"bbox"`
	Confidence float64    `json:"confidence"`
}

// Op is one page-local diff operation.
type Op struct {
	Type          string   `json:"type"`
	OcrIndex      *int     `json:"ocrIndex,omitempty"`
	RefIndex      *int     `json:"refIndex,omitempty"`
	OcrWord       *string  `json:"ocrWord,omitempty"`
	ReferenceWord *string  `json:"referenceWord,omitempty"`
	OcrConfidence *float64 `json:"ocrConfidence,omitempty"`
}

// Annotation describes one rendered mark on a page.
type Annotation struct {
	ID              int64    `json:"id"`
	ImageID         int64    `json:"imageId"`
	WordIndex       *int     `json:"wordIndex,omitempty"`
	ErrorType       string   `json:"errorType"`
	OcrWord         string   `json:"ocrWord,omitempty"`
	ReferenceWord   string   `json:"referenceWord,omitempty"`
	Shape           string   `json:"shape"`
	X1              float64  `json:"x1"`
	Y1              float64  `json:"y1"`
	X2              float64  `json:"x2"`
	Y2              float64  `json:"y2"`
	IsAuto          bool     `json:"isAuto"`
	IsUserCorrected bool     `json:"isUserCorrected"`
	Note            string   `json:"note,omitempty"`
	LabelX          *float64 `json:"labelX,omitempty"`
	LabelY          *float64 `json:"labelY,omitempty"`
	LabelFontSize   *float64 `json:"labelFontSize,omitempty"`
}

// ImageStats reports per-page diff tallies.
type ImageStats struct {
	ImageID     int64   `json:"imageId"`
	SortOrder   int     `json:"sortOrder"`
	Correct     int     `json:"correct"`
	Wrong       int     `json:"wrong"`
	Missing     int     `json:"missing"`
	Extra       int     `json:"extra"`
	AccuracyPct float64 `json:"accuracyPct"`
}

// TaskStats aggregates diff tallies across all pages of a task.
type TaskStats struct {
	TaskID      int64        `json:"taskId"`
	Correct     int          `json:"correct"`
	Wrong       int          `json:"wrong"`
	Missing     int          `json:"missing"`
	Extra       int          `json:"extra"`
	Total       int          `json:"total"`
	AccuracyPct float64      `json:"accuracyPct"`
	Images      []ImageStats `json:"images"`
}

// WorkflowStatus summarizes workflow execution state.
type WorkflowStatus struct {
	Running     bool           `json:"running"`
	QueueStats  map[string]int `json:"queueStats"`
	LastError   string         `json:"lastError,omitempty"`
	LastTask    *Task          `json:"lastTask,omitempty"`
	StageHealth []StageHealth  `json:"stageHealth"`
}

// StageHealth mirrors readiness reporting for workflow stages.
type StageHealth struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool           `json:"running"`
	PID          int            `json:"pid"`
	QueueDBPath  string         `json:"queueDbPath"`
	LockFilePath string         `json:"lockFilePath"`
	Workflow     WorkflowStatus `json:"workflow"`
}

// TaskListResponse wraps a task page plus the total row count.
type TaskListResponse struct {
	Tasks []Task `json:"tasks"`
	Total int    `json:"total"`
}

// TaskResponse wraps a single task.
type TaskResponse struct {
	Task Task `json:"task"`
}

// ImageResponse wraps a single page.
type ImageResponse struct {
	Image Image `json:"image"`
}

// AnnotationListResponse wraps the annotations of one page.
type AnnotationListResponse struct {
	Annotations []Annotation `json:"annotations"`
}

// AnnotationResponse wraps a single annotation.
type AnnotationResponse struct {
	Annotation Annotation `json:"annotation"`
}
