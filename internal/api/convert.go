package api

import (
	"strings"
	"time"

	"redink/internal/queue"
	"redink/internal/workflow"
)

const referencePreviewRunes = 80

// FromTask converts a stored task to its summary DTO. Reference text and
// images are attached separately on describe responses.
func FromTask(task *queue.Task) Task {
	if task == nil {
		return Task{}
	}
	return Task{
		ID:               task.ID,
		Title:            task.Title,
		Status:           string(task.Status),
		ReferencePreview: previewText(task.ReferenceText),
		OCRModel:         task.OCRModel,
		ErrorMessage:     task.ErrorMessage,
		ReviewReason:     task.ReviewReason,
		TotalImages:      task.TotalImages,
		CompletedImages:  task.CompletedImages,
		CreatedAt:        formatTimestamp(task.CreatedAt),
		UpdatedAt:        formatTimestamp(task.UpdatedAt),
	}
}

// FromTasks converts a slice of stored tasks to summary DTOs.
func FromTasks(tasks []*queue.Task) []Task {
	out := make([]Task, 0, len(tasks))
	for _, task := range tasks {
		if task == nil {
			continue
		}
		out = append(out, FromTask(task))
	}
	return out
}

// FromImage converts a stored page to its summary DTO.
func FromImage(img *queue.Image) Image {
	if img == nil {
		return Image{}
	}
	return Image{
		ID:               img.ID,
		TaskID:           img.TaskID,
		SortOrder:        img.SortOrder,
		OriginalFilename: img.OriginalFilename,
		Status:           string(img.Status),
		Annotated:        img.AnnotatedPath != "",
		ErrorMessage:     img.ErrorMessage,
	}
}

// FromImageDetail converts a stored page including its recognized words
// and diff operations.
func FromImageDetail(img *queue.Image) (Image, error) {
	dto := FromImage(img)
	if img == nil {
		return dto, nil
	}
	dto.OCRRawText = img.OCRRawText

	words, err := img.Words()
	if err != nil {
		return dto, err
	}
	for _, w := range words {
		dto.Words = append(dto.Words, Word{Text: w.Text, BBox: w.BBox, Confidence: w.Confidence})
	}

	ops, err := img.DiffOps()
	if err != nil {
		return dto, err
	}
	for _, op := range ops {
		dto.Ops = append(dto.Ops, Op{
			Type:          string(op.Type),
			OcrIndex:      op.OcrIndex,
			RefIndex:      op.RefIndex,
			OcrWord:       op.OcrWord,
			ReferenceWord: op.ReferenceWord,
			OcrConfidence: op.OcrConfidence,
		})
	}
	return dto, nil
}

// FromAnnotation converts a stored annotation to its DTO.
func FromAnnotation(a *queue.Annotation) Annotation {
	if a == nil {
		return Annotation{}
	}
	return Annotation{
		ID:              a.ID,
		ImageID:         a.ImageID,
		WordIndex:       a.WordIndex,
		ErrorType:       string(a.ErrorType),
		OcrWord:         a.OcrWord,
		ReferenceWord:   a.ReferenceWord,
		Shape:           a.Shape,
		X1:              a.X1,
		Y1:              a.Y1,
		X2:              a.X2,
		Y2:              a.Y2,
		IsAuto:          a.IsAuto,
		IsUserCorrected: a.IsUserCorrected,
		Note:            a.Note,
		LabelX:          a.LabelX,
		LabelY:          a.LabelY,
		LabelFontSize:   a.LabelFontSize,
	}
}

// FromAnnotations converts stored annotations to DTOs.
func FromAnnotations(annotations []*queue.Annotation) []Annotation {
	out := make([]Annotation, 0, len(annotations))
	for _, a := range annotations {
		if a == nil {
			continue
		}
		out = append(out, FromAnnotation(a))
	}
	return out
}

// FromStatusSummary converts workflow diagnostics to the API shape.
func FromStatusSummary(summary workflow.StatusSummary) WorkflowStatus {
	status := WorkflowStatus{
		Running:    summary.Running,
		QueueStats: MergeQueueStats(summary.QueueStats),
		LastError:  summary.LastError,
	}
	if summary.LastTask != nil {
		task := FromTask(summary.LastTask)
		status.LastTask = &task
	}
	for name, health := range summary.StageHealth {
		status.StageHealth = append(status.StageHealth, StageHealth{
			Name:   name,
			Ready:  health.Ready,
			Detail: health.Detail,
		})
	}
	return status
}

// MergeQueueStats flattens queue stats to a string-keyed count map.
func MergeQueueStats(stats *queue.QueueStats) map[string]int {
	if stats == nil {
		return map[string]int{}
	}
	merged := make(map[string]int, len(stats.ByStatus))
	for status, count := range stats.ByStatus {
		merged[string(status)] = count
	}
	return merged
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateTimeFormat)
}

func previewText(text string) string {
	flat := strings.Join(strings.Fields(text), " ")
	runes := []rune(flat)
	if len(runes) <= referencePreviewRunes {
		return flat
	}
	return string(runes[:referencePreviewRunes]) + "…"
}
