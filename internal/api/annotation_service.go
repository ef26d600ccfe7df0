package api

import (
	"fmt"
	"log/slog"
	"strings"

	"redink/internal/config"
	"redink/internal/diff"
	"redink/internal/logging"
	"redink/internal/queue"
	"redink/internal/services"
)

// AnnotationService owns user edits to the marks rendered on a page.
// Edits only touch the stored rows; the page is re-rendered lazily when
// an export asks for it.
type AnnotationService struct {
	cfg    *config.Config
	store  *queue.Store
	logger *slog.Logger
}

// NewAnnotationService constructs an AnnotationService.
func NewAnnotationService(cfg *config.Config, store *queue.Store, logger *slog.Logger) *AnnotationService {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &AnnotationService{cfg: cfg, store: store, logger: logger.With(logging.String(logging.FieldComponent, "annotation-service"))}
}

// List returns the annotations of one page in insertion order.
func (s *AnnotationService) List(imageID int64) ([]Annotation, error) {
	if _, err := s.store.ImageByID(imageID); err != nil {
		return nil, err
	}
	annotations, err := s.store.AnnotationsForImage(imageID)
	if err != nil {
		return nil, err
	}
	return FromAnnotations(annotations), nil
}

// Add stores one user-drawn annotation.
func (s *AnnotationService) Add(imageID int64, input Annotation) (*Annotation, error) {
	img, err := s.store.ImageByID(imageID)
	if err != nil {
		return nil, err
	}
	record, err := annotationFromInput(imageID, input)
	if err != nil {
		return nil, err
	}
	record.IsAuto = false
	record.IsUserCorrected = true
	if err := s.store.AddAnnotation(record); err != nil {
		return nil, err
	}
	if err := s.markReviewed(img); err != nil {
		return nil, err
	}
	dto := FromAnnotation(record)
	return &dto, nil
}

// Update edits one annotation in place and flags it as user-corrected so
// later comparison runs leave it alone.
func (s *AnnotationService) Update(annotationID int64, input Annotation) (*Annotation, error) {
	existing, err := s.store.AnnotationByID(annotationID)
	if err != nil {
		return nil, err
	}
	img, err := s.store.ImageByID(existing.ImageID)
	if err != nil {
		return nil, err
	}

	record, err := annotationFromInput(existing.ImageID, input)
	if err != nil {
		return nil, err
	}
	record.ID = existing.ID
	record.IsAuto = existing.IsAuto
	record.IsUserCorrected = true
	record.CreatedAt = existing.CreatedAt
	if err := s.store.UpdateAnnotation(record); err != nil {
		return nil, err
	}
	if err := s.markReviewed(img); err != nil {
		return nil, err
	}
	dto := FromAnnotation(record)
	return &dto, nil
}

// ReplaceAll swaps a page's annotations for the provided set, marking
// them all as user-corrected.
func (s *AnnotationService) ReplaceAll(imageID int64, inputs []Annotation) ([]Annotation, error) {
	img, err := s.store.ImageByID(imageID)
	if err != nil {
		return nil, err
	}

	records := make([]*queue.Annotation, 0, len(inputs))
	for _, input := range inputs {
		record, err := annotationFromInput(imageID, input)
		if err != nil {
			return nil, err
		}
		record.IsAuto = false
		record.IsUserCorrected = true
		records = append(records, record)
	}

	existing, err := s.store.AnnotationsForImage(imageID)
	if err != nil {
		return nil, err
	}
	for _, old := range existing {
		if err := s.store.RemoveAnnotation(old.ID); err != nil {
			return nil, err
		}
	}
	for _, record := range records {
		if err := s.store.AddAnnotation(record); err != nil {
			return nil, err
		}
	}
	if err := s.markReviewed(img); err != nil {
		return nil, err
	}

	s.logger.Info("annotations replaced",
		logging.Int64(logging.FieldImageID, imageID),
		logging.Int("count", len(records)))
	return FromAnnotations(records), nil
}

// Delete removes one annotation.
func (s *AnnotationService) Delete(annotationID int64) error {
	existing, err := s.store.AnnotationByID(annotationID)
	if err != nil {
		return err
	}
	img, err := s.store.ImageByID(existing.ImageID)
	if err != nil {
		return err
	}
	if err := s.store.RemoveAnnotation(annotationID); err != nil {
		return err
	}
	return s.markReviewed(img)
}

// markReviewed flags an already-annotated page so the exporter knows the
// stored render is stale.
func (s *AnnotationService) markReviewed(img *queue.Image) error {
	if img.Status != queue.ImageAnnotated {
		return nil
	}
	img.Status = queue.ImageReviewed
	return s.store.UpdateImage(img)
}

func annotationFromInput(imageID int64, input Annotation) (*queue.Annotation, error) {
	errorType := diff.Type(strings.TrimSpace(input.ErrorType))
	switch errorType {
	case diff.Wrong, diff.Missing, diff.Extra:
	default:
		return nil, services.Wrap(services.ErrValidation, "api", "annotation",
			fmt.Sprintf("unsupported error type %q", input.ErrorType), nil)
	}

	shape := strings.TrimSpace(input.Shape)
	switch shape {
	case "":
		shape = defaultShapeFor(errorType)
	case queue.ShapeEllipse, queue.ShapeUnderline, queue.ShapeCaret:
	default:
		return nil, services.Wrap(services.ErrValidation, "api", "annotation",
			fmt.Sprintf("unsupported shape %q", input.Shape), nil)
	}

	if input.X2 < input.X1 || input.Y2 < input.Y1 {
		return nil, services.Wrap(services.ErrValidation, "api", "annotation",
			"bounding box is inverted", nil)
	}

	return &queue.Annotation{
		ImageID:       imageID,
		WordIndex:     input.WordIndex,
		ErrorType:     errorType,
		OcrWord:       input.OcrWord,
		ReferenceWord: input.ReferenceWord,
		Shape:         shape,
		X1:            input.X1,
		Y1:            input.Y1,
		X2:            input.X2,
		Y2:            input.Y2,
		Note:          input.Note,
		LabelX:        input.LabelX,
		LabelY:        input.LabelY,
		LabelFontSize: input.LabelFontSize,
	}, nil
}

func defaultShapeFor(errorType diff.Type) string {
	switch errorType {
	case diff.Missing:
		return queue.ShapeCaret
	case diff.Extra:
		return queue.ShapeUnderline
	default:
		return queue.ShapeEllipse
	}
}
