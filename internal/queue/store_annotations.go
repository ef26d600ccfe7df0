package queue

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrAnnotationNotFound is returned when an annotation id does not exist.
var ErrAnnotationNotFound = errors.New("annotation not found")

const annotationColumns = `id, image_id, word_index, error_type, ocr_word,
	reference_word, shape, x1, y1, x2, y2, is_auto, is_user_corrected,
	note, label_x, label_y, label_font_size, created_at, updated_at`

func scanAnnotation(row scanner) (*Annotation, error) {
	var a Annotation
	var wordIndex sql.NullInt64
	var ocrWord, referenceWord, note sql.NullString
	var isAuto, isUserCorrected int
	var labelX, labelY, labelFontSize sql.NullFloat64
	var createdAt, updatedAt string

	err := row.Scan(&a.ID, &a.ImageID, &wordIndex, &a.ErrorType, &ocrWord,
		&referenceWord, &a.Shape, &a.X1, &a.Y1, &a.X2, &a.Y2,
		&isAuto, &isUserCorrected, &note, &labelX, &labelY, &labelFontSize,
		&createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	if wordIndex.Valid {
		idx := int(wordIndex.Int64)
		a.WordIndex = &idx
	}
	a.OcrWord = ocrWord.String
	a.ReferenceWord = referenceWord.String
	a.IsAuto = isAuto != 0
	a.IsUserCorrected = isUserCorrected != 0
	a.Note = note.String
	if labelX.Valid {
		a.LabelX = &labelX.Float64
	}
	if labelY.Valid {
		a.LabelY = &labelY.Float64
	}
	if labelFontSize.Valid {
		a.LabelFontSize = &labelFontSize.Float64
	}
	a.CreatedAt = parseTimeString(createdAt)
	a.UpdatedAt = parseTimeString(updatedAt)
	return &a, nil
}

func nullableInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullableFloat(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

// AddAnnotation inserts one annotation and fills in its ID.
func (s *Store) AddAnnotation(a *Annotation) error {
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now

	result, err := s.db.Exec(`
		INSERT INTO annotations (image_id, word_index, error_type, ocr_word,
			reference_word, shape, x1, y1, x2, y2, is_auto, is_user_corrected,
			note, label_x, label_y, label_font_size, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ImageID, nullableInt(a.WordIndex), string(a.ErrorType),
		nullableString(a.OcrWord), nullableString(a.ReferenceWord), a.Shape,
		a.X1, a.Y1, a.X2, a.Y2, boolToInt(a.IsAuto), boolToInt(a.IsUserCorrected),
		nullableString(a.Note), nullableFloat(a.LabelX), nullableFloat(a.LabelY),
		nullableFloat(a.LabelFontSize),
		formatTime(a.CreatedAt), formatTime(a.UpdatedAt))
	if err != nil {
		return fmt.Errorf("inserting annotation for image %d: %w", a.ImageID, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading annotation id: %w", err)
	}
	a.ID = id
	return nil
}

// AnnotationByID fetches one annotation.
func (s *Store) AnnotationByID(id int64) (*Annotation, error) {
	row := s.db.QueryRow("SELECT "+annotationColumns+" FROM annotations WHERE id = ?", id)
	a, err := scanAnnotation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("annotation %d: %w", id, ErrAnnotationNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("fetching annotation %d: %w", id, err)
	}
	return a, nil
}

// UpdateAnnotation persists all mutable annotation fields.
func (s *Store) UpdateAnnotation(a *Annotation) error {
	a.UpdatedAt = time.Now().UTC()

	result, err := s.db.Exec(`
		UPDATE annotations SET word_index = ?, error_type = ?, ocr_word = ?,
			reference_word = ?, shape = ?, x1 = ?, y1 = ?, x2 = ?, y2 = ?,
			is_auto = ?, is_user_corrected = ?, note = ?, label_x = ?,
			label_y = ?, label_font_size = ?, updated_at = ?
		WHERE id = ?`,
		nullableInt(a.WordIndex), string(a.ErrorType),
		nullableString(a.OcrWord), nullableString(a.ReferenceWord), a.Shape,
		a.X1, a.Y1, a.X2, a.Y2, boolToInt(a.IsAuto), boolToInt(a.IsUserCorrected),
		nullableString(a.Note), nullableFloat(a.LabelX), nullableFloat(a.LabelY),
		nullableFloat(a.LabelFontSize), formatTime(a.UpdatedAt),
		a.ID)
	if err != nil {
		return fmt.Errorf("updating annotation %d: %w", a.ID, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking annotation update: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("annotation %d: %w", a.ID, ErrAnnotationNotFound)
	}
	return nil
}

// AnnotationsForImage returns a page's annotations in creation order.
func (s *Store) AnnotationsForImage(imageID int64) ([]*Annotation, error) {
	rows, err := s.db.Query(
		"SELECT "+annotationColumns+" FROM annotations WHERE image_id = ? ORDER BY id ASC",
		imageID)
	if err != nil {
		return nil, fmt.Errorf("listing annotations for image %d: %w", imageID, err)
	}
	defer rows.Close()

	var annotations []*Annotation
	for rows.Next() {
		a, err := scanAnnotation(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning annotation: %w", err)
		}
		annotations = append(annotations, a)
	}
	return annotations, rows.Err()
}

// ReplaceAutoAnnotations deletes a page's machine-generated annotations
// and inserts the given replacements. User-corrected rows are kept, so
// manual edits survive a diff recomputation.
func (s *Store) ReplaceAutoAnnotations(imageID int64, annotations []*Annotation) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning annotation replacement: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		"DELETE FROM annotations WHERE image_id = ? AND is_auto = 1 AND is_user_corrected = 0",
		imageID); err != nil {
		return fmt.Errorf("clearing auto annotations for image %d: %w", imageID, err)
	}

	now := time.Now().UTC()
	for _, a := range annotations {
		a.ImageID = imageID
		a.IsAuto = true
		a.CreatedAt = now
		a.UpdatedAt = now
		result, err := tx.Exec(`
			INSERT INTO annotations (image_id, word_index, error_type, ocr_word,
				reference_word, shape, x1, y1, x2, y2, is_auto, is_user_corrected,
				note, label_x, label_y, label_font_size, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, 0, ?, ?, ?, ?, ?, ?)`,
			a.ImageID, nullableInt(a.WordIndex), string(a.ErrorType),
			nullableString(a.OcrWord), nullableString(a.ReferenceWord), a.Shape,
			a.X1, a.Y1, a.X2, a.Y2,
			nullableString(a.Note), nullableFloat(a.LabelX), nullableFloat(a.LabelY),
			nullableFloat(a.LabelFontSize),
			formatTime(now), formatTime(now))
		if err != nil {
			return fmt.Errorf("inserting annotation for image %d: %w", imageID, err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("reading annotation id: %w", err)
		}
		a.ID = id
	}
	return tx.Commit()
}

// RemoveAnnotation deletes one annotation.
func (s *Store) RemoveAnnotation(id int64) error {
	result, err := s.db.Exec("DELETE FROM annotations WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("removing annotation %d: %w", id, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking annotation removal: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("annotation %d: %w", id, ErrAnnotationNotFound)
	}
	return nil
}
