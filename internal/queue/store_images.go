package queue

import (
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"
)

// ErrImageNotFound is returned when an image id does not exist.
var ErrImageNotFound = errors.New("image not found")

const imageColumns = `id, task_id, sort_order, original_filename, path, status,
	ocr_raw_text, ocr_words, diff_ops, annotated_path, error_message,
	created_at, updated_at`

func scanImage(row scanner) (*Image, error) {
	var img Image
	var ocrRawText, ocrWords, diffOps, annotatedPath, errorMessage sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(&img.ID, &img.TaskID, &img.SortOrder, &img.OriginalFilename,
		&img.Path, &img.Status, &ocrRawText, &ocrWords, &diffOps,
		&annotatedPath, &errorMessage, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	img.OCRRawText = ocrRawText.String
	img.OCRWordsJSON = ocrWords.String
	img.DiffOpsJSON = diffOps.String
	img.AnnotatedPath = annotatedPath.String
	img.ErrorMessage = errorMessage.String
	img.CreatedAt = parseTimeString(createdAt)
	img.UpdatedAt = parseTimeString(updatedAt)
	return &img, nil
}

// AddImage appends a page to a task, assigning the next sort position
// when SortOrder is unset.
func (s *Store) AddImage(img *Image) error {
	now := time.Now().UTC()
	img.CreatedAt = now
	img.UpdatedAt = now
	if img.Status == "" {
		img.Status = ImagePending
	}
	if img.SortOrder == 0 {
		var maxOrder sql.NullInt64
		err := s.db.QueryRow("SELECT MAX(sort_order) FROM images WHERE task_id = ?",
			img.TaskID).Scan(&maxOrder)
		if err != nil {
			return fmt.Errorf("finding sort position for task %d: %w", img.TaskID, err)
		}
		img.SortOrder = int(maxOrder.Int64) + 1
	}

	result, err := s.db.Exec(`
		INSERT INTO images (task_id, sort_order, original_filename, path, status,
			ocr_raw_text, ocr_words, diff_ops, annotated_path, error_message,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		img.TaskID, img.SortOrder, img.OriginalFilename, img.Path, string(img.Status),
		nullableString(img.OCRRawText), nullableString(img.OCRWordsJSON),
		nullableString(img.DiffOpsJSON), nullableString(img.AnnotatedPath),
		nullableString(img.ErrorMessage),
		formatTime(img.CreatedAt), formatTime(img.UpdatedAt))
	if err != nil {
		return fmt.Errorf("inserting image for task %d: %w", img.TaskID, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading image id: %w", err)
	}
	img.ID = id
	return nil
}

// ImageByID fetches one image. Returns ErrImageNotFound when missing.
func (s *Store) ImageByID(id int64) (*Image, error) {
	row := s.db.QueryRow("SELECT "+imageColumns+" FROM images WHERE id = ?", id)
	img, err := scanImage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("image %d: %w", id, ErrImageNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("fetching image %d: %w", id, err)
	}
	return img, nil
}

// UpdateImage persists all mutable image fields and bumps updated_at.
func (s *Store) UpdateImage(img *Image) error {
	img.UpdatedAt = time.Now().UTC()

	result, err := s.db.Exec(`
		UPDATE images SET sort_order = ?, original_filename = ?, path = ?,
			status = ?, ocr_raw_text = ?, ocr_words = ?, diff_ops = ?,
			annotated_path = ?, error_message = ?, updated_at = ?
		WHERE id = ?`,
		img.SortOrder, img.OriginalFilename, img.Path, string(img.Status),
		nullableString(img.OCRRawText), nullableString(img.OCRWordsJSON),
		nullableString(img.DiffOpsJSON), nullableString(img.AnnotatedPath),
		nullableString(img.ErrorMessage), formatTime(img.UpdatedAt),
		img.ID)
	if err != nil {
		return fmt.Errorf("updating image %d: %w", img.ID, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking image update: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("image %d: %w", img.ID, ErrImageNotFound)
	}
	return nil
}

// ImagesForTask returns a task's pages in reading order.
func (s *Store) ImagesForTask(taskID int64) ([]*Image, error) {
	rows, err := s.db.Query(
		"SELECT "+imageColumns+" FROM images WHERE task_id = ? ORDER BY sort_order ASC, id ASC",
		taskID)
	if err != nil {
		return nil, fmt.Errorf("listing images for task %d: %w", taskID, err)
	}
	defer rows.Close()

	var images []*Image
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning image: %w", err)
		}
		images = append(images, img)
	}
	return images, rows.Err()
}

// RemoveImage deletes a page and its annotations, then renumbers the
// remaining pages so sort positions stay contiguous.
func (s *Store) RemoveImage(id int64) error {
	img, err := s.ImageByID(id)
	if err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning image removal: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM images WHERE id = ?", id); err != nil {
		return fmt.Errorf("removing image %d: %w", id, err)
	}
	if _, err := tx.Exec(
		"UPDATE images SET sort_order = sort_order - 1 WHERE task_id = ? AND sort_order > ?",
		img.TaskID, img.SortOrder); err != nil {
		return fmt.Errorf("renumbering images for task %d: %w", img.TaskID, err)
	}
	return tx.Commit()
}

// ReorderImages reassigns sort positions for a task's pages. The id list
// must contain exactly the task's current image ids, in the desired order.
func (s *Store) ReorderImages(taskID int64, orderedIDs []int64) error {
	current, err := s.ImagesForTask(taskID)
	if err != nil {
		return err
	}
	if len(orderedIDs) != len(current) {
		return fmt.Errorf("reorder for task %d: got %d ids, task has %d images",
			taskID, len(orderedIDs), len(current))
	}

	existing := make([]int64, len(current))
	for i, img := range current {
		existing[i] = img.ID
	}
	requested := append([]int64(nil), orderedIDs...)
	sort.Slice(existing, func(i, j int) bool { return existing[i] < existing[j] })
	sort.Slice(requested, func(i, j int) bool { return requested[i] < requested[j] })
	for i := range existing {
		if existing[i] != requested[i] {
			return fmt.Errorf("reorder for task %d: id set does not match task images", taskID)
		}
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning reorder: %w", err)
	}
	defer tx.Rollback()

	now := formatTime(time.Now().UTC())
	for position, id := range orderedIDs {
		if _, err := tx.Exec(
			"UPDATE images SET sort_order = ?, updated_at = ? WHERE id = ?",
			position+1, now, id); err != nil {
			return fmt.Errorf("reordering image %d: %w", id, err)
		}
	}
	return tx.Commit()
}
