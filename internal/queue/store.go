package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"redink/internal/config"
)

// ErrTaskNotFound is returned when a task id does not exist.
var ErrTaskNotFound = errors.New("task not found")

// Store wraps the SQLite database holding tasks, images, and annotations.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (creating if necessary) the database under the
// configured data directory.
func NewStore(cfg *config.Config) (*Store, error) {
	return OpenPath(filepath.Join(cfg.Paths.DataDir, "redink.db"))
}

// OpenPath opens the database at an explicit path.
func OpenPath(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", path, err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting %s: %w", pragma, err)
		}
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, path: path}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

const taskColumns = `id, title, reference_text, reference_words, status, ocr_model,
	error_message, review_reason, total_images, completed_images,
	created_at, updated_at, last_heartbeat`

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (*Task, error) {
	var t Task
	var referenceWords, ocrModel, errorMessage, reviewReason sql.NullString
	var createdAt, updatedAt string
	var lastHeartbeat sql.NullString

	err := row.Scan(&t.ID, &t.Title, &t.ReferenceText, &referenceWords, &t.Status,
		&ocrModel, &errorMessage, &reviewReason, &t.TotalImages, &t.CompletedImages,
		&createdAt, &updatedAt, &lastHeartbeat)
	if err != nil {
		return nil, err
	}

	t.ReferenceWordsJSON = referenceWords.String
	t.OCRModel = ocrModel.String
	t.ErrorMessage = errorMessage.String
	t.ReviewReason = reviewReason.String
	t.CreatedAt = parseTimeString(createdAt)
	t.UpdatedAt = parseTimeString(updatedAt)
	if lastHeartbeat.Valid {
		hb := parseTimeString(lastHeartbeat.String)
		t.LastHeartbeat = &hb
	}
	return &t, nil
}

// Add inserts a new task and fills in its ID and timestamps.
func (s *Store) Add(task *Task) error {
	now := time.Now().UTC()
	task.CreatedAt = now
	task.UpdatedAt = now
	if task.Status == "" {
		task.Status = StatusPending
	}

	result, err := s.db.Exec(`
		INSERT INTO tasks (title, reference_text, reference_words, status, ocr_model,
			error_message, review_reason, total_images, completed_images,
			created_at, updated_at, last_heartbeat)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		task.Title, task.ReferenceText, nullableString(task.ReferenceWordsJSON),
		string(task.Status), nullableString(task.OCRModel),
		nullableString(task.ErrorMessage), nullableString(task.ReviewReason),
		task.TotalImages, task.CompletedImages,
		formatTime(task.CreatedAt), formatTime(task.UpdatedAt),
		nullableTime(task.LastHeartbeat))
	if err != nil {
		return fmt.Errorf("inserting task: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading task id: %w", err)
	}
	task.ID = id
	return nil
}

// ByID fetches one task. Returns ErrTaskNotFound when the id is unknown.
func (s *Store) ByID(id int64) (*Task, error) {
	row := s.db.QueryRow("SELECT "+taskColumns+" FROM tasks WHERE id = ?", id)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task %d: %w", id, ErrTaskNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("fetching task %d: %w", id, err)
	}
	return task, nil
}

// Update persists all mutable task fields and bumps updated_at.
func (s *Store) Update(task *Task) error {
	task.UpdatedAt = time.Now().UTC()

	result, err := s.db.Exec(`
		UPDATE tasks SET title = ?, reference_text = ?, reference_words = ?,
			status = ?, ocr_model = ?, error_message = ?, review_reason = ?,
			total_images = ?, completed_images = ?, updated_at = ?, last_heartbeat = ?
		WHERE id = ?`,
		task.Title, task.ReferenceText, nullableString(task.ReferenceWordsJSON),
		string(task.Status), nullableString(task.OCRModel),
		nullableString(task.ErrorMessage), nullableString(task.ReviewReason),
		task.TotalImages, task.CompletedImages,
		formatTime(task.UpdatedAt), nullableTime(task.LastHeartbeat),
		task.ID)
	if err != nil {
		return fmt.Errorf("updating task %d: %w", task.ID, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking task update: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("task %d: %w", task.ID, ErrTaskNotFound)
	}
	return nil
}

// List returns tasks in the given statuses, oldest first. With no
// statuses it returns every task.
func (s *Store) List(statuses ...Status) ([]*Task, error) {
	query := "SELECT " + taskColumns + " FROM tasks"
	var args []any
	if len(statuses) > 0 {
		query += " WHERE status IN (" + makePlaceholders(len(statuses)) + ")"
		for _, status := range statuses {
			args = append(args, string(status))
		}
	}
	query += " ORDER BY created_at ASC, id ASC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning task: %w", err)
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// ListPage returns one page of tasks, newest first, plus the total count.
func (s *Store) ListPage(offset, limit int) ([]*Task, int, error) {
	var total int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM tasks").Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting tasks: %w", err)
	}

	rows, err := s.db.Query(
		"SELECT "+taskColumns+" FROM tasks ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?",
		limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("listing tasks page: %w", err)
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning task: %w", err)
		}
		tasks = append(tasks, task)
	}
	return tasks, total, rows.Err()
}

// NextForStatuses returns the oldest task in any of the given statuses,
// or nil when none is waiting.
func (s *Store) NextForStatuses(statuses ...Status) (*Task, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	args := make([]any, len(statuses))
	for i, status := range statuses {
		args[i] = string(status)
	}
	row := s.db.QueryRow(
		"SELECT "+taskColumns+" FROM tasks WHERE status IN ("+makePlaceholders(len(statuses))+
			") ORDER BY created_at ASC, id ASC LIMIT 1", args...)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetching next task: %w", err)
	}
	return task, nil
}

// UpdateHeartbeat records that a worker still owns the task.
func (s *Store) UpdateHeartbeat(id int64) error {
	now := time.Now().UTC()
	_, err := s.db.Exec("UPDATE tasks SET last_heartbeat = ? WHERE id = ?",
		formatTime(now), id)
	if err != nil {
		return fmt.Errorf("updating heartbeat for task %d: %w", id, err)
	}
	return nil
}

// ReclaimStaleProcessing resets processing tasks whose worker stopped
// heartbeating before the cutoff back to pending so another worker can
// pick them up. Returns the number of reclaimed tasks.
func (s *Store) ReclaimStaleProcessing(cutoff time.Time) (int, error) {
	args := []any{formatTime(time.Now().UTC()), formatTime(cutoff)}
	placeholders := make([]string, len(processingStatuses))
	for i, status := range processingStatuses {
		placeholders[i] = "?"
		args = append(args, string(status))
	}

	result, err := s.db.Exec(`
		UPDATE tasks SET status = 'pending', last_heartbeat = NULL, updated_at = ?
		WHERE (last_heartbeat IS NULL OR last_heartbeat < ?)
		AND status IN (`+strings.Join(placeholders, ", ")+`)`, args...)
	if err != nil {
		return 0, fmt.Errorf("reclaiming stale tasks: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting reclaimed tasks: %w", err)
	}
	return int(rows), nil
}

// ResetStuckProcessing returns every processing task to pending. Used at
// daemon startup, when no worker can legitimately hold a task.
func (s *Store) ResetStuckProcessing() (int, error) {
	return s.ReclaimStaleProcessing(time.Now().UTC().Add(time.Hour))
}

// RetryFailed moves failed and review tasks back to pending, clearing
// their error state. With ids it retries only those tasks; without, all
// of them. Returns the number of tasks queued for retry.
func (s *Store) RetryFailed(ids ...int64) (int, error) {
	query := `UPDATE tasks SET status = 'pending', error_message = NULL,
		review_reason = NULL, last_heartbeat = NULL, updated_at = ?
		WHERE status IN ('failed', 'review')`
	args := []any{formatTime(time.Now().UTC())}
	if len(ids) > 0 {
		query += " AND id IN (" + makePlaceholders(len(ids)) + ")"
		for _, id := range ids {
			args = append(args, id)
		}
	}

	result, err := s.db.Exec(query, args...)
	if err != nil {
		return 0, fmt.Errorf("retrying failed tasks: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting retried tasks: %w", err)
	}
	return int(rows), nil
}

// Stats returns task counts grouped by status.
func (s *Store) Stats() (*QueueStats, error) {
	rows, err := s.db.Query("SELECT status, COUNT(*) FROM tasks GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("querying task stats: %w", err)
	}
	defer rows.Close()

	stats := &QueueStats{ByStatus: make(map[Status]int)}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scanning task stats: %w", err)
		}
		stats.ByStatus[Status(status)] = count
		stats.Total += count
		if Status(status).IsProcessing() {
			stats.Processing += count
		}
	}
	return stats, rows.Err()
}

// Remove deletes a task along with its images and annotations.
func (s *Store) Remove(id int64) error {
	result, err := s.db.Exec("DELETE FROM tasks WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("removing task %d: %w", id, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking task removal: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("task %d: %w", id, ErrTaskNotFound)
	}
	return nil
}

// ClearCompleted removes all completed tasks. Returns the number removed.
func (s *Store) ClearCompleted() (int, error) {
	return s.clearWithStatus(StatusCompleted)
}

// ClearFailed removes all failed tasks. Returns the number removed.
func (s *Store) ClearFailed() (int, error) {
	return s.clearWithStatus(StatusFailed)
}

func (s *Store) clearWithStatus(status Status) (int, error) {
	result, err := s.db.Exec("DELETE FROM tasks WHERE status = ?", string(status))
	if err != nil {
		return 0, fmt.Errorf("clearing %s tasks: %w", status, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting cleared tasks: %w", err)
	}
	return int(rows), nil
}

// Clear removes every task. Returns the number removed.
func (s *Store) Clear() (int, error) {
	result, err := s.db.Exec("DELETE FROM tasks")
	if err != nil {
		return 0, fmt.Errorf("clearing tasks: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting cleared tasks: %w", err)
	}
	return int(rows), nil
}

// CheckHealth probes the database and reports its condition.
func (s *Store) CheckHealth(ctx context.Context) *HealthStatus {
	health := &HealthStatus{
		DatabasePath:  s.path,
		SchemaVersion: schemaVersion,
		CheckedAt:     time.Now().UTC(),
	}

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := s.db.PingContext(pingCtx); err != nil {
		health.Error = fmt.Sprintf("ping failed: %v", err)
		return health
	}

	for _, table := range []string{"tasks", "images", "annotations"} {
		var name string
		err := s.db.QueryRowContext(ctx,
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			health.Error = fmt.Sprintf("table %s missing: %v", table, err)
			return health
		}
	}

	var integrity string
	if err := s.db.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&integrity); err != nil {
		health.Error = fmt.Sprintf("integrity check failed: %v", err)
		return health
	}
	if integrity != "ok" {
		health.Error = fmt.Sprintf("integrity check: %s", integrity)
		return health
	}

	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM tasks").Scan(&health.TaskCount); err != nil {
		health.Error = fmt.Sprintf("counting tasks: %v", err)
		return health
	}

	health.Healthy = true
	return health
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) time.Time {
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02 15:04:05", value); err == nil {
		return t
	}
	return time.Time{}
}

func makePlaceholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}
