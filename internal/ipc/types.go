package ipc

import "redink/internal/api"

// StartRequest triggers daemon workflow startup.
type StartRequest struct{}

// StartResponse indicates whether the daemon was started.
type StartResponse struct {
	Started bool   `json:"started"`
	Message string `json:"message"`
}

// StopRequest stops daemon workflow.
type StopRequest struct{}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// Task mirrors the HTTP API task DTO for internal IPC callers.
type Task = api.Task

// StageHealth describes readiness of a workflow stage.
type StageHealth = api.StageHealth

// StatusResponse represents combined daemon/workflow status information.
type StatusResponse struct {
	Running     bool           `json:"running"`
	QueueStats  map[string]int `json:"queue_stats"`
	LastError   string         `json:"last_error"`
	LastTask    *Task          `json:"last_task"`
	LockPath    string         `json:"lock_path"`
	QueueDBPath string         `json:"queue_db_path"`
	APIBind     string         `json:"api_bind"`
	StageHealth []StageHealth  `json:"stage_health"`
	PID         int            `json:"pid"`
}

// TaskListRequest filters task listing by status.
type TaskListRequest struct {
	Statuses []string `json:"statuses"`
}

// TaskListResponse contains queue tasks.
type TaskListResponse struct {
	Tasks []Task `json:"tasks"`
}

// TaskDescribeRequest fetches a single task by id.
type TaskDescribeRequest struct {
	ID int64 `json:"id"`
}

// TaskDescribeResponse contains one task with its pages.
type TaskDescribeResponse struct {
	Task Task `json:"task"`
}

// QueueClearRequest removes all tasks.
type QueueClearRequest struct{}

// QueueClearResponse reports number of removed tasks.
type QueueClearResponse struct {
	Removed int `json:"removed"`
}

// QueueClearFailedRequest removes failed tasks.
type QueueClearFailedRequest struct{}

// QueueClearFailedResponse reports number of removed tasks.
type QueueClearFailedResponse struct {
	Removed int `json:"removed"`
}

// QueueClearCompletedRequest removes completed tasks.
type QueueClearCompletedRequest struct{}

// QueueClearCompletedResponse reports number of removed tasks.
type QueueClearCompletedResponse struct {
	Removed int `json:"removed"`
}

// QueueResetRequest resets in-flight tasks.
type QueueResetRequest struct{}

// QueueResetResponse reports number of tasks reset.
type QueueResetResponse struct {
	Updated int `json:"updated"`
}

// QueueRetryRequest retries failed tasks. Empty list means all failed tasks.
type QueueRetryRequest struct {
	IDs []int64 `json:"ids"`
}

// QueueRetryResponse reports number of retried tasks.
type QueueRetryResponse struct {
	Updated int `json:"updated"`
}

// QueueHealthRequest fetches database diagnostics.
type QueueHealthRequest struct{}

// QueueHealthResponse reports database health information.
type QueueHealthResponse struct {
	Healthy       bool   `json:"healthy"`
	DatabasePath  string `json:"database_path"`
	SchemaVersion int    `json:"schema_version"`
	TaskCount     int    `json:"task_count"`
	Error         string `json:"error"`
}

// LogTailRequest fetches log lines based on offset and follow semantics.
type LogTailRequest struct {
	Offset     int64 `json:"offset"`
	Limit      int   `json:"limit"`
	Follow     bool  `json:"follow"`
	WaitMillis int   `json:"wait_millis"`
}

// LogTailResponse returns log lines and the next offset.
type LogTailResponse struct {
	Lines  []string `json:"lines"`
	Offset int64    `json:"offset"`
}

// TestNotificationRequest triggers a notification test.
type TestNotificationRequest struct{}

// TestNotificationResponse reports notification test outcome.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}
