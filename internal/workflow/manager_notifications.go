package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"redink/internal/diff"
	"redink/internal/logging"
	"redink/internal/queue"
)

func (m *Manager) notifyStageError(ctx context.Context, stageName string, task *queue.Task, stageErr error) {
	if m.notifier == nil || stageErr == nil {
		return
	}
	logger := logging.WithContext(ctx, m.logger.With(logging.String("component", "workflow-manager")))
	contextLabel := fmt.Sprintf("%s (task #%d)", stageName, task.ID)
	if err := m.notifier.NotifyError(ctx, stageErr, contextLabel); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("daemon shutting down, could not send error notification")
		} else {
			logger.Debug("stage error notification failed", logging.Error(err))
		}
	}
}

func (m *Manager) notifyTaskReview(ctx context.Context, task *queue.Task) {
	if m.notifier == nil {
		return
	}
	logger := logging.WithContext(ctx, m.logger.With(logging.String("component", "workflow-manager")))
	if err := m.notifier.NotifyTaskReview(ctx, task.Title, task.ReviewReason); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("daemon shutting down, could not send review notification")
		} else {
			logger.Debug("review notification failed", logging.Error(err))
		}
	}
}

func (m *Manager) notifyTaskCompleted(ctx context.Context, task *queue.Task) {
	if m.notifier == nil {
		return
	}
	logger := logging.WithContext(ctx, m.logger.With(logging.String("component", "workflow-manager")))
	wrong, missing, extra := m.taskErrorCounts(task, logger)
	if err := m.notifier.NotifyTaskCompleted(ctx, task.Title, wrong, missing, extra); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("daemon shutting down, could not send completion notification")
		} else {
			logger.Debug("task completion notification failed", logging.Error(err))
		}
	}
}

func (m *Manager) taskErrorCounts(task *queue.Task, logger *slog.Logger) (wrong, missing, extra int) {
	images, err := m.store.ImagesForTask(task.ID)
	if err != nil {
		logger.Warn("could not load images for completion summary", logging.Error(err))
		return 0, 0, 0
	}
	for _, img := range images {
		ops, err := img.DiffOps()
		if err != nil {
			logger.Warn("could not decode diff ops for completion summary",
				logging.Error(err), logging.Int64("image_id", img.ID))
			continue
		}
		for _, op := range ops {
			switch op.Type {
			case diff.Wrong:
				wrong++
			case diff.Missing:
				missing++
			case diff.Extra:
				extra++
			}
		}
	}
	return wrong, missing, extra
}

func (m *Manager) onTaskStarted(ctx context.Context) {
	if m.notifier == nil {
		return
	}
	stats, err := m.store.Stats()
	if err != nil {
		if errors.Is(err, context.Canceled) {
			m.logger.Debug("daemon shutting down, could not get queue stats for start notification")
		} else {
			m.logger.Warn("queue stats unavailable for start notification; notification skipped",
				logging.Error(err),
			)
		}
		return
	}
	m.mu.Lock()
	if m.queueActive {
		m.mu.Unlock()
		return
	}
	m.queueActive = true
	m.queueStart = time.Now()
	m.mu.Unlock()

	count := countWorkTasks(stats)
	if err := m.notifier.NotifyQueueStarted(ctx, count); err != nil {
		if errors.Is(err, context.Canceled) {
			m.logger.Debug("daemon shutting down, could not send queue start notification")
		} else {
			m.logger.Debug("queue start notification failed", logging.Error(err))
		}
	}
}

func (m *Manager) checkQueueCompletion(ctx context.Context) {
	if m.notifier == nil {
		return
	}
	stats, err := m.store.Stats()
	if err != nil {
		if errors.Is(err, context.Canceled) {
			m.logger.Debug("daemon shutting down, could not check queue completion")
		} else {
			m.logger.Warn("queue stats unavailable for completion notification; notification skipped",
				logging.Error(err),
			)
		}
		return
	}
	if active := countActiveTasks(stats); active > 0 {
		return
	}

	m.mu.Lock()
	if !m.queueActive {
		m.mu.Unlock()
		return
	}
	start := m.queueStart
	m.queueActive = false
	m.queueStart = time.Time{}
	m.mu.Unlock()

	duration := time.Duration(0)
	if !start.IsZero() {
		duration = time.Since(start)
	}
	processed := stats.ByStatus[queue.StatusCompleted]
	failed := stats.ByStatus[queue.StatusFailed]
	if err := m.notifier.NotifyQueueCompleted(ctx, processed, failed, duration); err != nil {
		if errors.Is(err, context.Canceled) {
			m.logger.Debug("daemon shutting down, could not send queue completion notification")
		} else {
			m.logger.Debug("queue completion notification failed", logging.Error(err))
		}
	}
}

func countWorkTasks(stats *queue.QueueStats) int {
	if stats == nil {
		return 0
	}
	total := 0
	for status, count := range stats.ByStatus {
		if status == queue.StatusEditing || status == queue.StatusCompleted || status == queue.StatusFailed || status == queue.StatusReview {
			continue
		}
		total += count
	}
	return total
}

func countActiveTasks(stats *queue.QueueStats) int {
	if stats == nil {
		return 0
	}
	activeStatuses := []queue.Status{
		queue.StatusPending,
		queue.StatusTranscribing,
		queue.StatusTranscribed,
		queue.StatusComparing,
		queue.StatusCompared,
		queue.StatusAnnotating,
	}
	total := 0
	for _, status := range activeStatuses {
		total += stats.ByStatus[status]
	}
	return total
}
