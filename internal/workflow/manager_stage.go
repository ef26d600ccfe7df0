package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"redink/internal/logging"
	"redink/internal/queue"
)

func (m *Manager) processTask(ctx context.Context, lane *laneState, laneLogger *slog.Logger, task *queue.Task) error {
	stg, ok := lane.stageForStatus(task.Status)
	if !ok {
		if laneLogger == nil {
			laneLogger = m.logger
		}
		if laneLogger == nil {
			laneLogger = logging.NewNop()
		}
		laneLogger.Warn("no stage configured for status", logging.String("status", string(task.Status)))
		m.waitForTaskOrShutdown(ctx)
		return nil
	}

	requestID := uuid.NewString()
	stageCtx := withStageContext(ctx, lane, stg.name, task, requestID)
	stageLogger := m.stageLogger(stageCtx, lane, laneLogger)
	if aware, ok := stg.handler.(loggerAware); ok {
		aware.SetLogger(stageLogger)
	}

	if err := m.transitionToProcessing(stageCtx, lane, stg.processingStatus, task); err != nil {
		stageLogger.Error("failed to transition task to processing", logging.Error(err))
		m.setLastError(err)
		return err
	}

	return m.executeStage(stageCtx, stageLogger, stg, task)
}

func (m *Manager) executeStage(ctx context.Context, stageLogger *slog.Logger, stg pipelineStage, task *queue.Task) error {
	stageStart := time.Now()
	stageLogger.Info(
		"stage started",
		logging.String("processing_status", string(stg.processingStatus)),
		logging.String("task_title", strings.TrimSpace(task.Title)),
		logging.Int("total_images", task.TotalImages),
	)

	handler := stg.handler
	if handler == nil {
		stageLogger.Warn("missing stage handler", logging.String("stage", stg.name))
		task.Status = queue.StatusFailed
		task.ErrorMessage = fmt.Sprintf("stage %s missing handler", stg.name)
		if err := m.store.Update(task); err != nil {
			stageLogger.Error("failed to persist missing handler failure", logging.Error(err))
		}
		m.setLastError(errors.New("stage handler unavailable"))
		return errors.New("stage handler unavailable")
	}

	if err := handler.Prepare(ctx, task); err != nil {
		m.handleStageFailure(ctx, stg.name, task, err)
		m.setLastError(err)
		return err
	}
	if err := m.store.Update(task); err != nil {
		wrapped := fmt.Errorf("persist stage preparation: %w", err)
		stageLogger.Error("failed to persist stage preparation", logging.Error(wrapped))
		m.setLastError(wrapped)
		return wrapped
	}

	execErr := m.executeWithHeartbeat(ctx, handler, task)
	if execErr != nil {
		if errors.Is(execErr, context.Canceled) {
			stageLogger.Debug("stage interrupted by shutdown")
			return execErr
		}
		m.handleStageFailure(ctx, stg.name, task, execErr)
		m.setLastError(execErr)
		return execErr
	}

	if task.Status == stg.processingStatus || task.Status == "" {
		task.Status = stg.doneStatus
	}
	task.LastHeartbeat = nil
	if err := m.store.Update(task); err != nil {
		wrapped := fmt.Errorf("persist stage result: %w", err)
		stageLogger.Error("failed to persist stage result", logging.Error(wrapped))
		m.setLastError(wrapped)
		return wrapped
	}
	stageLogger.Info(
		"stage completed",
		logging.String("next_status", string(task.Status)),
		logging.Duration("stage_duration", time.Since(stageStart)),
	)
	m.setLastTask(task)
	if task.Status == queue.StatusCompleted {
		m.notifyTaskCompleted(ctx, task)
	}
	m.checkQueueCompletion(ctx)
	return nil
}

func (m *Manager) executeWithHeartbeat(ctx context.Context, handler StageHandler, task *queue.Task) error {
	hbCtx, hbCancel := context.WithCancel(ctx)
	var hbWG sync.WaitGroup
	hbWG.Add(1)
	go m.heartbeat.StartLoop(hbCtx, &hbWG, task.ID)

	execErr := handler.Execute(ctx, task)
	hbCancel()
	hbWG.Wait()
	return execErr
}

func (m *Manager) transitionToProcessing(ctx context.Context, lane *laneState, processing queue.Status, task *queue.Task) error {
	if processing == "" {
		return errors.New("processing status must not be empty")
	}

	now := time.Now().UTC()
	task.Status = processing
	task.ErrorMessage = ""
	task.LastHeartbeat = &now
	if err := m.store.Update(task); err != nil {
		return fmt.Errorf("persist processing transition: %w", err)
	}
	m.setLastTask(task)
	if lane == nil || lane.notificationsEnabled {
		m.onTaskStarted(ctx)
	}
	return nil
}
