package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"collabboard/internal/repository"
	"collabboard/internal/tasks"
)

// StrokePersistenceHandler 处理笔画批量持久化任务。
type StrokePersistenceHandler struct {
	pointRepo repository.DrawingPointRepository
}

// NewStrokePersistenceHandler 创建 Handler 实例。
func NewStrokePersistenceHandler(pointRepo repository.DrawingPointRepository) *StrokePersistenceHandler {
	if pointRepo == nil {
		panic("DrawingPointRepository cannot be nil for StrokePersistenceHandler")
	}
	return &StrokePersistenceHandler{pointRepo: pointRepo}
}

// ProcessTask 实现 asynq.Handler 接口。
func (h *StrokePersistenceHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	taskID := ""
	if rw := t.ResultWriter(); rw != nil {
		taskID = rw.TaskID()
	}
	retryCount, _ := asynq.GetRetryCount(ctx)
	logCtx := logrus.WithFields(logrus.Fields{
		"task_id":   taskID,
		"task_type": t.Type(),
		"retry":     retryCount,
	})

	var payload tasks.StrokePersistPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		logCtx.WithError(err).Error("Failed to unmarshal stroke persist payload")
		return fmt.Errorf("unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}
	if len(payload.Points) == 0 {
		return nil
	}

	if err := h.pointRepo.SaveBatch(ctx, payload.Points); err != nil {
		logCtx.WithError(err).WithField("point_count", len(payload.Points)).
			Error("Failed to save stroke batch")
		return fmt.Errorf("save stroke batch of %d points: %w", len(payload.Points), err)
	}
	logCtx.WithField("point_count", len(payload.Points)).Info("Stroke persistence task processed")
	return nil
}
