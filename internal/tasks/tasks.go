// Package tasks 定义后台任务的类型常量和负载编码，
// 以及网关侧使用的任务入队器。
package tasks

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"collabboard/internal/domain"
)

// TypeStrokePersist 是笔画批量持久化任务的类型名。
const TypeStrokePersist = "stroke:persist"

// StrokePersistPayload 是笔画持久化任务的负载：一整组待落库的点。
type StrokePersistPayload struct {
	Points []domain.DrawingPoint `json:"points"`
}

// NewStrokePersistTask 构造一个笔画持久化任务。
func NewStrokePersistTask(points []domain.DrawingPoint) (*asynq.Task, error) {
	payload, err := json.Marshal(StrokePersistPayload{Points: points})
	if err != nil {
		return nil, fmt.Errorf("marshal stroke persist payload: %w", err)
	}
	return asynq.NewTask(TypeStrokePersist, payload), nil
}

// StrokeEnqueuer 通过 asynq 客户端把笔画持久化任务入队，
// 实现 service.StrokeQueue。
type StrokeEnqueuer struct {
	client *asynq.Client
}

// NewStrokeEnqueuer 创建 StrokeEnqueuer 实例。
func NewStrokeEnqueuer(client *asynq.Client) *StrokeEnqueuer {
	if client == nil {
		panic("asynq client cannot be nil for StrokeEnqueuer")
	}
	return &StrokeEnqueuer{client: client}
}

// Enqueue 把一组点作为持久化任务放入 default 队列。
func (e *StrokeEnqueuer) Enqueue(ctx context.Context, points []domain.DrawingPoint) error {
	task, err := NewStrokePersistTask(points)
	if err != nil {
		return err
	}
	if _, err := e.client.EnqueueContext(ctx, task, asynq.Queue("default"), asynq.MaxRetry(3)); err != nil {
		return fmt.Errorf("enqueue stroke persist task: %w", err)
	}
	return nil
}
