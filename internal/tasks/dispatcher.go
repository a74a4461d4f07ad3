package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"jobPortal/internal/metrics"
	"jobPortal/internal/workflow"
)

type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Dispatcher 把业务事件转成异步任务，由 worker 推送到 Redis Pub/Sub。
// 同时实现 workflow.Broadcaster（通知广播）与 workflow.Fanout（投递回执）。
type Dispatcher struct {
	client enqueuer
	logger *slog.Logger
}

// NewDispatcher 使用 asynq.Client 构造 Dispatcher。
func NewDispatcher(client enqueuer, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{client: client, logger: logger}
}

// Broadcast 将已落库的通知入队。
func (d *Dispatcher) Broadcast(ctx context.Context, n workflow.Notification) error {
	task, err := NewNotificationBroadcastTask(n.ID)
	if err != nil {
		return fmt.Errorf("build broadcast task: %w", err)
	}
	return d.enqueue(ctx, task, asynq.MaxRetry(3), asynq.Timeout(30*time.Second))
}

// Publish 只处理投递事件，其余事件由 NotificationFanout 负责。
func (d *Dispatcher) Publish(ctx context.Context, event workflow.Event) error {
	if event.Kind != workflow.EventApplied {
		return nil
	}
	task, err := NewApplicationReceivedTask(ApplicationReceivedPayload{
		JobID:       event.Job.ID,
		CandidateID: event.CandidateID,
		Role:        event.Job.Role,
		Company:     event.Job.Company,
	})
	if err != nil {
		return fmt.Errorf("build application task: %w", err)
	}
	return d.enqueue(ctx, task, asynq.MaxRetry(3), asynq.Timeout(30*time.Second))
}

func (d *Dispatcher) enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) error {
	info, err := d.client.EnqueueContext(ctx, task, opts...)
	metrics.RecordEnqueue(task.Type(), err)
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", task.Type(), err)
	}
	d.logger.Debug("task enqueued",
		slog.String("task_type", task.Type()),
		slog.String("task_id", info.ID),
	)
	return nil
}
