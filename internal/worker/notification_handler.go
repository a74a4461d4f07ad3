package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"jobPortal/internal/tasks"
	"jobPortal/internal/workflow"
)

type notificationGetter interface {
	GetNotification(ctx context.Context, id uint) (*workflow.Notification, error)
}

type publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// NotificationTaskHandler 消费通知广播与投递回执任务，并推送到 Redis Pub/Sub。
type NotificationTaskHandler struct {
	store  notificationGetter
	pubsub publisher
	logger *slog.Logger
}

// NewNotificationTaskHandler 创建任务处理器。
func NewNotificationTaskHandler(store notificationGetter, pubsub publisher, logger *slog.Logger) *NotificationTaskHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificationTaskHandler{store: store, pubsub: pubsub, logger: logger}
}

// Register 把处理函数挂到 asynq.ServeMux。
func (h *NotificationTaskHandler) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(tasks.TypeNotificationBroadcast, h.ProcessBroadcast)
	mux.HandleFunc(tasks.TypeApplicationReceived, h.ProcessApplication)
}

// ProcessBroadcast 读取通知并发布到广播频道。
func (h *NotificationTaskHandler) ProcessBroadcast(ctx context.Context, t *asynq.Task) error {
	var payload tasks.NotificationBroadcastPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		h.logger.Error("unmarshal task payload failed", slog.Any("error", err))
		return fmt.Errorf("decode payload: %w", asynq.SkipRetry)
	}

	log := h.logger.With(slog.Uint64("notification_id", uint64(payload.NotificationID)))

	n, err := h.store.GetNotification(ctx, payload.NotificationID)
	if err != nil {
		if errors.Is(err, workflow.ErrNotFound) {
			log.Warn("notification not found, skipping task")
			return nil
		}
		log.Error("query notification failed", slog.Any("error", err))
		return err
	}

	msg := NotificationMessage{
		Type:           MessageTypeNotification,
		NotificationID: n.ID,
		Title:          n.Title,
		Body:           n.Body,
		Author:         n.Author,
		CreatedAt:      n.CreatedAt,
	}
	if err := h.publish(ctx, tasks.NotificationChannel, msg); err != nil {
		log.Error("publish redis notification failed", slog.Any("error", err))
		return err
	}

	log.Info("notification broadcast")
	return nil
}

// ProcessApplication 向投递者推送投递成功回执。
func (h *NotificationTaskHandler) ProcessApplication(ctx context.Context, t *asynq.Task) error {
	var payload tasks.ApplicationReceivedPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		h.logger.Error("unmarshal task payload failed", slog.Any("error", err))
		return fmt.Errorf("decode payload: %w", asynq.SkipRetry)
	}

	log := h.logger.With(
		slog.Uint64("job_id", uint64(payload.JobID)),
		slog.Uint64("user_id", uint64(payload.CandidateID)),
	)

	msg := ApplicationMessage{
		Type:    MessageTypeApplication,
		JobID:   payload.JobID,
		Role:    payload.Role,
		Company: payload.Company,
		Message: fmt.Sprintf("Your application for %s at %s was received", payload.Role, payload.Company),
	}
	if err := h.publish(ctx, tasks.UserChannel(payload.CandidateID), msg); err != nil {
		log.Error("publish application receipt failed", slog.Any("error", err))
		return err
	}

	log.Info("application receipt delivered")
	return nil
}

func (h *NotificationTaskHandler) publish(ctx context.Context, channel string, msg any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal notification payload: %w", err)
	}
	if err := h.pubsub.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("publish redis notification to %q: %w", channel, err)
	}
	return nil
}
