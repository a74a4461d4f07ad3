package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// EventKind names the post-commit events emitted by Service.
type EventKind string

const (
	EventJobCreated EventKind = "job.created"
	EventJobEdited  EventKind = "job.edited"
	EventJobDeleted EventKind = "job.deleted"
	EventApplied    EventKind = "job.applied"

	// EventNotificationPosted 是管理员手动发布通知，不经过 Service。
	EventNotificationPosted EventKind = "notification.posted"
)

// Event is emitted after the triggering job write has committed.
type Event struct {
	Kind        EventKind
	Job         Job
	CandidateID uint
}

// Fanout consumes post-commit events. Errors never roll back the job write.
type Fanout interface {
	Publish(ctx context.Context, event Event) error
}

// NotificationSaver persists notifications.
type NotificationSaver interface {
	SaveNotification(ctx context.Context, n *Notification) error
}

// Broadcaster delivers a persisted notification to live subscribers.
type Broadcaster interface {
	Broadcast(ctx context.Context, n Notification) error
}

// NotificationFanout 把岗位变更事件转换为通知，持久化后再广播。
type NotificationFanout struct {
	store       NotificationSaver
	broadcaster Broadcaster
	logger      *slog.Logger
}

// NewNotificationFanout builds a fan-out; broadcaster may be nil.
func NewNotificationFanout(store NotificationSaver, broadcaster Broadcaster, logger *slog.Logger) *NotificationFanout {
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificationFanout{store: store, broadcaster: broadcaster, logger: logger}
}

// Publish implements Fanout.
func (f *NotificationFanout) Publish(ctx context.Context, event Event) error {
	n, ok := NotificationFor(event)
	if !ok {
		return nil
	}

	if err := f.store.SaveNotification(ctx, &n); err != nil {
		return fmt.Errorf("save notification: %w", err)
	}

	if f.broadcaster == nil {
		return nil
	}
	if err := f.broadcaster.Broadcast(ctx, n); err != nil {
		// 通知已落库，广播失败只影响实时推送。
		f.logger.Warn("broadcast notification failed",
			slog.Uint64("notification_id", uint64(n.ID)),
			slog.Any("error", err),
		)
		return fmt.Errorf("broadcast notification %d: %w", n.ID, err)
	}
	return nil
}

// NotificationFor renders the notification for an event.
// Events without a notification (applications) return false.
func NotificationFor(event Event) (Notification, bool) {
	role, company := event.Job.Role, event.Job.Company
	switch event.Kind {
	case EventJobCreated:
		return Notification{
			Title:  fmt.Sprintf("New %s opening", role),
			Body:   fmt.Sprintf("%s just posted a new job", company),
			Author: company,
		}, true
	case EventJobEdited:
		return Notification{
			Title:  fmt.Sprintf("%s opening edited", role),
			Body:   fmt.Sprintf("%s just edited their job", company),
			Author: company,
		}, true
	case EventJobDeleted:
		return Notification{
			Title:  fmt.Sprintf("%s opening deleted", role),
			Body:   fmt.Sprintf("%s just deleted their job", company),
			Author: company,
		}, true
	default:
		return Notification{}, false
	}
}

// MultiFanout publishes to every fan-out in order and joins the errors.
type MultiFanout []Fanout

func (m MultiFanout) Publish(ctx context.Context, event Event) error {
	var errs []error
	for _, f := range m {
		if f == nil {
			continue
		}
		if err := f.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
