package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hibiken/asynq"

	"jobPortal/internal/workflow"
)

type fakeEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{ID: "t1", Type: task.Type()}, nil
}

func TestDispatcher_Broadcast(t *testing.T) {
	q := &fakeEnqueuer{}
	d := NewDispatcher(q, nil)

	if err := d.Broadcast(context.Background(), workflow.Notification{ID: 42}); err != nil {
		t.Fatalf("broadcast: %v", err)
	}
	if len(q.tasks) != 1 || q.tasks[0].Type() != TypeNotificationBroadcast {
		t.Fatalf("unexpected tasks %+v", q.tasks)
	}
	var p NotificationBroadcastPayload
	if err := json.Unmarshal(q.tasks[0].Payload(), &p); err != nil || p.NotificationID != 42 {
		t.Fatalf("unexpected payload %s err=%v", q.tasks[0].Payload(), err)
	}
}

func TestDispatcher_PublishOnlyApplications(t *testing.T) {
	q := &fakeEnqueuer{}
	d := NewDispatcher(q, nil)
	ctx := context.Background()
	job := workflow.Job{ID: 3, Role: "SDE", Company: "Acme"}

	if err := d.Publish(ctx, workflow.Event{Kind: workflow.EventJobCreated, Job: job}); err != nil {
		t.Fatalf("publish created: %v", err)
	}
	if len(q.tasks) != 0 {
		t.Fatalf("job events must not enqueue application tasks")
	}

	if err := d.Publish(ctx, workflow.Event{Kind: workflow.EventApplied, Job: job, CandidateID: 9}); err != nil {
		t.Fatalf("publish applied: %v", err)
	}
	if len(q.tasks) != 1 || q.tasks[0].Type() != TypeApplicationReceived {
		t.Fatalf("unexpected tasks %+v", q.tasks)
	}
	var p ApplicationReceivedPayload
	if err := json.Unmarshal(q.tasks[0].Payload(), &p); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if p.JobID != 3 || p.CandidateID != 9 || p.Company != "Acme" {
		t.Fatalf("unexpected payload %+v", p)
	}
}

func TestDispatcher_EnqueueError(t *testing.T) {
	boom := errors.New("redis down")
	d := NewDispatcher(&fakeEnqueuer{err: boom}, nil)

	if err := d.Broadcast(context.Background(), workflow.Notification{ID: 1}); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped enqueue error got %v", err)
	}
}

func TestUserChannel(t *testing.T) {
	if got := UserChannel(12); got != "user_notify:12" {
		t.Fatalf("unexpected channel %q", got)
	}
}
