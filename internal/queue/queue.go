package queue

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/maheshrc27/captionflow/internal/service"
)

const (
	queueName          = "default"
	enhancementTimeout = 20 * time.Minute
)

// Scheduler enqueues and cancels tasks. Publish tasks get a deterministic id
// so they can be found again when a post is moved or deleted.
type Scheduler struct {
	client    *asynq.Client
	inspector *asynq.Inspector
}

func NewScheduler(client *asynq.Client, inspector *asynq.Inspector) *Scheduler {
	return &Scheduler{
		client:    client,
		inspector: inspector,
	}
}

func PublishTaskID(postID string) string {
	return "publish:" + postID
}

func NewPublishTask(postID string) (*asynq.Task, error) {
	payload, err := json.Marshal(PublishPostPayload{PostID: postID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypePublishPost, payload), nil
}

func NewEnhancementTask(task service.EnhancementTask) (*asynq.Task, error) {
	payload, err := json.Marshal(task)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeEnhanceImage, payload), nil
}

// EnqueuePublish replaces any pending publish task for the post with one
// that runs at the given time.
func (s *Scheduler) EnqueuePublish(ctx context.Context, postID string, at time.Time) error {
	if err := s.CancelPublish(ctx, postID); err != nil {
		slog.Info(err.Error())
	}

	task, err := NewPublishTask(postID)
	if err != nil {
		return err
	}

	_, err = s.client.EnqueueContext(ctx, task,
		asynq.ProcessAt(at),
		asynq.TaskID(PublishTaskID(postID)),
		asynq.Queue(queueName),
		asynq.MaxRetry(3),
	)
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	slog.Info("publish task scheduled", "post_id", postID, "at", at)
	return nil
}

func (s *Scheduler) CancelPublish(ctx context.Context, postID string) error {
	err := s.inspector.DeleteTask(queueName, PublishTaskID(postID))
	if err == nil || errors.Is(err, asynq.ErrTaskNotFound) || errors.Is(err, asynq.ErrQueueNotFound) {
		return nil
	}
	return err
}

func (s *Scheduler) EnqueueEnhancement(ctx context.Context, et service.EnhancementTask) error {
	task, err := NewEnhancementTask(et)
	if err != nil {
		return err
	}

	_, err = s.client.EnqueueContext(ctx, task,
		asynq.Queue(queueName),
		asynq.MaxRetry(0),
		asynq.Timeout(enhancementTimeout),
	)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
