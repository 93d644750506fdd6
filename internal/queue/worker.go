package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/maheshrc27/captionflow/internal/service"
)

func (j *Queue) HandlePublishPostTask(ctx context.Context, task *asynq.Task) error {
	var payload PublishPostPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	if err := j.ss.PublishScheduled(ctx, payload.PostID); err != nil {
		slog.Error("publish task failed", "post_id", payload.PostID, "error", err)
		if !service.IsTerminal(err) && lastAttempt(ctx) {
			if ferr := j.ss.FailPublish(ctx, payload.PostID, err); ferr != nil {
				slog.Info(ferr.Error())
			}
		}
		return retryable(err)
	}
	return nil
}

func (j *Queue) HandleEnhanceImageTask(ctx context.Context, task *asynq.Task) error {
	var payload service.EnhancementTask
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	if err := j.es.Process(ctx, payload); err != nil {
		return retryable(err)
	}
	return nil
}

// retryable marks errors that another attempt cannot fix as SkipRetry.
func retryable(err error) error {
	if service.IsTerminal(err) {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	return err
}

// lastAttempt reports whether asynq will not run the task again after a
// failed attempt.
var lastAttempt = func(ctx context.Context) bool {
	retried, ok := asynq.GetRetryCount(ctx)
	if !ok {
		return false
	}
	maxRetry, ok := asynq.GetMaxRetry(ctx)
	if !ok {
		return false
	}
	return retried >= maxRetry
}
