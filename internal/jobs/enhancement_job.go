package job

import (
	"context"
	"log/slog"
	"time"

	"github.com/maheshrc27/captionflow/internal/service"
)

const jobTimeout = 5 * time.Minute

// EnhancementJob keeps enhancement state honest between requests.
type EnhancementJob struct {
	es service.EnhancementService
}

func NewEnhancementJob(es service.EnhancementService) *EnhancementJob {
	return &EnhancementJob{es: es}
}

// SweepStale fails rows stuck in processing.
func (j *EnhancementJob) SweepStale() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	n, err := j.es.SweepStale(ctx)
	if err != nil {
		slog.Info(err.Error())
		return
	}
	if n > 0 {
		slog.Info("failed stale enhancements", "count", n)
	}
}

func (j *EnhancementJob) ReconcileMarkers() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if err := j.es.ReconcileAll(ctx); err != nil {
		slog.Info(err.Error())
	}
}
