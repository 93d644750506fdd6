package service

import (
	"context"
	"time"

	"github.com/maheshrc27/captionflow/internal/enhancer"
	"github.com/maheshrc27/captionflow/internal/models"
)

// TextGenerator is the LLM used for captions.
type TextGenerator interface {
	Complete(ctx context.Context, system, prompt string, temperature float64) (string, error)
}

type ImageCompressor interface {
	Compress(ctx context.Context, data []byte) ([]byte, error)
}

type VariationGenerator interface {
	GenerateVariations(ctx context.Context, image []byte, contentType, prompt string, n int) ([][]byte, error)
}

type ImageEnhancer interface {
	Submit(ctx context.Context, image []byte, filename, contentType string) (*enhancer.Job, error)
	Status(ctx context.Context, jobID string) (*enhancer.Job, error)
	Download(ctx context.Context, outputURL string) ([]byte, string, error)
}

// EnhancementTask identifies the item an enhancement worker should process.
type EnhancementTask struct {
	UserID string             `json:"user_id"`
	Kind   models.ContentKind `json:"kind"`
	ItemID string             `json:"item_id"`
}

// TaskScheduler hands work to the background queue.
type TaskScheduler interface {
	EnqueuePublish(ctx context.Context, postID string, at time.Time) error
	CancelPublish(ctx context.Context, postID string) error
	EnqueueEnhancement(ctx context.Context, task EnhancementTask) error
}
