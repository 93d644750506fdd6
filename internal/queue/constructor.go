package queue

import (
	"github.com/maheshrc27/captionflow/internal/service"
)

// Queue holds the services the asynq task handlers call into.
type Queue struct {
	ss service.SchedulingService
	es service.EnhancementService
}

func NewQueue(ss service.SchedulingService, es service.EnhancementService) *Queue {
	return &Queue{
		ss: ss,
		es: es,
	}
}

const (
	TaskTypePublishPost  = "publish:post"
	TaskTypeEnhanceImage = "enhance:image"
)

type PublishPostPayload struct {
	PostID string `json:"post_id"`
}
