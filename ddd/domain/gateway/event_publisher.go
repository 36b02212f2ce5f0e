package gateway

import (
	"context"
	"time"
)

// JobEvent 作业生命周期事件（发布到消息总线，尽力而为）
type JobEvent struct {
	JobID      string    `json:"job_id"`
	Filename   string    `json:"filename"`
	Status     string    `json:"status"`
	Progress   int       `json:"progress"`
	Attempt    int       `json:"attempt"`
	Error      string    `json:"error,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// JobEventPublisher 作业事件发布网关
type JobEventPublisher interface {
	PublishJobEvent(ctx context.Context, evt JobEvent) error
}
