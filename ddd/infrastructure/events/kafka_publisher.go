package events

import (
	"context"
	"encoding/json"
	"fmt"

	"video-api/ddd/domain/gateway"
	"video-api/pkg/kafka"
	"video-api/pkg/logger"
)

// KafkaJobEventPublisher 把作业生命周期事件写入Kafka。
// 事件是尽力而为的旁路输出，发布失败不阻塞流水线。
type KafkaJobEventPublisher struct {
	client *kafka.Client
	topic  string
}

var _ gateway.JobEventPublisher = (*KafkaJobEventPublisher)(nil)

// NewKafkaJobEventPublisher 创建Kafka事件发布器
func NewKafkaJobEventPublisher(client *kafka.Client, topic string) *KafkaJobEventPublisher {
	return &KafkaJobEventPublisher{client: client, topic: topic}
}

// PublishJobEvent 发布作业事件，按job_id分区保证同一作业事件有序
func (p *KafkaJobEventPublisher) PublishJobEvent(ctx context.Context, evt gateway.JobEvent) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal job event: %w", err)
	}
	if err := p.client.Produce(ctx, p.topic, []byte(evt.JobID), payload); err != nil {
		logger.Errorf("publish job event job_id=%s status=%s failed: %v", evt.JobID, evt.Status, err)
		return err
	}
	return nil
}

// NopJobEventPublisher Kafka未启用时的空实现
type NopJobEventPublisher struct{}

var _ gateway.JobEventPublisher = (*NopJobEventPublisher)(nil)

// PublishJobEvent 丢弃事件
func (NopJobEventPublisher) PublishJobEvent(ctx context.Context, evt gateway.JobEvent) error {
	return nil
}
