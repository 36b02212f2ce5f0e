package resource

import (
	"video-api/pkg/config"
	"video-api/pkg/kafka"
	"video-api/pkg/logger"
	"video-api/pkg/manager"
)

type KafkaResource struct{}

type KafkaResourcePlugin struct{}

func (p *KafkaResourcePlugin) Name() string { return "kafka" }

func (p *KafkaResourcePlugin) MustCreateResource() manager.Resource { return &KafkaResource{} }

func (r *KafkaResource) MustOpen() {
	client := kafka.DefaultClient()
	client.MustOpen()

	cfg := config.GetGlobalConfig()
	for _, topic := range []string{cfg.Kafka.Topics.JobEvents, cfg.Kafka.Topics.Uploads} {
		if topic == "" {
			continue
		}
		if err := client.EnsureTopic(topic, 1, 1); err != nil {
			logger.Warnf("ensure kafka topic %s failed: %v", topic, err)
		}
	}
}

func (r *KafkaResource) Close() { kafka.DefaultClient().Close() }
