package component

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"

	appsvc "video-api/ddd/application/app"
	"video-api/pkg/config"
	pkgkafka "video-api/pkg/kafka"
	"video-api/pkg/logger"
	"video-api/pkg/manager"
)

// UploadEventConsumerPlugin 消费外部系统发布的上传完成事件，
// 为已入库的资产建立转码作业。
type UploadEventConsumerPlugin struct{}

func (p *UploadEventConsumerPlugin) Name() string { return "uploadEventConsumer" }

func (p *UploadEventConsumerPlugin) MustCreateComponent(deps *manager.Dependencies) manager.Component {
	cfg := deps.Config
	if cfg == nil {
		cfg = config.GetGlobalConfig()
	}
	if !cfg.Kafka.Enabled {
		return nil
	}
	app, ok := deps.PipelineApp.(appsvc.PipelineApp)
	if !ok {
		panic("upload event consumer requires the pipeline app dependency")
	}
	return &uploadEventConsumer{
		app:     app,
		topic:   cfg.Kafka.Topics.Uploads,
		groupID: cfg.Kafka.GroupID,
	}
}

type uploadEventConsumer struct {
	app     appsvc.PipelineApp
	topic   string
	groupID string
	ctx     context.Context
	cancel  context.CancelFunc
}

func (c *uploadEventConsumer) Start() error {
	c.ctx, c.cancel = context.WithCancel(context.Background())
	reader := pkgkafka.DefaultClient().Reader(c.topic, c.groupID)
	go func() {
		defer reader.Close()
		logger.Infof("Kafka consumer started topic=%s group=%s", c.topic, c.groupID)
		for {
			msg, err := reader.ReadMessage(c.ctx)
			if err != nil {
				if c.ctx.Err() != nil {
					return
				}
				if errors.Is(err, io.EOF) || strings.Contains(err.Error(), "EOF") {
					logger.Debug("Kafka reader EOF", nil)
				} else {
					logger.Warnf("Kafka read error error=%s", err.Error())
				}
				continue
			}
			var m struct {
				Filename  string `json:"filename"`
				SourceKey string `json:"source_key"`
			}
			if err := json.Unmarshal(msg.Value, &m); err != nil {
				logger.Warnf("Kafka message unmarshal error error=%s", err.Error())
				continue
			}
			logger.Infof("Kafka upload event received filename=%s source_key=%s", m.Filename, m.SourceKey)
			if _, err := c.app.CreateJobForAsset(context.Background(), m.Filename, m.SourceKey); err != nil {
				logger.Warnf("CreateJobForAsset failed error=%s source_key=%s", err.Error(), m.SourceKey)
			}
		}
	}()
	return nil
}

func (c *uploadEventConsumer) Stop() error {
	if c.cancel != nil {
		c.cancel()
	}
	return nil
}

func (c *uploadEventConsumer) GetName() string { return "uploadEventConsumer" }
