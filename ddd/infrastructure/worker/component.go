package worker

import (
	"context"
	"fmt"

	"video-api/ddd/domain/gateway"
	"video-api/ddd/domain/port"
	"video-api/ddd/domain/repo"
	"video-api/ddd/domain/service"
	"video-api/ddd/infrastructure/executor"
	"video-api/ddd/infrastructure/queue"
	"video-api/pkg/config"
	"video-api/pkg/logger"
	"video-api/pkg/manager"
	"video-api/pkg/task"
)

// TranscodeWorkerComponentPlugin 负责组装并启动转码Worker与租约回收器
type TranscodeWorkerComponentPlugin struct{}

func (p *TranscodeWorkerComponentPlugin) Name() string {
	return "transcodeWorkerComponent"
}

func (p *TranscodeWorkerComponentPlugin) MustCreateComponent(deps *manager.Dependencies) manager.Component {
	cfg := deps.Config
	if cfg == nil {
		cfg = config.GetGlobalConfig()
	}
	if !cfg.Worker.Enabled {
		logger.Infof("Transcode worker component disabled by config")
		return nil
	}

	store, ok := deps.Store.(repo.JobStore)
	if !ok {
		panic("worker component requires a job store dependency")
	}
	jobQueue, ok := deps.Queue.(queue.JobQueue)
	if !ok {
		panic("worker component requires a job queue dependency")
	}
	events, _ := deps.Events.(gateway.JobEventPublisher)

	var encoder port.Encoder
	if cfg.Transcode.Simulate {
		encoder = executor.NewSimulatedEncoder(cfg.Transcode)
	} else {
		storageGateway, ok := deps.Storage.(gateway.StorageGateway)
		if !ok {
			panic("worker component requires a storage gateway dependency")
		}
		encoder = executor.NewFFmpegEncoder(cfg, storageGateway)
	}

	supervisor := NewRetrySupervisor(store, jobQueue, events, service.NewBackoffPolicy(cfg.Retry))

	return &transcodeWorkerComponent{
		name:   "transcodeWorker",
		queue:  jobQueue,
		worker: NewTranscodeWorker(cfg.Worker.WorkerID, jobQueue, store, encoder, supervisor, events, cfg.Worker),
		reaper: NewLeaseReaper(jobQueue, supervisor, cfg.Worker.ReapInterval),
	}
}

type transcodeWorkerComponent struct {
	name   string
	queue  queue.JobQueue
	worker TranscodeWorker
	reaper *LeaseReaper
}

func (c *transcodeWorkerComponent) Start() error {
	if c.worker == nil {
		return fmt.Errorf("transcode worker not initialized")
	}

	// 注册后台任务，让应用启动时统一管理
	task.Register(&backgroundTaskAdapter{name: c.name, startFunc: c.worker.Start, stopFunc: c.worker.Stop})
	task.Register(&backgroundTaskAdapter{name: c.name + "-reaper", startFunc: c.reaper.Start, stopFunc: c.reaper.Stop})
	logger.Infof("Transcode worker component registered background tasks name=%s", c.name)
	return nil
}

func (c *transcodeWorkerComponent) Stop() error {
	// 背景任务由 task.Manager 控制停止，这里保持幂等
	logger.Infof("Transcode worker component stopped name=%s", c.name)
	return nil
}

func (c *transcodeWorkerComponent) GetName() string {
	return c.name
}

// backgroundTaskAdapter adapts Start/Stop functions to the BackgroundTask interface.
type backgroundTaskAdapter struct {
	name      string
	startFunc func(ctx context.Context) error
	stopFunc  func() error
}

func (b *backgroundTaskAdapter) Name() string                    { return b.name }
func (b *backgroundTaskAdapter) Start(ctx context.Context) error { return b.startFunc(ctx) }
func (b *backgroundTaskAdapter) Stop() error                     { return b.stopFunc() }
