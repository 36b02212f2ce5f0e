package app

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"

	"gorm.io/gorm"

	appsvc "video-api/ddd/application/app"
	"video-api/ddd/infrastructure/database/persistence"
	"video-api/ddd/infrastructure/queue"
	"video-api/ddd/infrastructure/store"
	"video-api/ddd/infrastructure/worker"
	"video-api/internal/resource"
	"video-api/pkg/config"
	"video-api/pkg/logger"
	"video-api/pkg/manager"
	"video-api/pkg/observability"
	"video-api/pkg/task"
)

// RunWorker 启动纯Worker进程（无HTTP入口）。
// 要求 queue.kind=redis 且启用数据库镜像，否则与API进程看不到同一批作业。
func RunWorker() {
	fmt.Println("[STARTUP] Starting video worker...")

	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Printf("[ERROR] Failed to load config (%s): %v\n", cfgPath, err)
		os.Exit(1)
	}
	cfg.Worker.Enabled = true
	config.SetGlobalConfig(cfg)

	logService := logger.NewLogger(cfg)
	logger.SetGlobalLogger(logService)

	observability.StartProfiling("video-worker", cfg.Profiling.ServerAddress)

	if cfg.Queue.Kind != "redis" {
		logger.Fatal("worker process requires queue.kind=redis to share jobs with the api process")
	}

	if !cfg.Transcode.Simulate {
		ffmpegBin := cfg.Transcode.FFmpeg.BinaryPath
		if strings.TrimSpace(ffmpegBin) == "" {
			ffmpegBin = "ffmpeg"
		}
		if _, err := exec.LookPath(ffmpegBin); err != nil {
			logger.Fatal(fmt.Sprintf("FFmpeg binary not found binary=%s error=%s", ffmpegBin, err.Error()))
		}
	}

	resource.RegisterEnabled(cfg)
	manager.MustInitResources()
	defer manager.CloseResources()

	queue.SetRedisClient(resource.DefaultRedisResource().Client())
	jobQueue := queue.DefaultJobQueue()
	defer jobQueue.Close()

	jobStore := store.NewMemoryJobStore()
	var db *gorm.DB
	if cfg.Database.Enabled {
		db = resource.DefaultMysqlResource().MainDB()
		if cfg.Store.Persist {
			jobStore.SetMirror(persistence.NewJobMirror(db))
		}
	}

	storageGateway := mustBuildStorage(cfg)
	publisher := buildEventPublisher(cfg)
	pipelineApp := appsvc.NewPipelineApp(jobStore, jobQueue, storageGateway, publisher, cfg)

	deps := &manager.Dependencies{
		DB:          db,
		Config:      cfg,
		Store:       jobStore,
		Queue:       jobQueue,
		Events:      publisher,
		Storage:     storageGateway,
		PipelineApp: pipelineApp,
	}

	manager.RegisterComponentPlugin(&worker.TranscodeWorkerComponentPlugin{})
	manager.MustInitComponents(deps)

	if err := task.StartAll(context.Background()); err != nil {
		logger.Fatal(fmt.Sprintf("Failed to start background tasks error=%v", err))
	}
	logger.Infof("Worker started worker_id=%s count=%d", cfg.Worker.WorkerID, cfg.Worker.Count)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Infof("Received shutdown signal, shutting down worker...")
	task.StopAll()
	manager.Shutdown()
	logService.Close()
	fmt.Println("[SHUTDOWN] Video worker exited safely")
}
