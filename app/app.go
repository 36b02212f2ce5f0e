package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"video-api/ddd/adapter/component"
	adapterhttp "video-api/ddd/adapter/http"
	appsvc "video-api/ddd/application/app"
	"video-api/ddd/domain/gateway"
	"video-api/ddd/infrastructure/database/persistence"
	"video-api/ddd/infrastructure/events"
	"video-api/ddd/infrastructure/identity"
	"video-api/ddd/infrastructure/queue"
	"video-api/ddd/infrastructure/storage"
	"video-api/ddd/infrastructure/store"
	"video-api/ddd/infrastructure/worker"
	"video-api/internal/resource"
	"video-api/pkg/config"
	pkgkafka "video-api/pkg/kafka"
	"video-api/pkg/logger"
	"video-api/pkg/manager"
	"video-api/pkg/observability"
	"video-api/pkg/registry"
	"video-api/pkg/task"
)

func Run() {
	// 先使用标准输出确保能看到日志
	fmt.Println("[STARTUP] Starting video api service...")

	// 加载配置
	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Printf("[ERROR] Failed to load config (%s): %v\n", cfgPath, err)
		os.Exit(1)
	}
	// 设置全局配置（必须在资源管理器初始化之前）
	config.SetGlobalConfig(cfg)
	fmt.Printf("[STARTUP] Config file loaded: %s\n", cfgPath)

	logService := logger.NewLogger(cfg)
	logger.SetGlobalLogger(logService)
	logger.Debug("Logger initialized", map[string]interface{}{
		"level":  cfg.Log.Level,
		"format": cfg.Log.Format,
		"output": cfg.Log.Output,
	})

	observability.StartProfiling("video-api", cfg.Profiling.ServerAddress)

	// 检查 FFmpeg 是否可用，直接在启动阶段失败
	if cfg.Worker.Enabled && !cfg.Transcode.Simulate {
		ffmpegBin := cfg.Transcode.FFmpeg.BinaryPath
		if strings.TrimSpace(ffmpegBin) == "" {
			ffmpegBin = "ffmpeg"
		}
		if _, err := exec.LookPath(ffmpegBin); err != nil {
			logger.Fatal(fmt.Sprintf("FFmpeg binary not found, please install or set transcode.ffmpeg.binary_path binary=%s error=%s", ffmpegBin, err.Error()))
		}
	}

	// 资源管理器初始化
	logger.Infof("Initializing resource manager...")
	resource.RegisterEnabled(cfg)
	manager.MustInitResources()
	defer manager.CloseResources()
	logger.Infof("Resource manager initialized")

	// 组装作业队列与状态存储
	if cfg.Queue.Kind == "redis" {
		queue.SetRedisClient(resource.DefaultRedisResource().Client())
	}
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
	roles := buildRoleProvider(cfg, db)

	// 应用服务
	pipelineApp := appsvc.NewPipelineApp(jobStore, jobQueue, storageGateway, publisher, cfg)
	userApp := appsvc.NewUserApp(roles)

	// 依赖注入容器
	deps := &manager.Dependencies{
		DB:          db,
		Config:      cfg,
		Store:       jobStore,
		Queue:       jobQueue,
		Events:      publisher,
		Storage:     storageGateway,
		PipelineApp: pipelineApp,
	}

	// 注册并启动组件
	logger.Infof("Initializing components...")
	manager.RegisterComponentPlugin(&worker.TranscodeWorkerComponentPlugin{})
	manager.RegisterComponentPlugin(&component.UploadEventConsumerPlugin{})
	manager.MustInitComponents(deps)
	logger.Infof("All components initialized")

	// 注册终态作业清理任务
	task.Register(store.NewSweeper(jobStore, cfg.Store.Retention, cfg.Store.SweepInterval))

	if err := task.StartAll(context.Background()); err != nil {
		logger.Fatal(fmt.Sprintf("Failed to start background tasks error=%v", err))
	}

	// 创建Gin引擎
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	engine := gin.New()
	router := adapterhttp.NewRouter(pipelineApp, userApp, cfg)
	router.SetupMiddleware(engine)
	router.SetupRoutes(engine)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal(fmt.Sprintf("Failed to start HTTP server error=%v", err))
		}
	}()
	logger.Infof("HTTP server started addr=%s service=%s", addr, "video-api")

	// 服务注册
	var serviceRegistry *registry.ServiceRegistry
	if cfg.ServiceRegistry.Enabled {
		registerAddr := addr
		if cfg.ServiceRegistry.RegisterHost != "" {
			registerAddr = fmt.Sprintf("%s:%d", cfg.ServiceRegistry.RegisterHost, cfg.Server.Port)
		}
		serviceRegistry, err = registry.NewServiceRegistry(cfg.ServiceRegistry, registerAddr)
		if err != nil {
			logger.Fatal(fmt.Sprintf("Failed to create service registry error=%v", err))
		}
		if err := serviceRegistry.Register(); err != nil {
			logger.Fatal(fmt.Sprintf("Failed to register service error=%v", err))
		}
	}

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Infof("Received shutdown signal, shutting down server...")

	if serviceRegistry != nil {
		if err := serviceRegistry.Deregister(); err != nil {
			logger.Warnf("Service deregister error=%v", err)
		}
	}

	// 先停入口再停后台，避免新作业落入已停的Worker
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Worker.ShutdownGracePeriod)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("HTTP server forced to close error=%v", err)
	}

	task.StopAll()
	manager.Shutdown()

	logger.Infof("Server exited safely")
	logService.Close()
	fmt.Println("[SHUTDOWN] Video api service exited safely")
}

// mustBuildStorage 组装存储网关：MinIO优先，未启用时落本地磁盘
func mustBuildStorage(cfg *config.Config) gateway.StorageGateway {
	if cfg.Minio.Enabled {
		res := resource.DefaultMinioResource()
		return storage.NewMinioStorage(res.GetClient(), res.GetRawBucket(), res.GetTranscodedBucket())
	}
	local, err := storage.NewLocalStorage(cfg.Upload.LocalStorageDir)
	if err != nil {
		logger.Fatal(fmt.Sprintf("Failed to init local storage dir=%s error=%v", cfg.Upload.LocalStorageDir, err))
	}
	return local
}

func buildEventPublisher(cfg *config.Config) gateway.JobEventPublisher {
	if cfg.Kafka.Enabled {
		return events.NewKafkaJobEventPublisher(pkgkafka.DefaultClient(), cfg.Kafka.Topics.JobEvents)
	}
	return events.NopJobEventPublisher{}
}

func buildRoleProvider(cfg *config.Config, db *gorm.DB) gateway.RoleProvider {
	if cfg.Database.Enabled && db != nil {
		return persistence.NewRoleRepositoryImpl(db)
	}
	return identity.NewMemoryRoleProvider()
}

// resolveConfigPath 根据环境选择配置文件，支持CONFIG_PATH覆盖、CONFIG_ENV区分环境
func resolveConfigPath() string {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return path
	}

	env := strings.ToLower(strings.TrimSpace(os.Getenv("CONFIG_ENV")))
	if env == "" {
		env = "dev"
	}

	switch env {
	case "prod", "production":
		return "configs/config_prod.yaml"
	case "dev", "development":
		return "configs/config.dev.yaml"
	default:
		return fmt.Sprintf("configs/config.%s.yaml", env)
	}
}
