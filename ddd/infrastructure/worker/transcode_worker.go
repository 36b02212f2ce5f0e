package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"video-api/ddd/domain/entity"
	"video-api/ddd/domain/gateway"
	"video-api/ddd/domain/port"
	"video-api/ddd/domain/repo"
	"video-api/ddd/infrastructure/queue"
	"video-api/pkg/config"
	"video-api/pkg/logger"
)

// TranscodeWorker 转码工作器接口
type TranscodeWorker interface {
	// Start 启动工作器
	Start(ctx context.Context) error

	// Stop 停止工作器
	Stop() error

	// IsRunning 检查工作器是否运行中
	IsRunning() bool

	// GetStats 获取工作器统计信息
	GetStats() WorkerStats
}

// WorkerStats 工作器统计信息
type WorkerStats struct {
	ProcessedJobs    uint64
	SuccessfulJobs   uint64
	FailedJobs       uint64
	CurrentlyRunning int
	StartTime        time.Time
	LastJobTime      time.Time
}

// transcodeWorkerImpl 转码工作器实现
type transcodeWorkerImpl struct {
	id           string
	jobQueue     queue.JobQueue
	store        repo.JobStore
	encoder      port.Encoder
	supervisor   *RetrySupervisor
	events       gateway.JobEventPublisher
	workerCount  int
	claimTimeout time.Duration
	leaseTTL     time.Duration
	running      bool
	cancel       context.CancelFunc
	stats        WorkerStats
	mu           sync.RWMutex
	wg           sync.WaitGroup
}

// NewTranscodeWorker 创建转码工作器
func NewTranscodeWorker(
	id string,
	jobQueue queue.JobQueue,
	store repo.JobStore,
	encoder port.Encoder,
	supervisor *RetrySupervisor,
	events gateway.JobEventPublisher,
	cfg config.WorkerConfig,
) TranscodeWorker {
	workerCount := cfg.Count
	if workerCount <= 0 {
		workerCount = 1
	}
	return &transcodeWorkerImpl{
		id:           id,
		jobQueue:     jobQueue,
		store:        store,
		encoder:      encoder,
		supervisor:   supervisor,
		events:       events,
		workerCount:  workerCount,
		claimTimeout: cfg.ClaimTimeout,
		leaseTTL:     cfg.LeaseTTL,
		stats: WorkerStats{
			StartTime: time.Now(),
		},
	}
}

// Start 启动工作器
func (w *transcodeWorkerImpl) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("worker %s is already running", w.id)
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.running = true
	w.stats.StartTime = time.Now()

	logger.Infof("Starting transcode worker %s with %d goroutines", w.id, w.workerCount)

	for i := 0; i < w.workerCount; i++ {
		w.wg.Add(1)
		go w.workerLoop(workerCtx, i)
	}
	return nil
}

// Stop 停止工作器
func (w *transcodeWorkerImpl) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return nil
	}

	logger.Infof("Stopping transcode worker %s", w.id)
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
	w.running = false
	logger.Infof("Transcode worker %s stopped", w.id)
	return nil
}

// IsRunning 检查工作器是否运行中
func (w *transcodeWorkerImpl) IsRunning() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}

// GetStats 获取工作器统计信息
func (w *transcodeWorkerImpl) GetStats() WorkerStats {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.stats
}

// workerLoop 工作器主循环
func (w *transcodeWorkerImpl) workerLoop(ctx context.Context, workerID int) {
	defer w.wg.Done()

	logger.Infof("Worker %s-%d started", w.id, workerID)
	defer logger.Infof("Worker %s-%d stopped", w.id, workerID)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		claimCtx := ctx
		var cancel context.CancelFunc
		if w.claimTimeout > 0 {
			claimCtx, cancel = context.WithTimeout(ctx, w.claimTimeout)
		}
		jobID, err := w.jobQueue.Claim(claimCtx, fmt.Sprintf("%s-%d", w.id, workerID))
		if cancel != nil {
			cancel()
		}
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, queue.ErrQueueClosed) {
				return
			}
			if errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			logger.Errorf("Worker %s-%d failed to claim job: %v", w.id, workerID, err)
			time.Sleep(time.Second)
			continue
		}
		if jobID == "" {
			continue
		}

		w.processJob(ctx, jobID, workerID)
	}
}

// processJob 处理单个作业：逐格式编码，全部完成后置为completed
func (w *transcodeWorkerImpl) processJob(ctx context.Context, jobID string, workerID int) {
	logger.Infof("Worker %s-%d processing job %s", w.id, workerID, jobID)

	w.updateStats(func(stats *WorkerStats) {
		stats.CurrentlyRunning++
		stats.LastJobTime = time.Now()
	})
	defer w.updateStats(func(stats *WorkerStats) {
		stats.CurrentlyRunning--
		stats.ProcessedJobs++
	})

	job, err := w.store.Get(ctx, jobID)
	if err != nil {
		// 记录已被清理，租约直接释放
		logger.Warnf("Worker %s-%d claimed unknown job %s: %v", w.id, workerID, jobID, err)
		_ = w.jobQueue.Ack(ctx, jobID)
		return
	}
	if job.IsTerminal() {
		logger.Infof("Worker %s-%d skip terminal job %s status=%s", w.id, workerID, jobID, job.Status())
		_ = w.jobQueue.Ack(ctx, jobID)
		return
	}

	snapshot, err := w.store.Update(ctx, jobID, func(j *entity.VideoJobEntity) error {
		return j.MarkProcessing()
	})
	if err != nil {
		logger.Errorf("Worker %s-%d mark processing job %s failed: %v", w.id, workerID, jobID, err)
		_ = w.jobQueue.Ack(ctx, jobID)
		return
	}
	w.publish(ctx, snapshot)

	heartbeatCtx, stopHeartbeat := context.WithCancel(ctx)
	go w.heartbeatLoop(heartbeatCtx, jobID)

	err = w.encodeAllFormats(ctx, snapshot)
	stopHeartbeat()

	if err != nil {
		w.updateStats(func(stats *WorkerStats) { stats.FailedJobs++ })
		if port.IsTransient(err) {
			w.supervisor.OnTransientFailure(ctx, jobID, err.Error())
		} else {
			w.supervisor.OnUnrecoverableFailure(ctx, jobID, err.Error())
		}
		return
	}

	final, err := w.store.Update(ctx, jobID, func(j *entity.VideoJobEntity) error {
		return j.Complete()
	})
	if err != nil {
		logger.Errorf("Worker %s-%d complete job %s failed: %v", w.id, workerID, jobID, err)
		w.supervisor.OnTransientFailure(ctx, jobID, err.Error())
		return
	}
	_ = w.jobQueue.Ack(ctx, jobID)
	w.publish(ctx, final)
	w.updateStats(func(stats *WorkerStats) { stats.SuccessfulJobs++ })
	logger.Infof("Worker %s-%d successfully processed job %s", w.id, workerID, jobID)
}

// encodeAllFormats 按声明顺序逐格式编码，已完成的格式跳过
func (w *transcodeWorkerImpl) encodeAllFormats(ctx context.Context, job *entity.VideoJobEntity) error {
	cfg := config.GetGlobalConfig()
	profiles := make(map[string]config.OutputFormat, len(cfg.Transcode.OutputFormats))
	for _, p := range cfg.Transcode.OutputFormats {
		profiles[p.Name] = p
	}

	for _, name := range job.Formats() {
		if ctx.Err() != nil {
			return port.MarkTransient(ctx.Err())
		}
		if job.HasCompletedFormat(name) {
			continue
		}
		profile, ok := profiles[name]
		if !ok {
			return port.MarkUnrecoverable(fmt.Errorf("no encoding profile for format %s", name))
		}

		if err := w.encoder.Encode(ctx, job, profile); err != nil {
			return err
		}

		snapshot, err := w.store.Update(ctx, job.ID(), func(j *entity.VideoJobEntity) error {
			return j.CompleteFormat(name)
		})
		if err != nil {
			return err
		}
		w.publish(ctx, snapshot)
	}
	return nil
}

// heartbeatLoop 编码期间周期续租，避免长作业被误判为失联
func (w *transcodeWorkerImpl) heartbeatLoop(ctx context.Context, jobID string) {
	interval := w.leaseTTL / 3
	if interval <= 0 {
		interval = 20 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.jobQueue.Extend(ctx, jobID); err != nil {
				logger.Warnf("extend lease for job %s failed: %v", jobID, err)
			}
		}
	}
}

func (w *transcodeWorkerImpl) publish(ctx context.Context, job *entity.VideoJobEntity) {
	if w.events == nil {
		return
	}
	_ = w.events.PublishJobEvent(ctx, gateway.JobEvent{
		JobID:      job.ID(),
		Filename:   job.Filename(),
		Status:     job.ExternalStatus().String(),
		Progress:   job.Progress(),
		Attempt:    job.AttemptCount(),
		Error:      job.LastError(),
		OccurredAt: time.Now(),
	})
}

// updateStats 更新统计信息
func (w *transcodeWorkerImpl) updateStats(updateFunc func(*WorkerStats)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	updateFunc(&w.stats)
}
