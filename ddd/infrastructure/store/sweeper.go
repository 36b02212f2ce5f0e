package store

import (
	"context"
	"time"

	"video-api/ddd/domain/repo"
	"video-api/pkg/logger"
)

// Sweeper 定期清理过保留期的终态作业
type Sweeper struct {
	store     repo.JobStore
	retention time.Duration
	interval  time.Duration
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// NewSweeper 创建清理器
func NewSweeper(store repo.JobStore, retention, interval time.Duration) *Sweeper {
	return &Sweeper{
		store:     store,
		retention: retention,
		interval:  interval,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Name 后台任务名称
func (s *Sweeper) Name() string {
	return "jobStoreSweeper"
}

// Start 启动清理循环
func (s *Sweeper) Start(ctx context.Context) error {
	go s.loop(ctx)
	return nil
}

func (s *Sweeper) loop(ctx context.Context) {
	defer close(s.doneCh)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			n, err := s.store.SweepTerminal(ctx, time.Now().Add(-s.retention))
			if err != nil {
				logger.Errorf("sweep terminal jobs failed: %v", err)
				continue
			}
			if n > 0 {
				logger.Info("swept terminal jobs", map[string]interface{}{"count": n})
			}
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Stop 停止清理循环
func (s *Sweeper) Stop() error {
	close(s.stopCh)
	<-s.doneCh
	return nil
}
