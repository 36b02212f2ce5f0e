package worker

import (
	"context"
	"time"

	"video-api/ddd/infrastructure/queue"
	"video-api/pkg/logger"
)

// LeaseReaper 定期取回租约过期的作业，交由重试监督器重新调度
type LeaseReaper struct {
	queue      queue.JobQueue
	supervisor *RetrySupervisor
	interval   time.Duration
	stopCh     chan struct{}
	doneCh     chan struct{}
}

// NewLeaseReaper 创建租约回收器
func NewLeaseReaper(jobQueue queue.JobQueue, supervisor *RetrySupervisor, interval time.Duration) *LeaseReaper {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &LeaseReaper{
		queue:      jobQueue,
		supervisor: supervisor,
		interval:   interval,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
}

// Start 启动回收循环
func (r *LeaseReaper) Start(ctx context.Context) error {
	go r.loop(ctx)
	return nil
}

func (r *LeaseReaper) loop(ctx context.Context) {
	defer close(r.doneCh)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.reapOnce(ctx)
		case <-r.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (r *LeaseReaper) reapOnce(ctx context.Context) {
	expired, err := r.queue.ReapExpired(ctx)
	if err != nil {
		logger.Errorf("reap expired leases failed: %v", err)
		return
	}
	for _, jobID := range expired {
		logger.Warnf("lease expired for job %s, rescheduling", jobID)
		r.supervisor.OnLeaseExpired(ctx, jobID)
	}
}

// Stop 停止回收循环
func (r *LeaseReaper) Stop() error {
	close(r.stopCh)
	<-r.doneCh
	return nil
}
