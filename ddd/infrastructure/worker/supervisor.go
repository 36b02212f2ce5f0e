package worker

import (
	"context"
	"time"

	"video-api/ddd/domain/entity"
	"video-api/ddd/domain/gateway"
	"video-api/ddd/domain/repo"
	"video-api/ddd/domain/service"
	"video-api/ddd/infrastructure/queue"
	"video-api/pkg/logger"
)

// RetrySupervisor 重试监督器：所有失败都经由它裁决。
// 瞬时失败在尝试上限内退避重入队，超限或不可恢复失败置为终态failed。
type RetrySupervisor struct {
	store   repo.JobStore
	queue   queue.JobQueue
	events  gateway.JobEventPublisher
	backoff service.BackoffPolicy
}

// NewRetrySupervisor 创建重试监督器
func NewRetrySupervisor(
	store repo.JobStore,
	jobQueue queue.JobQueue,
	events gateway.JobEventPublisher,
	backoff service.BackoffPolicy,
) *RetrySupervisor {
	return &RetrySupervisor{
		store:   store,
		queue:   jobQueue,
		events:  events,
		backoff: backoff,
	}
}

// OnTransientFailure 处理瞬时失败：登记尝试并决定重试或终态失败
func (s *RetrySupervisor) OnTransientFailure(ctx context.Context, jobID, reason string) {
	var attempt int
	snapshot, err := s.store.Update(ctx, jobID, func(job *entity.VideoJobEntity) error {
		attempt = job.RegisterFailedAttempt(reason)
		if attempt >= job.MaxAttempts() {
			return job.Fail(reason)
		}
		return job.ResetForRetry()
	})
	if err != nil {
		logger.Errorf("register failed attempt for job %s: %v", jobID, err)
		s.ack(ctx, jobID)
		return
	}

	if snapshot.IsTerminal() {
		logger.Info("job failed after exhausting attempts", map[string]interface{}{
			"job_id":   jobID,
			"attempts": attempt,
			"reason":   reason,
		})
		s.ack(ctx, jobID)
		s.publish(ctx, snapshot)
		return
	}

	delay := s.backoff.JitteredDelay(attempt)
	logger.Warnf("job %s attempt %d/%d failed, retrying in %s: %s",
		jobID, attempt, snapshot.MaxAttempts(), delay, reason)
	if err := s.queue.Requeue(ctx, jobID, delay); err != nil {
		logger.Errorf("requeue job %s failed: %v", jobID, err)
		// 无法重新入队的作业不能滞留在不可见状态，直接终态失败
		failed, updErr := s.store.Update(ctx, jobID, func(job *entity.VideoJobEntity) error {
			return job.Fail(reason)
		})
		s.ack(ctx, jobID)
		if updErr != nil {
			logger.Errorf("fail job %s after requeue failure: %v", jobID, updErr)
			return
		}
		s.publish(ctx, failed)
		return
	}
	s.publish(ctx, snapshot)
}

// OnUnrecoverableFailure 处理不可恢复失败：作业立即终态失败
func (s *RetrySupervisor) OnUnrecoverableFailure(ctx context.Context, jobID, reason string) {
	snapshot, err := s.store.Update(ctx, jobID, func(job *entity.VideoJobEntity) error {
		job.RegisterFailedAttempt(reason)
		return job.Fail(reason)
	})
	if err != nil {
		logger.Errorf("fail job %s: %v", jobID, err)
		s.ack(ctx, jobID)
		return
	}
	logger.Info("job failed with unrecoverable error", map[string]interface{}{
		"job_id": jobID,
		"reason": reason,
	})
	s.ack(ctx, jobID)
	s.publish(ctx, snapshot)
}

// OnLeaseExpired 处理租约过期：按瞬时失败路径重新调度
func (s *RetrySupervisor) OnLeaseExpired(ctx context.Context, jobID string) {
	s.OnTransientFailure(ctx, jobID, "worker lease expired")
}

func (s *RetrySupervisor) ack(ctx context.Context, jobID string) {
	if err := s.queue.Ack(ctx, jobID); err != nil {
		logger.Errorf("ack job %s failed: %v", jobID, err)
	}
}

func (s *RetrySupervisor) publish(ctx context.Context, job *entity.VideoJobEntity) {
	if s.events == nil {
		return
	}
	_ = s.events.PublishJobEvent(ctx, gateway.JobEvent{
		JobID:      job.ID(),
		Filename:   job.Filename(),
		Status:     job.ExternalStatus().String(),
		Progress:   job.Progress(),
		Attempt:    job.AttemptCount(),
		Error:      job.LastError(),
		OccurredAt: time.Now(),
	})
}
