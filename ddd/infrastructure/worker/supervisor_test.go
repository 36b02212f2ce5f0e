package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"video-api/ddd/domain/entity"
	"video-api/ddd/domain/service"
	"video-api/ddd/domain/vo"
	"video-api/ddd/infrastructure/events"
	"video-api/ddd/infrastructure/queue"
	"video-api/ddd/infrastructure/store"
)

func newSupervisorFixture(t *testing.T, maxAttempts int) (*RetrySupervisor, *store.MemoryJobStore, *queue.MemoryJobQueue, *entity.VideoJobEntity) {
	t.Helper()
	s := store.NewMemoryJobStore()
	q := queue.NewMemoryJobQueue(10, time.Minute)
	t.Cleanup(func() { q.Close() })

	job := entity.NewVideoJobEntity("clip.mp4", "raw/clip.mp4", []string{"720p"}, maxAttempts)
	require.NoError(t, s.Create(context.Background(), job))

	backoff := service.BackoffPolicy{Base: time.Millisecond, Max: 10 * time.Millisecond}
	sup := NewRetrySupervisor(s, q, events.NopJobEventPublisher{}, backoff)
	return sup, s, q, job
}

func TestTransientFailureRequeuesWithBackoff(t *testing.T) {
	sup, s, q, job := newSupervisorFixture(t, 3)
	ctx := context.Background()

	_, err := s.Update(ctx, job.ID(), func(j *entity.VideoJobEntity) error {
		return j.MarkProcessing()
	})
	require.NoError(t, err)

	sup.OnTransientFailure(ctx, job.ID(), "connection reset")

	got, err := s.Get(ctx, job.ID())
	require.NoError(t, err)
	assert.Equal(t, 1, got.AttemptCount())
	assert.Equal(t, 0, got.Progress())
	assert.Equal(t, vo.JobStatusQueued, got.Status())
	// 重试等待期对外仍是processing
	assert.Equal(t, vo.JobStatusProcessing, got.ExternalStatus())
	assert.Equal(t, "connection reset", got.LastError())

	require.Eventually(t, func() bool {
		return q.Size() == 1
	}, time.Second, 5*time.Millisecond)
}

func TestTransientFailureExhaustsAttempts(t *testing.T) {
	sup, s, q, job := newSupervisorFixture(t, 1)
	ctx := context.Background()

	_, err := s.Update(ctx, job.ID(), func(j *entity.VideoJobEntity) error {
		return j.MarkProcessing()
	})
	require.NoError(t, err)

	sup.OnTransientFailure(ctx, job.ID(), "still broken")

	got, err := s.Get(ctx, job.ID())
	require.NoError(t, err)
	assert.Equal(t, vo.JobStatusFailed, got.Status())
	assert.Equal(t, 1, got.AttemptCount())
	assert.True(t, got.IsTerminal())

	// 终态作业不得重新入队
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 0, q.Size())
}

func TestRequeueFailureEndsInTerminalState(t *testing.T) {
	sup, s, q, job := newSupervisorFixture(t, 3)
	ctx := context.Background()

	_, err := s.Update(ctx, job.ID(), func(j *entity.VideoJobEntity) error {
		return j.MarkProcessing()
	})
	require.NoError(t, err)

	// 队列不可用时作业不得滞留在对外不可见的等待状态
	require.NoError(t, q.Close())
	sup.OnTransientFailure(ctx, job.ID(), "encoder crashed")

	got, err := s.Get(ctx, job.ID())
	require.NoError(t, err)
	assert.Equal(t, vo.JobStatusFailed, got.Status())
	assert.True(t, got.IsTerminal())
	assert.Equal(t, "encoder crashed", got.LastError())
}

func TestUnrecoverableFailureSkipsRetry(t *testing.T) {
	sup, s, q, job := newSupervisorFixture(t, 3)
	ctx := context.Background()

	_, err := s.Update(ctx, job.ID(), func(j *entity.VideoJobEntity) error {
		return j.MarkProcessing()
	})
	require.NoError(t, err)

	sup.OnUnrecoverableFailure(ctx, job.ID(), "corrupt input")

	got, err := s.Get(ctx, job.ID())
	require.NoError(t, err)
	assert.Equal(t, vo.JobStatusFailed, got.Status())
	assert.Equal(t, "corrupt input", got.LastError())

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 0, q.Size())
}

func TestLeaseExpiryFollowsTransientPath(t *testing.T) {
	sup, s, q, job := newSupervisorFixture(t, 3)
	ctx := context.Background()

	_, err := s.Update(ctx, job.ID(), func(j *entity.VideoJobEntity) error {
		return j.MarkProcessing()
	})
	require.NoError(t, err)

	sup.OnLeaseExpired(ctx, job.ID())

	got, err := s.Get(ctx, job.ID())
	require.NoError(t, err)
	assert.Equal(t, 1, got.AttemptCount())
	assert.Equal(t, vo.JobStatusQueued, got.Status())

	require.Eventually(t, func() bool {
		return q.Size() == 1
	}, time.Second, 5*time.Millisecond)
}
