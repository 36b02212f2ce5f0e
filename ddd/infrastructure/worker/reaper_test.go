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

func TestLeaseReaperReschedulesExpiredJob(t *testing.T) {
	s := store.NewMemoryJobStore()
	q := queue.NewMemoryJobQueue(10, 20*time.Millisecond)
	defer q.Close()
	ctx := context.Background()

	job := entity.NewVideoJobEntity("clip.mp4", "raw/clip.mp4", []string{"720p"}, 3)
	require.NoError(t, s.Create(ctx, job))
	require.NoError(t, q.Enqueue(ctx, job.ID()))

	// 模拟worker领取后失联：标记processing但不再续租
	claimed, err := q.Claim(ctx, "w1")
	require.NoError(t, err)
	require.Equal(t, job.ID(), claimed)
	_, err = s.Update(ctx, job.ID(), func(j *entity.VideoJobEntity) error {
		return j.MarkProcessing()
	})
	require.NoError(t, err)

	sup := NewRetrySupervisor(s, q, events.NopJobEventPublisher{}, service.BackoffPolicy{Base: time.Millisecond, Max: 5 * time.Millisecond})
	reaper := NewLeaseReaper(q, sup, 10*time.Millisecond)
	require.NoError(t, reaper.Start(ctx))
	defer func() { require.NoError(t, reaper.Stop()) }()

	require.Eventually(t, func() bool {
		got, err := s.Get(ctx, job.ID())
		return err == nil && got.AttemptCount() == 1 && got.Status() == vo.JobStatusQueued
	}, 2*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		return q.Size() == 1
	}, time.Second, 10*time.Millisecond)

	got, err := s.Get(ctx, job.ID())
	require.NoError(t, err)
	assert.Equal(t, "worker lease expired", got.LastError())
}
