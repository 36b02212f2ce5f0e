package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"video-api/ddd/domain/entity"
	"video-api/ddd/domain/port"
	"video-api/ddd/domain/service"
	"video-api/ddd/domain/vo"
	"video-api/ddd/infrastructure/events"
	"video-api/ddd/infrastructure/queue"
	"video-api/ddd/infrastructure/store"
	"video-api/pkg/config"
)

// scriptedEncoder 前failFirst次调用返回mark标注的错误，之后成功
type scriptedEncoder struct {
	mu        sync.Mutex
	calls     int
	failFirst int
	mark      func(error) error
}

func (e *scriptedEncoder) Encode(_ context.Context, _ *entity.VideoJobEntity, _ config.OutputFormat) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.calls <= e.failFirst {
		return e.mark(errors.New("encode failed"))
	}
	return nil
}

func setWorkerTestConfig(t *testing.T) {
	t.Helper()
	config.SetGlobalConfig(&config.Config{
		Transcode: config.TranscodeConfig{
			OutputFormats: []config.OutputFormat{
				{Name: "720p", Resolution: "1280x720", Bitrate: "2500k"},
				{Name: "480p", Resolution: "854x480", Bitrate: "1000k"},
			},
		},
	})
}

func startWorkerFixture(t *testing.T, encoder port.Encoder, maxAttempts int) (*store.MemoryJobStore, *queue.MemoryJobQueue, *entity.VideoJobEntity) {
	t.Helper()
	setWorkerTestConfig(t)

	s := store.NewMemoryJobStore()
	q := queue.NewMemoryJobQueue(10, time.Minute)

	backoff := service.BackoffPolicy{Base: time.Millisecond, Max: 5 * time.Millisecond}
	sup := NewRetrySupervisor(s, q, events.NopJobEventPublisher{}, backoff)

	w := NewTranscodeWorker("test-worker", q, s, encoder, sup, events.NopJobEventPublisher{}, config.WorkerConfig{
		Count:        1,
		ClaimTimeout: 50 * time.Millisecond,
		LeaseTTL:     time.Minute,
	})

	ctx := context.Background()
	job := entity.NewVideoJobEntity("clip.mp4", "raw/clip.mp4", []string{"720p", "480p"}, maxAttempts)
	require.NoError(t, s.Create(ctx, job))
	require.NoError(t, q.Enqueue(ctx, job.ID()))

	require.NoError(t, w.Start(ctx))
	t.Cleanup(func() {
		require.NoError(t, w.Stop())
		q.Close()
	})
	return s, q, job
}

func TestWorkerCompletesJob(t *testing.T) {
	enc := &scriptedEncoder{}
	s, _, job := startWorkerFixture(t, enc, 3)

	require.Eventually(t, func() bool {
		got, err := s.Get(context.Background(), job.ID())
		return err == nil && got.Status() == vo.JobStatusCompleted
	}, 3*time.Second, 10*time.Millisecond)

	got, err := s.Get(context.Background(), job.ID())
	require.NoError(t, err)
	assert.Equal(t, 100, got.Progress())
	assert.ElementsMatch(t, []string{"720p", "480p"}, got.CompletedFormats())
	assert.NotNil(t, got.FinishedAt())
	assert.Equal(t, 0, got.AttemptCount())
}

func TestWorkerRetriesTransientFailure(t *testing.T) {
	enc := &scriptedEncoder{failFirst: 1, mark: port.MarkTransient}
	s, _, job := startWorkerFixture(t, enc, 3)

	require.Eventually(t, func() bool {
		got, err := s.Get(context.Background(), job.ID())
		return err == nil && got.Status() == vo.JobStatusCompleted
	}, 3*time.Second, 10*time.Millisecond)

	got, err := s.Get(context.Background(), job.ID())
	require.NoError(t, err)
	assert.Equal(t, 1, got.AttemptCount())
	assert.Equal(t, 100, got.Progress())
}

func TestWorkerFailsAfterMaxAttempts(t *testing.T) {
	enc := &scriptedEncoder{failFirst: 100, mark: port.MarkTransient}
	s, q, job := startWorkerFixture(t, enc, 2)

	require.Eventually(t, func() bool {
		got, err := s.Get(context.Background(), job.ID())
		return err == nil && got.Status() == vo.JobStatusFailed
	}, 3*time.Second, 10*time.Millisecond)

	got, err := s.Get(context.Background(), job.ID())
	require.NoError(t, err)
	assert.Equal(t, 2, got.AttemptCount())
	assert.Contains(t, got.LastError(), "encode failed")

	// 终态后队列不得残留
	require.Eventually(t, func() bool {
		return q.Size() == 0
	}, time.Second, 10*time.Millisecond)
}

func TestWorkerUnrecoverableFailureSkipsRetry(t *testing.T) {
	enc := &scriptedEncoder{failFirst: 100, mark: port.MarkUnrecoverable}
	s, _, job := startWorkerFixture(t, enc, 3)

	require.Eventually(t, func() bool {
		got, err := s.Get(context.Background(), job.ID())
		return err == nil && got.Status() == vo.JobStatusFailed
	}, 3*time.Second, 10*time.Millisecond)

	got, err := s.Get(context.Background(), job.ID())
	require.NoError(t, err)
	assert.Equal(t, 1, got.AttemptCount())

	enc.mu.Lock()
	defer enc.mu.Unlock()
	assert.Equal(t, 1, enc.calls)
}

func TestWorkerRejectsUnknownProfile(t *testing.T) {
	setWorkerTestConfig(t)

	s := store.NewMemoryJobStore()
	q := queue.NewMemoryJobQueue(10, time.Minute)
	defer q.Close()

	backoff := service.BackoffPolicy{Base: time.Millisecond, Max: 5 * time.Millisecond}
	sup := NewRetrySupervisor(s, q, events.NopJobEventPublisher{}, backoff)
	w := NewTranscodeWorker("test-worker", q, s, &scriptedEncoder{}, sup, events.NopJobEventPublisher{}, config.WorkerConfig{
		Count:        1,
		ClaimTimeout: 50 * time.Millisecond,
		LeaseTTL:     time.Minute,
	})

	ctx := context.Background()
	job := entity.NewVideoJobEntity("clip.mp4", "raw/clip.mp4", []string{"4k"}, 3)
	require.NoError(t, s.Create(ctx, job))
	require.NoError(t, q.Enqueue(ctx, job.ID()))

	require.NoError(t, w.Start(ctx))
	defer func() { require.NoError(t, w.Stop()) }()

	require.Eventually(t, func() bool {
		got, err := s.Get(ctx, job.ID())
		return err == nil && got.Status() == vo.JobStatusFailed
	}, 3*time.Second, 10*time.Millisecond)

	got, err := s.Get(ctx, job.ID())
	require.NoError(t, err)
	assert.Contains(t, got.LastError(), "no encoding profile")
}

func TestWorkerStartStop(t *testing.T) {
	setWorkerTestConfig(t)

	q := queue.NewMemoryJobQueue(10, time.Minute)
	defer q.Close()
	s := store.NewMemoryJobStore()
	sup := NewRetrySupervisor(s, q, events.NopJobEventPublisher{}, service.BackoffPolicy{Base: time.Millisecond, Max: time.Millisecond})
	w := NewTranscodeWorker("test-worker", q, s, &scriptedEncoder{}, sup, events.NopJobEventPublisher{}, config.WorkerConfig{
		Count:        2,
		ClaimTimeout: 20 * time.Millisecond,
		LeaseTTL:     time.Minute,
	})

	assert.False(t, w.IsRunning())
	require.NoError(t, w.Start(context.Background()))
	assert.True(t, w.IsRunning())
	assert.Error(t, w.Start(context.Background()))

	require.NoError(t, w.Stop())
	assert.False(t, w.IsRunning())
	require.NoError(t, w.Stop())
}
