package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"video-api/ddd/domain/entity"
	"video-api/pkg/errno"
)

func newStoredJob(t *testing.T, s *MemoryJobStore) *entity.VideoJobEntity {
	t.Helper()
	job := entity.NewVideoJobEntity("clip.mp4", "raw/clip.mp4", []string{"720p", "480p"}, 3)
	require.NoError(t, s.Create(context.Background(), job))
	return job
}

func TestCreateAndGet(t *testing.T) {
	s := NewMemoryJobStore()
	job := newStoredJob(t, s)

	got, err := s.Get(context.Background(), job.ID())
	require.NoError(t, err)
	assert.Equal(t, job.ID(), got.ID())
	assert.Equal(t, "clip.mp4", got.Filename())
}

func TestCreateRejectsDuplicateID(t *testing.T) {
	s := NewMemoryJobStore()
	job := newStoredJob(t, s)

	err := s.Create(context.Background(), job)
	assert.Error(t, err)
}

func TestGetUnknownJob(t *testing.T) {
	s := NewMemoryJobStore()

	_, err := s.Get(context.Background(), "nope1234")
	var biz *errno.BizError
	require.ErrorAs(t, err, &biz)
	assert.Equal(t, errno.ErrJobNotFound, biz.Errno)
}

func TestUpdateReturnsFreshSnapshot(t *testing.T) {
	s := NewMemoryJobStore()
	job := newStoredJob(t, s)

	snap, err := s.Update(context.Background(), job.ID(), func(j *entity.VideoJobEntity) error {
		return j.MarkProcessing()
	})
	require.NoError(t, err)
	assert.Equal(t, "processing", snap.Status().String())

	// 快照与存储内状态解耦
	require.NoError(t, snap.Fail("mutating the snapshot"))
	got, err := s.Get(context.Background(), job.ID())
	require.NoError(t, err)
	assert.Equal(t, "processing", got.Status().String())
}

func TestUpdateRollsBackOnMutationError(t *testing.T) {
	s := NewMemoryJobStore()
	job := newStoredJob(t, s)

	_, err := s.Update(context.Background(), job.ID(), func(j *entity.VideoJobEntity) error {
		require.NoError(t, j.MarkProcessing())
		return j.CompleteFormat("1080p") // unknown format fails after a partial change
	})
	require.Error(t, err)

	got, err := s.Get(context.Background(), job.ID())
	require.NoError(t, err)
	assert.Equal(t, "queued", got.Status().String())
}

func TestDelete(t *testing.T) {
	s := NewMemoryJobStore()
	job := newStoredJob(t, s)

	require.NoError(t, s.Delete(context.Background(), job.ID()))
	_, err := s.Get(context.Background(), job.ID())
	assert.Error(t, err)

	assert.Error(t, s.Delete(context.Background(), job.ID()))
}

func TestSweepTerminalOnlyRemovesOldTerminalJobs(t *testing.T) {
	s := NewMemoryJobStore()
	active := newStoredJob(t, s)
	done := newStoredJob(t, s)

	_, err := s.Update(context.Background(), done.ID(), func(j *entity.VideoJobEntity) error {
		if err := j.MarkProcessing(); err != nil {
			return err
		}
		return j.Fail("broken input")
	})
	require.NoError(t, err)

	n, err := s.SweepTerminal(context.Background(), time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = s.Get(context.Background(), done.ID())
	assert.Error(t, err)
	_, err = s.Get(context.Background(), active.ID())
	assert.NoError(t, err)
}

// sharedMirror 模拟多进程共享的持久化镜像
type sharedMirror struct {
	mu   sync.Mutex
	jobs map[string]*entity.VideoJobEntity
}

func newSharedMirror() *sharedMirror {
	return &sharedMirror{jobs: make(map[string]*entity.VideoJobEntity)}
}

func (m *sharedMirror) SaveJob(ctx context.Context, job *entity.VideoJobEntity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.ID()] = job.Clone()
	return nil
}

func (m *sharedMirror) RemoveJob(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.jobs, id)
	return nil
}

func (m *sharedMirror) LoadJob(ctx context.Context, id string) (*entity.VideoJobEntity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if job, ok := m.jobs[id]; ok {
		return job.Clone(), nil
	}
	return nil, nil
}

func TestMirrorReadThroughOnLocalMiss(t *testing.T) {
	mirror := newSharedMirror()
	apiStore := NewMemoryJobStore()
	apiStore.SetMirror(mirror)
	workerStore := NewMemoryJobStore()
	workerStore.SetMirror(mirror)
	ctx := context.Background()

	job := entity.NewVideoJobEntity("clip.mp4", "raw/clip.mp4", []string{"720p", "480p"}, 3)
	require.NoError(t, apiStore.Create(ctx, job))

	// Worker进程本地无此作业，经镜像回读
	got, err := workerStore.Get(ctx, job.ID())
	require.NoError(t, err)
	assert.Equal(t, "clip.mp4", got.Filename())
	assert.Equal(t, "queued", got.Status().String())
}

func TestGetRefreshesLocalEntryFromMirror(t *testing.T) {
	mirror := newSharedMirror()
	apiStore := NewMemoryJobStore()
	apiStore.SetMirror(mirror)
	workerStore := NewMemoryJobStore()
	workerStore.SetMirror(mirror)
	ctx := context.Background()

	job := entity.NewVideoJobEntity("clip.mp4", "raw/clip.mp4", []string{"720p", "480p"}, 3)
	require.NoError(t, apiStore.Create(ctx, job))

	// Worker进程推进作业，只写自己的内存和镜像
	_, err := workerStore.Update(ctx, job.ID(), func(j *entity.VideoJobEntity) error {
		if err := j.MarkProcessing(); err != nil {
			return err
		}
		return j.CompleteFormat("720p")
	})
	require.NoError(t, err)

	// API进程本地命中也必须看到推进后的状态
	got, err := apiStore.Get(ctx, job.ID())
	require.NoError(t, err)
	assert.Equal(t, "processing", got.Status().String())
	assert.Equal(t, 50, got.Progress())

	_, err = workerStore.Update(ctx, job.ID(), func(j *entity.VideoJobEntity) error {
		if err := j.CompleteFormat("480p"); err != nil {
			return err
		}
		return j.Complete()
	})
	require.NoError(t, err)

	got, err = apiStore.Get(ctx, job.ID())
	require.NoError(t, err)
	assert.Equal(t, "completed", got.Status().String())
	assert.Equal(t, 100, got.Progress())
}

func TestConcurrentUpdatesAtomic(t *testing.T) {
	s := NewMemoryJobStore()
	job := newStoredJob(t, s)

	_, err := s.Update(context.Background(), job.ID(), func(j *entity.VideoJobEntity) error {
		return j.MarkProcessing()
	})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for _, format := range []string{"720p", "480p"} {
		wg.Add(1)
		go func(f string) {
			defer wg.Done()
			_, err := s.Update(context.Background(), job.ID(), func(j *entity.VideoJobEntity) error {
				return j.CompleteFormat(f)
			})
			assert.NoError(t, err)
		}(format)
	}

	// 并发读不得观察到撕裂状态
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		for i := 0; i < 100; i++ {
			got, err := s.Get(context.Background(), job.ID())
			if err != nil {
				continue
			}
			expected := 100 * len(got.CompletedFormats()) / 2
			assert.Equal(t, expected, got.Progress())
		}
	}()

	wg.Wait()
	<-readDone

	got, err := s.Get(context.Background(), job.ID())
	require.NoError(t, err)
	assert.Equal(t, 100, got.Progress())
	assert.ElementsMatch(t, []string{"720p", "480p"}, got.CompletedFormats())
}
