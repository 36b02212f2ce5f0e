package app

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"video-api/ddd/application/cqe"
	"video-api/ddd/domain/entity"
	"video-api/ddd/domain/repo"
	"video-api/ddd/infrastructure/events"
	"video-api/ddd/infrastructure/queue"
	"video-api/ddd/infrastructure/storage"
	"video-api/ddd/infrastructure/store"
	"video-api/pkg/config"
	"video-api/pkg/errno"
)

func newPipelineFixture(t *testing.T) (PipelineApp, *store.MemoryJobStore, *queue.MemoryJobQueue) {
	t.Helper()
	cfg := &config.Config{
		Upload: config.UploadConfig{
			MaxSizeBytes:      1 << 20,
			ContentTypePrefix: "video/",
		},
		Transcode: config.TranscodeConfig{
			OutputFormats: []config.OutputFormat{
				{Name: "720p"}, {Name: "480p"}, {Name: "360p"},
			},
		},
		Retry: config.RetryConfig{MaxAttempts: 3},
	}

	s := store.NewMemoryJobStore()
	q := queue.NewMemoryJobQueue(16, time.Minute)
	t.Cleanup(func() { q.Close() })

	localStorage, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	return NewPipelineApp(s, q, localStorage, events.NopJobEventPublisher{}, cfg), s, q
}

func uploadReq(content string) *cqe.UploadVideoReq {
	return &cqe.UploadVideoReq{
		Filename:    "movie.mp4",
		ContentType: "video/mp4",
		Size:        int64(len(content)),
		Content:     bytes.NewReader([]byte(content)),
	}
}

func TestSubmitUploadCreatesAndEnqueues(t *testing.T) {
	p, s, q := newPipelineFixture(t)

	resp, err := p.SubmitUpload(context.Background(), uploadReq("fake video"))
	require.NoError(t, err)
	assert.Len(t, resp.JobID, 8)
	assert.Equal(t, UploadAcceptedMessage, resp.Message)
	assert.Equal(t, 1, q.Size())

	job, err := s.Get(context.Background(), resp.JobID)
	require.NoError(t, err)
	assert.Equal(t, []string{"720p", "480p", "360p"}, job.Formats())
	assert.Equal(t, 3, job.MaxAttempts())
}

func TestSubmitUploadRejectsOversizedFile(t *testing.T) {
	p, _, q := newPipelineFixture(t)

	req := uploadReq("fake video")
	req.Size = 2 << 20

	_, err := p.SubmitUpload(context.Background(), req)
	var biz *errno.BizError
	require.ErrorAs(t, err, &biz)
	assert.Equal(t, errno.ErrUploadTooLarge, biz.Errno)
	assert.Equal(t, 0, q.Size())
}

// recordingStore 记录Create过的作业ID，便于回查回滚效果
type recordingStore struct {
	repo.JobStore
	createdIDs []string
}

func (r *recordingStore) Create(ctx context.Context, job *entity.VideoJobEntity) error {
	r.createdIDs = append(r.createdIDs, job.ID())
	return r.JobStore.Create(ctx, job)
}

func TestSubmitUploadRollsBackOnEnqueueFailure(t *testing.T) {
	cfg := &config.Config{
		Upload: config.UploadConfig{
			MaxSizeBytes:      1 << 20,
			ContentTypePrefix: "video/",
		},
		Transcode: config.TranscodeConfig{
			OutputFormats: []config.OutputFormat{{Name: "720p"}},
		},
		Retry: config.RetryConfig{MaxAttempts: 3},
	}
	rec := &recordingStore{JobStore: store.NewMemoryJobStore()}
	q := queue.NewMemoryJobQueue(16, time.Minute)
	require.NoError(t, q.Close())

	localStorage, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	p := NewPipelineApp(rec, q, localStorage, events.NopJobEventPublisher{}, cfg)

	_, err = p.SubmitUpload(context.Background(), uploadReq("fake video"))
	var biz *errno.BizError
	require.ErrorAs(t, err, &biz)
	assert.Equal(t, errno.ErrQueueUnavailable, biz.Errno)

	// 入队失败后不得留下孤儿作业
	require.Len(t, rec.createdIDs, 1)
	_, err = rec.Get(context.Background(), rec.createdIDs[0])
	assert.Error(t, err)
}

func TestGetJobStatusUnknown(t *testing.T) {
	p, _, _ := newPipelineFixture(t)

	_, err := p.GetJobStatus(context.Background(), "deadbeef")
	var biz *errno.BizError
	require.ErrorAs(t, err, &biz)
	assert.Equal(t, errno.ErrJobNotFound, biz.Errno)
}

func TestCreateJobForAssetValidatesInput(t *testing.T) {
	p, _, q := newPipelineFixture(t)

	_, err := p.CreateJobForAsset(context.Background(), "", "raw/movie.mp4")
	assert.Error(t, err)
	_, err = p.CreateJobForAsset(context.Background(), "movie.mp4", "")
	assert.Error(t, err)
	assert.Equal(t, 0, q.Size())

	resp, err := p.CreateJobForAsset(context.Background(), "movie.mp4", "raw/movie.mp4")
	require.NoError(t, err)
	assert.Len(t, resp.JobID, 8)
	assert.Equal(t, 1, q.Size())
}
