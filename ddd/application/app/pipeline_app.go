package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"video-api/ddd/application/cqe"
	"video-api/ddd/application/dto"
	"video-api/ddd/domain/entity"
	"video-api/ddd/domain/gateway"
	"video-api/ddd/domain/repo"
	"video-api/ddd/infrastructure/queue"
	"video-api/pkg/config"
	"video-api/pkg/errno"
	"video-api/pkg/logger"
)

// UploadAcceptedMessage 受理响应文案，前端据此展示提示
const UploadAcceptedMessage = "Upload accepted, transcoding started"

type PipelineApp interface {
	// SubmitUpload 受理上传：落盘原始资产、建立作业记录并入队
	SubmitUpload(ctx context.Context, req *cqe.UploadVideoReq) (*dto.UploadAcceptedDTO, error)

	// GetJobStatus 查询作业状态快照
	GetJobStatus(ctx context.Context, jobID string) (*dto.JobStatusDTO, error)

	// CreateJobForAsset 为已入库的资产建立作业（消息总线入口）
	CreateJobForAsset(ctx context.Context, filename, sourceKey string) (*dto.UploadAcceptedDTO, error)
}

type pipelineAppImpl struct {
	store   repo.JobStore
	queue   queue.JobQueue
	storage gateway.StorageGateway
	events  gateway.JobEventPublisher
	cfg     *config.Config
}

// NewPipelineApp 创建流水线应用服务
func NewPipelineApp(
	store repo.JobStore,
	jobQueue queue.JobQueue,
	storage gateway.StorageGateway,
	events gateway.JobEventPublisher,
	cfg *config.Config,
) PipelineApp {
	if cfg == nil {
		cfg = config.GetGlobalConfig()
	}
	return &pipelineAppImpl{
		store:   store,
		queue:   jobQueue,
		storage: storage,
		events:  events,
		cfg:     cfg,
	}
}

func (p *pipelineAppImpl) SubmitUpload(ctx context.Context, req *cqe.UploadVideoReq) (*dto.UploadAcceptedDTO, error) {
	if err := req.Validate(p.cfg); err != nil {
		return nil, err
	}

	sourceKey := fmt.Sprintf("%s/%s", uuid.NewString(), req.Filename)
	if err := p.storage.SaveRawAsset(ctx, sourceKey, req.Content, req.Size, req.ContentType); err != nil {
		logger.Errorf("save raw asset for %s failed: %v", req.Filename, err)
		return nil, errno.NewBizError(errno.ErrStorageFailed, err)
	}

	return p.createAndEnqueue(ctx, req.Filename, sourceKey)
}

func (p *pipelineAppImpl) CreateJobForAsset(ctx context.Context, filename, sourceKey string) (*dto.UploadAcceptedDTO, error) {
	if filename == "" || sourceKey == "" {
		return nil, errno.NewBizError(errno.ErrMissingFile, nil)
	}
	return p.createAndEnqueue(ctx, filename, sourceKey)
}

// createAndEnqueue 建立作业记录并入队；入队失败时撤销记录，
// 保证对外不暴露无法被处理的作业ID。
func (p *pipelineAppImpl) createAndEnqueue(ctx context.Context, filename, sourceKey string) (*dto.UploadAcceptedDTO, error) {
	job := entity.NewVideoJobEntity(filename, sourceKey, p.cfg.Transcode.FormatNames(), p.cfg.Retry.MaxAttempts)

	if err := p.store.Create(ctx, job); err != nil {
		return nil, errno.NewBizError(errno.ErrInternalServer, err)
	}

	if err := p.queue.Enqueue(ctx, job.ID()); err != nil {
		logger.Errorf("enqueue job %s failed: %v", job.ID(), err)
		if delErr := p.store.Delete(ctx, job.ID()); delErr != nil {
			logger.Errorf("rollback job %s after enqueue failure: %v", job.ID(), delErr)
		}
		return nil, errno.NewBizError(errno.ErrQueueUnavailable, err)
	}

	p.publish(ctx, job)
	logger.Info("job accepted", map[string]interface{}{
		"job_id":   job.ID(),
		"filename": filename,
		"formats":  job.Formats(),
	})
	return &dto.UploadAcceptedDTO{JobID: job.ID(), Message: UploadAcceptedMessage}, nil
}

func (p *pipelineAppImpl) GetJobStatus(ctx context.Context, jobID string) (*dto.JobStatusDTO, error) {
	if jobID == "" {
		return nil, errno.NewBizError(errno.ErrJobNotFound, nil)
	}
	job, err := p.store.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return dto.NewJobStatusDto(job), nil
}

func (p *pipelineAppImpl) publish(ctx context.Context, job *entity.VideoJobEntity) {
	if p.events == nil {
		return
	}
	_ = p.events.PublishJobEvent(ctx, gateway.JobEvent{
		JobID:      job.ID(),
		Filename:   job.Filename(),
		Status:     job.ExternalStatus().String(),
		Progress:   job.Progress(),
		Attempt:    job.AttemptCount(),
		OccurredAt: time.Now(),
	})
}
