package convertor

import (
	"video-api/ddd/domain/entity"
	"video-api/ddd/domain/vo"
	"video-api/ddd/infrastructure/database/po"
)

// VideoJobConvertor 视频作业转换器
type VideoJobConvertor struct{}

// NewVideoJobConvertor 创建视频作业转换器
func NewVideoJobConvertor() *VideoJobConvertor {
	return &VideoJobConvertor{}
}

// ToEntity 将PO转换为Entity
func (c *VideoJobConvertor) ToEntity(jobPo *po.VideoJob) *entity.VideoJobEntity {
	status := vo.JobStatus(jobPo.Status)
	if !status.IsValid() {
		status = vo.JobStatusQueued
	}

	return entity.RestoreVideoJobEntity(
		jobPo.JobID,
		jobPo.Filename,
		jobPo.SourceKey,
		status,
		jobPo.Progress,
		jobPo.Formats,
		jobPo.CompletedFormats,
		jobPo.AttemptCount,
		jobPo.MaxAttempts,
		jobPo.LastError,
		jobPo.CreatedAt,
		jobPo.UpdatedAt,
		jobPo.FinishedAt,
	)
}

// ToPO 将Entity转换为PO
func (c *VideoJobConvertor) ToPO(job *entity.VideoJobEntity) *po.VideoJob {
	return &po.VideoJob{
		BaseModel: po.BaseModel{
			CreatedAt: job.CreatedAt(),
			UpdatedAt: job.UpdatedAt(),
		},
		JobID:            job.ID(),
		Filename:         job.Filename(),
		SourceKey:        job.SourceKey(),
		Status:           job.Status().String(),
		Progress:         job.Progress(),
		Formats:          job.Formats(),
		CompletedFormats: job.CompletedFormats(),
		AttemptCount:     job.AttemptCount(),
		MaxAttempts:      job.MaxAttempts(),
		LastError:        job.LastError(),
		FinishedAt:       job.FinishedAt(),
	}
}

// ToEntities 批量将PO转换为Entity
func (c *VideoJobConvertor) ToEntities(pos []*po.VideoJob) []*entity.VideoJobEntity {
	if pos == nil {
		return nil
	}
	entities := make([]*entity.VideoJobEntity, 0, len(pos))
	for _, jobPo := range pos {
		if jobPo != nil {
			entities = append(entities, c.ToEntity(jobPo))
		}
	}
	return entities
}
