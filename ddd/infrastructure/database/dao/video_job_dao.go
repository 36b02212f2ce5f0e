package dao

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"video-api/ddd/infrastructure/database/po"
	"video-api/pkg/logger"
)

// VideoJobDAO 视频作业数据访问对象
type VideoJobDAO struct {
	db *gorm.DB
}

// NewVideoJobDAO 创建视频作业DAO实例
func NewVideoJobDAO(db *gorm.DB) *VideoJobDAO {
	return &VideoJobDAO{db: db}
}

// Upsert 按job_id写入或覆盖作业镜像记录
func (d *VideoJobDAO) Upsert(ctx context.Context, jobPo *po.VideoJob) error {
	err := d.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "job_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"filename", "source_key", "status", "progress",
				"formats", "completed_formats", "attempt_count",
				"max_attempts", "last_error", "finished_at", "updated_at",
			}),
		}).
		Create(jobPo).Error
	if err != nil {
		logger.Errorf("upsert video job %s failed: %v", jobPo.JobID, err)
		return err
	}
	return nil
}

// FindByJobID 根据作业ID查询镜像记录
func (d *VideoJobDAO) FindByJobID(ctx context.Context, jobID string) (*po.VideoJob, error) {
	var job po.VideoJob
	if err := d.db.WithContext(ctx).
		Where("job_id = ?", jobID).
		First(&job).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Errorf("query video job by id %s failed: %v", jobID, err)
		}
		return nil, err
	}
	return &job, nil
}

// DeleteByJobID 根据作业ID删除镜像记录
func (d *VideoJobDAO) DeleteByJobID(ctx context.Context, jobID string) error {
	err := d.db.WithContext(ctx).
		Where("job_id = ?", jobID).
		Delete(&po.VideoJob{}).Error
	if err != nil {
		logger.Errorf("delete video job %s failed: %v", jobID, err)
		return err
	}
	return nil
}
