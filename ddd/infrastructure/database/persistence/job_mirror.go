package persistence

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"video-api/ddd/domain/entity"
	"video-api/ddd/infrastructure/database/convertor"
	"video-api/ddd/infrastructure/database/dao"
)

// JobMirror 作业记录的数据库镜像，实现 store.Mirror。
// 镜像是旁路写入：主状态存储在内存，库里的副本用于排查与审计。
type JobMirror struct {
	dao       *dao.VideoJobDAO
	convertor *convertor.VideoJobConvertor
}

// NewJobMirror 创建作业镜像
func NewJobMirror(db *gorm.DB) *JobMirror {
	return &JobMirror{
		dao:       dao.NewVideoJobDAO(db),
		convertor: convertor.NewVideoJobConvertor(),
	}
}

// SaveJob 写入作业镜像记录
func (m *JobMirror) SaveJob(ctx context.Context, job *entity.VideoJobEntity) error {
	return m.dao.Upsert(ctx, m.convertor.ToPO(job))
}

// RemoveJob 删除作业镜像记录
func (m *JobMirror) RemoveJob(ctx context.Context, id string) error {
	return m.dao.DeleteByJobID(ctx, id)
}

// LoadJob 回读作业镜像记录；不存在时返回nil
func (m *JobMirror) LoadJob(ctx context.Context, id string) (*entity.VideoJobEntity, error) {
	jobPo, err := m.dao.FindByJobID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return m.convertor.ToEntity(jobPo), nil
}
