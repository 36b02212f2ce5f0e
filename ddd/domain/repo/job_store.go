package repo

import (
	"context"
	"time"

	"video-api/ddd/domain/entity"
)

// Mutation 作业变更函数，由存储在持有该作业锁时调用
type Mutation func(job *entity.VideoJobEntity) error

// JobStore 作业状态存储：作业状态的唯一写入口。
// Get 返回的快照与并发更新互不撕裂：要么是变更前、要么是变更后的完整状态。
type JobStore interface {
	// Create 创建作业记录；ID重复时报错（ID永不复用）
	Create(ctx context.Context, job *entity.VideoJobEntity) error

	// Get 返回作业当前快照；未知或已过保留期的ID返回 errno.ErrJobNotFound
	Get(ctx context.Context, id string) (*entity.VideoJobEntity, error)

	// Update 原子应用变更并返回更新后的快照
	Update(ctx context.Context, id string, m Mutation) (*entity.VideoJobEntity, error)

	// Delete 删除作业记录
	Delete(ctx context.Context, id string) error

	// SweepTerminal 清理在olderThan之前进入终态的作业，返回清理数量
	SweepTerminal(ctx context.Context, olderThan time.Time) (int, error)
}
