package store

import (
	"context"
	"sync"
	"time"

	"video-api/ddd/domain/entity"
	"video-api/ddd/domain/repo"
	"video-api/pkg/errno"
	"video-api/pkg/logger"
)

// Mirror 作业记录的旁路持久化（写后镜像，失败只记日志不影响主流程）
type Mirror interface {
	SaveJob(ctx context.Context, job *entity.VideoJobEntity) error
	RemoveJob(ctx context.Context, id string) error
}

// Loader 按ID回读镜像记录。多进程部署时Worker进程以此
// 取到API进程建立的作业。
type Loader interface {
	LoadJob(ctx context.Context, id string) (*entity.VideoJobEntity, error)
}

// jobEntry 单作业条目。细粒度锁：持有entry锁读写作业，
// 不同作业的操作互不阻塞。
type jobEntry struct {
	mu  sync.Mutex
	job *entity.VideoJobEntity
}

// MemoryJobStore 内存作业状态存储
type MemoryJobStore struct {
	mu      sync.RWMutex
	entries map[string]*jobEntry
	mirror  Mirror
	loader  Loader
}

var _ repo.JobStore = (*MemoryJobStore)(nil)

// NewMemoryJobStore 创建内存作业状态存储
func NewMemoryJobStore() *MemoryJobStore {
	return &MemoryJobStore{
		entries: make(map[string]*jobEntry),
	}
}

// SetMirror 挂载旁路持久化镜像；镜像支持回读时同时启用读穿
func (s *MemoryJobStore) SetMirror(m Mirror) {
	s.mirror = m
	if l, ok := m.(Loader); ok {
		s.loader = l
	}
}

// lookup 取条目，本地未命中时尝试从镜像回读
func (s *MemoryJobStore) lookup(ctx context.Context, id string) (*jobEntry, bool) {
	s.mu.RLock()
	entry, ok := s.entries[id]
	s.mu.RUnlock()
	if ok || s.loader == nil {
		return entry, ok
	}

	job, err := s.loader.LoadJob(ctx, id)
	if err != nil || job == nil {
		return nil, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.entries[id]; ok {
		return existing, true
	}
	entry = &jobEntry{job: job}
	s.entries[id] = entry
	return entry, true
}

// Create 创建作业记录
func (s *MemoryJobStore) Create(ctx context.Context, job *entity.VideoJobEntity) error {
	s.mu.Lock()
	if _, exists := s.entries[job.ID()]; exists {
		s.mu.Unlock()
		return errno.NewBizError(errno.ErrInvalidJobStatus, nil)
	}
	s.entries[job.ID()] = &jobEntry{job: job.Clone()}
	s.mu.Unlock()

	s.mirrorSave(ctx, job)
	return nil
}

// Get 返回作业当前快照
func (s *MemoryJobStore) Get(ctx context.Context, id string) (*entity.VideoJobEntity, error) {
	entry, ok := s.lookup(ctx, id)
	if !ok {
		return nil, errno.NewBizError(errno.ErrJobNotFound, nil)
	}

	entry.mu.Lock()
	s.refreshLocked(ctx, entry)
	snapshot := entry.job.Clone()
	entry.mu.Unlock()
	return snapshot, nil
}

// refreshLocked 非终态作业回读镜像，合并其他进程推进的状态。
// API进程建的作业由Worker进程经镜像推进，本地命中不能当作最新。
func (s *MemoryJobStore) refreshLocked(ctx context.Context, entry *jobEntry) {
	if s.loader == nil || entry.job.IsTerminal() {
		return
	}
	latest, err := s.loader.LoadJob(ctx, entry.job.ID())
	if err != nil || latest == nil {
		return
	}
	if latest.UpdatedAt().After(entry.job.UpdatedAt()) {
		entry.job = latest
	}
}

// Update 在作业锁内应用变更，返回更新后的快照。
// 变更函数返回错误时作业保持原状。
func (s *MemoryJobStore) Update(ctx context.Context, id string, m repo.Mutation) (*entity.VideoJobEntity, error) {
	entry, ok := s.lookup(ctx, id)
	if !ok {
		return nil, errno.NewBizError(errno.ErrJobNotFound, nil)
	}

	entry.mu.Lock()
	working := entry.job.Clone()
	if err := m(working); err != nil {
		entry.mu.Unlock()
		return nil, err
	}
	entry.job = working
	snapshot := working.Clone()
	entry.mu.Unlock()

	s.mirrorSave(ctx, snapshot)
	return snapshot, nil
}

// Delete 删除作业记录
func (s *MemoryJobStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	_, ok := s.entries[id]
	delete(s.entries, id)
	s.mu.Unlock()
	if !ok {
		return errno.NewBizError(errno.ErrJobNotFound, nil)
	}

	if s.mirror != nil {
		if err := s.mirror.RemoveJob(ctx, id); err != nil {
			logger.Errorf("mirror remove job %s failed: %v", id, err)
		}
	}
	return nil
}

// SweepTerminal 清理过保留期的终态作业
func (s *MemoryJobStore) SweepTerminal(ctx context.Context, olderThan time.Time) (int, error) {
	s.mu.Lock()
	var victims []string
	for id, entry := range s.entries {
		entry.mu.Lock()
		if entry.job.IsTerminal() && entry.job.FinishedAt() != nil && entry.job.FinishedAt().Before(olderThan) {
			victims = append(victims, id)
		}
		entry.mu.Unlock()
	}
	for _, id := range victims {
		delete(s.entries, id)
	}
	s.mu.Unlock()

	if s.mirror != nil {
		for _, id := range victims {
			if err := s.mirror.RemoveJob(ctx, id); err != nil {
				logger.Errorf("mirror remove job %s failed: %v", id, err)
			}
		}
	}
	return len(victims), nil
}

func (s *MemoryJobStore) mirrorSave(ctx context.Context, job *entity.VideoJobEntity) {
	if s.mirror == nil {
		return
	}
	if err := s.mirror.SaveJob(ctx, job); err != nil {
		logger.Errorf("mirror save job %s failed: %v", job.ID(), err)
	}
}
