package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	// ErrQueueClosed 队列已关闭
	ErrQueueClosed = errors.New("job queue is closed")
	// ErrQueueFull 队列已满（入口端应向调用方返回可重试错误）
	ErrQueueFull = errors.New("job queue is full")
)

// JobQueue 作业队列。Claim 对同一作业保证唯一赢家；租约到期的作业
// 由 ReapExpired 取回并交由监督器按故障恢复路径重新入队。
type JobQueue interface {
	// Enqueue 入队新作业，返回前完成记录
	Enqueue(ctx context.Context, jobID string) error

	// Claim 领取一个作业并建立租约；阻塞直到有作业或ctx取消
	Claim(ctx context.Context, workerID string) (string, error)

	// Requeue 延迟delay后重新入队（重试路径）
	Requeue(ctx context.Context, jobID string, delay time.Duration) error

	// Extend 续租（编码期间心跳调用）
	Extend(ctx context.Context, jobID string) error

	// Ack 作业到达终态，释放租约
	Ack(ctx context.Context, jobID string) error

	// ReapExpired 取回所有租约过期的作业ID
	ReapExpired(ctx context.Context) ([]string, error)

	// Size 当前可领取作业数
	Size() int

	// Close 关闭队列
	Close() error
}

// MemoryJobQueue 基于内存的作业队列实现（单进程部署）。
// ready 永不close，关闭通过quit广播，避免在途投递撞上已关closed的channel。
type MemoryJobQueue struct {
	ready    chan string
	quit     chan struct{}
	leases   map[string]time.Time
	timers   map[string]*time.Timer
	leaseTTL time.Duration
	closed   bool
	mu       sync.Mutex
}

// NewMemoryJobQueue 创建内存作业队列
func NewMemoryJobQueue(capacity int, leaseTTL time.Duration) *MemoryJobQueue {
	if capacity <= 0 {
		capacity = 1000
	}
	if leaseTTL <= 0 {
		leaseTTL = time.Minute
	}
	return &MemoryJobQueue{
		ready:    make(chan string, capacity),
		quit:     make(chan struct{}),
		leases:   make(map[string]time.Time),
		timers:   make(map[string]*time.Timer),
		leaseTTL: leaseTTL,
	}
}

// Enqueue 入队作业
func (q *MemoryJobQueue) Enqueue(ctx context.Context, jobID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}
	if jobID == "" {
		return fmt.Errorf("job id cannot be empty")
	}

	select {
	case q.ready <- jobID:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrQueueFull
	}
}

// Claim 领取作业（阻塞）。channel 的接收语义保证并发领取只有一个赢家。
func (q *MemoryJobQueue) Claim(ctx context.Context, workerID string) (string, error) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return "", ErrQueueClosed
	}
	q.mu.Unlock()

	select {
	case jobID := <-q.ready:
		q.mu.Lock()
		q.leases[jobID] = time.Now().Add(q.leaseTTL)
		q.mu.Unlock()
		return jobID, nil
	case <-q.quit:
		return "", ErrQueueClosed
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Requeue 延迟重新入队
func (q *MemoryJobQueue) Requeue(ctx context.Context, jobID string, delay time.Duration) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}
	delete(q.leases, jobID)

	if delay <= 0 {
		select {
		case q.ready <- jobID:
			return nil
		default:
			return ErrQueueFull
		}
	}

	q.timers[jobID] = time.AfterFunc(delay, func() {
		q.mu.Lock()
		defer q.mu.Unlock()
		delete(q.timers, jobID)
		if q.closed {
			return
		}
		select {
		case q.ready <- jobID:
		default:
			// 容量耗尽时丢失延迟作业会卡死轮询方，改为异步补投；
			// 补投在队列关闭时放弃，不向已停的队列投递
			go func() {
				select {
				case q.ready <- jobID:
				case <-q.quit:
				}
			}()
		}
	})
	return nil
}

// Extend 续租
func (q *MemoryJobQueue) Extend(ctx context.Context, jobID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}
	if _, ok := q.leases[jobID]; !ok {
		return fmt.Errorf("no active lease for job %s", jobID)
	}
	q.leases[jobID] = time.Now().Add(q.leaseTTL)
	return nil
}

// Ack 释放租约
func (q *MemoryJobQueue) Ack(ctx context.Context, jobID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.leases, jobID)
	return nil
}

// ReapExpired 取回租约过期的作业
func (q *MemoryJobQueue) ReapExpired(ctx context.Context) ([]string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := time.Now()
	var expired []string
	for jobID, deadline := range q.leases {
		if deadline.Before(now) {
			expired = append(expired, jobID)
			delete(q.leases, jobID)
		}
	}
	return expired, nil
}

// Size 当前可领取作业数
func (q *MemoryJobQueue) Size() int {
	return len(q.ready)
}

// Close 关闭队列
func (q *MemoryJobQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	q.closed = true
	for _, t := range q.timers {
		t.Stop()
	}
	q.timers = make(map[string]*time.Timer)
	close(q.quit)
	return nil
}
