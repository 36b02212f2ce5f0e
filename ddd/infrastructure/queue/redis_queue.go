package queue

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"video-api/pkg/logger"
)

// RedisJobQueue 基于Redis的作业队列实现（多实例部署）。
// ready 用 list 承载FIFO，delayed/leases 用 zset 按到期时间排序，
// BRPOP 的原子弹出保证并发领取只有一个赢家。
type RedisJobQueue struct {
	client    *redis.Client
	keyPrefix string
	leaseTTL  time.Duration
}

// NewRedisJobQueue 创建Redis作业队列
func NewRedisJobQueue(client *redis.Client, keyPrefix string, leaseTTL time.Duration) *RedisJobQueue {
	if keyPrefix == "" {
		keyPrefix = "video:queue"
	}
	if leaseTTL <= 0 {
		leaseTTL = time.Minute
	}
	return &RedisJobQueue{
		client:    client,
		keyPrefix: keyPrefix,
		leaseTTL:  leaseTTL,
	}
}

func (q *RedisJobQueue) readyKey() string   { return q.keyPrefix + ":ready" }
func (q *RedisJobQueue) delayedKey() string { return q.keyPrefix + ":delayed" }
func (q *RedisJobQueue) leasesKey() string  { return q.keyPrefix + ":leases" }

// Enqueue 入队作业
func (q *RedisJobQueue) Enqueue(ctx context.Context, jobID string) error {
	if jobID == "" {
		return fmt.Errorf("job id cannot be empty")
	}
	if err := q.client.LPush(ctx, q.readyKey(), jobID).Err(); err != nil {
		return fmt.Errorf("enqueue job %s: %w", jobID, err)
	}
	return nil
}

// Claim 领取作业并建立租约
func (q *RedisJobQueue) Claim(ctx context.Context, workerID string) (string, error) {
	q.promoteDelayed(ctx)

	// 有限超时轮询，便于在ctx取消时及时退出
	res, err := q.client.BRPop(ctx, 2*time.Second, q.readyKey()).Result()
	if err == redis.Nil {
		return "", context.DeadlineExceeded
	}
	if err != nil {
		return "", fmt.Errorf("claim job: %w", err)
	}
	jobID := res[1]

	deadline := float64(time.Now().Add(q.leaseTTL).UnixMilli())
	if err := q.client.ZAdd(ctx, q.leasesKey(), redis.Z{Score: deadline, Member: jobID}).Err(); err != nil {
		logger.Errorf("record lease for job %s failed: %v", jobID, err)
	}
	return jobID, nil
}

// Requeue 延迟重新入队。投递失败时恢复租约，作业到期后
// 由回收器按失联路径找回，不会滞留在任何结构之外。
func (q *RedisJobQueue) Requeue(ctx context.Context, jobID string, delay time.Duration) error {
	if err := q.client.ZRem(ctx, q.leasesKey(), jobID).Err(); err != nil {
		return fmt.Errorf("release lease for job %s: %w", jobID, err)
	}
	if delay <= 0 {
		if err := q.client.LPush(ctx, q.readyKey(), jobID).Err(); err != nil {
			q.restoreLease(ctx, jobID)
			return fmt.Errorf("requeue job %s: %w", jobID, err)
		}
		return nil
	}
	readyAt := float64(time.Now().Add(delay).UnixMilli())
	if err := q.client.ZAdd(ctx, q.delayedKey(), redis.Z{Score: readyAt, Member: jobID}).Err(); err != nil {
		q.restoreLease(ctx, jobID)
		return fmt.Errorf("schedule delayed requeue for job %s: %w", jobID, err)
	}
	return nil
}

func (q *RedisJobQueue) restoreLease(ctx context.Context, jobID string) {
	deadline := float64(time.Now().Add(q.leaseTTL).UnixMilli())
	if err := q.client.ZAdd(ctx, q.leasesKey(), redis.Z{Score: deadline, Member: jobID}).Err(); err != nil {
		logger.Errorf("restore lease for job %s failed: %v", jobID, err)
	}
}

// Extend 续租
func (q *RedisJobQueue) Extend(ctx context.Context, jobID string) error {
	deadline := float64(time.Now().Add(q.leaseTTL).UnixMilli())
	added, err := q.client.ZAddXX(ctx, q.leasesKey(), redis.Z{Score: deadline, Member: jobID}).Result()
	if err != nil {
		return fmt.Errorf("extend lease for job %s: %w", jobID, err)
	}
	_ = added
	return nil
}

// Ack 释放租约
func (q *RedisJobQueue) Ack(ctx context.Context, jobID string) error {
	return q.client.ZRem(ctx, q.leasesKey(), jobID).Err()
}

// ReapExpired 取回租约过期的作业
func (q *RedisJobQueue) ReapExpired(ctx context.Context) ([]string, error) {
	q.promoteDelayed(ctx)

	now := strconv.FormatInt(time.Now().UnixMilli(), 10)
	expired, err := q.client.ZRangeByScore(ctx, q.leasesKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: now,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("scan expired leases: %w", err)
	}
	if len(expired) == 0 {
		return nil, nil
	}

	members := make([]interface{}, len(expired))
	for i, id := range expired {
		members[i] = id
	}
	if err := q.client.ZRem(ctx, q.leasesKey(), members...).Err(); err != nil {
		return nil, fmt.Errorf("remove expired leases: %w", err)
	}
	return expired, nil
}

// promoteDelayed 把到期的延迟作业搬入就绪队列
func (q *RedisJobQueue) promoteDelayed(ctx context.Context) {
	now := strconv.FormatInt(time.Now().UnixMilli(), 10)
	due, err := q.client.ZRangeByScore(ctx, q.delayedKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: now,
	}).Result()
	if err != nil || len(due) == 0 {
		return
	}
	for _, jobID := range due {
		// 先移除再投递，多实例并发下ZRem计数为0说明已被他人搬运
		removed, err := q.client.ZRem(ctx, q.delayedKey(), jobID).Result()
		if err != nil || removed == 0 {
			continue
		}
		if err := q.client.LPush(ctx, q.readyKey(), jobID).Err(); err != nil {
			logger.Errorf("promote delayed job %s failed: %v", jobID, err)
		}
	}
}

// Size 当前可领取作业数
func (q *RedisJobQueue) Size() int {
	n, err := q.client.LLen(context.Background(), q.readyKey()).Result()
	if err != nil {
		return 0
	}
	return int(n)
}

// Close 关闭队列（连接由资源管理器统一关闭）
func (q *RedisJobQueue) Close() error {
	return nil
}
