package queue

import (
	"sync"

	"github.com/redis/go-redis/v9"

	"video-api/pkg/assert"
	"video-api/pkg/config"
	"video-api/pkg/logger"
)

var (
	defaultJobQueue JobQueue
	queueOnce       sync.Once
)

// DefaultJobQueue 根据配置选择作业队列实现。redis实现要求资源管理器
// 先完成Redis连接初始化并通过SetRedisClient注入。
func DefaultJobQueue() JobQueue {
	assert.NotCircular()
	queueOnce.Do(func() {
		cfg := config.GetGlobalConfig()
		switch cfg.Queue.Kind {
		case "redis":
			assert.NotNil(redisClient)
			defaultJobQueue = NewRedisJobQueue(redisClient, cfg.Queue.KeyPrefix, cfg.Worker.LeaseTTL)
			logger.Info("job queue initialized", map[string]interface{}{"kind": "redis"})
		default:
			defaultJobQueue = NewMemoryJobQueue(cfg.Queue.Capacity, cfg.Worker.LeaseTTL)
			logger.Info("job queue initialized", map[string]interface{}{"kind": "memory"})
		}
	})
	assert.NotNil(defaultJobQueue)
	return defaultJobQueue
}

var redisClient *redis.Client

// SetRedisClient 注入Redis连接（资源初始化阶段调用）
func SetRedisClient(client *redis.Client) {
	redisClient = client
}
