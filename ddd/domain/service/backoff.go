package service

import (
	"math/rand"
	"time"

	"video-api/pkg/config"
)

// BackoffPolicy 指数退避策略。Delay 是尝试次数的纯函数，便于独立测试；
// 抖动只在 JitteredDelay 中叠加，避免到期重领的惊群效应。
type BackoffPolicy struct {
	Base   time.Duration
	Max    time.Duration
	Jitter time.Duration
}

// NewBackoffPolicy 从重试配置构建退避策略
func NewBackoffPolicy(cfg config.RetryConfig) BackoffPolicy {
	return BackoffPolicy{
		Base:   cfg.BaseDelay,
		Max:    cfg.MaxDelay,
		Jitter: cfg.Jitter,
	}
}

// Delay 计算第attempt次失败后的退避时长：base * 2^(attempt-1)，封顶Max
func (p BackoffPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := p.Base
	for i := 1; i < attempt; i++ {
		d *= 2
		if p.Max > 0 && d >= p.Max {
			return p.Max
		}
	}
	if p.Max > 0 && d > p.Max {
		return p.Max
	}
	return d
}

// JitteredDelay 在确定性退避上叠加 [0, Jitter) 的随机抖动
func (p BackoffPolicy) JitteredDelay(attempt int) time.Duration {
	d := p.Delay(attempt)
	if p.Jitter > 0 {
		d += time.Duration(rand.Int63n(int64(p.Jitter)))
	}
	return d
}
