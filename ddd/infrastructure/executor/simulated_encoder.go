package executor

import (
	"context"
	"time"

	"video-api/ddd/domain/entity"
	"video-api/ddd/domain/port"
	"video-api/pkg/config"
	"video-api/pkg/logger"
)

// SimulatedEncoder 模拟编码器：按固定步数睡眠，不产出文件。
// 开发环境和端到端测试在没有ffmpeg的机器上走这条路径。
type SimulatedEncoder struct {
	steps int
	delay time.Duration
}

var _ port.Encoder = (*SimulatedEncoder)(nil)

// NewSimulatedEncoder 创建模拟编码器
func NewSimulatedEncoder(cfg config.TranscodeConfig) *SimulatedEncoder {
	steps := cfg.SimulateSteps
	if steps <= 0 {
		steps = 10
	}
	delay := cfg.SimulateDelay
	if delay < 0 {
		delay = 0
	}
	return &SimulatedEncoder{steps: steps, delay: delay}
}

// Encode 模拟编码一个格式
func (e *SimulatedEncoder) Encode(ctx context.Context, job *entity.VideoJobEntity, profile config.OutputFormat) error {
	for i := 0; i < e.steps; i++ {
		select {
		case <-ctx.Done():
			return port.MarkTransient(ctx.Err())
		case <-time.After(e.delay):
		}
	}
	logger.Debug("simulated encode finished", map[string]interface{}{
		"job_id":  job.ID(),
		"profile": profile.Name,
	})
	return nil
}
