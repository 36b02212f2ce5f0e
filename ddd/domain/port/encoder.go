package port

import (
	"context"
	"errors"

	"video-api/ddd/domain/entity"
	"video-api/pkg/config"
)

// Encoder 单格式编码端口。实现方负责拉取源文件、产出目标格式并持久化产物。
// 返回的错误必须用 MarkTransient/MarkUnrecoverable 标注，未标注的按瞬时错误处理。
type Encoder interface {
	Encode(ctx context.Context, job *entity.VideoJobEntity, profile config.OutputFormat) error
}

// TransientError 瞬时错误：交给重试监督器退避重试
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return "transient: " + e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// UnrecoverableError 不可恢复错误：作业立即失败，不走重试
type UnrecoverableError struct {
	Err error
}

func (e *UnrecoverableError) Error() string { return "unrecoverable: " + e.Err.Error() }
func (e *UnrecoverableError) Unwrap() error { return e.Err }

// MarkTransient 标注瞬时错误
func MarkTransient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// MarkUnrecoverable 标注不可恢复错误
func MarkUnrecoverable(err error) error {
	if err == nil {
		return nil
	}
	return &UnrecoverableError{Err: err}
}

// IsUnrecoverable 检查是否为不可恢复错误
func IsUnrecoverable(err error) bool {
	var e *UnrecoverableError
	return errors.As(err, &e)
}

// IsTransient 检查是否为瞬时错误（未标注的错误也按瞬时处理）
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	return !IsUnrecoverable(err)
}
