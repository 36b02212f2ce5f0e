package cqe

import (
	"io"
	"strings"

	"video-api/pkg/config"
	"video-api/pkg/errno"
)

// UploadVideoReq 上传视频请求
type UploadVideoReq struct {
	Filename    string    // 原始文件名
	ContentType string    // 客户端声明的内容类型
	Size        int64     // 文件大小（字节）
	Content     io.Reader // 文件流
}

// Validate 校验上传请求：类型按声明的content-type前缀判断
func (req *UploadVideoReq) Validate(cfg *config.Config) error {
	if req.Content == nil || req.Filename == "" {
		return errno.NewBizError(errno.ErrMissingFile, nil)
	}
	if !strings.HasPrefix(req.ContentType, cfg.Upload.ContentTypePrefix) {
		return errno.NewBizError(errno.ErrUploadNotVideo, nil)
	}
	if cfg.Upload.MaxSizeBytes > 0 && req.Size > cfg.Upload.MaxSizeBytes {
		return errno.NewBizError(errno.ErrUploadTooLarge, nil)
	}
	return nil
}

// SetRoleReq 设置用户角色请求
type SetRoleReq struct {
	Role string `json:"role" binding:"required"`
}

// Validate 校验角色请求
func (req *SetRoleReq) Validate() error {
	if req.Role == "" {
		return errno.NewBizError(errno.ErrRoleInvalid, nil)
	}
	return nil
}
