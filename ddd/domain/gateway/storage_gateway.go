package gateway

import (
	"context"
	"io"
)

// StorageGateway 原始资产与转码产物的存储网关
type StorageGateway interface {
	// SaveRawAsset 持久化上传的原始视频流
	SaveRawAsset(ctx context.Context, objectKey string, r io.Reader, size int64, contentType string) error

	// FetchRawAsset 将原始资产下载到本地路径（转码前置步骤）
	FetchRawAsset(ctx context.Context, objectKey, localPath string) error

	// SaveTranscodedFile 上传转码产物，返回可访问的对象路径
	SaveTranscodedFile(ctx context.Context, localPath, objectKey, contentType string) (string, error)
}
