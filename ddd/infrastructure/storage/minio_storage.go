package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"

	"video-api/ddd/domain/gateway"
	"video-api/pkg/logger"
)

// MinioStorage 基于MinIO的存储网关。原始资产与转码产物分桶存放。
type MinioStorage struct {
	client           *minio.Client
	rawBucket        string
	transcodedBucket string
}

var _ gateway.StorageGateway = (*MinioStorage)(nil)

// NewMinioStorage 创建MinIO存储网关
func NewMinioStorage(client *minio.Client, rawBucket, transcodedBucket string) *MinioStorage {
	return &MinioStorage{
		client:           client,
		rawBucket:        rawBucket,
		transcodedBucket: transcodedBucket,
	}
}

// SaveRawAsset 持久化上传的原始视频流
func (s *MinioStorage) SaveRawAsset(ctx context.Context, objectKey string, r io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.rawBucket, objectKey, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("put raw asset %s: %w", objectKey, err)
	}
	logger.Debug("raw asset stored", map[string]interface{}{
		"bucket": s.rawBucket,
		"key":    objectKey,
		"size":   size,
	})
	return nil
}

// FetchRawAsset 将原始资产下载到本地路径
func (s *MinioStorage) FetchRawAsset(ctx context.Context, objectKey, localPath string) error {
	if err := s.client.FGetObject(ctx, s.rawBucket, objectKey, localPath, minio.GetObjectOptions{}); err != nil {
		return fmt.Errorf("fetch raw asset %s: %w", objectKey, err)
	}
	return nil
}

// SaveTranscodedFile 上传转码产物
func (s *MinioStorage) SaveTranscodedFile(ctx context.Context, localPath, objectKey, contentType string) (string, error) {
	_, err := s.client.FPutObject(ctx, s.transcodedBucket, objectKey, localPath, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("put transcoded file %s: %w", objectKey, err)
	}
	return fmt.Sprintf("%s/%s", s.transcodedBucket, objectKey), nil
}
