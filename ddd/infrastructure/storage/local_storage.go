package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"video-api/ddd/domain/gateway"
)

// LocalStorage 基于本地磁盘的存储网关（MinIO未启用时的回退实现）
type LocalStorage struct {
	baseDir string
}

var _ gateway.StorageGateway = (*LocalStorage)(nil)

// NewLocalStorage 创建本地磁盘存储网关
func NewLocalStorage(baseDir string) (*LocalStorage, error) {
	for _, sub := range []string{"raw", "transcoded"} {
		if err := os.MkdirAll(filepath.Join(baseDir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	return &LocalStorage{baseDir: baseDir}, nil
}

func (s *LocalStorage) rawPath(objectKey string) string {
	return filepath.Join(s.baseDir, "raw", filepath.FromSlash(objectKey))
}

// SaveRawAsset 持久化上传的原始视频流
func (s *LocalStorage) SaveRawAsset(ctx context.Context, objectKey string, r io.Reader, size int64, contentType string) error {
	dst := s.rawPath(objectKey)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create raw asset dir: %w", err)
	}
	f, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create raw asset %s: %w", objectKey, err)
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		os.Remove(dst)
		return fmt.Errorf("write raw asset %s: %w", objectKey, err)
	}
	return nil
}

// FetchRawAsset 将原始资产复制到本地工作路径
func (s *LocalStorage) FetchRawAsset(ctx context.Context, objectKey, localPath string) error {
	src, err := os.Open(s.rawPath(objectKey))
	if err != nil {
		return fmt.Errorf("open raw asset %s: %w", objectKey, err)
	}
	defer src.Close()

	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return fmt.Errorf("create work dir: %w", err)
	}
	dst, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("create work file: %w", err)
	}
	defer dst.Close()
	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("copy raw asset %s: %w", objectKey, err)
	}
	return nil
}

// SaveTranscodedFile 存储转码产物
func (s *LocalStorage) SaveTranscodedFile(ctx context.Context, localPath, objectKey, contentType string) (string, error) {
	dst := filepath.Join(s.baseDir, "transcoded", filepath.FromSlash(objectKey))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("create transcoded dir: %w", err)
	}
	src, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open transcoded file: %w", err)
	}
	defer src.Close()
	f, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("create transcoded file %s: %w", objectKey, err)
	}
	defer f.Close()
	if _, err := io.Copy(f, src); err != nil {
		return "", fmt.Errorf("copy transcoded file %s: %w", objectKey, err)
	}
	return dst, nil
}
