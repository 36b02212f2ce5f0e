package resource

import (
	"context"
	"fmt"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"video-api/pkg/assert"
	"video-api/pkg/config"
	"video-api/pkg/logger"
	"video-api/pkg/manager"
)

var (
	minioResourceOnce      sync.Once
	singletonMinioResource *MinioResource
)

// MinioResource MinIO资源管理器，负责原始桶与产物桶的初始化
type MinioResource struct {
	client           *minio.Client
	rawBucket        string
	transcodedBucket string
}

// DefaultMinioResource 获取MinIO资源单例
func DefaultMinioResource() *MinioResource {
	assert.NotCircular()
	minioResourceOnce.Do(func() {
		singletonMinioResource = &MinioResource{}
	})
	assert.NotNil(singletonMinioResource)
	return singletonMinioResource
}

// MustOpen 初始化MinIO资源
func (r *MinioResource) MustOpen() {
	cfg := config.GetGlobalConfig()
	if cfg == nil {
		panic("global config not initialized before MinioResource")
	}

	minioCfg := cfg.Minio
	if minioCfg.Endpoint == "" {
		panic("minio endpoint is required")
	}

	client, err := minio.New(minioCfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(minioCfg.AccessKeyID, minioCfg.SecretAccessKey, ""),
		Secure: minioCfg.UseSSL,
	})
	if err != nil {
		panic(fmt.Sprintf("failed to create minio client: %v", err))
	}

	r.client = client
	r.rawBucket = cfg.Upload.RawBucket
	r.transcodedBucket = cfg.Upload.TranscodedBucket

	r.ensureBucket(r.rawBucket)
	r.ensureBucket(r.transcodedBucket)

	logger.Info("MinIO resource initialized", map[string]interface{}{
		"endpoint":          minioCfg.Endpoint,
		"raw_bucket":        r.rawBucket,
		"transcoded_bucket": r.transcodedBucket,
	})
}

// ensureBucket 确保桶存在
func (r *MinioResource) ensureBucket(name string) {
	ctx := context.Background()
	exists, err := r.client.BucketExists(ctx, name)
	if err != nil {
		panic(fmt.Sprintf("failed to check minio bucket %s: %v", name, err))
	}
	if exists {
		return
	}
	if err := r.client.MakeBucket(ctx, name, minio.MakeBucketOptions{}); err != nil {
		panic(fmt.Sprintf("failed to create minio bucket %s: %v", name, err))
	}
}

// GetClient 获取MinIO客户端
func (r *MinioResource) GetClient() *minio.Client {
	return r.client
}

// GetRawBucket 获取原始资产桶名
func (r *MinioResource) GetRawBucket() string {
	return r.rawBucket
}

// GetTranscodedBucket 获取转码产物桶名
func (r *MinioResource) GetTranscodedBucket() string {
	return r.transcodedBucket
}

// Close 释放资源
func (r *MinioResource) Close() {
	// minio-go客户端无需关闭连接
}

// MinioResourcePlugin MinIO资源插件
type MinioResourcePlugin struct{}

func (p *MinioResourcePlugin) Name() string {
	return "minioResource"
}

func (p *MinioResourcePlugin) MustCreateResource() manager.Resource {
	return DefaultMinioResource()
}
