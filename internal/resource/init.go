package resource

import (
	"video-api/pkg/config"
	"video-api/pkg/manager"
)

// RegisterEnabled 按配置注册需要的资源插件。
// 资源是否启用取决于配置而非编译期，所以不走init注册。
func RegisterEnabled(cfg *config.Config) {
	if cfg.Database.Enabled {
		manager.RegisterResourcePlugin(&MySqlResourcePlugin{})
	}
	if cfg.Queue.Kind == "redis" {
		manager.RegisterResourcePlugin(&RedisResourcePlugin{})
	}
	if cfg.Minio.Enabled {
		manager.RegisterResourcePlugin(&MinioResourcePlugin{})
	}
	if cfg.Kafka.Enabled {
		manager.RegisterResourcePlugin(&KafkaResourcePlugin{})
	}
}
