package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	Server          ServerConfig          `mapstructure:"server"`
	Log             LogConfig             `mapstructure:"log"`
	Upload          UploadConfig          `mapstructure:"upload"`
	Transcode       TranscodeConfig       `mapstructure:"transcode"`
	Worker          WorkerConfig          `mapstructure:"worker"`
	Retry           RetryConfig           `mapstructure:"retry"`
	Queue           QueueConfig           `mapstructure:"queue"`
	Store           StoreConfig           `mapstructure:"store"`
	Database        DatabaseConfig        `mapstructure:"database"`
	Redis           RedisConfig           `mapstructure:"redis"`
	Kafka           KafkaConfig           `mapstructure:"kafka"`
	Minio           MinioConfig           `mapstructure:"minio"`
	Auth            AuthConfig            `mapstructure:"auth"`
	ServiceRegistry ServiceRegistryConfig `mapstructure:"service_registry"`
	Profiling       ProfilingConfig       `mapstructure:"profiling"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// UploadConfig 上传入口配置
type UploadConfig struct {
	MaxSizeBytes      int64  `mapstructure:"max_size_bytes"`
	ContentTypePrefix string `mapstructure:"content_type_prefix"`
	RawBucket         string `mapstructure:"raw_bucket"`
	TranscodedBucket  string `mapstructure:"transcoded_bucket"`
	LocalStorageDir   string `mapstructure:"local_storage_dir"`
}

// OutputFormat 输出格式配置
type OutputFormat struct {
	Name       string `mapstructure:"name"`
	Resolution string `mapstructure:"resolution"`
	Bitrate    string `mapstructure:"bitrate"`
}

// FFmpegConfig FFmpeg相关配置
type FFmpegConfig struct {
	BinaryPath string        `mapstructure:"binary_path"`
	TempDir    string        `mapstructure:"temp_dir"`
	Timeout    time.Duration `mapstructure:"timeout"`
	VideoCodec string        `mapstructure:"video_codec"`
	Preset     string        `mapstructure:"preset"`
	Threads    int           `mapstructure:"threads"`
}

// TranscodeConfig 转码配置
type TranscodeConfig struct {
	Simulate      bool           `mapstructure:"simulate"`
	SimulateSteps int            `mapstructure:"simulate_steps"`
	SimulateDelay time.Duration  `mapstructure:"simulate_delay"`
	FFmpeg        FFmpegConfig   `mapstructure:"ffmpeg"`
	OutputFormats []OutputFormat `mapstructure:"output_formats"`
}

// WorkerConfig Worker相关配置
type WorkerConfig struct {
	Enabled             bool          `mapstructure:"enabled"`
	WorkerID            string        `mapstructure:"worker_id"`
	Count               int           `mapstructure:"count"`
	ClaimTimeout        time.Duration `mapstructure:"claim_timeout"`
	LeaseTTL            time.Duration `mapstructure:"lease_ttl"`
	ReapInterval        time.Duration `mapstructure:"reap_interval"`
	ShutdownGracePeriod time.Duration `mapstructure:"shutdown_grace_period"`
}

// RetryConfig 重试退避配置
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	BaseDelay   time.Duration `mapstructure:"base_delay"`
	MaxDelay    time.Duration `mapstructure:"max_delay"`
	Jitter      time.Duration `mapstructure:"jitter"`
}

// QueueConfig 任务队列配置
type QueueConfig struct {
	Kind      string `mapstructure:"kind"` // memory | redis
	Capacity  int    `mapstructure:"capacity"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// StoreConfig 任务状态存储配置
type StoreConfig struct {
	Retention     time.Duration `mapstructure:"retention"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	Persist       bool          `mapstructure:"persist"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	Charset         string        `mapstructure:"charset"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// RedisConfig Redis配置
type RedisConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	EnableTLS    bool          `mapstructure:"enable_tls"`
}

// KafkaConfig Kafka配置
type KafkaConfig struct {
	Enabled          bool              `mapstructure:"enabled"`
	BootstrapServers []string          `mapstructure:"bootstrap_servers"`
	ClientID         string            `mapstructure:"client_id"`
	GroupID          string            `mapstructure:"group_id"`
	Topics           KafkaTopicsConfig `mapstructure:"topics"`
}

// KafkaTopicsConfig Kafka主题配置
type KafkaTopicsConfig struct {
	JobEvents string `mapstructure:"job_events"`
	Uploads   string `mapstructure:"uploads"`
}

// MinioConfig MinIO配置
type MinioConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
}

// AuthConfig 认证配置（外部身份服务签发的JWT）
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
}

// ServiceRegistryConfig 服务注册配置
type ServiceRegistryConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Endpoints       []string      `mapstructure:"endpoints"`
	ServiceName     string        `mapstructure:"service_name"`
	ServiceID       string        `mapstructure:"service_id"`
	RegisterHost    string        `mapstructure:"register_host"`
	DialTimeout     time.Duration `mapstructure:"dial_timeout"`
	TTL             time.Duration `mapstructure:"ttl"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
}

// ProfilingConfig 持续性能剖析配置
type ProfilingConfig struct {
	ServerAddress string `mapstructure:"server_address"`
}

// Load 加载配置
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	viper.SetDefault("server.port", 8000)
	viper.SetDefault("queue.kind", "memory")
	viper.SetDefault("kafka.client_id", "video-api")
	viper.SetDefault("kafka.group_id", "video-api-group")
	viper.SetDefault("kafka.topics.job_events", "video.jobs.events")
	viper.SetDefault("kafka.topics.uploads", "video.uploads")
	viper.SetDefault("service_registry.service_name", "video-api")

	// 设置环境变量前缀
	viper.SetEnvPrefix("VIDEO_API")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// 读取配置文件
	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	// 解析配置
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	config.normalize()

	return &config, nil
}

// normalize 补全配置的默认值
func (c *Config) normalize() {
	if c.Upload.MaxSizeBytes <= 0 {
		c.Upload.MaxSizeBytes = 2 << 30 // 2GB
	}
	if c.Upload.ContentTypePrefix == "" {
		c.Upload.ContentTypePrefix = "video/"
	}
	if c.Upload.RawBucket == "" {
		c.Upload.RawBucket = "video-raw"
	}
	if c.Upload.TranscodedBucket == "" {
		c.Upload.TranscodedBucket = "video-transcoded"
	}
	if c.Upload.LocalStorageDir == "" {
		c.Upload.LocalStorageDir = "/tmp/video-api"
	}

	// 默认输出格式与前端约定一致
	if len(c.Transcode.OutputFormats) == 0 {
		c.Transcode.OutputFormats = []OutputFormat{
			{Name: "720p", Resolution: "1280x720", Bitrate: "2500k"},
			{Name: "480p", Resolution: "854x480", Bitrate: "1000k"},
			{Name: "360p", Resolution: "640x360", Bitrate: "600k"},
		}
	}
	if c.Transcode.SimulateSteps <= 0 {
		c.Transcode.SimulateSteps = 10
	}
	if c.Transcode.SimulateDelay <= 0 {
		c.Transcode.SimulateDelay = 2 * time.Second
	}
	if c.Transcode.FFmpeg.BinaryPath == "" {
		c.Transcode.FFmpeg.BinaryPath = "ffmpeg"
	}
	if c.Transcode.FFmpeg.TempDir == "" {
		c.Transcode.FFmpeg.TempDir = "/tmp/video-api/transcode"
	}
	if c.Transcode.FFmpeg.Timeout == 0 {
		c.Transcode.FFmpeg.Timeout = time.Hour
	}
	if c.Transcode.FFmpeg.VideoCodec == "" {
		c.Transcode.FFmpeg.VideoCodec = "libx264"
	}
	if c.Transcode.FFmpeg.Preset == "" {
		c.Transcode.FFmpeg.Preset = "medium"
	}
	if c.Transcode.FFmpeg.Threads < 0 {
		c.Transcode.FFmpeg.Threads = 0
	}

	if c.Worker.Count <= 0 {
		c.Worker.Count = 2
	}
	if c.Worker.WorkerID == "" {
		c.Worker.WorkerID = "video-worker"
	}
	if c.Worker.ClaimTimeout <= 0 {
		c.Worker.ClaimTimeout = 3 * time.Second
	}
	if c.Worker.LeaseTTL <= 0 {
		c.Worker.LeaseTTL = 60 * time.Second
	}
	if c.Worker.ReapInterval <= 0 {
		c.Worker.ReapInterval = 15 * time.Second
	}
	if c.Worker.ShutdownGracePeriod == 0 {
		c.Worker.ShutdownGracePeriod = 10 * time.Second
	}

	if c.Retry.MaxAttempts <= 0 {
		c.Retry.MaxAttempts = 3
	}
	if c.Retry.BaseDelay <= 0 {
		c.Retry.BaseDelay = 5 * time.Second
	}
	if c.Retry.MaxDelay <= 0 {
		c.Retry.MaxDelay = 5 * time.Minute
	}
	if c.Retry.Jitter < 0 {
		c.Retry.Jitter = 0
	}

	if c.Queue.Kind == "" {
		c.Queue.Kind = "memory"
	}
	if c.Queue.Capacity <= 0 {
		c.Queue.Capacity = 1000
	}
	if c.Queue.KeyPrefix == "" {
		c.Queue.KeyPrefix = "video:queue"
	}

	if c.Store.Retention <= 0 {
		c.Store.Retention = 24 * time.Hour
	}
	if c.Store.SweepInterval <= 0 {
		c.Store.SweepInterval = 10 * time.Minute
	}

	if c.Database.Charset == "" {
		c.Database.Charset = "utf8mb4"
	}
	if len(c.Kafka.BootstrapServers) == 0 {
		c.Kafka.BootstrapServers = []string{"localhost:29092"}
	}
	if c.Kafka.ClientID == "" {
		c.Kafka.ClientID = "video-api"
	}
	if c.ServiceRegistry.DialTimeout == 0 {
		c.ServiceRegistry.DialTimeout = 5 * time.Second
	}
	if c.ServiceRegistry.TTL == 0 {
		c.ServiceRegistry.TTL = 30 * time.Second
	}
	if c.ServiceRegistry.RefreshInterval == 0 {
		c.ServiceRegistry.RefreshInterval = 10 * time.Second
	}
}

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=True&loc=Local",
		c.Username, c.Password, c.Host, c.Port, c.Database, c.Charset)
}

// GetRedisAddr 获取Redis地址
func (c *RedisConfig) GetRedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// FormatNames 返回输出格式名称列表（顺序与配置一致）
func (c *TranscodeConfig) FormatNames() []string {
	names := make([]string, 0, len(c.OutputFormats))
	for _, f := range c.OutputFormats {
		names = append(names, f.Name)
	}
	return names
}
