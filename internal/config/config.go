package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Server    ServerConfig
	Cache     CacheConfig
	Redis     RedisConfig
	MinIO     MinIOConfig
	RabbitMQ  RabbitMQConfig
	Resolver  ResolverConfig
	Extractor ExtractorConfig
	Worker    WorkerConfig
}

type ServerConfig struct {
	Port            int           `envconfig:"API_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"API_READ_TIMEOUT" default:"10s"`
	WriteTimeout    time.Duration `envconfig:"API_WRITE_TIMEOUT" default:"120s"`
	ShutdownTimeout time.Duration `envconfig:"API_SHUTDOWN_TIMEOUT" default:"10s"`
	RateLimit       int           `envconfig:"API_RATE_LIMIT" default:"10"`
	RateWindow      time.Duration `envconfig:"API_RATE_WINDOW" default:"1m"`
}

type CacheConfig struct {
	Dir               string        `envconfig:"CACHE_DIR" default:"/var/cache/framegrab"`
	MemoryBudgetBytes int64         `envconfig:"CACHE_MEMORY_BUDGET_BYTES" default:"268435456"`
	FileTTL           time.Duration `envconfig:"CACHE_FILE_TTL" default:"24h"`
	WaitTimeout       time.Duration `envconfig:"CACHE_WAIT_TIMEOUT" default:"90s"`
}

type RedisConfig struct {
	Addr      string        `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	Password  string        `envconfig:"REDIS_PASSWORD" default:""`
	DB        int           `envconfig:"REDIS_DB" default:"0"`
	StreamTTL time.Duration `envconfig:"REDIS_STREAM_TTL" default:"30m"`
}

type MinIOConfig struct {
	Enabled   bool   `envconfig:"MINIO_ENABLED" default:"true"`
	Endpoint  string `envconfig:"MINIO_ENDPOINT" default:"localhost:9000"`
	AccessKey string `envconfig:"MINIO_ACCESS_KEY" default:"minioadmin"`
	SecretKey string `envconfig:"MINIO_SECRET_KEY" default:"minioadmin"`
	Bucket    string `envconfig:"MINIO_BUCKET" default:"frames"`
	UseSSL    bool   `envconfig:"MINIO_USE_SSL" default:"false"`
}

type RabbitMQConfig struct {
	Enabled  bool   `envconfig:"RABBITMQ_ENABLED" default:"true"`
	Host     string `envconfig:"RABBITMQ_HOST" default:"localhost"`
	Port     int    `envconfig:"RABBITMQ_PORT" default:"5672"`
	User     string `envconfig:"RABBITMQ_USER" default:"framegrab"`
	Password string `envconfig:"RABBITMQ_PASSWORD" default:"framegrab"`
	VHost    string `envconfig:"RABBITMQ_VHOST" default:"/"`
}

func (c RabbitMQConfig) URL() string {
	return fmt.Sprintf(
		"amqp://%s:%s@%s:%d%s",
		c.User, c.Password, c.Host, c.Port, c.VHost,
	)
}

type ResolverConfig struct {
	BinaryPath    string        `envconfig:"RESOLVER_BINARY" default:"yt-dlp"`
	SocketTimeout int           `envconfig:"RESOLVER_SOCKET_TIMEOUT" default:"30"`
	Retries       int           `envconfig:"RESOLVER_RETRIES" default:"3"`
	Timeout       time.Duration `envconfig:"RESOLVER_TIMEOUT" default:"45s"`
}

type ExtractorConfig struct {
	FFmpegPath string        `envconfig:"EXTRACTOR_FFMPEG" default:"ffmpeg"`
	WorkDir    string        `envconfig:"EXTRACTOR_WORK_DIR" default:""`
	Qscale     int           `envconfig:"EXTRACTOR_QSCALE" default:"2"`
	Timeout    time.Duration `envconfig:"EXTRACTOR_TIMEOUT" default:"60s"`
}

type WorkerConfig struct {
	MaxRetries      int           `envconfig:"WORKER_MAX_RETRIES" default:"3"`
	CleanupInterval time.Duration `envconfig:"WORKER_CLEANUP_INTERVAL" default:"1h"`
	ShutdownTimeout time.Duration `envconfig:"WORKER_SHUTDOWN_TIMEOUT" default:"30s"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}
