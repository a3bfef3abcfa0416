package config

import (
	"time"

	"github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/zlog"
)

// Config holds the main configuration for the application.
type Config struct {
	Server  Server  `mapstructure:"server"`
	Storage Storage `mapstructure:"storage"`
	Index   Index   `mapstructure:"index"`
	Upload  Upload  `mapstructure:"upload"`
	Variant Variant `mapstructure:"variant"`
	Auth    Auth    `mapstructure:"auth"`
	Kafka   Kafka   `mapstructure:"kafka"`
	Retry   Retry   `mapstructure:"retry"`
}

// Server holds HTTP server-related configuration.
type Server struct {
	HTTPPort string `mapstructure:"http_port"` // HTTP port to listen on
}

// Storage holds configuration for the blob storage backend.
type Storage struct {
	Mode       string `mapstructure:"mode"`     // "local" or "s3"
	BaseDir    string `mapstructure:"base_dir"` // base directory for local mode
	Endpoint   string `mapstructure:"endpoint"`
	AccessKey  string `mapstructure:"access_key"`
	SecretKey  string `mapstructure:"secret_key"`
	BucketName string `mapstructure:"bucket_name"`
	UseSSL     bool   `mapstructure:"use_ssl"`
}

// Index holds configuration for the embedded metadata index.
type Index struct {
	Dir string `mapstructure:"dir"` // directory for the badger database
}

// Upload holds ingestion limits.
type Upload struct {
	MaxBytes          int64    `mapstructure:"max_bytes"`           // upload size ceiling
	AllowedMediaTypes []string `mapstructure:"allowed_media_types"` // declared content type allow-list
}

// Variant holds variant generation policy.
type Variant struct {
	MaxDimension int `mapstructure:"max_dimension"` // per-axis request ceiling
	Quality      int `mapstructure:"quality"`       // JPEG quality for variants, 1-100
}

// Auth holds token validation settings.
type Auth struct {
	JWTSecret  string        `mapstructure:"jwt_secret"`
	SessionTTL time.Duration `mapstructure:"session_ttl"`
}

// Kafka holds configuration for the lifecycle event queue.
type Kafka struct {
	Enabled bool     `mapstructure:"enabled"`
	Topic   string   `mapstructure:"topic"`
	Brokers []string `mapstructure:"brokers"`
}

// Retry defines retry policy configuration.
type Retry struct {
	Attempts int           `mapstructure:"attempts"` // Number of retry attempts
	Delay    time.Duration `mapstructure:"delay"`    // Initial delay between retries
	Backoff  float64       `mapstructure:"backoff"`  // Backoff multiplier for delays
}

// MustLoad loads the configuration from the specified file path.
// It panics if the configuration file cannot be loaded or unmarshaled.
func MustLoad(path string) *Config {
	c := config.New()

	if err := c.Load(path); err != nil {
		zlog.Logger.Panic().Err(err).Msg("failed to load config")
	}

	var cfg Config
	if err := c.Unmarshal(&cfg); err != nil {
		zlog.Logger.Panic().Err(err).Msg("failed to unmarshal config")
	}

	return &cfg
}
