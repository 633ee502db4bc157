package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds the environment driven configuration for the flow service.
type Config struct {
	// Service Configuration
	ServiceName     string        `env:"SERVICE_NAME" envDefault:"flow-api"`
	Environment     string        `env:"ENVIRONMENT" envDefault:"development"`
	Version         string        `env:"SERVICE_VERSION" envDefault:"1.0.0"`
	HTTPPort        int           `env:"FLOW_API_PORT" envDefault:"8001"`
	LogLevel        string        `env:"FLOW_LOG_LEVEL" envDefault:"info"`
	PromptLogLevel  string        `env:"PROMPT_LOG_LEVEL" envDefault:"hashed"` // none, hashed or full
	EnableTracing   bool          `env:"ENABLE_TRACING" envDefault:"false"`
	OTLPEndpoint    string        `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:""`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// Data directory for the settings file and the upload cache index
	DataDir string `env:"FLOW_DATA_DIR" envDefault:"./data"`

	// Upstream credentials (fallback when the settings file has none)
	FlowSessionToken string `env:"FLOW_SESSION_TOKEN"`
	FlowCSRFToken    string `env:"FLOW_CSRF_TOKEN"`

	// Upstream client
	UpstreamTimeout  time.Duration `env:"FLOW_UPSTREAM_TIMEOUT" envDefault:"120s"`
	RetryMaxAttempts int           `env:"FLOW_RETRY_MAX_ATTEMPTS" envDefault:"3"`
	RetryBaseDelay   time.Duration `env:"FLOW_RETRY_BASE_DELAY" envDefault:"5s"`
	UserPaygateTier  string        `env:"FLOW_USER_PAYGATE_TIER" envDefault:"PAYGATE_TIER_ONE"`
	MaxImageBytes    int64         `env:"FLOW_MAX_IMAGE_BYTES" envDefault:"20971520"`

	// Public API keys (comma separated). Empty disables key checks.
	APIKeys []string `env:"API_KEYS" envSeparator:","`

	// Admin session signing
	AdminJWTSecret string        `env:"ADMIN_JWT_SECRET"`
	AdminTokenTTL  time.Duration `env:"ADMIN_TOKEN_TTL" envDefault:"24h"`

	// Upload cache backend: "file" or "redis"
	UploadCacheBackend string        `env:"UPLOAD_CACHE_BACKEND" envDefault:"file"`
	RedisURL           string        `env:"REDIS_URL"`
	ProjectLockTTL     time.Duration `env:"PROJECT_LOCK_TTL" envDefault:"30s"`

	// Job log. Postgres when set, in-memory otherwise.
	DBPostgresqlWriteDSN string        `env:"DB_POSTGRESQL_WRITE_DSN"`
	DBMaxIdleConns       int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	DBMaxOpenConns       int           `env:"DB_MAX_OPEN_CONNS" envDefault:"15"`
	DBConnLifetime       time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"30m"`
	JobLogSize           int           `env:"JOB_LOG_SIZE" envDefault:"1000"`

	// Durable mirror backend: "r2" (S3 compatible) or "local"
	MirrorBackend      string `env:"MIRROR_BACKEND" envDefault:"r2"`
	MirrorVideos       bool   `env:"MIRROR_VIDEOS" envDefault:"false"`
	R2EndpointURL      string `env:"R2_ENDPOINT_URL"`
	R2AccessKeyID      string `env:"R2_ACCESS_KEY_ID"`
	R2SecretAccessKey  string `env:"R2_SECRET_ACCESS_KEY"`
	R2BucketName       string `env:"R2_BUCKET_NAME"`
	R2PublicURL        string `env:"R2_PUBLIC_URL"`
	R2Region           string `env:"R2_REGION" envDefault:"auto"`
	LocalMirrorPath    string `env:"MIRROR_LOCAL_PATH"`
	LocalMirrorBaseURL string `env:"MIRROR_LOCAL_BASE_URL"`
}

// Load parses environment variables into Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}

	cfg.FlowSessionToken = strings.TrimSpace(cfg.FlowSessionToken)
	cfg.FlowCSRFToken = strings.TrimSpace(cfg.FlowCSRFToken)
	cfg.R2EndpointURL = strings.TrimSpace(cfg.R2EndpointURL)
	cfg.R2AccessKeyID = strings.TrimSpace(cfg.R2AccessKeyID)
	cfg.R2SecretAccessKey = strings.TrimSpace(cfg.R2SecretAccessKey)
	cfg.R2BucketName = strings.TrimSpace(cfg.R2BucketName)
	cfg.R2PublicURL = strings.TrimSpace(cfg.R2PublicURL)

	keys := cfg.APIKeys[:0]
	for _, key := range cfg.APIKeys {
		if key = strings.TrimSpace(key); key != "" {
			keys = append(keys, key)
		}
	}
	cfg.APIKeys = keys

	if cfg.RetryMaxAttempts <= 0 {
		cfg.RetryMaxAttempts = 3
	}
	if cfg.MaxImageBytes <= 0 {
		cfg.MaxImageBytes = 20 * 1024 * 1024
	}
	if cfg.JobLogSize <= 0 {
		cfg.JobLogSize = 1000
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./data"
	}
	if cfg.IsRedisUploadCache() && strings.TrimSpace(cfg.RedisURL) == "" {
		return nil, fmt.Errorf("REDIS_URL is required when UPLOAD_CACHE_BACKEND is redis")
	}
	return cfg, nil
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// SettingsPath returns the location of the TOML settings file.
func (c *Config) SettingsPath() string {
	return filepath.Join(c.DataDir, "setting.toml")
}

// UploadCachePath returns the location of the upload cache index.
func (c *Config) UploadCachePath() string {
	return filepath.Join(c.DataDir, "image_upload_cache.json")
}

// IsRedisUploadCache returns true if the upload cache should live in Redis.
func (c *Config) IsRedisUploadCache() bool {
	return strings.ToLower(strings.TrimSpace(c.UploadCacheBackend)) == "redis"
}

// IsLocalMirror returns true if the local mirror backend is configured.
func (c *Config) IsLocalMirror() bool {
	return strings.ToLower(strings.TrimSpace(c.MirrorBackend)) == "local"
}

// HasDatabase reports whether the Postgres job log is enabled.
func (c *Config) HasDatabase() bool {
	return strings.TrimSpace(c.DBPostgresqlWriteDSN) != ""
}

// HasRedis reports whether a Redis endpoint is configured.
func (c *Config) HasRedis() bool {
	return strings.TrimSpace(c.RedisURL) != ""
}
