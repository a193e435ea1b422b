/*
Package configs is responsible for loading and parsing the application's configuration settings.

Values come from environment variables (optionally seeded from a .env file by the caller).
It covers the running environment, HTTP listener, CORS origins, session tokens, the message
store backend, optional S3 attachment offload, input limits and opt-in tracing.
*/
package configs

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Store drivers accepted by STORE_DRIVER.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

const defaultDevSecret = "your_default_insecure_secret_key_change_me"

// AppConfig contains all configuration parameters required for the application to run.
type AppConfig struct {
	// General Server Settings
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	Port        int    `env:"PORT" envDefault:"8080"`

	// Security Settings
	AllowedOrigins []string      `env:"ALLOWED_ORIGINS" envSeparator:","`
	JWTSecret      string        `env:"JWT_SECRET"`
	TokenTTL       time.Duration `env:"TOKEN_TTL" envDefault:"15m"`

	// Message Store Settings
	StoreDriver        string        `env:"STORE_DRIVER" envDefault:"sqlite"`
	SQLitePath         string        `env:"SQLITE_PATH" envDefault:"chatsync.db"`
	DatabaseDSN        string        `env:"DATABASE_URL"`
	StoreRetryAttempts uint64        `env:"STORE_RETRY_ATTEMPTS" envDefault:"3"`
	StoreRetryBase     time.Duration `env:"STORE_RETRY_BASE" envDefault:"50ms"`
	StoreTimeout       time.Duration `env:"STORE_TIMEOUT" envDefault:"2s"`

	// S3 Storage Settings. Attachments stay inline when the bucket is unset.
	S3BucketName      string        `env:"S3_BUCKET_NAME"`
	S3Endpoint        string        `env:"S3_ENDPOINT"`
	S3Region          string        `env:"S3_REGION" envDefault:"auto"`
	S3AccessKeyID     string        `env:"S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string        `env:"S3_SECRET_ACCESS_KEY"`
	UploadTimeout     time.Duration `env:"UPLOAD_TIMEOUT" envDefault:"15s"`

	// Limits
	MaxFileBytes    int           `env:"MAX_FILE_BYTES" envDefault:"5242880"`
	MaxTextBytes    int           `env:"MAX_TEXT_BYTES" envDefault:"5000"`
	TypingTTL       time.Duration `env:"TYPING_TTL" envDefault:"10s"`
	HistoryMaxLimit int           `env:"HISTORY_MAX_LIMIT" envDefault:"100"`

	// Tracing
	OtelEndpoint string `env:"OTEL_ENDPOINT"`
	OtelEnabled  bool   `env:"OTEL_ENABLED" envDefault:"true"`
}

// IsDevelopment reports whether the server runs in the development environment.
func (c *AppConfig) IsDevelopment() bool {
	return c.Environment == "development"
}

// S3Enabled reports whether attachment offload to S3 is configured.
func (c *AppConfig) S3Enabled() bool {
	return c.S3BucketName != ""
}

// LoadConfig reads and parses the application configuration from environment variables.
// It applies defaults, then validates values that depend on each other.
func LoadConfig() (*AppConfig, error) {
	cfg := &AppConfig{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.finalize(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *AppConfig) finalize() error {
	if c.Port < 1024 || c.Port > 65535 {
		return fmt.Errorf("port number %d is outside the recommended range (%d-%d) to avoid privileged ports", c.Port, 1024, 65535)
	}

	origins := make([]string, 0, len(c.AllowedOrigins))
	for _, origin := range c.AllowedOrigins {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	c.AllowedOrigins = origins

	if c.JWTSecret == "" {
		if !c.IsDevelopment() {
			return fmt.Errorf("JWT_SECRET environment variable is required in %s environment for security", c.Environment)
		}
		c.JWTSecret = defaultDevSecret
	}

	switch c.StoreDriver {
	case DriverMemory:
	case DriverSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH must be set when STORE_DRIVER is %s", DriverSQLite)
		}
	case DriverPostgres:
		if c.DatabaseDSN == "" {
			return fmt.Errorf("DATABASE_URL environment variable is required when STORE_DRIVER is %s", DriverPostgres)
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q (want %s, %s or %s)", c.StoreDriver, DriverMemory, DriverSQLite, DriverPostgres)
	}

	if c.S3Enabled() {
		if c.S3Endpoint == "" {
			return fmt.Errorf("S3_ENDPOINT environment variable is required for S3 storage connection")
		}
		if c.S3AccessKeyID == "" || c.S3SecretAccessKey == "" {
			return fmt.Errorf("S3_ACCESS_KEY_ID and S3_SECRET_ACCESS_KEY are required for S3 authentication")
		}
	}

	if c.MaxFileBytes <= 0 || c.MaxTextBytes <= 0 {
		return fmt.Errorf("MAX_FILE_BYTES and MAX_TEXT_BYTES must be positive")
	}
	if c.HistoryMaxLimit <= 0 {
		return fmt.Errorf("HISTORY_MAX_LIMIT must be positive, got %d", c.HistoryMaxLimit)
	}
	if c.TypingTTL <= 0 {
		return fmt.Errorf("TYPING_TTL must be positive, got %s", c.TypingTTL)
	}

	return nil
}
