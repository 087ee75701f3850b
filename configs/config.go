package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type R2 struct {
	AccountID  string
	AccessKey  string
	SecretKey  string
	BucketName string
	PublicURL  string
	// Endpoint overrides the account endpoint, mainly for S3 compatible test servers.
	Endpoint string
}

type Config struct {
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURI  string
	PostgresURI        string
	RedisURI           string
	FrontendURL        string
	HTTPAddr           string
	R2                 R2
	SecretKey          string
	CookieName         string

	LogLevel  string
	LogFormat string

	// Path to a YAML file overriding the embedded platform settings.
	PlatformsConfig string

	DispatchTimeout    time.Duration
	PublishConcurrency int
	WorkerConcurrency  int
	MaxPublishRetries  int
	RetryBackoff       time.Duration
	DuePostsInterval   time.Duration
	AnalyticsInterval  time.Duration
}

// LoadConfig reads configuration from the environment, loading a .env file
// first when one is present.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURI:  getEnv("GOOGLE_REDIRECT_URI", "http://localhost:3000/login/callback"),
		PostgresURI:        getEnv("POSTGRES_URI", ""),
		RedisURI:           getEnv("REDIS_URI", "localhost:6379"),
		FrontendURL:        getEnv("FRONTEND_URL", "http://localhost:5173"),
		HTTPAddr:           getEnv("HTTP_ADDR", ":3000"),
		R2: R2{
			AccountID:  getEnv("R2_ACCOUNT_ID", ""),
			AccessKey:  getEnv("R2_ACCESS_KEY", ""),
			SecretKey:  getEnv("R2_SECRET_KEY", ""),
			BucketName: getEnv("R2_BUCKET_NAME", ""),
			PublicURL:  getEnv("R2_PUBLIC_URL", ""),
			Endpoint:   getEnv("R2_ENDPOINT", ""),
		},
		SecretKey:       getEnv("SECRET_KEY", ""),
		CookieName:      getEnv("COOKIE_NAME", "postflow_session"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFormat:       getEnv("LOG_FORMAT", "text"),
		PlatformsConfig: getEnv("PLATFORMS_CONFIG", ""),
	}

	var err error
	if cfg.DispatchTimeout, err = getDuration("DISPATCH_TIMEOUT", "60s"); err != nil {
		return nil, err
	}
	if cfg.RetryBackoff, err = getDuration("RETRY_BACKOFF", "2m"); err != nil {
		return nil, err
	}
	if cfg.DuePostsInterval, err = getDuration("DUE_POSTS_INTERVAL", "1m"); err != nil {
		return nil, err
	}
	if cfg.AnalyticsInterval, err = getDuration("ANALYTICS_INTERVAL", "1h"); err != nil {
		return nil, err
	}

	if cfg.PublishConcurrency, err = getInt("PUBLISH_CONCURRENCY", "10"); err != nil {
		return nil, err
	}
	if cfg.WorkerConcurrency, err = getInt("WORKER_CONCURRENCY", "10"); err != nil {
		return nil, err
	}
	if cfg.MaxPublishRetries, err = getInt("MAX_PUBLISH_RETRIES", "3"); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the settings every command needs.
func (c *Config) Validate() error {
	if c.PostgresURI == "" {
		return fmt.Errorf("POSTGRES_URI is required")
	}
	return nil
}

// ValidateForWorker checks what the queue worker and publish commands need.
// Tokens are stored AES-256 encrypted, so the secret must be 32 bytes.
func (c *Config) ValidateForWorker() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.RedisURI == "" {
		return fmt.Errorf("REDIS_URI is required")
	}
	if len(c.SecretKey) != 32 {
		return fmt.Errorf("SECRET_KEY must be 32 bytes, got %d", len(c.SecretKey))
	}
	if c.DispatchTimeout <= 0 {
		return fmt.Errorf("DISPATCH_TIMEOUT must be positive")
	}
	if c.PublishConcurrency < 1 {
		return fmt.Errorf("PUBLISH_CONCURRENCY must be at least 1")
	}
	return nil
}

// ValidateForServe checks everything the HTTP server needs on top of the worker.
func (c *Config) ValidateForServe() error {
	if err := c.ValidateForWorker(); err != nil {
		return err
	}
	if c.CookieName == "" {
		return fmt.Errorf("COOKIE_NAME is required")
	}
	if c.GoogleClientID == "" || c.GoogleClientSecret == "" {
		return fmt.Errorf("GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET are required for login")
	}
	return nil
}

// StorageEnabled reports whether R2 credentials are configured.
func (c *Config) StorageEnabled() bool {
	return (c.R2.AccountID != "" || c.R2.Endpoint != "") && c.R2.AccessKey != "" && c.R2.SecretKey != "" && c.R2.BucketName != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key, defaultValue string) (time.Duration, error) {
	d, err := time.ParseDuration(getEnv(key, defaultValue))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getInt(key, defaultValue string) (int, error) {
	n, err := strconv.Atoi(getEnv(key, defaultValue))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
