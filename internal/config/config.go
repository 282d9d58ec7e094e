// Package config loads and validates engine configuration from the
// environment
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

type (
	// Config holds configuration settings for the engine and API server
	Config struct {
		// API server
		APIHost       string
		APIPort       int
		WebhookSecret string
		LogLevel      string

		// Store
		Redis RedisConfig

		// Engine
		MaxSteps        int
		ShutdownTimeout time.Duration

		// Retry
		Retry RetryConfig

		// Archiving
		ArchiveBucketURL string
		ArchivePrefix    string
	}

	// RedisConfig holds connection settings for the Redis store
	RedisConfig struct {
		Addr     string
		Password string
		DB       int
		Prefix   string
	}

	// RetryConfig controls how transient run failures are retried
	RetryConfig struct {
		MaxRetries  int
		InitBackoff time.Duration
		MaxBackoff  time.Duration
		BackoffType string
	}
)

const (
	DefaultAPIHost = "0.0.0.0"
	DefaultAPIPort = 8080
	MaxTCPPort     = 65535

	DefaultRedisAddr   = "localhost:6379"
	DefaultRedisDB     = 0
	DefaultRedisPrefix = "nodebase"

	DefaultMaxSteps        = 100
	MaxMaxSteps            = 10_000
	DefaultShutdownTimeout = 10 * time.Second

	DefaultMaxRetries  = 3
	MaxMaxRetries      = 100
	DefaultInitBackoff = time.Second
	DefaultMaxBackoff  = time.Minute

	BackoffTypeFixed       = "fixed"
	BackoffTypeLinear      = "linear"
	BackoffTypeExponential = "exponential"

	DefaultArchivePrefix = "executions/"
)

var (
	ErrInvalidAPIPort     = errors.New("invalid API port")
	ErrInvalidMaxSteps    = errors.New("max steps must be positive")
	ErrInvalidMaxRetries  = errors.New("retry max retries cannot be negative")
	ErrInvalidInitBackoff = errors.New("retry initial backoff must be positive")
	ErrMaxBackoffTooSmall = errors.New(
		"retry max backoff must be >= retry initial backoff",
	)
	ErrInvalidBackoffType = errors.New("invalid retry backoff type")
)

// NewDefaultConfig creates a configuration with sensible defaults for all
// engine, store, and retry settings
func NewDefaultConfig() *Config {
	return &Config{
		APIHost: DefaultAPIHost,
		APIPort: DefaultAPIPort,
		Redis: RedisConfig{
			Addr:   DefaultRedisAddr,
			DB:     DefaultRedisDB,
			Prefix: DefaultRedisPrefix,
		},
		MaxSteps:        DefaultMaxSteps,
		ShutdownTimeout: DefaultShutdownTimeout,
		Retry: RetryConfig{
			MaxRetries:  DefaultMaxRetries,
			InitBackoff: DefaultInitBackoff,
			MaxBackoff:  DefaultMaxBackoff,
			BackoffType: BackoffTypeExponential,
		},
		ArchivePrefix: DefaultArchivePrefix,
		LogLevel:      "info",
	}
}

// LoadFromEnv populates configuration values from environment variables.
// Returns an error if any env var cannot be parsed
func (c *Config) LoadFromEnv() error {
	if host := os.Getenv("API_HOST"); host != "" {
		c.APIHost = host
	}
	if secret := os.Getenv("WEBHOOK_SECRET"); secret != "" {
		c.WebhookSecret = secret
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.LogLevel = level
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		c.Redis.Addr = addr
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		c.Redis.Password = password
	}
	if prefix := os.Getenv("REDIS_PREFIX"); prefix != "" {
		c.Redis.Prefix = prefix
	}
	if bucket := os.Getenv("ARCHIVE_BUCKET_URL"); bucket != "" {
		c.ArchiveBucketURL = bucket
	}
	if prefix := os.Getenv("ARCHIVE_PREFIX"); prefix != "" {
		c.ArchivePrefix = prefix
	}
	if backoffType := os.Getenv("RETRY_BACKOFF_TYPE"); backoffType != "" {
		c.Retry.BackoffType = backoffType
	}

	if err := loadEnvInt("API_PORT", &c.APIPort, 0, MaxTCPPort); err != nil {
		return err
	}
	if err := loadEnvInt(
		"REDIS_DB", &c.Redis.DB, -1, 15,
	); err != nil {
		return err
	}
	if err := loadEnvInt(
		"MAX_STEPS", &c.MaxSteps, 0, MaxMaxSteps,
	); err != nil {
		return err
	}
	if err := loadEnvInt(
		"RETRY_MAX_RETRIES", &c.Retry.MaxRetries, -1, MaxMaxRetries,
	); err != nil {
		return err
	}
	if err := loadEnvDuration(
		"RETRY_INITIAL_BACKOFF", &c.Retry.InitBackoff,
	); err != nil {
		return err
	}
	if err := loadEnvDuration(
		"RETRY_MAX_BACKOFF", &c.Retry.MaxBackoff,
	); err != nil {
		return err
	}
	return loadEnvDuration("SHUTDOWN_TIMEOUT", &c.ShutdownTimeout)
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	if c.APIPort <= 0 || c.APIPort > MaxTCPPort {
		return fmt.Errorf("%w: %d", ErrInvalidAPIPort, c.APIPort)
	}
	if c.MaxSteps <= 0 {
		return ErrInvalidMaxSteps
	}
	if c.Retry.MaxRetries < 0 {
		return ErrInvalidMaxRetries
	}
	if c.Retry.InitBackoff <= 0 {
		return ErrInvalidInitBackoff
	}
	if c.Retry.MaxBackoff < c.Retry.InitBackoff {
		return ErrMaxBackoffTooSmall
	}
	switch c.Retry.BackoffType {
	case BackoffTypeFixed, BackoffTypeLinear, BackoffTypeExponential:
	default:
		return fmt.Errorf("%w: %s",
			ErrInvalidBackoffType, c.Retry.BackoffType)
	}
	return nil
}

// Backoff computes the delay before the given retry attempt, starting at 1
func (r RetryConfig) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	var d time.Duration
	switch r.BackoffType {
	case BackoffTypeLinear:
		d = r.InitBackoff * time.Duration(attempt)
	case BackoffTypeExponential:
		if attempt > 32 {
			return r.MaxBackoff
		}
		d = r.InitBackoff << (attempt - 1)
	default:
		d = r.InitBackoff
	}

	if d > r.MaxBackoff || d <= 0 {
		return r.MaxBackoff
	}
	return d
}

// loadEnvInt reads key from the environment, parses it as an integer, and
// sets *dst if the value is in the range (min, max]. Returns an error if
// the value cannot be parsed or falls outside the valid range
func loadEnvInt[T ~int](key string, dst *T, min, max T) error {
	s := os.Getenv(key)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %q", key, s)
	}
	tv := T(v)
	if tv <= min || tv > max {
		return fmt.Errorf("invalid %s: %d out of range [%d, %d]",
			key, tv, min+1, max)
	}
	*dst = tv
	return nil
}

func loadEnvDuration(key string, dst *time.Duration) error {
	s := os.Getenv(key)
	if s == "" {
		return nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid %s: %q", key, s)
	}
	if d <= 0 {
		return fmt.Errorf("invalid %s: must be positive", key)
	}
	*dst = d
	return nil
}
