package config

import (
	"fmt"
	"time"
)

// Config holds runtime configuration for the share-pet service.
type Config struct {
	AppEnv   string         `mapstructure:"-"`
	App      AppConfig      `mapstructure:"app"`
	Logger   LoggerConfig   `mapstructure:"logger" validate:"required"`
	Sentry   SentryConfig   `mapstructure:"sentry"`
	HTTP     HTTPConfig     `mapstructure:"http" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Redis    RedisConfig    `mapstructure:"redis" validate:"required"`
	Session  SessionConfig  `mapstructure:"session"`
	Accounts AccountsConfig `mapstructure:"accounts"`
	Mail     MailConfig     `mapstructure:"mail"`
	Media    MediaConfig    `mapstructure:"media"`
}

type AppConfig struct {
	Name    string `mapstructure:"name"`
	BaseURL string `mapstructure:"base_url" validate:"omitempty,url"`
}

// LoggerConfig controls the slog handler and its output.
type LoggerConfig struct {
	Level  string        `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	Format string        `mapstructure:"format" validate:"required,oneof=json text"`
	File   LogFileConfig `mapstructure:"file"`
}

// LogFileConfig enables a rotating log file next to stdout.
type LogFileConfig struct {
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

type SentryConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	DSN         string  `mapstructure:"dsn" validate:"required_if=Enabled true"`
	Environment string  `mapstructure:"environment"`
	SampleRate  float64 `mapstructure:"sample_rate" validate:"gte=0,lte=1"`
}

type HTTPConfig struct {
	Addr            string        `mapstructure:"addr" validate:"required"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// RateLimit bounds mutating account requests per client address.
	RateLimit RateLimitRule `mapstructure:"rate_limit"`
}

// RateLimitRule is a limit over a sliding window, e.g. {limit: 20, window: "1m"}.
type RateLimitRule struct {
	Limit  int    `mapstructure:"limit" validate:"gte=0"`
	Window string `mapstructure:"window"`
}

// Duration parses Window, returning zero for an empty or malformed value.
func (r RateLimitRule) Duration() time.Duration {
	d, err := time.ParseDuration(r.Window)
	if err != nil {
		return 0
	}
	return d
}

// DatabaseConfig selects the SQL driver. sqlite3 is meant for development and tests.
type DatabaseConfig struct {
	Driver   string `mapstructure:"driver" validate:"required,oneof=postgres sqlite3"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name" validate:"required"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxOpen  int    `mapstructure:"max_open_conns"`
	MaxIdle  int    `mapstructure:"max_idle_conns"`
}

// DSN returns the data source name for the configured driver.
func (c DatabaseConfig) DSN() string {
	if c.Driver == "sqlite3" {
		return fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", c.Name)
	}
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host,
		c.Port,
		c.User,
		c.Password,
		c.Name,
		sslMode,
	)
}

type RedisConfig struct {
	Addr            string        `mapstructure:"addr" validate:"required"`
	Password        string        `mapstructure:"password"`
	DB              int           `mapstructure:"db"`
	PoolSize        int           `mapstructure:"pool_size"`
	MinIdleConns    int           `mapstructure:"min_idle_conns"`
	PoolTimeout     time.Duration `mapstructure:"pool_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	MaxRetries      int           `mapstructure:"max_retries"`
	MinRetryBackoff time.Duration `mapstructure:"min_retry_backoff"`
	MaxRetryBackoff time.Duration `mapstructure:"max_retry_backoff"`
}

type SessionConfig struct {
	CookieName string        `mapstructure:"cookie_name"`
	TTL        time.Duration `mapstructure:"ttl"`
	Secure     bool          `mapstructure:"secure"`
}

// AccountsConfig carries the account policy knobs.
type AccountsConfig struct {
	UsernameBlacklist    []string      `mapstructure:"username_blacklist"`
	UsernameMinLength    int           `mapstructure:"username_min_length" validate:"gte=0"`
	LoginAttemptsLimit   int           `mapstructure:"login_attempts_limit" validate:"gte=0"`
	LoginAttemptsWindow  time.Duration `mapstructure:"login_attempts_window"`
	EmailConfirmationTTL time.Duration `mapstructure:"email_confirmation_ttl"`
	PasswordResetTTL     time.Duration `mapstructure:"password_reset_ttl"`
	PasswordMinLength    int           `mapstructure:"password_min_length" validate:"gte=0"`
	LoginURL             string        `mapstructure:"login_url"`
	ProfileURL           string        `mapstructure:"profile_url"`
	ConfirmEmailSentURL  string        `mapstructure:"confirm_email_sent_url"`
	PasswordResetDoneURL string        `mapstructure:"password_reset_done_url"`
	ResetFromKeyDoneURL  string        `mapstructure:"reset_from_key_done_url"`
	LogoutRedirectURL    string        `mapstructure:"logout_redirect_url"`
}

type MailConfig struct {
	From        string `mapstructure:"from" validate:"omitempty,email"`
	SMTPHost    string `mapstructure:"smtp_host"`
	SMTPPort    int    `mapstructure:"smtp_port"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	Concurrency int    `mapstructure:"concurrency" validate:"gte=0"`
	MaxRetry    int    `mapstructure:"max_retry" validate:"gte=0"`
}

// MediaConfig selects where uploaded avatars and chat files are stored.
type MediaConfig struct {
	Backend   string `mapstructure:"backend" validate:"omitempty,oneof=local s3"`
	Root      string `mapstructure:"root"`
	BaseURL   string `mapstructure:"base_url"`
	Bucket    string `mapstructure:"bucket" validate:"required_if=Backend s3"`
	Region    string `mapstructure:"region"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
}
