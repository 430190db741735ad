// Package config provides configuration loading and validation utilities.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads configuration from YAML files and environment variables, validates it, and returns the resulting Config.
func Load() (*Config, *viper.Viper, error) {
	// missing env files are fine, the process environment may carry everything
	_ = godotenv.Load(".env.local", ".env")

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	v := viper.New()
	v.SetConfigFile(fmt.Sprintf("./configs/%s.yaml", env))
	setDefaults(v)

	cfg, err := read(v, env)
	if err != nil {
		return nil, nil, err
	}
	return cfg, v, nil
}

// LoadFile reads a single config file without consulting APP_ENV or dotenv files.
func LoadFile(path string) (*Config, *viper.Viper, error) {
	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v)

	cfg, err := read(v, "")
	if err != nil {
		return nil, nil, err
	}
	return cfg, v, nil
}

// Watch re-reads the config file on change and hands the validated result to fn.
// Invalid intermediate edits are logged and skipped.
func Watch(v *viper.Viper, log *slog.Logger, fn func(*Config)) {
	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}

		var cfg Config
		if err := v.Unmarshal(&cfg); err != nil {
			log.Warn("config reload failed", slog.String("file", e.Name), slog.Any("error", err))
			return
		}
		if err := validate(&cfg); err != nil {
			log.Warn("config reload rejected", slog.String("file", e.Name), slog.Any("error", err))
			return
		}

		log.Info("config reloaded", slog.String("file", e.Name))
		fn(&cfg)
	})
	v.WatchConfig()
}

func read(v *viper.Viper, env string) (*Config, error) {
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.AppEnv = env

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validate(cfg *Config) error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "share-pet")
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("http.addr", ":8000")
	v.SetDefault("http.read_timeout", 15*time.Second)
	v.SetDefault("http.write_timeout", 15*time.Second)
	v.SetDefault("http.idle_timeout", 60*time.Second)
	v.SetDefault("http.shutdown_timeout", 10*time.Second)
	v.SetDefault("http.rate_limit.limit", 30)
	v.SetDefault("http.rate_limit.window", "1m")
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.port", 5432)
	v.SetDefault("session.cookie_name", "sessionid")
	v.SetDefault("session.ttl", 14*24*time.Hour)
	v.SetDefault("accounts.username_blacklist", []string{"ye11ow_banana"})
	v.SetDefault("accounts.username_min_length", 3)
	v.SetDefault("accounts.login_attempts_limit", 3)
	v.SetDefault("accounts.login_attempts_window", 5*time.Minute)
	v.SetDefault("accounts.email_confirmation_ttl", 3*24*time.Hour)
	v.SetDefault("accounts.password_reset_ttl", 3*24*time.Hour)
	v.SetDefault("accounts.password_min_length", 8)
	v.SetDefault("accounts.login_url", "/accounts/login/")
	v.SetDefault("accounts.profile_url", "/accounts/profile/")
	v.SetDefault("accounts.confirm_email_sent_url", "/accounts/confirm-email-sent/")
	v.SetDefault("accounts.password_reset_done_url", "/accounts/user/password-reset-done/")
	v.SetDefault("accounts.reset_from_key_done_url", "/accounts/user/reset-password-from-key-done/")
	v.SetDefault("accounts.logout_redirect_url", "/accounts/login/")
	v.SetDefault("mail.from", "noreply@share-pet.local")
	v.SetDefault("mail.smtp_port", 587)
	v.SetDefault("mail.concurrency", 5)
	v.SetDefault("mail.max_retry", 5)
	v.SetDefault("media.backend", "local")
	v.SetDefault("media.root", "./media")
	v.SetDefault("media.base_url", "/media/")
}
