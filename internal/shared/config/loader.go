package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load merges the TOML file at path (skipped when path is empty) on top of
// Defaults, loads .env when present and applies environment overrides.
// The result is not validated, callers run Validate.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("decode config file %s: %w", path, err)
		}
	}

	// .env is optional
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	setStr(&cfg.Env, "APP_ENV")
	setStr(&cfg.LogLevel, "LOG_LEVEL")
	setStr(&cfg.Storage, "STORAGE_DRIVER")

	setStr(&cfg.HTTP.Addr, "HTTP_ADDR")
	setDuration(&cfg.HTTP.ShutdownTimeout, "HTTP_SHUTDOWN_TIMEOUT")

	// same names as the docker compose file
	setStr(&cfg.DB.Host, "DB_HOST")
	setInt(&cfg.DB.Port, "DB_PORT")
	setStr(&cfg.DB.User, "DB_USER")
	setStr(&cfg.DB.Password, "DB_PASSWORD")
	setStr(&cfg.DB.Name, "DB_NAME")
	setStr(&cfg.DB.SSLMode, "DB_SSLMODE")
	setInt(&cfg.DB.MaxConns, "DB_MAX_CONNS")
	setInt(&cfg.DB.MinConns, "DB_MIN_CONNS")
	setBool(&cfg.DB.RunMigrations, "DB_RUN_MIGRATIONS")

	setStr(&cfg.Redis.Addr, "REDIS_ADDR")
	setStr(&cfg.Redis.Password, "REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "REDIS_POOL_SIZE")

	setBool(&cfg.Scheduler.Enabled, "SCHEDULER_ENABLED")
	setDuration(&cfg.Scheduler.Interval, "SCHEDULER_INTERVAL")
	setInt(&cfg.Scheduler.BatchSize, "SCHEDULER_BATCH_SIZE")
	setDuration(&cfg.Scheduler.LockTTL, "SCHEDULER_LOCK_TTL")

	setInt(&cfg.Bidding.RateLimit, "BID_RATE_LIMIT")
	setDuration(&cfg.Bidding.RateWindow, "BID_RATE_WINDOW")

	setBool(&cfg.Notify.Enabled, "NOTIFY_ENABLED")
	setDuration(&cfg.Notify.Interval, "NOTIFY_INTERVAL")
	setInt(&cfg.Notify.BatchSize, "NOTIFY_BATCH_SIZE")
	setInt(&cfg.Notify.MaxAttempts, "NOTIFY_MAX_ATTEMPTS")
	setDuration(&cfg.Notify.RetryBackoff, "NOTIFY_RETRY_BACKOFF")
	setStr(&cfg.Notify.WebhookURL, "NOTIFY_WEBHOOK_URL")
	setStr(&cfg.Notify.SMTP.Host, "SMTP_HOST")
	setInt(&cfg.Notify.SMTP.Port, "SMTP_PORT")
	setStr(&cfg.Notify.SMTP.User, "SMTP_USER")
	setStr(&cfg.Notify.SMTP.Password, "SMTP_PASSWORD")
	setStr(&cfg.Notify.SMTP.From, "SMTP_FROM")
}

// Each helper only mutates the target when the variable is set and parses.

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}
