// Package config holds the service configuration. Values come from the
// built-in defaults, an optional TOML file and then environment variables,
// in that order.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure
type Config struct {
	Env       string          `toml:"env"` // development | production
	LogLevel  string          `toml:"log_level"`
	Storage   string          `toml:"storage"` // postgres | memory
	HTTP      HTTPConfig      `toml:"http"`
	DB        DBConfig        `toml:"db"`
	Redis     RedisConfig     `toml:"redis"`
	Scheduler SchedulerConfig `toml:"scheduler"`
	Bidding   BiddingConfig   `toml:"bidding"`
	Notify    NotifyConfig    `toml:"notify"`
}

type HTTPConfig struct {
	Addr            string   `toml:"addr"`
	ShutdownTimeout Duration `toml:"shutdown_timeout"`
}

// DBConfig holds PostgreSQL connection parameters
type DBConfig struct {
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	Name          string `toml:"name"`
	SSLMode       string `toml:"ssl_mode"`
	MaxConns      int    `toml:"max_conns"`
	MinConns      int    `toml:"min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// DSN builds the postgres url used by pgx and golang-migrate
func (c DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode,
	)
}

// RedisConfig is optional, an empty Addr disables redis
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
	PoolSize int    `toml:"pool_size"`
}

func (c RedisConfig) Enabled() bool { return c.Addr != "" }

// SchedulerConfig drives the expired auction sweeper
type SchedulerConfig struct {
	Enabled   bool     `toml:"enabled"`
	Interval  Duration `toml:"interval"`
	BatchSize int      `toml:"batch_size"`
	LockTTL   Duration `toml:"lock_ttl"`
}

// BiddingConfig holds the per bidder rate limit of the bid endpoint
type BiddingConfig struct {
	RateLimit  int      `toml:"rate_limit"` // bids per window, 0 disables it
	RateWindow Duration `toml:"rate_window"`
}

// NotifyConfig holds the outbox dispatcher and the delivery channels
type NotifyConfig struct {
	Enabled      bool       `toml:"enabled"`
	Interval     Duration   `toml:"interval"`
	BatchSize    int        `toml:"batch_size"`
	MaxAttempts  int        `toml:"max_attempts"`
	RetryBackoff Duration   `toml:"retry_backoff"`
	Lease        Duration   `toml:"lease"`
	WebhookURL   string     `toml:"webhook_url"`
	SMTP         SMTPConfig `toml:"smtp"`
}

// SMTPConfig is used only when Host is set
type SMTPConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	From     string `toml:"from"`
}

func (c SMTPConfig) Enabled() bool { return c.Host != "" }

// Duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a config that runs locally against postgres on localhost
func Defaults() Config {
	return Config{
		Env:      "development",
		LogLevel: "info",
		Storage:  "postgres",
		HTTP: HTTPConfig{
			Addr:            ":8080",
			ShutdownTimeout: Duration{10 * time.Second},
		},
		DB: DBConfig{
			Host:          "localhost",
			Port:          5432,
			User:          "postgres",
			Name:          "pigeon_auction",
			SSLMode:       "disable",
			MaxConns:      10,
			MinConns:      2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			PoolSize: 10,
		},
		Scheduler: SchedulerConfig{
			Enabled:   true,
			Interval:  Duration{30 * time.Second},
			BatchSize: 50,
			LockTTL:   Duration{25 * time.Second},
		},
		Bidding: BiddingConfig{
			RateLimit:  10,
			RateWindow: Duration{time.Minute},
		},
		Notify: NotifyConfig{
			Enabled:      true,
			Interval:     Duration{15 * time.Second},
			BatchSize:    20,
			MaxAttempts:  5,
			RetryBackoff: Duration{time.Minute},
			Lease:        Duration{2 * time.Minute},
			SMTP: SMTPConfig{
				Port: 587,
			},
		},
	}
}

// Validate checks the config for values the service cannot start with
func (c *Config) Validate() error {
	var errs []error

	switch strings.ToLower(c.Storage) {
	case "postgres":
		if c.DB.Host == "" {
			errs = append(errs, errors.New("db.host is required"))
		}
		if c.DB.Port <= 0 || c.DB.Port > 65535 {
			errs = append(errs, fmt.Errorf("db.port %d out of range", c.DB.Port))
		}
		if c.DB.Name == "" {
			errs = append(errs, errors.New("db.name is required"))
		}
		if c.DB.MinConns > c.DB.MaxConns {
			errs = append(errs, errors.New("db.min_conns cannot exceed db.max_conns"))
		}
	case "memory":
	default:
		errs = append(errs, fmt.Errorf("storage must be postgres or memory, got %q", c.Storage))
	}

	switch c.Env {
	case "development", "production":
	default:
		errs = append(errs, fmt.Errorf("env must be development or production, got %q", c.Env))
	}

	if c.HTTP.Addr == "" {
		errs = append(errs, errors.New("http.addr is required"))
	}
	if c.Scheduler.Enabled {
		if c.Scheduler.Interval.Duration <= 0 {
			errs = append(errs, errors.New("scheduler.interval must be positive"))
		}
		if c.Scheduler.BatchSize <= 0 {
			errs = append(errs, errors.New("scheduler.batch_size must be positive"))
		}
	}
	if c.Bidding.RateLimit < 0 {
		errs = append(errs, errors.New("bidding.rate_limit cannot be negative"))
	}
	if c.Bidding.RateLimit > 0 && c.Bidding.RateWindow.Duration <= 0 {
		errs = append(errs, errors.New("bidding.rate_window must be positive when rate_limit is set"))
	}
	if c.Notify.Enabled {
		if c.Notify.Interval.Duration <= 0 {
			errs = append(errs, errors.New("notify.interval must be positive"))
		}
		if c.Notify.MaxAttempts <= 0 {
			errs = append(errs, errors.New("notify.max_attempts must be positive"))
		}
		if c.Notify.BatchSize <= 0 {
			errs = append(errs, errors.New("notify.batch_size must be positive"))
		}
	}
	if c.Notify.SMTP.Enabled() && c.Notify.SMTP.From == "" {
		errs = append(errs, errors.New("notify.smtp.from is required when smtp is configured"))
	}

	return errors.Join(errs...)
}
