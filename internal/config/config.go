// Package config loads bot configuration from a YAML file with environment
// variable overrides.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/yairigal/train-coupon-bot/internal/logger"
	"github.com/yairigal/train-coupon-bot/internal/storage"
)

// TelegramConfig holds Telegram bot related settings.
type TelegramConfig struct {
	Token   string  `yaml:"token" envconfig:"BOT_TOKEN"`
	Admins  []int64 `yaml:"admins" envconfig:"TELEGRAM_ADMINS"`
	RunMode string  `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	// LongPollTimeoutSeconds defines long polling timeout; 0 -> default
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
	// BroadcastDelayMS is the pause between broadcast sends; 0 -> default 100ms.
	BroadcastDelayMS int `yaml:"broadcast_delay_ms" envconfig:"TELEGRAM_BROADCAST_DELAY_MS"`
}

// WebhookConfig specifies webhook settings.
type WebhookConfig struct {
	URL    string `yaml:"url" envconfig:"WEBHOOK_URL"`
	Listen string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port   int    `yaml:"port" envconfig:"WEBHOOK_PORT"`
}

// RailConfig holds the remote schedule and reservation endpoint settings.
type RailConfig struct {
	ScheduleURL    string `yaml:"schedule_url" envconfig:"RAIL_SCHEDULE_URL"`
	ReservationURL string `yaml:"reservation_url" envconfig:"RAIL_RESERVATION_URL"`
	TimeoutSeconds int    `yaml:"timeout_seconds" envconfig:"RAIL_TIMEOUT_SECONDS"`
	Proxy          string `yaml:"proxy" envconfig:"RAIL_PROXY"`
}

const (
	// RunModeWebhook selects webhook mode for Telegram updates.
	RunModeWebhook = "webhook"
	// RunModeLongpoll selects long-polling mode for Telegram updates.
	RunModeLongpoll = "longpoll"
)

// RateLimitConfig holds settings for per-user rate limiting.
type RateLimitConfig struct {
	IntervalMS int `yaml:"interval_ms" envconfig:"RATE_LIMIT_INTERVAL_MS"`
}

// Config aggregates all bot configuration.
type Config struct {
	Telegram  TelegramConfig  `yaml:"telegram"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Rail      RailConfig      `yaml:"rail"`
	Database  storage.Config  `yaml:"database"`
	Logging   logger.Config   `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

const (
	defaultScheduleURL    = "https://www.rail.co.il/apiinfo/api/Plan/GetRoutes"
	defaultReservationURL = "https://www.rail.co.il/taarif//_layouts/15/SolBox.Rail.FastSale/ReservedPlaceHandler.ashx"
)

// Load reads configuration from a YAML file and environment variables.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize performs basic validation of required configuration fields and adjusts defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	if cfg.Telegram.Token == "" {
		return fmt.Errorf("telegram token is required")
	}

	rm := strings.ToLower(strings.TrimSpace(cfg.Telegram.RunMode))
	if rm == "" {
		rm = RunModeLongpoll
	}
	if rm == "polling" { // accept alias
		rm = RunModeLongpoll
	}
	switch rm {
	case RunModeWebhook:
		if strings.TrimSpace(cfg.Webhook.URL) == "" {
			return fmt.Errorf("webhook.url is required when telegram.run_mode is 'webhook'")
		}
		if strings.TrimSpace(cfg.Webhook.Listen) == "" {
			return fmt.Errorf("webhook.listen is required when telegram.run_mode is 'webhook'")
		}
		if cfg.Webhook.Port <= 0 {
			return fmt.Errorf("webhook.port must be > 0 when telegram.run_mode is 'webhook'")
		}
	case RunModeLongpoll:
		if cfg.Telegram.LongPollTimeoutSeconds < 0 {
			return fmt.Errorf("telegram.longpoll_timeout_seconds must be >= 0")
		}
	default:
		return fmt.Errorf("invalid telegram.run_mode %q; allowed: webhook, longpoll", cfg.Telegram.RunMode)
	}
	cfg.Telegram.RunMode = rm

	if cfg.Telegram.BroadcastDelayMS < 0 {
		return fmt.Errorf("telegram.broadcast_delay_ms must be >= 0")
	}

	if strings.TrimSpace(cfg.Rail.ScheduleURL) == "" {
		cfg.Rail.ScheduleURL = defaultScheduleURL
	}
	if strings.TrimSpace(cfg.Rail.ReservationURL) == "" {
		cfg.Rail.ReservationURL = defaultReservationURL
	}
	if cfg.Rail.TimeoutSeconds < 0 {
		return fmt.Errorf("rail.timeout_seconds must be >= 0")
	}

	if cfg.RateLimit.IntervalMS < 0 {
		return fmt.Errorf("rate_limit.interval_ms must be >= 0")
	}

	return nil
}

// IsAdmin reports whether the given Telegram user id is in the admin allow-list.
func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.Telegram.Admins {
		if id == userID {
			return true
		}
	}
	return false
}
