// Package config loads gescout configuration from YAML, .env files and the
// environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rewired-gh/gescout/internal/pipeline"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. GESCOUT_FEED_BASE_URL.
const EnvPrefix = "GESCOUT"

// Config represents the complete application configuration
type Config struct {
	Feed      FeedConfig      `mapstructure:"feed"`
	Filter    FilterConfig    `mapstructure:"filter"`
	Analytics AnalyticsConfig `mapstructure:"analytics"`
	Alerts    AlertsConfig    `mapstructure:"alerts"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// FeedConfig holds price API configuration
type FeedConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	UserAgent    string        `mapstructure:"user_agent"`
	Retries      int           `mapstructure:"retries"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	MappingTTL   time.Duration `mapstructure:"mapping_ttl"`
	HourlyTTL    time.Duration `mapstructure:"hourly_ttl"`
}

// FilterConfig selects the filtering mode and custom thresholds
type FilterConfig struct {
	Mode          string              `mapstructure:"mode"`
	ShowAll       bool                `mapstructure:"show_all"`
	Thresholds    pipeline.Thresholds `mapstructure:"thresholds"`
	Exclusions    []string            `mapstructure:"exclusions"`
	BuyLimitsFile string              `mapstructure:"buy_limits_file"`
}

// AnalyticsConfig holds memoization windows
type AnalyticsConfig struct {
	ManipulationTTL  time.Duration `mapstructure:"manipulation_ttl"`
	VolatilityTTL    time.Duration `mapstructure:"volatility_ttl"`
	CapitalAtRiskTTL time.Duration `mapstructure:"capital_at_risk_ttl"`
}

// AlertsConfig holds alert dispatch and batching configuration
type AlertsConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	WebhookURL       string        `mapstructure:"webhook_url"`
	Cooldown         time.Duration `mapstructure:"cooldown"`
	Timeout          time.Duration `mapstructure:"timeout"`
	MaxResults       int           `mapstructure:"max_results"`
	MaxPerCycle      int           `mapstructure:"max_per_cycle"`
	MarginMultiplier float64       `mapstructure:"margin_multiplier"`
}

// TelegramConfig holds Telegram notification configuration
type TelegramConfig struct {
	BotToken       string        `mapstructure:"bot_token"`
	ChatID         string        `mapstructure:"chat_id"`
	Enabled        bool          `mapstructure:"enabled"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// StorageConfig sizes the in-memory run and alert log
type StorageConfig struct {
	MaxRows int `mapstructure:"max_rows"`
}

// ServerConfig holds the JSON API configuration
type ServerConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from path, when given, and the environment.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("feed.base_url", "https://prices.runescape.wiki/api/v1/osrs")
	v.SetDefault("feed.user_agent", "gescout - GE flip scanner")
	v.SetDefault("feed.retries", 2)
	v.SetDefault("feed.poll_interval", "5m")
	v.SetDefault("feed.mapping_ttl", "60m")
	v.SetDefault("feed.hourly_ttl", "5m")

	custom := pipeline.Presets[pipeline.ModeCustom]
	v.SetDefault("filter.mode", string(pipeline.ModeCustom))
	v.SetDefault("filter.show_all", false)
	v.SetDefault("filter.thresholds.min_margin", custom.MinMargin)
	v.SetDefault("filter.thresholds.min_volume", custom.MinVolume)
	v.SetDefault("filter.thresholds.min_utility", custom.MinUtility)
	v.SetDefault("filter.thresholds.season_threshold", custom.SeasonThreshold)
	v.SetDefault("filter.thresholds.manipulation_threshold", custom.ManipulationThreshold)
	v.SetDefault("filter.thresholds.volatility_threshold", custom.VolatilityThreshold)
	v.SetDefault("filter.exclusions", []string{})
	v.SetDefault("filter.buy_limits_file", "")

	v.SetDefault("analytics.manipulation_ttl", "5m")
	v.SetDefault("analytics.volatility_ttl", "5m")
	v.SetDefault("analytics.capital_at_risk_ttl", "5m")

	v.SetDefault("alerts.enabled", false)
	v.SetDefault("alerts.webhook_url", "")
	v.SetDefault("alerts.cooldown", "180s")
	v.SetDefault("alerts.timeout", "5s")
	v.SetDefault("alerts.max_results", 5)
	v.SetDefault("alerts.max_per_cycle", 3)
	v.SetDefault("alerts.margin_multiplier", 2.0)

	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.chat_id", "")
	v.SetDefault("telegram.max_retries", 3)
	v.SetDefault("telegram.retry_delay_base", "1s")

	v.SetDefault("storage.max_rows", 1000)

	v.SetDefault("server.enabled", true)
	v.SetDefault("server.addr", ":8080")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	if c.Feed.BaseURL == "" {
		return fmt.Errorf("feed.base_url is required")
	}
	if c.Feed.Retries < 0 {
		return fmt.Errorf("feed.retries must not be negative")
	}
	if c.Feed.PollInterval < 30*time.Second {
		return fmt.Errorf("feed.poll_interval must be at least 30 seconds")
	}
	if c.Feed.MappingTTL <= 0 || c.Feed.HourlyTTL <= 0 {
		return fmt.Errorf("feed.mapping_ttl and feed.hourly_ttl must be positive")
	}

	if _, err := pipeline.ParseMode(c.Filter.Mode); err != nil {
		return fmt.Errorf("filter.mode: %w", err)
	}
	t := c.Filter.Thresholds
	if t.MinVolume < 0 || t.MinUtility < 0 || t.SeasonThreshold < 0 {
		return fmt.Errorf("filter.thresholds must not be negative")
	}
	if t.ManipulationThreshold < 0 || t.ManipulationThreshold > 10 {
		return fmt.Errorf("filter.thresholds.manipulation_threshold must be between 0 and 10")
	}
	if t.VolatilityThreshold < 0 || t.VolatilityThreshold > 10 {
		return fmt.Errorf("filter.thresholds.volatility_threshold must be between 0 and 10")
	}

	if c.Analytics.ManipulationTTL <= 0 || c.Analytics.VolatilityTTL <= 0 || c.Analytics.CapitalAtRiskTTL <= 0 {
		return fmt.Errorf("analytics TTLs must be positive")
	}

	if c.Alerts.Enabled && c.Alerts.WebhookURL == "" && !c.Telegram.Enabled {
		return fmt.Errorf("alerts.webhook_url or telegram is required when alerts are enabled")
	}
	if c.Alerts.Cooldown <= 0 {
		return fmt.Errorf("alerts.cooldown must be positive")
	}
	if c.Alerts.Timeout <= 0 {
		return fmt.Errorf("alerts.timeout must be positive")
	}
	if c.Alerts.MaxResults < 1 || c.Alerts.MaxPerCycle < 1 {
		return fmt.Errorf("alerts.max_results and alerts.max_per_cycle must be at least 1")
	}
	if c.Alerts.MarginMultiplier < 0 {
		return fmt.Errorf("alerts.margin_multiplier must not be negative")
	}

	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}

	if c.Storage.MaxRows < 1 {
		return fmt.Errorf("storage.max_rows must be at least 1")
	}
	if c.Server.Enabled && c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required when the server is enabled")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}

// Mode returns the parsed filter mode. Call after Validate.
func (c *Config) Mode() pipeline.Mode {
	mode, err := pipeline.ParseMode(c.Filter.Mode)
	if err != nil {
		return pipeline.ModeCustom
	}
	return mode
}
