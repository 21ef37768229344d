package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// LiveConfirmationPhrase must be set in mode.live_confirmation to run without --paper.
const LiveConfirmationPhrase = "CONFIRMO"

// ErrLiveBlocked is returned by CheckLive when live operation is not confirmed.
var ErrLiveBlocked = errors.New("LIVE blocked: use --paper or set mode.live_enabled=true and mode.live_confirmation=CONFIRMO")

// Config represents the complete application configuration
type Config struct {
	Mode     ModeConfig     `mapstructure:"mode"`
	Risk     RiskConfig     `mapstructure:"risk"`
	Runtime  RuntimeConfig  `mapstructure:"runtime"`
	Market   MarketConfig   `mapstructure:"market"`
	Data     DataConfig     `mapstructure:"data"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// ModeConfig holds the live-trading gate
type ModeConfig struct {
	LiveEnabled      bool   `mapstructure:"live_enabled"`
	LiveConfirmation string `mapstructure:"live_confirmation"`
}

// RiskConfig holds safety guard and signal limits
type RiskConfig struct {
	MaxSize            float64 `mapstructure:"max_size"`
	CooldownSeconds    int     `mapstructure:"cooldown_seconds"`
	MaxTradesPerRound  int     `mapstructure:"max_trades_per_round"`
	MinEdgeProbability float64 `mapstructure:"min_edge_probability"`
	UnitSize           float64 `mapstructure:"unit_size"`
}

// RuntimeConfig holds loop cadence settings
type RuntimeConfig struct {
	LoopSeconds        int           `mapstructure:"loop_seconds"`
	HeartbeatSeconds   int           `mapstructure:"heartbeat_seconds"`
	MaxBackoffSeconds  int           `mapstructure:"max_backoff_seconds"`
	BaseBackoffSeconds int           `mapstructure:"base_backoff_seconds"`
	RequestTimeout     time.Duration `mapstructure:"request_timeout"`
}

// MarketConfig holds the prioritized upstream endpoints
type MarketConfig struct {
	Symbol        string   `mapstructure:"symbol"`
	DiscoveryURLs []string `mapstructure:"discovery_urls"`
	ReferenceURLs []string `mapstructure:"reference_urls"`
}

// DataConfig holds ledger and status file locations
type DataConfig struct {
	Driver     string `mapstructure:"driver"`
	DBPath     string `mapstructure:"db_path"`
	DSN        string `mapstructure:"dsn"`
	StatusPath string `mapstructure:"status_path"`
	LogPath    string `mapstructure:"log_path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
}

// MetricsConfig holds the Prometheus endpoint settings
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// TelegramConfig holds Telegram alert configuration
type TelegramConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	BotToken       string        `mapstructure:"bot_token"`
	ChatID         string        `mapstructure:"chat_id"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// RedisConfig holds the optional status mirror settings
type RedisConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	StatusKey string `mapstructure:"status_key"`
}

// Load reads configuration from file and environment variables.
// A missing file is not an error: defaults and the environment still apply.
func Load(path string) (*Config, error) {
	// Pick up a .env next to the config file
	envPath := filepath.Join(filepath.Dir(path), ".env")
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", envPath, err)
		}
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	setDefaults(v)

	// Enable environment variable override
	v.SetEnvPrefix("BOTIA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("runtime.loop_seconds", "BOTIA_LOOP_SECONDS", "BOTIA_RUNTIME_LOOP_SECONDS"); err != nil {
		return nil, fmt.Errorf("failed to bind env: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
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

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	v.SetDefault("mode.live_enabled", false)
	v.SetDefault("mode.live_confirmation", "")

	v.SetDefault("risk.max_size", 50.0)
	v.SetDefault("risk.cooldown_seconds", 10)
	v.SetDefault("risk.max_trades_per_round", 1)
	v.SetDefault("risk.min_edge_probability", 0.62)
	v.SetDefault("risk.unit_size", 10.0)

	v.SetDefault("runtime.loop_seconds", 5)
	v.SetDefault("runtime.heartbeat_seconds", 30)
	v.SetDefault("runtime.max_backoff_seconds", 60)
	v.SetDefault("runtime.base_backoff_seconds", 1)
	v.SetDefault("runtime.request_timeout", "8s")

	v.SetDefault("market.symbol", "BTC")
	v.SetDefault("market.discovery_urls", []string{
		"https://gamma-api.polymarket.com/markets?active=true&closed=false&limit=200",
	})
	v.SetDefault("market.reference_urls", []string{
		"https://api.binance.com/api/v3/ticker/price?symbol=BTCUSDT",
		"https://api.coinbase.com/v2/prices/BTC-USD/spot",
	})

	v.SetDefault("data.driver", "sqlite")
	v.SetDefault("data.db_path", "data/botia5m.sqlite")
	v.SetDefault("data.dsn", "")
	v.SetDefault("data.status_path", "STATUS.md")
	v.SetDefault("data.log_path", "logs/botia5m.log")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.max_size_mb", 1)
	v.SetDefault("logging.max_backups", 3)

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.addr", ":9108")

	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.chat_id", "")
	v.SetDefault("telegram.max_retries", 3)
	v.SetDefault("telegram.retry_delay_base", "1s")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.status_key", "botia5m:status")
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	// Risk
	if c.Risk.MaxSize <= 0 {
		return fmt.Errorf("risk.max_size must be positive")
	}
	if c.Risk.CooldownSeconds < 0 {
		return fmt.Errorf("risk.cooldown_seconds must not be negative")
	}
	if c.Risk.MaxTradesPerRound < 0 {
		return fmt.Errorf("risk.max_trades_per_round must not be negative")
	}
	if c.Risk.MinEdgeProbability <= 0.5 || c.Risk.MinEdgeProbability > 1.0 {
		return fmt.Errorf("risk.min_edge_probability must be in (0.5, 1.0]")
	}
	if c.Risk.UnitSize <= 0 {
		return fmt.Errorf("risk.unit_size must be positive")
	}

	// Runtime
	if c.Runtime.LoopSeconds < 0 {
		return fmt.Errorf("runtime.loop_seconds must not be negative")
	}
	if c.Runtime.HeartbeatSeconds < 0 {
		return fmt.Errorf("runtime.heartbeat_seconds must not be negative")
	}
	if c.Runtime.BaseBackoffSeconds < 1 {
		return fmt.Errorf("runtime.base_backoff_seconds must be at least 1")
	}
	if c.Runtime.MaxBackoffSeconds < c.Runtime.BaseBackoffSeconds {
		return fmt.Errorf("runtime.max_backoff_seconds must be >= runtime.base_backoff_seconds")
	}
	if c.Runtime.RequestTimeout <= 0 {
		return fmt.Errorf("runtime.request_timeout must be positive")
	}

	// Market
	if c.Market.Symbol == "" {
		return fmt.Errorf("market.symbol is required")
	}

	// Data
	switch c.Data.Driver {
	case "sqlite":
		if c.Data.DBPath == "" {
			return fmt.Errorf("data.db_path is required for the sqlite driver")
		}
	case "postgres":
		if c.Data.DSN == "" {
			return fmt.Errorf("data.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("data.driver must be one of: sqlite, postgres")
	}
	if c.Data.StatusPath == "" {
		return fmt.Errorf("data.status_path is required")
	}

	// Logging
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	// Telegram
	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}

	// Redis
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required when redis is enabled")
	}

	return nil
}

// CheckLive gates non-paper runs behind an explicit confirmation.
func (c *Config) CheckLive(paper bool) error {
	if paper {
		return nil
	}
	if !c.Mode.LiveEnabled || c.Mode.LiveConfirmation != LiveConfirmationPhrase {
		return ErrLiveBlocked
	}
	return nil
}

// ModeLabel returns the label reported in the status snapshot.
func (c *Config) ModeLabel(paper bool) string {
	if paper {
		return "paper"
	}
	return "live"
}

// LoopInterval returns runtime.loop_seconds as a duration.
func (c *Config) LoopInterval() time.Duration {
	return time.Duration(c.Runtime.LoopSeconds) * time.Second
}

// HeartbeatInterval returns runtime.heartbeat_seconds as a duration.
func (c *Config) HeartbeatInterval() time.Duration {
	return time.Duration(c.Runtime.HeartbeatSeconds) * time.Second
}

// BackoffBounds returns the base and maximum degraded backoff.
func (c *Config) BackoffBounds() (base, ceiling time.Duration) {
	return time.Duration(c.Runtime.BaseBackoffSeconds) * time.Second,
		time.Duration(c.Runtime.MaxBackoffSeconds) * time.Second
}

// Cooldown returns risk.cooldown_seconds as a duration.
func (c *Config) Cooldown() time.Duration {
	return time.Duration(c.Risk.CooldownSeconds) * time.Second
}

// LedgerSource returns the file path or DSN handed to the ledger driver.
func (c *Config) LedgerSource() string {
	if c.Data.Driver == "postgres" {
		return c.Data.DSN
	}
	return c.Data.DBPath
}
