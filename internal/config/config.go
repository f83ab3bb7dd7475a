// Package config loads service configuration from an optional TOML file
// overlaid with environment variables. Environment variables win.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/tonbound/sbtid-verifier/internal/ton"
)

// Config holds all configuration for the service
type Config struct {
	Server    ServerConfig    `toml:"server"`
	TON       TONConfig       `toml:"ton"`
	Verify    VerifyConfig    `toml:"verify"`
	Telegram  TelegramConfig  `toml:"telegram"`
	Logging   LoggingConfig   `toml:"logging"`
	RateLimit RateLimitConfig `toml:"rate_limit"`
	Metrics   MetricsConfig   `toml:"metrics"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         int    `toml:"port"`
	Host         string `toml:"host"`
	ReadTimeout  int    `toml:"read_timeout"`  // seconds
	WriteTimeout int    `toml:"write_timeout"` // seconds
	IdleTimeout  int    `toml:"idle_timeout"`  // seconds
}

// TONConfig holds blockchain indexer settings
type TONConfig struct {
	Endpoint          string `toml:"endpoint"`
	APIKey            string `toml:"api_key"`
	CollectionAddress string `toml:"collection_address"`
	CallTimeout       int    `toml:"call_timeout"` // seconds
	RequestsPerSecond int    `toml:"requests_per_second"`
	RequestBurst      int    `toml:"request_burst"`
	SeqnoTTL          int    `toml:"seqno_ttl"` // seconds
}

// VerifyConfig holds the retry policy for payment checks
type VerifyConfig struct {
	MaxAttempts   int `toml:"max_attempts"`
	BackoffBaseMS int `toml:"backoff_base_ms"`
	BackoffCapMS  int `toml:"backoff_cap_ms"`
}

// TelegramConfig holds bot transport settings
type TelegramConfig struct {
	BotToken      string `toml:"bot_token"`
	PaymentAppURL string `toml:"payment_app_url"`
	CheckTimeout  int    `toml:"check_timeout"` // seconds
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "text" or "json"
}

// RateLimitConfig holds HTTP rate limiting settings
type RateLimitConfig struct {
	Enabled        bool `toml:"enabled"`
	RequestsPerMin int  `toml:"requests_per_min"`
	BurstSize      int  `toml:"burst_size"`
	CleanupMinutes int  `toml:"cleanup_minutes"`
}

// MetricsConfig holds Prometheus settings
type MetricsConfig struct {
	Enabled bool `toml:"enabled"`
}

// Load builds the configuration in three layers: built-in defaults, then
// the TOML file named by CONFIG_FILE (or ./sbtid.toml when present), then
// environment variables.
func Load() (*Config, error) {
	cfg := defaults()

	path := getEnv("CONFIG_FILE", "")
	if path == "" {
		if _, err := os.Stat("sbtid.toml"); err == nil {
			path = "sbtid.toml"
		}
	}
	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	cfg.Server.Port = getEnvInt("PORT", cfg.Server.Port)
	cfg.Server.Host = getEnv("HOST", cfg.Server.Host)
	cfg.Server.ReadTimeout = getEnvInt("SERVER_READ_TIMEOUT", cfg.Server.ReadTimeout)
	cfg.Server.WriteTimeout = getEnvInt("SERVER_WRITE_TIMEOUT", cfg.Server.WriteTimeout)
	cfg.Server.IdleTimeout = getEnvInt("SERVER_IDLE_TIMEOUT", cfg.Server.IdleTimeout)

	cfg.TON.Endpoint = getEnv("TONCENTER_ENDPOINT", cfg.TON.Endpoint)
	cfg.TON.APIKey = getEnv("TONCENTER_API_KEY", cfg.TON.APIKey)
	cfg.TON.CollectionAddress = getEnv("COLLECTION_ADDRESS", cfg.TON.CollectionAddress)
	cfg.TON.CallTimeout = getEnvInt("TONCENTER_CALL_TIMEOUT", cfg.TON.CallTimeout)
	cfg.TON.RequestsPerSecond = getEnvInt("TONCENTER_RPS", cfg.TON.RequestsPerSecond)
	cfg.TON.RequestBurst = getEnvInt("TONCENTER_BURST", cfg.TON.RequestBurst)
	cfg.TON.SeqnoTTL = getEnvInt("TONCENTER_SEQNO_TTL", cfg.TON.SeqnoTTL)

	cfg.Verify.MaxAttempts = getEnvInt("VERIFY_MAX_ATTEMPTS", cfg.Verify.MaxAttempts)
	cfg.Verify.BackoffBaseMS = getEnvInt("VERIFY_BACKOFF_BASE_MS", cfg.Verify.BackoffBaseMS)
	cfg.Verify.BackoffCapMS = getEnvInt("VERIFY_BACKOFF_CAP_MS", cfg.Verify.BackoffCapMS)

	cfg.Telegram.BotToken = getEnv("BOT_TOKEN", cfg.Telegram.BotToken)
	cfg.Telegram.PaymentAppURL = getEnv("PAYMENT_APP_URL", cfg.Telegram.PaymentAppURL)
	cfg.Telegram.CheckTimeout = getEnvInt("TELEGRAM_CHECK_TIMEOUT", cfg.Telegram.CheckTimeout)

	cfg.Logging.Level = getEnv("LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Format = getEnv("LOG_FORMAT", cfg.Logging.Format)

	cfg.RateLimit.Enabled = getEnvBool("RATE_LIMIT_ENABLED", cfg.RateLimit.Enabled)
	cfg.RateLimit.RequestsPerMin = getEnvInt("RATE_LIMIT_RPM", cfg.RateLimit.RequestsPerMin)
	cfg.RateLimit.BurstSize = getEnvInt("RATE_LIMIT_BURST", cfg.RateLimit.BurstSize)
	cfg.RateLimit.CleanupMinutes = getEnvInt("RATE_LIMIT_CLEANUP_MINUTES", cfg.RateLimit.CleanupMinutes)

	cfg.Metrics.Enabled = getEnvBool("METRICS_ENABLED", cfg.Metrics.Enabled)

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         8080,
			Host:         "0.0.0.0",
			ReadTimeout:  30,
			WriteTimeout: 60,
			IdleTimeout:  120,
		},
		TON: TONConfig{
			Endpoint:          "https://toncenter.com/api/v2",
			CallTimeout:       10,
			RequestsPerSecond: 9,
			RequestBurst:      3,
			SeqnoTTL:          60,
		},
		Verify: VerifyConfig{
			MaxAttempts:   3,
			BackoffBaseMS: 250,
			BackoffCapMS:  2000,
		},
		Telegram: TelegramConfig{
			CheckTimeout: 30,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		RateLimit: RateLimitConfig{
			Enabled:        true,
			RequestsPerMin: 300,
			BurstSize:      50,
			CleanupMinutes: 10,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Validate checks the settings every run mode needs. Bot-only settings
// are checked by the commands that use them.
func (c *Config) Validate() error {
	if c.TON.Endpoint == "" {
		return fmt.Errorf("TONCENTER_ENDPOINT is required")
	}
	if c.TON.CollectionAddress == "" {
		return fmt.Errorf("COLLECTION_ADDRESS is required")
	}
	if _, err := ton.ParseAddress(c.TON.CollectionAddress); err != nil {
		return fmt.Errorf("COLLECTION_ADDRESS: %w", err)
	}
	if c.Verify.MaxAttempts < 1 {
		return fmt.Errorf("VERIFY_MAX_ATTEMPTS must be at least 1")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}
