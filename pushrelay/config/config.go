// Package config holds the push relay's runtime configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
)

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

type APNSConfig struct {
	KeyID  string
	TeamID string
	// P8KeyPath points at the .p8 signing key on disk; P8KeyContent can
	// carry the key inline instead (useful for secret-manager injection).
	P8KeyPath    string
	P8KeyContent string
	Development  bool
}

type RateLimitConfig struct {
	// DailyMaximum caps successful sends per device token per UTC day.
	// Zero means the limiter's built-in default.
	DailyMaximum int
}

// Config defines the *single*, authoritative configuration.
type Config struct {
	ListenAddr string

	Redis     RedisConfig
	APNS      APNSConfig
	RateLimit RateLimitConfig
}

// UpdateConfigWithEnvOverrides applies environment variables and final validation.
func UpdateConfigWithEnvOverrides(cfg *Config, logger *slog.Logger) (*Config, error) {
	logger.Debug("Applying environment variable overrides...")

	if val := os.Getenv("PORT"); val != "" {
		logger.Debug("Overriding config value", "key", "PORT", "source", "env")
		cfg.ListenAddr = ":" + val
	}

	// Redis Overrides
	if val := os.Getenv("REDIS_ADDR"); val != "" {
		cfg.Redis.Addr = val
		cfg.Redis.Enabled = true
	}
	if val := os.Getenv("REDIS_PASSWORD"); val != "" {
		cfg.Redis.Password = val
	}
	if val := os.Getenv("REDIS_DB"); val != "" {
		if db, err := strconv.Atoi(val); err == nil {
			cfg.Redis.DB = db
		}
	}
	if val := os.Getenv("REDIS_ENABLED"); val != "" {
		enabled, _ := strconv.ParseBool(val)
		cfg.Redis.Enabled = enabled
	}

	// APNs Overrides
	if val := os.Getenv("APNS_KEY_ID"); val != "" {
		logger.Debug("Overriding config value", "key", "APNS_KEY_ID", "source", "env")
		cfg.APNS.KeyID = val
	}
	if val := os.Getenv("APNS_TEAM_ID"); val != "" {
		logger.Debug("Overriding config value", "key", "APNS_TEAM_ID", "source", "env")
		cfg.APNS.TeamID = val
	}
	if val := os.Getenv("APNS_P8_KEY"); val != "" {
		logger.Debug("Overriding config value", "key", "APNS_P8_KEY", "source", "env")
		cfg.APNS.P8KeyContent = val
	}
	if val := os.Getenv("APNS_P8_KEY_PATH"); val != "" {
		logger.Debug("Overriding config value", "key", "APNS_P8_KEY_PATH", "source", "env")
		cfg.APNS.P8KeyPath = val
	}
	if val := os.Getenv("APNS_DEVELOPMENT"); val != "" {
		development, _ := strconv.ParseBool(val)
		cfg.APNS.Development = development
	}

	// Rate Limit Overrides
	if val := os.Getenv("RATE_LIMIT_DAILY_MAXIMUM"); val != "" {
		if maximum, err := strconv.Atoi(val); err == nil && maximum > 0 {
			logger.Debug("Overriding config value", "key", "RATE_LIMIT_DAILY_MAXIMUM", "source", "env")
			cfg.RateLimit.DailyMaximum = maximum
		}
	}

	// Final Validation
	if cfg.APNS.KeyID == "" {
		return nil, fmt.Errorf("apns key_id is required (set via YAML or APNS_KEY_ID env var)")
	}
	if cfg.APNS.TeamID == "" {
		return nil, fmt.Errorf("apns team_id is required (set via YAML or APNS_TEAM_ID env var)")
	}
	if cfg.APNS.P8KeyContent == "" && cfg.APNS.P8KeyPath == "" {
		return nil, fmt.Errorf("apns signing key is required (set p8_key_path in YAML or APNS_P8_KEY env var)")
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}

	logger.Debug("Configuration finalized and validated successfully")
	return cfg, nil
}
