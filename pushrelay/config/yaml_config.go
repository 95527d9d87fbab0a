package config

import (
	"log/slog"
)

type YamlRedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Enabled  bool   `yaml:"enabled"`
}

type YamlAPNSConfig struct {
	KeyID       string `yaml:"key_id"`
	TeamID      string `yaml:"team_id"`
	P8KeyPath   string `yaml:"p8_key_path"`
	Development bool   `yaml:"development"`
}

type YamlRateLimitConfig struct {
	DailyMaximum int `yaml:"daily_maximum"`
}

// YamlConfig is the structure that mirrors the raw config.yaml file.
type YamlConfig struct {
	ListenAddr      string              `yaml:"listen_addr"`
	RedisConfig     YamlRedisConfig     `yaml:"redis"`
	APNSConfig      YamlAPNSConfig      `yaml:"apns"`
	RateLimitConfig YamlRateLimitConfig `yaml:"rate_limit"`
}

// NewConfigFromYaml converts the YamlConfig into a clean, base Config struct.
func NewConfigFromYaml(baseCfg *YamlConfig, logger *slog.Logger) (*Config, error) {
	logger.Debug("Mapping YAML config to base config struct")

	cfg := &Config{
		ListenAddr: baseCfg.ListenAddr,
		Redis: RedisConfig{
			Addr:     baseCfg.RedisConfig.Addr,
			Password: baseCfg.RedisConfig.Password,
			DB:       baseCfg.RedisConfig.DB,
			Enabled:  baseCfg.RedisConfig.Enabled,
		},
		APNS: APNSConfig{
			KeyID:       baseCfg.APNSConfig.KeyID,
			TeamID:      baseCfg.APNSConfig.TeamID,
			P8KeyPath:   baseCfg.APNSConfig.P8KeyPath,
			Development: baseCfg.APNSConfig.Development,
		},
		RateLimit: RateLimitConfig{
			DailyMaximum: baseCfg.RateLimitConfig.DailyMaximum,
		},
	}

	logger.Debug("YAML config mapping complete",
		"listen_addr", cfg.ListenAddr,
		"redis_enabled", cfg.Redis.Enabled,
	)

	return cfg, nil
}
