package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homecall/push-relay/pushrelay/config"
)

func TestNewConfigFromYaml(t *testing.T) {
	logger := newTestLogger()

	t.Run("Success - maps all fields correctly", func(t *testing.T) {
		yamlCfg := &config.YamlConfig{
			ListenAddr: ":9000",
			RedisConfig: config.YamlRedisConfig{
				Addr:     "redis:6379",
				Password: "hunter2",
				DB:       2,
				Enabled:  true,
			},
			APNSConfig: config.YamlAPNSConfig{
				KeyID:       "yaml-key",
				TeamID:      "yaml-team",
				P8KeyPath:   "/secrets/apns.p8",
				Development: true,
			},
			RateLimitConfig: config.YamlRateLimitConfig{
				DailyMaximum: 200,
			},
		}

		cfg, err := config.NewConfigFromYaml(yamlCfg, logger)

		require.NoError(t, err)
		require.NotNil(t, cfg)

		assert.Equal(t, ":9000", cfg.ListenAddr)

		assert.True(t, cfg.Redis.Enabled)
		assert.Equal(t, "redis:6379", cfg.Redis.Addr)
		assert.Equal(t, "hunter2", cfg.Redis.Password)
		assert.Equal(t, 2, cfg.Redis.DB)

		assert.Equal(t, "yaml-key", cfg.APNS.KeyID)
		assert.Equal(t, "yaml-team", cfg.APNS.TeamID)
		assert.Equal(t, "/secrets/apns.p8", cfg.APNS.P8KeyPath)
		assert.True(t, cfg.APNS.Development)

		assert.Equal(t, 200, cfg.RateLimit.DailyMaximum)
	})

	t.Run("Success - Handles missing optional fields gracefully", func(t *testing.T) {
		yamlCfg := &config.YamlConfig{
			APNSConfig: config.YamlAPNSConfig{
				KeyID:  "minimal-key",
				TeamID: "minimal-team",
			},
		}

		cfg, err := config.NewConfigFromYaml(yamlCfg, logger)

		require.NoError(t, err)
		assert.Equal(t, "minimal-key", cfg.APNS.KeyID)
		assert.Empty(t, cfg.ListenAddr)
		assert.False(t, cfg.Redis.Enabled)
		assert.Equal(t, 0, cfg.RateLimit.DailyMaximum)
	})
}
