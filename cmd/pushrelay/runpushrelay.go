package main

import (
	"context"
	_ "embed"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/homecall/push-relay/internal/legacy"
	"github.com/homecall/push-relay/internal/platform/apns"
	"github.com/homecall/push-relay/internal/ratelimit"
	"github.com/homecall/push-relay/internal/storage/cache"
	"github.com/homecall/push-relay/pushrelay"
	"github.com/homecall/push-relay/pushrelay/config"
)

//go:embed local.yaml
var configFile []byte

func main() {
	var logLevel slog.Level
	switch os.Getenv("LOG_LEVEL") {
	case "debug", "DEBUG":
		logLevel = slog.LevelDebug
	case "warn", "WARN":
		logLevel = slog.LevelWarn
	case "error", "ERROR":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})).With("service", "push-relay")
	slog.SetDefault(logger)

	// Local development secrets; absence is fine in deployment.
	_ = godotenv.Load()

	// --- Config Loading ---
	var yamlCfg config.YamlConfig
	if err := yaml.Unmarshal(configFile, &yamlCfg); err != nil {
		logger.Error("Failed to unmarshal embedded yaml config", "err", err)
		os.Exit(1)
	}
	baseCfg, _ := config.NewConfigFromYaml(&yamlCfg, logger)
	cfg, err := config.UpdateConfigWithEnvOverrides(baseCfg, logger)
	if err != nil {
		logger.Error("Config failed", "err", err)
		os.Exit(1)
	}

	// --- Rate Limit Store ---
	var store ratelimit.CounterStore = cache.NewMemoryStore()
	if cfg.Redis.Enabled {
		logger.Info("Initializing Redis counter store...", "addr", cfg.Redis.Addr)
		redisStore, err := cache.NewRedisStore(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Error("Failed to connect to Redis", "err", err)
			os.Exit(1)
		}
		defer redisStore.Close()
		store = redisStore
		logger.Info("Counter store initialized", "type", "redis")
	} else {
		logger.Warn("Redis disabled; rate limit counters are process-local")
	}

	limiter := ratelimit.New(store, cfg.RateLimit.DailyMaximum, logger)

	// --- APNs Sender ---
	p8Key := cfg.APNS.P8KeyContent
	if p8Key == "" {
		raw, err := os.ReadFile(cfg.APNS.P8KeyPath)
		if err != nil {
			logger.Error("Failed to read APNs P8 key file", "path", cfg.APNS.P8KeyPath, "err", err)
			os.Exit(1)
		}
		p8Key = string(raw)
	}
	sender, err := apns.NewSender(apns.Config{
		KeyID:        cfg.APNS.KeyID,
		TeamID:       cfg.APNS.TeamID,
		P8KeyContent: p8Key,
		Development:  cfg.APNS.Development,
	}, logger)
	if err != nil {
		logger.Error("Failed to create APNs sender", "err", err)
		os.Exit(1)
	}

	// --- Service ---
	service := pushrelay.New(cfg, limiter, legacy.NewParser(), sender, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- service.Start() }()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("Service shutdown with error", "err", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := service.Shutdown(shutdownCtx); err != nil {
			os.Exit(1)
		}
	}
}
