// Package pushrelay assembles the push relay service: routing,
// middleware, metrics and server lifecycle.
package pushrelay

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/homecall/push-relay/internal/api"
	"github.com/homecall/push-relay/internal/metrics"
	"github.com/homecall/push-relay/internal/ratelimit"
	"github.com/homecall/push-relay/pkg/relay"
	"github.com/homecall/push-relay/pushrelay/config"
)

type Service struct {
	server *http.Server
	router chi.Router
	logger *slog.Logger
}

// New assembles the service. The parser and sender are interface-typed
// so tests (and future payload formats) can substitute their own.
func New(
	cfg *config.Config,
	limiter *ratelimit.Limiter,
	parser relay.PayloadParser,
	sender relay.Sender,
	logger *slog.Logger,
) *Service {
	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	pushAPI := api.NewPushAPI(limiter, parser, sender, m, logger)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(30 * time.Second))

	r.Post("/push/send", pushAPI.SendPush)
	r.Post("/rate_limits/check", pushAPI.CheckRateLimits)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	return &Service{
		server: &http.Server{
			Addr:              cfg.ListenAddr,
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
		},
		router: r,
		logger: logger,
	}
}

// Handler exposes the assembled router for in-process tests.
func (s *Service) Handler() http.Handler {
	return s.router
}

func (s *Service) Start() error {
	s.logger.Info("HTTP server starting", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Service) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down service...")
	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown failed.", "err", err)
		return err
	}
	s.logger.Info("Service shutdown complete.")
	return nil
}
