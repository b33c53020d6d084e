package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	server "property_insights/internal/adapters/http_server"
	"property_insights/internal/adapters/observability"
	redisad "property_insights/internal/adapters/redis"
	"property_insights/internal/app"
	"property_insights/internal/domain"
	"property_insights/internal/shared"
	"property_insights/internal/storage/archive"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel, os.Stderr)

	// deps
	store := archive.New()
	var cache domain.Cache
	if cfg.RedisAddr != "" {
		rc := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		defer rc.Close()
		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := rc.Ping(pingCtx); err != nil {
			log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unreachable, summaries will not be cached")
		} else {
			cache = rc
			log.Info().Str("addr", cfg.RedisAddr).Msg("redis connection ok")
		}
		cancel()
	}
	b := app.NewBuildService(store, cache)
	q := app.NewQueryService(store, cache, cfg.CacheTTL)
	h := server.NewHandlers(b, q, cfg.ArchivePath, cfg.MaxBodyBytes, cfg.BuildWorkers)

	// http
	srv := server.New(60*time.Second, log.Logger)
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	limiter := rate.NewLimiter(rate.Limit(cfg.BuildRPS), int(cfg.BuildWorkers))
	srv.MountHandlers(h, server.RateLimit(limiter))

	log.Info().Str("addr", cfg.HTTPAddr).Str("archive", cfg.ArchivePath).Msg("API listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux(), ReadHeaderTimeout: 10 * time.Second}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("http shutdown failed")
		}
	}()

	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("http server failed")
	}
	log.Info().Msg("API stopped")
}
