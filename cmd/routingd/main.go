// Command routingd wires the dispatch core together: it loads
// EngineConfig, constructs an engine.Engine, and serves a /metrics
// endpoint for internal/metrics until a shutdown signal arrives. It
// is deliberately thin — the teacher's cmd/main.go wires an HTTP API
// server, WebSocket manager, and database; this binary wires only what
// the dispatch specification's own scope requires, since the wire/HTTP
// query protocol itself is out of scope (see SPEC_FULL.md §1).
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/osrm-go/routingd/internal/applog"
	"github.com/osrm-go/routingd/internal/config"
	"github.com/osrm-go/routingd/internal/engine"
)

func main() {
	applog.Initialize(getEnv("LOG_LEVEL", "info"), getEnv("LOG_PRETTY", "false") == "true")

	cfgPath := os.Getenv("CONFIG_FILE")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		applog.Log.Fatal().Err(err).Msg("failed to load engine configuration")
	}

	e, err := engine.New(cfg)
	if err != nil {
		applog.Log.Fatal().Err(err).Msg("failed to construct engine")
	}
	defer func() {
		if err := e.Close(); err != nil {
			applog.Log.Error().Err(err).Msg("error closing engine")
		}
	}()

	metricsPort := getEnv("METRICS_PORT", "9100")
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: ":" + metricsPort, Handler: mux}

	go func() {
		applog.Log.Info().Str("port", metricsPort).Msg("metrics server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			applog.Log.Fatal().Err(err).Msg("metrics server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	applog.Log.Info().Str("signal", sig.String()).Msg("received shutdown signal, starting graceful shutdown")

	shutdownTimeout := 10 * time.Second
	if v := os.Getenv("SHUTDOWN_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			shutdownTimeout = d
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		applog.Log.Error().Err(err).Msg("metrics server forced to shutdown")
	} else {
		applog.Log.Info().Msg("metrics server stopped gracefully")
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
