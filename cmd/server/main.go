// Service server is the measurement API: it authenticates device
// batches by API key, stores them in PostgreSQL, and serves latest and
// series queries over the store.
//
//	@title			sensord API
//	@version		1.0
//	@description	Sensor measurement ingest and query service.
//	@host			localhost:8080
//	@BasePath		/
package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/sensord/sensord/internal/api"
	"github.com/sensord/sensord/internal/config"
	"github.com/sensord/sensord/internal/db"
	"github.com/sensord/sensord/internal/devcache"
	"github.com/sensord/sensord/internal/events"
	"github.com/sensord/sensord/internal/models"

	_ "github.com/sensord/sensord/docs/swagger" // generated swagger docs
)

const (
	serviceName = "sensord"
	version     = "1.0.0"
)

func main() {
	cfg := config.LoadServer()
	setupLogging(cfg)

	connCtx, connCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer connCancel()

	pool, err := db.Connect(connCtx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if cfg.MigrationsDir != "" {
		if err := db.Migrate(cfg.DatabaseURL, cfg.MigrationsDir); err != nil {
			slog.Error("migrations failed", "error", err)
			os.Exit(1)
		}
	}

	// Detect the timestamp representation once, before traffic.
	tc := api.DetectTimestampConfig(connCtx, pool)

	var cache api.KeyCache
	if cfg.RedisURL != "" {
		c, err := devcache.New(connCtx, cfg.RedisURL, cfg.DeviceCacheTTL)
		if err != nil {
			slog.Warn("device cache unavailable, using direct lookups", "error", err)
		} else {
			defer c.Close()
			cache = c
		}
	}

	var limiter *api.KeyLimiter
	if cfg.IngestRate > 0 {
		limiter = api.NewKeyLimiter(cfg.IngestRate, cfg.IngestBurst)
	}

	var publisher api.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		producer := events.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer producer.Close()
		publisher = producer
		slog.Info("measurement events enabled", "topic", cfg.KafkaTopic)
	}

	store := api.NewStore(pool, tc, cache)
	handler := api.NewHandler(store, limiter, publisher, cfg.Debug)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, models.ServiceInfo{OK: true, Service: serviceName, Version: version})
	})
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.Healthy(r.Context(), pool); err != nil {
			writeJSON(w, http.StatusServiceUnavailable,
				models.HealthResponse{OK: false, Error: "database unreachable"})
			return
		}
		writeJSON(w, http.StatusOK, models.HealthResponse{
			OK:            true,
			Degraded:      tc.Degraded,
			TimestampMode: tc.Mode(),
		})
	})

	r.Post("/ingest", handler.Ingest)
	r.Get("/latest", handler.Latest)
	r.Get("/series", handler.Series)

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	serve(cfg.Base, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func setupLogging(cfg config.Server) {
	var out io.Writer = os.Stdout
	if cfg.LogFile != "" {
		out = &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    100, // MB
			MaxBackups: 3,
			MaxAge:     28, // days
		}
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	})))
}

func serve(cfg config.Base, handler http.Handler) {
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutting down", "signal", sig)
	case err := <-errCh:
		slog.Error("server error", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}
