package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"corndex/config"
	"corndex/core"
	"corndex/observability/logging"
	telemetry "corndex/observability/otel"
	"corndex/services/venued/server"
	"corndex/storage"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "venued.toml", "path to venued config")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	env := strings.TrimSpace(os.Getenv("CORNDEX_ENV"))
	if env == "" {
		env = cfg.Service.Environment
	}
	logOpts := logging.Options{Level: logging.ParseLevel(cfg.Log.Level)}
	if cfg.Log.File != "" {
		logOpts.File = &logging.FileConfig{
			Path:       cfg.Log.File,
			MaxSizeMB:  cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAgeDays: cfg.Log.MaxAgeDays,
			Compress:   cfg.Log.Compress,
		}
	}
	logger := logging.Setup("venued", env, logOpts)

	headers := telemetry.ParseHeaders(cfg.Telemetry.Headers)
	if raw := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS")); raw != "" {
		headers = telemetry.ParseHeaders(raw)
	}
	endpoint := cfg.Telemetry.Endpoint
	if raw := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")); raw != "" {
		endpoint = raw
	}
	shutdownTelemetry, err := telemetry.Init(context.Background(), telemetry.Config{
		ServiceName: "venued",
		Environment: env,
		Endpoint:    endpoint,
		Insecure:    cfg.Telemetry.Insecure,
		Headers:     headers,
		Metrics:     cfg.Telemetry.Metrics,
		Traces:      cfg.Telemetry.Traces,
	})
	if err != nil {
		log.Fatalf("init telemetry: %v", err)
	}
	defer func() { _ = shutdownTelemetry(context.Background()) }()

	var db storage.Database
	if dir := strings.TrimSpace(cfg.Service.DataDir); dir != "" {
		ldb, err := storage.NewLevelDB(dir)
		if err != nil {
			log.Fatalf("open state at %s: %v", dir, err)
		}
		defer ldb.Close()
		db = ldb
	} else {
		db = storage.NewMemDB()
	}

	venue, err := core.NewVenue(core.Options{
		CollateralRatio:     cfg.Venue.CollateralRatio,
		LiquidatorRewardPct: cfg.Venue.LiquidatorRewardPct,
		MaxLoops:            cfg.Venue.MaxLoops,
		PausedModules:       cfg.Venue.PausedModules,
		Database:            db,
		Logger:              logger.With(slog.String("component", "venue")),
	})
	if err != nil {
		log.Fatalf("build venue: %v", err)
	}
	spec, err := cfg.Genesis.Spec()
	if err != nil {
		log.Fatalf("genesis: %v", err)
	}
	applied, err := venue.Genesis(context.Background(), spec)
	if err != nil {
		log.Fatalf("apply genesis: %v", err)
	}
	logger.Info("venue ready", slog.Bool("genesis_applied", applied))

	httpServer := &http.Server{
		Addr:         cfg.Service.ListenAddress,
		Handler:      server.New(venue, logger.With(slog.String("component", "http"))).Handler(),
		ReadTimeout:  seconds(cfg.Service.ReadTimeout),
		WriteTimeout: seconds(cfg.Service.WriteTimeout),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("venued listening", slog.String("address", cfg.Service.ListenAddress))
		serverErr <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), seconds(cfg.Service.ShutdownTimeout))
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("forcing server stop", slog.Any("error", err))
			_ = httpServer.Close()
		}
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("serve http", slog.Any("error", err))
			os.Exit(1)
		}
	}
}

func seconds(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second
}
