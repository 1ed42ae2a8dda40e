package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/snarg/va-engine/internal/api"
	"github.com/snarg/va-engine/internal/config"
	"github.com/snarg/va-engine/internal/database"
	"github.com/snarg/va-engine/internal/diarize"
	"github.com/snarg/va-engine/internal/metrics"
)

var version = "dev"

func main() {
	startTime := time.Now()

	var (
		envFile  = flag.String("env", "", "path to .env file (default .env)")
		httpAddr = flag.String("addr", "", "HTTP listen address")
		logLevel = flag.String("log-level", "", "log level: trace, debug, info, warn, error")
		dbURL    = flag.String("database-url", "", "postgres connection string")
	)
	flag.Parse()

	cfg, err := config.Load(config.Overrides{
		EnvFile:     *envFile,
		HTTPAddr:    *httpAddr,
		LogLevel:    *logLevel,
		DatabaseURL: *dbURL,
	})
	if err != nil {
		early := zerolog.New(os.Stderr).With().Timestamp().Logger()
		early.Fatal().Err(err).Msg("failed to load config")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stdout).With().Timestamp().Logger().Level(level)
	log.Info().Str("version", version).Msg("va-engined starting")

	if cfg.DatabaseURL == "" {
		log.Fatal().Msg("DATABASE_URL is required in service mode")
	}

	// Context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Database
	dbLog := log.With().Str("component", "database").Logger()
	db, err := database.Connect(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns, dbLog)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	if err := db.InitSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to initialize schema")
	}

	prometheus.MustRegister(metrics.NewCollector(db.Pool))

	// Diarization backend (optional: without one, only precomputed turn
	// lists are accepted)
	var provider diarize.Provider
	if cfg.DiarizeServerURL != "" || cfg.PyannoteToken != "" {
		provider, err = diarize.New(diarize.Config{
			Provider:  cfg.DiarizeProvider,
			ServerURL: cfg.DiarizeServerURL,
			APIKey:    cfg.PyannoteToken,
			Model:     cfg.DiarizeModel,
			Timeout:   cfg.DiarizeTimeout,
		}, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to configure diarization provider")
		}
		log.Info().Str("provider", provider.Name()).Str("model", provider.Model()).Msg("diarization backend ready")
	} else {
		log.Warn().Msg("no diarization backend configured; accepting precomputed turns only")
	}

	// HTTP Server
	httpLog := log.With().Str("component", "http").Logger()
	srv := api.NewServer(cfg, db, provider, version, startTime, httpLog)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("http server error")
		}
	}

	// Graceful shutdown with 10s timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown error")
	}

	log.Info().Msg("va-engined stopped")
}
