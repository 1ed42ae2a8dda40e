package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/snarg/va-engine/internal/config"
	"github.com/snarg/va-engine/internal/diarize"
	"github.com/snarg/va-engine/internal/pipeline"
	"github.com/snarg/va-engine/internal/storage"
)

var version = "dev"

func main() {
	var (
		envFile     = flag.String("env", "", "path to .env file (default .env)")
		provider    = flag.String("provider", "", "diarization provider: server, pyannoteai, rttm")
		serverURL   = flag.String("server-url", "", "self-hosted diarization server URL")
		rttmPath    = flag.String("rttm", "", "precomputed RTTM file (implies -provider rttm)")
		outJSON     = flag.String("out-json", "", "JSON report path")
		outCSV      = flag.String("out-csv", "", "CSV interruption table path")
		logLevel    = flag.String("log-level", "", "log level: trace, debug, info, warn, error")
		showVersion = flag.Bool("version", false, "print version and exit")
	)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <audio-file>\n\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if *showVersion {
		fmt.Println("va-engine", version)
		return
	}

	if *rttmPath != "" && *provider == "" {
		*provider = "rttm"
	}

	cfg, err := config.Load(config.Overrides{
		EnvFile:          *envFile,
		DiarizeProvider:  *provider,
		DiarizeServerURL: *serverURL,
		OutputJSON:       *outJSON,
		OutputCSV:        *outCSV,
		LogLevel:         *logLevel,
	})
	if err != nil {
		early := zerolog.New(os.Stderr).With().Timestamp().Logger()
		early.Fatal().Err(err).Msg("failed to load config")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stderr).With().Timestamp().Logger().Level(level)

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	audioPath := flag.Arg(0)

	if cfg.DiarizeProvider != "rttm" {
		if _, err := os.Stat(audioPath); err != nil {
			log.Fatal().Str("audio", audioPath).Msg("audio file not found")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	prov, err := diarize.New(diarize.Config{
		Provider:  cfg.DiarizeProvider,
		ServerURL: cfg.DiarizeServerURL,
		APIKey:    cfg.PyannoteToken,
		Model:     cfg.DiarizeModel,
		RTTMPath:  *rttmPath,
		Timeout:   cfg.DiarizeTimeout,
	}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to configure diarization provider")
	}

	var opts []pipeline.Option
	if cfg.S3.Enabled() {
		store, err := storage.New(cfg.S3, cfg.ReportDir, log.With().Str("component", "storage").Logger())
		if err != nil {
			log.Fatal().Err(err).Msg("failed to configure report archive")
		}
		opts = append(opts, pipeline.WithStore(store))
	}

	p := pipeline.New(prov, cfg, log, opts...)
	if _, err := p.Run(ctx, audioPath, os.Stdout); err != nil {
		log.Fatal().Err(err).Msg("analysis failed")
	}
}
