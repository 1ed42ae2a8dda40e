package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	cleanup := setEnvs(t, map[string]string{
		"PYANNOTE_TOKEN": "hf_test_token",
	})
	defer cleanup()

	t.Run("defaults", func(t *testing.T) {
		cfg, err := Load(Overrides{EnvFile: "nonexistent.env"})
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if cfg.DiarizeProvider != "pyannoteai" {
			t.Errorf("DiarizeProvider = %q, want pyannoteai", cfg.DiarizeProvider)
		}
		if cfg.DiarizeModel != "pyannote/speaker-diarization-3.1" {
			t.Errorf("DiarizeModel = %q", cfg.DiarizeModel)
		}
		if cfg.DiarizeTimeout != 10*time.Minute {
			t.Errorf("DiarizeTimeout = %v, want 10m", cfg.DiarizeTimeout)
		}
		if cfg.OutputJSON != "meeting_report.json" {
			t.Errorf("OutputJSON = %q, want meeting_report.json", cfg.OutputJSON)
		}
		if cfg.OutputCSV != "interruptions.csv" {
			t.Errorf("OutputCSV = %q, want interruptions.csv", cfg.OutputCSV)
		}
		if cfg.HTTPAddr != ":8080" {
			t.Errorf("HTTPAddr = %q, want :8080", cfg.HTTPAddr)
		}
		if cfg.LogLevel != "info" {
			t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
		}
		if cfg.DBMaxConns != 10 || cfg.DBMinConns != 2 {
			t.Errorf("pool size = %d/%d, want 10/2", cfg.DBMaxConns, cfg.DBMinConns)
		}
		if cfg.S3.Enabled() {
			t.Error("S3 should be disabled without a bucket")
		}
	})

	t.Run("pool_size_env", func(t *testing.T) {
		c2 := setEnvs(t, map[string]string{
			"DB_MAX_CONNS": "25",
			"DB_MIN_CONNS": "5",
		})
		defer c2()

		cfg, err := Load(Overrides{EnvFile: "nonexistent.env"})
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if cfg.DBMaxConns != 25 || cfg.DBMinConns != 5 {
			t.Errorf("pool size = %d/%d, want 25/5", cfg.DBMaxConns, cfg.DBMinConns)
		}
	})

	t.Run("env_vars_read", func(t *testing.T) {
		cfg, err := Load(Overrides{EnvFile: "nonexistent.env"})
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if cfg.PyannoteToken != "hf_test_token" {
			t.Errorf("PyannoteToken = %q, want hf_test_token", cfg.PyannoteToken)
		}
	})

	t.Run("s3_prefix_env", func(t *testing.T) {
		c2 := setEnvs(t, map[string]string{
			"S3_BUCKET":   "meeting-reports",
			"S3_ENDPOINT": "http://minio:9000",
		})
		defer c2()

		cfg, err := Load(Overrides{EnvFile: "nonexistent.env"})
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if !cfg.S3.Enabled() {
			t.Fatal("S3 should be enabled")
		}
		if cfg.S3.Bucket != "meeting-reports" {
			t.Errorf("S3.Bucket = %q", cfg.S3.Bucket)
		}
		if cfg.S3.Endpoint != "http://minio:9000" {
			t.Errorf("S3.Endpoint = %q", cfg.S3.Endpoint)
		}
	})

	t.Run("cli_overrides_take_priority", func(t *testing.T) {
		cfg, err := Load(Overrides{
			EnvFile:          "nonexistent.env",
			DiarizeProvider:  "server",
			DiarizeServerURL: "http://localhost:9191",
			OutputJSON:       "/tmp/r.json",
			HTTPAddr:         ":9090",
			LogLevel:         "debug",
			DatabaseURL:      "postgres://override/db",
		})
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if cfg.DiarizeProvider != "server" {
			t.Errorf("DiarizeProvider = %q, want server", cfg.DiarizeProvider)
		}
		if cfg.DiarizeServerURL != "http://localhost:9191" {
			t.Errorf("DiarizeServerURL = %q", cfg.DiarizeServerURL)
		}
		if cfg.OutputJSON != "/tmp/r.json" {
			t.Errorf("OutputJSON = %q", cfg.OutputJSON)
		}
		if cfg.HTTPAddr != ":9090" {
			t.Errorf("HTTPAddr = %q, want :9090", cfg.HTTPAddr)
		}
		if cfg.LogLevel != "debug" {
			t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
		}
		if cfg.DatabaseURL != "postgres://override/db" {
			t.Errorf("DatabaseURL = %q", cfg.DatabaseURL)
		}
	})
}

// setEnvs sets environment variables and returns a cleanup function.
func setEnvs(t *testing.T, envs map[string]string) func() {
	t.Helper()
	originals := make(map[string]string)
	unset := make([]string, 0)

	for k, v := range envs {
		if orig, ok := os.LookupEnv(k); ok {
			originals[k] = orig
		} else {
			unset = append(unset, k)
		}
		os.Setenv(k, v)
	}

	return func() {
		for k, v := range originals {
			os.Setenv(k, v)
		}
		for _, k := range unset {
			os.Unsetenv(k)
		}
	}
}
