package config

import (
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	// Diarization backend
	DiarizeProvider  string        `env:"DIARIZE_PROVIDER" envDefault:"pyannoteai"`
	DiarizeServerURL string        `env:"DIARIZE_SERVER_URL"`
	PyannoteToken    string        `env:"PYANNOTE_TOKEN"`
	DiarizeModel     string        `env:"DIARIZE_MODEL" envDefault:"pyannote/speaker-diarization-3.1"`
	DiarizeTimeout   time.Duration `env:"DIARIZE_TIMEOUT" envDefault:"10m"`
	NumSpeakers      int           `env:"NUM_SPEAKERS"`

	// Report outputs
	OutputJSON string `env:"OUTPUT_JSON" envDefault:"meeting_report.json"`
	OutputCSV  string `env:"OUTPUT_CSV" envDefault:"interruptions.csv"`
	ReportDir  string `env:"REPORT_DIR" envDefault:"./reports"`

	// Report archive (S3-compatible; empty bucket disables S3)
	S3 S3Config `envPrefix:"S3_"`

	// Service mode
	DatabaseURL  string        `env:"DATABASE_URL"`
	DBMaxConns   int32         `env:"DB_MAX_CONNS" envDefault:"10"`
	DBMinConns   int32         `env:"DB_MIN_CONNS" envDefault:"2"`
	HTTPAddr     string        `env:"HTTP_ADDR" envDefault:":8080"`
	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
	IdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
	MaxUploadMB  int64         `env:"MAX_UPLOAD_MB" envDefault:"512"`

	AuthToken string `env:"AUTH_TOKEN"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
}

// S3Config parameterizes the S3 report archive.
type S3Config struct {
	Bucket        string        `env:"BUCKET"`
	Region        string        `env:"REGION" envDefault:"us-east-1"`
	Endpoint      string        `env:"ENDPOINT"` // custom endpoint for MinIO etc.
	AccessKey     string        `env:"ACCESS_KEY"`
	SecretKey     string        `env:"SECRET_KEY"`
	Prefix        string        `env:"PREFIX"`
	PresignExpiry time.Duration `env:"PRESIGN_EXPIRY" envDefault:"1h"`
}

// Enabled reports whether S3 archiving is configured.
func (c S3Config) Enabled() bool { return c.Bucket != "" }

// Overrides holds CLI flag values that take priority over env vars.
type Overrides struct {
	EnvFile          string
	DiarizeProvider  string
	DiarizeServerURL string
	OutputJSON       string
	OutputCSV        string
	HTTPAddr         string
	LogLevel         string
	DatabaseURL      string
}

// Load reads configuration from .env file, environment variables, and CLI
// overrides. Priority: CLI flags > environment variables > .env file >
// struct defaults.
func Load(overrides Overrides) (*Config, error) {
	// Load .env file (silent if missing)
	envFile := overrides.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		_ = godotenv.Load(envFile)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	// Apply CLI overrides (non-empty values win)
	if overrides.DiarizeProvider != "" {
		cfg.DiarizeProvider = overrides.DiarizeProvider
	}
	if overrides.DiarizeServerURL != "" {
		cfg.DiarizeServerURL = overrides.DiarizeServerURL
	}
	if overrides.OutputJSON != "" {
		cfg.OutputJSON = overrides.OutputJSON
	}
	if overrides.OutputCSV != "" {
		cfg.OutputCSV = overrides.OutputCSV
	}
	if overrides.HTTPAddr != "" {
		cfg.HTTPAddr = overrides.HTTPAddr
	}
	if overrides.LogLevel != "" {
		cfg.LogLevel = overrides.LogLevel
	}
	if overrides.DatabaseURL != "" {
		cfg.DatabaseURL = overrides.DatabaseURL
	}

	return cfg, nil
}
