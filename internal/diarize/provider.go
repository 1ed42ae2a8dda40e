package diarize

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/snarg/va-engine/internal/analyzer"
)

// Provider is the interface for speaker-diarization backends.
type Provider interface {
	Diarize(ctx context.Context, audioPath string, opts Opts) ([]analyzer.Turn, error)
	Name() string  // "server", "pyannoteai", "rttm"
	Model() string // model identifier for DB/logs
}

// Opts are per-request options. Zero-value fields are omitted from the
// request so servers fall back to their own defaults.
type Opts struct {
	// NumSpeakers pins the speaker count when the caller knows it.
	// 0 lets the model estimate.
	NumSpeakers int
	// MinSpeakers/MaxSpeakers bound the estimate instead of pinning it.
	MinSpeakers int
	MaxSpeakers int
}

// Config selects and parameterizes a provider.
type Config struct {
	Provider  string // "server", "pyannoteai", or "rttm"
	ServerURL string // self-hosted diarization server base URL
	APIKey    string // hosted API token
	Model     string // model identifier, e.g. "pyannote/speaker-diarization-3.1"
	RTTMPath  string // precomputed RTTM file for the offline provider
	Timeout   time.Duration
}

// New builds the configured provider.
func New(cfg Config, log zerolog.Logger) (Provider, error) {
	switch cfg.Provider {
	case "server":
		if cfg.ServerURL == "" {
			return nil, fmt.Errorf("diarize provider %q requires a server URL", cfg.Provider)
		}
		return NewServerClient(cfg.ServerURL, cfg.Model, cfg.Timeout), nil
	case "pyannoteai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("diarize provider %q requires an API key", cfg.Provider)
		}
		return NewPyannoteAIClient(cfg.APIKey, cfg.Model, cfg.Timeout, log), nil
	case "rttm":
		if cfg.RTTMPath == "" {
			return nil, fmt.Errorf("diarize provider %q requires an RTTM file path", cfg.Provider)
		}
		return NewRTTMFile(cfg.RTTMPath), nil
	default:
		return nil, fmt.Errorf("unknown diarize provider %q", cfg.Provider)
	}
}
