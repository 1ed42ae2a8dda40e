// Package storage archives report artifacts (the JSON report and CSV
// table) locally or in an S3-compatible object store.
package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/snarg/va-engine/internal/config"
)

// ReportStore abstracts report artifact storage backends.
type ReportStore interface {
	// Save stores a report artifact. key format: {meeting}/{YYYY-MM-DD}/{filename}
	Save(ctx context.Context, key string, data []byte, contentType string) error

	// URL returns a presigned URL for the artifact.
	// Returns "" for local-only backends.
	URL(ctx context.Context, key string) (string, error)

	// Open returns a reader for the artifact.
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// Exists checks if an artifact exists.
	Exists(ctx context.Context, key string) bool

	// Type returns "local" or "s3".
	Type() string
}

// New creates a ReportStore based on config. Returns an error if S3 is
// configured but unreachable.
func New(cfg config.S3Config, reportDir string, log zerolog.Logger) (ReportStore, error) {
	if !cfg.Enabled() {
		return NewLocalStore(reportDir), nil
	}

	s3store, err := NewS3Store(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("S3 init failed: %w", err)
	}

	// Startup validation: verify credentials and bucket access
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s3store.HeadBucket(ctx); err != nil {
		return nil, fmt.Errorf("S3 startup check failed (bucket=%q endpoint=%q): %w",
			cfg.Bucket, cfg.Endpoint, err)
	}
	log.Info().Str("bucket", cfg.Bucket).Str("endpoint", cfg.Endpoint).Msg("S3 connection verified")

	return s3store, nil
}

// Key builds an artifact key from a meeting name, a date, and a filename.
func Key(meeting string, when time.Time, filename string) string {
	return fmt.Sprintf("%s/%s/%s", meeting, when.UTC().Format("2006-01-02"), filename)
}
