// Package pipeline runs one recording through diarization, interruption
// analysis, and report writing.
package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/snarg/va-engine/internal/analyzer"
	"github.com/snarg/va-engine/internal/config"
	"github.com/snarg/va-engine/internal/diarize"
	"github.com/snarg/va-engine/internal/metrics"
	"github.com/snarg/va-engine/internal/report"
	"github.com/snarg/va-engine/internal/storage"
)

// Pipeline analyzes one audio file end to end. All collaborators are
// injected; there is no ambient state.
type Pipeline struct {
	provider diarize.Provider
	store    storage.ReportStore // nil disables archiving
	cfg      *config.Config
	log      zerolog.Logger
	now      func() time.Time
}

// Option adjusts pipeline construction.
type Option func(*Pipeline)

// WithStore enables report archiving.
func WithStore(store storage.ReportStore) Option {
	return func(p *Pipeline) { p.store = store }
}

// WithClock overrides the archive timestamp source.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// New builds a pipeline around a diarization provider.
func New(provider diarize.Provider, cfg *config.Config, log zerolog.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		provider: provider,
		cfg:      cfg,
		log:      log.With().Str("component", "pipeline").Logger(),
		now:      time.Now,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Run diarizes audioPath, analyzes the turns, and writes the JSON and CSV
// reports. The summary is written to out.
func (p *Pipeline) Run(ctx context.Context, audioPath string, out io.Writer) (*analyzer.Report, error) {
	p.log.Info().
		Str("audio", audioPath).
		Str("provider", p.provider.Name()).
		Str("model", p.provider.Model()).
		Msg("starting diarization")

	start := time.Now()
	turns, err := p.provider.Diarize(ctx, audioPath, diarize.Opts{NumSpeakers: p.cfg.NumSpeakers})
	metrics.DiarizeDuration.WithLabelValues(p.provider.Name()).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.DiarizeFailuresTotal.WithLabelValues(p.provider.Name()).Inc()
		metrics.AnalysesTotal.WithLabelValues("diarize_error").Inc()
		return nil, fmt.Errorf("diarize %s: %w", audioPath, err)
	}
	p.log.Info().Int("turns", len(turns)).Dur("took", time.Since(start)).Msg("diarization complete")

	rep, err := analyzer.Analyze(turns)
	if err != nil {
		metrics.AnalysesTotal.WithLabelValues("invalid_turn").Inc()
		return nil, fmt.Errorf("analyze %s: %w", audioPath, err)
	}
	metrics.AnalysesTotal.WithLabelValues("ok").Inc()
	metrics.InterruptionsDetectedTotal.Add(float64(rep.TotalInterruptions))

	if err := report.SaveFiles(rep, p.cfg.OutputJSON, p.cfg.OutputCSV); err != nil {
		return nil, err
	}
	p.log.Info().
		Str("json", p.cfg.OutputJSON).
		Str("csv", p.cfg.OutputCSV).
		Int("speakers", rep.TotalSpeakers).
		Int("interruptions", rep.TotalInterruptions).
		Msg("reports written")

	if p.store != nil {
		if err := p.archive(ctx, audioPath, rep); err != nil {
			// Archiving is best effort; the local reports already exist.
			p.log.Warn().Err(err).Msg("report archive failed")
		}
	}

	if out != nil {
		report.Summary(out, rep)
	}
	return rep, nil
}

// archive stores both artifacts under {meeting}/{date}/.
func (p *Pipeline) archive(ctx context.Context, audioPath string, rep *analyzer.Report) error {
	meeting := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	when := p.now()

	var jsonBuf bytes.Buffer
	if err := report.WriteJSON(&jsonBuf, rep); err != nil {
		return err
	}
	jsonKey := storage.Key(meeting, when, filepath.Base(p.cfg.OutputJSON))
	if err := p.store.Save(ctx, jsonKey, jsonBuf.Bytes(), "application/json"); err != nil {
		return fmt.Errorf("archive %s: %w", jsonKey, err)
	}

	var csvBuf bytes.Buffer
	if err := report.WriteCSV(&csvBuf, rep); err != nil {
		return err
	}
	csvKey := storage.Key(meeting, when, filepath.Base(p.cfg.OutputCSV))
	if err := p.store.Save(ctx, csvKey, csvBuf.Bytes(), "text/csv"); err != nil {
		return fmt.Errorf("archive %s: %w", csvKey, err)
	}

	p.log.Info().Str("store", p.store.Type()).Str("key", jsonKey).Msg("reports archived")
	return nil
}
