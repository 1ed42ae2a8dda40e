package pipeline

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/snarg/va-engine/internal/analyzer"
	"github.com/snarg/va-engine/internal/config"
	"github.com/snarg/va-engine/internal/diarize"
	"github.com/snarg/va-engine/internal/storage"
)

// fakeProvider returns canned turns without touching the audio file.
type fakeProvider struct {
	turns []analyzer.Turn
	err   error
}

func (f *fakeProvider) Diarize(ctx context.Context, audioPath string, opts diarize.Opts) ([]analyzer.Turn, error) {
	return f.turns, f.err
}
func (f *fakeProvider) Name() string  { return "fake" }
func (f *fakeProvider) Model() string { return "fake-model" }

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		OutputJSON: filepath.Join(dir, "meeting_report.json"),
		OutputCSV:  filepath.Join(dir, "interruptions.csv"),
	}
}

func TestPipeline_Run(t *testing.T) {
	provider := &fakeProvider{turns: []analyzer.Turn{
		{Speaker: "SPEAKER_00", Start: 0.0, End: 10.0},
		{Speaker: "SPEAKER_01", Start: 8.0, End: 15.0},
		{Speaker: "SPEAKER_00", Start: 15.0, End: 20.0},
	}}
	cfg := testConfig(t)
	reportDir := t.TempDir()
	store := storage.NewLocalStore(reportDir)

	fixed := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)
	p := New(provider, cfg, zerolog.Nop(),
		WithStore(store), WithClock(func() time.Time { return fixed }))

	var summary bytes.Buffer
	rep, err := p.Run(context.Background(), "/recordings/standup.wav", &summary)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if rep.TotalInterruptions != 1 {
		t.Errorf("TotalInterruptions = %d, want 1", rep.TotalInterruptions)
	}
	if !strings.Contains(summary.String(), "Speakers: 2") {
		t.Errorf("summary missing speaker count:\n%s", summary.String())
	}

	// Local report files written
	for _, path := range []string{cfg.OutputJSON, cfg.OutputCSV} {
		if !store.Exists(context.Background(), "standup/2025-03-14/"+filepath.Base(path)) {
			t.Errorf("archive missing for %s", filepath.Base(path))
		}
	}
}

func TestPipeline_DiarizeErrorPropagates(t *testing.T) {
	provider := &fakeProvider{err: errors.New("model unavailable")}
	p := New(provider, testConfig(t), zerolog.Nop())

	_, err := p.Run(context.Background(), "meeting.wav", nil)
	if err == nil || !strings.Contains(err.Error(), "model unavailable") {
		t.Fatalf("expected diarize error, got %v", err)
	}
}

func TestPipeline_InvalidTurnAborts(t *testing.T) {
	provider := &fakeProvider{turns: []analyzer.Turn{
		{Speaker: "A", Start: 7.0, End: 5.0},
	}}
	cfg := testConfig(t)
	p := New(provider, cfg, zerolog.Nop())

	_, err := p.Run(context.Background(), "meeting.wav", nil)
	var ite *analyzer.InvalidTurnError
	if !errors.As(err, &ite) {
		t.Fatalf("expected *InvalidTurnError, got %v", err)
	}

	// Fail-fast: no partial report on disk.
	if _, statErr := os.Stat(cfg.OutputJSON); statErr == nil {
		t.Error("report written despite invalid turn")
	}
}
