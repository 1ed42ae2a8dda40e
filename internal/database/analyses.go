package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/snarg/va-engine/internal/analyzer"
)

// ErrNotFound is returned when an analysis id does not exist.
var ErrNotFound = errors.New("analysis not found")

// Analysis is one persisted analysis run.
type Analysis struct {
	ID                 uuid.UUID               `json:"id"`
	SourceName         string                  `json:"source_name"`
	Provider           string                  `json:"provider"`
	Model              string                  `json:"model,omitempty"`
	TotalSpeakers      int                     `json:"total_speakers"`
	TotalInterruptions int                     `json:"total_interruptions"`
	SpeakingTimes      map[string]float64      `json:"speaking_times"`
	Interruptions      []analyzer.Interruption `json:"interruptions"`
	CreatedAt          time.Time               `json:"created_at"`
}

// Report reconstructs the analyzer report from the stored row.
func (a *Analysis) Report() *analyzer.Report {
	return &analyzer.Report{
		TotalSpeakers:      a.TotalSpeakers,
		SpeakingTimes:      a.SpeakingTimes,
		TotalInterruptions: a.TotalInterruptions,
		Interruptions:      a.Interruptions,
	}
}

// InsertAnalysis stores an analysis run and returns its id.
func (db *DB) InsertAnalysis(ctx context.Context, sourceName, provider, model string, rep *analyzer.Report) (uuid.UUID, error) {
	id := uuid.New()

	times, err := json.Marshal(rep.SpeakingTimes)
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshal speaking times: %w", err)
	}
	events, err := json.Marshal(rep.Interruptions)
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshal interruptions: %w", err)
	}

	_, err = db.Pool.Exec(ctx, `
		INSERT INTO analyses (id, source_name, provider, model, total_speakers, total_interruptions, speaking_times, interruptions)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		id, sourceName, provider, model, rep.TotalSpeakers, rep.TotalInterruptions, times, events)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert analysis: %w", err)
	}
	return id, nil
}

// GetAnalysis fetches one analysis by id.
func (db *DB) GetAnalysis(ctx context.Context, id uuid.UUID) (*Analysis, error) {
	row := db.Pool.QueryRow(ctx, `
		SELECT id, source_name, provider, model, total_speakers, total_interruptions, speaking_times, interruptions, created_at
		FROM analyses WHERE id = $1`, id)

	a, err := scanAnalysis(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get analysis: %w", err)
	}
	return a, nil
}

// ListAnalyses returns recent analyses, newest first.
func (db *DB) ListAnalyses(ctx context.Context, limit, offset int) ([]*Analysis, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, source_name, provider, model, total_speakers, total_interruptions, speaking_times, interruptions, created_at
		FROM analyses ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}
	defer rows.Close()

	analyses := make([]*Analysis, 0)
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, fmt.Errorf("scan analysis: %w", err)
		}
		analyses = append(analyses, a)
	}
	return analyses, rows.Err()
}

func scanAnalysis(row pgx.Row) (*Analysis, error) {
	var a Analysis
	var times, events []byte

	err := row.Scan(&a.ID, &a.SourceName, &a.Provider, &a.Model,
		&a.TotalSpeakers, &a.TotalInterruptions, &times, &events, &a.CreatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(times, &a.SpeakingTimes); err != nil {
		return nil, fmt.Errorf("decode speaking times: %w", err)
	}
	if err := json.Unmarshal(events, &a.Interruptions); err != nil {
		return nil, fmt.Errorf("decode interruptions: %w", err)
	}
	return &a, nil
}
