package diarize

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/snarg/va-engine/internal/analyzer"
)

// RTTMFile reads precomputed diarization output from an RTTM file, so a
// recording can be analyzed without any model access. Implements the
// Provider interface; the audio path argument is ignored.
type RTTMFile struct {
	path string
}

// NewRTTMFile creates an offline provider backed by an RTTM file.
func NewRTTMFile(path string) *RTTMFile {
	return &RTTMFile{path: path}
}

// Name returns the provider name.
func (r *RTTMFile) Name() string { return "rttm" }

// Model returns the source file path; there is no model behind this provider.
func (r *RTTMFile) Model() string { return r.path }

// Diarize parses the RTTM file and returns its speaker turns.
func (r *RTTMFile) Diarize(ctx context.Context, audioPath string, opts Opts) ([]analyzer.Turn, error) {
	f, err := os.Open(r.path)
	if err != nil {
		return nil, fmt.Errorf("open rttm file: %w", err)
	}
	defer f.Close()
	return ParseRTTM(f)
}

// ParseRTTM reads SPEAKER records from RTTM input. Each record is
//
//	SPEAKER <file-id> <channel> <onset> <duration> <NA> <NA> <speaker> <NA> <NA>
//
// Non-SPEAKER record types and comment lines are skipped.
func ParseRTTM(rd io.Reader) ([]analyzer.Turn, error) {
	var turns []analyzer.Turn

	scanner := bufio.NewScanner(rd)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, ";;") {
			continue
		}

		fields := strings.Fields(text)
		if fields[0] != "SPEAKER" {
			continue
		}
		if len(fields) < 8 {
			return nil, fmt.Errorf("rttm line %d: expected at least 8 fields, got %d", line, len(fields))
		}

		onset, err := strconv.ParseFloat(fields[3], 64)
		if err != nil {
			return nil, fmt.Errorf("rttm line %d: bad onset %q: %w", line, fields[3], err)
		}
		dur, err := strconv.ParseFloat(fields[4], 64)
		if err != nil {
			return nil, fmt.Errorf("rttm line %d: bad duration %q: %w", line, fields[4], err)
		}

		turns = append(turns, analyzer.Turn{
			Speaker: fields[7],
			Start:   onset,
			End:     onset + dur,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read rttm: %w", err)
	}
	return turns, nil
}

// ReadTurnsJSON decodes a JSON array of {speaker, start, end} objects.
// Used for precomputed turn lists submitted directly to the API.
func ReadTurnsJSON(rd io.Reader) ([]analyzer.Turn, error) {
	var turns []analyzer.Turn
	dec := json.NewDecoder(rd)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&turns); err != nil {
		return nil, fmt.Errorf("decode turns: %w", err)
	}
	return turns, nil
}
