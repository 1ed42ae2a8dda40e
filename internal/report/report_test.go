package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/snarg/va-engine/internal/analyzer"
)

func sampleReport() *analyzer.Report {
	return &analyzer.Report{
		TotalSpeakers: 2,
		SpeakingTimes: map[string]float64{
			"SPEAKER_00": 15.0,
			"SPEAKER_01": 7.0,
		},
		TotalInterruptions: 1,
		Interruptions: []analyzer.Interruption{
			{Time: 8.0, Interrupter: "SPEAKER_01", Interrupted: "SPEAKER_00", OverlapDuration: 2.0},
		},
	}
}

func TestWriteJSON(t *testing.T) {
	t.Run("field_names", func(t *testing.T) {
		var buf bytes.Buffer
		if err := WriteJSON(&buf, sampleReport()); err != nil {
			t.Fatalf("WriteJSON: %v", err)
		}

		var decoded map[string]json.RawMessage
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		for _, key := range []string{"total_speakers", "speaking_times", "total_interruptions", "interruptions"} {
			if _, ok := decoded[key]; !ok {
				t.Errorf("missing key %q", key)
			}
		}

		var events []map[string]any
		if err := json.Unmarshal(decoded["interruptions"], &events); err != nil {
			t.Fatalf("unmarshal interruptions: %v", err)
		}
		if len(events) != 1 {
			t.Fatalf("expected 1 event, got %d", len(events))
		}
		for _, key := range []string{"time", "interrupter", "interrupted", "overlap_duration"} {
			if _, ok := events[0][key]; !ok {
				t.Errorf("event missing key %q", key)
			}
		}
	})

	t.Run("interruption_free_report_emits_empty_list", func(t *testing.T) {
		rep, err := analyzer.Analyze([]analyzer.Turn{
			{Speaker: "SPEAKER_00", Start: 0.0, End: 5.0},
		})
		if err != nil {
			t.Fatalf("Analyze: %v", err)
		}

		var buf bytes.Buffer
		if err := WriteJSON(&buf, rep); err != nil {
			t.Fatalf("WriteJSON: %v", err)
		}
		if strings.Contains(buf.String(), "null") {
			t.Errorf("report contains null:\n%s", buf.String())
		}
		if !strings.Contains(buf.String(), `"interruptions": []`) {
			t.Errorf("interruptions not an empty list:\n%s", buf.String())
		}
	})
}

func TestWriteCSV(t *testing.T) {
	t.Run("rows_follow_report_order", func(t *testing.T) {
		var buf bytes.Buffer
		if err := WriteCSV(&buf, sampleReport()); err != nil {
			t.Fatalf("WriteCSV: %v", err)
		}
		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		if len(lines) != 2 {
			t.Fatalf("expected header + 1 row, got %d lines", len(lines))
		}
		if lines[0] != "time,interrupter,interrupted,overlap_duration" {
			t.Errorf("header = %q", lines[0])
		}
		if lines[1] != "8,SPEAKER_01,SPEAKER_00,2" {
			t.Errorf("row = %q", lines[1])
		}
	})

	t.Run("empty_report_keeps_header", func(t *testing.T) {
		var buf bytes.Buffer
		rep := &analyzer.Report{SpeakingTimes: map[string]float64{}}
		if err := WriteCSV(&buf, rep); err != nil {
			t.Fatalf("WriteCSV: %v", err)
		}
		if got := strings.TrimSpace(buf.String()); got != "time,interrupter,interrupted,overlap_duration" {
			t.Errorf("empty report CSV = %q, want header only", got)
		}
	})
}

func TestSaveFiles(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "out", "meeting_report.json")
	csvPath := filepath.Join(dir, "out", "interruptions.csv")

	if err := SaveFiles(sampleReport(), jsonPath, csvPath); err != nil {
		t.Fatalf("SaveFiles: %v", err)
	}

	data, err := os.ReadFile(jsonPath)
	if err != nil {
		t.Fatalf("read json: %v", err)
	}
	var rep analyzer.Report
	if err := json.Unmarshal(data, &rep); err != nil {
		t.Fatalf("unmarshal saved report: %v", err)
	}
	if rep.TotalSpeakers != 2 {
		t.Errorf("TotalSpeakers = %d, want 2", rep.TotalSpeakers)
	}

	if _, err := os.Stat(csvPath); err != nil {
		t.Errorf("csv not written: %v", err)
	}
}

func TestSummary(t *testing.T) {
	rep := sampleReport()
	for i := 0; i < 6; i++ {
		rep.Interruptions = append(rep.Interruptions, analyzer.Interruption{
			Time: 10.0 + float64(i), Interrupter: "SPEAKER_00", Interrupted: "SPEAKER_01", OverlapDuration: 0.5,
		})
	}
	rep.TotalInterruptions = len(rep.Interruptions)

	var buf bytes.Buffer
	Summary(&buf, rep)
	out := buf.String()

	if !strings.Contains(out, "Speakers: 2") {
		t.Errorf("missing speaker count:\n%s", out)
	}
	if !strings.Contains(out, "SPEAKER_00: 15.00 seconds") {
		t.Errorf("missing speaking time:\n%s", out)
	}
	if !strings.Contains(out, "... and 2 more") {
		t.Errorf("missing truncation marker:\n%s", out)
	}
}
