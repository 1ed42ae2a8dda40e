// Package report serializes analysis results: a JSON meeting report, a
// CSV interruption table, and a console summary.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/snarg/va-engine/internal/analyzer"
)

// CSVHeader is the column order of the interruption table.
var CSVHeader = []string{"time", "interrupter", "interrupted", "overlap_duration"}

// WriteJSON writes the meeting report as 2-space-indented JSON.
func WriteJSON(w io.Writer, rep *analyzer.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}

// WriteCSV writes the interruption table, one row per event in report
// order. A report with no interruptions still gets the header row.
func WriteCSV(w io.Writer, rep *analyzer.Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, ev := range rep.Interruptions {
		row := []string{
			formatSeconds(ev.Time),
			ev.Interrupter,
			ev.Interrupted,
			formatSeconds(ev.OverlapDuration),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// SaveFiles writes the JSON report and CSV table to disk, creating parent
// directories as needed.
func SaveFiles(rep *analyzer.Report, jsonPath, csvPath string) error {
	if err := saveTo(jsonPath, func(w io.Writer) error { return WriteJSON(w, rep) }); err != nil {
		return fmt.Errorf("write json report: %w", err)
	}
	if err := saveTo(csvPath, func(w io.Writer) error { return WriteCSV(w, rep) }); err != nil {
		return fmt.Errorf("write csv report: %w", err)
	}
	return nil
}

func saveTo(path string, write func(io.Writer) error) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Summary writes a human-readable digest: speaker count, per-speaker
// speaking time, and the first few interruptions.
func Summary(w io.Writer, rep *analyzer.Report) {
	fmt.Fprintf(w, "Speakers: %d\n", rep.TotalSpeakers)

	speakers := make([]string, 0, len(rep.SpeakingTimes))
	for spk := range rep.SpeakingTimes {
		speakers = append(speakers, spk)
	}
	sort.Strings(speakers)
	for _, spk := range speakers {
		fmt.Fprintf(w, "  %s: %.2f seconds\n", spk, rep.SpeakingTimes[spk])
	}

	fmt.Fprintf(w, "Interruptions: %d\n", rep.TotalInterruptions)
	const show = 5
	for i, ev := range rep.Interruptions {
		if i == show {
			fmt.Fprintf(w, "  ... and %d more\n", len(rep.Interruptions)-show)
			break
		}
		fmt.Fprintf(w, "  %d. at %ss: %s interrupted %s (%ss overlap)\n",
			i+1, formatSeconds(ev.Time), ev.Interrupter, ev.Interrupted,
			formatSeconds(ev.OverlapDuration))
	}
}

// formatSeconds renders a seconds value without trailing zeros ("8"
// rather than "8.00", "2.5" rather than "2.50"). Report values are
// already rounded to two decimals, so the short form loses nothing.
func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
