// Package analyzer turns a diarized sequence of speaker turns into
// speaking-time totals and an interruption list.
package analyzer

import (
	"fmt"
	"math"
	"sort"
)

// Turn is one contiguous interval attributed to a single speaker, as
// produced by a diarization backend. Turns are treated as read-only.
type Turn struct {
	Speaker string  `json:"speaker"`
	Start   float64 `json:"start"` // seconds from recording start
	End     float64 `json:"end"`   // seconds, >= Start
}

// Duration returns the turn length in seconds.
func (t Turn) Duration() float64 { return t.End - t.Start }

// Interruption is a detected temporal overlap between turns of two
// different speakers. The later-starting speaker is the interrupter.
type Interruption struct {
	Time            float64 `json:"time"`
	Interrupter     string  `json:"interrupter"`
	Interrupted     string  `json:"interrupted"`
	OverlapDuration float64 `json:"overlap_duration"`
}

// Report is the aggregate analysis result. It is built once and never
// mutated afterwards.
type Report struct {
	TotalSpeakers      int                `json:"total_speakers"`
	SpeakingTimes      map[string]float64 `json:"speaking_times"`
	TotalInterruptions int                `json:"total_interruptions"`
	Interruptions      []Interruption     `json:"interruptions"`
}

// InvalidTurnError reports a malformed turn (end before start, or a
// negative start). Analysis is aborted; no partial report is produced.
type InvalidTurnError struct {
	Index int
	Turn  Turn
}

func (e *InvalidTurnError) Error() string {
	return fmt.Sprintf("invalid turn %d: speaker=%s start=%.3f end=%.3f",
		e.Index, e.Turn.Speaker, e.Turn.Start, e.Turn.End)
}

// Analyze computes per-speaker speaking time and pairwise interruption
// events for one recording.
//
// The input order is not trusted; turns are copied and sorted by start
// time before scanning, so shuffled input yields an identical report.
// For each pair (A, B) with A starting no later than B and different
// speakers, an overlap min(ends) - max(starts) > 0 produces exactly one
// event with B as the interrupter. Turns that start at exactly the same
// instant produce no event: neither speaker can be said to have cut the
// other off. When three or more turns overlap, every pairwise overlap is
// reported independently.
//
// The scan only compares each turn against later turns whose start falls
// before its own end. Turns are short relative to a recording, so this
// stays near-linear on meeting-scale input.
func Analyze(turns []Turn) (*Report, error) {
	for i, t := range turns {
		if t.End < t.Start || t.Start < 0 {
			return nil, &InvalidTurnError{Index: i, Turn: t}
		}
	}

	sorted := make([]Turn, len(turns))
	copy(sorted, turns)
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		if a.End != b.End {
			return a.End < b.End
		}
		return a.Speaker < b.Speaker
	})

	speakingTimes := make(map[string]float64)
	// Non-nil so an interruption-free report serializes as an empty list.
	interruptions := []Interruption{}

	for i, a := range sorted {
		speakingTimes[a.Speaker] += a.Duration()

		for j := i + 1; j < len(sorted) && sorted[j].Start < a.End; j++ {
			b := sorted[j]
			if b.Speaker == a.Speaker {
				continue
			}
			if b.Start == a.Start {
				// Simultaneous onset: no interrupter by convention.
				continue
			}
			overlap := math.Min(a.End, b.End) - b.Start
			if overlap <= 0 {
				continue
			}
			interruptions = append(interruptions, Interruption{
				Time:            round2(b.Start),
				Interrupter:     b.Speaker,
				Interrupted:     a.Speaker,
				OverlapDuration: round2(overlap),
			})
		}
	}

	sort.SliceStable(interruptions, func(i, j int) bool {
		return interruptions[i].Time < interruptions[j].Time
	})

	for spk, secs := range speakingTimes {
		speakingTimes[spk] = round2(secs)
	}

	return &Report{
		TotalSpeakers:      len(speakingTimes),
		SpeakingTimes:      speakingTimes,
		TotalInterruptions: len(interruptions),
		Interruptions:      interruptions,
	}, nil
}

// round2 rounds to 2 decimal places, the precision carried through to the
// persisted report.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
