package diarize

import (
	"strings"
	"testing"
)

func TestParseRTTM(t *testing.T) {
	t.Run("speaker_records", func(t *testing.T) {
		input := `;; generated by pyannote
SPEAKER ES2016b 1 0.00 10.00 <NA> <NA> SPEAKER_00 <NA> <NA>
SPEAKER ES2016b 1 8.00 7.00 <NA> <NA> SPEAKER_01 <NA> <NA>

NON-SPEECH ES2016b 1 15.00 1.00 <NA> <NA> noise <NA> <NA>
SPEAKER ES2016b 1 15.00 5.00 <NA> <NA> SPEAKER_00 <NA> <NA>
`
		turns, err := ParseRTTM(strings.NewReader(input))
		if err != nil {
			t.Fatalf("ParseRTTM: %v", err)
		}
		if len(turns) != 3 {
			t.Fatalf("expected 3 turns, got %d", len(turns))
		}
		if turns[1].Speaker != "SPEAKER_01" || turns[1].Start != 8.0 || turns[1].End != 15.0 {
			t.Errorf("turns[1] = %+v, want SPEAKER_01 [8, 15]", turns[1])
		}
	})

	t.Run("truncated_record", func(t *testing.T) {
		_, err := ParseRTTM(strings.NewReader("SPEAKER ES2016b 1 0.00\n"))
		if err == nil {
			t.Fatal("expected error for truncated record")
		}
	})

	t.Run("bad_onset", func(t *testing.T) {
		_, err := ParseRTTM(strings.NewReader(
			"SPEAKER f 1 abc 1.0 <NA> <NA> SPEAKER_00 <NA> <NA>\n"))
		if err == nil {
			t.Fatal("expected error for non-numeric onset")
		}
	})

	t.Run("empty_input", func(t *testing.T) {
		turns, err := ParseRTTM(strings.NewReader(""))
		if err != nil {
			t.Fatalf("ParseRTTM: %v", err)
		}
		if len(turns) != 0 {
			t.Errorf("expected no turns, got %d", len(turns))
		}
	})
}

func TestReadTurnsJSON(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		turns, err := ReadTurnsJSON(strings.NewReader(
			`[{"speaker":"A","start":0,"end":2.5},{"speaker":"B","start":2,"end":4}]`))
		if err != nil {
			t.Fatalf("ReadTurnsJSON: %v", err)
		}
		if len(turns) != 2 {
			t.Fatalf("expected 2 turns, got %d", len(turns))
		}
		if turns[0].Speaker != "A" || turns[0].End != 2.5 {
			t.Errorf("turns[0] = %+v", turns[0])
		}
	})

	t.Run("unknown_field_rejected", func(t *testing.T) {
		_, err := ReadTurnsJSON(strings.NewReader(`[{"speaker":"A","begin":0,"end":1}]`))
		if err == nil {
			t.Fatal("expected error for unknown field")
		}
	})
}
