package services

import (
	"testing"
	"time"
)

// clockedAnalyzer drives the analyzer with a fake, manually advanced clock.
func clockedAnalyzer(t *testing.T) (*SuspicionAnalyzer, *time.Time) {
	t.Helper()
	now := time.Date(2025, 9, 1, 9, 0, 0, 0, time.UTC)
	a := NewSuspicionAnalyzer(DefaultSuspicionThresholds())
	a.now = func() time.Time { return now }
	return a, &now
}

func TestRecordQuestionStartFirstExposureOnly(t *testing.T) {
	a, now := clockedAnalyzer(t)
	a.RecordQuestionStart("q1")
	shown := a.samples["q1"].ShownAt
	*now = now.Add(5 * time.Second)
	a.RecordQuestionStart("q1")
	if !a.samples["q1"].ShownAt.Equal(shown) {
		t.Fatalf("repeat start overwrote the first exposure")
	}
}

func TestRecordQuestionAnswerOverwrites(t *testing.T) {
	a, now := clockedAnalyzer(t)
	a.RecordQuestionStart("q1")
	*now = now.Add(2 * time.Second)
	a.RecordQuestionAnswer("q1")
	first := a.samples["q1"].AnsweredAt
	*now = now.Add(4 * time.Second)
	a.RecordQuestionAnswer("q1")
	if !a.samples["q1"].AnsweredAt.After(first) {
		t.Fatalf("changed answer did not overwrite the timestamp")
	}
}

func TestAnalyzeEmptyStageIsNone(t *testing.T) {
	a, _ := clockedAnalyzer(t)
	if v := a.Analyze(); v.Level != SuspicionNone {
		t.Fatalf("empty stage verdict = %q, want none", v.Level)
	}
}

func TestAnalyzeFlagsBotLikeTiming(t *testing.T) {
	a, now := clockedAnalyzer(t)
	// Five questions answered 200ms after exposure, in perfectly even steps,
	// whole stage under two seconds.
	for _, q := range []string{"q1", "q2", "q3", "q4", "q5"} {
		a.RecordQuestionStart(q)
		*now = now.Add(200 * time.Millisecond)
		a.RecordQuestionAnswer(q)
	}
	v := a.Analyze()
	if v.Level != SuspicionHigh {
		t.Fatalf("bot-like verdict = %q (%v), want high", v.Level, v.Reasons)
	}
	if len(v.Reasons) < 3 {
		t.Fatalf("reasons = %v, want dwell, uniformity and duration flags", v.Reasons)
	}
}

func TestAnalyzeAcceptsHumanPacing(t *testing.T) {
	a, now := clockedAnalyzer(t)
	dwells := []time.Duration{4 * time.Second, 9 * time.Second, 3 * time.Second, 12 * time.Second, 6 * time.Second}
	for i, q := range []string{"q1", "q2", "q3", "q4", "q5"} {
		a.RecordQuestionStart(q)
		*now = now.Add(dwells[i])
		a.RecordQuestionAnswer(q)
	}
	v := a.Analyze()
	if v.Level != SuspicionNone {
		t.Fatalf("human pacing verdict = %q (%v), want none", v.Level, v.Reasons)
	}
}

func TestAnalyzeStageDurationFloorAlone(t *testing.T) {
	a, now := clockedAnalyzer(t)
	// Dwell above floor and irregular gaps, but the whole stage finishes in
	// under the ten second floor: exactly one flag.
	dwells := []time.Duration{1200 * time.Millisecond, 2900 * time.Millisecond, 1600 * time.Millisecond}
	for i, q := range []string{"q1", "q2", "q3"} {
		a.RecordQuestionStart(q)
		*now = now.Add(dwells[i])
		a.RecordQuestionAnswer(q)
	}
	v := a.Analyze()
	if v.Level != SuspicionLow {
		t.Fatalf("verdict = %q (%v), want low", v.Level, v.Reasons)
	}
	if len(v.Reasons) != 1 || v.Reasons[0] != "stage_duration_below_floor" {
		t.Fatalf("reasons = %v, want only the duration floor", v.Reasons)
	}
}

func TestResetClearsSamples(t *testing.T) {
	a, _ := clockedAnalyzer(t)
	a.RecordQuestionStart("q1")
	a.RecordQuestionAnswer("q1")
	a.Reset()
	if len(a.samples) != 0 {
		t.Fatalf("samples survive Reset")
	}
	if v := a.Analyze(); v.Level != SuspicionNone {
		t.Fatalf("verdict after Reset = %q, want none", v.Level)
	}
}
