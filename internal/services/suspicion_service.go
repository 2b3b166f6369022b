package services

import (
	"math"
	"sort"
	"time"
)

// SuspicionLevel grades how likely a stage's responses are automated or
// careless. It is a flagging signal for the admin console, never a gate.
type SuspicionLevel string

const (
	SuspicionNone   SuspicionLevel = "none"
	SuspicionLow    SuspicionLevel = "low"
	SuspicionMedium SuspicionLevel = "medium"
	SuspicionHigh   SuspicionLevel = "high"
)

// SuspicionVerdict is produced fresh per stage and appended to the audit
// trail; it is never mutated.
type SuspicionVerdict struct {
	Level   SuspicionLevel
	Reasons []string
}

// TimingSample pairs first exposure and latest answer time for one question.
type TimingSample struct {
	QuestionID string
	ShownAt    time.Time
	AnsweredAt time.Time
}

// SuspicionThresholds are the policy knobs of the analyzer. They are injected
// so scoring can be tuned without touching the capture pipeline.
type SuspicionThresholds struct {
	MinDwell         time.Duration
	MinStageDuration time.Duration
	UniformityCV     float64
	MinSamples       int
}

func DefaultSuspicionThresholds() SuspicionThresholds {
	return SuspicionThresholds{
		MinDwell:         800 * time.Millisecond,
		MinStageDuration: 10 * time.Second,
		UniformityCV:     0.10,
		MinSamples:       3,
	}
}

// SuspicionAnalyzer collects timing samples for the current stage and reduces
// them into a verdict. Timestamps in, verdict out; it holds no store handle.
type SuspicionAnalyzer struct {
	thresholds SuspicionThresholds
	now        func() time.Time
	samples    map[string]*TimingSample
}

func NewSuspicionAnalyzer(th SuspicionThresholds) *SuspicionAnalyzer {
	if th.MinSamples <= 0 {
		th = DefaultSuspicionThresholds()
	}
	return &SuspicionAnalyzer{
		thresholds: th,
		now:        func() time.Time { return time.Now().UTC() },
		samples:    map[string]*TimingSample{},
	}
}

// RecordQuestionStart notes the first exposure of a question. Repeat calls
// for the same id are no-ops.
func (a *SuspicionAnalyzer) RecordQuestionStart(id string) {
	if id == "" {
		return
	}
	if _, ok := a.samples[id]; ok {
		return
	}
	a.samples[id] = &TimingSample{QuestionID: id, ShownAt: a.now()}
}

// RecordQuestionAnswer notes when a question was answered, overwritten on
// every change; only the latest answer time is authoritative.
func (a *SuspicionAnalyzer) RecordQuestionAnswer(id string) {
	if id == "" {
		return
	}
	sm, ok := a.samples[id]
	if !ok {
		// Answer without an observed exposure still counts, with zero dwell.
		sm = &TimingSample{QuestionID: id, ShownAt: a.now()}
		a.samples[id] = sm
	}
	sm.AnsweredAt = a.now()
}

// Reset drops all samples, ready for the next stage.
func (a *SuspicionAnalyzer) Reset() {
	a.samples = map[string]*TimingSample{}
}

// Analyze reduces the stage's samples into a verdict. Called once per stage,
// immediately before submission. The verdict must never block submission.
func (a *SuspicionAnalyzer) Analyze() SuspicionVerdict {
	answered := make([]*TimingSample, 0, len(a.samples))
	for _, sm := range a.samples {
		if !sm.AnsweredAt.IsZero() {
			answered = append(answered, sm)
		}
	}
	if len(answered) == 0 {
		return SuspicionVerdict{Level: SuspicionNone}
	}
	sort.Slice(answered, func(i, j int) bool { return answered[i].AnsweredAt.Before(answered[j].AnsweredAt) })

	var reasons []string

	fast := 0
	for _, sm := range answered {
		if sm.AnsweredAt.Sub(sm.ShownAt) < a.thresholds.MinDwell {
			fast++
		}
	}
	if fast*2 >= len(answered) {
		reasons = append(reasons, "sub_human_dwell")
	}
	if fast == len(answered) && len(answered) >= a.thresholds.MinSamples {
		reasons = append(reasons, "all_answers_below_dwell_floor")
	}

	if len(answered) >= a.thresholds.MinSamples {
		gaps := make([]float64, 0, len(answered)-1)
		for i := 1; i < len(answered); i++ {
			gaps = append(gaps, answered[i].AnsweredAt.Sub(answered[i-1].AnsweredAt).Seconds())
		}
		if cv, ok := coefficientOfVariation(gaps); ok && cv < a.thresholds.UniformityCV {
			reasons = append(reasons, "uniform_inter_question_timing")
		}
	}

	first := answered[0].ShownAt
	for _, sm := range answered {
		if sm.ShownAt.Before(first) {
			first = sm.ShownAt
		}
	}
	span := answered[len(answered)-1].AnsweredAt.Sub(first)
	if span < a.thresholds.MinStageDuration {
		reasons = append(reasons, "stage_duration_below_floor")
	}

	return SuspicionVerdict{Level: levelForReasons(len(reasons)), Reasons: reasons}
}

func levelForReasons(n int) SuspicionLevel {
	switch {
	case n == 0:
		return SuspicionNone
	case n == 1:
		return SuspicionLow
	case n == 2:
		return SuspicionMedium
	default:
		return SuspicionHigh
	}
}

// coefficientOfVariation reports stddev/mean for positive-mean samples.
func coefficientOfVariation(xs []float64) (float64, bool) {
	if len(xs) < 2 {
		return 0, false
	}
	mean := 0.0
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	if mean <= 0 {
		// All answers in the same instant; maximally uniform.
		return 0, true
	}
	varsum := 0.0
	for _, x := range xs {
		d := x - mean
		varsum += d * d
	}
	return math.Sqrt(varsum/float64(len(xs))) / mean, true
}
