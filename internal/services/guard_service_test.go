package services

import (
	"testing"
	"time"
)

func completedThrough(st Stage) *SessionState {
	state := NewSessionState()
	state.Condition = ConditionText
	idx := StageIndex(st)
	for i := 1; i <= idx; i++ {
		state.Completed[StageOrder[i]] = true
	}
	return state
}

func TestGuardAllowsEntryLevels(t *testing.T) {
	g := NewGuardService(0)
	state := NewSessionState()

	for _, st := range []Stage{StageWelcome, StageConsent} {
		if d := g.Guard(state, st); d.Action != DecisionAllow {
			t.Fatalf("fresh run: %s decision = %q, want allow", st, d.Action)
		}
	}
	if d := g.Guard(state, StageDemographics); d.Action != DecisionReset {
		t.Fatalf("demographics without consent marker = %q, want reset", d.Action)
	}
}

func TestGuardMonotonic(t *testing.T) {
	g := NewGuardService(0)
	// For every gap position i, no stage past the gap may be entered.
	for gap := 1; gap < len(StageOrder); gap++ {
		state := completedThrough(StageOrder[len(StageOrder)-1])
		delete(state.Completed, StageOrder[gap])
		for j := gap + 1; j < len(StageOrder); j++ {
			d := g.Guard(state, StageOrder[j])
			if d.Action == DecisionAllow {
				t.Fatalf("gap at %s: guard allowed %s", StageOrder[gap], StageOrder[j])
			}
		}
	}
}

func TestGuardFullProgression(t *testing.T) {
	g := NewGuardService(0)
	for i := 2; i < len(StageOrder); i++ {
		state := completedThrough(StageOrder[i-1])
		if d := g.Guard(state, StageOrder[i]); d.Action != DecisionAllow {
			t.Fatalf("%s with all prerequisites = %q, want allow", StageOrder[i], d.Action)
		}
	}
}

func TestGuardModeAssignmentNeedsCondition(t *testing.T) {
	g := NewGuardService(0)
	state := completedThrough(StagePretest)
	state.Condition = ""
	d := g.Guard(state, StageModeAssignment)
	if d.Action != DecisionRedirect || d.RedirectTo != StagePretest {
		t.Fatalf("mode-assignment without condition = %+v, want redirect to pretest", d)
	}

	state.Condition = ConditionAvatar
	if d := g.Guard(state, StageModeAssignment); d.Action != DecisionAllow {
		t.Fatalf("mode-assignment with condition = %q, want allow", d.Action)
	}
}

func TestGuardUnknownStageResets(t *testing.T) {
	g := NewGuardService(10 * time.Second)
	state := completedThrough(StageLearning)
	d := g.Guard(state, Stage("admin-backdoor"))
	if d.Action != DecisionReset {
		t.Fatalf("unknown stage = %q, want reset", d.Action)
	}
	if d.Countdown != 10*time.Second {
		t.Fatalf("countdown = %v, want 10s", d.Countdown)
	}
}

func TestFurthestStage(t *testing.T) {
	g := NewGuardService(0)
	if got := g.FurthestStage(NewSessionState()); got != StageConsent {
		t.Fatalf("fresh run furthest = %q, want consent", got)
	}
	state := completedThrough(StageDemographics)
	if got := g.FurthestStage(state); got != StagePretest {
		t.Fatalf("after demographics furthest = %q, want pretest", got)
	}
	state = completedThrough(StagePosttest3)
	if got := g.FurthestStage(state); got != StageCompletion {
		t.Fatalf("after posttest-3 furthest = %q, want completion", got)
	}
}
