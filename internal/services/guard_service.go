package services

import "time"

// GuardAction is the navigation decision for one target stage.
type GuardAction string

const (
	DecisionAllow    GuardAction = "allow"
	DecisionRedirect GuardAction = "redirect"
	DecisionReset    GuardAction = "reset"
)

// GuardDecision carries the action plus its parameters. Reset decisions
// include the countdown shown before the run is cleared, giving the
// participant a chance to self-correct.
type GuardDecision struct {
	Action     GuardAction
	RedirectTo Stage
	Countdown  time.Duration
}

// GuardService enforces monotonic progression through the protocol. It only
// reads session state and issues navigation decisions; it never mutates
// remote state, and it never applies the reset itself.
type GuardService struct {
	resetCountdown time.Duration
}

func NewGuardService(resetCountdown time.Duration) *GuardService {
	if resetCountdown <= 0 {
		resetCountdown = 10 * time.Second
	}
	return &GuardService{resetCountdown: resetCountdown}
}

// Guard decides whether the participant may enter target. Unknown stages and
// skip-ahead attempts are protocol violations answered with a full reset, not
// a silent redirect. Mode-assignment without an assigned condition redirects
// back to pretest instead.
func (g *GuardService) Guard(state *SessionState, target Stage) GuardDecision {
	idx := StageIndex(target)
	if idx < 0 {
		return GuardDecision{Action: DecisionReset, Countdown: g.resetCountdown}
	}
	if state == nil {
		state = NewSessionState()
	}
	if idx > 1 {
		// Contiguity, not just the immediate predecessor: a gap anywhere
		// behind the target denies entry.
		if idx > StageIndex(g.FurthestStage(state)) {
			return GuardDecision{Action: DecisionReset, Countdown: g.resetCountdown}
		}
	}
	if target == StageModeAssignment && state.Condition == "" {
		return GuardDecision{Action: DecisionRedirect, RedirectTo: StagePretest}
	}
	return GuardDecision{Action: DecisionAllow}
}

// FurthestStage computes the furthest stage the participant may currently
// enter, scanning the completion markers in protocol order.
func (g *GuardService) FurthestStage(state *SessionState) Stage {
	if state == nil {
		return StageWelcome
	}
	furthest := StageConsent
	for i := 2; i < len(StageOrder); i++ {
		if !state.Completed[StageOrder[i-1]] {
			break
		}
		furthest = StageOrder[i]
	}
	return furthest
}
