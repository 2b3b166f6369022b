package services

import "time"

// Stage is one fixed step of the research protocol.
type Stage string

const (
	StageWelcome        Stage = "welcome"
	StageConsent        Stage = "consent"
	StageDemographics   Stage = "demographics"
	StagePretest        Stage = "pretest"
	StageModeAssignment Stage = "mode-assignment"
	StageLearning       Stage = "learning"
	StagePosttest1      Stage = "posttest-1"
	StagePosttest2      Stage = "posttest-2"
	StagePosttest3      Stage = "posttest-3"
	StageCompletion     Stage = "completion"
)

// StageOrder is the fixed protocol order. Entry to StageOrder[i] requires the
// completion marker of StageOrder[i-1]; welcome and consent are exempt.
var StageOrder = []Stage{
	StageWelcome,
	StageConsent,
	StageDemographics,
	StagePretest,
	StageModeAssignment,
	StageLearning,
	StagePosttest1,
	StagePosttest2,
	StagePosttest3,
	StageCompletion,
}

// StageIndex returns the position of st in StageOrder, or -1 for unknown stages.
func StageIndex(st Stage) int {
	for i, s := range StageOrder {
		if s == st {
			return i
		}
	}
	return -1
}

// Condition is the experimental arm assigned to a participant.
type Condition string

const (
	ConditionText   Condition = "text"
	ConditionAvatar Condition = "avatar"
)

// SessionOrigin tags whether the authoritative session row exists remotely or
// only in the local cache after a failed remote create.
type SessionOrigin string

const (
	OriginRemote SessionOrigin = "remote"
	OriginLocal  SessionOrigin = "local"
)

// Answer holds one question's answer. Multi-select answers keep their
// selections as a list; no delimiter encoding happens at this layer.
type Answer struct {
	Values []string `json:"values"`
}

// Empty reports whether the answer carries no usable value.
func (a Answer) Empty() bool {
	if len(a.Values) == 0 {
		return true
	}
	for _, v := range a.Values {
		if v != "" {
			return false
		}
	}
	return true
}

// ResponseBatch maps question ids to answers for one stage. A batch is
// immutable once persisted remotely; later edits belong to a later stage.
type ResponseBatch map[string]Answer

// SessionState is the typed view of one run's working memory. Services receive
// it explicitly; the tab-scoped cache is only its serialization backend.
type SessionState struct {
	Token     string                  `json:"token"`
	Origin    SessionOrigin           `json:"origin"`
	Condition Condition               `json:"condition"`
	Drafts    map[Stage]ResponseBatch `json:"drafts"`
	Completed map[Stage]bool          `json:"completed"`
}

// NewSessionState returns an empty state for a fresh run.
func NewSessionState() *SessionState {
	return &SessionState{
		Drafts:    map[Stage]ResponseBatch{},
		Completed: map[Stage]bool{},
	}
}

// Reset clears every key of the current run, returning the participant to a
// blank welcome state. Partial credit for a broken run is never preserved.
func (st *SessionState) Reset() {
	st.Token = ""
	st.Origin = ""
	st.Condition = ""
	st.Drafts = map[Stage]ResponseBatch{}
	st.Completed = map[Stage]bool{}
}

// ResponseCategory buckets persisted responses the way the remote schema does.
type ResponseCategory string

const (
	CategoryDemographics ResponseCategory = "demographics"
	CategoryPretest      ResponseCategory = "pre_test"
	CategoryPosttest     ResponseCategory = "post_test"
)

// CategoryForStage maps a stage to its response category. Stages without
// question batches (welcome, consent, mode-assignment, learning, completion)
// report ok=false and are tracked by completion marker only.
func CategoryForStage(st Stage) (ResponseCategory, bool) {
	switch st {
	case StageDemographics:
		return CategoryDemographics, true
	case StagePretest:
		return CategoryPretest, true
	case StagePosttest1, StagePosttest2, StagePosttest3:
		return CategoryPosttest, true
	}
	return "", false
}

// ValidationStatus is owned by the admin console. The capture pipeline never
// writes it; it is carried here so resubmissions cannot clobber it.
type ValidationStatus string

const (
	ValidationPending         ValidationStatus = "pending"
	ValidationPendingAccepted ValidationStatus = "pending_accepted"
	ValidationPendingIgnored  ValidationStatus = "pending_ignored"
	ValidationAccepted        ValidationStatus = "accepted"
	ValidationIgnored         ValidationStatus = "ignored"
)

// StudySession mirrors the authoritative study_sessions row.
type StudySession struct {
	ID               string
	SessionID        string
	Mode             Condition
	StartedAt        time.Time
	CompletedAt      *time.Time
	ValidationStatus ValidationStatus
}

// ResponseRow is one persisted answer, scoped to a session and category.
type ResponseRow struct {
	SessionID  string
	Category   ResponseCategory
	QuestionID string
	Answer     []string
	CreatedAt  time.Time
}

type AuditEntry struct {
	Time   time.Time
	Actor  string
	Action string
	Target string
	Note   string
}
