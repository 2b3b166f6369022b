package services

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Scenario is one learning-stage exercise with the participant's ratings.
type Scenario struct {
	ScenarioID       string
	SessionID        string
	ConfidenceRating int
	TrustRating      int
	EngagementRating int
	GeneratedImages  []string
	CompletedAt      time.Time
}

// DialogueTurn is one completed chat turn of a learning scenario. The LLM or
// avatar service streams the text; only the final turn is persisted here.
type DialogueTurn struct {
	ScenarioID string
	Role       string
	Content    string
	Timestamp  time.Time
}

type TranscriptStore interface {
	GetStudySession(sessionID string) (*StudySession, error)
	AddScenario(sc *Scenario) error
	AddDialogueTurns(turns []*DialogueTurn) error
	AddAudit(entry AuditEntry)
}

// ScenarioRatings carries the participant's self-reports for one scenario.
type ScenarioRatings struct {
	Confidence int
	Trust      int
	Engagement int
}

// TurnInput is one finished turn handed over by the chat collaborator.
type TurnInput struct {
	Role    string
	Content string
}

// TranscriptService persists learning-stage artifacts: scenario ratings and
// finished dialogue turns.
type TranscriptService struct {
	store TranscriptStore
	now   func() time.Time
	idGen func() string
}

func NewTranscriptService(store TranscriptStore) *TranscriptService {
	return &TranscriptService{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
		idGen: func() string { return strings.ReplaceAll(uuid.NewString(), "-", "")[:12] },
	}
}

// SaveScenario records the ratings for one completed scenario. Ratings use a
// 1..5 scale. Returns the scenario id (generated when absent).
func (s *TranscriptService) SaveScenario(sessionID, scenarioID string, ratings ScenarioRatings, images []string) (string, error) {
	if sessionID == "" {
		return "", NewInvalidError("session_id required")
	}
	for _, r := range []int{ratings.Confidence, ratings.Trust, ratings.Engagement} {
		if r < 1 || r > 5 {
			return "", NewInvalidError("ratings must be between 1 and 5")
		}
	}
	sess, err := s.store.GetStudySession(sessionID)
	if err != nil {
		return "", err
	}
	if sess == nil {
		return "", NewNotFoundError("session not found")
	}
	if scenarioID == "" {
		scenarioID = s.idGen()
	}
	sc := &Scenario{
		ScenarioID:       scenarioID,
		SessionID:        sessionID,
		ConfidenceRating: ratings.Confidence,
		TrustRating:      ratings.Trust,
		EngagementRating: ratings.Engagement,
		GeneratedImages:  append([]string(nil), images...),
		CompletedAt:      s.now(),
	}
	if err := s.store.AddScenario(sc); err != nil {
		return "", err
	}
	return scenarioID, nil
}

// AppendTurns persists finished dialogue turns for a scenario. Roles are
// restricted to the two sides of the conversation.
func (s *TranscriptService) AppendTurns(scenarioID string, turns []TurnInput) error {
	if scenarioID == "" {
		return NewInvalidError("scenario_id required")
	}
	if len(turns) == 0 {
		return NewInvalidError("at least one turn required")
	}
	at := s.now()
	rows := make([]*DialogueTurn, 0, len(turns))
	for _, t := range turns {
		if t.Role != "user" && t.Role != "assistant" {
			return NewInvalidError("role must be user or assistant")
		}
		if strings.TrimSpace(t.Content) == "" {
			return NewInvalidError("turn content required")
		}
		rows = append(rows, &DialogueTurn{ScenarioID: scenarioID, Role: t.Role, Content: t.Content, Timestamp: at})
	}
	return s.store.AddDialogueTurns(rows)
}
