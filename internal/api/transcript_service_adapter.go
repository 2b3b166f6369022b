package api

import "github.com/soaringpine/studyflow/internal/services"

type transcriptStoreAdapter struct {
	store Store
}

func newTranscriptStoreAdapter(store Store) services.TranscriptStore {
	return &transcriptStoreAdapter{store: store}
}

func (a *transcriptStoreAdapter) GetStudySession(sessionID string) (*services.StudySession, error) {
	sess, err := a.store.GetStudySession(sessionID)
	if err != nil {
		return nil, err
	}
	return toServiceSession(sess), nil
}

func (a *transcriptStoreAdapter) AddScenario(sc *services.Scenario) error {
	return a.store.AddScenario(&Scenario{
		ScenarioID:       sc.ScenarioID,
		SessionID:        sc.SessionID,
		ConfidenceRating: sc.ConfidenceRating,
		TrustRating:      sc.TrustRating,
		EngagementRating: sc.EngagementRating,
		GeneratedImages:  append([]string(nil), sc.GeneratedImages...),
		CompletedAt:      sc.CompletedAt,
	})
}

func (a *transcriptStoreAdapter) AddDialogueTurns(turns []*services.DialogueTurn) error {
	out := make([]*DialogueTurn, 0, len(turns))
	for _, t := range turns {
		out = append(out, toAPITurn(t))
	}
	return a.store.AddDialogueTurns(out)
}

func (a *transcriptStoreAdapter) AddAudit(entry services.AuditEntry) {
	a.store.AddAudit(toAPIAudit(entry))
}

var _ services.TranscriptStore = (*transcriptStoreAdapter)(nil)
