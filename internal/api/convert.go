package api

import "github.com/soaringpine/studyflow/internal/services"

func toAPISession(s *services.StudySession) *StudySession {
	if s == nil {
		return nil
	}
	return &StudySession{
		ID:               s.ID,
		SessionID:        s.SessionID,
		Mode:             string(s.Mode),
		StartedAt:        s.StartedAt,
		CompletedAt:      s.CompletedAt,
		ValidationStatus: string(s.ValidationStatus),
	}
}

func toServiceSession(s *StudySession) *services.StudySession {
	if s == nil {
		return nil
	}
	return &services.StudySession{
		ID:               s.ID,
		SessionID:        s.SessionID,
		Mode:             services.Condition(s.Mode),
		StartedAt:        s.StartedAt,
		CompletedAt:      s.CompletedAt,
		ValidationStatus: services.ValidationStatus(s.ValidationStatus),
	}
}

func toAPIRow(r *services.ResponseRow) *ResponseRow {
	return &ResponseRow{
		SessionID:  r.SessionID,
		Category:   string(r.Category),
		QuestionID: r.QuestionID,
		Answer:     append([]string(nil), r.Answer...),
		CreatedAt:  r.CreatedAt,
	}
}

func toServiceRow(r *ResponseRow) *services.ResponseRow {
	return &services.ResponseRow{
		SessionID:  r.SessionID,
		Category:   services.ResponseCategory(r.Category),
		QuestionID: r.QuestionID,
		Answer:     append([]string(nil), r.Answer...),
		CreatedAt:  r.CreatedAt,
	}
}

func toAPITurn(t *services.DialogueTurn) *DialogueTurn {
	return &DialogueTurn{ScenarioID: t.ScenarioID, Role: t.Role, Content: t.Content, Timestamp: t.Timestamp}
}

func toServiceTurn(t *DialogueTurn) *services.DialogueTurn {
	return &services.DialogueTurn{ScenarioID: t.ScenarioID, Role: t.Role, Content: t.Content, Timestamp: t.Timestamp}
}

func toAPIAudit(e services.AuditEntry) AuditEntry {
	return AuditEntry{Time: e.Time, Actor: e.Actor, Action: e.Action, Target: e.Target, Note: e.Note}
}

func toServiceAudit(e AuditEntry) services.AuditEntry {
	return services.AuditEntry{Time: e.Time, Actor: e.Actor, Action: e.Action, Target: e.Target, Note: e.Note}
}
