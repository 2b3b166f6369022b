package services

import (
	"fmt"
	"testing"
)

type stubAdminStore struct {
	sessions  []*StudySession
	responses map[ResponseCategory][]*ResponseRow
	turns     map[string][]*DialogueTurn
	statuses  map[string]ValidationStatus
	audit     []AuditEntry
}

func (s *stubAdminStore) ListStudySessions(from, to int) ([]*StudySession, error) {
	if from > len(s.sessions) {
		from = len(s.sessions)
	}
	if to > len(s.sessions) {
		to = len(s.sessions)
	}
	return s.sessions[from:to], nil
}

func (s *stubAdminStore) ListResponses(category ResponseCategory, from, to int) ([]*ResponseRow, error) {
	rows := s.responses[category]
	if from > len(rows) {
		from = len(rows)
	}
	if to > len(rows) {
		to = len(rows)
	}
	return rows[from:to], nil
}

func (s *stubAdminStore) ListResponsesBySession(sessionID string) ([]*ResponseRow, error) {
	var out []*ResponseRow
	for _, rows := range s.responses {
		for _, r := range rows {
			if r.SessionID == sessionID {
				out = append(out, r)
			}
		}
	}
	return out, nil
}

func (s *stubAdminStore) ListDialogueTurns(scenarioID string) ([]*DialogueTurn, error) {
	return s.turns[scenarioID], nil
}

func (s *stubAdminStore) SetValidationStatus(sessionID string, status ValidationStatus) (bool, error) {
	if _, ok := s.statuses[sessionID]; !ok {
		return false, nil
	}
	s.statuses[sessionID] = status
	return true, nil
}

func (s *stubAdminStore) ListAudit() []AuditEntry { return s.audit }

func (s *stubAdminStore) AddAudit(entry AuditEntry) {
	s.audit = append(s.audit, entry)
}

func TestAdminListSessionsPagesThrough(t *testing.T) {
	store := &stubAdminStore{}
	for i := 0; i < 23; i++ {
		store.sessions = append(store.sessions, &StudySession{SessionID: fmt.Sprintf("s%02d", i)})
	}
	svc := NewAdminService(store, 10, 10)
	rows, err := svc.ListSessions()
	if err != nil {
		t.Fatalf("ListSessions returned error: %v", err)
	}
	if len(rows) != 23 {
		t.Fatalf("sessions = %d, want 23", len(rows))
	}
}

func TestAdminListResponsesValidatesCategory(t *testing.T) {
	store := &stubAdminStore{responses: map[ResponseCategory][]*ResponseRow{
		CategoryPretest: {{QuestionID: "q1"}, {QuestionID: "q2"}},
	}}
	svc := NewAdminService(store, 10, 10)

	rows, err := svc.ListResponses(CategoryPretest)
	if err != nil {
		t.Fatalf("ListResponses returned error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("responses = %d, want 2", len(rows))
	}
	if _, err := svc.ListResponses("likes"); err == nil {
		t.Fatalf("unknown category accepted")
	}
}

func TestAdminDrillDown(t *testing.T) {
	store := &stubAdminStore{
		responses: map[ResponseCategory][]*ResponseRow{
			CategoryDemographics: {{SessionID: "s1", QuestionID: "age"}},
			CategoryPosttest:     {{SessionID: "s1", QuestionID: "post_k1"}, {SessionID: "s2", QuestionID: "post_k1"}},
		},
		turns: map[string][]*DialogueTurn{
			"scen1": {{ScenarioID: "scen1", Role: "user", Content: "hi"}},
		},
	}
	svc := NewAdminService(store, 10, 10)

	rows, err := svc.SessionResponses("s1")
	if err != nil {
		t.Fatalf("SessionResponses returned error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("session rows = %d, want 2 across categories", len(rows))
	}
	if _, err := svc.SessionResponses(""); err == nil {
		t.Fatalf("empty session id accepted")
	}

	turns, err := svc.Transcript("scen1")
	if err != nil {
		t.Fatalf("Transcript returned error: %v", err)
	}
	if len(turns) != 1 {
		t.Fatalf("turns = %d, want 1", len(turns))
	}
	if _, err := svc.Transcript(""); err == nil {
		t.Fatalf("empty scenario id accepted")
	}
}

func TestAdminSetValidationStatus(t *testing.T) {
	store := &stubAdminStore{statuses: map[string]ValidationStatus{"s1": ValidationPending}}
	svc := NewAdminService(store, 10, 10)

	if err := svc.SetValidationStatus("s1", ValidationAccepted, "admin@lab.test"); err != nil {
		t.Fatalf("SetValidationStatus returned error: %v", err)
	}
	if store.statuses["s1"] != ValidationAccepted {
		t.Fatalf("status = %q, want accepted", store.statuses["s1"])
	}
	if len(store.audit) != 1 || store.audit[0].Action != "set_validation_status" {
		t.Fatalf("admin action not audited: %+v", store.audit)
	}

	if err := svc.SetValidationStatus("s1", "approved", "admin@lab.test"); err == nil {
		t.Fatalf("unknown status accepted")
	}
	if err := svc.SetValidationStatus("missing", ValidationIgnored, "admin@lab.test"); err == nil {
		t.Fatalf("unknown session accepted")
	}
}
