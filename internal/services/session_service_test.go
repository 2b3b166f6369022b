package services

import (
	"errors"
	"strings"
	"testing"
	"time"
)

type stubSessionStore struct {
	created  []*StudySession
	failWith error
	audit    []AuditEntry
}

func (s *stubSessionStore) CreateStudySession(sess *StudySession) (*StudySession, error) {
	if s.failWith != nil {
		return nil, s.failWith
	}
	cp := *sess
	s.created = append(s.created, &cp)
	return &cp, nil
}

func (s *stubSessionStore) AddAudit(entry AuditEntry) {
	s.audit = append(s.audit, entry)
}

func TestEnsureSessionIdempotentResume(t *testing.T) {
	store := &stubSessionStore{}
	svc := NewSessionService(store)
	state := NewSessionState()

	first, err := svc.EnsureSession(state)
	if err != nil {
		t.Fatalf("EnsureSession returned error: %v", err)
	}
	if first.Token == "" {
		t.Fatalf("expected a token")
	}
	if first.Resumed {
		t.Fatalf("first call must not report resumed")
	}

	second, err := svc.EnsureSession(state)
	if err != nil {
		t.Fatalf("EnsureSession (resume) returned error: %v", err)
	}
	if !second.Resumed {
		t.Fatalf("second call must report resumed")
	}
	if second.Token != first.Token || second.Condition != first.Condition {
		t.Fatalf("resume changed identity: %+v vs %+v", second, first)
	}
	if len(store.created) != 1 {
		t.Fatalf("sessions created = %d, want 1", len(store.created))
	}
}

func TestEnsureSessionFallsBackToLocalToken(t *testing.T) {
	store := &stubSessionStore{failWith: errors.New("backend down")}
	svc := NewSessionService(store)
	svc.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	state := NewSessionState()

	handle, err := svc.EnsureSession(state)
	if err != nil {
		t.Fatalf("EnsureSession must not fail on remote errors: %v", err)
	}
	if handle.Origin != OriginLocal {
		t.Fatalf("origin = %q, want local", handle.Origin)
	}
	if !strings.HasPrefix(handle.Token, "session-") {
		t.Fatalf("fallback token %q missing session- prefix", handle.Token)
	}
	if handle.Condition != ConditionText && handle.Condition != ConditionAvatar {
		t.Fatalf("condition %q not drawn", handle.Condition)
	}

	// The pair written on fallback must survive a later call unchanged even
	// once the backend recovers.
	store.failWith = nil
	resumed, err := svc.EnsureSession(state)
	if err != nil {
		t.Fatalf("resume returned error: %v", err)
	}
	if resumed.Token != handle.Token || resumed.Condition != handle.Condition {
		t.Fatalf("fallback identity overwritten: %+v vs %+v", resumed, handle)
	}
}

func TestConditionDrawIsBalanced(t *testing.T) {
	store := &stubSessionStore{}
	svc := NewSessionService(store)

	const trials = 10000
	text := 0
	for i := 0; i < trials; i++ {
		state := NewSessionState()
		handle, err := svc.EnsureSession(state)
		if err != nil {
			t.Fatalf("EnsureSession returned error: %v", err)
		}
		if handle.Condition == ConditionText {
			text++
		}
	}
	frac := float64(text) / float64(trials)
	if frac < 0.46 || frac > 0.54 {
		t.Fatalf("text fraction = %.4f, want near 0.5", frac)
	}
}

func TestUpgradeLocalSession(t *testing.T) {
	store := &stubSessionStore{failWith: errors.New("backend down")}
	svc := NewSessionService(store)
	state := NewSessionState()
	if _, err := svc.EnsureSession(state); err != nil {
		t.Fatalf("EnsureSession returned error: %v", err)
	}
	token := state.Token

	if err := svc.UpgradeLocalSession(state); err == nil {
		t.Fatalf("upgrade must fail while the backend is down")
	}
	if state.Origin != OriginLocal {
		t.Fatalf("failed upgrade must leave the session local-only")
	}

	store.failWith = nil
	if err := svc.UpgradeLocalSession(state); err != nil {
		t.Fatalf("upgrade returned error: %v", err)
	}
	if state.Origin != OriginRemote {
		t.Fatalf("origin = %q after upgrade, want remote", state.Origin)
	}
	if state.Token != token {
		t.Fatalf("upgrade changed the token: %q vs %q", state.Token, token)
	}
	if len(store.created) != 1 || store.created[0].SessionID != token {
		t.Fatalf("remote row not created under the local token")
	}

	// Upgrade is one-time; a second call is a no-op.
	if err := svc.UpgradeLocalSession(state); err != nil {
		t.Fatalf("repeat upgrade returned error: %v", err)
	}
	if len(store.created) != 1 {
		t.Fatalf("repeat upgrade created another row")
	}
}
