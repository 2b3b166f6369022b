package api

import "github.com/soaringpine/studyflow/internal/services"

type sessionStoreAdapter struct {
	store Store
}

func newSessionStoreAdapter(store Store) services.SessionStore {
	return &sessionStoreAdapter{store: store}
}

func (a *sessionStoreAdapter) CreateStudySession(s *services.StudySession) (*services.StudySession, error) {
	stored, err := a.store.CreateStudySession(toAPISession(s))
	if err != nil {
		return nil, err
	}
	return toServiceSession(stored), nil
}

func (a *sessionStoreAdapter) AddAudit(entry services.AuditEntry) {
	a.store.AddAudit(toAPIAudit(entry))
}

var _ services.SessionStore = (*sessionStoreAdapter)(nil)
