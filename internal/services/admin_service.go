package services

import "time"

// AdminStore is the read/validation surface the admin console consumes.
type AdminStore interface {
	ListStudySessions(from, to int) ([]*StudySession, error)
	ListResponses(category ResponseCategory, from, to int) ([]*ResponseRow, error)
	ListResponsesBySession(sessionID string) ([]*ResponseRow, error)
	ListDialogueTurns(scenarioID string) ([]*DialogueTurn, error)
	SetValidationStatus(sessionID string, status ValidationStatus) (bool, error)
	ListAudit() []AuditEntry
	AddAudit(entry AuditEntry)
}

// AdminService exposes paginated read-back of study data and the
// validation-status workflow. Validation status is owned here; the capture
// pipeline never writes it.
type AdminService struct {
	store    AdminStore
	now      func() time.Time
	pageSize int
	maxPages int
}

func NewAdminService(store AdminStore, pageSize, maxPages int) *AdminService {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	return &AdminService{
		store:    store,
		now:      func() time.Time { return time.Now().UTC() },
		pageSize: pageSize,
		maxPages: maxPages,
	}
}

// ListSessions pages through all study sessions.
func (s *AdminService) ListSessions() ([]*StudySession, error) {
	return FetchAllPages(s.store.ListStudySessions, s.pageSize, s.maxPages)
}

// ListResponses pages through all persisted rows of one category.
func (s *AdminService) ListResponses(category ResponseCategory) ([]*ResponseRow, error) {
	switch category {
	case CategoryDemographics, CategoryPretest, CategoryPosttest:
	default:
		return nil, NewInvalidError("unknown response category")
	}
	fetch := func(from, to int) ([]*ResponseRow, error) {
		return s.store.ListResponses(category, from, to)
	}
	return FetchAllPages(fetch, s.pageSize, s.maxPages)
}

// SessionResponses returns every persisted row of one session, across all
// categories. Used by the console's per-participant drill-down.
func (s *AdminService) SessionResponses(sessionID string) ([]*ResponseRow, error) {
	if sessionID == "" {
		return nil, NewInvalidError("session_id required")
	}
	return s.store.ListResponsesBySession(sessionID)
}

// Transcript returns the persisted dialogue turns of one learning scenario.
func (s *AdminService) Transcript(scenarioID string) ([]*DialogueTurn, error) {
	if scenarioID == "" {
		return nil, NewInvalidError("scenario_id required")
	}
	return s.store.ListDialogueTurns(scenarioID)
}

// SetValidationStatus applies an admin decision to a session and audits it.
func (s *AdminService) SetValidationStatus(sessionID string, status ValidationStatus, actor string) error {
	if sessionID == "" {
		return NewInvalidError("session_id required")
	}
	switch status {
	case ValidationPending, ValidationPendingAccepted, ValidationPendingIgnored, ValidationAccepted, ValidationIgnored:
	default:
		return NewInvalidError("unknown validation status")
	}
	ok, err := s.store.SetValidationStatus(sessionID, status)
	if err != nil {
		return err
	}
	if !ok {
		return NewNotFoundError("session not found")
	}
	s.store.AddAudit(AuditEntry{Time: s.now(), Actor: actor, Action: "set_validation_status", Target: sessionID, Note: string(status)})
	return nil
}

// ListAudit returns the audit trail, suspicion verdicts included.
func (s *AdminService) ListAudit() []AuditEntry {
	return s.store.ListAudit()
}
