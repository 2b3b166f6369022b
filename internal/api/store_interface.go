package api

import "time"

// Store is the authoritative Remote Session Store contract. Reads that can
// grow unbounded take [from, to) windows; the server caps a single window at
// MaxPageRows rows.
type Store interface {
	CreateStudySession(s *StudySession) (*StudySession, error)
	GetStudySession(sessionID string) (*StudySession, error)
	MarkSessionCompleted(sessionID string, at time.Time) error
	SetValidationStatus(sessionID, status string) (bool, error)
	ListStudySessions(from, to int) ([]*StudySession, error)

	ReplaceResponses(sessionID, category string, rows []*ResponseRow) error
	ListResponses(category string, from, to int) ([]*ResponseRow, error)
	ListResponsesBySession(sessionID string) ([]*ResponseRow, error)

	AddScenario(sc *Scenario) error
	AddDialogueTurns(turns []*DialogueTurn) error
	ListDialogueTurns(scenarioID string) ([]*DialogueTurn, error)

	AddAudit(e AuditEntry)
	ListAudit() []AuditEntry

	AddAdmin(u *AdminUser) error
	FindAdminByEmail(email string) (*AdminUser, error)
}

// MaxPageRows is the server-enforced cap on one read window.
const MaxPageRows = 1000

var _ Store = (*memoryStore)(nil)
