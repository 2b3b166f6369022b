package api

import (
	"errors"
	"sync"
	"time"
)

type StudySession struct {
	ID               string     `json:"id"`
	SessionID        string     `json:"session_id"`
	Mode             string     `json:"mode"`
	StartedAt        time.Time  `json:"started_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	ValidationStatus string     `json:"validation_status"`
}

type ResponseRow struct {
	SessionID  string    `json:"session_id"`
	Category   string    `json:"category"`
	QuestionID string    `json:"question_id"`
	Answer     []string  `json:"answer"`
	CreatedAt  time.Time `json:"created_at"`
}

type Scenario struct {
	ScenarioID       string    `json:"scenario_id"`
	SessionID        string    `json:"session_id"`
	ConfidenceRating int       `json:"confidence_rating"`
	TrustRating      int       `json:"trust_rating"`
	EngagementRating int       `json:"engagement_rating"`
	GeneratedImages  []string  `json:"generated_images,omitempty"`
	CompletedAt      time.Time `json:"completed_at"`
}

type DialogueTurn struct {
	ScenarioID string    `json:"scenario_id"`
	Role       string    `json:"role"`
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
}

type AuditEntry struct {
	Time   time.Time `json:"time"`
	Actor  string    `json:"actor"`
	Action string    `json:"action"`
	Target string    `json:"target"`
	Note   string    `json:"note,omitempty"`
}

type AdminUser struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	PassHash  []byte    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// ErrUnknownSession models the foreign-key constraint of the remote schema:
// response and scenario rows require an existing session row.
var ErrUnknownSession = errors.New("unknown session")

type memoryStore struct {
	mu            sync.RWMutex
	sessions      map[string]*StudySession
	sessionOrder  []string
	responses     []*ResponseRow
	scenarios     map[string]*Scenario
	turns         map[string][]*DialogueTurn
	audit         []AuditEntry
	adminsByEmail map[string]*AdminUser
}

// NewMemoryStore returns an in-memory Store, used by tests and by the server
// when no database path is configured.
func NewMemoryStore() Store {
	return &memoryStore{
		sessions:      map[string]*StudySession{},
		scenarios:     map[string]*Scenario{},
		turns:         map[string][]*DialogueTurn{},
		adminsByEmail: map[string]*AdminUser{},
	}
}

// CreateStudySession is idempotent on session_id so a local-to-remote upgrade
// retry never creates a second row.
func (s *memoryStore) CreateStudySession(sess *StudySession) (*StudySession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.sessions[sess.SessionID]; ok {
		cp := *existing
		return &cp, nil
	}
	cp := *sess
	if cp.ValidationStatus == "" {
		cp.ValidationStatus = "pending"
	}
	s.sessions[cp.SessionID] = &cp
	s.sessionOrder = append(s.sessionOrder, cp.SessionID)
	out := cp
	return &out, nil
}

func (s *memoryStore) GetStudySession(sessionID string) (*StudySession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if sess, ok := s.sessions[sessionID]; ok {
		cp := *sess
		return &cp, nil
	}
	return nil, nil
}

func (s *memoryStore) MarkSessionCompleted(sessionID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return ErrUnknownSession
	}
	sess.CompletedAt = &at
	return nil
}

func (s *memoryStore) SetValidationStatus(sessionID, status string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return false, nil
	}
	sess.ValidationStatus = status
	return true, nil
}

func (s *memoryStore) ListStudySessions(from, to int) ([]*StudySession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	from, to = clampWindow(from, to, len(s.sessionOrder))
	out := make([]*StudySession, 0, to-from)
	for _, id := range s.sessionOrder[from:to] {
		cp := *s.sessions[id]
		out = append(out, &cp)
	}
	return out, nil
}

// ReplaceResponses upserts per (session, category, question): prior rows for
// the same keys are dropped before the new rows are appended.
func (s *memoryStore) ReplaceResponses(sessionID, category string, rows []*ResponseRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionID]; !ok {
		return ErrUnknownSession
	}
	replaced := map[string]bool{}
	for _, r := range rows {
		replaced[r.QuestionID] = true
	}
	kept := make([]*ResponseRow, 0, len(s.responses)+len(rows))
	for _, r := range s.responses {
		if r.SessionID == sessionID && r.Category == category && replaced[r.QuestionID] {
			continue
		}
		kept = append(kept, r)
	}
	for _, r := range rows {
		cp := *r
		cp.SessionID = sessionID
		cp.Category = category
		kept = append(kept, &cp)
	}
	s.responses = kept
	return nil
}

func (s *memoryStore) ListResponses(category string, from, to int) ([]*ResponseRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	matched := make([]*ResponseRow, 0, len(s.responses))
	for _, r := range s.responses {
		if r.Category == category {
			matched = append(matched, r)
		}
	}
	from, to = clampWindow(from, to, len(matched))
	out := make([]*ResponseRow, 0, to-from)
	for _, r := range matched[from:to] {
		cp := *r
		out = append(out, &cp)
	}
	return out, nil
}

func (s *memoryStore) ListResponsesBySession(sessionID string) ([]*ResponseRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*ResponseRow{}
	for _, r := range s.responses {
		if r.SessionID == sessionID {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *memoryStore) AddScenario(sc *Scenario) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sc.SessionID]; !ok {
		return ErrUnknownSession
	}
	cp := *sc
	s.scenarios[sc.ScenarioID] = &cp
	return nil
}

func (s *memoryStore) AddDialogueTurns(turns []*DialogueTurn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range turns {
		cp := *t
		s.turns[t.ScenarioID] = append(s.turns[t.ScenarioID], &cp)
	}
	return nil
}

func (s *memoryStore) ListDialogueTurns(scenarioID string) ([]*DialogueTurn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*DialogueTurn, 0, len(s.turns[scenarioID]))
	for _, t := range s.turns[scenarioID] {
		cp := *t
		out = append(out, &cp)
	}
	return out, nil
}

func (s *memoryStore) AddAudit(e AuditEntry) {
	s.mu.Lock()
	s.audit = append(s.audit, e)
	s.mu.Unlock()
}

func (s *memoryStore) ListAudit() []AuditEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]AuditEntry, len(s.audit))
	copy(out, s.audit)
	return out
}

func (s *memoryStore) AddAdmin(u *AdminUser) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.adminsByEmail[u.Email]; ok {
		return errors.New("email exists")
	}
	cp := *u
	s.adminsByEmail[u.Email] = &cp
	return nil
}

func (s *memoryStore) FindAdminByEmail(email string) (*AdminUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if u, ok := s.adminsByEmail[email]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

// clampWindow bounds [from, to) to n elements and the per-request row cap.
func clampWindow(from, to, n int) (int, int) {
	if from < 0 {
		from = 0
	}
	if to > from+MaxPageRows {
		to = from + MaxPageRows
	}
	if from > n {
		from = n
	}
	if to > n {
		to = n
	}
	if to < from {
		to = from
	}
	return from, to
}
