package services

import (
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SessionStore abstracts the remote operations the lifecycle manager needs.
type SessionStore interface {
	CreateStudySession(s *StudySession) (*StudySession, error)
	AddAudit(entry AuditEntry)
}

// SessionHandle is returned by EnsureSession.
type SessionHandle struct {
	Token     string
	Condition Condition
	Origin    SessionOrigin
	Resumed   bool
}

// SessionService creates and resumes study sessions. Condition assignment is
// a uniform independent draw; no blocking or balancing across participants.
type SessionService struct {
	store SessionStore
	now   func() time.Time
	idGen func() string
	flip  func() Condition
}

func NewSessionService(store SessionStore) *SessionService {
	return &SessionService{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
		idGen: func() string { return strings.ReplaceAll(uuid.NewString(), "-", "")[:16] },
		flip: func() Condition {
			if rand.Intn(2) == 0 {
				return ConditionText
			}
			return ConditionAvatar
		},
	}
}

// EnsureSession resumes the session already held in state, or creates a new
// one. The token/condition pair is written once and never overwritten by a
// later call. Remote unavailability never blocks the protocol here: on a
// failed create the session continues under a locally synthesized token.
func (s *SessionService) EnsureSession(state *SessionState) (*SessionHandle, error) {
	if state == nil {
		return nil, NewInvalidError("session state required")
	}
	if state.Token != "" {
		return &SessionHandle{Token: state.Token, Condition: state.Condition, Origin: state.Origin, Resumed: true}, nil
	}

	cond := s.flip()
	startedAt := s.now()
	sess := &StudySession{
		ID:               s.idGen(),
		SessionID:        s.idGen(),
		Mode:             cond,
		StartedAt:        startedAt,
		ValidationStatus: ValidationPending,
	}

	stored, err := s.store.CreateStudySession(sess)
	if err != nil {
		token := s.fallbackToken(startedAt)
		log.Printf("session service: remote create failed, continuing with local token %s: %v", token, err)
		state.Token = token
		state.Origin = OriginLocal
		state.Condition = cond
		return &SessionHandle{Token: token, Condition: cond, Origin: OriginLocal}, nil
	}
	if stored != nil {
		sess = stored
	}

	state.Token = sess.SessionID
	state.Origin = OriginRemote
	state.Condition = cond
	s.store.AddAudit(AuditEntry{Time: s.now(), Actor: "participant", Action: "session_create", Target: sess.SessionID, Note: string(cond)})
	return &SessionHandle{Token: sess.SessionID, Condition: cond, Origin: OriginRemote}, nil
}

// UpgradeLocalSession attempts the one-time local-to-remote merge for a
// session that was created while the backend was unreachable. It keeps the
// locally issued token so already-buffered drafts stay addressable. A failed
// upgrade leaves the session local-only; callers log and move on.
func (s *SessionService) UpgradeLocalSession(state *SessionState) error {
	if state == nil || state.Origin != OriginLocal {
		return nil
	}
	if state.Token == "" {
		return ErrSessionLost
	}
	sess := &StudySession{
		ID:               s.idGen(),
		SessionID:        state.Token,
		Mode:             state.Condition,
		StartedAt:        s.now(),
		ValidationStatus: ValidationPending,
	}
	if _, err := s.store.CreateStudySession(sess); err != nil {
		return fmt.Errorf("upgrade local session %s: %w", state.Token, err)
	}
	state.Origin = OriginRemote
	s.store.AddAudit(AuditEntry{Time: s.now(), Actor: "participant", Action: "session_upgrade", Target: state.Token})
	return nil
}

func (s *SessionService) fallbackToken(at time.Time) string {
	return fmt.Sprintf("session-%d-%s", at.UnixMilli(), strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}
