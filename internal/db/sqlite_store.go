package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/soaringpine/studyflow/internal/api"
)

// SQLiteStore is the durable implementation of the Remote Session Store.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, errors.New("nil db")
	}
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}
	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("apply sqlite pragma %q: %w", stmt, err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

func NewStore(db *sql.DB) (api.Store, error) {
	return NewSQLiteStore(db)
}

var _ api.Store = (*SQLiteStore)(nil)

func toNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func toNullString(s string) sql.NullString {
	if strings.TrimSpace(s) == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func encodeStringList(values []string) (sql.NullString, error) {
	if values == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(values)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func decodeStringList(ns sql.NullString) []string {
	if !ns.Valid || strings.TrimSpace(ns.String) == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(ns.String), &out); err != nil {
		log.Printf("sqlite store: decode string list: %v", err)
		return nil
	}
	return out
}

// CreateStudySession inserts the session row, returning the stored row when a
// row with the same session_id already exists so upgrade retries stay
// idempotent.
func (s *SQLiteStore) CreateStudySession(sess *api.StudySession) (*api.StudySession, error) {
	status := sess.ValidationStatus
	if status == "" {
		status = "pending"
	}
	_, err := s.db.Exec(
		`INSERT INTO study_sessions (id, session_id, mode, started_at, completed_at, validation_status)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (session_id) DO NOTHING`,
		sess.ID, sess.SessionID, sess.Mode, sess.StartedAt, toNullTime(sess.CompletedAt), status,
	)
	if err != nil {
		return nil, fmt.Errorf("insert study session: %w", err)
	}
	return s.GetStudySession(sess.SessionID)
}

func (s *SQLiteStore) GetStudySession(sessionID string) (*api.StudySession, error) {
	row := s.db.QueryRow(
		`SELECT id, session_id, mode, started_at, completed_at, validation_status
		 FROM study_sessions WHERE session_id = ?`, sessionID)
	var (
		sess        api.StudySession
		completedAt sql.NullTime
	)
	err := row.Scan(&sess.ID, &sess.SessionID, &sess.Mode, &sess.StartedAt, &completedAt, &sess.ValidationStatus)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get study session: %w", err)
	}
	if completedAt.Valid {
		t := completedAt.Time
		sess.CompletedAt = &t
	}
	return &sess, nil
}

// MarkSessionCompleted writes completed_at only; validation_status stays
// untouched so admin decisions survive resubmission.
func (s *SQLiteStore) MarkSessionCompleted(sessionID string, at time.Time) error {
	res, err := s.db.Exec(`UPDATE study_sessions SET completed_at = ? WHERE session_id = ?`, at, sessionID)
	if err != nil {
		return fmt.Errorf("mark session completed: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return api.ErrUnknownSession
	}
	return nil
}

func (s *SQLiteStore) SetValidationStatus(sessionID, status string) (bool, error) {
	res, err := s.db.Exec(`UPDATE study_sessions SET validation_status = ? WHERE session_id = ?`, status, sessionID)
	if err != nil {
		return false, fmt.Errorf("set validation status: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (s *SQLiteStore) ListStudySessions(from, to int) ([]*api.StudySession, error) {
	from, limit := windowToLimit(from, to)
	rows, err := s.db.Query(
		`SELECT id, session_id, mode, started_at, completed_at, validation_status
		 FROM study_sessions ORDER BY started_at, session_id LIMIT ? OFFSET ?`, limit, from)
	if err != nil {
		return nil, fmt.Errorf("list study sessions: %w", err)
	}
	defer rows.Close()
	var out []*api.StudySession
	for rows.Next() {
		var (
			sess        api.StudySession
			completedAt sql.NullTime
		)
		if err := rows.Scan(&sess.ID, &sess.SessionID, &sess.Mode, &sess.StartedAt, &completedAt, &sess.ValidationStatus); err != nil {
			return nil, fmt.Errorf("scan study session: %w", err)
		}
		if completedAt.Valid {
			t := completedAt.Time
			sess.CompletedAt = &t
		}
		out = append(out, &sess)
	}
	return out, rows.Err()
}

// ReplaceResponses upserts each row on (session_id, category, question_id),
// inside one transaction so a retried batch lands atomically.
func (s *SQLiteStore) ReplaceResponses(sessionID, category string, rows []*api.ResponseRow) error {
	sess, err := s.GetStudySession(sessionID)
	if err != nil {
		return err
	}
	if sess == nil {
		return api.ErrUnknownSession
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin replace responses: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	for _, r := range rows {
		answer, err := encodeStringList(r.Answer)
		if err != nil {
			return fmt.Errorf("encode answer for %s: %w", r.QuestionID, err)
		}
		_, err = tx.Exec(
			`INSERT INTO stage_responses (session_id, category, question_id, answer, created_at)
			 VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT (session_id, category, question_id)
			 DO UPDATE SET answer = excluded.answer, created_at = excluded.created_at`,
			sessionID, category, r.QuestionID, answer, r.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("upsert response %s: %w", r.QuestionID, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) ListResponses(category string, from, to int) ([]*api.ResponseRow, error) {
	from, limit := windowToLimit(from, to)
	rows, err := s.db.Query(
		`SELECT session_id, category, question_id, answer, created_at
		 FROM stage_responses WHERE category = ? ORDER BY id LIMIT ? OFFSET ?`, category, limit, from)
	if err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}
	defer rows.Close()
	return scanResponseRows(rows)
}

func (s *SQLiteStore) ListResponsesBySession(sessionID string) ([]*api.ResponseRow, error) {
	rows, err := s.db.Query(
		`SELECT session_id, category, question_id, answer, created_at
		 FROM stage_responses WHERE session_id = ? ORDER BY id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list responses by session: %w", err)
	}
	defer rows.Close()
	return scanResponseRows(rows)
}

func scanResponseRows(rows *sql.Rows) ([]*api.ResponseRow, error) {
	var out []*api.ResponseRow
	for rows.Next() {
		var (
			r      api.ResponseRow
			answer sql.NullString
		)
		if err := rows.Scan(&r.SessionID, &r.Category, &r.QuestionID, &answer, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan response row: %w", err)
		}
		r.Answer = decodeStringList(answer)
		out = append(out, &r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) AddScenario(sc *api.Scenario) error {
	images, err := encodeStringList(sc.GeneratedImages)
	if err != nil {
		return fmt.Errorf("encode generated images: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO scenarios (scenario_id, session_id, confidence_rating, trust_rating, engagement_rating, generated_images, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (scenario_id) DO UPDATE SET
		   confidence_rating = excluded.confidence_rating,
		   trust_rating = excluded.trust_rating,
		   engagement_rating = excluded.engagement_rating,
		   generated_images = excluded.generated_images,
		   completed_at = excluded.completed_at`,
		sc.ScenarioID, sc.SessionID, sc.ConfidenceRating, sc.TrustRating, sc.EngagementRating, images, sc.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert scenario: %w", err)
	}
	return nil
}

func (s *SQLiteStore) AddDialogueTurns(turns []*api.DialogueTurn) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin add dialogue turns: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	for _, t := range turns {
		if _, err := tx.Exec(
			`INSERT INTO dialogue_turns (scenario_id, role, content, timestamp) VALUES (?, ?, ?, ?)`,
			t.ScenarioID, t.Role, t.Content, t.Timestamp,
		); err != nil {
			return fmt.Errorf("insert dialogue turn: %w", err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) ListDialogueTurns(scenarioID string) ([]*api.DialogueTurn, error) {
	rows, err := s.db.Query(
		`SELECT scenario_id, role, content, timestamp FROM dialogue_turns WHERE scenario_id = ? ORDER BY id`, scenarioID)
	if err != nil {
		return nil, fmt.Errorf("list dialogue turns: %w", err)
	}
	defer rows.Close()
	var out []*api.DialogueTurn
	for rows.Next() {
		var t api.DialogueTurn
		if err := rows.Scan(&t.ScenarioID, &t.Role, &t.Content, &t.Timestamp); err != nil {
			return nil, fmt.Errorf("scan dialogue turn: %w", err)
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) AddAudit(e api.AuditEntry) {
	_, err := s.db.Exec(
		`INSERT INTO audit_log (time, actor, action, target, note) VALUES (?, ?, ?, ?, ?)`,
		e.Time, e.Actor, e.Action, e.Target, toNullString(e.Note),
	)
	if err != nil {
		log.Printf("sqlite store: add audit: %v", err)
	}
}

func (s *SQLiteStore) ListAudit() []api.AuditEntry {
	rows, err := s.db.Query(`SELECT time, actor, action, target, note FROM audit_log ORDER BY id`)
	if err != nil {
		log.Printf("sqlite store: list audit: %v", err)
		return nil
	}
	defer rows.Close()
	var out []api.AuditEntry
	for rows.Next() {
		var (
			e    api.AuditEntry
			note sql.NullString
		)
		if err := rows.Scan(&e.Time, &e.Actor, &e.Action, &e.Target, &note); err != nil {
			log.Printf("sqlite store: scan audit: %v", err)
			return out
		}
		e.Note = note.String
		out = append(out, e)
	}
	return out
}

func (s *SQLiteStore) AddAdmin(u *api.AdminUser) error {
	_, err := s.db.Exec(
		`INSERT INTO admin_users (id, email, pass_hash, created_at) VALUES (?, ?, ?, ?)`,
		u.ID, u.Email, u.PassHash, u.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert admin user: %w", err)
	}
	return nil
}

func (s *SQLiteStore) FindAdminByEmail(email string) (*api.AdminUser, error) {
	row := s.db.QueryRow(`SELECT id, email, pass_hash, created_at FROM admin_users WHERE email = ?`, email)
	var u api.AdminUser
	err := row.Scan(&u.ID, &u.Email, &u.PassHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find admin by email: %w", err)
	}
	return &u, nil
}

// windowToLimit converts a [from, to) window into OFFSET/LIMIT, applying the
// per-request row cap.
func windowToLimit(from, to int) (offset, limit int) {
	if from < 0 {
		from = 0
	}
	limit = to - from
	if limit < 0 {
		limit = 0
	}
	if limit > api.MaxPageRows {
		limit = api.MaxPageRows
	}
	return from, limit
}
