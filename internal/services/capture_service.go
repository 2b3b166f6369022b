package services

import (
	"fmt"
	"log"
	"sort"
	"strings"
	"time"
)

// MultiSelectDelimiter is the legacy join sequence used by downstream CSV
// exports. Answers are stored as lists; the delimiter is reserved so the
// export rendering stays unambiguous.
const MultiSelectDelimiter = "|||"

// CaptureStore abstracts the remote writes of the capture pipeline.
// ReplaceResponses replaces any prior rows for the same (session, category,
// question) keys, so a retried batch never duplicates rows and the posttest
// pages sharing one category never clobber each other.
type CaptureStore interface {
	ReplaceResponses(sessionID string, category ResponseCategory, rows []*ResponseRow) error
	MarkSessionCompleted(sessionID string, at time.Time) error
	AddAudit(entry AuditEntry)
}

// CaptureService buffers drafts, validates batches and pushes them to the
// remote store on stage completion. Retry is driven by participant action:
// a failed submission keeps the draft and is re-attempted on the next
// continue, never by a background timer.
type CaptureService struct {
	store        CaptureStore
	now          func() time.Time
	required     map[Stage][]string
	upgradeLocal func(*SessionState) error
}

// NewCaptureService builds the pipeline. required lists the question ids each
// stage must answer before its batch may be submitted. upgradeLocal, if
// non-nil, is invoked before remote writes for local-only sessions (the
// one-time local-to-remote merge).
func NewCaptureService(store CaptureStore, required map[Stage][]string, upgradeLocal func(*SessionState) error) *CaptureService {
	return &CaptureService{
		store:        store,
		now:          func() time.Time { return time.Now().UTC() },
		required:     required,
		upgradeLocal: upgradeLocal,
	}
}

// SaveDraft buffers in-progress answers for a stage. Drafts live in the local
// cache only and are cleared once the stage persists remotely.
func (s *CaptureService) SaveDraft(state *SessionState, stage Stage, batch ResponseBatch) error {
	if state == nil {
		return NewInvalidError("session state required")
	}
	if StageIndex(stage) < 0 {
		return NewInvalidError("unknown stage")
	}
	if state.Completed[stage] {
		return NewConflictError("stage already submitted")
	}
	if state.Drafts == nil {
		state.Drafts = map[Stage]ResponseBatch{}
	}
	state.Drafts[stage] = batch
	return nil
}

// SubmitStage validates and persists the batch for one stage, then marks the
// stage complete and clears its draft. The suspicion verdict is forwarded as
// metadata: levels above none are audited regardless of the batch outcome,
// and the verdict never blocks or alters submission.
func (s *CaptureService) SubmitStage(state *SessionState, stage Stage, batch ResponseBatch, verdict *SuspicionVerdict) error {
	if state == nil {
		return NewInvalidError("session state required")
	}
	if state.Token == "" {
		return ErrSessionLost
	}
	idx := StageIndex(stage)
	if idx < 0 {
		return NewInvalidError("unknown stage")
	}

	if err := s.validateBatch(stage, batch); err != nil {
		return err
	}

	if verdict != nil && verdict.Level != SuspicionNone {
		s.store.AddAudit(AuditEntry{
			Time:   s.now(),
			Actor:  "suspicion-analyzer",
			Action: "suspicion_" + string(verdict.Level),
			Target: state.Token,
			Note:   fmt.Sprintf("%s: %s", stage, strings.Join(verdict.Reasons, ",")),
		})
	}

	if state.Origin == OriginLocal && s.upgradeLocal != nil {
		if err := s.upgradeLocal(state); err != nil {
			log.Printf("capture pipeline: local session not yet reconciled: %v", err)
		}
	}

	if category, ok := CategoryForStage(stage); ok {
		rows := s.buildRows(state.Token, category, batch)
		if err := s.store.ReplaceResponses(state.Token, category, rows); err != nil {
			// Draft stays; the next continue re-submits the same batch.
			return NewBadGatewayError(fmt.Sprintf("save %s responses: %v", stage, err))
		}
	}

	state.Completed[stage] = true
	delete(state.Drafts, stage)
	return nil
}

// CompleteStudy records the final completion timestamp. This is the one path
// where remote failure is fatal to the run: declaring completion without a
// persisted record would silently lose the dataset entry.
func (s *CaptureService) CompleteStudy(state *SessionState) error {
	if state == nil || state.Token == "" {
		return ErrSessionLost
	}
	if err := s.store.MarkSessionCompleted(state.Token, s.now()); err != nil {
		return NewBadGatewayError(fmt.Sprintf("complete study: %v", err))
	}
	state.Completed[StageCompletion] = true
	s.store.AddAudit(AuditEntry{Time: s.now(), Actor: "participant", Action: "study_complete", Target: state.Token})
	return nil
}

func (s *CaptureService) validateBatch(stage Stage, batch ResponseBatch) error {
	var missing []string
	for _, id := range s.required[stage] {
		if batch[id].Empty() {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return NewInvalidError("missing answers: " + strings.Join(missing, ", "))
	}
	for id, ans := range batch {
		for _, v := range ans.Values {
			if strings.Contains(v, MultiSelectDelimiter) {
				return NewInvalidError(fmt.Sprintf("question %s: %v", id, ErrReservedDelimiter))
			}
		}
	}
	return nil
}

// buildRows resubmits deterministically: question ids are sorted and empty
// answers are dropped before the per-question replacement write.
func (s *CaptureService) buildRows(sessionID string, category ResponseCategory, batch ResponseBatch) []*ResponseRow {
	ids := make([]string, 0, len(batch))
	for id := range batch {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	at := s.now()
	rows := make([]*ResponseRow, 0, len(ids))
	for _, id := range ids {
		ans := batch[id]
		if ans.Empty() {
			continue
		}
		rows = append(rows, &ResponseRow{
			SessionID:  sessionID,
			Category:   category,
			QuestionID: id,
			Answer:     append([]string(nil), ans.Values...),
			CreatedAt:  at,
		})
	}
	return rows
}

// RenderAnswer joins a stored answer list for export, the legacy delimited
// form consumed by the admin CSV path.
func RenderAnswer(values []string) string {
	return strings.Join(values, MultiSelectDelimiter)
}
