package api

import (
	"time"

	"github.com/soaringpine/studyflow/internal/services"
)

type captureStoreAdapter struct {
	store Store
}

func newCaptureStoreAdapter(store Store) services.CaptureStore {
	return &captureStoreAdapter{store: store}
}

func (a *captureStoreAdapter) ReplaceResponses(sessionID string, category services.ResponseCategory, rows []*services.ResponseRow) error {
	out := make([]*ResponseRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, toAPIRow(r))
	}
	return a.store.ReplaceResponses(sessionID, string(category), out)
}

func (a *captureStoreAdapter) MarkSessionCompleted(sessionID string, at time.Time) error {
	return a.store.MarkSessionCompleted(sessionID, at)
}

func (a *captureStoreAdapter) AddAudit(entry services.AuditEntry) {
	a.store.AddAudit(toAPIAudit(entry))
}

var _ services.CaptureStore = (*captureStoreAdapter)(nil)
