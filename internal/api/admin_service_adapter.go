package api

import "github.com/soaringpine/studyflow/internal/services"

type adminStoreAdapter struct {
	store Store
}

func newAdminStoreAdapter(store Store) services.AdminStore {
	return &adminStoreAdapter{store: store}
}

func (a *adminStoreAdapter) ListStudySessions(from, to int) ([]*services.StudySession, error) {
	rows, err := a.store.ListStudySessions(from, to)
	if err != nil {
		return nil, err
	}
	out := make([]*services.StudySession, 0, len(rows))
	for _, r := range rows {
		out = append(out, toServiceSession(r))
	}
	return out, nil
}

func (a *adminStoreAdapter) ListResponses(category services.ResponseCategory, from, to int) ([]*services.ResponseRow, error) {
	rows, err := a.store.ListResponses(string(category), from, to)
	if err != nil {
		return nil, err
	}
	out := make([]*services.ResponseRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, toServiceRow(r))
	}
	return out, nil
}

func (a *adminStoreAdapter) ListResponsesBySession(sessionID string) ([]*services.ResponseRow, error) {
	rows, err := a.store.ListResponsesBySession(sessionID)
	if err != nil {
		return nil, err
	}
	out := make([]*services.ResponseRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, toServiceRow(r))
	}
	return out, nil
}

func (a *adminStoreAdapter) ListDialogueTurns(scenarioID string) ([]*services.DialogueTurn, error) {
	turns, err := a.store.ListDialogueTurns(scenarioID)
	if err != nil {
		return nil, err
	}
	out := make([]*services.DialogueTurn, 0, len(turns))
	for _, t := range turns {
		out = append(out, toServiceTurn(t))
	}
	return out, nil
}

func (a *adminStoreAdapter) SetValidationStatus(sessionID string, status services.ValidationStatus) (bool, error) {
	return a.store.SetValidationStatus(sessionID, string(status))
}

func (a *adminStoreAdapter) ListAudit() []services.AuditEntry {
	entries := a.store.ListAudit()
	out := make([]services.AuditEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, toServiceAudit(e))
	}
	return out
}

func (a *adminStoreAdapter) AddAudit(entry services.AuditEntry) {
	a.store.AddAudit(toAPIAudit(entry))
}

var _ services.AdminStore = (*adminStoreAdapter)(nil)
