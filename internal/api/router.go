package api

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/soaringpine/studyflow/internal/cache"
	"github.com/soaringpine/studyflow/internal/middleware"
	"github.com/soaringpine/studyflow/internal/services"
)

// Options tunes the router's services. Zero values fall back to defaults.
type Options struct {
	ResetCountdown time.Duration
	Suspicion      services.SuspicionThresholds
	PageSize       int
	MaxPages       int
	// RequiredQuestions lists the question ids each stage must answer.
	RequiredQuestions map[services.Stage][]string
}

// Router wires the study-flow services onto HTTP routes. Each browser tab
// identifies its run with an X-Run-ID header; the run's cache and timing
// analyzer live server-side keyed by that id.
type Router struct {
	store       Store
	registry    *cache.Registry
	sessions    *services.SessionService
	guard       *services.GuardService
	capture     *services.CaptureService
	transcripts *services.TranscriptService
	admin       *services.AdminService
	auth        *services.AuthService

	suspicion services.SuspicionThresholds

	mu        sync.Mutex
	analyzers map[string]*services.SuspicionAnalyzer
}

func NewRouter(store Store, opts Options) *Router {
	if opts.Suspicion.MinSamples <= 0 {
		opts.Suspicion = services.DefaultSuspicionThresholds()
	}
	sessions := services.NewSessionService(newSessionStoreAdapter(store))
	rt := &Router{
		store:       store,
		registry:    cache.NewRegistry(),
		sessions:    sessions,
		guard:       services.NewGuardService(opts.ResetCountdown),
		capture:     services.NewCaptureService(newCaptureStoreAdapter(store), opts.RequiredQuestions, sessions.UpgradeLocalSession),
		transcripts: services.NewTranscriptService(newTranscriptStoreAdapter(store)),
		admin:       services.NewAdminService(newAdminStoreAdapter(store), opts.PageSize, opts.MaxPages),
		auth:        services.NewAuthService(newAuthStoreAdapter(store), middleware.SignToken),
		suspicion:   opts.Suspicion,
		analyzers:   map[string]*services.SuspicionAnalyzer{},
	}
	return rt
}

func (rt *Router) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/session", rt.handleSession)                  // POST
	mux.HandleFunc("/api/session/complete", rt.handleComplete)        // POST
	mux.HandleFunc("/api/guard", rt.handleGuard)                      // GET
	mux.HandleFunc("/api/stages/", rt.handleStageScoped)              // POST /api/stages/{stage}/draft|submit
	mux.HandleFunc("/api/events/question", rt.handleQuestionEvent)    // POST
	mux.HandleFunc("/api/scenarios", rt.handleScenarios)              // POST
	mux.HandleFunc("/api/scenarios/", rt.handleScenarioScoped)        // POST /api/scenarios/{id}/turns
	mux.HandleFunc("/api/auth/register", rt.handleRegister)           // POST
	mux.HandleFunc("/api/auth/login", rt.handleLogin)                 // POST
	adminOnly := middleware.WithAuth(middleware.RequireAuth(http.HandlerFunc(rt.handleAdmin)))
	mux.Handle("/api/admin/", adminOnly)
}

func (rt *Router) analyzer(runID string) *services.SuspicionAnalyzer {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	a, ok := rt.analyzers[runID]
	if !ok {
		a = services.NewSuspicionAnalyzer(rt.suspicion)
		rt.analyzers[runID] = a
	}
	return a
}

func (rt *Router) dropAnalyzer(runID string) {
	rt.mu.Lock()
	delete(rt.analyzers, runID)
	rt.mu.Unlock()
}

func runID(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get("X-Run-ID")); id != "" {
		return id
	}
	return strings.TrimSpace(r.URL.Query().Get("run_id"))
}

// POST /api/session — create or resume the run's session.
func (rt *Router) handleSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := runID(r)
	if id == "" {
		http.Error(w, "run id required", http.StatusBadRequest)
		return
	}
	run := rt.registry.Run(id)
	state, err := run.LoadState()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	handle, err := rt.sessions.EnsureSession(state)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if err := run.SaveState(state); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{
		"token":     handle.Token,
		"condition": handle.Condition,
		"origin":    handle.Origin,
		"resumed":   handle.Resumed,
	})
}

// GET /api/guard?stage=... — navigation decision for the target stage.
// A reset decision clears the run's cache after reporting the countdown.
func (rt *Router) handleGuard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := runID(r)
	if id == "" {
		http.Error(w, "run id required", http.StatusBadRequest)
		return
	}
	run := rt.registry.Run(id)
	state, err := run.LoadState()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	target := services.Stage(r.URL.Query().Get("stage"))
	decision := rt.guard.Guard(state, target)

	resp := map[string]any{"action": decision.Action}
	switch decision.Action {
	case services.DecisionRedirect:
		resp["redirect_to"] = decision.RedirectTo
	case services.DecisionReset:
		resp["countdown_seconds"] = int(decision.Countdown.Seconds())
		resp["redirect_to"] = services.StageWelcome
		resp["message"] = "you appear to have skipped ahead; the session will restart"
		run.Clear()
		rt.dropAnalyzer(id)
	}
	writeJSON(w, resp)
}

type batchPayload struct {
	Answers map[string][]string `json:"answers"`
}

func (p batchPayload) batch() services.ResponseBatch {
	out := services.ResponseBatch{}
	for id, values := range p.Answers {
		out[id] = services.Answer{Values: values}
	}
	return out
}

// POST /api/stages/{stage}/draft and /api/stages/{stage}/submit
func (rt *Router) handleStageScoped(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/api/stages/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 {
		http.NotFound(w, r)
		return
	}
	stage := services.Stage(parts[0])
	id := runID(r)
	if id == "" {
		http.Error(w, "run id required", http.StatusBadRequest)
		return
	}
	var payload batchPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	run := rt.registry.Run(id)
	state, err := run.LoadState()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	switch parts[1] {
	case "draft":
		if err := rt.capture.SaveDraft(state, stage, payload.batch()); err != nil {
			writeServiceError(w, err)
			return
		}
	case "submit":
		analyzer := rt.analyzer(id)
		verdict := analyzer.Analyze()
		err := rt.capture.SubmitStage(state, stage, payload.batch(), &verdict)
		if err != nil {
			// Persist the retained draft before reporting the failure.
			_ = run.SaveState(state)
			writeServiceError(w, err)
			return
		}
		analyzer.Reset()
	default:
		http.NotFound(w, r)
		return
	}

	if err := run.SaveState(state); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"ok": true, "stage": stage})
}

// POST /api/session/complete — the final, loud-on-failure submission.
func (rt *Router) handleComplete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := runID(r)
	if id == "" {
		http.Error(w, "run id required", http.StatusBadRequest)
		return
	}
	run := rt.registry.Run(id)
	state, err := run.LoadState()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if err := rt.capture.CompleteStudy(state); err != nil {
		if errors.Is(err, services.ErrSessionLost) {
			// No salvage path: the run restarts from welcome.
			run.Clear()
			rt.dropAnalyzer(id)
			http.Error(w, "session lost; the study must be restarted", http.StatusGone)
			return
		}
		writeServiceError(w, err)
		return
	}
	if err := run.SaveState(state); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"ok": true})
}

// POST /api/events/question — timing sample feed for the current stage.
func (rt *Router) handleQuestionEvent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := runID(r)
	if id == "" {
		http.Error(w, "run id required", http.StatusBadRequest)
		return
	}
	var req struct {
		QuestionID string `json:"question_id"`
		Kind       string `json:"kind"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	analyzer := rt.analyzer(id)
	switch req.Kind {
	case "shown":
		analyzer.RecordQuestionStart(req.QuestionID)
	case "answered":
		analyzer.RecordQuestionAnswer(req.QuestionID)
	default:
		http.Error(w, "kind must be shown or answered", http.StatusBadRequest)
		return
	}
	writeJSON(w, map[string]any{"ok": true})
}

// POST /api/scenarios — persist learning-stage ratings.
func (rt *Router) handleScenarios(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		SessionID  string   `json:"session_id"`
		ScenarioID string   `json:"scenario_id"`
		Confidence int      `json:"confidence_rating"`
		Trust      int      `json:"trust_rating"`
		Engagement int      `json:"engagement_rating"`
		Images     []string `json:"generated_images"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	ratings := services.ScenarioRatings{Confidence: req.Confidence, Trust: req.Trust, Engagement: req.Engagement}
	scenarioID, err := rt.transcripts.SaveScenario(req.SessionID, req.ScenarioID, ratings, req.Images)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, map[string]any{"scenario_id": scenarioID})
}

// POST /api/scenarios/{id}/turns — persist finished dialogue turns.
func (rt *Router) handleScenarioScoped(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/api/scenarios/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[1] != "turns" {
		http.NotFound(w, r)
		return
	}
	var req struct {
		Turns []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"turns"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	turns := make([]services.TurnInput, 0, len(req.Turns))
	for _, t := range req.Turns {
		turns = append(turns, services.TurnInput{Role: t.Role, Content: t.Content})
	}
	if err := rt.transcripts.AppendTurns(parts[0], turns); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, map[string]any{"ok": true})
}

func (rt *Router) handleRegister(w http.ResponseWriter, r *http.Request) {
	rt.handleAuth(w, r, rt.auth.Register)
}

func (rt *Router) handleLogin(w http.ResponseWriter, r *http.Request) {
	rt.handleAuth(w, r, rt.auth.Login)
}

func (rt *Router) handleAuth(w http.ResponseWriter, r *http.Request, fn func(email, password string) (*services.AuthResult, error)) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	res, err := fn(req.Email, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, map[string]any{
		"token":      res.Token,
		"user_id":    res.UserID,
		"expires_in": int(rt.auth.TokenTTL().Seconds()),
	})
}

// handleAdmin serves the read-only console surface plus validation updates.
func (rt *Router) handleAdmin(w http.ResponseWriter, r *http.Request) {
	actor := "admin"
	if c, ok := middleware.AdminFromContext(r.Context()); ok {
		actor = c.Email
	}
	path := strings.TrimPrefix(r.URL.Path, "/api/admin/")
	switch {
	case path == "sessions" && r.Method == http.MethodGet:
		rows, err := rt.admin.ListSessions()
		if err != nil {
			writeServiceError(w, err)
			return
		}
		out := make([]*StudySession, 0, len(rows))
		for _, s := range rows {
			out = append(out, toAPISession(s))
		}
		writeJSON(w, map[string]any{"sessions": out})
	case path == "responses" && r.Method == http.MethodGet:
		category := services.ResponseCategory(r.URL.Query().Get("category"))
		rows, err := rt.admin.ListResponses(category)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		out := make([]*ResponseRow, 0, len(rows))
		for _, row := range rows {
			out = append(out, toAPIRow(row))
		}
		writeJSON(w, map[string]any{"responses": out})
	case strings.HasPrefix(path, "sessions/") && strings.HasSuffix(path, "/responses") && r.Method == http.MethodGet:
		sessionID := strings.TrimSuffix(strings.TrimPrefix(path, "sessions/"), "/responses")
		rows, err := rt.admin.SessionResponses(sessionID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		out := make([]*ResponseRow, 0, len(rows))
		for _, row := range rows {
			out = append(out, toAPIRow(row))
		}
		writeJSON(w, map[string]any{"responses": out})
	case strings.HasPrefix(path, "scenarios/") && strings.HasSuffix(path, "/turns") && r.Method == http.MethodGet:
		scenarioID := strings.TrimSuffix(strings.TrimPrefix(path, "scenarios/"), "/turns")
		turns, err := rt.admin.Transcript(scenarioID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		out := make([]*DialogueTurn, 0, len(turns))
		for _, t := range turns {
			out = append(out, toAPITurn(t))
		}
		writeJSON(w, map[string]any{"turns": out})
	case path == "export" && r.Method == http.MethodGet:
		category := services.ResponseCategory(r.URL.Query().Get("category"))
		rows, err := rt.admin.ListResponses(category)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", "attachment; filename=responses.csv")
		cw := csv.NewWriter(w)
		_ = cw.Write([]string{"session_id", "category", "question_id", "answer", "created_at"})
		for _, row := range rows {
			_ = cw.Write([]string{
				row.SessionID,
				string(row.Category),
				row.QuestionID,
				services.RenderAnswer(row.Answer),
				row.CreatedAt.Format(time.RFC3339),
			})
		}
		cw.Flush()
	case path == "audit" && r.Method == http.MethodGet:
		entries := rt.admin.ListAudit()
		out := make([]AuditEntry, 0, len(entries))
		for _, e := range entries {
			out = append(out, toAPIAudit(e))
		}
		writeJSON(w, map[string]any{"audit": out})
	case strings.HasSuffix(path, "/validation") && r.Method == http.MethodPost:
		sessionID := strings.TrimSuffix(strings.TrimPrefix(path, "sessions/"), "/validation")
		var req struct {
			Status string `json:"status"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := rt.admin.SetValidationStatus(sessionID, services.ValidationStatus(req.Status), actor); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, map[string]any{"ok": true})
	default:
		http.NotFound(w, r)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeServiceError(w http.ResponseWriter, err error) {
	if errors.Is(err, services.ErrSessionLost) {
		http.Error(w, "session lost; the study must be restarted", http.StatusGone)
		return
	}
	if se, ok := services.AsServiceError(err); ok {
		status := http.StatusInternalServerError
		switch se.Code {
		case services.ErrorInvalid:
			status = http.StatusBadRequest
		case services.ErrorForbidden:
			status = http.StatusForbidden
		case services.ErrorNotFound:
			status = http.StatusNotFound
		case services.ErrorConflict:
			status = http.StatusConflict
		case services.ErrorUnauthorized:
			status = http.StatusUnauthorized
		case services.ErrorBadGateway:
			// Transient backend failure: answers are retained, retry on the
			// next continue.
			status = http.StatusBadGateway
		}
		http.Error(w, se.Message, status)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}
