package main

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"os"

	_ "github.com/mattn/go-sqlite3"

	"github.com/soaringpine/studyflow/internal/api"
	"github.com/soaringpine/studyflow/internal/config"
	"github.com/soaringpine/studyflow/internal/db"
	"github.com/soaringpine/studyflow/internal/middleware"
	"github.com/soaringpine/studyflow/internal/services"
	"github.com/soaringpine/studyflow/internal/utils"
)

// requiredQuestions lists the question ids each protocol stage must answer
// before its batch may be submitted.
var requiredQuestions = map[services.Stage][]string{
	services.StageDemographics: {"age", "gender", "education", "prior_ai_experience"},
	services.StagePretest:      {"pre_q1", "pre_q2", "pre_q3", "pre_q4", "pre_q5"},
	services.StagePosttest1:    {"post_k1", "post_k2", "post_k3", "post_k4", "post_k5"},
	services.StagePosttest2:    {"post_x1", "post_x2", "post_x3", "post_x4"},
	services.StagePosttest3:    {"post_open1", "post_open2"},
}

func main() {
	cfg, err := config.Load(utils.SafeEnv("STUDYFLOW_CONFIG", ""))
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	addr := utils.SafeEnv("STUDYFLOW_ADDR", cfg.Addr)
	commit := os.Getenv("STUDYFLOW_COMMIT")
	buildTime := os.Getenv("STUDYFLOW_BUILD_TIME")

	store, err := openStore(cfg)
	if err != nil {
		log.Fatalf("store: %v", err)
	}

	mux := http.NewServeMux()
	router := api.NewRouter(store, api.Options{
		ResetCountdown:    utils.DurationEnv("STUDYFLOW_RESET_COUNTDOWN", cfg.ResetCountdown()),
		Suspicion:         cfg.SuspicionThresholds(),
		PageSize:          utils.IntEnv("STUDYFLOW_PAGE_SIZE", cfg.Pagination.PageSize),
		MaxPages:          utils.IntEnv("STUDYFLOW_MAX_PAGES", cfg.Pagination.MaxPages),
		RequiredQuestions: requiredQuestions,
	})
	router.Register(mux)

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":         true,
			"name":       "studyflow API",
			"commit":     commit,
			"build_time": buildTime,
		})
	})

	mux.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"commit":     commit,
			"build_time": buildTime,
		})
	})

	// Study frontend, when bundled into the image.
	if staticDir := utils.SafeEnv("STUDYFLOW_STATIC_DIR", cfg.StaticDir); staticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(staticDir)))
	}

	handler := middleware.CORS(middleware.SecureHeaders(middleware.NoStore(mux)))

	log.Printf("studyflow server listening on %s", addr)
	if err := http.ListenAndServe(addr, handler); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

// openStore opens the SQLite store when a database path is configured and
// falls back to the in-memory store otherwise.
func openStore(cfg *config.Config) (api.Store, error) {
	path := utils.SafeEnv("STUDYFLOW_DB", cfg.DBPath)
	if path == "" {
		log.Printf("no database configured, using in-memory store")
		return api.NewMemoryStore(), nil
	}
	sqlDB, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if err := db.RunMigrations(sqlDB, utils.SafeEnv("STUDYFLOW_MIGRATIONS_DIR", "")); err != nil {
		return nil, err
	}
	return db.NewStore(sqlDB)
}
