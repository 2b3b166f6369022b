package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultPolicy(t *testing.T) {
	cfg := Default()
	if cfg.Addr != ":8080" {
		t.Fatalf("addr = %q, want :8080", cfg.Addr)
	}
	if cfg.ResetCountdown() != 10*time.Second {
		t.Fatalf("reset countdown = %v, want 10s", cfg.ResetCountdown())
	}
	th := cfg.SuspicionThresholds()
	if th.MinDwell != 800*time.Millisecond || th.MinStageDuration != 10*time.Second {
		t.Fatalf("thresholds = %+v", th)
	}
	if th.UniformityCV != 0.10 || th.MinSamples != 3 {
		t.Fatalf("thresholds = %+v", th)
	}
	if cfg.Pagination.PageSize != 1000 || cfg.Pagination.MaxPages != 50 {
		t.Fatalf("pagination = %+v", cfg.Pagination)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "studyflow.yaml")
	body := `
addr: ":9090"
reset_countdown_seconds: 5
suspicion:
  min_dwell_ms: 500
pagination:
  max_pages: 3
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Addr != ":9090" {
		t.Fatalf("addr = %q, want :9090", cfg.Addr)
	}
	if cfg.ResetCountdown() != 5*time.Second {
		t.Fatalf("reset countdown = %v, want 5s", cfg.ResetCountdown())
	}
	if got := cfg.SuspicionThresholds().MinDwell; got != 500*time.Millisecond {
		t.Fatalf("min dwell = %v, want 500ms", got)
	}
	// Keys absent from the file keep the shipped values.
	if cfg.SuspicionThresholds().MinSamples != 3 {
		t.Fatalf("min samples = %d, want default 3", cfg.SuspicionThresholds().MinSamples)
	}
	if cfg.Pagination.PageSize != 1000 || cfg.Pagination.MaxPages != 3 {
		t.Fatalf("pagination = %+v", cfg.Pagination)
	}
}

func TestLoadErrors(t *testing.T) {
	if cfg, err := Load(""); err != nil || cfg.Addr != ":8080" {
		t.Fatalf("empty path: cfg=%+v err=%v", cfg, err)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("missing file accepted")
	}
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("addr: [:::"), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("malformed yaml accepted")
	}
}
