// Package config loads the study policy file. Suspicion thresholds and the
// reset countdown are policy knobs, kept out of the analyzer and guard so the
// scoring and pacing can be tuned without touching the pipeline.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/soaringpine/studyflow/internal/services"
)

// Config is the top-level structure of studyflow.yaml.
type Config struct {
	Addr                  string           `yaml:"addr"`
	DBPath                string           `yaml:"db_path"`
	StaticDir             string           `yaml:"static_dir"`
	ResetCountdownSeconds int              `yaml:"reset_countdown_seconds"`
	Suspicion             SuspicionConfig  `yaml:"suspicion"`
	Pagination            PaginationConfig `yaml:"pagination"`
}

// SuspicionConfig holds the timing heuristics' thresholds.
type SuspicionConfig struct {
	MinDwellMs      int     `yaml:"min_dwell_ms"`
	MinStageSeconds int     `yaml:"min_stage_seconds"`
	UniformityCV    float64 `yaml:"uniformity_cv"`
	MinSamples      int     `yaml:"min_samples"`
}

// PaginationConfig bounds read-back loops against the remote store.
type PaginationConfig struct {
	PageSize int `yaml:"page_size"`
	MaxPages int `yaml:"max_pages"`
}

// Default returns a Config populated with the shipped policy.
func Default() *Config {
	return &Config{
		Addr:                  ":8080",
		ResetCountdownSeconds: 10,
		Suspicion: SuspicionConfig{
			MinDwellMs:      800,
			MinStageSeconds: 10,
			UniformityCV:    0.10,
			MinSamples:      3,
		},
		Pagination: PaginationConfig{
			PageSize: services.DefaultPageSize,
			MaxPages: services.DefaultMaxPages,
		},
	}
}

// Load reads the policy file at path over the defaults. An empty path returns
// the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// SuspicionThresholds converts the policy file values into the analyzer's
// injected thresholds.
func (c *Config) SuspicionThresholds() services.SuspicionThresholds {
	return services.SuspicionThresholds{
		MinDwell:         time.Duration(c.Suspicion.MinDwellMs) * time.Millisecond,
		MinStageDuration: time.Duration(c.Suspicion.MinStageSeconds) * time.Second,
		UniformityCV:     c.Suspicion.UniformityCV,
		MinSamples:       c.Suspicion.MinSamples,
	}
}

// ResetCountdown returns the guard's violation countdown.
func (c *Config) ResetCountdown() time.Duration {
	return time.Duration(c.ResetCountdownSeconds) * time.Second
}
