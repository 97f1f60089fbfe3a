package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration loaded from file/env.
type Config struct {
	// RecentSize is the capacity of the in-memory recent-chirps window.
	RecentSize int `json:"recentSize" yaml:"recentSize"`
	// Store holds capped-store retention limits.
	Store StoreConfig `json:"store" yaml:"store"`
	// Tail holds tailing-loop timing knobs.
	Tail TailConfig `json:"tail" yaml:"tail"`
	// SurfaceWriteErrors makes POST /new report append failures as 500s
	// instead of the reference fire-and-forget 200.
	SurfaceWriteErrors bool `json:"surfaceWriteErrors" yaml:"surfaceWriteErrors"`
}

// StoreConfig caps the backing store. Oldest records are trimmed first.
type StoreConfig struct {
	// CapBytes bounds total record bytes. 0 disables the byte cap.
	CapBytes int64 `json:"capBytes" yaml:"capBytes"`
	// CapCount bounds the record count. 0 disables the count cap.
	CapCount int `json:"capCount" yaml:"capCount"`
}

// TailConfig controls the tailing cursor manager's timing.
type TailConfig struct {
	// PollWaitMs bounds how long a poll may suspend waiting for new data.
	PollWaitMs int64 `json:"pollWaitMs" yaml:"pollWaitMs"`
	// BackoffMs is the fixed delay before retrying after a store error.
	BackoffMs int64 `json:"backoffMs" yaml:"backoffMs"`
}

// PollWait returns the poll wait as a duration.
func (t TailConfig) PollWait() time.Duration { return time.Duration(t.PollWaitMs) * time.Millisecond }

// Backoff returns the error backoff as a duration.
func (t TailConfig) Backoff() time.Duration { return time.Duration(t.BackoffMs) * time.Millisecond }

// Default returns built-in defaults. The 10000-byte store cap mirrors the
// original capped collection; the 1s poll wait and backoff are the
// reference tailing intervals.
func Default() Config {
	return Config{
		RecentSize: 20,
		Store: StoreConfig{
			CapBytes: 10000,
		},
		Tail: TailConfig{
			PollWaitMs: 1000,
			BackoffMs:  1000,
		},
	}
}

// Load reads configuration from a JSON or YAML file (by extension). If
// path is empty, returns defaults. Unset fields keep their defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := Default()
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	return cfg, nil
}
