package config

import (
	"os"
	"strconv"
)

// FromEnv overlays CHIRP_* environment variables onto cfg.
func FromEnv(cfg *Config) {
	if v := os.Getenv("CHIRP_RECENT_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RecentSize = n
		}
	}
	if v := os.Getenv("CHIRP_STORE_CAP_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n >= 0 {
			cfg.Store.CapBytes = n
		}
	}
	if v := os.Getenv("CHIRP_STORE_CAP_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.Store.CapCount = n
		}
	}
	if v := os.Getenv("CHIRP_TAIL_POLL_WAIT_MS"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			cfg.Tail.PollWaitMs = n
		}
	}
	if v := os.Getenv("CHIRP_TAIL_BACKOFF_MS"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n >= 0 {
			cfg.Tail.BackoffMs = n
		}
	}
	if v := os.Getenv("CHIRP_SURFACE_WRITE_ERRORS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.SurfaceWriteErrors = b
		}
	}
}
