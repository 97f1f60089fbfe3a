package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	if cfg.RecentSize != 20 {
		t.Fatalf("recent size: got %d", cfg.RecentSize)
	}
	if cfg.Store.CapBytes != 10000 {
		t.Fatalf("cap bytes: got %d", cfg.Store.CapBytes)
	}
	if cfg.Tail.PollWaitMs != 1000 || cfg.Tail.BackoffMs != 1000 {
		t.Fatalf("tail timing: %+v", cfg.Tail)
	}
	if cfg.SurfaceWriteErrors {
		t.Fatalf("fire-and-forget writes should be the default")
	}
}

func TestLoadJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chirp.json")
	body := `{"recentSize": 5, "store": {"capBytes": 2048, "capCount": 100}}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RecentSize != 5 || cfg.Store.CapBytes != 2048 || cfg.Store.CapCount != 100 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	// Unset fields keep defaults.
	if cfg.Tail.PollWaitMs != 1000 {
		t.Fatalf("poll wait default lost: %+v", cfg.Tail)
	}
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chirp.yaml")
	body := "recentSize: 7\ntail:\n  pollWaitMs: 250\n  backoffMs: 500\nsurfaceWriteErrors: true\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RecentSize != 7 || cfg.Tail.PollWaitMs != 250 || cfg.Tail.BackoffMs != 500 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if !cfg.SurfaceWriteErrors {
		t.Fatalf("surfaceWriteErrors not applied")
	}
}

func TestLoadMalformed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chirp.json")
	if err := os.WriteFile(path, []byte("{nope"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg != Default() {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("CHIRP_RECENT_SIZE", "3")
	t.Setenv("CHIRP_STORE_CAP_BYTES", "4096")
	t.Setenv("CHIRP_TAIL_BACKOFF_MS", "100")
	t.Setenv("CHIRP_SURFACE_WRITE_ERRORS", "true")
	cfg := Default()
	FromEnv(&cfg)
	if cfg.RecentSize != 3 || cfg.Store.CapBytes != 4096 || cfg.Tail.BackoffMs != 100 {
		t.Fatalf("env overlay not applied: %+v", cfg)
	}
	if !cfg.SurfaceWriteErrors {
		t.Fatalf("bool overlay not applied")
	}
}

func TestFromEnvIgnoresInvalid(t *testing.T) {
	t.Setenv("CHIRP_RECENT_SIZE", "not-a-number")
	cfg := Default()
	FromEnv(&cfg)
	if cfg.RecentSize != 20 {
		t.Fatalf("invalid value should keep default, got %d", cfg.RecentSize)
	}
}
