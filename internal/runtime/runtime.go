// Package runtime wires storage and configuration into one handle the
// server and CLI share: open the data directory once, hand out the store,
// close everything in order.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ajdavis/chirp/internal/chirpstore"
	"github.com/ajdavis/chirp/internal/config"
	pebblestore "github.com/ajdavis/chirp/internal/storage/pebble"
	logpkg "github.com/ajdavis/chirp/pkg/log"
)

// Options configures a Runtime.
type Options struct {
	// DataDir is the root data directory; empty means config.DefaultDataDir().
	DataDir string
	// Fsync selects the WAL sync policy for the store.
	Fsync pebblestore.FsyncMode
	// FsyncInterval applies when Fsync is FsyncModeInterval.
	FsyncInterval time.Duration
	// Config carries the board's tunables; zero-value fields are filled
	// from config.Default().
	Config *config.Config
	Logger logpkg.Logger
	// Metrics is an optional storage observation hook.
	Metrics pebblestore.MetricsHook
}

// Runtime owns the Pebble database and the store built on it.
type Runtime struct {
	dataDir string
	cfg     *config.Config
	logger  logpkg.Logger
	db      *pebblestore.DB

	mu     sync.Mutex
	store  *chirpstore.Store
	closed bool
}

// Open prepares the data directory and opens the database.
func Open(opts Options) (*Runtime, error) {
	dataDir := opts.DataDir
	if dataDir == "" {
		dataDir = config.DefaultDataDir()
	}
	cfg := opts.Config
	if cfg == nil {
		def := config.Default()
		cfg = &def
	}
	logger := opts.Logger
	if logger == nil {
		logger = logpkg.NewLogger()
	}

	pebbleDir := filepath.Join(dataDir, "pebble")
	if err := os.MkdirAll(pebbleDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	db, err := pebblestore.Open(pebblestore.Options{
		DataDir:       pebbleDir,
		Fsync:         opts.Fsync,
		FsyncInterval: opts.FsyncInterval,
		Metrics:       opts.Metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("open store db: %w", err)
	}

	logger.Info("runtime opened",
		logpkg.Component("runtime"),
		logpkg.Str("data_dir", dataDir))

	return &Runtime{
		dataDir: dataDir,
		cfg:     cfg,
		logger:  logger,
		db:      db,
	}, nil
}

// DataDir returns the runtime's root data directory.
func (r *Runtime) DataDir() string { return r.dataDir }

// Config returns the board configuration.
func (r *Runtime) Config() *config.Config { return r.cfg }

// DB returns the underlying storage wrapper.
func (r *Runtime) DB() *pebblestore.DB { return r.db }

// OpenStore returns the chirp store, creating it on first call.
func (r *Runtime) OpenStore() *chirpstore.Store {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.store == nil {
		r.store = chirpstore.Open(r.db, chirpstore.Options{
			CapBytes: r.cfg.Store.CapBytes,
			CapCount: r.cfg.Store.CapCount,
			Logger:   r.logger,
		})
	}
	return r.store
}

// CheckHealth probes the database with a read of a key that is allowed
// to be absent.
func (r *Runtime) CheckHealth(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	closed := r.closed
	r.mu.Unlock()
	if closed {
		return errors.New("runtime closed")
	}
	_, err := r.db.Get([]byte("meta/healthz"))
	if err != nil && !pebblestore.ErrNotFound(err) {
		return fmt.Errorf("storage probe: %w", err)
	}
	return nil
}

// Close releases the database. Safe to call more than once.
func (r *Runtime) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	return r.db.Close()
}
