// Package tailer drives the tailing cursor over the chirp store.
//
// The Manager runs one long-lived loop: derive the resume position from
// the recent buffer, issue a bounded-wait query for newer records,
// deliver the delta to the buffer and hub, repeat. The loop never exits
// on store errors; transient faults announce an app_error and back off,
// while a store reset reissues from the zero position immediately.
package tailer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ajdavis/chirp/internal/chirpstore"
	"github.com/ajdavis/chirp/internal/hub"
	"github.com/ajdavis/chirp/internal/recent"
	logpkg "github.com/ajdavis/chirp/pkg/log"
	"github.com/ajdavis/chirp/pkg/id"
)

// Store is the slice of the chirp store the tail loop needs. Queries use
// the store's suspended wait so the loop never busy-polls.
type Store interface {
	QueryAfter(ctx context.Context, after id.ID, wait time.Duration) ([]chirpstore.Record, error)
	Reset(ctx context.Context) error
	Generation() uint64
}

// Emitter receives broadcast events; *hub.Hub satisfies it.
type Emitter interface {
	Emit(ev hub.Event)
}

// State reports what the tail loop is currently doing.
type State int

const (
	StateIdle State = iota
	StatePolling
	StateDelivering
	StateBackoff
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePolling:
		return "polling"
	case StateDelivering:
		return "delivering"
	case StateBackoff:
		return "backoff"
	default:
		return "unknown"
	}
}

// Options configures a Manager.
type Options struct {
	// PollWait bounds each suspended query; defaults to one second.
	PollWait time.Duration
	// Backoff is the fixed pause after a transient store fault; defaults
	// to one second.
	Backoff time.Duration
	Logger  logpkg.Logger
}

// Manager owns the tail loop and the board reset path.
type Manager struct {
	store    Store
	buf      *recent.Buffer
	emitter  Emitter
	logger   logpkg.Logger
	pollWait time.Duration
	backoff  time.Duration

	// deliverMu orders buffer writes against Reset so a stale batch can
	// never land after the buffer was cleared.
	deliverMu sync.Mutex

	stateMu sync.Mutex
	state   State
}

// New creates a Manager. The buffer's newest record is the resume
// position, so restarting the manager against a warm buffer picks up
// exactly where the previous run stopped.
func New(store Store, buf *recent.Buffer, emitter Emitter, opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = logpkg.NewLogger(logpkg.WithLevel(logpkg.ErrorLevel))
	}
	pollWait := opts.PollWait
	if pollWait <= 0 {
		pollWait = time.Second
	}
	backoff := opts.Backoff
	if backoff <= 0 {
		backoff = time.Second
	}
	return &Manager{
		store:    store,
		buf:      buf,
		emitter:  emitter,
		logger:   logger.With(logpkg.Component("tailer")),
		pollWait: pollWait,
		backoff:  backoff,
	}
}

// State returns the loop's current state.
func (m *Manager) State() State {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	return m.state
}

func (m *Manager) setState(s State) {
	m.stateMu.Lock()
	m.state = s
	m.stateMu.Unlock()
}

// Run executes the tail loop until ctx is done. It always returns ctx's
// error; no store condition terminates it.
func (m *Manager) Run(ctx context.Context) error {
	defer m.setState(StateIdle)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		after, _ := m.buf.Last()
		startGen := m.store.Generation()

		m.setState(StatePolling)
		recs, err := m.store.QueryAfter(ctx, after, m.pollWait)
		switch {
		case err == nil:
			if len(recs) > 0 {
				m.deliver(startGen, recs)
			}
		case errors.Is(err, chirpstore.ErrInvalidated):
			// The position we queried from is gone. Reset already
			// cleared the buffer, so the next iteration naturally
			// reissues from the zero position. No backoff, no error
			// broadcast: a reset is not a fault.
			m.logger.Debug("query invalidated by reset")
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return ctx.Err()
		default:
			m.setState(StateBackoff)
			m.logger.Warn("tail query failed", logpkg.Err(err))
			m.emitter.Emit(hub.Event{Name: hub.EventAppError, Message: err.Error()})
			if !sleepCtx(ctx, m.backoff) {
				return ctx.Err()
			}
		}
	}
}

// deliver appends a batch to the buffer and broadcasts it, unless a
// reset bumped the generation since the query was issued.
func (m *Manager) deliver(startGen uint64, recs []chirpstore.Record) {
	m.deliverMu.Lock()
	defer m.deliverMu.Unlock()
	if m.store.Generation() != startGen {
		m.logger.Debug("discarding stale batch", logpkg.Int("records", len(recs)))
		return
	}
	m.setState(StateDelivering)
	m.buf.Append(recs...)
	m.emitter.Emit(hub.Event{Name: hub.EventChirps, Records: recs})
}

// Attach hands fn the current recent window while delivery is paused.
// A subscriber registered inside fn, after queueing the snapshot, sees
// the snapshot and then every later delta exactly once, in order; a
// batch delivered concurrently either precedes the snapshot or follows
// the registration, never both.
func (m *Manager) Attach(fn func(snapshot []chirpstore.Record)) {
	m.deliverMu.Lock()
	defer m.deliverMu.Unlock()
	fn(m.buf.Snapshot())
}

// Reset clears the store and buffer and announces the cleared board.
// Holding deliverMu across the store reset guarantees any concurrently
// delivered batch either lands before the clear or is discarded by its
// generation check.
func (m *Manager) Reset(ctx context.Context) error {
	m.deliverMu.Lock()
	defer m.deliverMu.Unlock()
	if err := m.store.Reset(ctx); err != nil {
		return err
	}
	m.buf.Clear()
	m.emitter.Emit(hub.Event{Name: hub.EventCleared})
	m.logger.Info("board cleared")
	return nil
}

// sleepCtx pauses for d, returning false if ctx ended first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
