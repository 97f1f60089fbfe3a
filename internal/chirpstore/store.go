package chirpstore

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"

	pebblestore "github.com/ajdavis/chirp/internal/storage/pebble"
	logpkg "github.com/ajdavis/chirp/pkg/log"
	"github.com/ajdavis/chirp/pkg/id"
)

// Options configures a Store.
type Options struct {
	// CapBytes bounds total record bytes; 0 disables the byte cap.
	CapBytes int64
	// CapCount bounds the record count; 0 disables the count cap.
	CapCount int
	// Logger is optional; trim failures are logged through it.
	Logger logpkg.Logger
}

// Store provides append, bounded-wait tail reads, and reset over the
// capped chirp keyspace.
type Store struct {
	db     *pebblestore.DB
	logger logpkg.Logger
	gen    *id.Generator

	capBytes int64
	capCount int

	mu         sync.Mutex
	notifyCh   chan struct{}
	generation uint64
}

// Open initializes a Store over an open Pebble wrapper.
func Open(db *pebblestore.DB, opts Options) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = logpkg.NewLogger(logpkg.WithLevel(logpkg.ErrorLevel))
	}
	return &Store{
		db:       db,
		logger:   logger.With(logpkg.Component("chirpstore")),
		gen:      id.NewGenerator(),
		capBytes: opts.CapBytes,
		capCount: opts.CapCount,
		notifyCh: make(chan struct{}),
	}
}

// Append writes one record and wakes blocked tail waiters. The write is
// a single atomic batch; capped retention is applied best-effort after
// the commit so a trim failure never fails the append.
func (s *Store) Append(ctx context.Context, msg string) (Record, error) {
	rid := s.gen.Next()
	tsMs := rid.TimestampMs()

	b := s.db.NewBatch()
	defer b.Close()
	if err := b.Set(keyEntry(rid), encodeValue(tsMs, []byte(msg)), nil); err != nil {
		return Record{}, unavailable("append", err)
	}
	if err := s.db.CommitBatch(ctx, b); err != nil {
		return Record{}, unavailable("append commit", err)
	}
	s.notifyAppend()

	if trimmed, err := s.applyCaps(ctx); err != nil {
		s.logger.Warn("trim failed", logpkg.Err(err))
	} else if trimmed > 0 {
		s.logger.Debug("trimmed", logpkg.Int("records", trimmed))
	}

	return Record{ID: rid, Msg: msg, Ts: time.UnixMilli(tsMs).UTC()}, nil
}

// QueryAfter returns records strictly after `after` in (timestamp, id)
// order; the zero ID returns everything currently stored. When nothing
// newer exists and wait > 0, the call suspends up to `wait` for an
// append before rescanning once, so callers tail without busy-polling.
// It returns ErrInvalidated if a Reset raced the call, and ctx errors on
// cancellation.
func (s *Store) QueryAfter(ctx context.Context, after id.ID, wait time.Duration) ([]Record, error) {
	startGen := s.Generation()

	recs, err := s.scanAfter(after)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 && wait > 0 {
		if err := s.waitForAppend(ctx, wait); err != nil {
			return nil, err
		}
		if s.Generation() != startGen {
			return nil, ErrInvalidated
		}
		if recs, err = s.scanAfter(after); err != nil {
			return nil, err
		}
	}
	// A reset may have landed between the scan and here; delivering rows
	// read from the pre-reset keyspace would resurrect cleared chirps.
	if s.Generation() != startGen {
		return nil, ErrInvalidated
	}
	return recs, nil
}

// Reset drops every record and invalidates in-flight queries. Suspended
// waiters are woken so they observe ErrInvalidated promptly.
func (s *Store) Reset(ctx context.Context) error {
	lo, hi := entryBounds()
	if err := s.db.DeleteRange(lo, hi); err != nil {
		return unavailable("reset", err)
	}

	s.mu.Lock()
	s.generation++
	close(s.notifyCh)
	s.notifyCh = make(chan struct{})
	s.mu.Unlock()

	// Reclaim the dropped range eagerly; failures only cost disk space.
	if err := s.db.CompactRange(lo, hi); err != nil {
		s.logger.Warn("compact after reset failed", logpkg.Err(err))
	}
	return nil
}

// Generation returns the current reset generation.
func (s *Store) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// Stats returns the current record count and total value bytes.
func (s *Store) Stats() (count int, bytes int64, err error) {
	lo, hi := entryBounds()
	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: lo, UpperBound: hi})
	if err != nil {
		return 0, 0, unavailable("stats", err)
	}
	defer iter.Close()
	for ok := iter.First(); ok; ok = iter.Next() {
		count++
		bytes += int64(len(iter.Value()))
	}
	if err := iter.Error(); err != nil {
		return 0, 0, unavailable("stats scan", err)
	}
	return count, bytes, nil
}

func (s *Store) scanAfter(after id.ID) ([]Record, error) {
	lo, hi := entryBounds()
	if !after.IsZero() {
		lo = seekStrictlyAfter(after)
	}
	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: lo, UpperBound: hi})
	if err != nil {
		return nil, unavailable("query", err)
	}
	defer iter.Close()

	var out []Record
	for ok := iter.First(); ok; ok = iter.Next() {
		key := iter.Key()
		if len(key) != len(entryPrefix)+16 {
			continue
		}
		rid, err := id.FromBytes(key[len(entryPrefix):])
		if err != nil {
			continue
		}
		tsMs, msg, ok := decodeValue(iter.Value())
		if !ok {
			// Corrupt value; skip rather than fail the whole tail.
			continue
		}
		out = append(out, Record{ID: rid, Msg: string(msg), Ts: time.UnixMilli(tsMs).UTC()})
	}
	if err := iter.Error(); err != nil {
		return nil, unavailable("query scan", err)
	}
	return out, nil
}
