package chirpstore

import (
	"context"

	"github.com/cockroachdb/pebble"
)

const trimBatchSize = 64

// applyCaps enforces the byte and count caps by deleting the oldest
// records first. Deletions are grouped into batches so a large overrun
// does not commit one delete at a time. Returns the number of records
// removed.
func (s *Store) applyCaps(ctx context.Context) (int, error) {
	if s.capBytes <= 0 && s.capCount <= 0 {
		return 0, nil
	}

	count, bytes, err := s.Stats()
	if err != nil {
		return 0, err
	}

	overCount := 0
	if s.capCount > 0 && count > s.capCount {
		overCount = count - s.capCount
	}
	overBytes := int64(0)
	if s.capBytes > 0 && bytes > s.capBytes {
		overBytes = bytes - s.capBytes
	}
	if overCount == 0 && overBytes == 0 {
		return 0, nil
	}

	lo, hi := entryBounds()
	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: lo, UpperBound: hi})
	if err != nil {
		return 0, unavailable("trim", err)
	}
	defer iter.Close()

	trimmed := 0
	batch := s.db.NewBatch()
	defer func() { _ = batch.Close() }()
	pending := 0

	flush := func() error {
		if pending == 0 {
			return nil
		}
		if err := s.db.CommitBatch(ctx, batch); err != nil {
			return unavailable("trim commit", err)
		}
		_ = batch.Close()
		batch = s.db.NewBatch()
		pending = 0
		return nil
	}

	for ok := iter.First(); ok; ok = iter.Next() {
		if overCount <= 0 && overBytes <= 0 {
			break
		}
		key := append([]byte(nil), iter.Key()...)
		if err := batch.Delete(key, nil); err != nil {
			return trimmed, unavailable("trim delete", err)
		}
		pending++
		trimmed++
		overCount--
		overBytes -= int64(len(iter.Value()))
		if pending >= trimBatchSize {
			if err := flush(); err != nil {
				return trimmed - pending, err
			}
		}
	}
	if err := iter.Error(); err != nil {
		return trimmed, unavailable("trim scan", err)
	}
	if err := flush(); err != nil {
		return trimmed - pending, err
	}
	return trimmed, nil
}
