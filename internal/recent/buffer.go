// Package recent holds the bounded in-memory buffer of the newest chirps.
//
// The buffer is the serving snapshot for new subscribers and the HTTP
// list endpoint: it keeps the latest N records in arrival order and
// drops the oldest when full. The last buffered record's ID is the tail
// manager's resume position, so the buffer and cursor can never drift
// apart.
package recent

import (
	"sync"

	"github.com/ajdavis/chirp/internal/chirpstore"
	"github.com/ajdavis/chirp/pkg/id"
)

// DefaultSize matches the board's "last 20 chirps" window.
const DefaultSize = 20

// Buffer is a fixed-capacity FIFO of chirp records, safe for concurrent
// use. A full buffer evicts its oldest record on append.
type Buffer struct {
	mu   sync.Mutex
	size int
	recs []chirpstore.Record
}

// NewBuffer creates a Buffer holding at most size records. A size of
// zero or less falls back to DefaultSize.
func NewBuffer(size int) *Buffer {
	if size <= 0 {
		size = DefaultSize
	}
	return &Buffer{size: size}
}

// Append adds records in order, evicting the oldest as needed.
func (b *Buffer) Append(recs ...chirpstore.Record) {
	if len(recs) == 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.recs = append(b.recs, recs...)
	if over := len(b.recs) - b.size; over > 0 {
		b.recs = append(b.recs[:0:0], b.recs[over:]...)
	}
}

// Snapshot returns a copy of the buffered records, oldest first.
func (b *Buffer) Snapshot() []chirpstore.Record {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]chirpstore.Record, len(b.recs))
	copy(out, b.recs)
	return out
}

// Last returns the ID of the newest buffered record. The second return
// is false when the buffer is empty, meaning the tail should resume from
// the zero position.
func (b *Buffer) Last() (id.ID, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.recs) == 0 {
		return id.ID{}, false
	}
	return b.recs[len(b.recs)-1].ID, true
}

// Len returns the number of buffered records.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.recs)
}

// Clear empties the buffer.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.recs = nil
}
