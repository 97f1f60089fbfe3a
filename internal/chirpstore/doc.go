// Package chirpstore implements the capped, append-only chirp store.
//
// # Overview
//
// Records are persisted in Pebble under lexicographically ordered keys:
//   - chirps/e/{id16} (records; the 16-byte sortable ID is the ordering key)
//
// A record value is: ts_ms(8B BE) | message | crc32c(ts|message).
//
// The store is capped: after each append the oldest records are trimmed
// until the configured byte and count limits hold, mirroring a capped
// collection that silently drops its head.
//
// # Tailing
//
//	st := chirpstore.Open(db, chirpstore.Options{CapBytes: 10000})
//	rec, _ := st.Append(ctx, "hello")
//
//	// Bounded-wait tail read: returns records strictly after `after`,
//	// suspending up to `wait` when nothing new exists yet.
//	recs, err := st.QueryAfter(ctx, after, time.Second)
//
// QueryAfter distinguishes two failure classes. ErrUnavailable wraps
// transient storage faults: the same logical query may be retried after a
// pause. ErrInvalidated means a concurrent Reset dropped the store out
// from under the call: the caller must reissue from the zero position,
// not retry. Reset wakes suspended waiters so an in-flight tail observes
// the invalidation promptly instead of sleeping through it.
package chirpstore
