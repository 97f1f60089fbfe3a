package chirpstore

import (
	"github.com/ajdavis/chirp/pkg/id"
)

// Keyspace helpers for Pebble keys.
//
// Layout (byte-wise, lexicographically sortable):
// - chirps/e/{id16}
//
// Record IDs embed [ms_timestamp][sequence] big-endian, so key order is
// exactly (timestamp, id) tail order.

var entryPrefix = []byte("chirps/e/")

// keyEntry builds the record key for an ID.
func keyEntry(rid id.ID) []byte {
	k := make([]byte, 0, len(entryPrefix)+16)
	k = append(k, entryPrefix...)
	k = append(k, rid[:]...)
	return k
}

// entryBounds returns the [lo, hi) iterator bounds covering all records.
func entryBounds() (lo, hi []byte) {
	lo = append([]byte(nil), entryPrefix...)
	hi = append(append([]byte(nil), entryPrefix...), 0xFF)
	return lo, hi
}

// seekStrictlyAfter returns the lowest key greater than the entry key for
// rid. Entry keys have fixed length, so appending a zero byte is enough.
func seekStrictlyAfter(rid id.ID) []byte {
	return append(keyEntry(rid), 0x00)
}
