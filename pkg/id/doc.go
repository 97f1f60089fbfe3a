// Package id provides the 128-bit, lexicographically sortable record
// identifier used for chirps.
//
// # Format
//
// An ID is 16 bytes big-endian: [8 bytes ms_timestamp][8 bytes sequence].
// Byte-wise comparison therefore preserves (timestamp, sequence) order,
// which is exactly the tailing order the store needs: the ID doubles as
// the store key and as the tail cursor position, and IDs minted within
// the same millisecond still compare strictly increasing.
//
// # Monotonicity
//
// The Generator ensures per-process monotonicity:
//   - If the system clock regresses, it pins to the last seen millisecond
//     and increments the sequence to avoid going backwards.
//   - If the sequence would overflow within a millisecond, it waits for
//     the next millisecond before emitting the next ID.
package id
