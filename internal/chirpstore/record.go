package chirpstore

import (
	"encoding/binary"
	"hash/crc32"
	"time"

	"github.com/ajdavis/chirp/pkg/id"
)

// Record is one immutable chirp as stored and tailed.
type Record struct {
	// ID is the unique, sortable identity; it doubles as the tail cursor.
	ID id.ID
	// Msg is the raw message text.
	Msg string
	// Ts is the write timestamp (UTC, millisecond precision).
	Ts time.Time
}

// Value encoding: ts_ms(8B BE) | message | crc32c(ts|message)

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

func encodeValue(tsMs int64, msg []byte) []byte {
	out := make([]byte, 0, 8+len(msg)+4)
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(tsMs))
	out = append(out, ts[:]...)
	out = append(out, msg...)

	crc := crc32.Update(0, castagnoli, ts[:])
	crc = crc32.Update(crc, castagnoli, msg)
	var crcb [4]byte
	binary.BigEndian.PutUint32(crcb[:], crc)
	return append(out, crcb[:]...)
}

func decodeValue(b []byte) (tsMs int64, msg []byte, ok bool) {
	if len(b) < 8+4 {
		return 0, nil, false
	}
	ts := b[:8]
	body := b[8 : len(b)-4]
	expect := binary.BigEndian.Uint32(b[len(b)-4:])
	crc := crc32.Update(0, castagnoli, ts)
	crc = crc32.Update(crc, castagnoli, body)
	if crc != expect {
		return 0, nil, false
	}
	return int64(binary.BigEndian.Uint64(ts)), append([]byte(nil), body...), true
}
