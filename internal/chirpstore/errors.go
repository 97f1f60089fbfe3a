package chirpstore

import (
	"errors"
	"fmt"
)

// ErrUnavailable marks transient storage faults. The caller may retry the
// same logical query after a pause.
var ErrUnavailable = errors.New("chirp store unavailable")

// ErrInvalidated marks a query that raced a Reset. The position it was
// issued from no longer means anything; the caller must reissue from the
// zero position instead of retrying.
var ErrInvalidated = errors.New("chirp store reset; query invalidated")

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, op, err)
}
