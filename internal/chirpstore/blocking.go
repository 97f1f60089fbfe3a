package chirpstore

import (
	"context"
	"time"
)

// notifyAppend wakes every waiter blocked in waitForAppend by replacing
// the notify channel. Closing the old channel releases all current
// receivers at once; the fresh channel arms the next wait.
func (s *Store) notifyAppend() {
	s.mu.Lock()
	close(s.notifyCh)
	s.notifyCh = make(chan struct{})
	s.mu.Unlock()
}

// waitForAppend blocks until an append (or reset) lands, the wait
// elapses, or ctx is done. A nil return after the timeout is not an
// error: the caller rescans and simply finds nothing new.
func (s *Store) waitForAppend(ctx context.Context, wait time.Duration) error {
	s.mu.Lock()
	ch := s.notifyCh
	s.mu.Unlock()

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ch:
		return nil
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
