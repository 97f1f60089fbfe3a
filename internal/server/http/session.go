package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ajdavis/chirp/internal/chirpstore"
	"github.com/ajdavis/chirp/internal/hub"
	logpkg "github.com/ajdavis/chirp/pkg/log"
)

const (
	// sessionQueueSize bounds undelivered events per subscriber; a client
	// that falls this far behind is dropped instead of stalling the hub.
	sessionQueueSize = 64
	writeTimeout     = 10 * time.Second
)

var errSessionBacklogged = errors.New("session send queue full")

// session is one websocket subscriber. Events are queued on out and
// written by a single writer goroutine, which keeps per-session FIFO
// order without ever blocking the hub's Emit.
type session struct {
	key    string
	conn   *websocket.Conn
	logger logpkg.Logger

	out    chan hub.Event
	closed chan struct{}
	once   sync.Once

	filterMu sync.RWMutex
	filter   celFilter
}

func newSession(conn *websocket.Conn, logger logpkg.Logger) *session {
	key := uuid.NewString()
	return &session{
		key:    key,
		conn:   conn,
		logger: logger.With(logpkg.Str("session", key)),
		out:    make(chan hub.Event, sessionQueueSize),
		closed: make(chan struct{}),
	}
}

func (s *session) Key() string { return s.key }

// Send queues an event for delivery. It never blocks: a full queue or a
// closed session returns an error so the hub prunes us.
func (s *session) Send(ev hub.Event) error {
	select {
	case <-s.closed:
		return errors.New("session closed")
	default:
	}
	select {
	case s.out <- ev:
		return nil
	default:
		return errSessionBacklogged
	}
}

func (s *session) close() {
	s.once.Do(func() {
		close(s.closed)
		_ = s.conn.Close()
	})
}

func (s *session) setFilter(f celFilter) {
	s.filterMu.Lock()
	s.filter = f
	s.filterMu.Unlock()
}

// applyFilter narrows a chirps batch to the records the session's filter
// accepts. Other event kinds pass through untouched.
func (s *session) applyFilter(ev hub.Event) (hub.Event, bool) {
	if ev.Name != hub.EventChirps {
		return ev, true
	}
	s.filterMu.RLock()
	f := s.filter
	s.filterMu.RUnlock()
	if !f.enabled {
		return ev, true
	}
	kept := make([]chirpstore.Record, 0, len(ev.Records))
	for _, r := range ev.Records {
		if f.Eval(r) {
			kept = append(kept, r)
		}
	}
	if len(kept) == 0 {
		return hub.Event{}, false
	}
	return hub.Event{Name: ev.Name, Records: kept}, true
}

// writePump drains the out queue onto the wire.
func (s *session) writePump() {
	for {
		select {
		case <-s.closed:
			return
		case ev := <-s.out:
			ev, keep := s.applyFilter(ev)
			if !keep {
				continue
			}
			frame, err := encodeEvent(ev)
			if err != nil {
				s.logger.Error("encode event", logpkg.Err(err))
				continue
			}
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				s.close()
				return
			}
		}
	}
}

// readPump handles client intents until the connection drops.
func (s *session) readPump(snapshot func() []chirpstore.Record) {
	defer s.close()
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		var intent clientIntent
		if err := json.Unmarshal(data, &intent); err != nil {
			_ = s.Send(hub.Event{Name: hub.EventAppError, Message: "malformed intent"})
			continue
		}
		switch intent.Intent {
		case "set_filter":
			f, err := newCELFilter(intent.Filter)
			if err != nil {
				// The filter never takes effect; tell the client why.
				_ = s.Send(hub.Event{Name: hub.EventAppError, Message: "filter not valid at server: " + err.Error()})
				continue
			}
			s.setFilter(f)
		case "get_chirps":
			_ = s.Send(hub.Event{Name: hub.EventChirps, Records: snapshot()})
		default:
			_ = s.Send(hub.Event{Name: hub.EventAppError, Message: "unknown intent"})
		}
	}
}

// handleTail upgrades to a websocket, registers the session with the
// hub, and pushes the current recent window as the opening frame.
func (s *Server) handleTail(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("upgrade failed", logpkg.Err(err))
		return
	}

	sess := newSession(conn, s.logger)
	go sess.writePump()

	// Queue the opening snapshot and register with the hub while delivery
	// is paused, so the snapshot and later deltas neither overlap nor
	// reorder. An empty board still gets a frame so the client knows the
	// feed is live.
	s.mgr.Attach(func(snap []chirpstore.Record) {
		_ = sess.Send(hub.Event{Name: hub.EventChirps, Records: snap})
		s.hub.Subscribe(sess)
	})
	s.logger.Debug("client connected", logpkg.Str("session", sess.key))

	sess.readPump(s.buf.Snapshot)

	s.hub.Unsubscribe(sess.key)
	sess.close()
	s.logger.Debug("client disconnected", logpkg.Str("session", sess.key))
}
