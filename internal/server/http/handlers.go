package httpserver

import (
	"encoding/json"
	"io"
	"net/http"

	logpkg "github.com/ajdavis/chirp/pkg/log"
)

// maxChirpBytes bounds a single message body.
const maxChirpBytes = 64 << 10

// handleChirps writes the recent window as a bare JSON array, oldest
// first. The {"chirps":[...]} envelope is websocket-only.
func (s *Server) handleChirps(w http.ResponseWriter, r *http.Request) {
	snap := s.buf.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(toChirpList(snap))
}

// handleNew appends the raw request body as a chirp. The default mode is
// fire-and-forget: the client gets a 200 even when the store write
// failed, matching a board that favors latency over write receipts.
// Empty messages are legal chirps.
func (s *Server) handleNew(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxChirpBytes+1))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if len(body) > maxChirpBytes {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if _, err := s.store.Append(r.Context(), string(body)); err != nil {
		s.logger.Warn("append failed", logpkg.Err(err))
		if s.rt.Config().SurfaceWriteErrors {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if err := s.mgr.Reset(r.Context()); err != nil {
		s.logger.Error("clear failed", logpkg.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := s.rt.CheckHealth(r.Context()); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "not_serving"})
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = io.WriteString(w, indexHTML)
}
