package httpserver

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/felixge/httpsnoop"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/ajdavis/chirp/internal/chirpstore"
	"github.com/ajdavis/chirp/internal/hub"
	"github.com/ajdavis/chirp/internal/recent"
	"github.com/ajdavis/chirp/internal/runtime"
	"github.com/ajdavis/chirp/internal/tailer"
	logpkg "github.com/ajdavis/chirp/pkg/log"
)

// Deps carries the board components the server exposes.
type Deps struct {
	Runtime *runtime.Runtime
	Store   *chirpstore.Store
	Buffer  *recent.Buffer
	Hub     *hub.Hub
	Tailer  *tailer.Manager
	Logger  logpkg.Logger
}

type Server struct {
	rt       *runtime.Runtime
	store    *chirpstore.Store
	buf      *recent.Buffer
	hub      *hub.Hub
	mgr      *tailer.Manager
	logger   logpkg.Logger
	srv      *http.Server
	lis      net.Listener
	upgrader websocket.Upgrader
}

// New builds the server and its routes.
func New(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = logpkg.NewLogger(logpkg.WithLevel(logpkg.ErrorLevel))
	}
	s := &Server{
		rt:     deps.Runtime,
		store:  deps.Store,
		buf:    deps.Buffer,
		hub:    deps.Hub,
		mgr:    deps.Tailer,
		logger: logger.With(logpkg.Component("http")),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The board page may be served from anywhere.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}

	r := mux.NewRouter()
	r.HandleFunc("/chirps", s.handleChirps).Methods(http.MethodGet)
	r.HandleFunc("/new", s.handleNew).Methods(http.MethodPost)
	r.HandleFunc("/clear", s.handleClear).Methods(http.MethodPost)
	r.HandleFunc("/v1/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/tail", s.handleTail).Methods(http.MethodGet)
	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)

	s.srv = &http.Server{Handler: cors(s.accessLog(r))}
	return s
}

// Handler exposes the full middleware-wrapped handler, mostly for tests.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

// ListenAndServe serves until ctx is done, then drains with a short
// shutdown grace period.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.lis = l
	s.logger.Info("listening", logpkg.Str("addr", l.Addr().String()))
	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.Serve(l) }()
	select {
	case <-ctx.Done():
		cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(cctx)
		return nil
	case err := <-errCh:
		return err
	}
}

// Addr returns the bound listen address, or "" before ListenAndServe.
func (s *Server) Addr() string {
	if s.lis == nil {
		return ""
	}
	return s.lis.Addr().String()
}

func (s *Server) Close() {
	if s.lis != nil {
		_ = s.lis.Close()
	}
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// accessLog records method, path, status and latency per request. The
// websocket route is skipped: CaptureMetrics would hold its wrapper open
// for the connection's whole lifetime.
func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/tail" {
			next.ServeHTTP(w, r)
			return
		}
		m := httpsnoop.CaptureMetrics(next, w, r)
		s.logger.Debug("request",
			logpkg.Str("method", r.Method),
			logpkg.Str("path", r.URL.Path),
			logpkg.Int("status", m.Code),
			logpkg.Int64("bytes", m.Written),
			logpkg.Dur("elapsed", m.Duration))
	})
}
