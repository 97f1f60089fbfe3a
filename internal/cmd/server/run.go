package serverrun

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	cfgpkg "github.com/ajdavis/chirp/internal/config"
	"github.com/ajdavis/chirp/internal/hub"
	"github.com/ajdavis/chirp/internal/recent"
	"github.com/ajdavis/chirp/internal/runtime"
	httpserver "github.com/ajdavis/chirp/internal/server/http"
	pebblestore "github.com/ajdavis/chirp/internal/storage/pebble"
	"github.com/ajdavis/chirp/internal/tailer"
	logpkg "github.com/ajdavis/chirp/pkg/log"
)

// env lookup seam so tests can stub the environment
var getenv = func(key string) string { return os.Getenv(key) }

func getenvDefault(key, def string) string {
	if v := getenv(key); v != "" {
		return v
	}
	return def
}

type Options struct {
	DataDir       string
	HTTPAddr      string
	Fsync         pebblestore.FsyncMode
	FsyncInterval time.Duration
	Config        cfgpkg.Config
	// LogLevel and LogFormat override the CHIRP_LOG_LEVEL and
	// CHIRP_LOG_FORMAT environment variables when non-empty.
	LogLevel  string
	LogFormat string
}

// Run starts the board and blocks until ctx is cancelled. Shutdown order
// matters: drain the HTTP surface first, then stop the tail loop, then
// close the runtime so nothing queries a closed database.
func Run(ctx context.Context, opts Options) error {
	// Layer a local signal context over the provided one so callers
	// without signal handling still stop cleanly on SIGINT/SIGTERM.
	sctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	level := opts.LogLevel
	if level == "" {
		level = getenvDefault("CHIRP_LOG_LEVEL", "info")
	}
	format := opts.LogFormat
	if format == "" {
		format = getenvDefault("CHIRP_LOG_FORMAT", "text")
	}
	logCfg := &logpkg.Config{Level: level, Format: format}
	procLogger, err := logpkg.ApplyConfig(logCfg)
	if err != nil {
		procLogger = logpkg.NewLogger(logpkg.WithLevel(logpkg.InfoLevel))
	}

	// Route stdlib logs (Pebble's) through the process logger.
	logpkg.RedirectStdLog(procLogger)

	cfg := opts.Config
	cfgpkg.FromEnv(&cfg)

	rt, err := runtime.Open(runtime.Options{
		DataDir:       opts.DataDir,
		Fsync:         opts.Fsync,
		FsyncInterval: opts.FsyncInterval,
		Config:        &cfg,
		Logger:        procLogger,
	})
	if err != nil {
		return err
	}
	defer rt.Close()

	procLogger.Info("starting chirp server",
		logpkg.Str("http", opts.HTTPAddr),
		logpkg.Str("data_dir", rt.DataDir()),
		logpkg.Int("recent_size", cfg.RecentSize),
		logpkg.Int64("store_cap_bytes", cfg.Store.CapBytes),
		logpkg.Str("level", logCfg.Level),
		logpkg.Str("format", logCfg.Format),
	)

	store := rt.OpenStore()
	buf := recent.NewBuffer(cfg.RecentSize)
	h := hub.New(procLogger)
	mgr := tailer.New(store, buf, h, tailer.Options{
		PollWait: cfg.Tail.PollWait(),
		Backoff:  cfg.Tail.Backoff(),
		Logger:   procLogger,
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = mgr.Run(sctx)
	}()

	hsrv := httpserver.New(httpserver.Deps{
		Runtime: rt,
		Store:   store,
		Buffer:  buf,
		Hub:     h,
		Tailer:  mgr,
		Logger:  procLogger,
	})
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := hsrv.ListenAndServe(sctx, opts.HTTPAddr); err != nil && sctx.Err() == nil {
			procLogger.Error("http server error", logpkg.Err(err))
		}
	}()

	<-sctx.Done()
	hsrv.Close()
	wg.Wait()
	return nil
}
