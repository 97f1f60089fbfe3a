package log

import (
	stdlog "log"
	"strings"
)

// Config captures the externally tunable logger settings.
type Config struct {
	// Level: debug|info|warn|error (default info).
	Level string
	// Format: text|json (default text).
	Format string
}

// ApplyConfig builds a Logger from a Config. Unknown levels or formats
// return an error; callers typically fall back to defaults.
func ApplyConfig(cfg *Config) (Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	var formatter Formatter
	switch strings.ToLower(cfg.Format) {
	case "", "text":
		formatter = &TextFormatter{}
	case "json":
		formatter = &JSONFormatter{}
	default:
		return nil, &unknownFormatError{format: cfg.Format}
	}
	return NewLogger(WithLevel(level), WithFormatter(formatter)), nil
}

type unknownFormatError struct{ format string }

func (e *unknownFormatError) Error() string { return "log: unknown format " + e.format }

// RedirectStdLog routes standard-library log output (Pebble logs through
// it) to the provided Logger at info level.
func RedirectStdLog(logger Logger) {
	stdlog.SetFlags(0)
	stdlog.SetOutput(stdWriter{logger: logger})
}

type stdWriter struct{ logger Logger }

func (w stdWriter) Write(p []byte) (int, error) {
	msg := strings.TrimRight(string(p), "\n")
	if msg != "" {
		w.logger.Info(msg, Component("stdlog"))
	}
	return len(p), nil
}
