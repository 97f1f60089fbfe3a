// Package log provides structured logging for chirp components.
//
// Loggers are constructed explicitly and passed by dependency injection;
// there is no package-level default. Components tag their logger with
// Component("...") so every line carries its origin:
//
//	logger := log.NewLogger(log.WithLevel(log.InfoLevel))
//	tl := logger.With(log.Component("tailer"))
//	tl.Info("poll complete", log.Int("records", n))
//
// Output format (text or JSON) and level are usually derived from flags
// or CHIRP_LOG_LEVEL / CHIRP_LOG_FORMAT via ApplyConfig. RedirectStdLog
// routes standard-library log output (Pebble uses it) through a Logger.
package log
