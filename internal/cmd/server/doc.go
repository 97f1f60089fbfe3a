// Package serverrun assembles and runs the chirp board: storage runtime,
// tailing cursor loop, fan-out hub, and the HTTP surface, with
// signal-aware graceful shutdown.
package serverrun
