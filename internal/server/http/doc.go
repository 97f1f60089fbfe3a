// Package httpserver exposes the chirp board over HTTP and websockets.
//
// REST-ish surface:
//
//	GET  /chirps     recent chirps, oldest first
//	POST /new        append a chirp; the request body is the message
//	POST /clear      drop everything and announce "cleared"
//	GET  /v1/healthz storage liveness probe
//	GET  /tail       websocket live feed
//	GET  /           minimal built-in board page
//
// The websocket feed delivers {"event": name, "data": payload} frames.
// Clients may send {"intent":"set_filter","filter":<cel>} to narrow the
// feed to chirps matching a CEL expression.
package httpserver
