// Package api implements the HTTP REST API of the analyzer.
//
// New returns an http.Handler that serves:
//
//	GET  /api/v1/health         idle / tracking / tracking_lost and live session count
//	GET  /api/v1/session        latest FrameResult plus coaching hints; ?id= selects a session
//	POST /api/v1/session/reset  asks the runner to reset the session between frames
//	GET  /api/v1/summary        running summary of the current session segment
//	GET  /api/v1/exercises      registered exercises with their thresholds
//	GET  /api/v1/history        stored session summaries, newest first; ?limit=
//	GET  /api/v1/history/{id}   one stored summary
//	GET  /metrics               Prometheus text exposition
//
// JSON endpoints respond with Content-Type: application/json and return 405
// for the wrong method. No external HTTP framework is used.
package api
