// Package ws streams frame results to renderer clients over WebSocket.
//
// New(store, interval) creates a Hub. Hub.Run(ctx) pushes the live sessions
// on ticks where the store version moved, and at least every resendAfter so
// evicted sessions disappear from overlays. Cancelling ctx disconnects every
// renderer. Hub.ServeHTTP upgrades a request, queues the current snapshot and
// then streams updates. A ?session=<id> query parameter narrows the stream to
// one session; an unknown id yields an empty session list.
//
// Message format:
//
//	{
//	  "event": "snapshot",
//	  "data":  {"sessions": [ /* GET /api/v1/session payloads */ ], "generated_at": "..."}
//	}
//
// The upgrader accepts all origins. The endpoint is mounted at /ws/stream.
package ws
