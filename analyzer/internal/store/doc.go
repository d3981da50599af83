// Package store holds the latest frame result per session for the API and
// the WebSocket hub. It is a thread-safe in-memory map with TTL eviction,
// so a session that stops sending frames disappears after the TTL.
package store
