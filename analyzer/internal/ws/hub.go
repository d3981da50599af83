package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/formcheck/formcheck/analyzer/internal/api"
	"github.com/formcheck/formcheck/analyzer/internal/store"
)

const (
	writeWait = 10 * time.Second

	// peerIdle is how long a renderer may stay silent, pongs included,
	// before it is considered gone. keepalive pings arrive well inside it.
	peerIdle  = 60 * time.Second
	keepalive = peerIdle * 9 / 10

	// resendAfter forces a snapshot even when no frame arrived, so that
	// sessions evicted from the store also vanish from overlays.
	resendAfter = 5 * time.Second

	// queueDepth is how many snapshots a renderer may lag behind before it
	// is dropped.
	queueDepth = 16

	// maxInbound caps control frames read from a renderer.
	maxInbound = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 8192,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Message is the envelope written to renderers.
type Message struct {
	Event string               `json:"event"`
	Data  api.SnapshotResponse `json:"data"`
}

// Hub fans live frame results out to connected overlay renderers.
type Hub struct {
	store    *store.Store
	interval time.Duration

	mu        sync.RWMutex
	renderers map[*renderer]struct{}
}

// renderer is one connected overlay. A non-empty session limits it to that
// session's results.
type renderer struct {
	conn    *websocket.Conn
	queue   chan []byte
	session string
	remote  string
}

// New returns a Hub that snapshots st at most once per interval.
func New(st *store.Store, interval time.Duration) *Hub {
	return &Hub{
		store:     st,
		interval:  interval,
		renderers: make(map[*renderer]struct{}),
	}
}

// Run pushes snapshots until ctx is done and then disconnects every
// renderer. A tick is skipped when the store version has not moved since the
// last push, unless resendAfter has elapsed.
func (h *Hub) Run(ctx context.Context) {
	tick := time.NewTicker(h.interval)
	defer tick.Stop()

	var (
		pushed   uint64
		pushedAt time.Time
	)
	for {
		select {
		case <-ctx.Done():
			h.disconnectAll()
			return
		case now := <-tick.C:
			v := h.store.Version()
			if v == pushed && now.Sub(pushedAt) < resendAfter {
				continue
			}
			h.push()
			pushed, pushedAt = v, now
		}
	}
}

// ServeHTTP upgrades r and streams snapshots to it until the renderer goes
// away. The optional ?session= query parameter subscribes to one session.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return // Upgrade replied with the HTTP error
	}

	rd := &renderer{
		conn:    conn,
		queue:   make(chan []byte, queueDepth),
		session: r.URL.Query().Get("session"),
		remote:  r.RemoteAddr,
	}
	if data, err := encode(filter(api.BuildSnapshot(h.store), rd.session)); err == nil {
		rd.queue <- data
	}
	h.attach(rd)
	defer h.detach(rd)

	slog.Debug("ws: renderer connected", "remote", rd.remote, "session", rd.session)
	go rd.write()
	rd.read()
	slog.Debug("ws: renderer disconnected", "remote", rd.remote)
}

// Count returns the number of connected renderers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.renderers)
}

func (h *Hub) attach(rd *renderer) {
	h.mu.Lock()
	h.renderers[rd] = struct{}{}
	h.mu.Unlock()
}

// detach removes rd and closes its queue. It is safe to call twice.
func (h *Hub) detach(rd *renderer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.renderers[rd]; !ok {
		return
	}
	delete(h.renderers, rd)
	close(rd.queue)
}

// push encodes one payload per distinct subscription and queues it. Queues
// are written under the read lock so detach cannot close one mid-send.
func (h *Hub) push() {
	snap := api.BuildSnapshot(h.store)
	payloads := make(map[string][]byte)

	var lagging []*renderer
	h.mu.RLock()
	for rd := range h.renderers {
		data, ok := payloads[rd.session]
		if !ok {
			var err error
			if data, err = encode(filter(snap, rd.session)); err != nil {
				slog.Error("ws: encode snapshot", "session", rd.session, "err", err)
				continue
			}
			payloads[rd.session] = data
		}
		select {
		case rd.queue <- data:
		default:
			lagging = append(lagging, rd)
		}
	}
	h.mu.RUnlock()

	for _, rd := range lagging {
		slog.Warn("ws: dropping lagging renderer", "remote", rd.remote, "queued", queueDepth)
		h.detach(rd)
	}
}

func (h *Hub) disconnectAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for rd := range h.renderers {
		delete(h.renderers, rd)
		close(rd.queue)
	}
}

// filter keeps only the named session. An empty name keeps all.
func filter(snap api.SnapshotResponse, session string) api.SnapshotResponse {
	if session == "" {
		return snap
	}
	out := api.SnapshotResponse{GeneratedAt: snap.GeneratedAt, Sessions: []api.SessionResponse{}}
	for _, s := range snap.Sessions {
		if s.SessionID == session {
			out.Sessions = append(out.Sessions, s)
		}
	}
	return out
}

func encode(snap api.SnapshotResponse) ([]byte, error) {
	return json.Marshal(Message{Event: "snapshot", Data: snap})
}

// write drains the queue to the connection and keeps it alive with pings.
// A closed queue ends the stream with a close frame.
func (rd *renderer) write() {
	ping := time.NewTicker(keepalive)
	defer ping.Stop()
	defer rd.conn.Close()

	for {
		var (
			kind = websocket.PingMessage
			data []byte
		)
		select {
		case msg, open := <-rd.queue:
			if !open {
				rd.conn.SetWriteDeadline(time.Now().Add(writeWait))
				rd.conn.WriteMessage(websocket.CloseMessage, nil) //nolint:errcheck
				return
			}
			kind, data = websocket.TextMessage, msg
		case <-ping.C:
		}
		rd.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := rd.conn.WriteMessage(kind, data); err != nil {
			return
		}
	}
}

// read services pongs and close frames. Anything a renderer sends is
// ignored; read returns once the peer is gone or idle past peerIdle.
func (rd *renderer) read() {
	defer rd.conn.Close()
	rd.conn.SetReadLimit(maxInbound)
	extend := func() { rd.conn.SetReadDeadline(time.Now().Add(peerIdle)) }
	extend()
	rd.conn.SetPongHandler(func(string) error { extend(); return nil })
	for {
		if _, _, err := rd.conn.NextReader(); err != nil {
			return
		}
	}
}
