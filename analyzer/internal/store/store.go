package store

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/formcheck/formcheck/analyzer/internal/pipeline"
)

// Entry is a frame result together with the time it was stored.
type Entry struct {
	Result    pipeline.FrameResult
	UpdatedAt time.Time
}

// Store is a thread-safe latest-result store keyed by session ID.
// Run evicts entries that have not been updated within the TTL.
type Store struct {
	mu      sync.RWMutex
	data    map[string]*Entry
	latest  string
	version uint64
	ttl     time.Duration
	now     func() time.Time // injectable for deterministic tests
}

// New creates a Store with the given TTL.
func New(ttl time.Duration) *Store {
	return &Store{
		data: make(map[string]*Entry),
		ttl:  ttl,
		now:  time.Now,
	}
}

// TTL returns the staleness window.
func (s *Store) TTL() time.Duration { return s.ttl }

// Put stores or replaces the result for res.SessionID.
// Callers must not modify the result's maps or slices after calling Put.
func (s *Store) Put(res pipeline.FrameResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[res.SessionID] = &Entry{Result: res, UpdatedAt: s.now()}
	s.latest = res.SessionID
	s.version++
}

// Get returns the live entry for sessionID. Stale entries that have not
// yet been evicted are reported as missing.
func (s *Store) Get(sessionID string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.data[sessionID]
	if !ok || !s.live(e) {
		return Entry{}, false
	}
	return *e, true
}

// Latest returns the most recently updated live entry.
func (s *Store) Latest() (Entry, bool) {
	s.mu.RLock()
	id := s.latest
	s.mu.RUnlock()
	if id == "" {
		return Entry{}, false
	}
	return s.Get(id)
}

// List returns all live entries ordered by session ID.
func (s *Store) List() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, 0, len(s.data))
	for _, e := range s.data {
		if s.live(e) {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Result.SessionID < out[j].Result.SessionID
	})
	return out
}

// Version increases on every Put. Readers compare versions to skip
// unchanged broadcasts.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Count returns the number of entries held, including stale ones.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Evict removes entries whose UpdatedAt is older than now minus TTL.
// It returns the number of entries removed.
func (s *Store) Evict(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := now.Add(-s.ttl)
	removed := 0
	for id, e := range s.data {
		if !e.UpdatedAt.After(cutoff) {
			delete(s.data, id)
			if id == s.latest {
				s.latest = ""
			}
			removed++
		}
	}
	return removed
}

// Run evicts stale entries every half TTL (minimum one second) until ctx
// is cancelled.
func (s *Store) Run(ctx context.Context) {
	interval := s.ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if n := s.Evict(now); n > 0 {
				slog.Debug("store: evicted stale sessions", "count", n)
			}
		}
	}
}

func (s *Store) live(e *Entry) bool {
	return e.UpdatedAt.After(s.now().Add(-s.ttl))
}
