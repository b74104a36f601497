package store

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	practicesession "github.com/opobank/backend/internal/domain/practice_session"
)

// LiveSession is a session that has not been archived yet, with its owner.
type LiveSession struct {
	UserID  string
	Session *practicesession.PracticeSession
}

// Registry keeps live sessions between requests. Update gives fn exclusive
// access to one session and stores whatever state fn leaves behind; if fn
// returns an error the stored state is left untouched.
type Registry interface {
	Create(ctx context.Context, live LiveSession) error
	Get(ctx context.Context, id string) (LiveSession, error)
	Update(ctx context.Context, id string, fn func(LiveSession) error) error
	Delete(ctx context.Context, id string) error
}

// MemoryRegistry is a process-local Registry. Like the Redis registry, a
// session expires ttl after it was created or last updated; a zero ttl keeps
// sessions until they are deleted.
type MemoryRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*memoryEntry
	ttl      time.Duration
	now      func() time.Time
}

type memoryEntry struct {
	mu   sync.Mutex
	live LiveSession
	// expiresAt is unix nanoseconds, 0 for never. It is read by the sweep in
	// Create without holding mu.
	expiresAt atomic.Int64
}

var _ Registry = (*MemoryRegistry)(nil)

func NewMemoryRegistry(ttl time.Duration) *MemoryRegistry {
	return &MemoryRegistry{
		sessions: make(map[string]*memoryEntry),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Create also sweeps expired sessions, so memory stays bounded by the
// sessions started within one ttl.
func (r *MemoryRegistry) Create(_ context.Context, live LiveSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	for id, entry := range r.sessions {
		if entry.expired(now) {
			delete(r.sessions, id)
		}
	}
	entry := &memoryEntry{live: live}
	entry.expiresAt.Store(r.deadline(now))
	r.sessions[live.Session.ID] = entry
	return nil
}

// Get returns a restored copy so the caller cannot race with Update.
func (r *MemoryRegistry) Get(_ context.Context, id string) (LiveSession, error) {
	entry, ok := r.entry(id)
	if !ok {
		return LiveSession{}, ErrNotFound
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.expired(r.now()) {
		r.evict(id, entry)
		return LiveSession{}, ErrNotFound
	}
	return LiveSession{UserID: entry.live.UserID, Session: entry.live.Session.Clone()}, nil
}

// Update runs fn on a working copy and keeps it only when fn succeeds.
func (r *MemoryRegistry) Update(_ context.Context, id string, fn func(LiveSession) error) error {
	entry, ok := r.entry(id)
	if !ok {
		return ErrNotFound
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	now := r.now()
	if entry.expired(now) {
		r.evict(id, entry)
		return ErrNotFound
	}

	working := LiveSession{UserID: entry.live.UserID, Session: entry.live.Session.Clone()}
	if err := fn(working); err != nil {
		return err
	}
	entry.live = working
	entry.expiresAt.Store(r.deadline(now))
	return nil
}

func (r *MemoryRegistry) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(r.sessions, id)
	return nil
}

func (r *MemoryRegistry) deadline(now time.Time) int64 {
	if r.ttl <= 0 {
		return 0
	}
	return now.Add(r.ttl).UnixNano()
}

// evict drops id only if it still maps to entry, so a session recreated
// under the same id is left alone.
func (r *MemoryRegistry) evict(id string, entry *memoryEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sessions[id] == entry {
		delete(r.sessions, id)
	}
}

func (e *memoryEntry) expired(now time.Time) bool {
	deadline := e.expiresAt.Load()
	return deadline != 0 && now.UnixNano() >= deadline
}

func (r *MemoryRegistry) entry(id string) (*memoryEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.sessions[id]
	return entry, ok
}
