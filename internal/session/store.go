// Package session keeps one selection engine per visitor.  Sessions are
// isolated from each other; events of the same session are applied one at
// a time.  Nothing here outlives the process.
package session

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/seat-picker/internal/layout"
	"github.com/iliyamo/seat-picker/internal/selection"
)

var (
	// ErrSessionNotFound is returned for an id the store never issued or
	// has already dropped.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExpired is returned when a session was idle longer than
	// the store TTL.
	ErrSessionExpired = errors.New("session expired")
)

// Session pairs a selection engine with the venue it was opened for.
type Session struct {
	ID      string
	VenueID uint64

	mu       sync.Mutex
	engine   *selection.Engine
	now      func() time.Time // clock of the owning store
	lastSeen time.Time
}

// Do runs fn with exclusive access to the session's engine.
func (s *Session) Do(fn func(e *selection.Engine) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = s.now()
	return fn(s.engine)
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Store is an in-memory registry of sessions.
type Store struct {
	ttl time.Duration
	now func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewStore creates a store dropping sessions idle for longer than ttl.
// A ttl of zero keeps sessions until they are deleted.
func NewStore(ttl time.Duration) *Store {
	return &Store{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Create opens a new session on the given layout.
func (st *Store) Create(venueID uint64, l *layout.Layout) *Session {
	s := &Session{
		ID:       uuid.NewString(),
		VenueID:  venueID,
		engine:   selection.New(l),
		now:      st.clock,
		lastSeen: st.now(),
	}
	st.mu.Lock()
	st.sessions[s.ID] = s
	st.mu.Unlock()
	return s
}

// Get returns a live session.  Expired sessions are removed on access.
func (st *Store) Get(id string) (*Session, error) {
	st.mu.Lock()
	s, ok := st.sessions[id]
	st.mu.Unlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	if st.expired(s, st.now()) {
		st.Delete(id)
		return nil, ErrSessionExpired
	}
	return s, nil
}

// Delete drops a session; unknown ids are ignored.
func (st *Store) Delete(id string) {
	st.mu.Lock()
	delete(st.sessions, id)
	st.mu.Unlock()
}

// Len returns the number of sessions currently held.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// Sweep removes every session idle at now and returns how many were
// dropped.
func (st *Store) Sweep(now time.Time) int {
	st.mu.Lock()
	defer st.mu.Unlock()
	n := 0
	for id, s := range st.sessions {
		if st.expired(s, now) {
			delete(st.sessions, id)
			n++
		}
	}
	return n
}

// Run sweeps the store every interval until ctx is done.
func (st *Store) Run(ctx context.Context, interval time.Duration) {
	if st.ttl <= 0 || interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if n := st.Sweep(now); n > 0 {
				log.Printf("session-janitor: dropped %d idle sessions", n)
			}
		}
	}
}

// clock reads st.now at call time so that a clock swapped after Create
// still applies to the session.
func (st *Store) clock() time.Time { return st.now() }

func (st *Store) expired(s *Session, now time.Time) bool {
	return st.ttl > 0 && now.Sub(s.idleSince()) > st.ttl
}
