package session

import (
	"fmt"
	"sync"
	"time"

	scrumerrors "github.com/scrumlink/scrumlink/pkg/errors"
)

// Store owns all live sessions. It is safe for concurrent use; per-session
// state is guarded by each session's own lock, the store only guards the
// id index.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{sessions: make(map[string]*Session)}
}

// Create registers a new session for the given meeting URL.
func (st *Store) Create(meetingURL string, questionQuota int) *Session {
	s := New(meetingURL, questionQuota)

	st.mu.Lock()
	st.sessions[s.ID()] = s
	st.mu.Unlock()

	return s
}

// GetOrCreate returns the session with the given id, creating one on the
// fly when chunks arrive for a session the store has never seen. Lazily
// created sessions go straight to StatusActive; the publisher is already
// in the meeting.
func (st *Store) GetOrCreate(id string, questionQuota int) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()

	if s, ok := st.sessions[id]; ok {
		return s
	}

	s := NewWithID(id, "", questionQuota)
	s.status = StatusActive
	s.startedAt = time.Now()
	st.sessions[id] = s
	return s
}

// Get returns the session with the given id.
func (st *Store) Get(id string) (*Session, error) {
	st.mu.RLock()
	s, ok := st.sessions[id]
	st.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", scrumerrors.ErrSessionNotFound, id)
	}
	return s, nil
}

// Delete removes the session with the given id.
func (st *Store) Delete(id string) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	if _, ok := st.sessions[id]; !ok {
		return fmt.Errorf("%w: %s", scrumerrors.ErrSessionNotFound, id)
	}
	delete(st.sessions, id)
	return nil
}

// List returns snapshots of all sessions, in no particular order.
func (st *Store) List() []Snapshot {
	st.mu.RLock()
	sessions := make([]*Session, 0, len(st.sessions))
	for _, s := range st.sessions {
		sessions = append(sessions, s)
	}
	st.mu.RUnlock()

	out := make([]Snapshot, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s.Snapshot())
	}
	return out
}

// Active returns all sessions that are not in a terminal state.
func (st *Store) Active() []*Session {
	st.mu.RLock()
	defer st.mu.RUnlock()

	var out []*Session
	for _, s := range st.sessions {
		if !s.Status().Terminal() {
			out = append(out, s)
		}
	}
	return out
}

// Len returns the number of registered sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}
