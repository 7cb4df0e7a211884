package conversation

import (
	"context"
	"errors"
	"sync"
)

// ErrSessionIDRequired is returned when a store call has no session key.
var ErrSessionIDRequired = errors.New("conversation: session id required")

// SessionStore persists SessionState by opaque session id. A missing
// session loads as the zero state.
type SessionStore interface {
	Load(ctx context.Context, sessionID string) (SessionState, error)
	Save(ctx context.Context, sessionID string, state SessionState) error
	Delete(ctx context.Context, sessionID string) error
}

// MemorySessionStore keeps sessions in process. It backs the terminal REPL
// and tests.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]SessionState
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]SessionState)}
}

func (s *MemorySessionStore) Load(_ context.Context, sessionID string) (SessionState, error) {
	if sessionID == "" {
		return SessionState{}, ErrSessionIDRequired
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[sessionID].clone(), nil
}

func (s *MemorySessionStore) Save(_ context.Context, sessionID string, state SessionState) error {
	if sessionID == "" {
		return ErrSessionIDRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = state.clone()
	return nil
}

func (s *MemorySessionStore) Delete(_ context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrSessionIDRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}
