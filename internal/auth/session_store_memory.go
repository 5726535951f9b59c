package auth

import (
	"context"
	"sync"
)

// NewInMemorySessionStore returns a SessionStore backed by an in-memory map.
func NewInMemorySessionStore() *InMemorySessionStore {
	return &InMemorySessionStore{sessions: make(map[string]Session)}
}

// InMemorySessionStore implements SessionStore for tests and local development.
type InMemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]Session
}

// Put records session as the principal's only live refresh token.
func (s *InMemorySessionStore) Put(_ context.Context, session Session) error {
	s.mu.Lock()
	s.sessions[session.PrincipalID] = session
	s.mu.Unlock()
	return nil
}

// Get returns the principal's live session.
func (s *InMemorySessionStore) Get(_ context.Context, principalID string) (Session, error) {
	s.mu.Lock()
	session, ok := s.sessions[principalID]
	s.mu.Unlock()
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	return session, nil
}

// Clear drops the principal's session. Clearing an absent session is not an error.
func (s *InMemorySessionStore) Clear(_ context.Context, principalID string) error {
	s.mu.Lock()
	delete(s.sessions, principalID)
	s.mu.Unlock()
	return nil
}

// Rotate swaps in next only if the stored hash still equals presentedHash.
func (s *InMemorySessionStore) Rotate(_ context.Context, principalID, presentedHash string, next Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.sessions[principalID]
	if !ok || current.RefreshTokenHash != presentedHash {
		return ErrTokenReplayed
	}
	next.PrincipalID = principalID
	s.sessions[principalID] = next
	return nil
}
