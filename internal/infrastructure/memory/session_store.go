// Package memory provides process-local SessionStore and EventBus
// implementations used when no Redis address is configured, and in tests.
package memory

import (
	"context"
	"encoding/json"
	"sync"

	"dob-oracle/internal/domain"

	"github.com/google/uuid"
)

type SessionStore struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID][]byte
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[uuid.UUID][]byte)}
}

// Load returns a copy so callers can mutate it without holding the lock.
func (s *SessionStore) Load(ctx context.Context, sessionID uuid.UUID) (*domain.SessionState, error) {
	s.mu.RLock()
	payload, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return domain.NewSessionState(sessionID), nil
	}

	var state domain.SessionState
	if err := json.Unmarshal(payload, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

func (s *SessionStore) Save(ctx context.Context, state *domain.SessionState) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.sessions[state.SessionID] = payload
	s.mu.Unlock()
	return nil
}
