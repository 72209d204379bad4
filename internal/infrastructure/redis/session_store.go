package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"dob-oracle/internal/domain"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type RedisSessionStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisSessionStore(client *redis.Client, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{
		client: client,
		prefix: "oracle:session:",
		ttl:    ttl,
	}
}

// Load returns a fresh state for unknown or expired sessions
func (s *RedisSessionStore) Load(ctx context.Context, sessionID uuid.UUID) (*domain.SessionState, error) {
	payload, err := s.client.Get(ctx, s.prefix+sessionID.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.NewSessionState(sessionID), nil
	}
	if err != nil {
		return nil, err
	}

	var state domain.SessionState
	if err := json.Unmarshal(payload, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// Save overwrites the session and refreshes its TTL
func (s *RedisSessionStore) Save(ctx context.Context, state *domain.SessionState) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return err
	}

	return s.client.Set(ctx, s.prefix+state.SessionID.String(), payload, s.ttl).Err()
}
