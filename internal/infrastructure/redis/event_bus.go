package redis

import (
	"context"
	"encoding/json"

	"dob-oracle/internal/domain"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type RedisEventBus struct {
	client        *redis.Client
	channelPrefix string
}

func NewRedisEventBus(client *redis.Client) *RedisEventBus {
	return &RedisEventBus{
		client:        client,
		channelPrefix: "oracle:events:",
	}
}

func (b *RedisEventBus) channel(sessionID uuid.UUID) string {
	return b.channelPrefix + sessionID.String()
}

// PublishStatusChanged broadcasts the event on the session's channel
func (b *RedisEventBus) PublishStatusChanged(ctx context.Context, event domain.StatusChangedEvent) error {
	// Serialize the struct to JSON
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return b.client.Publish(ctx, b.channel(event.SessionID), payload).Err()
}

// SubscribeToSession opens a continuous stream of one session's events
func (b *RedisEventBus) SubscribeToSession(ctx context.Context, sessionID uuid.UUID) (<-chan domain.StatusChangedEvent, error) {
	pubsub := b.client.Subscribe(ctx, b.channel(sessionID))

	// Wait for the subscription to be confirmed so no publish slips past us
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, err
	}

	msgChan := make(chan domain.StatusChangedEvent)

	// Forward Redis messages to the Go channel until the caller goes away
	go func() {
		defer close(msgChan)
		defer pubsub.Close()

		redisChan := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-redisChan:
				if !ok {
					return
				}
				var event domain.StatusChangedEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					continue
				}
				select {
				case msgChan <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return msgChan, nil
}
