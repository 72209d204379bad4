package memory

import (
	"context"
	"sync"

	"dob-oracle/internal/domain"

	"github.com/google/uuid"
)

const subscriberBuffer = 16

type EventBus struct {
	mu          sync.Mutex
	subscribers map[uuid.UUID]map[chan domain.StatusChangedEvent]struct{}
}

func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[uuid.UUID]map[chan domain.StatusChangedEvent]struct{})}
}

// PublishStatusChanged never blocks: a subscriber whose buffer is full misses the event.
func (b *EventBus) PublishStatusChanged(ctx context.Context, event domain.StatusChangedEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for ch := range b.subscribers[event.SessionID] {
		select {
		case ch <- event:
		default:
		}
	}
	return nil
}

func (b *EventBus) SubscribeToSession(ctx context.Context, sessionID uuid.UUID) (<-chan domain.StatusChangedEvent, error) {
	ch := make(chan domain.StatusChangedEvent, subscriberBuffer)

	b.mu.Lock()
	if b.subscribers[sessionID] == nil {
		b.subscribers[sessionID] = make(map[chan domain.StatusChangedEvent]struct{})
	}
	b.subscribers[sessionID][ch] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subscribers[sessionID], ch)
		if len(b.subscribers[sessionID]) == 0 {
			delete(b.subscribers, sessionID)
		}
		close(ch)
		b.mu.Unlock()
	}()

	return ch, nil
}
