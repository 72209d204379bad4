package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"dob-oracle/internal/domain"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests need a live server: ORACLE_TEST_REDIS_ADDR=localhost:6379 go test ./...
func testClient(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("ORACLE_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("ORACLE_TEST_REDIS_ADDR not set")
	}
	client, err := NewRedisClient(context.Background(), addr)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestRedisSessionStore_RoundTrip(t *testing.T) {
	store := NewRedisSessionStore(testClient(t), time.Minute)
	ctx := context.Background()
	id := uuid.New()

	fresh, err := store.Load(ctx, id)
	require.NoError(t, err)
	assert.False(t, fresh.Analyzing)

	fresh.Begin("2000-01-01")
	fresh.WorkflowID = "wf-1"
	require.NoError(t, store.Save(ctx, fresh))

	loaded, err := store.Load(ctx, id)
	require.NoError(t, err)
	assert.True(t, loaded.Analyzing)
	assert.Equal(t, "wf-1", loaded.WorkflowID)
}

func TestRedisEventBus_SessionChannel(t *testing.T) {
	bus := NewRedisEventBus(testClient(t))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	id := uuid.New()

	events, err := bus.SubscribeToSession(ctx, id)
	require.NoError(t, err)

	require.NoError(t, bus.PublishStatusChanged(ctx, domain.StatusChangedEvent{
		SessionID: id,
		Workflow:  &domain.WorkflowStatus{ID: "wf-1", Status: domain.WorkflowCompleted, CurrentStep: 7},
	}))

	select {
	case ev := <-events:
		assert.Equal(t, "wf-1", ev.Workflow.ID)
		assert.True(t, ev.Final())
	case <-time.After(2 * time.Second):
		t.Fatal("event not received")
	}
}
