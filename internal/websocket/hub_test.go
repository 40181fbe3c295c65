package websocket

import (
	"context"
	"sync"
	"testing"
	"time"

	"insightdocs-be/internal/dto"
	"insightdocs-be/internal/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type eventRecorder struct {
	mu     sync.Mutex
	events []dto.RoomEvent
}

func (r *eventRecorder) deliver(event dto.RoomEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *eventRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func startHub(t *testing.T, rdb *redis.Client) *Hub {
	t.Helper()
	hub := NewHub(rdb, logger.NewNopLogger())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	require.Eventually(t, hub.Running, time.Second, 5*time.Millisecond)
	return hub
}

func typing(sender string) dto.RoomEvent {
	return dto.RoomEvent{Type: "typing_indicator", SenderId: sender, User: "user-1"}
}

func TestHubDeliversToLocalMembers(t *testing.T) {
	hub := startHub(t, nil)
	ctx := context.Background()
	a, b, other := &eventRecorder{}, &eventRecorder{}, &eventRecorder{}

	require.NoError(t, hub.Join(ctx, "chat_1_u", "a", a.deliver))
	require.NoError(t, hub.Join(ctx, "chat_1_u", "b", b.deliver))
	require.NoError(t, hub.Join(ctx, "chat_2_u", "other", other.deliver))

	require.NoError(t, hub.Broadcast(ctx, "chat_1_u", typing("a")))
	assert.Equal(t, 1, a.count())
	assert.Equal(t, 1, b.count())
	assert.Equal(t, 0, other.count())

	require.NoError(t, hub.Leave(ctx, "chat_1_u", "b"))
	require.NoError(t, hub.Broadcast(ctx, "chat_1_u", typing("a")))
	assert.Equal(t, 2, a.count())
	assert.Equal(t, 1, b.count())
}

func TestHubRejectsMembershipWhenNotRunning(t *testing.T) {
	hub := NewHub(nil, logger.NewNopLogger())
	assert.ErrorIs(t, hub.Join(context.Background(), "room", "a", func(dto.RoomEvent) {}), ErrHubNotRunning)

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	require.Eventually(t, hub.Running, time.Second, 5*time.Millisecond)
	cancel()
	require.Eventually(t, func() bool { return !hub.Running() }, time.Second, 5*time.Millisecond)

	assert.ErrorIs(t, hub.Leave(context.Background(), "room", "a"), ErrHubNotRunning)
}

func TestHubFansOutAcrossInstances(t *testing.T) {
	mr := miniredis.RunT(t)
	newRedis := func() *redis.Client {
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = rdb.Close() })
		return rdb
	}

	hubA := startHub(t, newRedis())
	hubB := startHub(t, newRedis())
	ctx := context.Background()

	onA, onB := &eventRecorder{}, &eventRecorder{}
	require.NoError(t, hubA.Join(ctx, "chat_1_u", "tab-a", onA.deliver))
	require.NoError(t, hubB.Join(ctx, "chat_1_u", "tab-b", onB.deliver))

	require.NoError(t, hubA.Broadcast(ctx, "chat_1_u", typing("tab-a")))

	assert.Eventually(t, func() bool { return onB.count() == 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, onA.count(), "origin instance must not deliver its own event twice")
	assert.Equal(t, 1, onB.count())

	onB.mu.Lock()
	assert.Equal(t, "tab-a", onB.events[0].SenderId)
	onB.mu.Unlock()
}

func TestHubBroadcastReportsRedisFailureAfterLocalDelivery(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })

	hub := startHub(t, rdb)
	local := &eventRecorder{}
	require.NoError(t, hub.Join(context.Background(), "room", "a", local.deliver))

	mr.Close()

	err = hub.Broadcast(context.Background(), "room", typing("b"))
	assert.Error(t, err)
	assert.Equal(t, 1, local.count())
}
