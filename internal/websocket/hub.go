package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"

	"insightdocs-be/internal/dto"
	"insightdocs-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RoomEventsChannel is the redis channel every instance publishes room events on.
const RoomEventsChannel = "chat_room_events"

var ErrHubNotRunning = errors.New("room hub is not running")

type membership struct {
	roomKey  string
	memberId string
	deliver  func(dto.RoomEvent)
	done     chan struct{}
}

type clusterMessage struct {
	RoomKey        string        `json:"room_key"`
	OriginInstance string        `json:"origin_instance"`
	Event          dto.RoomEvent `json:"event"`
}

// Hub keeps room membership for this instance and fans room events out to
// other instances through redis. Without redis it serves local members only.
type Hub struct {
	// Room key -> member id -> delivery callback
	rooms map[string]map[string]func(dto.RoomEvent)

	register   chan *membership
	unregister chan *membership

	mu sync.RWMutex

	// Redis connection for cross-instance communication
	rdb        *redis.Client
	instanceId string
	running    atomic.Bool
	stopped    chan struct{}

	logger logger.ILogger
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		rooms:      make(map[string]map[string]func(dto.RoomEvent)),
		register:   make(chan *membership),
		unregister: make(chan *membership),
		stopped:    make(chan struct{}),
		rdb:        rdb,
		instanceId: uuid.NewString(),
		logger:     log,
	}
}

func (h *Hub) Running() bool {
	return h.running.Load()
}

// Run processes membership changes until ctx is cancelled and must be called
// once. When redis is configured the subscription is confirmed before the hub
// reports running.
func (h *Hub) Run(ctx context.Context) {
	var pubsub *redis.PubSub
	if h.rdb != nil {
		pubsub = h.rdb.Subscribe(ctx, RoomEventsChannel)
		if _, err := pubsub.Receive(ctx); err != nil {
			h.logger.Error("Hub", "Redis subscription failed, rooms are local only", map[string]interface{}{
				"error": err,
			})
			_ = pubsub.Close()
			pubsub = nil
		} else {
			go h.subscribeToRedis(pubsub)
		}
	}

	h.running.Store(true)
	h.logger.Info("Hub", "Room hub started", map[string]interface{}{
		"instance_id": h.instanceId,
		"redis":       pubsub != nil,
	})

	defer func() {
		h.running.Store(false)
		close(h.stopped)
		if pubsub != nil {
			_ = pubsub.Close()
		}
		h.mu.Lock()
		h.rooms = make(map[string]map[string]func(dto.RoomEvent))
		h.mu.Unlock()
		h.logger.Info("Hub", "Room hub stopped", nil)
	}()

	for {
		select {
		case m := <-h.register:
			h.mu.Lock()
			if h.rooms[m.roomKey] == nil {
				h.rooms[m.roomKey] = make(map[string]func(dto.RoomEvent))
			}
			h.rooms[m.roomKey][m.memberId] = m.deliver
			h.mu.Unlock()
			close(m.done)
			h.logger.Info("Hub", "Member joined room", map[string]interface{}{"room": m.roomKey, "member_id": m.memberId})

		case m := <-h.unregister:
			h.mu.Lock()
			if members, ok := h.rooms[m.roomKey]; ok {
				delete(members, m.memberId)
				if len(members) == 0 {
					delete(h.rooms, m.roomKey)
				}
			}
			h.mu.Unlock()
			close(m.done)
			h.logger.Info("Hub", "Member left room", map[string]interface{}{"room": m.roomKey, "member_id": m.memberId})

		case <-ctx.Done():
			return
		}
	}
}

func (h *Hub) Join(ctx context.Context, roomKey string, memberId string, deliver func(dto.RoomEvent)) error {
	return h.submit(ctx, h.register, &membership{roomKey: roomKey, memberId: memberId, deliver: deliver})
}

func (h *Hub) Leave(ctx context.Context, roomKey string, memberId string) error {
	return h.submit(ctx, h.unregister, &membership{roomKey: roomKey, memberId: memberId})
}

// submit hands a membership change to Run and waits until it is applied.
func (h *Hub) submit(ctx context.Context, ch chan *membership, m *membership) error {
	if !h.Running() {
		return ErrHubNotRunning
	}
	m.done = make(chan struct{})
	select {
	case ch <- m:
	case <-h.stopped:
		return ErrHubNotRunning
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-m.done:
		return nil
	case <-h.stopped:
		return ErrHubNotRunning
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Broadcast delivers event to every local member of the room and publishes it
// for other instances. Local delivery happens even if redis fails.
func (h *Hub) Broadcast(ctx context.Context, roomKey string, event dto.RoomEvent) error {
	h.deliverLocal(roomKey, event)

	if h.rdb == nil {
		return nil
	}
	payload, err := json.Marshal(clusterMessage{
		RoomKey:        roomKey,
		OriginInstance: h.instanceId,
		Event:          event,
	})
	if err != nil {
		return err
	}
	return h.rdb.Publish(ctx, RoomEventsChannel, payload).Err()
}

func (h *Hub) deliverLocal(roomKey string, event dto.RoomEvent) {
	h.mu.RLock()
	members := make([]func(dto.RoomEvent), 0, len(h.rooms[roomKey]))
	for _, deliver := range h.rooms[roomKey] {
		members = append(members, deliver)
	}
	h.mu.RUnlock()

	for _, deliver := range members {
		deliver(event)
	}
}

func (h *Hub) subscribeToRedis(pubsub *redis.PubSub) {
	for msg := range pubsub.Channel() {
		var payload clusterMessage
		if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
			h.logger.Warn("Hub", "Redis msg parse error", map[string]interface{}{"error": err.Error()})
			continue
		}

		// Already delivered locally by Broadcast
		if payload.OriginInstance == h.instanceId {
			continue
		}
		h.deliverLocal(payload.RoomKey, payload.Event)
	}
}
