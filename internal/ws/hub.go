package ws

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	redisclient "github.com/studyhive/studyroom-server/internal/redis"
	"github.com/studyhive/studyroom-server/internal/service"
)

const sendBufferSize = 256

// Connection is one authenticated WebSocket client. A connection may be
// subscribed to any number of rooms.
type Connection struct {
	ID     uuid.UUID
	UserID int64

	send   chan []byte
	closed bool
}

// Hub tracks room subscriptions and fans room events out to local
// connections. Events are published through redis pub/sub so every node
// running a hub delivers them; without a redis client the hub delivers
// locally only (single-node mode).
type Hub struct {
	redis *redisclient.Client

	mu    sync.RWMutex
	rooms map[int64]map[uuid.UUID]*Connection
	subs  map[int64]bool

	ctx    context.Context
	cancel context.CancelFunc
}

func NewHub(redisClient *redisclient.Client) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		redis:  redisClient,
		rooms:  make(map[int64]map[uuid.UUID]*Connection),
		subs:   make(map[int64]bool),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (h *Hub) NewConnection(userID int64) *Connection {
	return &Connection{
		ID:     uuid.New(),
		UserID: userID,
		send:   make(chan []byte, sendBufferSize),
	}
}

// Subscribe adds the connection to a room's broadcast group.
func (h *Hub) Subscribe(conn *Connection, roomID int64) {
	h.mu.Lock()
	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[uuid.UUID]*Connection)
	}
	h.rooms[roomID][conn.ID] = conn

	startSub := h.redis != nil && !h.subs[roomID]
	if startSub {
		h.subs[roomID] = true
	}
	count := len(h.rooms[roomID])
	h.mu.Unlock()

	if startSub {
		go h.subscribeToRedis(roomID)
	}

	log.Info().
		Int64("roomId", roomID).
		Int64("userId", conn.UserID).
		Int("connCount", count).
		Msg("connection subscribed to room")
}

// Unsubscribe removes the connection from a room's broadcast group.
func (h *Hub) Unsubscribe(conn *Connection, roomID int64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.removeLocked(conn, roomID)
}

// Disconnect drops the connection from every room and closes its send
// channel. Safe to call more than once.
func (h *Hub) Disconnect(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for roomID := range h.rooms {
		h.removeLocked(conn, roomID)
	}

	if !conn.closed {
		conn.closed = true
		close(conn.send)
	}
}

// Publish sends an event to every subscriber of the room, across all nodes
// when redis is configured.
func (h *Hub) Publish(ctx context.Context, roomID int64, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	if h.redis == nil {
		h.deliver(roomID, data)
		return nil
	}
	return h.redis.Publish(ctx, redisclient.RoomChannel(roomID), data).Err()
}

// BroadcastMembers pushes a fresh studying-members snapshot to the room.
func (h *Hub) BroadcastMembers(ctx context.Context, roomID int64, members []service.StudyingMember) error {
	msg, err := newMessage(EventUpdateMembers, MembersPayload{RoomID: roomID, Members: members})
	if err != nil {
		return err
	}
	return h.Publish(ctx, roomID, msg)
}

// BroadcastRemoval tells the room to drop a member from its live view.
func (h *Hub) BroadcastRemoval(ctx context.Context, roomID, userID int64) error {
	msg, err := newMessage(EventRemoveMember, RemovePayload{RoomID: roomID, UserID: userID})
	if err != nil {
		return err
	}
	return h.Publish(ctx, roomID, msg)
}

// SendTo delivers an event to a single local connection.
func (h *Hub) SendTo(conn *Connection, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if conn.closed {
		return
	}
	select {
	case conn.send <- data:
	default:
		log.Warn().
			Int64("userId", conn.UserID).
			Msg("connection send buffer full, dropping event")
	}
}

func (h *Hub) subscribeToRedis(roomID int64) {
	channel := redisclient.RoomChannel(roomID)
	pubsub := h.redis.Subscribe(h.ctx, channel)
	defer pubsub.Close()

	log.Debug().
		Int64("roomId", roomID).
		Str("channel", channel).
		Msg("redis pubsub subscribed")

	ch := pubsub.Channel()

	for {
		select {
		case <-h.ctx.Done():
			return

		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.deliver(roomID, []byte(msg.Payload))
		}
	}
}

// deliver fans an already-encoded event out to the room's local connections.
// A slow consumer gets the event dropped rather than stalling the rest.
func (h *Hub) deliver(roomID int64, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, conn := range h.rooms[roomID] {
		if conn.closed {
			continue
		}
		select {
		case conn.send <- data:
		default:
			log.Warn().
				Int64("roomId", roomID).
				Int64("userId", conn.UserID).
				Msg("connection send buffer full, dropping event")
		}
	}
}

func (h *Hub) removeLocked(conn *Connection, roomID int64) {
	if conns, ok := h.rooms[roomID]; ok {
		if _, ok := conns[conn.ID]; ok {
			delete(conns, conn.ID)
			if len(conns) == 0 {
				delete(h.rooms, roomID)
			}
			log.Info().
				Int64("roomId", roomID).
				Int64("userId", conn.UserID).
				Int("connCount", len(conns)).
				Msg("connection unsubscribed from room")
		}
	}
}

// SubscriberCount reports the local subscribers of a room.
func (h *Hub) SubscriberCount(roomID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

func (h *Hub) Close() {
	h.cancel()

	h.mu.Lock()
	defer h.mu.Unlock()

	seen := make(map[uuid.UUID]bool)
	for _, conns := range h.rooms {
		for _, conn := range conns {
			if !conn.closed && !seen[conn.ID] {
				seen[conn.ID] = true
				conn.closed = true
				close(conn.send)
			}
		}
	}
	h.rooms = make(map[int64]map[uuid.UUID]*Connection)
}
