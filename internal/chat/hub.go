package chat

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 64 << 10
	sendBuffer     = 32
)

// Hub groups websocket clients into rooms keyed by chat slug and relays
// frames between the members of a room.
type Hub struct {
	mu       sync.RWMutex
	rooms    map[string]map[*client]struct{}
	upgrader websocket.Upgrader
	log      *slog.Logger
}

type client struct {
	hub       *Hub
	conn      *websocket.Conn
	room      string
	accountID int64
	send      chan []byte
	closeOnce sync.Once
}

// NewHub returns an empty hub. checkOrigin may be nil to accept same-origin
// requests only.
func NewHub(log *slog.Logger, checkOrigin func(r *http.Request) bool) *Hub {
	return &Hub{
		rooms: make(map[string]map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		log: log,
	}
}

// Serve upgrades the request and relays frames until the connection closes.
// Every text frame a client sends is delivered to the other clients in room.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, room string, accountID int64) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	c := &client{
		hub:       h,
		conn:      conn,
		room:      room,
		accountID: accountID,
		send:      make(chan []byte, sendBuffer),
	}
	h.register(c)

	go c.writePump()
	c.readPump()
	return nil
}

// Broadcast queues payload for every client in room.
func (h *Hub) Broadcast(room string, payload []byte) {
	h.relay(room, payload, nil)
}

// RoomSize returns the number of connected clients in room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.rooms[room])
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	var clients []*client
	for _, members := range h.rooms {
		for c := range members {
			clients = append(clients, c)
		}
	}
	h.rooms = make(map[string]map[*client]struct{})
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
}

func (h *Hub) relay(room string, payload []byte, from *client) {
	h.mu.RLock()
	var slow []*client
	for c := range h.rooms[room] {
		if c == from {
			continue
		}
		select {
		case c.send <- payload:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	// Clients that cannot keep up are dropped rather than blocking the room.
	for _, c := range slow {
		h.log.Warn("chat client too slow, disconnecting", slog.String("room", room), slog.Int64("account_id", c.accountID))
		h.unregister(c)
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.rooms[c.room]
	if !ok {
		members = make(map[*client]struct{})
		h.rooms[c.room] = members
	}
	members[c] = struct{}{}
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if members, ok := h.rooms[c.room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, c.room)
		}
	}
	h.mu.Unlock()

	c.close()
}

func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.send)
	})
}

func (c *client) readPump() {
	defer func() {
		c.hub.unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		kind, payload, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.log.Warn("chat connection closed", slog.String("room", c.room), slog.Any("error", err))
			}
			return
		}
		if kind != websocket.TextMessage {
			continue
		}
		c.hub.relay(c.room, payload, c)
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
