package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/abrezinsky/basta/internal/logger"
	"github.com/abrezinsky/basta/internal/models"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	sendBuffer = 256

	// MessageChange carries a models.ChangeEvent
	MessageChange = "change"
	// MessageSubscribed is sent once a client is attached to a room
	MessageSubscribed = "subscribed"
)

var errHubStopped = errors.New("websocket hub stopped")

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type roomMessage struct {
	roomID uuid.UUID
	msg    models.WSMessage
}

// Hub fans change events out to the websocket clients watching each room
type Hub struct {
	log        logger.Logger
	rooms      map[uuid.UUID]map[*Client]bool
	broadcast  chan roomMessage
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mutex      sync.RWMutex
}

// Client is a middleman between the websocket connection and the hub
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	roomID uuid.UUID
	send   chan models.WSMessage
}

// New creates a new Hub
func New(log logger.Logger) *Hub {
	return &Hub{
		log:        log,
		rooms:      make(map[uuid.UUID]map[*Client]bool),
		broadcast:  make(chan roomMessage, sendBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Start runs the hub loop until ctx is cancelled
func (h *Hub) Start(ctx context.Context) {
	go h.run(ctx)
}

func (h *Hub) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mutex.Lock()
			for roomID, clients := range h.rooms {
				for client := range clients {
					close(client.send)
				}
				delete(h.rooms, roomID)
			}
			h.mutex.Unlock()
			h.log.Debug("WebSocket hub stopped")
			return

		case client := <-h.register:
			h.mutex.Lock()
			if h.rooms[client.roomID] == nil {
				h.rooms[client.roomID] = make(map[*Client]bool)
			}
			h.rooms[client.roomID][client] = true
			h.mutex.Unlock()
			h.log.Debug("Client connected", "room_id", client.roomID, "room_clients", h.ClientCount(client.roomID))

		case client := <-h.unregister:
			h.remove(client)

		case m := <-h.broadcast:
			h.mutex.RLock()
			var slow []*Client
			for client := range h.rooms[m.roomID] {
				select {
				case client.send <- m.msg:
				default:
					slow = append(slow, client)
				}
			}
			h.mutex.RUnlock()
			// a client that cannot keep up is dropped
			for _, client := range slow {
				h.remove(client)
			}
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	clients, ok := h.rooms[client.roomID]
	if !ok || !clients[client] {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.rooms, client.roomID)
	}
	h.log.Debug("Client disconnected", "room_id", client.roomID, "room_clients", len(clients))
}

// ClientCount returns the number of clients watching roomID
func (h *Hub) ClientCount(roomID uuid.UUID) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.rooms[roomID])
}

// Publish queues ev for every client watching its room
func (h *Hub) Publish(ctx context.Context, ev models.ChangeEvent) error {
	select {
	case h.broadcast <- roomMessage{roomID: ev.RoomID, msg: models.WSMessage{Type: MessageChange, Payload: ev}}:
		return nil
	case <-h.done:
		return errHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// readPump drains the connection so control frames are processed
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Debug("WebSocket error", "error", err)
			}
			break
		}

		var msg models.WSMessage
		if err := json.Unmarshal(message, &msg); err == nil {
			c.hub.log.Debug("Ignoring client message", "type", msg.Type, "room_id", c.roomID)
		}
	}
}

// writePump pumps messages from the hub to the websocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeWs attaches a websocket client to the room named by the room query parameter
func (h *Hub) ServeWs(w http.ResponseWriter, r *http.Request) {
	roomID, err := uuid.Parse(r.URL.Query().Get("room"))
	if err != nil {
		http.Error(w, `{"code":"VALIDATION_ERROR","error":"room query parameter must be a room id"}`, http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("WebSocket upgrade error", "error", err)
		return
	}

	client := &Client{
		hub:    h,
		conn:   conn,
		roomID: roomID,
		send:   make(chan models.WSMessage, sendBuffer),
	}
	client.send <- models.WSMessage{Type: MessageSubscribed, Payload: map[string]string{"room_id": roomID.String()}}
	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}
