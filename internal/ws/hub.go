// Package ws pushes chat events to connected users over WebSocket.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Tokens travel in the Authorization header or query string, not cookies
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Event is the frame written to clients
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Client is one WebSocket connection of a user. A user may hold several.
type Client struct {
	hub    *Hub
	userID uuid.UUID
	conn   *websocket.Conn
	send   chan []byte
}

type delivery struct {
	userID  uuid.UUID
	payload []byte
}

// Hub tracks live connections per user and fans events out to them
type Hub struct {
	clients    map[uuid.UUID]map[*Client]bool
	deliver    chan delivery
	register   chan *Client
	unregister chan *Client
	online     chan chan map[uuid.UUID]int
	log        *logrus.Entry
}

func NewHub(log *logrus.Logger) *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID]map[*Client]bool),
		deliver:    make(chan delivery, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		online:     make(chan chan map[uuid.UUID]int),
		log:        log.WithField("component", "ws_hub"),
	}
}

// Run owns the client registry until ctx is done
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for _, set := range h.clients {
				for client := range set {
					close(client.send)
				}
			}
			h.clients = make(map[uuid.UUID]map[*Client]bool)
			return
		case client := <-h.register:
			set, ok := h.clients[client.userID]
			if !ok {
				set = make(map[*Client]bool)
				h.clients[client.userID] = set
			}
			set[client] = true
			h.log.WithField("user_id", client.userID).Debug("WebSocket client registered")
		case client := <-h.unregister:
			h.remove(client)
		case d := <-h.deliver:
			for client := range h.clients[d.userID] {
				select {
				case client.send <- d.payload:
				default:
					// slow consumer
					h.remove(client)
				}
			}
		case reply := <-h.online:
			counts := make(map[uuid.UUID]int, len(h.clients))
			for userID, set := range h.clients {
				counts[userID] = len(set)
			}
			reply <- counts
		}
	}
}

func (h *Hub) remove(client *Client) {
	set, ok := h.clients[client.userID]
	if !ok || !set[client] {
		return
	}
	delete(set, client)
	close(client.send)
	if len(set) == 0 {
		delete(h.clients, client.userID)
	}
	h.log.WithField("user_id", client.userID).Debug("WebSocket client unregistered")
}

// SendToUser queues an event for every connection of userID. It never blocks
// the caller; events are dropped when the hub is saturated.
func (h *Hub) SendToUser(userID uuid.UUID, eventType string, data interface{}) {
	payload, err := json.Marshal(Event{Type: eventType, Data: data})
	if err != nil {
		h.log.WithError(err).Error("Failed to marshal WS event")
		return
	}
	select {
	case h.deliver <- delivery{userID: userID, payload: payload}:
	default:
		h.log.WithField("user_id", userID).Warn("WS delivery queue full, dropping event")
	}
}

// OnlineCount returns the number of live connections for userID
func (h *Hub) OnlineCount(ctx context.Context, userID uuid.UUID) int {
	reply := make(chan map[uuid.UUID]int, 1)
	select {
	case h.online <- reply:
	case <-ctx.Done():
		return 0
	}
	select {
	case counts := <-reply:
		return counts[userID]
	case <-ctx.Done():
		return 0
	}
}

// ServeWs upgrades the request and attaches the connection to userID
func (h *Hub) ServeWs(w http.ResponseWriter, r *http.Request, userID uuid.UUID) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("WebSocket upgrade error")
		return
	}
	client := &Client{hub: h, userID: userID, conn: conn, send: make(chan []byte, sendBuffer)}
	h.register <- client

	go client.writePump()
	go client.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		// Clients only send pings; sending goes through the REST API
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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
