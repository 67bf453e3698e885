// internal/realtime/hub.go
package realtime

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/eco-backend/internal/metrics"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second

	// sendBuffer is how many events a client may lag behind before it is
	// dropped.
	sendBuffer = 16
)

// Event is the payload pushed to a user's connected clients.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// client is one connection. Only its write pump touches conn for writing.
type client struct {
	userID string
	conn   *ws.Conn
	send   chan []byte
	done   chan struct{}
}

func newClient(userID string, conn *ws.Conn) *client {
	return &client{
		userID: userID,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
	}
}

// Hub keeps the connected clients of each user.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*client]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[string]map[*client]struct{})}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	if h.clients[c.userID] == nil {
		h.clients[c.userID] = make(map[*client]struct{})
	}
	h.clients[c.userID][c] = struct{}{}
	h.mu.Unlock()
	metrics.WebsocketClients.Inc()
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	set, ok := h.clients[c.userID]
	if ok {
		if _, present := set[c]; !present {
			ok = false
		}
		delete(set, c)
		if len(set) == 0 {
			delete(h.clients, c.userID)
		}
	}
	h.mu.Unlock()

	if !ok {
		return
	}
	metrics.WebsocketClients.Dec()
	close(c.done)
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

// ClientCount returns the number of connections open for userID.
func (h *Hub) ClientCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// Publish queues an event for every connection of userID without waiting on
// the network. A client whose queue is full is dropped.
func (h *Hub) Publish(userID string, eventType string, data interface{}) {
	payload, err := json.Marshal(Event{Type: eventType, Data: data})
	if err != nil {
		logrus.WithError(err).Warn("ws: marshal error")
		return
	}

	h.mu.RLock()
	targets := make([]*client, 0, len(h.clients[userID]))
	for c := range h.clients[userID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		select {
		case c.send <- payload:
		default:
			logrus.WithField("user_id", userID).Debug("ws: dropping slow client")
			h.unregister(c)
		}
	}
}

// writePump drains the send queue and keeps the connection alive with pings.
func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case payload := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(ws.TextMessage, payload); err != nil {
				logrus.WithError(err).WithField("user_id", c.userID).Debug("ws: dropping client")
				h.unregister(c)
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(ws.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				h.unregister(c)
				return
			}
		}
	}
}

// Upgrader is the default WebSocket upgrader. Origin checks are left to the
// CORS layer and the bearer token.
var Upgrader = ws.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Serve upgrades the connection for an authenticated user and blocks until
// the client goes away.
func (h *Hub) Serve(userID string, w http.ResponseWriter, r *http.Request) {
	conn, err := Upgrader.Upgrade(w, r, nil)
	if err != nil {
		logrus.WithError(err).Warn("ws: upgrade error")
		return
	}

	c := newClient(userID, conn)
	h.register(c)
	logrus.WithField("user_id", userID).Debug("ws: client connected")

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go h.writePump(c)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.unregister(c)
	logrus.WithField("user_id", userID).Debug("ws: client disconnected")
}
