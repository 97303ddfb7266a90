package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alphalink/alphalink/internal/domain"
	"github.com/alphalink/alphalink/internal/observability"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The UI is served from arbitrary origins in dev.
		return true
	},
}

const (
	writeWait      = 10 * time.Second
	sendBufferSize = 64
)

// client is one WebSocket connection subscribed to a single channel.
type client struct {
	hub     *Hub
	conn    *websocket.Conn
	channel string
	send    chan []byte
}

// Hub fans domain events out to WebSocket subscribers. Each connection
// watches exactly one channel, fixed at upgrade time. It implements
// domain.Notifier; delivery is best-effort and makes no ordering
// promise across channels.
type Hub struct {
	mu       sync.RWMutex
	channels map[string]map[*client]bool
}

func NewHub() *Hub {
	return &Hub{
		channels: make(map[string]map[*client]bool),
	}
}

// Publish implements domain.Notifier. A subscriber whose send buffer is
// full is dropped rather than allowed to stall the publisher.
func (h *Hub) Publish(channel string, event domain.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		observability.Logger().Error("failed to encode event", "channel", channel, "error", err)
		return
	}

	// Sends happen under the read lock: remove() needs the write lock
	// to close a send channel, so no send can race a close.
	h.mu.RLock()
	var stalled []*client
	for c := range h.channels[channel] {
		select {
		case c.send <- data:
		default:
			stalled = append(stalled, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range stalled {
		h.remove(c)
		c.conn.Close()
	}
}

// Serve upgrades the request and streams events for channel until the
// peer disconnects.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, channel string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		observability.LoggerFromContext(r.Context()).Error("websocket upgrade failed", "error", err)
		return
	}

	c := &client{
		hub:     h,
		conn:    conn,
		channel: channel,
		send:    make(chan []byte, sendBufferSize),
	}

	h.mu.Lock()
	subs, ok := h.channels[channel]
	if !ok {
		subs = make(map[*client]bool)
		h.channels[channel] = subs
	}
	subs[c] = true
	h.mu.Unlock()

	go c.writePump()
	c.readPump()
}

// SubscriberCount reports how many connections watch a channel.
func (h *Hub) SubscriberCount(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[channel])
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if subs, ok := h.channels[c.channel]; ok {
		if _, subscribed := subs[c]; subscribed {
			delete(subs, c)
			close(c.send)
			if len(subs) == 0 {
				delete(h.channels, c.channel)
			}
		}
	}
}

// readPump discards inbound frames; its job is detecting disconnect.
func (c *client) readPump() {
	defer func() {
		c.hub.remove(c)
		c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) writePump() {
	defer c.conn.Close()

	for data := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}

	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}
