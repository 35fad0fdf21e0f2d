// Package websocket streams lifecycle events to websocket clients.
package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/agentstation/lineup/internal/server/events"
	"github.com/agentstation/lineup/pkg/constants"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10 // must be shorter than pongWait
	maxMessageSize = 512
)

// Hub tracks connected clients and fans events out to them. A client
// that cannot keep up is disconnected.
type Hub struct {
	mu         sync.RWMutex
	clients    map[*Client]struct{}
	broadcast  chan events.Event
	register   chan *Client
	unregister chan *Client
	logger     *zerolog.Logger
}

// NewHub creates a hub.
func NewHub(logger *zerolog.Logger) *Hub {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Hub{
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan events.Event, constants.ChannelBufferSize),
		register:   make(chan *Client, 16),
		unregister: make(chan *Client, 16),
		logger:     logger,
	}
}

// Run serves the hub until ctx is done, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug().Str("client_id", c.id).Int("clients", n).Msg("Websocket client connected")

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug().Str("client_id", c.id).Int("clients", n).Msg("Websocket client disconnected")

		case e := <-h.broadcast:
			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- e:
				default:
					delete(h.clients, c)
					close(c.send)
					h.logger.Warn().Str("client_id", c.id).Msg("Websocket client too slow, disconnected")
				}
			}
			h.mu.Unlock()
		}
	}
}

// Register adds a client.
func (h *Hub) Register(c *Client) {
	h.register <- c
}

// Unregister removes a client.
func (h *Hub) Unregister(c *Client) {
	h.unregister <- c
}

// Send implements events.Subscriber.
func (h *Hub) Send(e events.Event) error {
	select {
	case h.broadcast <- e:
	default:
		h.logger.Warn().Str("event_type", string(e.Type)).Msg("Websocket broadcast queue full, event dropped")
	}
	return nil
}

// Close implements events.Subscriber. The hub stops with its Run context.
func (h *Hub) Close() error { return nil }

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Client is one websocket connection.
type Client struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	send chan events.Event
}

// NewClient creates a client for conn.
func NewClient(id string, hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		id:   id,
		hub:  hub,
		conn: conn,
		send: make(chan events.Event, constants.ChannelBufferSize),
	}
}

// ReadPump discards inbound messages and keeps the connection alive. It
// unregisters the client when the peer goes away.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn().Err(err).Str("client_id", c.id).Msg("Websocket read error")
			}
			return
		}
	}
}

// WritePump writes queued events to the connection as JSON text frames.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case e, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			data, err := json.Marshal(e)
			if err != nil {
				c.hub.logger.Error().Err(err).Str("event_type", string(e.Type)).Msg("Failed to encode event")
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
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
