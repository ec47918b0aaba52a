// Hortal - Bakery Ordering and Realtime Order Sync
// Copyright 2026 Padaria Hortal
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/padaria-hortal/hortal

package realtime

import (
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/padaria-hortal/hortal/internal/logging"
	"github.com/padaria-hortal/hortal/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// Inbound message types accepted from clients. Anything else is passed
// to the session handler untouched.
const (
	MessageTypePing = "ping"
	MessageTypePong = "pong"
)

// Inbound is a client-to-server command frame.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Outbound is a server-to-client frame.
type Outbound struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Identity is who this connection belongs to.
type Identity struct {
	ProfileID string
	Name      string
	Role      models.Role
}

// IsAdmin reports whether the connection may see every customer's rows.
func (i Identity) IsAdmin() bool {
	return i.Role == models.RoleAdmin
}

// Handler receives the connection's traffic. Implementations own the
// per-connection view state.
type Handler interface {
	// HandleEvent processes one bus event routed to this connection.
	HandleEvent(ev Event)

	// HandleInbound processes one command frame from the client.
	HandleInbound(msg Inbound)

	// Close releases the handler when the connection ends.
	Close()
}

// clientIDCounter hands out monotonically increasing client IDs so hub
// iteration order is stable.
var clientIDCounter atomic.Uint64

// Client pumps frames between one websocket connection and the hub.
type Client struct {
	id       uint64
	hub      *Hub
	conn     *websocket.Conn
	identity Identity
	handler  Handler
	send     chan Outbound
	events   chan Event
}

// NewClient wraps an upgraded connection.
func NewClient(hub *Hub, conn *websocket.Conn, identity Identity) *Client {
	return &Client{
		id:       clientIDCounter.Add(1),
		hub:      hub,
		conn:     conn,
		identity: identity,
		send:     make(chan Outbound, 256),
		events:   make(chan Event, 256),
	}
}

// Identity returns who the connection belongs to.
func (c *Client) Identity() Identity {
	return c.identity
}

// Send queues an outbound frame. Frames are dropped when the connection
// cannot keep up; the write pump closing takes the client down properly.
func (c *Client) Send(msg Outbound) {
	defer func() {
		// The send channel closes when the hub unregisters the client;
		// a racing Send must not bring the process down.
		_ = recover()
	}()
	select {
	case c.send <- msg:
	default:
		logging.Warn().
			Str("profile_id", c.identity.ProfileID).
			Str("type", msg.Type).
			Msg("Client send buffer full, frame dropped")
	}
}

// Start registers the client and begins its pumps. handler receives the
// connection's traffic until the connection ends.
func (c *Client) Start(handler Handler) {
	c.handler = handler
	c.hub.Register <- c
	go c.writePump()
	go c.eventPump()
	go c.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister <- c
		_ = c.conn.Close()
		if c.handler != nil {
			c.handler.Close()
		}
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logging.Error().Err(err).Msg("Failed to set read deadline")
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg Inbound
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logging.Error().Err(err).Msg("Unexpected websocket close")
			}
			return
		}

		if msg.Type == MessageTypePing {
			c.Send(Outbound{Type: MessageTypePong})
			continue
		}
		if c.handler != nil {
			c.handler.HandleInbound(msg)
		}
	}
}

func (c *Client) eventPump() {
	for ev := range c.events {
		if c.handler != nil {
			c.handler.HandleEvent(ev)
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logging.Error().Err(err).Msg("Failed to set write deadline")
				return
			}
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				logging.Error().Err(err).Msg("Failed to write frame")
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
