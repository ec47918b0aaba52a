// Hortal - Bakery Ordering and Realtime Order Sync
// Copyright 2026 Padaria Hortal
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/padaria-hortal/hortal

package realtime

import (
	"context"
	"sort"
	"sync"

	"github.com/padaria-hortal/hortal/internal/events"
	"github.com/padaria-hortal/hortal/internal/logging"
	"github.com/padaria-hortal/hortal/internal/metrics"
)

// Event is one decoded bus event fanned out to connected clients.
// Exactly one field is non-nil.
type Event struct {
	Change     *events.ChangeEvent
	StatusSync *events.OrderStatusSyncEvent
	NewMessage *events.NewMessageEvent
}

// Kind labels the event for logs and metrics.
func (e Event) Kind() string {
	switch {
	case e.Change != nil:
		return "change." + string(e.Change.Table)
	case e.StatusSync != nil:
		return "order_status_sync"
	case e.NewMessage != nil:
		return "new_message"
	}
	return "empty"
}

// Hub maintains the set of active clients and fans bus events out to
// them. Each client's session applies its own visibility filtering and
// view patching; the hub only routes.
type Hub struct {
	clients    map[*Client]bool
	dispatch   chan Event
	Register   chan *Client
	Unregister chan *Client
	mu         sync.RWMutex
}

// NewHub creates a hub.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		dispatch:   make(chan Event, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
	}
}

// RunWithContext runs the hub loop until ctx is cancelled, closing every
// client on the way out. Designed for suture supervision.
//
// Lifecycle events take priority over event fan-out so the client set is
// consistent before a broadcast is processed.
func (h *Hub) RunWithContext(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return ctx.Err()
		default:
		}

		select {
		case client := <-h.Register:
			h.register(client)
			continue
		case client := <-h.Unregister:
			h.unregister(client)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.shutdown()
			return ctx.Err()
		case client := <-h.Register:
			h.register(client)
		case client := <-h.Unregister:
			h.unregister(client)
		case ev := <-h.dispatch:
			h.fanout(ev)
		}
	}
}

// Dispatch enqueues a bus event for fan-out. Dropped when the hub is
// saturated; sessions repair through refetch and polling.
func (h *Hub) Dispatch(ev Event) {
	select {
	case h.dispatch <- ev:
	default:
		logging.Warn().Str("kind", ev.Kind()).Msg("Hub dispatch queue full, dropping event")
	}
}

// ClientCount returns the number of registered clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) register(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	total := len(h.clients)
	h.mu.Unlock()

	metrics.RealtimeClientsConnected.Set(float64(total))
	logging.Info().
		Str("profile_id", client.identity.ProfileID).
		Int("total_clients", total).
		Msg("Realtime client connected")
}

func (h *Hub) unregister(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
		close(client.events)
	}
	total := len(h.clients)
	h.mu.Unlock()

	metrics.RealtimeClientsConnected.Set(float64(total))
	logging.Info().
		Str("profile_id", client.identity.ProfileID).
		Int("total_clients", total).
		Msg("Realtime client disconnected")
}

// fanout delivers the event to every client in a deterministic order.
// A client whose event buffer is full misses the event instead of being
// dropped; its polling fallback closes the gap.
func (h *Hub) fanout(ev Event) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})

	for _, client := range clients {
		select {
		case client.events <- ev:
			metrics.RealtimeEventsDelivered.WithLabelValues(ev.Kind()).Inc()
		default:
			logging.Warn().
				Str("kind", ev.Kind()).
				Str("profile_id", client.identity.ProfileID).
				Msg("Client event buffer full, event skipped")
		}
	}
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})
	for _, client := range clients {
		close(client.send)
		close(client.events)
		delete(h.clients, client)
	}
	count := len(clients)
	h.mu.Unlock()

	metrics.RealtimeClientsConnected.Set(0)
	logging.Info().
		Str("component", "realtime-hub").
		Int("clients_closed", count).
		Msg("Realtime hub stopped")
}
