// Hortal - Bakery Ordering and Realtime Order Sync
// Copyright 2026 Padaria Hortal
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/padaria-hortal/hortal

package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/padaria-hortal/hortal/internal/events"
	"github.com/padaria-hortal/hortal/internal/models"
)

func setupHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = hub.RunWithContext(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Error("hub did not stop")
		}
	})
	return hub
}

func createTestClient(hub *Hub, identity Identity) *Client {
	return NewClient(hub, nil, identity)
}

func registerClient(t *testing.T, hub *Hub, c *Client) {
	t.Helper()
	want := hub.ClientCount() + 1
	hub.Register <- c
	deadline := time.After(time.Second)
	for hub.ClientCount() < want {
		select {
		case <-deadline:
			t.Fatal("client never registered")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestHubRegistration(t *testing.T) {
	hub := setupHub(t)
	client := createTestClient(hub, Identity{ProfileID: "cust-1", Role: models.RoleCustomer})
	registerClient(t, hub, client)

	if hub.ClientCount() != 1 {
		t.Errorf("clients = %d, want 1", hub.ClientCount())
	}

	hub.Unregister <- client
	deadline := time.After(time.Second)
	for hub.ClientCount() != 0 {
		select {
		case <-deadline:
			t.Fatal("client never unregistered")
		case <-time.After(5 * time.Millisecond):
		}
	}

	// Unregister closes the channels.
	if _, ok := <-client.events; ok {
		t.Error("events channel still open after unregister")
	}
}

func TestHubFanout(t *testing.T) {
	hub := setupHub(t)

	admin := createTestClient(hub, Identity{ProfileID: "admin-1", Role: models.RoleAdmin})
	customer := createTestClient(hub, Identity{ProfileID: "cust-1", Role: models.RoleCustomer})
	registerClient(t, hub, admin)
	registerClient(t, hub, customer)

	hub.Dispatch(Event{StatusSync: events.NewOrderStatusSyncEvent("order-1", models.StatusPreparing)})

	for _, c := range []*Client{admin, customer} {
		select {
		case ev := <-c.events:
			if ev.StatusSync == nil || ev.StatusSync.OrderID != "order-1" {
				t.Errorf("client %s got %s, want status sync for order-1", c.identity.ProfileID, ev.Kind())
			}
		case <-time.After(time.Second):
			t.Errorf("client %s never received the event", c.identity.ProfileID)
		}
	}
}

func TestHubShutdownClosesClients(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = hub.RunWithContext(ctx)
		close(done)
	}()

	client := createTestClient(hub, Identity{ProfileID: "cust-1", Role: models.RoleCustomer})
	registerClient(t, hub, client)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("hub did not stop")
	}

	if _, ok := <-client.send; ok {
		t.Error("send channel still open after shutdown")
	}
	if hub.ClientCount() != 0 {
		t.Errorf("clients = %d after shutdown, want 0", hub.ClientCount())
	}
}

func TestEventKind(t *testing.T) {
	change, err := events.NewChangeEvent(events.TableOrders, events.OpUpdate, "o1", nil)
	if err != nil {
		t.Fatalf("NewChangeEvent: %v", err)
	}

	tests := []struct {
		name string
		ev   Event
		want string
	}{
		{"change", Event{Change: change}, "change.orders"},
		{"status sync", Event{StatusSync: events.NewOrderStatusSyncEvent("o1", models.StatusDelivery)}, "order_status_sync"},
		{"new message", Event{NewMessage: events.NewNewMessageEvent(models.Message{ID: "m1", Text: "oi"})}, "new_message"},
		{"empty", Event{}, "empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.ev.Kind(); got != tt.want {
				t.Errorf("Kind() = %q, want %q", got, tt.want)
			}
		})
	}
}
