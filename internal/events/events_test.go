// Hortal - Bakery Ordering and Realtime Order Sync
// Copyright 2026 Padaria Hortal
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/padaria-hortal/hortal

package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"

	"github.com/padaria-hortal/hortal/internal/models"
)

func TestChangeEventValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ChangeEvent)
		wantErr bool
	}{
		{"valid", func(*ChangeEvent) {}, false},
		{"unknown table", func(e *ChangeEvent) { e.Table = "sessions" }, true},
		{"unknown op", func(e *ChangeEvent) { e.Op = "UPSERT" }, true},
		{"missing row id", func(e *ChangeEvent) { e.RowID = "" }, true},
		{"missing event id", func(e *ChangeEvent) { e.EventID = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := NewChangeEvent(TableOrders, OpUpdate, "order-1", map[string]string{"status": "preparing"})
			if err != nil {
				t.Fatalf("NewChangeEvent: %v", err)
			}
			tt.mutate(ev)
			err = ev.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestChangeEventTopic(t *testing.T) {
	ev, err := NewChangeEvent(TableMessages, OpInsert, "msg-1", nil)
	if err != nil {
		t.Fatalf("NewChangeEvent: %v", err)
	}
	if got, want := ev.Topic(), "changes.messages"; got != want {
		t.Errorf("Topic() = %q, want %q", got, want)
	}
}

func TestChangeEventCapturesRowAtCreation(t *testing.T) {
	row := map[string]any{"id": "order-1", "status": "received"}
	ev, err := NewChangeEvent(TableOrders, OpInsert, "order-1", row)
	if err != nil {
		t.Fatalf("NewChangeEvent: %v", err)
	}

	// Mutating the source value after creation must not affect the event.
	row["status"] = "cancelled"

	var decoded map[string]any
	if err := json.Unmarshal(ev.Row, &decoded); err != nil {
		t.Fatalf("unmarshal row: %v", err)
	}
	if decoded["status"] != "received" {
		t.Errorf("row status = %v, want received", decoded["status"])
	}
}

func TestDecodeChangeRejectsMalformed(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"not json", `{{`},
		{"unknown table", `{"event_id":"e1","table":"widgets","op":"INSERT","row_id":"r1"}`},
		{"unknown op", `{"event_id":"e1","table":"orders","op":"MERGE","row_id":"r1"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := message.NewMessage("e1", []byte(tt.payload))
			if _, err := DecodeChange(msg); err == nil {
				t.Error("DecodeChange() accepted malformed payload")
			}
		})
	}
}

func TestDecodeOrderStatusSync(t *testing.T) {
	ev := NewOrderStatusSyncEvent("order-1", models.StatusPreparing)
	msg, err := Marshal(ev.EventID, ev)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	got, err := DecodeOrderStatusSync(msg)
	if err != nil {
		t.Fatalf("DecodeOrderStatusSync: %v", err)
	}
	if got.OrderID != "order-1" || got.Status != models.StatusPreparing {
		t.Errorf("decoded = %+v", got)
	}

	t.Run("rejects unknown status", func(t *testing.T) {
		bad := message.NewMessage("e2", []byte(`{"event_id":"e2","order_id":"order-1","status":"shipped"}`))
		if _, err := DecodeOrderStatusSync(bad); err == nil {
			t.Error("DecodeOrderStatusSync() accepted unknown status")
		}
	})
}

func TestInProcBusRoundTrip(t *testing.T) {
	bus := NewInProcBus()
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := bus.Subscribe(ctx, TopicNewMessage)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	want := models.Message{
		ID:         "msg-1",
		SenderID:   "user-1",
		SenderName: "Maria",
		CustomerID: "user-1",
		Text:       "Bom dia! Meu pedido já saiu?",
		CreatedAt:  time.Now().UTC(),
	}
	if err := PublishNewMessage(ctx, bus, want); err != nil {
		t.Fatalf("PublishNewMessage: %v", err)
	}

	select {
	case msg := <-ch:
		got, err := DecodeNewMessage(msg)
		if err != nil {
			t.Fatalf("DecodeNewMessage: %v", err)
		}
		if got.Message.ID != want.ID || got.Message.Text != want.Text {
			t.Errorf("received message = %+v, want %+v", got.Message, want)
		}
		msg.Ack()
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for broadcast")
	}
}

func TestInProcBusClosedRejectsPublish(t *testing.T) {
	bus := NewInProcBus()
	if err := bus.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	err := bus.Publish(context.Background(), TopicNewMessage, message.NewMessage("m1", nil))
	if err == nil {
		t.Error("Publish() on closed bus succeeded")
	}
}

type failingBus struct {
	err error
}

func (f *failingBus) Publish(context.Context, string, *message.Message) error { return f.err }
func (f *failingBus) Subscribe(context.Context, string) (<-chan *message.Message, error) {
	return nil, f.err
}
func (f *failingBus) Close() error { return nil }

func TestBreakerBusOpensAfterConsecutiveFailures(t *testing.T) {
	inner := &failingBus{err: errors.New("transport down")}
	bus := NewBreakerBus(inner)

	msg := message.NewMessage("m1", nil)
	for i := 0; i < 5; i++ {
		if err := bus.Publish(context.Background(), TopicOrderStatusSync, msg); err == nil {
			t.Fatalf("publish %d succeeded, want failure", i)
		}
	}

	// Breaker is open now: the wrapped bus must not be hit anymore.
	inner.err = nil
	if err := bus.Publish(context.Background(), TopicOrderStatusSync, msg); err == nil {
		t.Error("Publish() succeeded while breaker open")
	}
}
