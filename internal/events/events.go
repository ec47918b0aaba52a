// Hortal - Bakery Ordering and Realtime Order Sync
// Copyright 2026 Padaria Hortal
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/padaria-hortal/hortal

package events

import (
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/padaria-hortal/hortal/internal/models"
)

// SchemaVersion is the current event schema version.
// Increment this when making breaking changes to the event envelopes.
const SchemaVersion = 1

// Table identifies a store entity that emits row-change events.
type Table string

const (
	TableProducts   Table = "products"
	TableCategories Table = "categories"
	TableOrders     Table = "orders"
	TableMessages   Table = "messages"
	TableProfiles   Table = "profiles"
	TableSettings   Table = "settings"
)

// Valid reports whether t names a known table.
func (t Table) Valid() bool {
	switch t {
	case TableProducts, TableCategories, TableOrders, TableMessages, TableProfiles, TableSettings:
		return true
	}
	return false
}

// Op is the kind of row mutation carried by a ChangeEvent.
type Op string

const (
	OpInsert Op = "INSERT"
	OpUpdate Op = "UPDATE"
	OpDelete Op = "DELETE"
)

// Valid reports whether o is a known mutation kind.
func (o Op) Valid() bool {
	switch o {
	case OpInsert, OpUpdate, OpDelete:
		return true
	}
	return false
}

// Topic names. Change events are fanned out per table so subscribers
// only receive the entities they care about; the two broadcast topics
// carry the ephemeral fast-path messages that bypass the store.
const (
	topicChangesPrefix   = "changes."
	TopicOrderStatusSync = "broadcast.order_status_sync"
	TopicNewMessage      = "broadcast.new_message"
)

// TopicChanges returns the row-change topic for a table.
func TopicChanges(t Table) string {
	return topicChangesPrefix + string(t)
}

// ChangeEvent describes a committed row mutation in the store. For
// UPDATE and DELETE the row carries at least the primary key; for
// INSERT and UPDATE it carries the full row as stored.
type ChangeEvent struct {
	SchemaVersion int             `json:"schema_version,omitempty"`
	EventID       string          `json:"event_id"`
	Table         Table           `json:"table"`
	Op            Op              `json:"op"`
	RowID         string          `json:"row_id"`
	Row           json.RawMessage `json:"row,omitempty"`
	CommittedAt   time.Time       `json:"committed_at"`
}

// NewChangeEvent creates a change event with a unique ID and timestamp.
// The row is marshalled immediately so later mutation of the source
// value cannot leak into the event.
func NewChangeEvent(table Table, op Op, rowID string, row any) (*ChangeEvent, error) {
	ev := &ChangeEvent{
		SchemaVersion: SchemaVersion,
		EventID:       uuid.New().String(),
		Table:         table,
		Op:            op,
		RowID:         rowID,
		CommittedAt:   time.Now().UTC(),
	}
	if row != nil {
		raw, err := json.Marshal(row)
		if err != nil {
			return nil, fmt.Errorf("marshal row for %s.%s: %w", table, op, err)
		}
		ev.Row = raw
	}
	return ev, nil
}

// Validate checks required fields and rejects unknown tables and ops.
// Events from the wire must pass validation before they reach a session.
func (e *ChangeEvent) Validate() error {
	if e.EventID == "" {
		return fmt.Errorf("change event: missing event_id")
	}
	if !e.Table.Valid() {
		return fmt.Errorf("change event %s: unknown table %q", e.EventID, e.Table)
	}
	if !e.Op.Valid() {
		return fmt.Errorf("change event %s: unknown op %q", e.EventID, e.Op)
	}
	if e.RowID == "" {
		return fmt.Errorf("change event %s: missing row_id", e.EventID)
	}
	return nil
}

// Topic returns the topic this event is published on.
func (e *ChangeEvent) Topic() string {
	return TopicChanges(e.Table)
}

// OrderStatusSyncEvent is the ephemeral fast-path broadcast an admin
// emits right after persisting a status change. It carries only the
// order ID and new status; receivers treat it as a hint and never let
// it resurrect an order already in a terminal state.
type OrderStatusSyncEvent struct {
	SchemaVersion int                `json:"schema_version,omitempty"`
	EventID       string             `json:"event_id"`
	OrderID       string             `json:"order_id"`
	Status        models.OrderStatus `json:"status"`
	SentAt        time.Time          `json:"sent_at"`
}

// NewOrderStatusSyncEvent creates a status broadcast for an order.
func NewOrderStatusSyncEvent(orderID string, status models.OrderStatus) *OrderStatusSyncEvent {
	return &OrderStatusSyncEvent{
		SchemaVersion: SchemaVersion,
		EventID:       uuid.New().String(),
		OrderID:       orderID,
		Status:        status,
		SentAt:        time.Now().UTC(),
	}
}

// Validate checks required fields and the status value.
func (e *OrderStatusSyncEvent) Validate() error {
	if e.OrderID == "" {
		return fmt.Errorf("order status sync event %s: missing order_id", e.EventID)
	}
	if !e.Status.Valid() {
		return fmt.Errorf("order status sync event %s: unknown status %q", e.EventID, e.Status)
	}
	return nil
}

// NewMessageEvent is the ephemeral broadcast carrying a freshly sent
// chat message so connected peers see it without waiting for the
// change feed or the next poll.
type NewMessageEvent struct {
	SchemaVersion int            `json:"schema_version,omitempty"`
	EventID       string         `json:"event_id"`
	Message       models.Message `json:"message"`
	SentAt        time.Time      `json:"sent_at"`
}

// NewNewMessageEvent creates a message broadcast.
func NewNewMessageEvent(msg models.Message) *NewMessageEvent {
	return &NewMessageEvent{
		SchemaVersion: SchemaVersion,
		EventID:       uuid.New().String(),
		Message:       msg,
		SentAt:        time.Now().UTC(),
	}
}

// Validate checks required fields.
func (e *NewMessageEvent) Validate() error {
	if e.Message.ID == "" {
		return fmt.Errorf("new message event %s: missing message id", e.EventID)
	}
	if e.Message.Text == "" {
		return fmt.Errorf("new message event %s: empty message text", e.EventID)
	}
	return nil
}

// Marshal wraps an event into a Watermill message. The message UUID
// doubles as Nats-Msg-Id on the NATS transport for deduplication.
func Marshal(eventID string, v any) (*message.Message, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	if eventID == "" {
		eventID = uuid.New().String()
	}
	return message.NewMessage(eventID, payload), nil
}

// DecodeChange parses and validates a change event from the wire.
// Malformed payloads and unknown tables or ops are rejected here so
// sessions only ever see well-formed events.
func DecodeChange(msg *message.Message) (*ChangeEvent, error) {
	var ev ChangeEvent
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		return nil, fmt.Errorf("decode change event %s: %w", msg.UUID, err)
	}
	if err := ev.Validate(); err != nil {
		return nil, err
	}
	return &ev, nil
}

// DecodeOrderStatusSync parses and validates a status broadcast.
func DecodeOrderStatusSync(msg *message.Message) (*OrderStatusSyncEvent, error) {
	var ev OrderStatusSyncEvent
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		return nil, fmt.Errorf("decode order status sync event %s: %w", msg.UUID, err)
	}
	if err := ev.Validate(); err != nil {
		return nil, err
	}
	return &ev, nil
}

// DecodeNewMessage parses and validates a message broadcast.
func DecodeNewMessage(msg *message.Message) (*NewMessageEvent, error) {
	var ev NewMessageEvent
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		return nil, fmt.Errorf("decode new message event %s: %w", msg.UUID, err)
	}
	if err := ev.Validate(); err != nil {
		return nil, err
	}
	return &ev, nil
}
