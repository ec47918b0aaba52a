// Hortal - Bakery Ordering and Realtime Order Sync
// Copyright 2026 Padaria Hortal
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/padaria-hortal/hortal

package events

import (
	"context"
	"fmt"

	"github.com/padaria-hortal/hortal/internal/models"
)

// PublishChange validates and publishes a row-change event on its
// per-table topic.
func PublishChange(ctx context.Context, bus Bus, ev *ChangeEvent) error {
	if err := ev.Validate(); err != nil {
		return err
	}
	msg, err := Marshal(ev.EventID, ev)
	if err != nil {
		return err
	}
	return bus.Publish(ctx, ev.Topic(), msg)
}

// PublishOrderStatusSync publishes the ephemeral status hint for an
// order. Callers treat failure as best-effort: the change feed and
// refetch carry the authoritative state.
func PublishOrderStatusSync(ctx context.Context, bus Bus, orderID string, status models.OrderStatus) error {
	ev := NewOrderStatusSyncEvent(orderID, status)
	if err := ev.Validate(); err != nil {
		return err
	}
	msg, err := Marshal(ev.EventID, ev)
	if err != nil {
		return err
	}
	if err := bus.Publish(ctx, TopicOrderStatusSync, msg); err != nil {
		return fmt.Errorf("broadcast order status: %w", err)
	}
	return nil
}

// PublishNewMessage publishes the ephemeral broadcast for a freshly
// stored chat message.
func PublishNewMessage(ctx context.Context, bus Bus, m models.Message) error {
	ev := NewNewMessageEvent(m)
	if err := ev.Validate(); err != nil {
		return err
	}
	msg, err := Marshal(ev.EventID, ev)
	if err != nil {
		return err
	}
	if err := bus.Publish(ctx, TopicNewMessage, msg); err != nil {
		return fmt.Errorf("broadcast new message: %w", err)
	}
	return nil
}
