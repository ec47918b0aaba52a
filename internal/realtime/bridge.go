// Hortal - Bakery Ordering and Realtime Order Sync
// Copyright 2026 Padaria Hortal
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/padaria-hortal/hortal

package realtime

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/padaria-hortal/hortal/internal/events"
	"github.com/padaria-hortal/hortal/internal/logging"
)

// Bridge consumes the bus and feeds decoded events into the hub. One
// bridge serves every connection; per-connection filtering happens in
// the sessions.
//
// Bridge implements suture.Service via Serve.
type Bridge struct {
	bus    events.Bus
	hub    *Hub
	tables []events.Table
}

// NewBridge wires bus to hub for the given change tables plus the two
// broadcast topics.
func NewBridge(bus events.Bus, hub *Hub, tables []events.Table) *Bridge {
	return &Bridge{bus: bus, hub: hub, tables: tables}
}

// Serve subscribes to every topic and routes until ctx is cancelled.
// A subscription failure returns the error so the supervisor restarts
// the bridge.
func (b *Bridge) Serve(ctx context.Context) error {
	type stream struct {
		topic  string
		ch     <-chan *message.Message
		decode func(*message.Message) (Event, error)
	}

	var streams []stream

	for _, table := range b.tables {
		topic := events.TopicChanges(table)
		ch, err := b.bus.Subscribe(ctx, topic)
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", topic, err)
		}
		streams = append(streams, stream{topic: topic, ch: ch, decode: decodeChange})
	}

	statusCh, err := b.bus.Subscribe(ctx, events.TopicOrderStatusSync)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", events.TopicOrderStatusSync, err)
	}
	streams = append(streams, stream{topic: events.TopicOrderStatusSync, ch: statusCh, decode: decodeStatusSync})

	msgCh, err := b.bus.Subscribe(ctx, events.TopicNewMessage)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", events.TopicNewMessage, err)
	}
	streams = append(streams, stream{topic: events.TopicNewMessage, ch: msgCh, decode: decodeNewMessage})

	logging.Info().Int("topics", len(streams)).Msg("Realtime bridge started")

	// One goroutine per stream; all stop when ctx is cancelled because
	// the bus closes the subscription channels.
	done := make(chan struct{})
	for _, st := range streams {
		go func(st stream) {
			for msg := range st.ch {
				ev, err := st.decode(msg)
				if err != nil {
					// Malformed events are dropped, not retried.
					logging.Warn().Err(err).Str("topic", st.topic).Msg("Dropping undecodable event")
					msg.Ack()
					continue
				}
				b.hub.Dispatch(ev)
				msg.Ack()
			}
			done <- struct{}{}
		}(st)
	}

	for range streams {
		<-done
	}
	logging.Info().Msg("Realtime bridge stopped")
	return ctx.Err()
}

func decodeChange(msg *message.Message) (Event, error) {
	ev, err := events.DecodeChange(msg)
	if err != nil {
		return Event{}, err
	}
	return Event{Change: ev}, nil
}

func decodeStatusSync(msg *message.Message) (Event, error) {
	ev, err := events.DecodeOrderStatusSync(msg)
	if err != nil {
		return Event{}, err
	}
	return Event{StatusSync: ev}, nil
}

func decodeNewMessage(msg *message.Message) (Event, error) {
	ev, err := events.DecodeNewMessage(msg)
	if err != nil {
		return Event{}, err
	}
	return Event{NewMessage: ev}, nil
}
