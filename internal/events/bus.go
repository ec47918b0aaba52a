// Hortal - Bakery Ordering and Realtime Order Sync
// Copyright 2026 Padaria Hortal
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/padaria-hortal/hortal

package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/sony/gobreaker/v2"

	"github.com/padaria-hortal/hortal/internal/logging"
)

// Bus is the pub/sub transport events travel on. Both the in-process
// gochannel implementation and the NATS implementation satisfy it.
type Bus interface {
	// Publish sends a message to a topic. Returning nil means the
	// transport accepted the message, not that anyone received it.
	Publish(ctx context.Context, topic string, msg *message.Message) error

	// Subscribe returns a channel of messages for the topic. The
	// channel closes when ctx is cancelled or the bus shuts down.
	Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error)

	// Close shuts the transport down. Publish and Subscribe fail
	// afterwards.
	Close() error
}

// InProcBus is a gochannel-backed Bus for single-instance deployments.
// Subscribers only receive messages published after they subscribe,
// which matches the ephemeral semantics of the broadcast topics.
type InProcBus struct {
	pubsub *gochannel.GoChannel
	logger watermill.LoggerAdapter

	mu     sync.RWMutex
	closed bool
}

// NewInProcBus creates an in-process bus.
func NewInProcBus() *InProcBus {
	logger := NewLoggerAdapter(logging.Logger().With().Str("component", "events").Logger())
	return &InProcBus{
		pubsub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: 256,
		}, logger),
		logger: logger,
	}
}

// Publish sends msg on topic.
func (b *InProcBus) Publish(_ context.Context, topic string, msg *message.Message) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return fmt.Errorf("bus is closed")
	}
	b.mu.RUnlock()

	if err := b.pubsub.Publish(topic, msg); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

// Subscribe returns a message channel for topic.
func (b *InProcBus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return nil, fmt.Errorf("bus is closed")
	}
	b.mu.RUnlock()

	ch, err := b.pubsub.Subscribe(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("subscribe to %s: %w", topic, err)
	}
	return ch, nil
}

// Close shuts the bus down and closes all subscriber channels.
func (b *InProcBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	return b.pubsub.Close()
}

// BreakerBus wraps a Bus with a circuit breaker around Publish so a
// wedged transport sheds load instead of stalling request handlers.
// Subscribe and Close pass through untouched.
type BreakerBus struct {
	inner   Bus
	breaker *gobreaker.CircuitBreaker[any]
}

// NewBreakerBus wraps bus with a circuit breaker. The breaker opens
// after five consecutive publish failures and probes again after ten
// seconds.
func NewBreakerBus(bus Bus) *BreakerBus {
	settings := gobreaker.Settings{
		Name: "event-bus-publish",
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Event bus circuit breaker state change")
		},
	}
	return &BreakerBus{
		inner:   bus,
		breaker: gobreaker.NewCircuitBreaker[any](settings),
	}
}

// Publish sends msg through the circuit breaker.
func (b *BreakerBus) Publish(ctx context.Context, topic string, msg *message.Message) error {
	_, err := b.breaker.Execute(func() (any, error) {
		return nil, b.inner.Publish(ctx, topic, msg)
	})
	return err
}

// Subscribe delegates to the wrapped bus.
func (b *BreakerBus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return b.inner.Subscribe(ctx, topic)
}

// Close delegates to the wrapped bus.
func (b *BreakerBus) Close() error {
	return b.inner.Close()
}
