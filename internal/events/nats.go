// Hortal - Bakery Ordering and Realtime Order Sync
// Copyright 2026 Padaria Hortal
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/padaria-hortal/hortal

package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/nats-io/nats-server/v2/server"
	natsgo "github.com/nats-io/nats.go"

	"github.com/padaria-hortal/hortal/internal/logging"
)

// NATSConfig configures the NATS-backed bus.
type NATSConfig struct {
	// URL of an external NATS server. Ignored when Embedded is true.
	URL string

	// Embedded runs an in-process NATS server instead of connecting
	// to an external one.
	Embedded bool

	// Host and Port for the embedded server listener.
	Host string
	Port int

	// QueueGroup for subscribers. Leave empty so every instance
	// receives every broadcast; sessions fan out to their own clients.
	QueueGroup string

	MaxReconnects int
	ReconnectWait time.Duration
	CloseTimeout  time.Duration
}

// DefaultNATSConfig returns settings suitable for a single bakery
// deployment with the server embedded in the main process.
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		Embedded:      true,
		Host:          "127.0.0.1",
		Port:          4222,
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
		CloseTimeout:  10 * time.Second,
	}
}

// NATSBus is a Bus backed by core NATS subjects. JetStream is left
// disabled: broadcasts are ephemeral and missed events are repaired by
// refetch and polling, so durability would only add replay of stale
// status hints.
type NATSBus struct {
	publisher  *wmNats.Publisher
	subscriber *wmNats.Subscriber
	embedded   *server.Server
	logger     watermill.LoggerAdapter

	mu     sync.RWMutex
	closed bool
}

// NewNATSBus starts the embedded server if configured, connects, and
// builds the Watermill publisher and subscriber pair.
func NewNATSBus(cfg NATSConfig) (*NATSBus, error) {
	logger := NewLoggerAdapter(logging.Logger().With().Str("component", "events").Logger())

	bus := &NATSBus{logger: logger}

	url := cfg.URL
	if cfg.Embedded {
		ns, err := startEmbeddedServer(cfg)
		if err != nil {
			return nil, err
		}
		bus.embedded = ns
		url = ns.ClientURL()
		logging.Info().Str("url", url).Msg("Embedded NATS server started")
	} else {
		logging.Info().Str("url", url).Msg("Using external NATS server")
	}

	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{
				"url": nc.ConnectedUrl(),
			})
		}),
	}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         url,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream:   wmNats.JetStreamConfig{Disabled: true},
	}, logger)
	if err != nil {
		bus.shutdownEmbedded()
		return nil, fmt.Errorf("create NATS publisher: %w", err)
	}
	bus.publisher = pub

	sub, err := wmNats.NewSubscriber(wmNats.SubscriberConfig{
		URL:              url,
		QueueGroupPrefix: cfg.QueueGroup,
		CloseTimeout:     cfg.CloseTimeout,
		NatsOptions:      natsOpts,
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream:        wmNats.JetStreamConfig{Disabled: true},
	}, logger)
	if err != nil {
		_ = pub.Close()
		bus.shutdownEmbedded()
		return nil, fmt.Errorf("create NATS subscriber: %w", err)
	}
	bus.subscriber = sub

	return bus, nil
}

// Publish sends msg on topic with the message UUID as Nats-Msg-Id so
// redeliveries collapse on the receiving side.
func (b *NATSBus) Publish(_ context.Context, topic string, msg *message.Message) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return fmt.Errorf("bus is closed")
	}
	b.mu.RUnlock()

	if msg.Metadata.Get(natsgo.MsgIdHdr) == "" {
		msg.Metadata.Set(natsgo.MsgIdHdr, msg.UUID)
	}
	if err := b.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

// Subscribe returns a message channel for topic.
func (b *NATSBus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return nil, fmt.Errorf("bus is closed")
	}
	b.mu.RUnlock()

	ch, err := b.subscriber.Subscribe(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("subscribe to %s: %w", topic, err)
	}
	return ch, nil
}

// Close shuts down the subscriber, the publisher, and the embedded
// server if one is running.
func (b *NATSBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	var firstErr error
	if err := b.subscriber.Close(); err != nil {
		firstErr = fmt.Errorf("close subscriber: %w", err)
	}
	if err := b.publisher.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("close publisher: %w", err)
	}
	b.shutdownEmbedded()
	return firstErr
}

func (b *NATSBus) shutdownEmbedded() {
	if b.embedded == nil {
		return
	}
	b.embedded.Shutdown()
	b.embedded.WaitForShutdown()
	b.embedded = nil
}

func startEmbeddedServer(cfg NATSConfig) (*server.Server, error) {
	opts := &server.Options{
		ServerName: "hortal-events",
		Host:       cfg.Host,
		Port:       cfg.Port,
		JetStream:  false,
		Debug:      false,
		Trace:      false,
		NoLog:      true,
		MaxPayload: 1024 * 1024,
	}

	ns, err := server.NewServer(opts)
	if err != nil {
		return nil, fmt.Errorf("create NATS server: %w", err)
	}

	go ns.Start()

	if !ns.ReadyForConnections(30 * time.Second) {
		ns.Shutdown()
		return nil, fmt.Errorf("NATS server not ready within timeout")
	}
	return ns, nil
}
