// Hortal - Bakery Ordering and Realtime Order Sync
// Copyright 2026 Padaria Hortal
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/padaria-hortal/hortal

// Package config loads and validates the application configuration using
// Koanf v2 with layered sources: built-in defaults, an optional YAML file,
// and environment variables (highest priority).
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for the Hortal server.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Store      StoreConfig      `koanf:"store"`
	Events     EventsConfig     `koanf:"events"`
	Sync       SyncConfig       `koanf:"sync"`
	Storefront StorefrontConfig `koanf:"storefront"`
	AI         AIConfig         `koanf:"ai"`
	CEP        CEPConfig        `koanf:"cep"`
	Security   SecurityConfig   `koanf:"security"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`
}

// StoreConfig configures the Badger-backed entity store.
type StoreConfig struct {
	// Path is the Badger data directory. Empty runs the store in
	// memory, losing all data on restart.
	Path string `koanf:"path"`

	// DeviceCachePath is the directory for the on-device snapshot
	// cache. Empty runs the cache in memory.
	DeviceCachePath string `koanf:"device_cache_path"`
}

// EventsConfig selects and configures the event bus transport.
type EventsConfig struct {
	// Transport is "inproc" (Watermill Go channels, single process) or
	// "nats" (Watermill NATS JetStream, multi process).
	Transport string `koanf:"transport"`

	NATS NATSConfig `koanf:"nats"`
}

// NATSConfig configures the optional NATS transport.
type NATSConfig struct {
	URL            string `koanf:"url"`
	EmbeddedServer bool   `koanf:"embedded_server"`
}

// SyncConfig tunes the realtime sync subsystem.
type SyncConfig struct {
	// OrderPollInterval bounds order staleness for admin viewers when push
	// updates are missed.
	OrderPollInterval time.Duration `koanf:"order_poll_interval"`

	// MessagePollInterval bounds message staleness for any authenticated
	// viewer.
	MessagePollInterval time.Duration `koanf:"message_poll_interval"`

	// SubscribeTimeout is how long a channel may stay in the subscribing
	// state before it is considered timed out.
	SubscribeTimeout time.Duration `koanf:"subscribe_timeout"`
}

// StorefrontConfig seeds the admin-tunable storefront settings.
type StorefrontConfig struct {
	DeliveryFee        float64 `koanf:"delivery_fee"`
	MinOrderValue      float64 `koanf:"min_order_value"`
	CashbackPercentage float64 `koanf:"cashback_percentage"`
}

// AIConfig configures the Chef Hortal assistant.
type AIConfig struct {
	// APIKey enables the generative service. Empty key means every call
	// returns the deterministic fallback.
	APIKey  string        `koanf:"api_key"`
	BaseURL string        `koanf:"base_url"`
	Model   string        `koanf:"model"`
	Timeout time.Duration `koanf:"timeout"`

	// RequestsPerMinute caps outbound calls to the text service.
	RequestsPerMinute int `koanf:"requests_per_minute"`
}

// CEPConfig configures the postal code lookup client.
type CEPConfig struct {
	BaseURL string        `koanf:"base_url"`
	Timeout time.Duration `koanf:"timeout"`
}

// SecurityConfig configures authentication and HTTP protection.
type SecurityConfig struct {
	// JWTSecret signs session tokens. Must be at least 32 characters in
	// production.
	JWTSecret     string        `koanf:"jwt_secret"`
	TokenTTL      time.Duration `koanf:"token_ttl"`
	AdminEmail    string        `koanf:"admin_email"`
	AdminPassword string        `koanf:"admin_password"`

	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
	CORSOrigins     []string      `koanf:"cors_origins"`
}

// LoggingConfig configures the zerolog backend.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Validate checks cross-field constraints that struct tags cannot express.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}

	switch c.Events.Transport {
	case "inproc", "nats":
	default:
		return fmt.Errorf("events.transport %q must be inproc or nats", c.Events.Transport)
	}
	if c.Events.Transport == "nats" && c.Events.NATS.URL == "" && !c.Events.NATS.EmbeddedServer {
		return fmt.Errorf("events.nats.url is required when the embedded server is disabled")
	}

	if c.Sync.OrderPollInterval <= 0 || c.Sync.MessagePollInterval <= 0 {
		return fmt.Errorf("sync poll intervals must be positive")
	}

	if c.Storefront.CashbackPercentage < 0 || c.Storefront.CashbackPercentage > 1 {
		return fmt.Errorf("storefront.cashback_percentage %v must be within [0,1]", c.Storefront.CashbackPercentage)
	}
	if c.Storefront.DeliveryFee < 0 || c.Storefront.MinOrderValue < 0 {
		return fmt.Errorf("storefront fees must not be negative")
	}

	if c.Security.JWTSecret != "" && len(c.Security.JWTSecret) < 32 {
		return fmt.Errorf("security.jwt_secret must be at least 32 characters")
	}

	return nil
}
