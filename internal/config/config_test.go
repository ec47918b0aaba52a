// Hortal - Bakery Ordering and Realtime Order Sync
// Copyright 2026 Padaria Hortal
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/padaria-hortal/hortal

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() with defaults failed: %v", err)
	}

	if cfg.Server.Port != 8760 {
		t.Errorf("default port = %d, want 8760", cfg.Server.Port)
	}
	if cfg.Events.Transport != "inproc" {
		t.Errorf("default transport = %q, want inproc", cfg.Events.Transport)
	}
	if cfg.Sync.MessagePollInterval != 5*time.Second {
		t.Errorf("message poll interval = %v, want 5s", cfg.Sync.MessagePollInterval)
	}
	if cfg.Storefront.DeliveryFee != 8.50 {
		t.Errorf("delivery fee = %v, want 8.50", cfg.Storefront.DeliveryFee)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("HORTAL_SERVER_PORT", "9000")
	t.Setenv("HORTAL_LOGGING_LEVEL", "debug")
	t.Setenv("HORTAL_SECURITY_CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("port = %d, want 9000 from env", cfg.Server.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("level = %q, want debug from env", cfg.Logging.Level)
	}
	if len(cfg.Security.CORSOrigins) != 2 || cfg.Security.CORSOrigins[1] != "https://b.example" {
		t.Errorf("cors origins = %v, want two trimmed entries", cfg.Security.CORSOrigins)
	}
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "server:\n  port: 8123\nstorefront:\n  delivery_fee: 12.00\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Server.Port != 8123 {
		t.Errorf("port = %d, want 8123 from file", cfg.Server.Port)
	}
	if cfg.Storefront.DeliveryFee != 12.00 {
		t.Errorf("delivery fee = %v, want 12.00 from file", cfg.Storefront.DeliveryFee)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"bad transport", func(c *Config) { c.Events.Transport = "kafka" }},
		{"nats without url or embedded", func(c *Config) {
			c.Events.Transport = "nats"
			c.Events.NATS.URL = ""
			c.Events.NATS.EmbeddedServer = false
		}},
		{"zero poll interval", func(c *Config) { c.Sync.OrderPollInterval = 0 }},
		{"cashback above one", func(c *Config) { c.Storefront.CashbackPercentage = 1.5 }},
		{"short jwt secret", func(c *Config) { c.Security.JWTSecret = "short" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
