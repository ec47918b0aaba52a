// Hortal - Bakery Ordering and Realtime Order Sync
// Copyright 2026 Padaria Hortal
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/padaria-hortal/hortal

// Package api exposes the REST and WebSocket surface consumed by the
// customer storefront and the admin dashboard.
package api

import (
	"time"

	"github.com/padaria-hortal/hortal/internal/ai"
	"github.com/padaria-hortal/hortal/internal/auth"
	"github.com/padaria-hortal/hortal/internal/cep"
	"github.com/padaria-hortal/hortal/internal/events"
	"github.com/padaria-hortal/hortal/internal/models"
	"github.com/padaria-hortal/hortal/internal/realtime"
	"github.com/padaria-hortal/hortal/internal/store"
	"github.com/padaria-hortal/hortal/internal/sync"
)

// SnapshotCache is the device-cache surface the API uses: message
// snapshots for realtime sessions plus settings and catalog snapshots
// that keep the storefront rendering when the store is unavailable.
type SnapshotCache interface {
	sync.SnapshotCache
	SaveSettings(s models.Settings) error
	LoadSettings() (models.Settings, error)
	SaveProducts(products []models.Product) error
	LoadProducts() ([]models.Product, error)
}

// Handler carries the services the HTTP surface depends on.
type Handler struct {
	store     *store.Store
	bus       events.Bus
	hub       *realtime.Hub
	auth      *auth.Manager
	assistant *ai.Service
	cep       *cep.Client
	carts     *sync.CartRegistry
	cache     SnapshotCache
	sessions  sync.Config
	started   time.Time

	corsOrigins []string
}

// Config tunes the HTTP surface.
type Config struct {
	// CORSOrigins lists allowed browser origins. Empty allows none.
	CORSOrigins []string

	// RateLimitReqs and RateLimitWindow bound requests per client IP.
	RateLimitReqs   int
	RateLimitWindow time.Duration
}

// NewHandler wires the HTTP surface. assistant, cepClient, and cache
// may be nil when those collaborators are disabled.
func NewHandler(st *store.Store, bus events.Bus, hub *realtime.Hub, authManager *auth.Manager, assistant *ai.Service, cepClient *cep.Client, cache SnapshotCache, sessions sync.Config) *Handler {
	return &Handler{
		store:     st,
		bus:       bus,
		hub:       hub,
		auth:      authManager,
		assistant: assistant,
		cep:       cepClient,
		carts:     sync.NewCartRegistry(),
		cache:     cache,
		sessions:  sessions,
		started:   time.Now(),
	}
}
