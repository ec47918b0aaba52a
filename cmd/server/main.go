// Hortal - Bakery Ordering and Realtime Order Sync
// Copyright 2026 Padaria Hortal
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/padaria-hortal/hortal

// Command server runs the Hortal bakery backend: the HTTP API, the
// realtime order sync engine, and the event bus that ties them together.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/padaria-hortal/hortal/internal/ai"
	"github.com/padaria-hortal/hortal/internal/api"
	"github.com/padaria-hortal/hortal/internal/auth"
	"github.com/padaria-hortal/hortal/internal/cep"
	"github.com/padaria-hortal/hortal/internal/config"
	"github.com/padaria-hortal/hortal/internal/devicecache"
	"github.com/padaria-hortal/hortal/internal/events"
	"github.com/padaria-hortal/hortal/internal/logging"
	"github.com/padaria-hortal/hortal/internal/models"
	"github.com/padaria-hortal/hortal/internal/realtime"
	"github.com/padaria-hortal/hortal/internal/store"
	"github.com/padaria-hortal/hortal/internal/supervisor"
	"github.com/padaria-hortal/hortal/internal/sync"
)

func main() {
	if err := run(); err != nil {
		logging.Error().Err(err).Msg("Server exited with error")
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})
	logging.Info().
		Str("transport", cfg.Events.Transport).
		Int("port", cfg.Server.Port).
		Msg("Starting Hortal server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bus, err := buildBus(cfg)
	if err != nil {
		return fmt.Errorf("build event bus: %w", err)
	}
	defer func() {
		if err := bus.Close(); err != nil {
			logging.Warn().Err(err).Msg("Event bus close failed")
		}
	}()

	st, err := store.Open(store.Config{Dir: cfg.Store.Path, InMemory: cfg.Store.Path == ""}, bus)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logging.Warn().Err(err).Msg("Store close failed")
		}
	}()

	if err := st.SeedSettings(ctx, models.Settings{
		DeliveryFee:        cfg.Storefront.DeliveryFee,
		MinOrderValue:      cfg.Storefront.MinOrderValue,
		CashbackPercentage: cfg.Storefront.CashbackPercentage,
	}); err != nil {
		return fmt.Errorf("seed settings: %w", err)
	}

	authManager, err := buildAuth(cfg)
	if err != nil {
		return fmt.Errorf("build auth: %w", err)
	}
	if err := seedAdmin(ctx, st, cfg); err != nil {
		return fmt.Errorf("seed admin account: %w", err)
	}

	cache, err := devicecache.Open(devicecache.Config{
		Dir:      cfg.Store.DeviceCachePath,
		InMemory: cfg.Store.DeviceCachePath == "",
	})
	if err != nil {
		return fmt.Errorf("open device cache: %w", err)
	}
	defer func() {
		if err := cache.Close(); err != nil {
			logging.Warn().Err(err).Msg("Device cache close failed")
		}
	}()

	assistant := ai.NewService(ai.Config{
		APIKey:            cfg.AI.APIKey,
		BaseURL:           cfg.AI.BaseURL,
		Model:             cfg.AI.Model,
		Timeout:           cfg.AI.Timeout,
		RequestsPerMinute: cfg.AI.RequestsPerMinute,
	})
	if !assistant.Configured() {
		logging.Warn().Msg("AI assistant not configured, serving canned replies")
	}
	cepClient := cep.NewClient(cfg.CEP.BaseURL, cfg.CEP.Timeout)

	hub := realtime.NewHub()
	bridge := realtime.NewBridge(bus, hub, []events.Table{
		events.TableProducts,
		events.TableCategories,
		events.TableOrders,
		events.TableMessages,
		events.TableProfiles,
		events.TableSettings,
	})

	handler := api.NewHandler(st, bus, hub, authManager, assistant, cepClient, cache, sync.Config{
		OrderPollInterval:   cfg.Sync.OrderPollInterval,
		MessagePollInterval: cfg.Sync.MessagePollInterval,
		SubscribeTimeout:    cfg.Sync.SubscribeTimeout,
	})
	router := handler.Routes(api.Config{
		CORSOrigins:     cfg.Security.CORSOrigins,
		RateLimitReqs:   cfg.Security.RateLimitReqs,
		RateLimitWindow: cfg.Security.RateLimitWindow,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: cfg.Server.Timeout,
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddRealtimeService(supervisor.NewHubService(hub))
	tree.AddRealtimeService(bridge)
	tree.AddAPIService(supervisor.NewHTTPService(server, cfg.Server.Timeout))

	logging.Info().Str("addr", server.Addr).Msg("Hortal server listening")
	err = tree.Serve(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("supervisor tree: %w", err)
	}

	if report, reportErr := tree.UnstoppedServiceReport(); reportErr == nil && len(report) > 0 {
		for _, svc := range report {
			logging.Warn().Str("service", svc.Name).Msg("Service did not stop within timeout")
		}
	}
	logging.Info().Msg("Hortal server stopped")
	return nil
}

// buildBus selects the event transport. Both variants are wrapped with
// the publish circuit breaker so a wedged transport sheds load instead
// of stalling request handlers.
func buildBus(cfg *config.Config) (events.Bus, error) {
	switch cfg.Events.Transport {
	case "nats":
		natsCfg := events.DefaultNATSConfig()
		natsCfg.URL = cfg.Events.NATS.URL
		natsCfg.Embedded = cfg.Events.NATS.EmbeddedServer
		bus, err := events.NewNATSBus(natsCfg)
		if err != nil {
			return nil, err
		}
		return events.NewBreakerBus(bus), nil
	default:
		return events.NewBreakerBus(events.NewInProcBus()), nil
	}
}

// buildAuth creates the token manager. An unset secret gets a random
// ephemeral one, which invalidates every session on restart.
func buildAuth(cfg *config.Config) (*auth.Manager, error) {
	secret := cfg.Security.JWTSecret
	if secret == "" {
		secret = uuid.NewString() + uuid.NewString()
		logging.Warn().Msg("security.jwt_secret not set, using an ephemeral secret")
	}
	return auth.NewManager(secret, cfg.Security.TokenTTL)
}

// seedAdmin creates the back-office account from configuration. An
// existing account with the same email is left untouched.
func seedAdmin(ctx context.Context, st *store.Store, cfg *config.Config) error {
	if cfg.Security.AdminEmail == "" || cfg.Security.AdminPassword == "" {
		logging.Warn().Msg("No admin account configured")
		return nil
	}

	hash, err := auth.HashPassword(cfg.Security.AdminPassword)
	if err != nil {
		return err
	}
	admin := &models.Profile{
		Name:         "Padaria Hortal",
		Email:        cfg.Security.AdminEmail,
		Role:         models.RoleAdmin,
		PasswordHash: hash,
	}
	err = st.CreateProfile(ctx, admin)
	if errors.Is(err, store.ErrEmailTaken) {
		return nil
	}
	if err != nil {
		return err
	}
	logging.Info().Str("email", cfg.Security.AdminEmail).Msg("Admin account created")
	return nil
}
