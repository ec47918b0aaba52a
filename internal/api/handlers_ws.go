// Hortal - Bakery Ordering and Realtime Order Sync
// Copyright 2026 Padaria Hortal
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/padaria-hortal/hortal

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/padaria-hortal/hortal/internal/logging"
	"github.com/padaria-hortal/hortal/internal/realtime"
	"github.com/padaria-hortal/hortal/internal/sync"
)

func (h *Handler) upgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		HandshakeTimeout: 10 * time.Second,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				logging.Warn().Msg("WebSocket connection rejected: missing Origin header")
				return false
			}
			if len(allowedOrigins) == 0 {
				return true
			}
			for _, allowed := range allowedOrigins {
				if allowed == "*" || allowed == origin {
					return true
				}
			}
			logging.Warn().Str("origin", origin).Msg("WebSocket connection rejected from unauthorized origin")
			return false
		},
	}
}

// WebSocket upgrades the connection and binds a realtime client to a
// per-connection session engine. The session owns the materialized
// view; the client owns the socket pumps.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	c := claims(w, r)
	if c == nil {
		return
	}

	upgrader := h.upgrader(h.corsOrigins)
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	identity := realtime.Identity{ProfileID: c.ProfileID, Name: c.Name, Role: c.Role}
	client := realtime.NewClient(h.hub, conn, identity)
	session := sync.NewSession(identity, h.store, h.bus, client, h.sessions, h.cache)

	// The request context dies when this handler returns; the session
	// outlives it and is closed by the client's read pump on disconnect.
	session.Start(context.Background())
	client.Start(session)
}
