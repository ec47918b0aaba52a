// Hortal - Bakery Ordering and Realtime Order Sync
// Copyright 2026 Padaria Hortal
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/padaria-hortal/hortal

package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/padaria-hortal/hortal/internal/auth"
	"github.com/padaria-hortal/hortal/internal/logging"
	"github.com/padaria-hortal/hortal/internal/models"
	"github.com/padaria-hortal/hortal/internal/store"
	"github.com/padaria-hortal/hortal/internal/validation"
)

const maxRequestBody = 1 << 20

// respondJSON sends the standard envelope with proper headers.
func respondJSON(w http.ResponseWriter, status int, response *models.APIResponse) {
	w.Header().Set("Content-Type", "application/json")

	data, err := json.Marshal(response)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("Failed to write JSON response")
	}
}

// respondSuccess wraps data in a success envelope.
func respondSuccess(w http.ResponseWriter, status int, data interface{}) {
	respondJSON(w, status, &models.APIResponse{
		Status:   "success",
		Data:     data,
		Metadata: models.Metadata{Timestamp: time.Now()},
	})
}

// respondError sends an error envelope and logs the underlying cause.
func respondError(w http.ResponseWriter, status int, code, message string, err error) {
	if err != nil {
		logging.Error().Str("code", code).Err(err).Msg("API error")
	}
	respondJSON(w, status, &models.APIResponse{
		Status:   "error",
		Metadata: models.Metadata{Timestamp: time.Now()},
		Error: &models.APIError{
			Code:    code,
			Message: message,
		},
	})
}

// respondStoreError maps store sentinels onto HTTP statuses.
func respondStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found", err)
	case errors.Is(err, store.ErrEmailTaken):
		respondError(w, http.StatusConflict, "EMAIL_TAKEN", "Email is already registered", err)
	case errors.Is(err, store.ErrAlreadyTerminal):
		respondError(w, http.StatusConflict, "ORDER_TERMINAL", "Order is already completed or cancelled", err)
	case errors.Is(err, store.ErrBadTransition):
		respondError(w, http.StatusConflict, "BAD_TRANSITION", "Order status cannot move backwards", err)
	default:
		respondError(w, http.StatusInternalServerError, "STORE_ERROR", "Storage operation failed", err)
	}
}

// decodeRequest reads a JSON body into dst and validates it. A false
// return means the response has been written.
func decodeRequest(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_BODY", "Could not read request body", err)
		return false
	}
	if err := json.Unmarshal(body, dst); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_JSON", "Request body is not valid JSON", err)
		return false
	}
	if verr := validation.ValidateStruct(dst); verr != nil {
		respondJSON(w, http.StatusBadRequest, &models.APIResponse{
			Status:   "error",
			Metadata: models.Metadata{Timestamp: time.Now()},
			Error:    verr.ToAPIError(),
		})
		return false
	}
	return true
}

// claims returns the authenticated claims. A nil return means the
// response has been written.
func claims(w http.ResponseWriter, r *http.Request) *auth.Claims {
	c := auth.ClaimsFromContext(r.Context())
	if c == nil {
		respondError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "Authentication required", nil)
		return nil
	}
	return c
}

func viewerFor(c *auth.Claims) store.Viewer {
	return store.Viewer{ProfileID: c.ProfileID, Role: c.Role}
}

// claimsOrNil resolves claims on routes that work both anonymously and
// authenticated. Outside RequireAuth it validates the bearer token
// directly; an invalid token degrades to anonymous.
func (h *Handler) claimsOrNil(r *http.Request) *auth.Claims {
	if c := auth.ClaimsFromContext(r.Context()); c != nil {
		return c
	}
	token := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(token) <= len(prefix) || token[:len(prefix)] != prefix {
		return nil
	}
	c, err := h.auth.ValidateToken(token[len(prefix):])
	if err != nil {
		return nil
	}
	return c
}
