// Hortal - Bakery Ordering and Realtime Order Sync
// Copyright 2026 Padaria Hortal
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/padaria-hortal/hortal

package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/padaria-hortal/hortal/internal/auth"
	"github.com/padaria-hortal/hortal/internal/cep"
	"github.com/padaria-hortal/hortal/internal/logging"
	"github.com/padaria-hortal/hortal/internal/loyalty"
	"github.com/padaria-hortal/hortal/internal/models"
)

// GetProfile returns the caller's profile.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	c := claims(w, r)
	if c == nil {
		return
	}
	profile, err := h.store.GetProfile(r.Context(), c.ProfileID)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, profile.Public())
}

type updateProfileRequest struct {
	Name    string         `json:"name" validate:"required"`
	Phone   string         `json:"phone"`
	CPF     string         `json:"cpf"`
	Address models.Address `json:"address"`
}

// UpdateProfile updates the caller's contact data. Email, role, balance
// and credentials are not writable here.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	c := claims(w, r)
	if c == nil {
		return
	}
	var req updateProfileRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	profile, err := h.store.GetProfile(r.Context(), c.ProfileID)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	profile.Name = req.Name
	profile.Phone = req.Phone
	profile.CPF = req.CPF
	profile.Address = req.Address

	updated, err := h.store.UpdateProfile(r.Context(), profile)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, updated.Public())
}

// LoyaltyStatus derives the caller's tier from completed orders.
func (h *Handler) LoyaltyStatus(w http.ResponseWriter, r *http.Request) {
	c := claims(w, r)
	if c == nil {
		return
	}
	orders, err := h.store.ListOrders(r.Context(), viewerFor(c))
	if err != nil {
		respondStoreError(w, err)
		return
	}

	completed := 0
	for _, o := range orders {
		if o.CustomerID == c.ProfileID && o.Status == models.StatusCompleted {
			completed++
		}
	}

	status := loyalty.Compute(completed)
	respondSuccess(w, http.StatusOK, map[string]interface{}{
		"completed_orders": completed,
		"current":          status.Current,
		"next":             status.Next,
		"progress":         status.Progress,
		"remaining":        status.Remaining,
	})
}

// GetSettings returns the storefront settings. A store outage falls
// back to the device-cached snapshot so checkout previews keep working.
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.store.GetSettings(r.Context())
	if err != nil {
		if h.cache != nil {
			if cached, cacheErr := h.cache.LoadSettings(); cacheErr == nil {
				logging.Ctx(r.Context()).Warn().Err(err).Msg("Serving settings from device cache")
				respondSuccess(w, http.StatusOK, cached)
				return
			}
		}
		respondStoreError(w, err)
		return
	}
	if h.cache != nil {
		if err := h.cache.SaveSettings(settings); err != nil {
			logging.Ctx(r.Context()).Warn().Err(err).Msg("Settings snapshot save failed")
		}
	}
	respondSuccess(w, http.StatusOK, settings)
}

type updateSettingsRequest struct {
	DeliveryFee        float64 `json:"delivery_fee" validate:"gte=0"`
	MinOrderValue      float64 `json:"min_order_value" validate:"gte=0"`
	CashbackPercentage float64 `json:"cashback_percentage" validate:"gte=0,lte=1"`
}

// UpdateSettings saves the storefront settings.
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req updateSettingsRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	settings := models.Settings{
		DeliveryFee:        req.DeliveryFee,
		MinOrderValue:      req.MinOrderValue,
		CashbackPercentage: req.CashbackPercentage,
	}
	if err := h.store.UpdateSettings(r.Context(), settings); err != nil {
		respondStoreError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, settings)
}

// ListCustomers returns all profiles, password hashes stripped.
func (h *Handler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.store.ListProfiles(r.Context())
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, profiles)
}

type createCustomerRequest struct {
	Name     string         `json:"name" validate:"required"`
	Email    string         `json:"email" validate:"required,email"`
	Password string         `json:"password" validate:"required,min=8"`
	Phone    string         `json:"phone"`
	CPF      string         `json:"cpf"`
	Address  models.Address `json:"address"`
}

// CreateCustomer lets an admin register a customer account directly.
func (h *Handler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req createCustomerRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "HASH_ERROR", "Could not process password", err)
		return
	}

	profile := &models.Profile{
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		CPF:          req.CPF,
		Role:         models.RoleCustomer,
		Address:      req.Address,
		PasswordHash: hash,
	}
	if err := h.store.CreateProfile(r.Context(), profile); err != nil {
		respondStoreError(w, err)
		return
	}
	respondSuccess(w, http.StatusCreated, profile.Public())
}

// LookupCEP resolves a postal code for address autofill.
func (h *Handler) LookupCEP(w http.ResponseWriter, r *http.Request) {
	if h.cep == nil {
		respondError(w, http.StatusServiceUnavailable, "CEP_DISABLED", "Postal code lookup is not configured", nil)
		return
	}

	addr, err := h.cep.Lookup(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		switch {
		case errors.Is(err, cep.ErrInvalidCEP):
			respondError(w, http.StatusBadRequest, "INVALID_CEP", "Postal code must be eight digits", nil)
		case errors.Is(err, cep.ErrNotFound):
			respondError(w, http.StatusNotFound, "CEP_NOT_FOUND", "Postal code not found", nil)
		default:
			respondError(w, http.StatusBadGateway, "CEP_UPSTREAM", "Postal code service unavailable", err)
		}
		return
	}
	respondSuccess(w, http.StatusOK, addr)
}

type suggestRequest struct {
	Name     string `json:"name" validate:"required"`
	Category string `json:"category" validate:"required"`
}

// SuggestDescription asks Chef Hortal for product sales copy.
func (h *Handler) SuggestDescription(w http.ResponseWriter, r *http.Request) {
	var req suggestRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	text := h.assistant.GenerateDescription(r.Context(), req.Name, req.Category)
	respondSuccess(w, http.StatusOK, map[string]string{"description": text})
}

// SuggestPrice asks Chef Hortal for a price suggestion.
func (h *Handler) SuggestPrice(w http.ResponseWriter, r *http.Request) {
	var req suggestRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	price := h.assistant.SuggestPrice(r.Context(), req.Name, req.Category)
	respondSuccess(w, http.StatusOK, map[string]float64{"price": price})
}
