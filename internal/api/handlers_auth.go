// Hortal - Bakery Ordering and Realtime Order Sync
// Copyright 2026 Padaria Hortal
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/padaria-hortal/hortal

package api

import (
	"errors"
	"net/http"

	"github.com/padaria-hortal/hortal/internal/auth"
	"github.com/padaria-hortal/hortal/internal/models"
	"github.com/padaria-hortal/hortal/internal/store"
)

type registerRequest struct {
	Name     string         `json:"name" validate:"required"`
	Email    string         `json:"email" validate:"required,email"`
	Password string         `json:"password" validate:"required,min=8"`
	Phone    string         `json:"phone"`
	CPF      string         `json:"cpf"`
	Address  models.Address `json:"address"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type sessionResponse struct {
	Token   string         `json:"token"`
	Profile models.Profile `json:"profile"`
}

// Register creates a customer account and opens a session.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
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

	token, err := h.auth.IssueToken(profile)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "TOKEN_ERROR", "Could not issue session token", err)
		return
	}

	respondSuccess(w, http.StatusCreated, sessionResponse{Token: token, Profile: profile.Public()})
}

// Login opens a session for an existing account.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	profile, err := h.store.GetProfileByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Email or password is incorrect", nil)
			return
		}
		respondStoreError(w, err)
		return
	}

	if err := auth.CheckPassword(profile.PasswordHash, req.Password); err != nil {
		respondError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Email or password is incorrect", nil)
		return
	}

	token, err := h.auth.IssueToken(profile)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "TOKEN_ERROR", "Could not issue session token", err)
		return
	}

	respondSuccess(w, http.StatusOK, sessionResponse{Token: token, Profile: profile.Public()})
}
