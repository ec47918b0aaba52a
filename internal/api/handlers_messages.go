// Hortal - Bakery Ordering and Realtime Order Sync
// Copyright 2026 Padaria Hortal
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/padaria-hortal/hortal

package api

import (
	"net/http"

	"github.com/padaria-hortal/hortal/internal/events"
	"github.com/padaria-hortal/hortal/internal/logging"
	"github.com/padaria-hortal/hortal/internal/models"
)

// ListMessages returns the caller's chat thread, all threads for admins.
func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	c := claims(w, r)
	if c == nil {
		return
	}
	msgs, err := h.store.ListMessages(r.Context(), viewerFor(c))
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, msgs)
}

type sendMessageRequest struct {
	Text string `json:"text" validate:"required"`

	// CustomerID selects the thread; required for admins, ignored for
	// customers who always write to their own thread.
	CustomerID string `json:"customer_id"`
}

// SendMessage persists a chat message and broadcasts it.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	c := claims(w, r)
	if c == nil {
		return
	}
	var req sendMessageRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	customerID := c.ProfileID
	isAdmin := c.Role == models.RoleAdmin
	if isAdmin {
		if req.CustomerID == "" {
			respondError(w, http.StatusBadRequest, "MISSING_CUSTOMER", "customer_id is required for admins", nil)
			return
		}
		customerID = req.CustomerID
	}

	msg := models.Message{
		SenderID:   c.ProfileID,
		SenderName: c.Name,
		CustomerID: customerID,
		Text:       req.Text,
		IsAdmin:    isAdmin,
	}
	if err := h.store.CreateMessage(r.Context(), &msg); err != nil {
		respondStoreError(w, err)
		return
	}
	h.broadcastMessage(r, msg)

	respondSuccess(w, http.StatusCreated, msg)
}

type chatRequest struct {
	Text string `json:"text" validate:"required"`
}

// ChatAssistant persists the customer's message, asks Chef Hortal for a
// reply constrained to the active catalog, and persists the reply on
// the same thread. Assistant failures degrade to a canned reply; the
// customer message is stored either way.
func (h *Handler) ChatAssistant(w http.ResponseWriter, r *http.Request) {
	c := claims(w, r)
	if c == nil {
		return
	}
	var req chatRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	question := models.Message{
		SenderID:   c.ProfileID,
		SenderName: c.Name,
		CustomerID: c.ProfileID,
		Text:       req.Text,
	}
	if err := h.store.CreateMessage(r.Context(), &question); err != nil {
		respondStoreError(w, err)
		return
	}
	h.broadcastMessage(r, question)

	products, err := h.store.ListProducts(r.Context(), true)
	if err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("Catalog unavailable for assistant prompt")
		products = nil
	}

	replyText := h.assistant.Chat(r.Context(), req.Text, products)
	reply := models.Message{
		SenderID:   "chef-hortal",
		SenderName: "Chef Hortal",
		CustomerID: c.ProfileID,
		Text:       replyText,
		IsAdmin:    true,
	}
	if err := h.store.CreateMessage(r.Context(), &reply); err != nil {
		respondStoreError(w, err)
		return
	}
	h.broadcastMessage(r, reply)

	respondSuccess(w, http.StatusOK, reply)
}

func (h *Handler) broadcastMessage(r *http.Request, msg models.Message) {
	if h.bus == nil {
		return
	}
	if err := events.PublishNewMessage(r.Context(), h.bus, msg); err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("Message broadcast failed")
	}
}
