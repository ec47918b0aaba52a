// Hortal - Bakery Ordering and Realtime Order Sync
// Copyright 2026 Padaria Hortal
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/padaria-hortal/hortal

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) cartPayload(profileID string) map[string]interface{} {
	cart := h.carts.For(profileID)
	return map[string]interface{}{
		"items":    cart.Items(),
		"subtotal": cart.Subtotal(),
	}
}

// GetCart returns the caller's cart.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	c := claims(w, r)
	if c == nil {
		return
	}
	respondSuccess(w, http.StatusOK, h.cartPayload(c.ProfileID))
}

type addCartItemRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"gt=0"`
}

// AddCartItem puts a product snapshot into the cart, merging with an
// existing line for the same product.
func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	c := claims(w, r)
	if c == nil {
		return
	}
	var req addCartItemRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	product, err := h.store.GetProduct(r.Context(), req.ProductID)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	if !product.Active {
		respondError(w, http.StatusConflict, "PRODUCT_INACTIVE", "Product is no longer available", nil)
		return
	}

	h.carts.For(c.ProfileID).Add(*product, req.Quantity)
	respondSuccess(w, http.StatusOK, h.cartPayload(c.ProfileID))
}

type updateCartItemRequest struct {
	// Delta adjusts the quantity; the line is removed at zero or below.
	Delta       int     `json:"delta"`
	Observation *string `json:"observation"`
}

// UpdateCartItem applies a quantity delta and/or an observation to one
// cart line.
func (h *Handler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	c := claims(w, r)
	if c == nil {
		return
	}
	var req updateCartItemRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	cart := h.carts.For(c.ProfileID)
	productID := chi.URLParam(r, "productID")
	if req.Delta != 0 {
		cart.UpdateQuantity(productID, req.Delta)
	}
	if req.Observation != nil {
		cart.UpdateObservation(productID, *req.Observation)
	}
	respondSuccess(w, http.StatusOK, h.cartPayload(c.ProfileID))
}

// ClearCart empties the cart.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	c := claims(w, r)
	if c == nil {
		return
	}
	h.carts.For(c.ProfileID).Clear()
	respondSuccess(w, http.StatusOK, h.cartPayload(c.ProfileID))
}
