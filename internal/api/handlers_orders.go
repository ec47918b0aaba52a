// Hortal - Bakery Ordering and Realtime Order Sync
// Copyright 2026 Padaria Hortal
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/padaria-hortal/hortal

package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/padaria-hortal/hortal/internal/models"
	"github.com/padaria-hortal/hortal/internal/receipt"
)

type checkoutRequest struct {
	PaymentMethod models.PaymentMethod `json:"payment_method" validate:"required"`
	PaymentDetail string               `json:"payment_detail"`
	Fulfillment   models.Fulfillment   `json:"fulfillment"`
}

// Checkout turns the caller's cart into an order. Totals are fixed at
// creation: total = subtotal + delivery fee, and the cashback accrual
// is computed from the subtotal.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	c := claims(w, r)
	if c == nil {
		return
	}
	var req checkoutRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	if !validPayment(req.PaymentMethod) {
		respondError(w, http.StatusBadRequest, "INVALID_PAYMENT", "Unknown payment method", nil)
		return
	}
	fulfillment := req.Fulfillment
	if fulfillment == "" {
		fulfillment = models.FulfillmentDelivery
	}

	cart := h.carts.For(c.ProfileID)
	items := cart.Items()
	if len(items) == 0 {
		respondError(w, http.StatusBadRequest, "EMPTY_CART", "Cart is empty", nil)
		return
	}

	settings, err := h.store.GetSettings(r.Context())
	if err != nil {
		respondStoreError(w, err)
		return
	}

	subtotal := cart.Subtotal()
	if subtotal < settings.MinOrderValue {
		respondError(w, http.StatusBadRequest, "BELOW_MINIMUM",
			fmt.Sprintf("Order subtotal is below the minimum of %.2f", settings.MinOrderValue), nil)
		return
	}

	profile, err := h.store.GetProfile(r.Context(), c.ProfileID)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	deliveryFee := settings.DeliveryFee
	if fulfillment == models.FulfillmentPickup {
		deliveryFee = 0
	}

	order := &models.Order{
		CustomerID:     profile.ID,
		CustomerName:   profile.Name,
		CustomerPhone:  profile.Phone,
		Address:        profile.Address,
		Items:          orderItems(items),
		Subtotal:       subtotal,
		DeliveryFee:    deliveryFee,
		Total:          subtotal + deliveryFee,
		PaymentMethod:  req.PaymentMethod,
		PaymentDetail:  req.PaymentDetail,
		Fulfillment:    fulfillment,
		CashbackEarned: subtotal * settings.CashbackPercentage,
	}
	if err := h.store.CreateOrder(r.Context(), order); err != nil {
		respondStoreError(w, err)
		return
	}

	cart.Clear()
	respondSuccess(w, http.StatusCreated, order)
}

func orderItems(items []models.CartItem) []models.OrderItem {
	out := make([]models.OrderItem, 0, len(items))
	for _, item := range items {
		out = append(out, models.OrderItem{
			ProductID:   item.ID,
			Name:        item.Name,
			Price:       item.Price,
			Quantity:    item.Quantity,
			Observation: item.Observation,
			Image:       item.Image,
		})
	}
	return out
}

func validPayment(m models.PaymentMethod) bool {
	switch m {
	case models.PaymentPix, models.PaymentMoney, models.PaymentCard:
		return true
	}
	return false
}

// ListOrders returns the caller's orders, all orders for admins.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	c := claims(w, r)
	if c == nil {
		return
	}
	orders, err := h.store.ListOrders(r.Context(), viewerFor(c))
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, orders)
}

type rateOrderRequest struct {
	Rating  int    `json:"rating" validate:"gte=1,lte=5"`
	Comment string `json:"comment"`
}

// RateOrder lets the order's customer rate a completed order.
func (h *Handler) RateOrder(w http.ResponseWriter, r *http.Request) {
	c := claims(w, r)
	if c == nil {
		return
	}
	var req rateOrderRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	orderID := chi.URLParam(r, "orderID")
	order, err := h.store.GetOrder(r.Context(), orderID)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	if order.CustomerID != c.ProfileID {
		respondError(w, http.StatusForbidden, "NOT_YOUR_ORDER", "Order belongs to another customer", nil)
		return
	}
	if order.Status != models.StatusCompleted {
		respondError(w, http.StatusConflict, "NOT_COMPLETED", "Only completed orders can be rated", nil)
		return
	}

	updated, err := h.store.RateOrder(r.Context(), orderID, req.Rating, req.Comment)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, updated)
}

type manualOrderRequest struct {
	CustomerName  string               `json:"customer_name" validate:"required"`
	CustomerPhone string               `json:"customer_phone"`
	Address       models.Address       `json:"address"`
	Items         []models.OrderItem   `json:"items" validate:"required,min=1,dive"`
	PaymentMethod models.PaymentMethod `json:"payment_method" validate:"required"`
	PaymentDetail string               `json:"payment_detail"`
}

// CreateManualOrder lets an admin register a phone or walk-in order.
// The customer snapshot is typed in directly; no cart or profile is
// involved, and no cashback accrues.
func (h *Handler) CreateManualOrder(w http.ResponseWriter, r *http.Request) {
	var req manualOrderRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	if !validPayment(req.PaymentMethod) {
		respondError(w, http.StatusBadRequest, "INVALID_PAYMENT", "Unknown payment method", nil)
		return
	}

	settings, err := h.store.GetSettings(r.Context())
	if err != nil {
		respondStoreError(w, err)
		return
	}

	var subtotal float64
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			respondError(w, http.StatusBadRequest, "INVALID_QUANTITY", "Item quantity must be positive", nil)
			return
		}
		subtotal += item.Price * float64(item.Quantity)
	}

	order := &models.Order{
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		Address:       req.Address,
		Items:         req.Items,
		Subtotal:      subtotal,
		DeliveryFee:   settings.DeliveryFee,
		Total:         subtotal + settings.DeliveryFee,
		PaymentMethod: req.PaymentMethod,
		PaymentDetail: req.PaymentDetail,
		Fulfillment:   models.FulfillmentDelivery,
	}
	if err := h.store.CreateOrder(r.Context(), order); err != nil {
		respondStoreError(w, err)
		return
	}
	respondSuccess(w, http.StatusCreated, order)
}

type updateStatusRequest struct {
	Status models.OrderStatus `json:"status" validate:"required"`
}

// UpdateOrderStatus moves an order along the status machine.
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	if !req.Status.Valid() {
		respondError(w, http.StatusBadRequest, "INVALID_STATUS", "Unknown order status", nil)
		return
	}

	order, err := h.store.UpdateOrderStatus(r.Context(), chi.URLParam(r, "orderID"), req.Status)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, order)
}

// CancelOrder cancels an order and reverses its cashback accrual.
func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.store.CancelOrder(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, order)
}

type verifyCodeRequest struct {
	Code string `json:"code" validate:"required,len=4"`
}

// VerifyDeliveryCode checks the courier hand-over code.
func (h *Handler) VerifyDeliveryCode(w http.ResponseWriter, r *http.Request) {
	var req verifyCodeRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	order, err := h.store.GetOrder(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		respondStoreError(w, err)
		return
	}

	respondSuccess(w, http.StatusOK, map[string]bool{
		"valid": order.DeliveryCode == req.Code,
	})
}

// OrderReceipt renders the printable coupon for an order.
func (h *Handler) OrderReceipt(w http.ResponseWriter, r *http.Request) {
	order, err := h.store.GetOrder(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		respondStoreError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(receipt.BuildHTML(order)))
}
