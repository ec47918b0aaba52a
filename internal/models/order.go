// Hortal - Bakery Ordering and Realtime Order Sync
// Copyright 2026 Padaria Hortal
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/padaria-hortal/hortal

package models

import "time"

// OrderStatus is the order lifecycle enumeration. Transitions only move
// forward along received → preparing → delivery → completed, or jump to
// cancelled from any non-terminal state.
type OrderStatus string

const (
	StatusReceived  OrderStatus = "received"
	StatusPreparing OrderStatus = "preparing"
	StatusDelivery  OrderStatus = "delivery"
	StatusCompleted OrderStatus = "completed"
	StatusCancelled OrderStatus = "cancelled"
)

// statusRank orders the forward progression. Terminal states have no successor.
var statusRank = map[OrderStatus]int{
	StatusReceived:  0,
	StatusPreparing: 1,
	StatusDelivery:  2,
	StatusCompleted: 3,
}

// Valid reports whether s is a known status value.
func (s OrderStatus) Valid() bool {
	switch s {
	case StatusReceived, StatusPreparing, StatusDelivery, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether the status admits no further transitions.
func (s OrderStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanTransitionTo reports whether moving from s to next is allowed:
// strictly forward along the enumeration, or a jump to cancelled from any
// non-terminal state.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s.IsTerminal() || !next.Valid() {
		return false
	}
	if next == StatusCancelled {
		return true
	}
	return statusRank[next] > statusRank[s]
}

// Next returns the next forward status, or the same status when none exists.
func (s OrderStatus) Next() OrderStatus {
	switch s {
	case StatusReceived:
		return StatusPreparing
	case StatusPreparing:
		return StatusDelivery
	case StatusDelivery:
		return StatusCompleted
	default:
		return s
	}
}

// PaymentMethod enumerates the accepted payment options.
type PaymentMethod string

const (
	PaymentPix   PaymentMethod = "pix"
	PaymentMoney PaymentMethod = "money"
	PaymentCard  PaymentMethod = "card"
)

// Fulfillment enumerates how an order reaches the customer.
type Fulfillment string

const (
	FulfillmentDelivery Fulfillment = "delivery"
	FulfillmentPickup   Fulfillment = "pickup"
)

// Address is a Brazilian postal address attached to profiles and denormalized
// onto orders at checkout.
type Address struct {
	ZipCode      string `json:"zip_code"`
	Street       string `json:"street"`
	Number       string `json:"number"`
	Complement   string `json:"complement,omitempty"`
	Neighborhood string `json:"neighborhood"`
	City         string `json:"city"`
	State        string `json:"state"`
}

// OrderItem is a point-in-time copy of a product at checkout, not a live
// product reference. Price changes after checkout do not affect placed orders.
type OrderItem struct {
	ProductID   string  `json:"product_id"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
	Observation string  `json:"observation,omitempty"`
	Image       string  `json:"image,omitempty"`
}

// Order is a placed order with its denormalized customer snapshot.
//
// Total = Subtotal + DeliveryFee, fixed at creation and never recomputed.
// DeliveryCode is a four digit code the courier asks for on hand-over.
// CashbackEarned is credited to the customer's balance on completion and
// reversed (best-effort, not idempotent) on admin cancellation.
type Order struct {
	ID             string        `json:"id"`
	CustomerID     string        `json:"customer_id"`
	CustomerName   string        `json:"customer_name"`
	CustomerPhone  string        `json:"customer_phone"`
	Address        Address       `json:"address"`
	Items          []OrderItem   `json:"items"`
	Subtotal       float64       `json:"subtotal"`
	DeliveryFee    float64       `json:"delivery_fee"`
	Total          float64       `json:"total"`
	PaymentMethod  PaymentMethod `json:"payment_method"`
	PaymentDetail  string        `json:"payment_detail,omitempty"`
	Fulfillment    Fulfillment   `json:"fulfillment"`
	Status         OrderStatus   `json:"status"`
	DeliveryCode   string        `json:"delivery_code"`
	Rating         int           `json:"rating,omitempty"`
	RatingComment  string        `json:"rating_comment,omitempty"`
	CashbackEarned float64       `json:"cashback_earned"`
	CreatedAt      time.Time     `json:"created_at"`
}
