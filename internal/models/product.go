// Hortal - Bakery Ordering and Realtime Order Sync
// Copyright 2026 Padaria Hortal
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/padaria-hortal/hortal

package models

// Product is a catalog entry. Products are created and edited by admins and
// soft-deleted via the Active flag; they are never hard-deleted in the normal
// flow so historical orders keep resolvable references.
type Product struct {
	ID          string  `json:"id"`
	Name        string  `json:"name" validate:"required"`
	Description string  `json:"description"`
	Price       float64 `json:"price" validate:"gte=0"`
	// OldPrice, when non-zero, is shown struck through next to the
	// current price for promotions.
	OldPrice float64 `json:"old_price,omitempty"`
	Category string  `json:"category" validate:"required"`
	Image    string  `json:"image"`
	Active   bool    `json:"active"`
}

// Category groups catalog products for presentation.
type Category struct {
	ID           string `json:"id"`
	Name         string `json:"name" validate:"required"`
	Emoji        string `json:"emoji"`
	DisplayOrder int    `json:"display_order"`
	Active       bool   `json:"active"`
}

// CartItem is a product snapshot plus a quantity and free-text observation.
// Cart state lives in memory only; it is never persisted remotely.
// An item whose quantity reaches zero is removed from the cart.
type CartItem struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Category    string  `json:"category"`
	Image       string  `json:"image"`
	Quantity    int     `json:"quantity"`
	Observation string  `json:"observation,omitempty"`
}
