// Hortal - Bakery Ordering and Realtime Order Sync
// Copyright 2026 Padaria Hortal
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/padaria-hortal/hortal

package sync

import (
	"sync"

	"github.com/padaria-hortal/hortal/internal/models"
)

// Cart is one customer's in-memory cart. Carts are never persisted
// remotely; they live for the lifetime of the process.
type Cart struct {
	mu    sync.Mutex
	items []models.CartItem
}

// NewCart returns an empty cart.
func NewCart() *Cart {
	return &Cart{}
}

// Add puts quantity units of the product in the cart, merging with an
// existing line for the same product.
func (c *Cart) Add(p models.Product, quantity int) {
	if quantity <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.items {
		if c.items[i].ID == p.ID {
			c.items[i].Quantity += quantity
			return
		}
	}
	c.items = append(c.items, models.CartItem{
		ID:       p.ID,
		Name:     p.Name,
		Price:    p.Price,
		Category: p.Category,
		Image:    p.Image,
		Quantity: quantity,
	})
}

// UpdateQuantity adjusts a line's quantity by delta, clamping at zero.
// A line that reaches zero is removed.
func (c *Cart) UpdateQuantity(productID string, delta int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := c.items[:0]
	for _, item := range c.items {
		if item.ID == productID {
			item.Quantity += delta
			if item.Quantity < 0 {
				item.Quantity = 0
			}
		}
		if item.Quantity > 0 {
			out = append(out, item)
		}
	}
	c.items = out
}

// UpdateObservation sets the free-text note on a line.
func (c *Cart) UpdateObservation(productID, observation string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.items {
		if c.items[i].ID == productID {
			c.items[i].Observation = observation
			return
		}
	}
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
}

// Items returns a copy of the cart lines.
func (c *Cart) Items() []models.CartItem {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]models.CartItem, len(c.items))
	copy(out, c.items)
	return out
}

// Subtotal sums price times quantity across the cart.
func (c *Cart) Subtotal() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	var total float64
	for _, item := range c.items {
		total += item.Price * float64(item.Quantity)
	}
	return total
}

// CartRegistry hands out one cart per profile.
type CartRegistry struct {
	mu    sync.Mutex
	carts map[string]*Cart
}

// NewCartRegistry returns an empty registry.
func NewCartRegistry() *CartRegistry {
	return &CartRegistry{carts: make(map[string]*Cart)}
}

// For returns the cart for a profile, creating it on first use.
func (r *CartRegistry) For(profileID string) *Cart {
	r.mu.Lock()
	defer r.mu.Unlock()

	cart, ok := r.carts[profileID]
	if !ok {
		cart = NewCart()
		r.carts[profileID] = cart
	}
	return cart
}
