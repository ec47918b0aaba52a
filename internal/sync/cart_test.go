// Hortal - Bakery Ordering and Realtime Order Sync
// Copyright 2026 Padaria Hortal
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/padaria-hortal/hortal

package sync

import (
	"testing"

	"github.com/padaria-hortal/hortal/internal/models"
)

var (
	pao  = models.Product{ID: "p1", Name: "Pão Francês", Price: 0.75, Category: "panificacao"}
	bolo = models.Product{ID: "p2", Name: "Bolo de Fubá", Price: 16.00, Category: "confeitaria"}
)

func TestCartAddMergesLines(t *testing.T) {
	cart := NewCart()
	cart.Add(pao, 5)
	cart.Add(bolo, 1)
	cart.Add(pao, 5)

	items := cart.Items()
	if len(items) != 2 {
		t.Fatalf("lines = %d, want 2", len(items))
	}
	if items[0].Quantity != 10 {
		t.Errorf("pão quantity = %d, want 10", items[0].Quantity)
	}

	cart.Add(bolo, 0)
	cart.Add(bolo, -3)
	if cart.Items()[1].Quantity != 1 {
		t.Error("non-positive Add changed a line")
	}
}

func TestCartUpdateQuantityClampsAndRemoves(t *testing.T) {
	cart := NewCart()
	cart.Add(pao, 2)
	cart.Add(bolo, 1)

	cart.UpdateQuantity("p1", -1)
	if got := cart.Items()[0].Quantity; got != 1 {
		t.Errorf("quantity = %d, want 1", got)
	}

	cart.UpdateQuantity("p1", -5)
	items := cart.Items()
	if len(items) != 1 || items[0].ID != "p2" {
		t.Errorf("items = %+v, want only bolo after removal", items)
	}
}

func TestCartObservationAndSubtotal(t *testing.T) {
	cart := NewCart()
	cart.Add(pao, 10)
	cart.Add(bolo, 1)
	cart.UpdateObservation("p2", "sem açúcar na cobertura")

	if got := cart.Subtotal(); got != 23.50 {
		t.Errorf("subtotal = %v, want 23.50", got)
	}
	if cart.Items()[1].Observation != "sem açúcar na cobertura" {
		t.Error("observation not stored")
	}

	cart.Clear()
	if len(cart.Items()) != 0 || cart.Subtotal() != 0 {
		t.Error("cart not empty after Clear")
	}
}

func TestCartRegistryIsPerProfile(t *testing.T) {
	reg := NewCartRegistry()
	reg.For("cust-1").Add(pao, 1)

	if len(reg.For("cust-2").Items()) != 0 {
		t.Error("carts leaked across profiles")
	}
	if reg.For("cust-1") != reg.For("cust-1") {
		t.Error("registry handed out different carts for one profile")
	}
}
