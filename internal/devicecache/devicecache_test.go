// Hortal - Bakery Ordering and Realtime Order Sync
// Copyright 2026 Padaria Hortal
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/padaria-hortal/hortal

package devicecache

import (
	"errors"
	"testing"
	"time"

	"github.com/padaria-hortal/hortal/internal/models"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(Config{InMemory: true})
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestEmptySnapshots(t *testing.T) {
	c := newTestCache(t)

	if _, err := c.LoadMessages(); !errors.Is(err, ErrEmpty) {
		t.Errorf("LoadMessages error = %v, want ErrEmpty", err)
	}
	if _, err := c.LoadSettings(); !errors.Is(err, ErrEmpty) {
		t.Errorf("LoadSettings error = %v, want ErrEmpty", err)
	}
	if _, err := c.LoadProducts(); !errors.Is(err, ErrEmpty) {
		t.Errorf("LoadProducts error = %v, want ErrEmpty", err)
	}
}

func TestMessageSnapshotRoundTrip(t *testing.T) {
	c := newTestCache(t)

	msgs := []models.Message{
		{ID: "m1", SenderID: "cust-1", CustomerID: "cust-1", Text: "oi", CreatedAt: time.Now().UTC().Truncate(time.Millisecond)},
		{ID: "m2", SenderID: "admin-1", CustomerID: "cust-1", Text: "olá!", IsAdmin: true, CreatedAt: time.Now().UTC().Truncate(time.Millisecond)},
	}
	if err := c.SaveMessages(msgs); err != nil {
		t.Fatalf("SaveMessages: %v", err)
	}

	got, err := c.LoadMessages()
	if err != nil {
		t.Fatalf("LoadMessages: %v", err)
	}
	if len(got) != 2 || got[0].ID != "m1" || got[1].Text != "olá!" {
		t.Errorf("LoadMessages = %+v", got)
	}
}

func TestLastWriteWins(t *testing.T) {
	c := newTestCache(t)

	if err := c.SaveMessages([]models.Message{{ID: "old"}}); err != nil {
		t.Fatalf("SaveMessages: %v", err)
	}
	if err := c.SaveMessages([]models.Message{{ID: "new-1"}, {ID: "new-2"}}); err != nil {
		t.Fatalf("SaveMessages: %v", err)
	}

	got, err := c.LoadMessages()
	if err != nil {
		t.Fatalf("LoadMessages: %v", err)
	}
	if len(got) != 2 || got[0].ID != "new-1" {
		t.Errorf("snapshot not overwritten: %+v", got)
	}
}

func TestSettingsAndProductsSnapshots(t *testing.T) {
	c := newTestCache(t)

	settings := models.DefaultSettings()
	settings.DeliveryFee = 9.99
	if err := c.SaveSettings(settings); err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}
	gotSettings, err := c.LoadSettings()
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if gotSettings.DeliveryFee != 9.99 {
		t.Errorf("DeliveryFee = %v, want 9.99", gotSettings.DeliveryFee)
	}

	products := []models.Product{{ID: "p1", Name: "Pão Francês", Price: 0.75, Category: "paes", Active: true}}
	if err := c.SaveProducts(products); err != nil {
		t.Fatalf("SaveProducts: %v", err)
	}
	gotProducts, err := c.LoadProducts()
	if err != nil {
		t.Fatalf("LoadProducts: %v", err)
	}
	if len(gotProducts) != 1 || gotProducts[0].Name != "Pão Francês" {
		t.Errorf("LoadProducts = %+v", gotProducts)
	}
}
