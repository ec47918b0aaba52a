// Hortal - Bakery Ordering and Realtime Order Sync
// Copyright 2026 Padaria Hortal
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/padaria-hortal/hortal

// Package devicecache persists view snapshots on the device so the UI
// paints from the last known state before the store answers. Fixed
// keys, whole-value writes, last write wins; there is no merging and
// no invalidation beyond overwriting.
package devicecache

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/padaria-hortal/hortal/internal/models"
)

// Snapshot keys. One value per key, overwritten wholesale.
const (
	keyMessages = "hortal_messages"
	keySettings = "hortal_settings"
	keyProducts = "hortal_products"
)

// ErrEmpty is returned when a snapshot has never been saved.
var ErrEmpty = errors.New("devicecache: no snapshot")

// Cache is a badger-backed snapshot store.
type Cache struct {
	db *badger.DB
}

// Config locates the cache database.
type Config struct {
	Dir      string
	InMemory bool
}

// Open opens or creates the cache database.
func Open(cfg Config) (*Cache, error) {
	opts := badger.DefaultOptions(cfg.Dir).WithLogger(nil)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open device cache: %w", err)
	}
	return &Cache{db: db}, nil
}

// Close releases the database.
func (c *Cache) Close() error {
	return c.db.Close()
}

func (c *Cache) save(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode snapshot %s: %w", key, err)
	}
	err = c.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
	if err != nil {
		return fmt.Errorf("save snapshot %s: %w", key, err)
	}
	return nil
}

func (c *Cache) load(key string, v any) error {
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, v)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrEmpty
	}
	if err != nil {
		return fmt.Errorf("load snapshot %s: %w", key, err)
	}
	return nil
}

// SaveMessages overwrites the message snapshot.
func (c *Cache) SaveMessages(msgs []models.Message) error {
	return c.save(keyMessages, msgs)
}

// LoadMessages reads the message snapshot. ErrEmpty when never saved.
func (c *Cache) LoadMessages() ([]models.Message, error) {
	var msgs []models.Message
	if err := c.load(keyMessages, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// SaveSettings overwrites the settings snapshot.
func (c *Cache) SaveSettings(s models.Settings) error {
	return c.save(keySettings, s)
}

// LoadSettings reads the settings snapshot. ErrEmpty when never saved.
func (c *Cache) LoadSettings() (models.Settings, error) {
	var s models.Settings
	if err := c.load(keySettings, &s); err != nil {
		return models.Settings{}, err
	}
	return s, nil
}

// SaveProducts overwrites the catalog snapshot.
func (c *Cache) SaveProducts(products []models.Product) error {
	return c.save(keyProducts, products)
}

// LoadProducts reads the catalog snapshot. ErrEmpty when never saved.
func (c *Cache) LoadProducts() ([]models.Product, error) {
	var products []models.Product
	if err := c.load(keyProducts, &products); err != nil {
		return nil, err
	}
	return products, nil
}
