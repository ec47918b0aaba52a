// Hortal - Bakery Ordering and Realtime Order Sync
// Copyright 2026 Padaria Hortal
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/padaria-hortal/hortal

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/padaria-hortal/hortal/internal/events"
	"github.com/padaria-hortal/hortal/internal/logging"
	"github.com/padaria-hortal/hortal/internal/metrics"
	"github.com/padaria-hortal/hortal/internal/models"
)

// Key prefixes for BadgerDB storage. Secondary index keys hold only the
// primary key of the row they point at.
const (
	productKeyPrefix      = "product:"
	categoryKeyPrefix     = "category:"
	orderKeyPrefix        = "order:"
	orderItemKeyPrefix    = "order_item:"    // order_item:<order_id>:<seq>
	orderUserKeyPrefix    = "order_user:"    // order_user:<customer_id>:<order_id>
	messageKeyPrefix      = "message:"       // message:<created_at_nano>:<id>
	profileKeyPrefix      = "profile:"
	profileEmailKeyPrefix = "profile_email:" // profile_email:<email>
	settingsKey           = "settings"
)

// Sentinel errors returned by store operations.
var (
	ErrNotFound        = errors.New("not found")
	ErrEmailTaken      = errors.New("email already registered")
	ErrBadTransition   = errors.New("status transition not allowed")
	ErrAlreadyTerminal = errors.New("order already in a terminal state")
)

// Config configures the backing BadgerDB instance.
type Config struct {
	// Dir is the on-disk location. Ignored when InMemory is set.
	Dir string

	// InMemory runs badger without persistence, for tests and dev.
	InMemory bool
}

// Store is the entity store. All mutations publish a change event on the
// bus after the transaction commits; publication is best-effort and a
// failed publish never rolls back the write.
type Store struct {
	db  *badger.DB
	bus events.Bus
}

// Open opens the database and wires the change feed to bus.
func Open(cfg Config, bus events.Bus) (*Store, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	} else {
		opts = badger.DefaultOptions(cfg.Dir).WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", cfg.Dir, err)
	}

	return &Store{db: db, bus: bus}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Viewer identifies who is reading. Role decides whether list operations
// return every row or only the viewer's own.
type Viewer struct {
	ProfileID string
	Role      models.Role
}

// IsAdmin reports whether the viewer sees all rows.
func (v Viewer) IsAdmin() bool {
	return v.Role == models.RoleAdmin
}

// setJSON marshals v and stores it under key within txn.
func setJSON(txn *badger.Txn, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return txn.Set([]byte(key), data)
}

// getJSON loads key within txn and unmarshals into v. Returns ErrNotFound
// when the key is absent.
func getJSON(txn *badger.Txn, key string, v any) error {
	item, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get %s: %w", key, err)
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}

// scanPrefix iterates all values under prefix, calling fn with each raw
// value. fn errors abort the scan.
func scanPrefix(txn *badger.Txn, prefix string, fn func(val []byte) error) error {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = true
	it := txn.NewIterator(opts)
	defer it.Close()

	p := []byte(prefix)
	for it.Seek(p); it.ValidForPrefix(p); it.Next() {
		if err := it.Item().Value(fn); err != nil {
			return err
		}
	}
	return nil
}

// publishChange emits a change event after a committed write. Failures are
// logged and dropped: subscribers repair through refetch and polling.
func (s *Store) publishChange(ctx context.Context, table events.Table, op events.Op, rowID string, row any) {
	if s.bus == nil {
		return
	}
	ev, err := events.NewChangeEvent(table, op, rowID, row)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).
			Str("table", string(table)).Str("op", string(op)).
			Msg("Failed to build change event")
		return
	}
	if err := events.PublishChange(ctx, s.bus, ev); err != nil {
		logging.Ctx(ctx).Warn().Err(err).
			Str("table", string(table)).Str("op", string(op)).Str("row_id", rowID).
			Msg("Failed to publish change event")
	}
}

// update wraps db.Update with store-op metrics.
func (s *Store) update(op string, table events.Table, fn func(txn *badger.Txn) error) error {
	start := time.Now()
	err := s.db.Update(fn)
	metrics.RecordStoreOp(op, string(table), time.Since(start), err)
	return err
}

// view wraps db.View with store-op metrics.
func (s *Store) view(op string, table events.Table, fn func(txn *badger.Txn) error) error {
	start := time.Now()
	err := s.db.View(fn)
	metrics.RecordStoreOp(op, string(table), time.Since(start), err)
	return err
}
