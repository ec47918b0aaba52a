// Hortal - Bakery Ordering and Realtime Order Sync
// Copyright 2026 Padaria Hortal
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/padaria-hortal/hortal

package store

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/padaria-hortal/hortal/internal/events"
	"github.com/padaria-hortal/hortal/internal/logging"
	"github.com/padaria-hortal/hortal/internal/metrics"
	"github.com/padaria-hortal/hortal/internal/models"
)

// NewDeliveryCode returns the four digit hand-over code, 1000 to 9999.
func NewDeliveryCode() string {
	return fmt.Sprintf("%d", 1000+rand.IntN(9000))
}

// CreateOrder persists a new order. The header commits first, then the
// items in a second transaction; a crash in between leaves a header
// without items. Missing ID, status, delivery code, and creation time are
// filled in.
func (s *Store) CreateOrder(ctx context.Context, o *models.Order) error {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	if o.Status == "" {
		o.Status = models.StatusReceived
	}
	if o.DeliveryCode == "" {
		o.DeliveryCode = NewDeliveryCode()
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}

	header := *o
	header.Items = nil

	err := s.update("create", events.TableOrders, func(txn *badger.Txn) error {
		if err := setJSON(txn, orderKeyPrefix+o.ID, &header); err != nil {
			return err
		}
		if o.CustomerID != "" {
			userKey := orderUserKeyPrefix + o.CustomerID + ":" + o.ID
			if err := txn.Set([]byte(userKey), []byte(o.ID)); err != nil {
				return fmt.Errorf("set order user index: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("create order: %w", err)
	}

	err = s.update("create_items", events.TableOrders, func(txn *badger.Txn) error {
		for i, item := range o.Items {
			key := fmt.Sprintf("%s%s:%04d", orderItemKeyPrefix, o.ID, i)
			if err := setJSON(txn, key, &item); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("create order items for %s: %w", o.ID, err)
	}

	s.publishChange(ctx, events.TableOrders, events.OpInsert, o.ID, o)
	return nil
}

// GetOrder fetches an order with its items assembled.
func (s *Store) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	var o models.Order
	err := s.view("get", events.TableOrders, func(txn *badger.Txn) error {
		if err := getJSON(txn, orderKeyPrefix+id, &o); err != nil {
			return err
		}
		return s.loadItems(txn, &o)
	})
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *Store) loadItems(txn *badger.Txn, o *models.Order) error {
	o.Items = nil
	return scanPrefix(txn, orderItemKeyPrefix+o.ID+":", func(val []byte) error {
		var item models.OrderItem
		if err := json.Unmarshal(val, &item); err != nil {
			return fmt.Errorf("decode order item: %w", err)
		}
		o.Items = append(o.Items, item)
		return nil
	})
}

// ListOrders returns orders visible to the viewer, newest first. Admins
// see everything; customers only their own.
func (s *Store) ListOrders(ctx context.Context, viewer Viewer) ([]models.Order, error) {
	var orders []models.Order
	err := s.view("list", events.TableOrders, func(txn *badger.Txn) error {
		if viewer.IsAdmin() {
			return scanPrefix(txn, orderKeyPrefix, func(val []byte) error {
				var o models.Order
				if err := json.Unmarshal(val, &o); err != nil {
					return fmt.Errorf("decode order: %w", err)
				}
				if err := s.loadItems(txn, &o); err != nil {
					return err
				}
				orders = append(orders, o)
				return nil
			})
		}
		return scanPrefix(txn, orderUserKeyPrefix+viewer.ProfileID+":", func(val []byte) error {
			var o models.Order
			if err := getJSON(txn, orderKeyPrefix+string(val), &o); err != nil {
				return err
			}
			if err := s.loadItems(txn, &o); err != nil {
				return err
			}
			orders = append(orders, o)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	return orders, nil
}

// UpdateOrderStatus moves an order along the status machine. Transitions
// are validated against the current stored status; terminal orders reject
// every further change. Reaching completed credits the order's cashback
// to the customer's balance.
func (s *Store) UpdateOrderStatus(ctx context.Context, id string, next models.OrderStatus) (*models.Order, error) {
	var o models.Order
	err := s.update("update_status", events.TableOrders, func(txn *badger.Txn) error {
		if err := getJSON(txn, orderKeyPrefix+id, &o); err != nil {
			return err
		}
		if o.Status.IsTerminal() {
			return ErrAlreadyTerminal
		}
		if !o.Status.CanTransitionTo(next) {
			return fmt.Errorf("%w: %s to %s", ErrBadTransition, o.Status, next)
		}
		o.Status = next
		return setJSON(txn, orderKeyPrefix+id, &o)
	})
	if err != nil {
		return nil, err
	}

	metrics.OrderStatusUpdates.WithLabelValues(string(next)).Inc()

	if next == models.StatusCompleted && o.CustomerID != "" && o.CashbackEarned > 0 {
		if err := s.creditCashback(ctx, o.CustomerID, o.CashbackEarned); err != nil {
			logging.Ctx(ctx).Error().Err(err).
				Str("order_id", id).Str("customer_id", o.CustomerID).
				Msg("Failed to credit cashback on completion")
		}
	}

	if err := s.db.View(func(txn *badger.Txn) error { return s.loadItems(txn, &o) }); err != nil {
		return nil, err
	}
	s.publishChange(ctx, events.TableOrders, events.OpUpdate, id, &o)
	return &o, nil
}

// CancelOrder cancels a non-terminal order and refunds the order's earned
// cashback onto the customer balance. The refund runs after the status
// write in its own transaction and is applied whether or not the cashback
// was ever credited; repeating the sequence against a fresh copy of the
// order would credit it again.
func (s *Store) CancelOrder(ctx context.Context, id string) (*models.Order, error) {
	o, err := s.UpdateOrderStatus(ctx, id, models.StatusCancelled)
	if err != nil {
		return nil, err
	}

	if o.CustomerID != "" && o.CashbackEarned > 0 {
		if err := s.creditCashback(ctx, o.CustomerID, o.CashbackEarned); err != nil {
			logging.Ctx(ctx).Error().Err(err).
				Str("order_id", id).Str("customer_id", o.CustomerID).
				Msg("Failed to refund cashback on cancellation")
		}
	}
	return o, nil
}

// creditCashback adds delta to the profile balance, clamped at zero.
func (s *Store) creditCashback(ctx context.Context, profileID string, delta float64) error {
	var p models.Profile
	err := s.update("credit_cashback", events.TableProfiles, func(txn *badger.Txn) error {
		if err := getJSON(txn, profileKeyPrefix+profileID, &p); err != nil {
			return err
		}
		p.CashbackBalance = p.CashbackBalance + delta
		if p.CashbackBalance < 0 {
			p.CashbackBalance = 0
		}
		return setJSON(txn, profileKeyPrefix+profileID, &p)
	})
	if err != nil {
		return fmt.Errorf("credit cashback for %s: %w", profileID, err)
	}
	s.publishChange(ctx, events.TableProfiles, events.OpUpdate, profileID, p.Public())
	return nil
}

// RateOrder records the customer's rating and optional comment.
func (s *Store) RateOrder(ctx context.Context, id string, rating int, comment string) (*models.Order, error) {
	var o models.Order
	err := s.update("rate", events.TableOrders, func(txn *badger.Txn) error {
		if err := getJSON(txn, orderKeyPrefix+id, &o); err != nil {
			return err
		}
		o.Rating = rating
		o.RatingComment = comment
		return setJSON(txn, orderKeyPrefix+id, &o)
	})
	if err != nil {
		return nil, err
	}
	if err := s.db.View(func(txn *badger.Txn) error { return s.loadItems(txn, &o) }); err != nil {
		return nil, err
	}
	s.publishChange(ctx, events.TableOrders, events.OpUpdate, id, &o)
	return &o, nil
}
