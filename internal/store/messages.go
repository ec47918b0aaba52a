// Hortal - Bakery Ordering and Realtime Order Sync
// Copyright 2026 Padaria Hortal
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/padaria-hortal/hortal

package store

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/padaria-hortal/hortal/internal/events"
	"github.com/padaria-hortal/hortal/internal/metrics"
	"github.com/padaria-hortal/hortal/internal/models"
)

func messageKey(m *models.Message) string {
	return fmt.Sprintf("%s%020d:%s", messageKeyPrefix, m.CreatedAt.UnixNano(), m.ID)
}

// CreateMessage persists a chat message and broadcasts it. Provisional
// client identifiers never reach storage: the store always assigns a
// fresh ID, and reconciliation on the sending side maps the temp entry to
// the stored copy.
func (s *Store) CreateMessage(ctx context.Context, m *models.Message) error {
	if m.ID == "" || m.IsProvisional() {
		m.ID = uuid.New().String()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}

	err := s.update("create", events.TableMessages, func(txn *badger.Txn) error {
		return setJSON(txn, messageKey(m), m)
	})
	if err != nil {
		return fmt.Errorf("create message: %w", err)
	}

	sender := "customer"
	if m.IsAdmin {
		sender = "admin"
	}
	metrics.MessagesSent.WithLabelValues(sender).Inc()

	s.publishChange(ctx, events.TableMessages, events.OpInsert, m.ID, m)
	return nil
}

// ListMessages returns messages visible to the viewer in chronological
// order. Admins see every thread; customers only their own.
func (s *Store) ListMessages(ctx context.Context, viewer Viewer) ([]models.Message, error) {
	var messages []models.Message
	err := s.view("list", events.TableMessages, func(txn *badger.Txn) error {
		return scanPrefix(txn, messageKeyPrefix, func(val []byte) error {
			var m models.Message
			if err := json.Unmarshal(val, &m); err != nil {
				return fmt.Errorf("decode message: %w", err)
			}
			if !viewer.IsAdmin() && m.CustomerID != viewer.ProfileID {
				return nil
			}
			messages = append(messages, m)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	// Keys are ordered by creation time already; sort again so equal
	// timestamps have a stable ID tiebreak.
	sort.Slice(messages, func(i, j int) bool {
		if !messages[i].CreatedAt.Equal(messages[j].CreatedAt) {
			return messages[i].CreatedAt.Before(messages[j].CreatedAt)
		}
		return messages[i].ID < messages[j].ID
	})
	return messages, nil
}
