// Hortal - Bakery Ordering and Realtime Order Sync
// Copyright 2026 Padaria Hortal
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/padaria-hortal/hortal

package models

import (
	"strconv"
	"strings"
	"time"
)

// TempIDPrefix marks a provisional, optimistically inserted message that has
// not yet been confirmed by the store. The confirmed copy replaces it during
// reconciliation; the prefix never reaches persistent storage.
const TempIDPrefix = "temp-"

// Message is one chat entry in a customer thread. Messages are immutable:
// created by the customer, an admin, or the AI assistant, never edited or
// deleted.
//
// CustomerID is the thread key. Non-admin viewers must only ever see messages
// whose CustomerID matches their own profile ID.
type Message struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"sender_id"`
	SenderName string    `json:"sender_name"`
	CustomerID string    `json:"customer_id"`
	Text       string    `json:"text"`
	IsAdmin    bool      `json:"is_admin"`
	CreatedAt  time.Time `json:"created_at"`
}

// IsProvisional reports whether the message still carries a temporary
// client-generated identifier.
func (m *Message) IsProvisional() bool {
	return strings.HasPrefix(m.ID, TempIDPrefix)
}

// NewTempMessageID builds a provisional identifier from the send timestamp.
// The timestamp keeps concurrent provisional IDs from one sender distinct.
func NewTempMessageID(at time.Time) string {
	return TempIDPrefix + strconv.FormatInt(at.UnixNano(), 10)
}
