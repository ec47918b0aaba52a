// Hortal - Bakery Ordering and Realtime Order Sync
// Copyright 2026 Padaria Hortal
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/padaria-hortal/hortal

// Package models defines the domain types shared across the application:
// products, categories, orders with their line items, chat messages, customer
// profiles, and the standard API response envelope.
//
// All persistent entities are owned by the store; everything a client session
// holds is a transient, possibly stale copy reconciled by the sync subsystem.
package models
