// Hortal - Bakery Ordering and Realtime Order Sync
// Copyright 2026 Padaria Hortal
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/padaria-hortal/hortal

// Package store persists the storefront entities in BadgerDB and emits a
// change event on the bus after every committed mutation. Writes are
// single-row atomic only; multi-row operations (order header plus items,
// cancellation plus cashback reversal) run as separate transactions and
// can partially succeed.
package store
