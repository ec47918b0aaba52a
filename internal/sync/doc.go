// Hortal - Bakery Ordering and Realtime Order Sync
// Copyright 2026 Padaria Hortal
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/padaria-hortal/hortal

// Package sync keeps one materialized view of orders and messages per
// connected client. Each session applies the realtime patching rules,
// reconciles optimistic sends against confirmed rows, and runs the
// polling fallback that repairs whatever the realtime path missed.
package sync
