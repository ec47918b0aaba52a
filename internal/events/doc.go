// Hortal - Bakery Ordering and Realtime Order Sync
// Copyright 2026 Padaria Hortal
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/padaria-hortal/hortal

// Package events defines the typed events that flow between the store,
// the realtime hub, and client sessions, plus the Watermill bus they
// travel on. Two transports are supported: an in-process gochannel bus
// for single-binary deployments, and NATS (external or embedded) for
// multi-instance setups.
package events
