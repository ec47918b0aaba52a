// Hortal - Bakery Ordering and Realtime Order Sync
// Copyright 2026 Padaria Hortal
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/padaria-hortal/hortal

// Package metrics provides Prometheus instrumentation for store operations,
// API latency, realtime channel activity, polling fallback, and the AI
// assistant's failure behavior.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Store metrics
	StoreOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hortal_store_operation_duration_seconds",
			Help:    "Duration of entity store operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	StoreOpErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hortal_store_operation_errors_total",
			Help: "Total number of entity store operation errors",
		},
		[]string{"operation", "table"},
	)

	// API metrics
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hortal_api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hortal_api_active_requests",
			Help: "Number of API requests currently in flight",
		},
	)

	// Realtime metrics
	RealtimeClientsConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hortal_realtime_clients_connected",
			Help: "Number of websocket clients currently connected",
		},
	)

	RealtimeEventsDelivered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hortal_realtime_events_delivered_total",
			Help: "Realtime events delivered to client sessions",
		},
		[]string{"kind"}, // change, order_status_sync, new_message
	)

	RealtimeBroadcastsDeferred = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hortal_realtime_broadcasts_deferred_total",
			Help: "Ephemeral broadcasts deferred because the channel was not yet subscribed",
		},
	)

	RealtimeBroadcastsSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hortal_realtime_broadcasts_skipped_total",
			Help: "Ephemeral broadcasts skipped because the channel was offline",
		},
	)

	// Polling fallback metrics
	PollRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hortal_poll_refreshes_total",
			Help: "Snapshot refetches driven by the polling fallback",
		},
		[]string{"entity"}, // orders, messages
	)

	// Order flow metrics
	OrdersCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hortal_orders_created_total",
			Help: "Orders created, by origin",
		},
		[]string{"origin"}, // checkout, manual
	)

	OrderStatusUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hortal_order_status_updates_total",
			Help: "Order status transitions applied",
		},
		[]string{"status"},
	)

	MessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hortal_messages_sent_total",
			Help: "Chat messages persisted, by sender kind",
		},
		[]string{"sender"}, // customer, admin, assistant
	)

	// AI assistant metrics
	AIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hortal_ai_requests_total",
			Help: "Calls to the generative text service, by outcome",
		},
		[]string{"operation", "outcome"}, // outcome: ok, fallback
	)
)

// RecordStoreOp records a store operation's duration, and its error if any.
func RecordStoreOp(operation, table string, d time.Duration, err error) {
	StoreOpDuration.WithLabelValues(operation, table).Observe(d.Seconds())
	if err != nil {
		StoreOpErrors.WithLabelValues(operation, table).Inc()
	}
}

// RecordAPIRequest records an API request's latency.
func RecordAPIRequest(method, path, status string, d time.Duration) {
	APIRequestDuration.WithLabelValues(method, path, status).Observe(d.Seconds())
}

// TrackActiveRequest adjusts the in-flight request gauge.
func TrackActiveRequest(start bool) {
	if start {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}
