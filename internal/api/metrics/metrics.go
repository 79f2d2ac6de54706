// Package metrics defines the custom Prometheus metrics of the chat server.
// It is the single source of truth for metric names, labels and help strings.
//
// All metrics are registered with the default Prometheus registry through
// promauto when the package is first imported.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "chatty"

// ── Realtime metrics ─────────────────────────────────────────────────────────

// OnlineUsers is the number of users that currently have a registered live
// connection.
var OnlineUsers = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "online_users",
		Help:      "Number of users with a live realtime connection.",
	},
)

// ConnectionsOpen counts open realtime connections, including superseded
// connections of a user that reconnected.
var ConnectionsOpen = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "realtime_connections_open",
		Help:      "Number of open realtime connections.",
	},
)

// RealtimeEventsEmitted counts events queued for delivery to a connection.
// Label:
//   - event: wire event name (e.g. "new_message")
var RealtimeEventsEmitted = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "realtime_events_emitted_total",
		Help:      "Total number of realtime events queued for delivery.",
	},
	[]string{"event"},
)

// RealtimeEventsDropped counts events that were not delivered.
// Labels:
//   - event: wire event name
//   - reason: "offline" or "backpressure"
var RealtimeEventsDropped = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "realtime_events_dropped_total",
		Help:      "Total number of realtime events dropped, by reason.",
	},
	[]string{"event", "reason"},
)

// ── Conversation metrics ─────────────────────────────────────────────────────

// MessagesSentTotal counts persisted messages.
// Label:
//   - kind: "text", "image" or "both"
var MessagesSentTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "messages_sent_total",
		Help:      "Total number of messages sent, by content kind.",
	},
	[]string{"kind"},
)

// MessagesDeletedTotal counts deleted messages.
// Label:
//   - scope: "message" for single deletes, "conversation" for whole threads
var MessagesDeletedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "messages_deleted_total",
		Help:      "Total number of messages deleted, by scope.",
	},
	[]string{"scope"},
)

// ── Auth metrics ─────────────────────────────────────────────────────────────

// OTPMailsTotal counts verification code deliveries.
// Label:
//   - result: "sent" or "failed"
var OTPMailsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "otp_mails_total",
		Help:      "Total number of verification code e-mails, by result.",
	},
	[]string{"result"},
)

// RateLimitedTotal counts requests rejected by a rate limiter.
// Label:
//   - limiter: "auth", "otp_resend" or "api"
var RateLimitedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_limited_total",
		Help:      "Total number of requests rejected by rate limiting.",
	},
	[]string{"limiter"},
)

// ── Relay metrics ────────────────────────────────────────────────────────────

// RelayQueueDepth tracks the number of domain events waiting in each relay
// worker channel.
// Label:
//   - worker_id: numeric worker index
var RelayQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "relay_queue_depth",
		Help:      "Current number of domain events pending in each relay worker channel.",
	},
	[]string{"worker_id"},
)

// RelayEventsTotal counts domain events handled by the relay.
// Label:
//   - result: "published", "failed" or "dropped"
var RelayEventsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "relay_events_total",
		Help:      "Total number of domain events handled by the relay, by result.",
	},
	[]string{"result"},
)

// RelayPublishDuration measures how long a publish to the broker takes.
var RelayPublishDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "relay_publish_duration_seconds",
		Help:      "Duration of a single domain event publish.",
		Buckets:   prometheus.DefBuckets,
	},
)
