package realtime

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	onlineUsersGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "matchline",
			Name:      "online_users",
			Help:      "Number of distinct identified users currently online",
		},
	)

	connectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "matchline",
			Name:      "connections_active",
			Help:      "Number of open realtime connections",
		},
	)

	dispatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "matchline",
			Name:      "dispatch_total",
			Help:      "Targeted dispatches by outcome",
		},
		[]string{"event", "result"}, // result: "delivered", "offline", "failed"
	)

	roomEmitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "matchline",
			Name:      "room_emits_total",
			Help:      "Per-member room emits by outcome",
		},
		[]string{"event", "result"},
	)

	messagesPersisted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "matchline",
			Name:      "messages_persisted_total",
			Help:      "Chat messages written by the message sink",
		},
		[]string{"status"}, // "success", "error", "dropped"
	)

	persistQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "matchline",
			Name:      "persist_queue_depth",
			Help:      "Current depth of the message sink queue",
		},
	)

	inboundEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "matchline",
			Name:      "inbound_events_total",
			Help:      "Inbound socket events by name and outcome",
		},
		[]string{"event", "result"},
	)
)
