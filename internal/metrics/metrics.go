// Package metrics defines the Prometheus instrumentation for the server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ConnectedClients tracks the number of registered WebSocket sessions.
	ConnectedClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "retromat_connected_clients",
			Help: "Number of connected WebSocket sessions",
		},
	)

	// MessagesReceivedTotal counts inbound messages by decoded type.
	MessagesReceivedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retromat_messages_received_total",
			Help: "Inbound WebSocket messages by message type",
		},
		[]string{"type"},
	)

	// MessagesDroppedTotal counts messages dropped by the per-kind validity checks.
	MessagesDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retromat_messages_dropped_total",
			Help: "Inbound messages dropped by validation, by reason",
		},
		[]string{"reason"},
	)

	// BroadcastsTotal counts fan-outs by message type.
	BroadcastsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retromat_broadcasts_total",
			Help: "Messages broadcast to all sessions, by message type",
		},
		[]string{"type"},
	)

	// SlowClientsEvicted counts clients dropped because their send queue was full.
	SlowClientsEvicted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "retromat_slow_clients_evicted_total",
			Help: "Clients disconnected because their send queue was full",
		},
	)

	// SnapshotWritesTotal counts snapshot file writes by status.
	SnapshotWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retromat_snapshot_writes_total",
			Help: "Retro snapshot writes by status (ok/error)",
		},
		[]string{"status"},
	)

	// CardsCreatedTotal counts cards added to the retro by stored type.
	CardsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retromat_cards_created_total",
			Help: "Cards created, by stored card type",
		},
		[]string{"type"},
	)

	// VotesAppliedTotal counts successfully applied vote deltas.
	VotesAppliedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "retromat_votes_applied_total",
			Help: "Vote messages successfully applied to a card",
		},
	)

	// RetroResetsTotal counts admin-triggered retro resets.
	RetroResetsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "retromat_retro_resets_total",
			Help: "Admin-triggered retro resets",
		},
	)
)
