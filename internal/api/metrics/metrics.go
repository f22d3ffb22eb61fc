// Package metrics defines and registers all custom Prometheus metrics for the
// tracking system. It is the single source of truth for metric names, labels,
// and help strings; metrics register themselves with the default registry at
// package init via promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "tracking"

// ── Ledger submission metrics ────────────────────────────────────────────────

// LedgerSubmissionsTotal counts ledger submissions by outcome.
// Labels:
//   - op: the ledger entry point (e.g. "create", "assign", "update_status")
//   - result: "ok", "rejected" (permanent failure), or "unavailable" (retries exhausted)
var LedgerSubmissionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ledger_submissions_total",
		Help:      "Total number of ledger submissions, by operation and outcome.",
	},
	[]string{"op", "result"},
)

// LedgerRetriesTotal counts transient-failure retries per operation.
var LedgerRetriesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ledger_retries_total",
		Help:      "Total number of ledger submission retries after transient failures.",
	},
	[]string{"op"},
)

// ── Reconciliation metrics ───────────────────────────────────────────────────

// ReconcileReplaysTotal counts harmless replays: an upsert that found the
// shipment id already mirrored from the same submission.
var ReconcileReplaysTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reconcile_replays_total",
		Help:      "Total number of idempotent replays absorbed by the mirror upsert.",
	},
)

// ReconcileConflictsTotal counts genuine id conflicts surfaced for manual
// resolution (mirror diverged from the ledger id sequence).
var ReconcileConflictsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reconcile_conflicts_total",
		Help:      "Total number of mirror id conflicts requiring operator review.",
	},
)

// DuplicateRecordsDeletedTotal counts mirror records removed by the duplicate
// resolver.
var DuplicateRecordsDeletedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "duplicate_records_deleted_total",
		Help:      "Total number of duplicate mirror records deleted by the resolver.",
	},
)

// ── Event projection metrics ─────────────────────────────────────────────────

// EventsAppliedTotal counts confirmed ledger events applied to the mirror.
// Label:
//   - kind: the event kind (e.g. "ShipmentCreated")
var EventsAppliedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_applied_total",
		Help:      "Total number of confirmed ledger events applied to the mirror store.",
	},
	[]string{"kind"},
)

// EventsQueueDepth tracks the number of events waiting in each dispatcher
// worker channel.
var EventsQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "events_queue_depth",
		Help:      "Current number of events pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)
