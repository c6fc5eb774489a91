// Package metrics exposes prometheus counters for the main business
// operations, served at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestTransitions counts lifecycle transitions by target status.
	RequestTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stockflow_request_transitions_total",
		Help: "Request lifecycle transitions, labeled by resulting status.",
	}, []string{"to"})

	// LowStockAlerts counts edge-triggered low-stock notifications.
	LowStockAlerts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stockflow_low_stock_alerts_total",
		Help: "Low-stock alerts fired (one per threshold crossing per item).",
	})

	// AuditEntries counts audit log rows written.
	AuditEntries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stockflow_audit_entries_total",
		Help: "Audit log entries written.",
	})

	// StockMovements counts ledger rows by movement type.
	StockMovements = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stockflow_stock_movements_total",
		Help: "Stock movements recorded, labeled by movement type.",
	}, []string{"type"})
)
