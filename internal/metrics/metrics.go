// Package metrics holds the Prometheus collectors exported on /metrics
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	NotificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hazard_notifications_total",
		Help: "Dispatch attempts by notification type and delivery status.",
	}, []string{"type", "status"})

	FindingsByLevel = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "hazard_findings_by_level",
		Help: "Findings per warning level at the last evaluation.",
	}, []string{"level"})

	SheetSyncTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hazard_sheet_sync_total",
		Help: "Spreadsheet synchronisation runs by result.",
	}, []string{"result"})
)
