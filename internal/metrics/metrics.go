package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Vault operation metrics
	Operations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yieldvault_operations_total",
			Help: "Total number of vault operations by name and status",
		},
		[]string{"operation", "status"},
	)

	VaultValue = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "yieldvault_value",
		Help: "Vault value in reserve base units as of the last consolidate",
	})

	IdleReserve = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "yieldvault_idle_reserve",
		Help: "Reserve tokens held by the vault outside any yield source",
	})

	Allocation = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "yieldvault_allocation",
			Help: "Allocation per yield source in reserve base units",
		},
		[]string{"provider", "kind"},
	)

	TargetWeight = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "yieldvault_target_weight",
			Help: "Target weight per yield source from the last rebalance",
		},
		[]string{"provider"},
	)

	AccruedFees = promauto.NewCounter(prometheus.CounterOpts{
		Name: "yieldvault_accrued_fees_total",
		Help: "Fees accrued by consolidation in reserve base units",
	})

	// Keeper metrics
	Cycles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yieldvault_keeper_cycles_total",
			Help: "Total number of keeper cycles by outcome",
		},
		[]string{"status"},
	)

	CycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "yieldvault_keeper_cycle_duration_seconds",
		Help:    "Keeper cycle duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	})

	// HTTP metrics
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yieldvault_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
)

// ObserveOperation counts one vault operation outcome.
func ObserveOperation(operation string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	Operations.WithLabelValues(operation, status).Inc()
}
