// Package metrics holds the Prometheus collectors exported by flateze.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	IngestMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flateze_ingest_messages_total",
			Help: "Messages handled by ingestion, by outcome (count)",
		},
		[]string{"outcome"},
	)

	IngestRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flateze_ingest_runs_total",
			Help: "Ingestion invocations, by status (count)",
		},
		[]string{"status"},
	)

	IngestRunDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "flateze_ingest_run_duration_seconds",
			Help:    "Duration of one ingestion invocation in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"status"},
	)

	BillsCreatedAmount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flateze_bills_created_amount_total",
			Help: "Sum of created bill amounts, by bill type (dollars)",
		},
		[]string{"bill_type"},
	)

	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "flateze_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	IngestRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flateze_ingest_retries_total",
			Help: "Ingestion retries after mailbox faults, by flat (count)",
		},
		[]string{"flat_id"},
	)
)

var registerOnce sync.Once

// Register adds every collector to the default registry. Safe to call repeatedly.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			IngestMessagesTotal,
			IngestRunsTotal,
			IngestRunDuration,
			BillsCreatedAmount,
			CircuitBreakerState,
			IngestRetriesTotal,
		)
	})
}
