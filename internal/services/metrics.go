package services

import "github.com/prometheus/client_golang/prometheus"

const (
	outcomeDuplicate = "duplicate"
	outcomeUnique    = "unique"
	outcomeEmpty     = "empty_window"
)

var (
	// checksTotal counts duplicate checks by outcome.
	checksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dedup_checks_total",
			Help: "Duplicate checks by outcome (duplicate, unique, empty_window).",
		},
		[]string{"outcome"},
	)

	// recordsTotal counts rows appended to the store.
	recordsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dedup_records_total",
			Help: "Content records written to the store.",
		},
	)

	// purgedTotal counts rows removed by retention pruning.
	purgedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dedup_purged_records_total",
			Help: "Content records deleted by retention pruning.",
		},
	)

	// storeErrors counts storage failures by operation.
	storeErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dedup_store_errors_total",
			Help: "Storage errors by dedup operation.",
		},
		[]string{"op"},
	)
)

func init() {
	prometheus.MustRegister(checksTotal, recordsTotal, purgedTotal, storeErrors)
}
