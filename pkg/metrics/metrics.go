package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Store metrics
	StoreOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reifydb_store_operation_duration_seconds",
			Help:    "Time taken by a store operation in seconds, by backend and operation",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend", "operation"},
	)

	StoreKeysTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "reifydb_store_keys_total",
			Help: "Approximate number of distinct logical keys held by a backend",
		},
		[]string{"backend"},
	)

	// Transaction metrics
	TransactionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reifydb_transactions_total",
			Help: "Total number of transactions by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	CommitDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reifydb_commit_duration_seconds",
			Help:    "Time taken to commit a transaction in seconds, by kind",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	SerializationConflictsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "reifydb_serialization_conflicts_total",
			Help: "Total number of commits rejected due to a serialization conflict",
		},
	)

	ActiveTransactions = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "reifydb_active_transactions",
			Help: "Number of currently open transactions by kind",
		},
		[]string{"kind"},
	)

	CurrentVersion = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "reifydb_current_version",
			Help: "The highest commit version observed by the transaction manager",
		},
	)

	// CDC metrics
	CDCEventsAppended = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "reifydb_cdc_events_appended_total",
			Help: "Total number of CDC events appended across all commits",
		},
	)

	CDCSubscribersTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "reifydb_cdc_subscribers_total",
			Help: "Number of currently subscribed CDC consumers",
		},
	)

	CDCBroadcastDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reifydb_cdc_broadcast_dropped_total",
			Help: "Total number of CDC events dropped because a subscriber's channel was full",
		},
		[]string{"consumer"},
	)

	CDCEventsPruned = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "reifydb_cdc_events_pruned_total",
			Help: "Total number of CDC events physically removed by the engine's GC sweep",
		},
	)

	// Flow metrics
	FlowLagVersions = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "reifydb_flow_lag_versions",
			Help: "Number of versions a flow consumer is behind the current commit version",
		},
		[]string{"flow"},
	)

	FlowDiffsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reifydb_flow_diffs_processed_total",
			Help: "Total number of diffs processed by a flow operator",
		},
		[]string{"flow", "operator"},
	)

	FlowReconcileDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "reifydb_flow_reconcile_duration_seconds",
			Help:    "Time taken for one dispatcher reconcile pass in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	FlowBackfillDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reifydb_flow_backfill_duration_seconds",
			Help:    "Time taken for a flow's initial backfill in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"flow"},
	)

	// Catalog metrics
	CatalogEntitiesTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "reifydb_catalog_entities_total",
			Help: "Number of catalog entities by kind (namespace, table, view, ...)",
		},
		[]string{"kind"},
	)

	SequenceExhaustedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reifydb_sequence_exhausted_total",
			Help: "Total number of sequence exhaustion errors, by sequence name",
		},
		[]string{"sequence"},
	)
)

func init() {
	prometheus.MustRegister(StoreOperationDuration)
	prometheus.MustRegister(StoreKeysTotal)
	prometheus.MustRegister(TransactionsTotal)
	prometheus.MustRegister(CommitDuration)
	prometheus.MustRegister(SerializationConflictsTotal)
	prometheus.MustRegister(ActiveTransactions)
	prometheus.MustRegister(CurrentVersion)
	prometheus.MustRegister(CDCEventsAppended)
	prometheus.MustRegister(CDCSubscribersTotal)
	prometheus.MustRegister(CDCBroadcastDropped)
	prometheus.MustRegister(CDCEventsPruned)
	prometheus.MustRegister(FlowLagVersions)
	prometheus.MustRegister(FlowDiffsProcessed)
	prometheus.MustRegister(FlowReconcileDuration)
	prometheus.MustRegister(FlowBackfillDuration)
	prometheus.MustRegister(CatalogEntitiesTotal)
	prometheus.MustRegister(SequenceExhaustedTotal)
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
