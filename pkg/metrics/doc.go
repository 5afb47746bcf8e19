/*
Package metrics provides Prometheus metrics collection and exposition for
the ReifyDB core: store operation latency, transaction outcomes, CDC
throughput, flow lag, and catalog size, plus an HTTP health/readiness
surface for operators.

# Usage

	timer := metrics.NewTimer()
	events, err := store.Commit(ctx, deltas, v, tx)
	timer.ObserveDurationVec(metrics.CommitDuration, "command")

	http.Handle("/metrics", metrics.Handler())
	http.HandleFunc("/health", metrics.HealthHandler())
	http.HandleFunc("/ready", metrics.ReadyHandler())

# Metrics Catalog

Store: reifydb_store_operation_duration_seconds{backend,operation},
reifydb_store_keys_total{backend}

Transactions: reifydb_transactions_total{kind,outcome},
reifydb_commit_duration_seconds{kind}, reifydb_serialization_conflicts_total,
reifydb_active_transactions{kind}, reifydb_current_version

CDC: reifydb_cdc_events_appended_total, reifydb_cdc_subscribers_total,
reifydb_cdc_broadcast_dropped_total{consumer}

Flow: reifydb_flow_lag_versions{flow}, reifydb_flow_diffs_processed_total{flow,operator},
reifydb_flow_reconcile_duration_seconds, reifydb_flow_backfill_duration_seconds{flow}

Catalog: reifydb_catalog_entities_total{kind}, reifydb_sequence_exhausted_total{sequence}

# Design Patterns

Package Init Registration: every metric is registered in init() via
MustRegister, so the /metrics endpoint is complete before main() runs.

Timer Pattern: construct a Timer at the start of an operation, call
ObserveDuration/ObserveDurationVec at its end.

Health Checker: components register their health under a name
("store", "catalog", "flow_dispatcher"); GetReadiness treats those three
as critical — any one missing or unhealthy reports not_ready.
*/
package metrics
