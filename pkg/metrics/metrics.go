// Package metrics provides the centralized Prometheus metrics reference for
// the holdings aggregator. All metrics are defined in their respective
// packages (source, merge, aggregator, health) to maintain modularity and
// avoid circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the aggregator.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Request Metrics (pkg/aggregator):
//   - aggregator_requests_total{outcome} (Counter): Requests by outcome (ok, invalid, error)
//   - aggregator_request_duration_seconds (Histogram): End-to-end aggregation duration
//   - aggregator_malformed_tokens_total (Counter): Resume tokens treated as absent
//
// Merge Metrics (pkg/merge):
//   - aggregator_merge_rounds_total (Counter): Refill/select rounds across all runs
//   - aggregator_dedup_folds_total (Counter): Duplicates folded into existing records
//   - aggregator_holdings_emitted_total (Counter): Distinct holdings emitted
//   - aggregator_sources_dropped_total{source} (Counter): Sources dropped after fetch failure
//
// Fetch Metrics (pkg/source):
//   - aggregator_source_fetches_total{source, status} (Counter): Page fetches by source and status
//   - aggregator_source_fetch_duration_seconds{source} (Histogram): Page fetch duration
//   - aggregator_source_fetch_errors_total{source, class} (Counter): Errors by class (client, server, network, protocol, cooldown)
//
// Health Metrics (pkg/health):
//   - aggregator_source_cooldowns_total{source} (Counter): Cooldown windows entered
//   - aggregator_source_consecutive_failures{source} (Gauge): Current failure streak
//   - aggregator_source_cooldown_skips_total{source} (Counter): Fetches skipped during cooldown
//
// Example Prometheus Queries:
//
//   # Share of requests degraded by at least one dropped source
//   rate(aggregator_sources_dropped_total[5m])
//
//   # Dedup rate
//   rate(aggregator_dedup_folds_total[5m]) /
//   (rate(aggregator_dedup_folds_total[5m]) + rate(aggregator_holdings_emitted_total[5m]))
//
//   # P95 end-to-end latency
//   histogram_quantile(0.95, rate(aggregator_request_duration_seconds_bucket[5m]))
//
//   # Per-source error rate by class
//   sum by (source, class) (rate(aggregator_source_fetch_errors_total[5m]))
