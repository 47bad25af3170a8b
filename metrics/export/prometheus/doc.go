// Package prometheus publishes tokenlife engine metrics through
// github.com/prometheus/client_golang.
//
// [Collector] implements prometheus.Collector over Engine.MetricsSnapshot.
// Counters are named tokenlife_*_total; the latency histogram is
// tokenlife_resolve_latency_seconds. [Handler] serves a private registry
// holding only the collector.
//
// # What this package must NOT do
//
//   - Register into the global default registry.
//   - Mutate engine state.
package prometheus
