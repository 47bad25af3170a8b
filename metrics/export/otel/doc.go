// Package otel binds tokenlife engine metrics to OpenTelemetry instruments.
//
// [NewExporter] registers one Int64ObservableCounter per engine counter and,
// for the latency histogram, one Int64ObservableGauge per cumulative bucket
// plus count and sum gauges. A single callback reads MetricsSnapshot on each
// collection cycle.
//
// # What this package must NOT do
//
//   - Own the MeterProvider. Callers supply the Meter.
//   - Mutate engine state.
package otel
