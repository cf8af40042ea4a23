// Package otel publishes engine counters as OpenTelemetry observable instruments.
//
// Each counter becomes an Int64ObservableCounter; the latency histogram is exposed as
// one cumulative gauge per bucket plus a count gauge. A single callback reads
// [zikauth.Engine.MetricsSnapshot] per collection. Callers own the MeterProvider.
package otel
