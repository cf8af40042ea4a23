// Package prometheus exposes engine counters as a prometheus.Collector.
//
// Counters are named zikauth_*_total; the authenticate latency histogram is
// zikauth_authenticate_latency_seconds. Nothing is registered globally: register the
// collector yourself or mount [Collector.Handler].
package prometheus
