// Package prometheus exposes goSession Engine metrics through
// client_golang.
//
// [Collector] implements prometheus.Collector and reads
// [goSession.Engine.MetricsSnapshot] on each scrape. Counters are named
// gosession_*_total; validate latency is the histogram
// gosession_validate_latency_seconds. Register the collector on your own
// registry or mount [Handler]. Nothing is registered globally.
package prometheus
