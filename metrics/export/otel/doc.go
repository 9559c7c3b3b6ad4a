// Package otel publishes goSession Engine metrics through an OpenTelemetry
// Meter.
//
// [NewExporter] registers an Int64ObservableCounter per Engine counter and an
// Int64ObservableGauge per latency bucket. One callback reads
// [goSession.Engine.MetricsSnapshot] per collection. Callers own the
// MeterProvider.
package otel
