// Package internaldefs holds the metric names and bucket helpers shared by the
// Prometheus and OTel exporters, so both publish identical series.
//
// This package performs no I/O and must not import an exporter package.
package internaldefs
