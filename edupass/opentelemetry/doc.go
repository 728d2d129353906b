// Package opentelemetry wires the ledger's tracing, metric, and log
// providers and the span helpers used across the service.
//
// InitializeTelemetryWithError builds OTLP gRPC exporters against the
// configured collector and can run in disabled mode for local runs while
// preserving the same provider surface.
package opentelemetry
