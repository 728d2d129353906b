// Package zap adapts go.uber.org/zap to the ledger's log.Logger
// interface.
//
// The adapter preserves structured fields, injects trace and span
// identifiers from an active OpenTelemetry span, and tees entries into
// the otelzap bridge so logs reach the OTLP collector alongside traces.
package zap
