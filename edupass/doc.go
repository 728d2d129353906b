// Package edupass provides shared infrastructure helpers used across the
// education-credit ledger.
//
// The package includes context helpers, environment configuration loaders,
// and the business-error adapter that turns ledger error codes into client
// responses.
//
// Typical usage at request ingress:
//
//	ctx = edupass.ContextWithLogger(ctx, logger)
//	ctx = edupass.ContextWithTracer(ctx, tracer)
//	ctx = edupass.ContextWithHeaderID(ctx, requestID)
//
// This package is intentionally dependency-light; specialized integrations
// live in subpackages such as ledger, store, opentelemetry, and server.
package edupass
