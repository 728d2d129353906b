// Package server provides server lifecycle and graceful shutdown helpers.
//
// Use this package to coordinate signal handling, shutdown deadlines, and
// ordered cleanup of the HTTP server, the ledger store, and telemetry.
package server
