// Package log defines the leveled logging interface and typed fields
// shared by every ledger component.
//
// The package carries no backend of its own. Adapters (such as the zap
// package) implement Logger, and NewNop covers components whose logger
// was never wired.
package log
