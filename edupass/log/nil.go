package log

import "context"

// NopLogger is a Logger that discards every entry. It is the default
// backend for components whose logger was never wired, keeping call
// sites free of nil checks.
type NopLogger struct{}

var _ Logger = (*NopLogger)(nil)

// NewNop returns a Logger that discards everything.
//
//nolint:ireturn
func NewNop() Logger {
	return &NopLogger{}
}

// Log discards the entry.
func (*NopLogger) Log(context.Context, Level, string, ...Field) {}

// With returns the receiver unchanged.
//
//nolint:ireturn
func (n *NopLogger) With(...Field) Logger {
	return n
}

// WithGroup returns the receiver unchanged.
//
//nolint:ireturn
func (n *NopLogger) WithGroup(string) Logger {
	return n
}

// Enabled always reports false.
func (*NopLogger) Enabled(Level) bool {
	return false
}

// Sync is a no-op.
func (*NopLogger) Sync(context.Context) error {
	return nil
}
