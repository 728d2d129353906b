package log

import (
	"context"
	"fmt"
	"strings"
)

// Level classifies the severity of a log entry. Lower values are more
// severe, so comparisons read as "at least this important".
type Level uint8

const (
	// LevelError marks failures that require attention.
	LevelError Level = iota
	// LevelWarn marks recoverable anomalies.
	LevelWarn
	// LevelInfo marks routine operational events.
	LevelInfo
	// LevelDebug marks diagnostic detail for development.
	LevelDebug
)

// String returns the lowercase name of the level.
func (l Level) String() string {
	switch l {
	case LevelError:
		return "error"
	case LevelWarn:
		return "warn"
	case LevelInfo:
		return "info"
	case LevelDebug:
		return "debug"
	default:
		return fmt.Sprintf("level(%d)", uint8(l))
	}
}

// ParseLevel converts a textual level into a Level. Matching is
// case-insensitive and tolerates surrounding whitespace. Unknown values
// return LevelInfo together with an error so callers can fall back to a
// sensible default.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error":
		return LevelError, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "info":
		return LevelInfo, nil
	case "debug":
		return LevelDebug, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// Field is a single structured key/value pair attached to a log entry.
type Field struct {
	Key   string
	Value any
}

// Any builds a Field holding an arbitrary value.
func Any(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// String builds a Field holding a string value.
func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

// Int builds a Field holding an integer value.
func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

// Bool builds a Field holding a boolean value.
func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

// Err builds a Field holding an error under the conventional "error" key.
func Err(err error) Field {
	return Field{Key: "error", Value: err}
}

// Logger is the structured logging contract implemented by backends and
// consumed by every ledger component.
//
// Implementations must be safe for concurrent use. With and WithGroup
// return child loggers and must never mutate the receiver.
type Logger interface {
	// Log emits a single entry at the given level. Implementations may
	// read correlation data, such as trace identifiers, from ctx.
	Log(ctx context.Context, level Level, msg string, fields ...Field)

	// With returns a child logger whose entries always carry the given
	// fields in addition to any fields passed at the call site.
	With(fields ...Field) Logger

	// WithGroup returns a child logger that nests subsequent fields
	// under the given group name. An empty name returns the receiver.
	WithGroup(name string) Logger

	// Enabled reports whether entries at the given level would be
	// emitted. Callers can use it to skip expensive field construction.
	Enabled(level Level) bool

	// Sync flushes buffered entries. It should be called before the
	// process exits.
	Sync(ctx context.Context) error
}
