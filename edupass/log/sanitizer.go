package log

import (
	"context"
	"fmt"
	"strings"
)

// controlCharReplacer escapes control characters that can be used for log
// injection (CWE-117). Newlines, carriage returns, and tabs in logged
// request data can forge fake log entries or pollute audit trails.
var controlCharReplacer = strings.NewReplacer(
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
)

// SanitizeString escapes control characters in a string destined for a
// log entry. Use it on caller-controlled values such as request paths
// and header contents.
func SanitizeString(s string) string {
	return controlCharReplacer.Replace(s)
}

// SafeError logs an error with production-aware sanitization. When
// production is true only the error type is logged, keeping internal
// detail out of aggregated logs.
func SafeError(logger Logger, ctx context.Context, msg string, err error, production bool) {
	if logger == nil {
		return
	}

	if err == nil {
		return
	}

	if !logger.Enabled(LevelError) {
		return
	}

	if production {
		logger.Log(ctx, LevelError, msg, String("error_type", fmt.Sprintf("%T", err)))

		return
	}

	logger.Log(ctx, LevelError, msg, Err(err))
}
