// Package backoff provides exponential backoff with full jitter, used to
// rate-limit store reconnection attempts.
package backoff
