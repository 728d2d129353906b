//go:build unit

package runtime

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/edupass/edupass-ledger/edupass/log"
)

// testLogger captures log calls. It is shared across the runtime test files.
type testLogger struct {
	mu          sync.Mutex
	errorCalls  []string
	lastMessage string
	panicLogged atomic.Bool
	logged      chan struct{}
}

func newTestLogger() *testLogger {
	return &testLogger{
		logged: make(chan struct{}, 1),
	}
}

func (logger *testLogger) Log(_ context.Context, _ log.Level, msg string, _ ...log.Field) {
	logger.mu.Lock()
	defer logger.mu.Unlock()

	logger.errorCalls = append(logger.errorCalls, msg)
	logger.lastMessage = msg
	logger.panicLogged.Store(true)

	select {
	case logger.logged <- struct{}{}:
	default:
	}
}

func (logger *testLogger) With(...log.Field) log.Logger { return logger }
func (logger *testLogger) WithGroup(string) log.Logger  { return logger }
func (logger *testLogger) Enabled(log.Level) bool       { return true }
func (logger *testLogger) Sync(context.Context) error   { return nil }

func (logger *testLogger) wasPanicLogged() bool {
	return logger.panicLogged.Load()
}

func (logger *testLogger) waitForPanicLog(timeout time.Duration) bool {
	select {
	case <-logger.logged:
		return true
	case <-time.After(timeout):
		return false
	}
}

func (logger *testLogger) last() string {
	logger.mu.Lock()
	defer logger.mu.Unlock()

	return logger.lastMessage
}
