//go:build unit

package runtime

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errRecoverTest = errors.New("recover test error")

func TestLogPanicWithStack_NilLogger(t *testing.T) {
	t.Parallel()

	require.NotPanics(t, func() {
		logPanicWithStack(nil, "test", "panic value", []byte("stack trace"))
	})
}

func TestLogPanicWithStack_ValidLogger(t *testing.T) {
	t.Parallel()

	logger := newTestLogger()
	stack := []byte("goroutine 1 [running]:\nmain.main()\n\t/path/to/file.go:10")

	logPanicWithStack(logger, "test-handler", "test panic", stack)

	assert.True(t, logger.wasPanicLogged())
	assert.Contains(t, logger.last(), "test-handler")
	assert.Contains(t, logger.last(), "test panic")
}

func TestLogPanicWithStack_DifferentPanicTypes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		panicValue any
	}{
		{name: "string panic value", panicValue: "something went wrong"},
		{name: "error panic value", panicValue: errRecoverTest},
		{name: "int panic value", panicValue: 42},
		{name: "struct panic value", panicValue: struct{ Code int }{Code: 500}},
		{name: "nil panic value", panicValue: nil},
		{name: "slice panic value", panicValue: []string{"a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			logger := newTestLogger()

			require.NotPanics(t, func() {
				logPanicWithStack(logger, "test", tt.panicValue, []byte("test stack"))
			})

			assert.True(t, logger.wasPanicLogged())
		})
	}
}

func TestRecoverAndLog(t *testing.T) {
	t.Parallel()

	t.Run("nil logger", func(t *testing.T) {
		t.Parallel()

		require.NotPanics(t, func() {
			func() {
				defer RecoverAndLog(nil, "test-nil-logger")

				panic("test panic")
			}()
		})
	})

	t.Run("logs the panic value", func(t *testing.T) {
		t.Parallel()

		logger := newTestLogger()

		func() {
			defer RecoverAndLog(logger, "worker")

			panic("boom")
		}()

		assert.True(t, logger.wasPanicLogged())
		assert.Contains(t, logger.last(), "boom")
	})

	t.Run("no panic means no log", func(t *testing.T) {
		t.Parallel()

		logger := newTestLogger()

		func() {
			defer RecoverAndLog(logger, "worker")
		}()

		assert.False(t, logger.wasPanicLogged())
	})
}

func TestRecoverAndLogWithContext(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("nil logger", func(t *testing.T) {
		t.Parallel()

		require.NotPanics(t, func() {
			func() {
				defer RecoverAndLogWithContext(ctx, nil, "component", "test-nil-logger")

				panic("test panic")
			}()
		})
	})

	t.Run("component appears in the message", func(t *testing.T) {
		t.Parallel()

		logger := newTestLogger()

		func() {
			defer RecoverAndLogWithContext(ctx, logger, "ledger", "issue_worker")

			panic("boom")
		}()

		assert.True(t, logger.wasPanicLogged())
		assert.Contains(t, logger.last(), "ledger/issue_worker")
	})
}

func TestRecoverAndCrash_PreservesPanicValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		panicValue any
	}{
		{name: "string value", panicValue: "original panic"},
		{name: "error value", panicValue: errRecoverTest},
		{name: "integer value", panicValue: 99999},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			logger := newTestLogger()

			defer func() {
				r := recover()
				require.NotNil(t, r)
				assert.Equal(t, tt.panicValue, r)
				assert.True(t, logger.wasPanicLogged())
			}()

			func() {
				defer RecoverAndCrash(logger, "test")

				panic(tt.panicValue)
			}()

			t.Fatal("should not reach here")
		})
	}
}

func TestRecoverAndCrash_NilLoggerStillRepanics(t *testing.T) {
	t.Parallel()

	defer func() {
		r := recover()
		require.NotNil(t, r)
		assert.Equal(t, "test panic", r)
	}()

	func() {
		defer RecoverAndCrash(nil, "test-nil-logger")

		panic("test panic")
	}()

	t.Fatal("should not reach here")
}

func TestRecoverAndCrashWithContext_PreservesPanicValue(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	logger := newTestLogger()

	defer func() {
		r := recover()
		require.NotNil(t, r)
		assert.Equal(t, "context panic value", r)
	}()

	func() {
		defer RecoverAndCrashWithContext(ctx, logger, "component", "handler")

		panic("context panic value")
	}()

	t.Fatal("should not reach here")
}

func TestRecoverWithPolicy(t *testing.T) {
	t.Parallel()

	t.Run("keep running swallows the panic", func(t *testing.T) {
		t.Parallel()

		logger := newTestLogger()

		require.NotPanics(t, func() {
			func() {
				defer RecoverWithPolicy(logger, "test", KeepRunning)

				panic("test panic")
			}()
		})

		assert.True(t, logger.wasPanicLogged())
	})

	t.Run("crash process re-panics", func(t *testing.T) {
		t.Parallel()

		defer func() {
			r := recover()
			require.NotNil(t, r)
		}()

		func() {
			defer RecoverWithPolicy(nil, "test", CrashProcess)

			panic("test panic")
		}()

		t.Fatal("should not reach here")
	})

	t.Run("no panic leaves the logger silent", func(t *testing.T) {
		t.Parallel()

		logger := newTestLogger()

		func() {
			defer RecoverWithPolicy(logger, "test", KeepRunning)
		}()

		assert.False(t, logger.wasPanicLogged())
	})
}

func TestRecoverWithPolicyAndContext(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("keep running with nil logger", func(t *testing.T) {
		t.Parallel()

		require.NotPanics(t, func() {
			func() {
				defer RecoverWithPolicyAndContext(ctx, nil, "component", "test", KeepRunning)

				panic("test panic")
			}()
		})
	})

	t.Run("crash process with nil logger still re-panics", func(t *testing.T) {
		t.Parallel()

		defer func() {
			r := recover()
			require.NotNil(t, r)
		}()

		func() {
			defer RecoverWithPolicyAndContext(ctx, nil, "component", "test", CrashProcess)

			panic("test panic")
		}()

		t.Fatal("should not reach here")
	})
}

func TestHandlePanicValue(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("logs the panic value", func(t *testing.T) {
		t.Parallel()

		logger := newTestLogger()

		HandlePanicValue(ctx, logger, "test panic", "server", "http_handler")

		assert.True(t, logger.wasPanicLogged())
		assert.Contains(t, logger.last(), "server/http_handler")
	})

	t.Run("nil panic value is a no-op", func(t *testing.T) {
		t.Parallel()

		logger := newTestLogger()

		require.NotPanics(t, func() {
			HandlePanicValue(ctx, logger, nil, "server", "http_handler")
		})

		assert.False(t, logger.wasPanicLogged())
	})

	t.Run("nil logger is safe", func(t *testing.T) {
		t.Parallel()

		require.NotPanics(t, func() {
			HandlePanicValue(ctx, nil, "test panic", "server", "http_handler")
		})
	})
}

func TestSafeGo(t *testing.T) {
	t.Parallel()

	t.Run("runs the function", func(t *testing.T) {
		t.Parallel()

		done := make(chan struct{})

		SafeGo(nil, "worker", KeepRunning, func() {
			close(done)
		})

		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("goroutine did not run")
		}
	})

	t.Run("recovers a panicking function", func(t *testing.T) {
		t.Parallel()

		logger := newTestLogger()

		SafeGo(logger, "worker", KeepRunning, func() {
			panic("goroutine panic")
		})

		assert.True(t, logger.waitForPanicLog(2*time.Second))
	})
}

func TestSafeGoWithContextAndComponent(t *testing.T) {
	t.Parallel()

	t.Run("passes the context through", func(t *testing.T) {
		t.Parallel()

		type ctxKey struct{}

		ctx := context.WithValue(context.Background(), ctxKey{}, "marker")
		got := make(chan any, 1)

		SafeGoWithContextAndComponent(ctx, nil, "server", "worker", KeepRunning, func(ctx context.Context) {
			got <- ctx.Value(ctxKey{})
		})

		select {
		case value := <-got:
			assert.Equal(t, "marker", value)
		case <-time.After(2 * time.Second):
			t.Fatal("goroutine did not run")
		}
	})

	t.Run("recovers a panicking function", func(t *testing.T) {
		t.Parallel()

		logger := newTestLogger()

		SafeGoWithContextAndComponent(context.Background(), logger, "server", "worker", KeepRunning, func(context.Context) {
			panic("goroutine panic")
		})

		assert.True(t, logger.waitForPanicLog(2*time.Second))
		assert.Contains(t, logger.last(), "server/worker")
	})
}
