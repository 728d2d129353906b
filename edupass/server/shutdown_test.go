//go:build unit

package server_test

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/edupass/edupass-ledger/edupass/ledger"
	"github.com/edupass/edupass-ledger/edupass/log"
	"github.com/edupass/edupass-ledger/edupass/server"
	"github.com/edupass/edupass-ledger/edupass/store/memory"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingLogger records messages and can return a Sync error.
type recordingLogger struct {
	mu       sync.Mutex
	messages []string
	syncErr  error
}

func (l *recordingLogger) Log(_ context.Context, _ log.Level, msg string, _ ...log.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.messages = append(l.messages, msg)
}

func (l *recordingLogger) With(_ ...log.Field) log.Logger { return l }
func (l *recordingLogger) WithGroup(_ string) log.Logger  { return l }
func (l *recordingLogger) Enabled(_ log.Level) bool       { return true }
func (l *recordingLogger) Sync(_ context.Context) error   { return l.syncErr }

func (l *recordingLogger) getMessages() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	cp := make([]string, len(l.messages))
	copy(cp, l.messages)

	return cp
}

// closeTrackingStore counts Close calls and can fail them.
type closeTrackingStore struct {
	ledger.Store
	closeCalls atomic.Int32
	closeErr   error
}

func (s *closeTrackingStore) Close(ctx context.Context) error {
	s.closeCalls.Add(1)

	if s.closeErr != nil {
		return s.closeErr
	}

	return s.Store.Close(ctx)
}

func newTestApp() *fiber.App {
	return fiber.New(fiber.Config{DisableStartupMessage: true})
}

// runUntilShutdown starts the manager, waits for launch, closes the shutdown
// channel, and waits for the run loop to return.
func runUntilShutdown(t *testing.T, sm *server.ServerManager, shutdownChan chan struct{}) {
	t.Helper()

	done := make(chan error, 1)

	go func() {
		done <- sm.StartWithGracefulShutdownWithError()
	}()

	select {
	case <-sm.ServersStarted():
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for servers to start")
	}

	close(shutdownChan)

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for shutdown")
	}
}

func TestNewServerManager(t *testing.T) {
	sm := server.NewServerManager(nil, nil)
	assert.NotNil(t, sm)
}

func TestServerManagerChaining(t *testing.T) {
	app := newTestApp()

	sm1 := server.NewServerManager(nil, nil).WithHTTPServer(app, ":8080")
	sm2 := sm1.WithShutdownTimeout(time.Second)

	assert.Equal(t, sm1, sm2)
}

func TestStartWithGracefulShutdownWithError_NoServers(t *testing.T) {
	sm := server.NewServerManager(nil, nil)

	err := sm.StartWithGracefulShutdownWithError()

	require.Error(t, err)
	assert.ErrorIs(t, err, server.ErrNoServersConfigured)
}

func TestStartWithGracefulShutdownWithError_HTTPServer_Success(t *testing.T) {
	shutdownChan := make(chan struct{})

	sm := server.NewServerManager(nil, nil).
		WithHTTPServer(newTestApp(), ":0").
		WithShutdownChannel(shutdownChan)

	runUntilShutdown(t, sm, shutdownChan)
}

func TestStartWithGracefulShutdownWithError_HTTPStartupError(t *testing.T) {
	// Bind a port so the HTTP server will fail to listen.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	defer func() { assert.NoError(t, ln.Close()) }()

	sm := server.NewServerManager(nil, nil).
		WithHTTPServer(newTestApp(), ln.Addr().String())

	done := make(chan error, 1)

	go func() {
		done <- sm.StartWithGracefulShutdownWithError()
	}()

	select {
	case err := <-done:
		assert.NoError(t, err, "run loop returns nil after a startup error triggers shutdown")
	case <-time.After(10 * time.Second):
		t.Fatal("timed out: startup error was not propagated")
	}
}

func TestExecuteShutdown_ClosesStore(t *testing.T) {
	st := &closeTrackingStore{Store: memory.New()}
	shutdownChan := make(chan struct{})
	logger := &recordingLogger{}

	sm := server.NewServerManager(nil, logger).
		WithHTTPServer(newTestApp(), ":0").
		WithStore(st).
		WithShutdownChannel(shutdownChan)

	runUntilShutdown(t, sm, shutdownChan)

	assert.Equal(t, int32(1), st.closeCalls.Load())
	assert.Contains(t, logger.getMessages(), "Closing ledger store...")
}

func TestExecuteShutdown_StoreCloseError(t *testing.T) {
	st := &closeTrackingStore{Store: memory.New(), closeErr: errors.New("close failed")}
	shutdownChan := make(chan struct{})
	logger := &recordingLogger{}

	sm := server.NewServerManager(nil, logger).
		WithHTTPServer(newTestApp(), ":0").
		WithStore(st).
		WithShutdownChannel(shutdownChan)

	runUntilShutdown(t, sm, shutdownChan)

	assert.Contains(t, logger.getMessages(), "Error closing ledger store: close failed")
	assert.Contains(t, logger.getMessages(), "Graceful shutdown completed")
}

func TestExecuteShutdown_LoggerSyncError(t *testing.T) {
	logger := &recordingLogger{syncErr: errors.New("sync failed")}
	shutdownChan := make(chan struct{})

	sm := server.NewServerManager(nil, logger).
		WithHTTPServer(newTestApp(), ":0").
		WithShutdownChannel(shutdownChan)

	runUntilShutdown(t, sm, shutdownChan)

	assert.Contains(t, logger.getMessages(), "Failed to sync logger: sync failed")
}

func TestExecuteShutdown_Idempotent(t *testing.T) {
	shutdownChan := make(chan struct{})

	sm := server.NewServerManager(nil, nil).
		WithHTTPServer(newTestApp(), ":0").
		WithShutdownChannel(shutdownChan)

	runUntilShutdown(t, sm, shutdownChan)

	// The closed shutdown channel makes a second run return immediately;
	// sync.Once keeps the shutdown sequence from running twice.
	assert.NotPanics(t, func() {
		_ = sm.StartWithGracefulShutdownWithError()
	})
}

func TestServerManager_NilLoggerSafe(t *testing.T) {
	shutdownChan := make(chan struct{})

	sm := server.NewServerManager(nil, nil).
		WithHTTPServer(newTestApp(), ":0").
		WithStore(&closeTrackingStore{Store: memory.New()}).
		WithShutdownChannel(shutdownChan)

	assert.NotPanics(t, func() {
		runUntilShutdown(t, sm, shutdownChan)
	})
}
