package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/edupass/edupass-ledger/edupass"
	"github.com/edupass/edupass-ledger/edupass/log"
	"github.com/edupass/edupass-ledger/edupass/opentelemetry"
	"github.com/go-redsync/redsync/v4"
	redsyncredis "github.com/go-redsync/redsync/v4/redis"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
)

var (
	// ErrLockNotInitialized is returned when the lock manager is nil or unset.
	ErrLockNotInitialized = errors.New("lock manager is not initialized")
	// ErrNilLockFn is returned when WithLock receives a nil function.
	ErrNilLockFn = errors.New("lock function is nil")
	// ErrEmptyLockKey is returned when the lock key is empty.
	ErrEmptyLockKey = errors.New("lock key is empty")
	// ErrLockExpiryInvalid is returned when the lock expiry is not positive.
	ErrLockExpiryInvalid = errors.New("lock expiry must be positive")
	// ErrLockTriesInvalid is returned when the lock tries value is not positive.
	ErrLockTriesInvalid = errors.New("lock tries must be positive")
	// ErrLockTriesExceeded is returned when tries exceeds the allowed maximum.
	ErrLockTriesExceeded = errors.New("lock tries exceeds maximum")
	// ErrLockRetryDelayNegative is returned when the retry delay is negative.
	ErrLockRetryDelayNegative = errors.New("lock retry delay cannot be negative")
	// ErrLockDriftFactorInvalid is returned when the drift factor is out of range.
	ErrLockDriftFactorInvalid = errors.New("lock drift factor must be within (0, 1)")
)

// maxLockTries caps retry attempts to avoid unbounded lock storms.
const maxLockTries = 1000

// LockOptions configures distributed lock acquisition behavior.
type LockOptions struct {
	// Expiry is how long the lock is held before it expires automatically.
	Expiry time.Duration
	// Tries is the number of acquisition attempts before giving up.
	Tries int
	// RetryDelay is the wait between acquisition attempts.
	RetryDelay time.Duration
	// DriftFactor compensates for clock drift between Redis nodes.
	DriftFactor float64
}

// DefaultLockOptions returns the options used by WithLock.
func DefaultLockOptions() LockOptions {
	return LockOptions{
		Expiry:      10 * time.Second,
		Tries:       3,
		RetryDelay:  500 * time.Millisecond,
		DriftFactor: 0.01,
	}
}

// LockManager provides distributed locking on top of a redis Client.
type LockManager struct {
	rs *redsync.Redsync
}

// clientPool adapts Client to the redsync pool interface. Resolving the
// connection lazily on each Get keeps locks working across reconnects.
type clientPool struct {
	conn *Client
}

func (p clientPool) Get(ctx context.Context) (redsyncredis.Conn, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	rdb, err := p.conn.GetClient(ctx)
	if err != nil {
		return nil, err
	}

	return goredis.NewPool(rdb).Get(ctx)
}

// NewLockManager builds a distributed lock manager backed by the given client.
func NewLockManager(conn *Client) (*LockManager, error) {
	if conn == nil {
		return nil, ErrNilClient
	}

	return &LockManager{rs: redsync.New(clientPool{conn: conn})}, nil
}

// WithLock acquires the named distributed lock with default options, runs fn,
// and releases the lock afterwards.
func (m *LockManager) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	return m.WithLockOptions(ctx, key, DefaultLockOptions(), fn)
}

// WithLockOptions acquires the named distributed lock with the given options,
// runs fn, and releases the lock afterwards. Errors returned by fn pass
// through unwrapped so callers can inspect them.
func (m *LockManager) WithLockOptions(ctx context.Context, key string, opts LockOptions, fn func(ctx context.Context) error) error {
	if m == nil || m.rs == nil {
		return ErrLockNotInitialized
	}

	if key == "" {
		return ErrEmptyLockKey
	}

	if fn == nil {
		return ErrNilLockFn
	}

	if err := validateLockOptions(opts); err != nil {
		return err
	}

	logger, tracer, _ := edupass.NewTrackingFromContext(ctx)

	ctx, span := tracer.Start(ctx, "redis.lock.with_lock")
	defer span.End()

	mutex := m.rs.NewMutex(key,
		redsync.WithExpiry(opts.Expiry),
		redsync.WithTries(opts.Tries),
		redsync.WithRetryDelay(opts.RetryDelay),
		redsync.WithDriftFactor(opts.DriftFactor),
	)

	if err := mutex.LockContext(ctx); err != nil {
		opentelemetry.HandleSpanError(&span, "Failed to acquire distributed lock", err)

		return fmt.Errorf("failed to acquire lock %s: %w", safeLockKeyForLogs(key), err)
	}

	defer func() {
		if _, err := mutex.UnlockContext(ctx); err != nil {
			logger.Log(ctx, log.LevelWarn, "failed to release distributed lock",
				log.String("key", safeLockKeyForLogs(key)),
				log.Err(err),
			)
		}
	}()

	if err := fn(ctx); err != nil {
		logger.Log(ctx, log.LevelDebug, "function under distributed lock returned an error",
			log.String("key", safeLockKeyForLogs(key)),
			log.Err(err),
		)

		return err
	}

	return nil
}

func validateLockOptions(opts LockOptions) error {
	if opts.Expiry <= 0 {
		return ErrLockExpiryInvalid
	}

	if opts.Tries <= 0 {
		return ErrLockTriesInvalid
	}

	if opts.Tries > maxLockTries {
		return ErrLockTriesExceeded
	}

	if opts.RetryDelay < 0 {
		return ErrLockRetryDelayNegative
	}

	if opts.DriftFactor <= 0 || opts.DriftFactor >= 1 {
		return ErrLockDriftFactorInvalid
	}

	return nil
}

// safeLockKeyForLogs escapes control characters and truncates long keys so
// they are safe to include in log output.
func safeLockKeyForLogs(key string) string {
	const maxLen = 128

	quoted := strconv.QuoteToASCII(key)
	if len(quoted) > maxLen {
		return quoted[:maxLen] + "...\""
	}

	return quoted
}
