package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/edupass/edupass-ledger/edupass/ledger"
	"github.com/edupass/edupass-ledger/edupass/log"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// ErrTxNotWritable is returned when a write is attempted inside View.
var ErrTxNotWritable = errors.New("transaction is not writable")

const (
	keyPrefix           = "edupass:"
	keyAdmin            = keyPrefix + "admin"
	keyTotalIssued      = keyPrefix + "total_issued"
	keyBalancePrefix    = keyPrefix + "balance:"
	keyAllocationPrefix = keyPrefix + "allocation:"

	// ledgerLockKey guards every Update. A single lock is deliberate: the
	// ledger invariants span balances and the issuance counter, so updates
	// must not interleave even when they touch different accounts.
	ledgerLockKey = keyPrefix + "ledger:lock"
)

func balanceKey(account ledger.AccountID) string {
	return keyBalancePrefix + string(account)
}

func allocationKey(beneficiary ledger.AccountID) string {
	return keyAllocationPrefix + string(beneficiary)
}

// Store is a Redis-backed ledger store. Updates are serialized across all
// service instances by a distributed lock and applied atomically in a single
// MULTI/EXEC pipeline.
type Store struct {
	conn   *Client
	locker *LockManager
	logger log.Logger
}

// NewStore connects to Redis and returns a ledger store.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Logger == nil {
		cfg.Logger = log.NewNop()
	}

	conn, err := New(ctx, cfg)
	if err != nil {
		return nil, err
	}

	locker, err := NewLockManager(conn)
	if err != nil {
		_ = conn.Close()

		return nil, err
	}

	return &Store{conn: conn, locker: locker, logger: cfg.Logger}, nil
}

// View runs fn with read-only access to ledger state.
func (s *Store) View(ctx context.Context, fn func(tx ledger.Tx) error) error {
	rdb, err := s.conn.GetClient(ctx)
	if err != nil {
		return err
	}

	return fn(&redisTx{ctx: ctx, rdb: rdb})
}

// Update acquires the ledger lock, runs fn against a staged transaction, and
// flushes the staged writes in one MULTI/EXEC pipeline. If fn returns an
// error nothing is written.
func (s *Store) Update(ctx context.Context, fn func(tx ledger.Tx) error) error {
	rdb, err := s.conn.GetClient(ctx)
	if err != nil {
		return err
	}

	return s.locker.WithLock(ctx, ledgerLockKey, func(ctx context.Context) error {
		tx := &redisTx{
			ctx:         ctx,
			rdb:         rdb,
			writable:    true,
			balances:    make(map[ledger.AccountID]decimal.Decimal),
			allocations: make(map[ledger.AccountID]ledger.Allocation),
		}

		if err := fn(tx); err != nil {
			return err
		}

		return tx.flush()
	})
}

// Ping verifies the Redis connection.
func (s *Store) Ping(ctx context.Context) error {
	rdb, err := s.conn.GetClient(ctx)
	if err != nil {
		return err
	}

	return rdb.Ping(ctx).Err()
}

// Close releases the Redis connection.
func (s *Store) Close(_ context.Context) error {
	return s.conn.Close()
}

// redisTx stages writes in memory until flush. Reads consult the staged
// writes first so a transaction observes its own mutations, then fall through
// to Redis.
type redisTx struct {
	ctx      context.Context
	rdb      redis.UniversalClient
	writable bool

	admin       *ledger.AccountID
	totalIssued *decimal.Decimal
	balances    map[ledger.AccountID]decimal.Decimal
	allocations map[ledger.AccountID]ledger.Allocation
}

func (t *redisTx) Admin() (ledger.AccountID, bool, error) {
	if t.admin != nil {
		return *t.admin, true, nil
	}

	value, err := t.rdb.Get(t.ctx, keyAdmin).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}

	if err != nil {
		return "", false, fmt.Errorf("redis: read admin: %w", err)
	}

	return ledger.AccountID(value), true, nil
}

func (t *redisTx) SetAdmin(admin ledger.AccountID) error {
	if !t.writable {
		return ErrTxNotWritable
	}

	t.admin = &admin

	return nil
}

func (t *redisTx) Balance(account ledger.AccountID) (decimal.Decimal, error) {
	if balance, ok := t.balances[account]; ok {
		return balance, nil
	}

	value, err := t.rdb.Get(t.ctx, balanceKey(account)).Result()
	if errors.Is(err, redis.Nil) {
		return decimal.Zero, nil
	}

	if err != nil {
		return decimal.Zero, fmt.Errorf("redis: read balance: %w", err)
	}

	balance, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("redis: parse balance for %s: %w", account, err)
	}

	return balance, nil
}

func (t *redisTx) SetBalance(account ledger.AccountID, balance decimal.Decimal) error {
	if !t.writable {
		return ErrTxNotWritable
	}

	t.balances[account] = balance

	return nil
}

func (t *redisTx) Allocation(beneficiary ledger.AccountID) (ledger.Allocation, bool, error) {
	if allocation, ok := t.allocations[beneficiary]; ok {
		return allocation, true, nil
	}

	value, err := t.rdb.Get(t.ctx, allocationKey(beneficiary)).Bytes()
	if errors.Is(err, redis.Nil) {
		return ledger.Allocation{}, false, nil
	}

	if err != nil {
		return ledger.Allocation{}, false, fmt.Errorf("redis: read allocation: %w", err)
	}

	var allocation ledger.Allocation
	if err := json.Unmarshal(value, &allocation); err != nil {
		return ledger.Allocation{}, false, fmt.Errorf("redis: decode allocation for %s: %w", beneficiary, err)
	}

	return allocation, true, nil
}

func (t *redisTx) SetAllocation(allocation ledger.Allocation) error {
	if !t.writable {
		return ErrTxNotWritable
	}

	t.allocations[allocation.Beneficiary] = allocation

	return nil
}

func (t *redisTx) TotalIssued() (decimal.Decimal, error) {
	if t.totalIssued != nil {
		return *t.totalIssued, nil
	}

	value, err := t.rdb.Get(t.ctx, keyTotalIssued).Result()
	if errors.Is(err, redis.Nil) {
		return decimal.Zero, nil
	}

	if err != nil {
		return decimal.Zero, fmt.Errorf("redis: read total issued: %w", err)
	}

	total, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("redis: parse total issued: %w", err)
	}

	return total, nil
}

func (t *redisTx) SetTotalIssued(total decimal.Decimal) error {
	if !t.writable {
		return ErrTxNotWritable
	}

	t.totalIssued = &total

	return nil
}

// flush applies the staged writes in a single MULTI/EXEC pipeline.
func (t *redisTx) flush() error {
	if t.admin == nil && t.totalIssued == nil && len(t.balances) == 0 && len(t.allocations) == 0 {
		return nil
	}

	_, err := t.rdb.TxPipelined(t.ctx, func(pipe redis.Pipeliner) error {
		if t.admin != nil {
			pipe.Set(t.ctx, keyAdmin, string(*t.admin), 0)
		}

		if t.totalIssued != nil {
			pipe.Set(t.ctx, keyTotalIssued, t.totalIssued.String(), 0)
		}

		for account, balance := range t.balances {
			pipe.Set(t.ctx, balanceKey(account), balance.String(), 0)
		}

		for _, allocation := range t.allocations {
			data, err := json.Marshal(allocation)
			if err != nil {
				return fmt.Errorf("redis: encode allocation for %s: %w", allocation.Beneficiary, err)
			}

			pipe.Set(t.ctx, allocationKey(allocation.Beneficiary), data, 0)
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("redis: apply ledger writes: %w", err)
	}

	return nil
}
