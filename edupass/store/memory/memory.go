// Package memory provides an in-process ledger store. It backs unit
// tests and local runs; state is lost when the process exits.
package memory

import (
	"context"
	"errors"
	"maps"
	"sync"

	"github.com/edupass/edupass-ledger/edupass/ledger"
	"github.com/shopspring/decimal"
)

var (
	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("memory store is closed")

	// ErrTxNotWritable is returned when a write is attempted inside View.
	ErrTxNotWritable = errors.New("transaction is not writable")
)

// Store keeps the four ledger key families in process maps guarded by a
// single read-write mutex. Update holds the write lock for the whole
// closure, which serializes transactions without further coordination.
type Store struct {
	mu          sync.RWMutex
	closed      bool
	admin       ledger.AccountID
	hasAdmin    bool
	totalIssued decimal.Decimal
	balances    map[ledger.AccountID]decimal.Decimal
	allocations map[ledger.AccountID]ledger.Allocation
}

var _ ledger.Store = (*Store)(nil)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		balances:    make(map[ledger.AccountID]decimal.Decimal),
		allocations: make(map[ledger.AccountID]ledger.Allocation),
	}
}

// View runs fn against the current state under the read lock.
func (s *Store) View(ctx context.Context, fn func(ledger.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrClosed
	}

	return fn(&memTx{store: s})
}

// Update runs fn with writes staged in a transaction-local set. The set
// is applied to the store only when fn returns nil.
func (s *Store) Update(ctx context.Context, fn func(ledger.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	tx := &memTx{
		store:       s,
		writable:    true,
		balances:    make(map[ledger.AccountID]decimal.Decimal),
		allocations: make(map[ledger.AccountID]ledger.Allocation),
	}

	if err := fn(tx); err != nil {
		return err
	}

	if tx.admin != nil {
		s.admin = *tx.admin
		s.hasAdmin = true
	}

	if tx.totalIssued != nil {
		s.totalIssued = *tx.totalIssued
	}

	maps.Copy(s.balances, tx.balances)
	maps.Copy(s.allocations, tx.allocations)

	return nil
}

// Ping reports whether the store accepts operations.
func (s *Store) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrClosed
	}

	return nil
}

// Close marks the store closed. Subsequent operations fail with
// ErrClosed.
func (s *Store) Close(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true

	return nil
}

// memTx reads through to the store and stages writes locally, giving
// the update closure read-your-writes semantics.
type memTx struct {
	store    *Store
	writable bool

	admin       *ledger.AccountID
	totalIssued *decimal.Decimal
	balances    map[ledger.AccountID]decimal.Decimal
	allocations map[ledger.AccountID]ledger.Allocation
}

var _ ledger.Tx = (*memTx)(nil)

func (tx *memTx) Admin() (ledger.AccountID, bool, error) {
	if tx.admin != nil {
		return *tx.admin, true, nil
	}

	if !tx.store.hasAdmin {
		return "", false, nil
	}

	return tx.store.admin, true, nil
}

func (tx *memTx) SetAdmin(admin ledger.AccountID) error {
	if !tx.writable {
		return ErrTxNotWritable
	}

	tx.admin = &admin

	return nil
}

func (tx *memTx) Balance(account ledger.AccountID) (decimal.Decimal, error) {
	if tx.balances != nil {
		if balance, ok := tx.balances[account]; ok {
			return balance, nil
		}
	}

	if balance, ok := tx.store.balances[account]; ok {
		return balance, nil
	}

	return decimal.Zero, nil
}

func (tx *memTx) SetBalance(account ledger.AccountID, balance decimal.Decimal) error {
	if !tx.writable {
		return ErrTxNotWritable
	}

	tx.balances[account] = balance

	return nil
}

func (tx *memTx) Allocation(beneficiary ledger.AccountID) (ledger.Allocation, bool, error) {
	if tx.allocations != nil {
		if allocation, ok := tx.allocations[beneficiary]; ok {
			return allocation, true, nil
		}
	}

	if allocation, ok := tx.store.allocations[beneficiary]; ok {
		return allocation, true, nil
	}

	return ledger.Allocation{}, false, nil
}

func (tx *memTx) SetAllocation(allocation ledger.Allocation) error {
	if !tx.writable {
		return ErrTxNotWritable
	}

	tx.allocations[allocation.Beneficiary] = allocation

	return nil
}

func (tx *memTx) TotalIssued() (decimal.Decimal, error) {
	if tx.totalIssued != nil {
		return *tx.totalIssued, nil
	}

	return tx.store.totalIssued, nil
}

func (tx *memTx) SetTotalIssued(total decimal.Decimal) error {
	if !tx.writable {
		return ErrTxNotWritable
	}

	tx.totalIssued = &total

	return nil
}
