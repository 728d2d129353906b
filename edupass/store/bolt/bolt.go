// Package bolt provides a single-file embedded ledger store backed by
// bbolt. It suits single-instance deployments that need durability
// without an external database.
package bolt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/edupass/edupass-ledger/edupass/ledger"
	"github.com/shopspring/decimal"
	bbolt "go.etcd.io/bbolt"
)

var (
	bucketConfig      = []byte("config")
	bucketBalances    = []byte("balances")
	bucketAllocations = []byte("allocations")

	keyAdmin       = []byte("admin")
	keyTotalIssued = []byte("total_issued")
)

// Store implements ledger.Store on a bbolt database file. Balances and
// counters are stored as decimal strings, allocations as JSON documents.
type Store struct {
	db *bbolt.DB
}

var _ ledger.Store = (*Store)(nil)

// Open opens (or creates) the database file and ensures the ledger
// buckets exist. The open timeout guards against a stale file lock held
// by a crashed process.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, bucket := range [][]byte{bucketConfig, bucketBalances, bucketAllocations} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("create bucket %s: %w", bucket, err)
			}
		}

		return nil
	})
	if err != nil {
		_ = db.Close()

		return nil, err
	}

	return &Store{db: db}, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.db.Path()
}

// View runs fn against a read-only bolt transaction.
func (s *Store) View(ctx context.Context, fn func(ledger.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.View(func(tx *bbolt.Tx) error {
		return fn(&boltTx{tx: tx})
	})
}

// Update runs fn in bolt's single writable transaction. bbolt serializes
// writers, and a non-nil error from fn rolls the transaction back.
func (s *Store) Update(ctx context.Context, fn func(ledger.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		return fn(&boltTx{tx: tx})
	})
}

// Ping verifies the database file is open and readable.
func (s *Store) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.View(func(*bbolt.Tx) error { return nil })
}

// Close releases the database file lock.
func (s *Store) Close(_ context.Context) error {
	return s.db.Close()
}

type boltTx struct {
	tx *bbolt.Tx
}

var _ ledger.Tx = (*boltTx)(nil)

func (t *boltTx) Admin() (ledger.AccountID, bool, error) {
	value := t.tx.Bucket(bucketConfig).Get(keyAdmin)
	if value == nil {
		return "", false, nil
	}

	return ledger.AccountID(value), true, nil
}

func (t *boltTx) SetAdmin(admin ledger.AccountID) error {
	if err := t.tx.Bucket(bucketConfig).Put(keyAdmin, []byte(admin)); err != nil {
		return fmt.Errorf("write admin: %w", err)
	}

	return nil
}

func (t *boltTx) Balance(account ledger.AccountID) (decimal.Decimal, error) {
	value := t.tx.Bucket(bucketBalances).Get([]byte(account))
	if value == nil {
		return decimal.Zero, nil
	}

	balance, err := decimal.NewFromString(string(value))
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse stored balance: %w", err)
	}

	return balance, nil
}

func (t *boltTx) SetBalance(account ledger.AccountID, balance decimal.Decimal) error {
	if err := t.tx.Bucket(bucketBalances).Put([]byte(account), []byte(balance.String())); err != nil {
		return fmt.Errorf("write balance: %w", err)
	}

	return nil
}

func (t *boltTx) Allocation(beneficiary ledger.AccountID) (ledger.Allocation, bool, error) {
	value := t.tx.Bucket(bucketAllocations).Get([]byte(beneficiary))
	if value == nil {
		return ledger.Allocation{}, false, nil
	}

	var allocation ledger.Allocation
	if err := json.Unmarshal(value, &allocation); err != nil {
		return ledger.Allocation{}, false, fmt.Errorf("decode stored allocation: %w", err)
	}

	return allocation, true, nil
}

func (t *boltTx) SetAllocation(allocation ledger.Allocation) error {
	value, err := json.Marshal(allocation)
	if err != nil {
		return fmt.Errorf("encode allocation: %w", err)
	}

	if err := t.tx.Bucket(bucketAllocations).Put([]byte(allocation.Beneficiary), value); err != nil {
		return fmt.Errorf("write allocation: %w", err)
	}

	return nil
}

func (t *boltTx) TotalIssued() (decimal.Decimal, error) {
	value := t.tx.Bucket(bucketConfig).Get(keyTotalIssued)
	if value == nil {
		return decimal.Zero, nil
	}

	total, err := decimal.NewFromString(string(value))
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse stored total issued: %w", err)
	}

	return total, nil
}

func (t *boltTx) SetTotalIssued(total decimal.Decimal) error {
	if err := t.tx.Bucket(bucketConfig).Put(keyTotalIssued, []byte(total.String())); err != nil {
		return fmt.Errorf("write total issued: %w", err)
	}

	return nil
}
