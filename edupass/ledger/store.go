package ledger

import (
	"context"

	"github.com/shopspring/decimal"
)

// Store is the persistence contract the engine runs against. Backends
// live under the store directory; each one maps the four ledger key
// families (admin, total issued, balances, allocations) onto its own
// storage primitives.
type Store interface {
	// View runs fn with read-only access to ledger state. Each
	// individual read is consistent; only Update guarantees atomicity
	// across reads and writes.
	View(ctx context.Context, fn func(Tx) error) error

	// Update runs fn as a single atomic read-modify-write transaction.
	// A non-nil error from fn discards every staged write. Concurrent
	// Update calls are serialized by the backend so each one observes
	// the state left by the previous.
	Update(ctx context.Context, fn func(Tx) error) error

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases the backend's resources.
	Close(ctx context.Context) error
}

// Tx is a transactional view over ledger state.
//
// Within one Update, reads observe earlier writes made through the same
// Tx (read-your-writes). Absent balances and counters read as zero;
// whether an allocation or administrator exists is reported explicitly.
type Tx interface {
	// Admin returns the ledger administrator. ok is false before
	// initialization.
	Admin() (AccountID, bool, error)

	// SetAdmin records the ledger administrator.
	SetAdmin(AccountID) error

	// Balance returns the account's balance. Accounts never written
	// read as zero.
	Balance(AccountID) (decimal.Decimal, error)

	// SetBalance stores the account's balance.
	SetBalance(AccountID, decimal.Decimal) error

	// Allocation returns the beneficiary's most recent allocation.
	// ok is false when the beneficiary never received an issuance.
	Allocation(AccountID) (Allocation, bool, error)

	// SetAllocation stores the allocation under its beneficiary,
	// replacing any previous record.
	SetAllocation(Allocation) error

	// TotalIssued returns the cumulative issuance counter. A ledger
	// that never issued reads as zero.
	TotalIssued() (decimal.Decimal, error)

	// SetTotalIssued stores the cumulative issuance counter.
	SetTotalIssued(decimal.Decimal) error
}
