package ledger

import (
	"context"

	"github.com/edupass/edupass-ledger/edupass"
	"github.com/edupass/edupass-ledger/edupass/auth"
	"github.com/edupass/edupass-ledger/edupass/log"
	"github.com/edupass/edupass-ledger/edupass/opentelemetry"
	"github.com/edupass/edupass-ledger/edupass/safe"
	"github.com/shopspring/decimal"
)

// Engine executes ledger operations atomically against a Store.
//
// Operations that act on behalf of an account authorize that identity
// through the configured Verifier before any amount validation, so an
// unauthorized caller learns nothing about amount rules. Every operation
// runs its reads and writes inside a single store transaction.
type Engine struct {
	store    Store
	verifier auth.Verifier
}

// New builds an Engine on top of st. A nil verifier accepts every
// identity; production wiring must pass a real Verifier such as
// auth.NewHMACVerifier.
func New(st Store, verifier auth.Verifier) *Engine {
	if verifier == nil {
		verifier = auth.AllowAll{}
	}

	return &Engine{store: st, verifier: verifier}
}

// Initialize records admin as the ledger administrator and zeroes the
// cumulative issuance counter. It fails once an administrator exists.
// Initialization itself requires no authorization: the first caller to
// reach the store wins.
func (e *Engine) Initialize(ctx context.Context, admin AccountID) error {
	logger, tracer, _ := edupass.NewTrackingFromContext(ctx)

	ctx, span := tracer.Start(ctx, "ledger.initialize")
	defer span.End()

	if err := admin.validate("admin"); err != nil {
		opentelemetry.HandleSpanError(&span, "invalid admin identity", err)

		return err
	}

	err := e.store.Update(ctx, func(tx Tx) error {
		_, exists, err := tx.Admin()
		if err != nil {
			return err
		}

		if exists {
			return NewDomainError(ErrorAlreadyInitialized, "admin", "ledger is already initialized")
		}

		if err := tx.SetAdmin(admin); err != nil {
			return err
		}

		return tx.SetTotalIssued(decimal.Zero)
	})
	if err != nil {
		opentelemetry.HandleSpanError(&span, "initialize ledger", err)

		return err
	}

	logger.Log(ctx, log.LevelInfo, "ledger initialized", log.String("admin", string(admin)))

	return nil
}

// IssueCredits mints input.Amount new credits to input.Beneficiary and
// records the allocation, overwriting any previous allocation for the
// same beneficiary. The issuer must prove its identity; beyond that,
// issuance is open to any account, before or after initialization.
func (e *Engine) IssueCredits(ctx context.Context, input IssueInput) (Allocation, error) {
	logger, tracer, _ := edupass.NewTrackingFromContext(ctx)

	ctx, span := tracer.Start(ctx, "ledger.issue_credits")
	defer span.End()

	if err := input.validateIdentities(); err != nil {
		opentelemetry.HandleSpanError(&span, "invalid issue input", err)

		return Allocation{}, err
	}

	// Authorization strictly precedes amount validation.
	if err := e.requireIdentity(ctx, input.Issuer, "issuer"); err != nil {
		opentelemetry.HandleSpanError(&span, "unauthorized issuer", err)

		return Allocation{}, err
	}

	if err := validateAmount(input.Amount, "amount"); err != nil {
		opentelemetry.HandleSpanError(&span, "invalid amount", err)

		return Allocation{}, err
	}

	allocation := Allocation{
		Beneficiary: input.Beneficiary,
		Issuer:      input.Issuer,
		Amount:      input.Amount,
		Purpose:     input.Purpose,
		ExpiresAt:   input.ExpiresAt,
	}

	err := e.store.Update(ctx, func(tx Tx) error {
		balance, err := tx.Balance(input.Beneficiary)
		if err != nil {
			return err
		}

		credited, err := safe.AddInt128(balance, input.Amount)
		if err != nil {
			return NewDomainError(ErrorOverflow, "balance", "crediting would overflow the beneficiary balance")
		}

		total, err := tx.TotalIssued()
		if err != nil {
			return err
		}

		issued, err := safe.AddInt128(total, input.Amount)
		if err != nil {
			return NewDomainError(ErrorOverflow, "totalIssued", "issuance would overflow the total issued counter")
		}

		if err := tx.SetBalance(input.Beneficiary, credited); err != nil {
			return err
		}

		if err := tx.SetTotalIssued(issued); err != nil {
			return err
		}

		return tx.SetAllocation(allocation)
	})
	if err != nil {
		opentelemetry.HandleSpanError(&span, "issue credits", err)

		return Allocation{}, err
	}

	logger.Log(ctx, log.LevelInfo, "credits issued",
		log.String("issuer", string(input.Issuer)),
		log.String("beneficiary", string(input.Beneficiary)),
		log.String("amount", input.Amount.String()),
		log.String("purpose", input.Purpose),
	)

	return allocation, nil
}

// Transfer moves amount credits from one account to another. The from
// account must prove its identity and hold at least amount credits.
// A transfer from an account to itself leaves the balance unchanged but
// still requires sufficient funds.
func (e *Engine) Transfer(ctx context.Context, from, to AccountID, amount decimal.Decimal) error {
	logger, tracer, _ := edupass.NewTrackingFromContext(ctx)

	ctx, span := tracer.Start(ctx, "ledger.transfer")
	defer span.End()

	if err := from.validate("from"); err != nil {
		opentelemetry.HandleSpanError(&span, "invalid source account", err)

		return err
	}

	if err := to.validate("to"); err != nil {
		opentelemetry.HandleSpanError(&span, "invalid destination account", err)

		return err
	}

	if err := e.requireIdentity(ctx, from, "from"); err != nil {
		opentelemetry.HandleSpanError(&span, "unauthorized source account", err)

		return err
	}

	if err := validateAmount(amount, "amount"); err != nil {
		opentelemetry.HandleSpanError(&span, "invalid amount", err)

		return err
	}

	err := e.store.Update(ctx, func(tx Tx) error {
		fromBalance, err := tx.Balance(from)
		if err != nil {
			return err
		}

		if fromBalance.LessThan(amount) {
			return NewDomainError(ErrorInsufficientBalance, "from", "account balance cannot cover the transfer")
		}

		debited, err := safe.SubInt128(fromBalance, amount)
		if err != nil {
			return NewDomainError(ErrorOverflow, "from", "debit would overflow the source balance")
		}

		if err := tx.SetBalance(from, debited); err != nil {
			return err
		}

		// Reading through the same Tx, a self-transfer observes the
		// debit just staged and nets out to the original balance.
		toBalance, err := tx.Balance(to)
		if err != nil {
			return err
		}

		credited, err := safe.AddInt128(toBalance, amount)
		if err != nil {
			return NewDomainError(ErrorOverflow, "to", "credit would overflow the destination balance")
		}

		return tx.SetBalance(to, credited)
	})
	if err != nil {
		opentelemetry.HandleSpanError(&span, "transfer credits", err)

		return err
	}

	logger.Log(ctx, log.LevelInfo, "credits transferred",
		log.String("from", string(from)),
		log.String("to", string(to)),
		log.String("amount", amount.String()),
	)

	return nil
}

// Burn permanently removes amount credits from the account. The account
// must prove its identity and hold at least amount credits. Burning
// never reduces the cumulative issuance counter.
func (e *Engine) Burn(ctx context.Context, account AccountID, amount decimal.Decimal) error {
	logger, tracer, _ := edupass.NewTrackingFromContext(ctx)

	ctx, span := tracer.Start(ctx, "ledger.burn")
	defer span.End()

	if err := account.validate("account"); err != nil {
		opentelemetry.HandleSpanError(&span, "invalid account", err)

		return err
	}

	if err := e.requireIdentity(ctx, account, "account"); err != nil {
		opentelemetry.HandleSpanError(&span, "unauthorized account", err)

		return err
	}

	if err := validateAmount(amount, "amount"); err != nil {
		opentelemetry.HandleSpanError(&span, "invalid amount", err)

		return err
	}

	err := e.store.Update(ctx, func(tx Tx) error {
		balance, err := tx.Balance(account)
		if err != nil {
			return err
		}

		if balance.LessThan(amount) {
			return NewDomainError(ErrorInsufficientBalance, "account", "account balance cannot cover the burn")
		}

		burned, err := safe.SubInt128(balance, amount)
		if err != nil {
			return NewDomainError(ErrorOverflow, "account", "burn would overflow the account balance")
		}

		return tx.SetBalance(account, burned)
	})
	if err != nil {
		opentelemetry.HandleSpanError(&span, "burn credits", err)

		return err
	}

	logger.Log(ctx, log.LevelInfo, "credits burned",
		log.String("account", string(account)),
		log.String("amount", amount.String()),
	)

	return nil
}

// Balance returns the account's current balance. Accounts that never
// received credits report zero.
func (e *Engine) Balance(ctx context.Context, account AccountID) (decimal.Decimal, error) {
	_, tracer, _ := edupass.NewTrackingFromContext(ctx)

	ctx, span := tracer.Start(ctx, "ledger.balance")
	defer span.End()

	if err := account.validate("account"); err != nil {
		opentelemetry.HandleSpanError(&span, "invalid account", err)

		return decimal.Zero, err
	}

	var balance decimal.Decimal

	err := e.store.View(ctx, func(tx Tx) error {
		var err error
		balance, err = tx.Balance(account)

		return err
	})
	if err != nil {
		opentelemetry.HandleSpanError(&span, "read balance", err)

		return decimal.Zero, err
	}

	return balance, nil
}

// Allocation returns the most recent allocation recorded for the
// beneficiary. ok is false when the beneficiary never received an
// issuance; that is not an error.
func (e *Engine) Allocation(ctx context.Context, beneficiary AccountID) (Allocation, bool, error) {
	_, tracer, _ := edupass.NewTrackingFromContext(ctx)

	ctx, span := tracer.Start(ctx, "ledger.allocation")
	defer span.End()

	if err := beneficiary.validate("beneficiary"); err != nil {
		opentelemetry.HandleSpanError(&span, "invalid beneficiary", err)

		return Allocation{}, false, err
	}

	var (
		allocation Allocation
		ok         bool
	)

	err := e.store.View(ctx, func(tx Tx) error {
		var err error
		allocation, ok, err = tx.Allocation(beneficiary)

		return err
	})
	if err != nil {
		opentelemetry.HandleSpanError(&span, "read allocation", err)

		return Allocation{}, false, err
	}

	return allocation, ok, nil
}

// TotalIssued returns the cumulative amount ever issued. Burns and
// transfers never change it.
func (e *Engine) TotalIssued(ctx context.Context) (decimal.Decimal, error) {
	_, tracer, _ := edupass.NewTrackingFromContext(ctx)

	ctx, span := tracer.Start(ctx, "ledger.total_issued")
	defer span.End()

	var total decimal.Decimal

	err := e.store.View(ctx, func(tx Tx) error {
		var err error
		total, err = tx.TotalIssued()

		return err
	})
	if err != nil {
		opentelemetry.HandleSpanError(&span, "read total issued", err)

		return decimal.Zero, err
	}

	return total, nil
}

// Admin returns the ledger administrator. ok is false before
// initialization.
func (e *Engine) Admin(ctx context.Context) (AccountID, bool, error) {
	_, tracer, _ := edupass.NewTrackingFromContext(ctx)

	ctx, span := tracer.Start(ctx, "ledger.admin")
	defer span.End()

	var (
		admin  AccountID
		exists bool
	)

	err := e.store.View(ctx, func(tx Tx) error {
		var err error
		admin, exists, err = tx.Admin()

		return err
	})
	if err != nil {
		opentelemetry.HandleSpanError(&span, "read admin", err)

		return "", false, err
	}

	return admin, exists, nil
}

// requireIdentity maps any verifier rejection onto the unauthorized
// domain error without leaking verifier internals to the caller.
func (e *Engine) requireIdentity(ctx context.Context, id AccountID, field string) error {
	if err := e.verifier.RequireIdentity(ctx, string(id)); err != nil {
		logger, _, _ := edupass.NewTrackingFromContext(ctx)
		logger.Log(ctx, log.LevelDebug, "identity verification failed",
			log.String("field", field),
			log.Err(err),
		)

		return NewDomainError(ErrorUnauthorized, field, "identity is not authorized for this operation")
	}

	return nil
}
