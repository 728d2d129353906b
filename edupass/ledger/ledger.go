package ledger

import (
	"errors"
	"fmt"
	"strings"

	"github.com/edupass/edupass-ledger/edupass/safe"
	"github.com/shopspring/decimal"
)

// ErrorCode is a stable ledger error code carried by DomainError.
type ErrorCode string

const (
	// ErrorAlreadyInitialized indicates the ledger administrator is already set.
	ErrorAlreadyInitialized ErrorCode = "0001"
	// ErrorUnauthorized indicates the request credentials do not prove the acting identity.
	ErrorUnauthorized ErrorCode = "0002"
	// ErrorInvalidAmount indicates an amount that is zero, negative, or fractional.
	ErrorInvalidAmount ErrorCode = "0003"
	// ErrorInsufficientBalance indicates the source account cannot cover the amount.
	ErrorInsufficientBalance ErrorCode = "0004"
	// ErrorOverflow indicates a balance or counter would leave the signed 128-bit range.
	ErrorOverflow ErrorCode = "0005"
	// ErrorInvalidInput indicates request payload validation failed.
	ErrorInvalidInput ErrorCode = "0006"
)

// DomainError represents a structured ledger validation error.
type DomainError struct {
	Code    ErrorCode
	Field   string
	Message string
}

// Error returns the formatted domain error string.
func (e DomainError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}

	return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Field)
}

// NewDomainError creates a domain error with code, field, and message.
func NewDomainError(code ErrorCode, field, message string) error {
	return DomainError{Code: code, Field: field, Message: message}
}

// AccountID identifies a ledger account. Any non-blank string is a valid
// account; accounts exist implicitly with a zero balance.
type AccountID string

func (id AccountID) validate(field string) error {
	if strings.TrimSpace(string(id)) == "" {
		return NewDomainError(ErrorInvalidInput, field, "account identity is required")
	}

	return nil
}

// Allocation records the most recent issuance made to a beneficiary.
// Each new issuance to the same beneficiary overwrites the previous
// record; the ledger keeps no further history.
type Allocation struct {
	Beneficiary AccountID       `json:"beneficiary"`
	Issuer      AccountID       `json:"issuer"`
	Amount      decimal.Decimal `json:"amount"`
	Purpose     string          `json:"purpose"`
	ExpiresAt   int64           `json:"expiresAt"`
}

// IssueInput is the caller input for issuing new credits.
//
// Purpose and ExpiresAt are descriptive metadata: they are stored on the
// allocation record verbatim and never enforced. In particular an
// ExpiresAt in the past does not block issuance and does not reclaim
// credits.
type IssueInput struct {
	Issuer      AccountID       `json:"issuer"`
	Beneficiary AccountID       `json:"beneficiary"`
	Amount      decimal.Decimal `json:"amount"`
	Purpose     string          `json:"purpose"`
	ExpiresAt   int64           `json:"expiresAt"`
}

func (in IssueInput) validateIdentities() error {
	if err := in.Issuer.validate("issuer"); err != nil {
		return err
	}

	return in.Beneficiary.validate("beneficiary")
}

// validateAmount enforces the amount rule shared by issue, transfer, and
// burn: a positive whole number of credit units within the signed 128-bit
// range.
func validateAmount(amount decimal.Decimal, field string) error {
	if err := safe.CheckInt128(amount); err != nil {
		if errors.Is(err, safe.ErrNotInteger) {
			return NewDomainError(ErrorInvalidAmount, field, "amount must be a whole number of credit units")
		}

		return NewDomainError(ErrorOverflow, field, "amount exceeds the representable range")
	}

	if !amount.IsPositive() {
		return NewDomainError(ErrorInvalidAmount, field, "amount must be greater than zero")
	}

	return nil
}
