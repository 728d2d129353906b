package constant

import "errors"

var (
	// ErrAlreadyInitialized maps to ledger error code 0001.
	ErrAlreadyInitialized = errors.New("0001")
	// ErrUnauthorized maps to ledger error code 0002.
	ErrUnauthorized = errors.New("0002")
	// ErrInvalidAmount maps to ledger error code 0003.
	ErrInvalidAmount = errors.New("0003")
	// ErrInsufficientBalance maps to ledger error code 0004.
	ErrInsufficientBalance = errors.New("0004")
	// ErrOverflowInt128 maps to ledger error code 0005.
	ErrOverflowInt128 = errors.New("0005")
	// ErrInvalidInput maps to ledger error code 0006.
	ErrInvalidInput = errors.New("0006")
)

// codeSentinels indexes the coded sentinels by their code string.
var codeSentinels = map[string]error{
	ErrAlreadyInitialized.Error():  ErrAlreadyInitialized,
	ErrUnauthorized.Error():        ErrUnauthorized,
	ErrInvalidAmount.Error():       ErrInvalidAmount,
	ErrInsufficientBalance.Error(): ErrInsufficientBalance,
	ErrOverflowInt128.Error():      ErrOverflowInt128,
	ErrInvalidInput.Error():        ErrInvalidInput,
}

// FromCode returns the sentinel error for a ledger error code, or nil when the
// code is unknown.
func FromCode(code string) error {
	return codeSentinels[code]
}
