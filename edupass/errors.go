package edupass

import (
	constant "github.com/edupass/edupass-ledger/edupass/constants"
)

// Response represents a business error with code, title, and message.
type Response struct {
	EntityType string `json:"entityType,omitempty"`
	Title      string `json:"title,omitempty"`
	Message    string `json:"message,omitempty"`
	Code       string `json:"code,omitempty"`
	Err        error  `json:"err,omitempty"`
}

func (e Response) Error() string {
	return e.Message
}

// ValidateBusinessError translates a ledger sentinel error into the
// client-facing business error with code, title, and message. Errors
// outside the ledger taxonomy are returned unchanged.
//
// Parameters:
//   - err: The error to be translated (see constants/errors.go for the taxonomy).
//   - entityType: The type of the entity related to the error.
//   - args: Additional arguments for formatting error messages.
//
// Returns:
//   - error: The appropriate business error with code, title, and message.
func ValidateBusinessError(err error, entityType string, args ...any) error {
	errorMap := map[error]error{
		constant.ErrAlreadyInitialized: Response{
			EntityType: entityType,
			Code:       constant.ErrAlreadyInitialized.Error(),
			Title:      "Ledger Already Initialized",
			Message:    "The ledger has already been initialized and an administrator is set. Initialization can only happen once.",
		},
		constant.ErrUnauthorized: Response{
			EntityType: entityType,
			Code:       constant.ErrUnauthorized.Error(),
			Title:      "Unauthorized Operation",
			Message:    "The requesting account is not authorized to perform this operation. Please verify the credentials and try again.",
		},
		constant.ErrInvalidAmount: Response{
			EntityType: entityType,
			Code:       constant.ErrInvalidAmount.Error(),
			Title:      "Invalid Amount",
			Message:    "The amount must be a positive whole number of credit units. Please review the amount and try again.",
		},
		constant.ErrInsufficientBalance: Response{
			EntityType: entityType,
			Code:       constant.ErrInsufficientBalance.Error(),
			Title:      "Insufficient Balance",
			Message:    "The source account does not hold enough credits to complete this operation. Please review the balance and try again.",
		},
		constant.ErrOverflowInt128: Response{
			EntityType: entityType,
			Code:       constant.ErrOverflowInt128.Error(),
			Title:      "Amount Overflow",
			Message:    "The operation would take a balance or counter outside the representable range. Please check the values and try again.",
		},
		constant.ErrInvalidInput: Response{
			EntityType: entityType,
			Code:       constant.ErrInvalidInput.Error(),
			Title:      "Invalid Input",
			Message:    "One or more request fields are missing or malformed. Please review the request payload and try again.",
		},
	}

	if mappedError, found := errorMap[err]; found {
		return mappedError
	}

	return err
}
