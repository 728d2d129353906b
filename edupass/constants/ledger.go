package constant

const (
	// EntityLedger identifies ledger-level operations in business errors.
	EntityLedger = "Ledger"
	// EntityAllocation identifies allocation records in business errors.
	EntityAllocation = "Allocation"
	// EntityAccount identifies account balances in business errors.
	EntityAccount = "Account"

	// DefaultErrorTitle is the fallback error title used in HTTP error responses
	// when no specific title is provided.
	DefaultErrorTitle = "request_failed"
	// DefaultInternalErrorCode is the response code for unclassified server errors.
	DefaultInternalErrorCode = "0000"
	// DefaultInternalErrorMessage is the fallback message for unclassified server errors.
	DefaultInternalErrorMessage = "An internal error occurred"

	// LoggerDefaultSeparator separates the correlation prefix from log messages.
	LoggerDefaultSeparator = " | "
)

const (
	// DataSourceStatusAvailable reports a healthy dependency in the health endpoint.
	DataSourceStatusAvailable = "available"
	// DataSourceStatusDegraded reports an unhealthy dependency in the health endpoint.
	DataSourceStatusDegraded = "degraded"
)
