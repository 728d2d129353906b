// Package ledger implements the education-credit ledger: a single-asset
// accounting core that issues, transfers, and burns credit units across
// accounts identified by opaque strings.
//
// State consists of one administrator record, one cumulative issuance
// counter, a balance per account, and the most recent allocation per
// beneficiary. Amounts are whole numbers of credit units confined to the
// signed 128-bit integer range; any operation that would leave that range
// aborts without writing.
//
// The Engine executes every operation atomically against a Store: all
// reads and writes of one operation happen inside a single View or Update
// transaction, and a failed operation leaves no partial state behind.
// Validation failures surface as DomainError values carrying stable
// ledger error codes.
package ledger
