// Package safe provides panic-free, bounds-checked arithmetic for ledger
// amounts.
//
// Ledger amounts are whole numbers of credit units confined to the signed
// 128-bit integer range. The helpers here (CheckInt128, AddInt128,
// SubInt128) enforce both constraints and return explicit errors instead
// of silently wrapping or truncating, so callers can abort an operation
// before any state is written.
package safe
