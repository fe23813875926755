// Package store defines the persistence contracts for the progression engine:
// the per-user word collection, player profiles and opponent lookup.
//
// Every store exposes WithTx so services can compose several writes into one
// atomic unit via RunInTransaction. Implementations live under
// internal/platform (postgres and sqlite).
package store
