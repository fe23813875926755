// Package postgres implements the store interfaces on PostgreSQL through the
// pgx database/sql driver. Row locks (SELECT ... FOR UPDATE) back the
// GetForUpdate methods, so read-modify-write cycles run inside a transaction
// started with store.RunInTransaction.
package postgres
