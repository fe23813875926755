// Package sqlite implements the store interfaces on an embedded SQLite
// database (modernc.org/sqlite, no cgo) for single-user and offline use.
//
// The pool is limited to one connection, so writers are serialized by the
// database handle itself and GetForUpdate is a plain read. Timestamps are
// stored as Unix microseconds.
package sqlite
