// Package testdb opens migrated databases for tests.
//
// OpenSQLite returns a private in-memory SQLite database and is what most
// store and service tests use. GetTestDBWithT connects to the PostgreSQL
// instance named by DATABASE_URL and skips the test when it is unset; pair it
// with WithTx so each test runs in a transaction that is rolled back.
package testdb
