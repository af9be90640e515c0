// Package testdb provides database fixtures for tests.
//
// NewSQLite returns a migrated, private in-memory SQLite database and needs
// nothing external, so store, service and API tests use it by default.
// The PostgreSQL helpers are compiled only with the integration build tag
// and skip unless TODO_TEST_DATABASE_URL points at a server; each test
// runs in a transaction that is rolled back afterwards.
package testdb
