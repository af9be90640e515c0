// Package store defines the persistence contracts for tasks and users.
// Implementations live under internal/platform (postgres and sqlite) and
// must scope every task operation to the owning user: a task that belongs
// to someone else is indistinguishable from one that does not exist.
package store
