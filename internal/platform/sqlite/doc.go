// Package sqlite provides SQLite implementations of the task and user stores
// using the pure-Go modernc.org/sqlite driver. It backs single-node
// deployments and the hermetic test suite; the schema mirrors the
// PostgreSQL one, with timestamps kept as Unix nanoseconds.
package sqlite
