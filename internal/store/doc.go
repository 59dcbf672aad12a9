// Package store is the persistence layer behind the reorder engine.
//
// It defines the RecordStore contract (Reader, Tx, Loader) and its SQLite
// implementation. The in-memory implementation lives in store/memstore.
//
// # Contract
//
//   - Rows are ir.IRObject values keyed by physical column name.
//   - Every Scan is ordered and ends with id as the tiebreaker, so equal
//     order keys still produce a deterministic sequence.
//   - Update touches one column of one row and reports ErrNotFound when the
//     id is absent.
//   - A Tx is all-or-nothing. Rollback after Commit is a no-op.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// The pool is limited to one connection. Callers must finish a Scan on the
// Store before opening a transaction, and must read through the Tx while
// one is open.
package store
