// Package reorder implements relative-position reordering of records.
//
// Records carry an integer order key. Move repositions one record by giving
// it a key in the gap next to its new neighbour, so a move writes a single
// row. Rebalance rewrites a whole scope to evenly spaced keys (10, 20, 30,
// ...) to restore room for later moves.
//
// # Operations
//
//   - Move: place a record before/after a target or first/last in its scope
//   - Rebalance: re-key every record matching a filter in a chosen order
//   - Check: report duplicate keys, negative keys and exhausted gaps
//   - List: read an ordering for display
//
// # Guarantees
//
//   - Requests are validated against the collection registry before the
//     store is touched. Unknown tables and fields never reach SQL.
//   - All writes of one operation happen in one store transaction.
//     A failed operation leaves every key as it was.
//   - Keys are never negative. Move never writes a key that ties with the
//     neighbour it must precede or follow; it fails with
//     CodeRebalanceRequired instead.
//   - The engine never retries. Errors carry a Code so callers can tell
//     client errors from store failures.
package reorder
