// Package store exports finished runs to SQLite.
//
// A run is written once, after the engine returns, and never updated:
//   - runs: one row per run ID with the horizon, final beat, error code,
//     engine counters and content digests
//   - trace_events: the recorded commands, keyed by (run_id, seq)
//   - signals: the final signal store, keyed by (run_id, position)
//
// Nothing here feeds back into scheduling. The engine keeps all of its
// state in memory; the database is a report that the trace command and
// external tools can query.
//
// # Ordering
//
// Reads always order by seq or position, never by insertion time, so the
// same run reads back identically from any database.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Args and signal values are stored as canonical JSON (internal/ir), and the
// digest columns are computed the same way the engine computes them.
package store
