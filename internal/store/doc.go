// Package store provides the SQLite-backed local replica for fitsync.
//
// The store holds three tables:
//   - progress_records: one row per progress record, keyed by a surrogate
//     row id so duplicate rows for a day can exist and be cleaned up
//   - daily_activities: the per-day journal
//   - custom_exercises: user-defined exercises (kept across resets)
//
// Photo slots are stored as a state column plus nullable bytes and URL
// columns per slot. A tombstoned slot is written with NULL bytes and URL.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//   - one open connection: SQLite has a single writer, and ":memory:"
//     databases only exist on the connection that created them
//
// Schema changes are goose migrations embedded from migrations/.
//
// Every write commits before returning, so the sync engine can crash
// between network steps and leave flags that reflect exactly what was
// durably applied.
package store
