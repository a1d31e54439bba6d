// Package store provides SQLite-backed history of completed translations.
//
// Every successful translation can be appended as an Entry carrying the
// query text, the rendered SQL, the dialect, and the fingerprint of the
// schema it was translated against. Entries are keyed by trace ID; writing
// the same trace ID twice is a no-op.
//
// # Ordering
//
// Entries carry an autoincrement seq. Listings order by seq, never by
// created_at, so equal timestamps still list deterministically.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
