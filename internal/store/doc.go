// Package store provides SQLite-backed transcripts of engine sessions.
//
// The store is an append-only log with:
//   - Sessions: one row per engine run, keyed by a UUIDv7
//   - Messages: every command sent and event received, in order
//
// # Ordering
//
// Messages are ordered by seq, a per-session logical clock kept by the
// Recorder, never by timestamps. Queries return ORDER BY seq ASC so a
// transcript reads back, and replays, in the order it was recorded.
//
// # Idempotency
//
// Sessions use ON CONFLICT(id) DO NOTHING and messages use
// UNIQUE(session_id, seq), so re-recording is harmless.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
