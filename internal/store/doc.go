// Package store provides SQLite-backed durable state for the sync server.
//
// The store keeps:
//   - Sessions: one row per publisher client session
//   - Transactions: one row per applied commit, keyed by transaction id
//   - Entities: the current state of every entity, scoped by target
//     project and source project
//   - Progress: every progress value reported by a session
//
// # Commit Semantics
//
// ApplyCommit applies one batch inside a single SQL transaction. Records are
// upserted in batch order, so the last record for an identifier wins. After
// all upserts every reference must resolve to an entity of the expected kind
// in the same scope; otherwise nothing from the batch is kept. Replaying a
// transaction id is a no-op that reports the original sequence number.
//
// # Ordering
//
// Sequence numbers come from the server's logical clock, never wall time.
// Entity queries order by seq ASC, position ASC, id ASC COLLATE BINARY.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
