// Package store provides the SQLite-backed session journal.
//
// The journal is an append-only audit trace of one or more runs:
//   - Sessions: engine configuration and opportunity policy
//   - Ticks: every generated stimulus with its n-back match flags
//   - Claims: every claim call and its scored result
//
// Sessions are never resumed from the journal. It exists so a run can be
// inspected and re-verified after the fact (see Replay).
//
// # Ordering
//
// All ordering uses the engine's logical clock (seq), never timestamps.
// Every multi-row query ends in ORDER BY seq ASC, id ASC COLLATE BINARY so
// results are identical across reads.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Ticks and claims must reference a written session
//
// Record ids are content-addressed (see ir.TickID and ir.ClaimID), so
// writing the same record twice is a no-op.
package store
