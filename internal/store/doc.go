// Package store provides the SQLite-backed sweep ledger.
//
// The ledger records two kinds of rows:
//   - Sweeps: one row per launch, with the sweep definition, the backend,
//     the number of planned points and the final state.
//   - Submissions: one row per submitted point, with the exact command,
//     the run fingerprint and the backend's answer.
//
// Submissions are ordered by (sweep_id, seq), where seq is the point's
// position in the sweep. Timestamps are informational only.
//
// The driver applies WAL journaling, synchronous=NORMAL, a 5 second busy
// timeout and foreign key enforcement on every connection, so history can
// be read from another process while a sweep writes.
package store
