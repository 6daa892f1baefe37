// Package checkpoint provides durable, per-run persistence of workflow state.
//
// Every Store keeps the latest snapshot of a run plus an append-only history
// of checkpoint metadata. Writes are compare-and-set on fin.Run.Version:
// a writer holding a stale snapshot gets ErrConflict instead of silently
// overwriting a newer one. Each payload is stored with a domain-separated
// SHA-256 checksum that Get verifies, so a torn or tampered snapshot is
// reported as ErrCorruptSnapshot rather than returned.
//
// Backends:
//   - SQLiteStore: single file, WAL mode, the default for local use
//   - PostgresStore: pgx driver, schema managed by golang-migrate
//   - RedisStore: hash per run, CAS via WATCH/MULTI
//   - MemoryStore: tests and throwaway runs
package checkpoint
