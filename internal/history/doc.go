// Package history persists a ledger of sort runs in SQLite.
//
// Each run is one row in runs plus one row per file in outcomes, in scan
// order. The ledger is written after a run completes and is read by the
// history commands. It never influences sorting: a ledger that cannot be
// opened or written is reported as a warning by the caller.
//
// The database uses WAL journaling and a busy timeout; writes retry briefly
// on SQLITE_BUSY so two processes recording at the same time both succeed.
package history
