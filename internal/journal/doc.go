// Package journal records one row per finished subscription.
//
// The Writer batches sessions and inserts them into relay_sessions with
// pgx.Batch, flushing when the batch is full or on a timer. Record never
// blocks the caller; sessions are dropped and counted when the buffer is full.
// Noop is used when no database is configured.
package journal
