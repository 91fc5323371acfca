// Package database stores the discovery history in SQLite.
//
// Every finished discovery is recorded with its outcome, timing and the
// discovered elements, keyed by the run ID. The history backs the
// "history" and "compare" commands.
//
// The database is a single file (jurisdata.db) opened through the CGO-free
// modernc.org/sqlite driver with WAL journaling.
package database
