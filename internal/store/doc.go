// Package store provides SQLite-backed storage for imported trace captures.
//
// A capture is one record set, possibly merged from several files. The store
// keeps:
//   - Captures: name, source files, discarded-event count and fingerprint
//   - Records: one row per record, its fields as canonical JSON
//   - Diagnostics: the problems the last graph build reported
//
// # Content Addressing
//
// Captures are deduplicated by record.Fingerprint. Importing the same record
// set twice returns the existing capture instead of inserting a copy.
//
// # Deterministic Query Results
//
// Records are read back ORDER BY seq ASC, the order they were imported in.
// Captures list ORDER BY seq ASC, id ASC COLLATE BINARY. Diagnostics keep
// their build order.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
