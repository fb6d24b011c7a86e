// Package sqlite provides a durable embedding store backed by SQLite.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that
// requires no CGO. It persists the content hash to vector mapping so that a
// restarted process does not pay for embeddings it has already computed.
// Vectors are namespaced by model: a lookup for a hash embedded by a
// different model is a miss.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Data Location
//
// By default, the database is stored at ~/.docmind/data/embeddings.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
