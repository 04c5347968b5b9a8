// Package store runs compiled statements against SQLite.
//
// A Store holds the tables of a model registry plus an append-only
// executions log:
//   - CreateTables creates one table per model
//   - Insert writes a row given as an ir.IRObject
//   - Execute runs a querysql.Statement and decodes rows by column type
//   - RecordExecution logs a statement with its content hash and a hash of
//     the rows it returned
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Executions are ordered by seq, a logical counter, never by timestamps.
package store
