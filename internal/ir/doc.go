// Package ir defines the value types that flow through subq: query
// literals, bound statement parameters and decoded result rows.
//
// IRValue is sealed. Floats are deliberately absent so that canonical
// encoding, statement hashing and golden snapshots stay deterministic.
//
// MarshalCanonical renders RFC 8785 canonical JSON. StatementID and
// RowsHash build domain-separated SHA-256 fingerprints on top of it.
package ir
