package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// The version suffix leaves room for algorithm migration.
const (
	DomainStatement = "subq/statement/v1"
	DomainRows      = "subq/rows/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// StatementID identifies a compiled statement by its SQL text and bound
// parameters. Two compilations that render the same SQL with the same
// arguments share an ID regardless of how the query was built.
func StatementID(sql string, params []any) (string, error) {
	args := make(IRArray, len(params))
	for i, p := range params {
		v, err := FromAny(p)
		if err != nil {
			return "", fmt.Errorf("StatementID: param %d: %w", i, err)
		}
		args[i] = v
	}

	canonical, err := MarshalCanonical(IRObject{
		"sql":    IRString(sql),
		"params": args,
	})
	if err != nil {
		return "", fmt.Errorf("StatementID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainStatement, canonical), nil
}

// RowsHash fingerprints an ordered result set.
func RowsHash(rows []IRObject) (string, error) {
	canonical, err := MarshalCanonical(rows)
	if err != nil {
		return "", fmt.Errorf("RowsHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainRows, canonical), nil
}

// MustStatementID is like StatementID but panics on error.
// Use only in tests or when params are known to be scalars.
func MustStatementID(sql string, params []any) string {
	id, err := StatementID(sql, params)
	if err != nil {
		panic(err)
	}
	return id
}
