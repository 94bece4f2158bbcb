package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainPredicateSet = "implied/predicate-set/v1"
	DomainDerivation   = "implied/derivation/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// PredicateSetHash computes an order-independent ID for a predicate set.
// Two sets with the same canonical predicates in any order hash equal.
func PredicateSetHash(preds []*Predicate) (string, error) {
	lines, err := FormatAll(preds)
	if err != nil {
		return "", fmt.Errorf("PredicateSetHash: %w", err)
	}
	return hashLines(DomainPredicateSet, lines), nil
}

// DerivationHash computes an ID for an ordered list of derived predicate
// text. Order matters: the closure is deterministic, so replays must match
// position for position.
func DerivationHash(derived []string) string {
	return hashOrdered(DomainDerivation, derived)
}

func hashLines(domain string, lines []string) string {
	sorted := slices.Clone(lines)
	slices.Sort(sorted)
	return hashOrdered(domain, sorted)
}

func hashOrdered(domain string, lines []string) string {
	var buf []byte
	for _, l := range lines {
		buf = append(buf, l...)
		buf = append(buf, '\n')
	}
	return hashWithDomain(domain, buf)
}
