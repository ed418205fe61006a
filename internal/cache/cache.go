// Package cache provides the two-tier verification cache: a fast ephemeral
// memory tier and a durable verified-index tier with status-dependent
// expiry, used to skip redundant existence and verification work across
// orders.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
)

// Key generates the cache/dedup key for a (citation, proposition) pair.
// The citation must already be normalized so equivalent spellings share an
// entry.
func Key(normalizedCitation, proposition string) string {
	hash := sha256.Sum256([]byte(normalizedCitation + "|" + proposition))
	return "citeguard:v1:" + hex.EncodeToString(hash[:])
}

// ExistenceKey generates the cache key for a bare existence lookup.
func ExistenceKey(normalizedCitation string) string {
	hash := sha256.Sum256([]byte(normalizedCitation))
	return "citeguard:exist:v1:" + hex.EncodeToString(hash[:])
}
