// Package selector implements deterministic daily selection of two halachot
// from different volumes, backed by the cache hierarchy and the Sefaria client.
package selector

import (
	"crypto/sha256"
	"encoding/binary"
	"math/rand"
	"time"
)

// DateSeed returns the ISO-8601 date string used as the selection seed.
func DateSeed(day time.Time) string {
	return day.Format("2006-01-02")
}

// SeedFromString derives a reproducible integer seed by hashing the input
// with SHA-256 and taking the first 8 bytes as an unsigned integer. Hashing
// avoids the bias and short-period problems of seeding from ordinal dates.
func SeedFromString(input string) uint64 {
	digest := sha256.Sum256([]byte(input))

	return binary.BigEndian.Uint64(digest[:8])
}

// NewRand returns a PRNG seeded from the given string. The same input always
// yields the same stream, across processes and machines.
func NewRand(input string) *rand.Rand {
	return rand.New(rand.NewSource(int64(SeedFromString(input))))
}
