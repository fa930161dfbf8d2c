package vault

import "math/rand"

// RNG wraps a deterministic math/rand source for the decoder's combination
// sampling role (spec.md §5: this role may be non-cryptographic but must be
// reseedable for tests). It must never be shared with the secret-polynomial
// or OPRF-blinding roles, which need a cryptographic source instead.
type RNG struct {
	r *rand.Rand
}

// NewRNG builds an RNG seeded deterministically, for reproducible tests.
func NewRNG(seed int64) *RNG {
	return &RNG{r: rand.New(rand.NewSource(seed))}
}

// Intn returns a random int in [0,n).
func (g *RNG) Intn(n int) int {
	return g.r.Intn(n)
}
