// Package field implements arithmetic over Z_q[x] for a prime q, the
// scalar field the fuzzy vault, OPRF and keygen layers are built on.
package field

import (
	"errors"
	"fmt"
	"math/big"
)

// ErrInvalidField is returned when Group is constructed with a non-prime order.
var ErrInvalidField = errors.New("field: order is not prime")

// ErrFieldMismatch is returned when an operation mixes polynomials from
// different groups.
var ErrFieldMismatch = errors.New("field: mismatched group order")

// Group describes the prime field Z_q a Poly's coefficients live in.
// It is an immutable descriptor: constructing one never mutates q.
type Group struct {
	q *big.Int
}

// NewGroup builds a Group of order q. q must be prime (probabilistically,
// via big.Int.ProbablyPrime), matching the design note that field arithmetic
// must not assume a 64-bit ceiling: q may be anywhere from small test values
// (12401) up to 256-bit OPRF moduli.
func NewGroup(q *big.Int) (Group, error) {
	if q == nil || q.Sign() <= 0 || !q.ProbablyPrime(20) {
		return Group{}, fmt.Errorf("field.NewGroup(%v): %w", q, ErrInvalidField)
	}
	return Group{q: new(big.Int).Set(q)}, nil
}

// MustGroup is NewGroup for call sites that have already validated q
// (tests, CLI flag parsing after its own checks).
func MustGroup(q *big.Int) Group {
	g, err := NewGroup(q)
	if err != nil {
		panic(err)
	}
	return g
}

// Order returns q.
func (g Group) Order() *big.Int { return new(big.Int).Set(g.q) }

// Equal reports whether two groups share the same order.
func (g Group) Equal(other Group) bool {
	return g.q != nil && other.q != nil && g.q.Cmp(other.q) == 0
}

func (g Group) reduce(v *big.Int) *big.Int {
	r := new(big.Int).Mod(v, g.q)
	return r
}

// sameGroup checks two groups match, wrapping ErrFieldMismatch with the
// caller-supplied operation name.
func sameGroup(op string, a, b Group) error {
	if !a.Equal(b) {
		return fmt.Errorf("field: %s: %w", op, ErrFieldMismatch)
	}
	return nil
}
