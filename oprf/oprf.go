// Package oprf implements the client/evaluator exchange of spec.md §4.3: a
// syntactic oblivious-pseudorandom-function shape (blind / evaluate /
// unblind) that turns the fuzzy vault's recovered secret polynomial into a
// deterministic per-user seed. As spec.md §9 documents, the unblind step
// preserved here adds q-1-r (q being the vault's field order) instead of
// subtracting r: r still cancels, but the seed comes out as H+k+q-1 mod m
// rather than H+k. This package reproduces that behaviour faithfully
// rather than silently changing it.
package oprf

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"

	"github.com/MaxWarman/BRAKE/field"
)

// ErrInvalidInput is returned when a hex string handed to Evaluate or
// Unblind cannot be parsed (spec.md §4.3.4, §7).
var ErrInvalidInput = errors.New("oprf: malformed hex input")

// Modulus is the fixed 256-bit blinding modulus m from spec.md §6.
var Modulus = mustHexBig("FFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFF43")

func mustHexBig(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 16)
	if !ok {
		panic("oprf: bad modulus literal")
	}
	return v
}

// HashPolynomial canonicalises f.Coef as a comma-joined decimal string and
// hashes it with SHA-256, reinterpreting the digest as a big integer H
// (spec.md §4.3.1). It is called on both the lock-time secret and the
// unlock-time recovered candidate, so it must accept coefficient vectors
// that still expose the decoder's zero-padding.
func HashPolynomial(p field.Poly) *big.Int {
	s := ""
	for i, c := range p.Coef {
		if i > 0 {
			s += ","
		}
		s += c.String()
	}
	digest := sha256.Sum256([]byte(s))
	return new(big.Int).SetBytes(digest[:])
}

// Client holds per-invocation OPRF blinding material: r, its modular
// inverse r^-1 mod m (asserted but, per spec.md §9, not the quantity
// actually used to unblind), and the fixed modulus m. A Client must not be
// reused across invocations or shared between goroutines (spec.md §5).
type Client struct {
	r    *big.Int
	rInv *big.Int
	m    *big.Int
}

// NewClient samples r uniformly in [2, m-1], rejecting samples with
// gcd(r,m) != 1, and computes r^-1 mod m via extended Euclid, asserting
// r*r^-1 ≡ 1 (mod m) (spec.md §4.3.2).
func NewClient() (*Client, error) {
	m := Modulus
	lower := big.NewInt(2)
	span := new(big.Int).Sub(m, lower) // upper bound for rand.Int is exclusive
	for {
		v, err := rand.Int(rand.Reader, span)
		if err != nil {
			return nil, fmt.Errorf("oprf: NewClient: %w", err)
		}
		r := v.Add(v, lower) // shift into [2, m-1]

		g, u, _ := extGCD(r, m)
		if g.Cmp(big.NewInt(1)) != 0 {
			continue
		}
		rInv := new(big.Int).Mod(u, m)
		check := new(big.Int).Mul(r, rInv)
		check.Mod(check, m)
		if check.Cmp(big.NewInt(1)) != 0 {
			continue
		}
		return &Client{r: r, rInv: rInv, m: m}, nil
	}
}

// extGCD returns (g, u, v) such that a*u + b*v = g = gcd(a,b).
func extGCD(a, b *big.Int) (g, u, v *big.Int) {
	g = new(big.Int)
	u = new(big.Int)
	v = new(big.Int)
	g.GCD(u, v, a, b)
	return
}

// Blind returns B = (H+r) mod m as a lowercase hex string without a "0x"
// prefix (spec.md §4.3.3).
func (c *Client) Blind(h *big.Int) string {
	b := new(big.Int).Add(h, c.r)
	b.Mod(b, c.m)
	return b.Text(16)
}

// Unblind computes the client's final seed S = (E + r̃) mod m where
// r̃ = q-1-r, per spec.md §4.3.3 — the source behaviour flagged in §9;
// q here is the fuzzy vault's field order, not the OPRF modulus m. The r
// added by Blind cancels, so S = H+k+q-1 mod m whatever r was sampled.
func (c *Client) Unblind(eHex string, q *big.Int) (string, error) {
	e, err := parseHex(eHex)
	if err != nil {
		return "", fmt.Errorf("oprf: Unblind: %w", err)
	}
	rTilde := new(big.Int).Sub(q, big.NewInt(1))
	rTilde.Sub(rTilde, c.r)
	s := new(big.Int).Add(e, rTilde)
	s.Mod(s, c.m)
	return s.Text(16), nil
}

// Evaluator holds the fixed secret key k (spec.md §4.3.4). It is a distinct
// trust domain: the client must never observe k, so Evaluator exposes only
// Evaluate.
type Evaluator struct {
	k *big.Int
	m *big.Int
}

// EvaluatorKeyFromLabel derives k = SHA-256(label) mod m (spec.md §6's
// k = SHA-256("evaluator_secret_key") mod m). It is injected as a
// parameter rather than hardwired so tests can substitute a different key
// (spec.md §9: "model it as an injected parameter").
func EvaluatorKeyFromLabel(label string) *big.Int {
	digest := sha256.Sum256([]byte(label))
	k := new(big.Int).SetBytes(digest[:])
	return k.Mod(k, Modulus)
}

// NewEvaluator builds an Evaluator for secret key k.
func NewEvaluator(k *big.Int) *Evaluator {
	return &Evaluator{k: new(big.Int).Mod(k, Modulus), m: Modulus}
}

// Evaluate computes E = (B+k) mod m, hex (spec.md §4.3.3-4.3.4).
func (e *Evaluator) Evaluate(bHex string) (string, error) {
	b, err := parseHex(bHex)
	if err != nil {
		return "", fmt.Errorf("oprf: Evaluate: %w", err)
	}
	out := new(big.Int).Add(b, e.k)
	out.Mod(out, e.m)
	return out.Text(16), nil
}

func parseHex(s string) (*big.Int, error) {
	b, err := hex.DecodeString(padEvenHex(s))
	if err != nil || len(s) == 0 {
		return nil, ErrInvalidInput
	}
	return new(big.Int).SetBytes(b), nil
}

// padEvenHex left-pads an odd-length hex string with a zero nibble so
// hex.DecodeString accepts it; big.Int.Text never emits a "0x" prefix but
// may emit an odd number of digits.
func padEvenHex(s string) string {
	if len(s)%2 == 1 {
		return "0" + s
	}
	return s
}
