package field

import (
	"math/big"
)

// Poly is a polynomial over Z_q, coefficients stored low-to-high. The zero
// value is not valid; build one with NewPoly or the Zero/One constructors.
// Every exported constructor and arithmetic method restores the invariants
// spec.md pins down: every coefficient reduced mod q, trailing zeros
// stripped, and the zero polynomial canonicalised to the single coefficient
// [0].
type Poly struct {
	Group Group
	Coef  []*big.Int
}

// NewPoly builds a canonicalised Poly from coefficients low-to-high.
// Coefficients may be negative or >= q; they are reduced mod q.
func NewPoly(g Group, coef []*big.Int) Poly {
	c := make([]*big.Int, len(coef))
	for i, v := range coef {
		c[i] = g.reduce(v)
	}
	return Poly{Group: g, Coef: canonicalise(c)}
}

// canonicalise strips trailing zero coefficients, leaving at least one
// entry (the zero polynomial is represented as [0]).
func canonicalise(c []*big.Int) []*big.Int {
	i := len(c) - 1
	for i > 0 && c[i].Sign() == 0 {
		i--
	}
	return c[:i+1]
}

// Zero returns the additive identity over g.
func Zero(g Group) Poly {
	return Poly{Group: g, Coef: []*big.Int{big.NewInt(0)}}
}

// One returns the multiplicative identity over g.
func One(g Group) Poly {
	return Poly{Group: g, Coef: []*big.Int{big.NewInt(1)}}
}

// Degree returns the largest i with Coef[i] != 0, or 0 for the zero
// polynomial.
func (p Poly) Degree() int {
	return len(p.Coef) - 1
}

// pad returns p's coefficients zero-extended to length n.
func (p Poly) pad(n int) []*big.Int {
	out := make([]*big.Int, n)
	for i := 0; i < n; i++ {
		if i < len(p.Coef) {
			out[i] = p.Coef[i]
		} else {
			out[i] = big.NewInt(0)
		}
	}
	return out
}

// Add returns p+q. Mismatched groups fail with ErrFieldMismatch.
func (p Poly) Add(q Poly) (Poly, error) {
	if err := sameGroup("add", p.Group, q.Group); err != nil {
		return Poly{}, err
	}
	n := max(len(p.Coef), len(q.Coef))
	pc, qc := p.pad(n), q.pad(n)
	out := make([]*big.Int, n)
	for i := 0; i < n; i++ {
		out[i] = new(big.Int).Add(pc[i], qc[i])
	}
	return NewPoly(p.Group, out), nil
}

// Sub returns p-q. Mismatched groups fail with ErrFieldMismatch.
func (p Poly) Sub(q Poly) (Poly, error) {
	if err := sameGroup("sub", p.Group, q.Group); err != nil {
		return Poly{}, err
	}
	n := max(len(p.Coef), len(q.Coef))
	pc, qc := p.pad(n), q.pad(n)
	out := make([]*big.Int, n)
	for i := 0; i < n; i++ {
		out[i] = new(big.Int).Sub(pc[i], qc[i])
	}
	return NewPoly(p.Group, out), nil
}

// Neg returns the additive inverse of p.
func (p Poly) Neg() Poly {
	out := make([]*big.Int, len(p.Coef))
	for i, c := range p.Coef {
		out[i] = new(big.Int).Neg(c)
	}
	return NewPoly(p.Group, out)
}

// Mul returns p*q via the schoolbook product (length deg(p)+deg(q)+1),
// reducing every accumulated term mod q so intermediates stay bounded
// (spec.md §4.1 multiplication tie-break).
func (p Poly) Mul(q Poly) (Poly, error) {
	if err := sameGroup("mul", p.Group, q.Group); err != nil {
		return Poly{}, err
	}
	n := len(p.Coef) + len(q.Coef) - 1
	out := make([]*big.Int, n)
	for i := range out {
		out[i] = big.NewInt(0)
	}
	tmp := new(big.Int)
	for i, a := range p.Coef {
		if a.Sign() == 0 {
			continue
		}
		for j, b := range q.Coef {
			tmp.Mul(a, b)
			out[i+j].Add(out[i+j], tmp)
			out[i+j].Mod(out[i+j], p.Group.q)
		}
	}
	return NewPoly(p.Group, out), nil
}

// Eval computes sum(a_i * x^i) mod q using per-term modular exponentiation.
// Poly=0 evaluates to 0; x=0 returns the constant term.
func (p Poly) Eval(x *big.Int) *big.Int {
	result := big.NewInt(0)
	xi := big.NewInt(1)
	term := new(big.Int)
	for i, a := range p.Coef {
		if i > 0 {
			xi.Mul(xi, x)
			xi.Mod(xi, p.Group.q)
		}
		term.Mul(a, xi)
		term.Mod(term, p.Group.q)
		result.Add(result, term)
		result.Mod(result, p.Group.q)
	}
	return result
}

// Equal reports whether p and q are the same group and, after
// canonicalisation, coefficient-wise equal.
func (p Poly) Equal(q Poly) bool {
	if !p.Group.Equal(q.Group) {
		return false
	}
	if len(p.Coef) != len(q.Coef) {
		return false
	}
	for i := range p.Coef {
		if p.Coef[i].Cmp(q.Coef[i]) != 0 {
			return false
		}
	}
	return true
}

// CoefInts returns the coefficients as int64, low-to-high, for callers
// (JSON profile export) that need a plain-integer view. It panics if a
// coefficient does not fit in an int64 — groups used for the public
// vault polynomial are expected to stay within that range per spec.md §3.
func (p Poly) CoefInts() []int64 {
	out := make([]int64, len(p.Coef))
	for i, c := range p.Coef {
		if !c.IsInt64() {
			panic("field: CoefInts: coefficient does not fit in int64")
		}
		out[i] = c.Int64()
	}
	return out
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
