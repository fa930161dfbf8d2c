package vault

import (
	"errors"
	"math/big"
)

// ErrDegenerateInterpolation signals that an unlock round sampled two
// coincident x-coordinates and must be skipped (spec.md §4.2.2 step 2).
var ErrDegenerateInterpolation = errors.New("vault: degenerate interpolation, duplicate x-coordinate")

// modInverse computes a^-1 mod q via Fermat's little theorem (a^(q-2)),
// which only holds for prime q and a not congruent to 0 mod q — the
// finite-field representation interpolation uses is independent of the
// field.Poly type on purpose (spec.md §4.2.2 "Interpolation details").
func modInverse(a, q *big.Int) (*big.Int, error) {
	a = new(big.Int).Mod(a, q)
	if a.Sign() == 0 {
		return nil, ErrDegenerateInterpolation
	}
	exp := new(big.Int).Sub(q, big.NewInt(2))
	return new(big.Int).Exp(a, exp, q), nil
}

// polyMulLinear multiplies coeffs (low-to-high) by (x - root) mod q.
func polyMulLinear(coeffs []*big.Int, root, q *big.Int) []*big.Int {
	out := make([]*big.Int, len(coeffs)+1)
	for i := range out {
		out[i] = big.NewInt(0)
	}
	negRoot := new(big.Int).Neg(root)
	negRoot.Mod(negRoot, q)
	tmp := new(big.Int)
	for i, c := range coeffs {
		// x * c contributes to out[i+1]
		out[i+1].Add(out[i+1], c)
		out[i+1].Mod(out[i+1], q)
		// -root * c contributes to out[i]
		tmp.Mul(c, negRoot)
		tmp.Mod(tmp, q)
		out[i].Add(out[i], tmp)
		out[i].Mod(out[i], q)
	}
	return out
}

// polyScaleAdd adds scalar*src into dst (both mod q, same length).
func polyScaleAdd(dst, src []*big.Int, scalar, q *big.Int) {
	tmp := new(big.Int)
	for i, c := range src {
		tmp.Mul(c, scalar)
		tmp.Mod(tmp, q)
		dst[i].Add(dst[i], tmp)
		dst[i].Mod(dst[i], q)
	}
}

// lagrangeInterpolate reconstructs the unique polynomial of degree < len(xs)
// passing through (xs[i], ys[i]) mod q, returning its coefficients
// low-to-high with length exactly len(xs) (not canonicalised: the leading
// coefficient may legitimately be zero, cf. spec.md §4.2.2 step 3). Fails
// with ErrDegenerateInterpolation if any two x-coordinates coincide.
func lagrangeInterpolate(q *big.Int, xs, ys []*big.Int) ([]*big.Int, error) {
	n := len(xs)
	result := make([]*big.Int, n)
	for i := range result {
		result[i] = big.NewInt(0)
	}

	for i := 0; i < n; i++ {
		numerator := []*big.Int{big.NewInt(1)}
		denom := big.NewInt(1)
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			diff := new(big.Int).Sub(xs[i], xs[j])
			diff.Mod(diff, q)
			if diff.Sign() == 0 {
				return nil, ErrDegenerateInterpolation
			}
			numerator = polyMulLinear(numerator, xs[j], q)
			denom.Mul(denom, diff)
			denom.Mod(denom, q)
		}
		invDenom, err := modInverse(denom, q)
		if err != nil {
			return nil, err
		}
		scalar := new(big.Int).Mul(ys[i], invDenom)
		scalar.Mod(scalar, q)
		polyScaleAdd(result, numerator, scalar, q)
	}
	return result, nil
}
