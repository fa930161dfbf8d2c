// Package vault implements the fuzzy-vault construction (spec.md §4.2):
// locking a secret polynomial behind a biometric multiset, and recovering
// it with a randomised list-decoder when a fresh template overlaps the
// enrolment template in at least tau positions.
package vault

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"sort"

	"github.com/MaxWarman/BRAKE/field"
)

// ErrDecodeFailure is returned when no candidate polynomial appears after
// the full round budget (spec.md §4.2.2, §7).
var ErrDecodeFailure = errors.New("vault: decode failure, no candidate after round budget")

// ErrCancelled is returned when an external cancellation channel fires
// during Unlock (spec.md §5).
var ErrCancelled = errors.New("vault: unlock cancelled")

// DefaultRounds is the decoder round budget used when a caller does not
// override it (spec.md §4.2.2).
const DefaultRounds = 5000

// GenerateSecretPolynomial samples a fresh tau-coefficient secret polynomial
// f (degree tau-1): the leading coefficient (index tau-1) is uniform in
// [1,q-1], every other coefficient uniform in [0,q-1]. This matches the
// decoder's own arithmetic (UnlockContext samples tau-point combinations and
// lagrangeInterpolate returns exactly tau coefficients, spec.md §4.2.2
// "Interpolation details": "projected back to Poly by taking the tau
// low-order coefficients") so a decoded f̂ can actually equal f — see
// DESIGN.md's secret-polynomial-length decision. This consumes the
// "secret-polynomial sampling" RNG role, which spec.md §5 requires to be
// cryptographic.
func GenerateSecretPolynomial(g field.Group, tau int) (field.Poly, error) {
	if tau <= 0 {
		return field.Poly{}, fmt.Errorf("vault: GenerateSecretPolynomial: tau must be >= 1, got %d", tau)
	}
	q := g.Order()
	coef := make([]*big.Int, tau)
	for i := 0; i < tau; i++ {
		upper := new(big.Int).Sub(q, big.NewInt(1)) // q-1, exclusive upper bound for rand.Int
		if i == tau-1 {
			// leading coefficient: uniform in [1, q-1]
			v, err := rand.Int(rand.Reader, upper) // [0, q-2]
			if err != nil {
				return field.Poly{}, fmt.Errorf("vault: GenerateSecretPolynomial: %w", err)
			}
			coef[i] = v.Add(v, big.NewInt(1)) // shift to [1, q-1]
			continue
		}
		v, err := rand.Int(rand.Reader, q) // [0, q-1]
		if err != nil {
			return field.Poly{}, fmt.Errorf("vault: GenerateSecretPolynomial: %w", err)
		}
		coef[i] = v
	}
	return field.NewPoly(g, coef), nil
}

// Lock computes V = (prod_{b in T}(x-b)) + f over g (spec.md §4.2.1).
func Lock(g field.Group, template []*big.Int, secret field.Poly) (field.Poly, error) {
	chaff := field.One(g)
	for _, b := range template {
		factor := field.NewPoly(g, []*big.Int{new(big.Int).Neg(b), big.NewInt(1)})
		var err error
		chaff, err = chaff.Mul(factor)
		if err != nil {
			return field.Poly{}, fmt.Errorf("vault: Lock: %w", err)
		}
	}
	v, err := chaff.Add(secret)
	if err != nil {
		return field.Poly{}, fmt.Errorf("vault: Lock: %w", err)
	}
	return v, nil
}

// Unlock runs the randomised list-decoder (spec.md §4.2.2) with the
// caller's round budget and no cancellation channel.
func Unlock(g field.Group, v field.Poly, template []*big.Int, tau, rounds int, rng *RNG) (field.Poly, error) {
	return UnlockContext(context.Background(), g, v, template, tau, rounds, rng)
}

// UnlockContext is Unlock, honouring ctx cancellation between rounds
// (spec.md §5). On cancellation it returns ErrCancelled and no partial
// state.
func UnlockContext(ctx context.Context, g field.Group, v field.Poly, template []*big.Int, tau, rounds int, rng *RNG) (field.Poly, error) {
	n := len(template)
	if tau <= 0 || tau > n {
		return field.Poly{}, fmt.Errorf("vault: Unlock: invalid tau=%d for template length %d", tau, n)
	}
	q := g.Order()

	total := binomial(n, tau)
	roundsBig := big.NewInt(int64(rounds))
	var combos func(yield func([]int) bool)
	if total.Cmp(roundsBig) <= 0 {
		all := enumerateCombinations(n, tau)
		combos = func(yield func([]int) bool) {
			for _, c := range all {
				if !yield(c) {
					return
				}
			}
		}
	} else {
		seen := make(map[string]bool, rounds)
		combos = func(yield func([]int) bool) {
			for len(seen) < rounds {
				c := sampleCombination(n, tau, rng)
				key := combinationKey(c)
				if seen[key] {
					continue
				}
				seen[key] = true
				if !yield(c) {
					return
				}
			}
		}
	}

	freq := make(map[string]int)
	best := map[string][]*big.Int{}

	process := func(idx []int) error {
		xs := make([]*big.Int, tau)
		ys := make([]*big.Int, tau)
		for i, at := range idx {
			xs[i] = template[at]
			ys[i] = v.Eval(xs[i])
		}
		coeffs, err := lagrangeInterpolate(q, xs, ys)
		if err != nil {
			if errors.Is(err, ErrDegenerateInterpolation) {
				return nil // per spec.md §7: silently skipped, core to the decoder
			}
			return err
		}
		key := coeffVectorKey(coeffs)
		freq[key]++
		best[key] = coeffs
		return nil
	}

	var procErr error
	combos(func(idx []int) bool {
		select {
		case <-ctx.Done():
			procErr = ErrCancelled
			return false
		default:
		}
		if err := process(idx); err != nil {
			procErr = err
			return false
		}
		return true
	})
	if procErr != nil {
		return field.Poly{}, procErr
	}

	if len(freq) == 0 {
		return field.Poly{}, ErrDecodeFailure
	}

	winner := pickWinner(freq, best, q)
	return field.NewPoly(g, winner), nil
}

// coeffVectorKey renders a zero-padded tau-length coefficient vector as a
// frequency-map key.
func coeffVectorKey(coeffs []*big.Int) string {
	s := ""
	for i, c := range coeffs {
		if i > 0 {
			s += ","
		}
		s += c.String()
	}
	return s
}

// pickWinner returns the coefficient vector with the highest frequency,
// breaking ties by lexicographically smallest vector (spec.md §4.2.2 step
// 4: "implementers free to choose any stated rule").
func pickWinner(freq map[string]int, best map[string][]*big.Int, q *big.Int) []*big.Int {
	keys := make([]string, 0, len(freq))
	for k := range freq {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ci, cj := best[keys[i]], best[keys[j]]
		for k := range ci {
			if cmp := ci[k].Cmp(cj[k]); cmp != 0 {
				return cmp < 0
			}
		}
		return false
	})
	bestKey := keys[0]
	bestCount := freq[bestKey]
	for _, k := range keys[1:] {
		if freq[k] > bestCount {
			bestKey = k
			bestCount = freq[k]
		}
	}
	return best[bestKey]
}
