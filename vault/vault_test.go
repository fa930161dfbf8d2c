package vault

import (
	"math/big"
	"math/rand"
	"testing"

	"github.com/MaxWarman/BRAKE/field"
)

func bigs(vs ...int64) []*big.Int {
	out := make([]*big.Int, len(vs))
	for i, v := range vs {
		out[i] = big.NewInt(v)
	}
	return out
}

// TestRoundTripDeterministic is spec.md §8 scenario 6: with a fixed RNG
// seed and a tau-prefix overlap, unlock must return exactly the f used at
// lock.
func TestRoundTripDeterministic(t *testing.T) {
	g := field.MustGroup(big.NewInt(12401))
	tau := 4
	template := bigs(3, 1, 4, 1, 5, 9, 2, 6)

	secret := field.NewPoly(g, bigs(7, 0, 3, 5))
	v, err := Lock(g, template, secret)
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}

	rng := NewRNG(42)
	got, err := Unlock(g, v, template, tau, 5000, rng)
	if err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	if !got.Equal(secret) {
		t.Fatalf("Unlock() = %v, want %v", got.Coef, secret.Coef)
	}
}

// TestFuzzyVaultRoundTripProperty is spec.md §8's algebraic round-trip
// property: unlock(lock(f,T), T', tau, R=5000) == f with probability >=
// 0.99 over 100 trials when T' shares f's first tau positions with T.
func TestFuzzyVaultRoundTripProperty(t *testing.T) {
	q := big.NewInt(12401)
	g := field.MustGroup(q)
	tau := 8
	const length = 44
	const trials = 100

	successes := 0
	for trial := 0; trial < trials; trial++ {
		src := rand.New(rand.NewSource(int64(1000 + trial)))
		template := make([]*big.Int, length)
		for i := range template {
			template[i] = big.NewInt(int64(src.Intn(int(q.Int64()))))
		}
		coef := make([]*big.Int, tau)
		for i := 0; i < tau; i++ {
			coef[i] = big.NewInt(int64(1 + src.Intn(100)))
		}
		secret := field.NewPoly(g, coef)

		v, err := Lock(g, template, secret)
		if err != nil {
			t.Fatalf("Lock: %v", err)
		}

		verifyTemplate := make([]*big.Int, length)
		copy(verifyTemplate, template[:tau])
		for i := tau; i < length; i++ {
			verifyTemplate[i] = big.NewInt(int64(src.Intn(int(q.Int64()))))
		}

		rng := NewRNG(int64(trial))
		got, err := Unlock(g, v, verifyTemplate, tau, 5000, rng)
		if err == nil && got.Equal(secret) {
			successes++
		}
	}
	if successes < 99 {
		t.Fatalf("round-trip success rate too low: %d/100", successes)
	}
}

// TestDecoderMonotonicity is spec.md §8's "Decoder monotonicity" property:
// success probability is non-decreasing in overlap for fixed tau and R.
// With 20 trials per level the check tolerates sampling noise: it fails
// only if the rate drops by more than 0.35 from one overlap level to the
// next.
func TestDecoderMonotonicity(t *testing.T) {
	q := big.NewInt(12401)
	g := field.MustGroup(q)
	tau := 6
	const length = 30
	const trialsPerOverlap = 20

	successRate := func(overlap int) float64 {
		successes := 0
		for trial := 0; trial < trialsPerOverlap; trial++ {
			src := rand.New(rand.NewSource(int64(overlap*1000 + trial)))
			template := make([]*big.Int, length)
			for i := range template {
				template[i] = big.NewInt(int64(src.Intn(int(q.Int64()))))
			}
			coef := make([]*big.Int, tau)
			for i := 0; i < tau; i++ {
				coef[i] = big.NewInt(int64(1 + src.Intn(100)))
			}
			secret := field.NewPoly(g, coef)
			v, err := Lock(g, template, secret)
			if err != nil {
				t.Fatalf("Lock: %v", err)
			}

			verifyTemplate := make([]*big.Int, length)
			copy(verifyTemplate, template[:overlap])
			for i := overlap; i < length; i++ {
				verifyTemplate[i] = big.NewInt(int64(src.Intn(int(q.Int64()))))
			}

			rng := NewRNG(int64(trial))
			got, err := Unlock(g, v, verifyTemplate, tau, 2000, rng)
			if err == nil && got.Equal(secret) {
				successes++
			}
		}
		return float64(successes) / float64(trialsPerOverlap)
	}

	prevRate := -1.0
	for _, overlap := range []int{tau, tau + 6, tau + 12, length} {
		rate := successRate(overlap)
		if rate < prevRate-0.35 {
			t.Fatalf("success rate dropped sharply at overlap=%d: %f < %f-0.35", overlap, rate, prevRate)
		}
		prevRate = rate
	}
}

func TestUnlockFailsWithoutOverlap(t *testing.T) {
	g := field.MustGroup(big.NewInt(12401))
	tau := 8
	template := bigs(1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20,
		21, 22, 23, 24, 25, 26, 27, 28, 29, 30, 31, 32, 33, 34, 35, 36, 37, 38, 39, 40, 41, 42, 43, 44)
	coef := make([]*big.Int, tau)
	for i := range coef {
		coef[i] = big.NewInt(int64(i + 1))
	}
	secret := field.NewPoly(g, coef)
	v, err := Lock(g, template, secret)
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}

	verifyTemplate := bigs(201, 202, 203, 204, 205, 206, 207, 208, 209, 210, 211, 212, 213, 214, 215, 216,
		217, 218, 219, 220, 221, 222, 223, 224, 225, 226, 227, 228, 229, 230, 231, 232, 233, 234, 235, 236,
		237, 238, 239, 240, 241, 242, 243, 244)
	rng := NewRNG(7)
	got, err := Unlock(g, v, verifyTemplate, tau, 200, rng)
	if err == nil && got.Equal(secret) {
		t.Fatalf("expected unlock to fail without template overlap, got exact match")
	}
}

func TestGenerateSecretPolynomialDegree(t *testing.T) {
	g := field.MustGroup(big.NewInt(12401))
	p, err := GenerateSecretPolynomial(g, 8)
	if err != nil {
		t.Fatalf("GenerateSecretPolynomial: %v", err)
	}
	if p.Degree() != 7 {
		t.Fatalf("degree = %d, want 7", p.Degree())
	}
	if p.Coef[7].Sign() == 0 {
		t.Fatalf("leading coefficient must be nonzero")
	}
}
