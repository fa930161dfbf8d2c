package vault

import (
	"math/big"
	"sort"
	"strconv"
	"strings"
)

// binomial returns C(n,k) as a big.Int, 0 if k<0 or k>n.
func binomial(n, k int) *big.Int {
	if k < 0 || k > n {
		return big.NewInt(0)
	}
	return new(big.Int).Binomial(int64(n), int64(k))
}

// combinationKey renders a sorted index tuple as a cache key for
// distinctness checks, avoiding re-sampling or re-enumerating the same
// combination twice within a decode run.
func combinationKey(idx []int) string {
	parts := make([]string, len(idx))
	for i, v := range idx {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

// enumerateCombinations yields every size-k sorted subset of {0,...,n-1}
// (used when the combinatorial universe is smaller than the round budget).
func enumerateCombinations(n, k int) [][]int {
	if k == 0 {
		return [][]int{{}}
	}
	if k > n {
		return nil
	}
	idx := make([]int, k)
	for i := range idx {
		idx[i] = i
	}
	var out [][]int
	for {
		cp := append([]int(nil), idx...)
		out = append(out, cp)

		i := k - 1
		for i >= 0 && idx[i] == n-k+i {
			i--
		}
		if i < 0 {
			break
		}
		idx[i]++
		for j := i + 1; j < k; j++ {
			idx[j] = idx[j-1] + 1
		}
	}
	return out
}

// sampleCombination draws one size-k sorted subset of {0,...,n-1} uniformly
// at random (via a fixed-size reservoir-style draw from rng), rejecting
// samples that duplicate positions within the same draw.
func sampleCombination(n, k int, rng *RNG) []int {
	seen := make(map[int]bool, k)
	idx := make([]int, 0, k)
	for len(idx) < k {
		v := rng.Intn(n)
		if seen[v] {
			continue
		}
		seen[v] = true
		idx = append(idx, v)
	}
	sort.Ints(idx)
	return idx
}
