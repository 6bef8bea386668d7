// Package divergence estimates how dissimilar a sequence set is, using a
// fractional common k-mer distance over a bounded, seeded sample of pairs.
package divergence

import (
	"math/rand/v2"

	"github.com/dusk-indust/swiftalign/internal/msa"
	"github.com/shenwei356/kmers"
)

// Defaults used when an Estimator field is zero.
const (
	DefaultKNucleotide = 4
	DefaultKProtein    = 2
	DefaultMaxPairs    = 1000
	DefaultSeed        = 42
)

// Estimator computes a DivergenceScore. The zero value uses the defaults above.
type Estimator struct {
	KNucleotide int
	KProtein    int
	// MaxPairs bounds the number of pairs compared, keeping cost
	// sub-quadratic on large sets.
	MaxPairs int
	Seed     uint64
}

// Pair identifies two sequences by set index.
type Pair struct{ A, B int }

// Estimate returns the mean pairwise k-mer distance over the sampled pairs.
// It fails with ErrInsufficientData when the set has fewer than 2 sequences.
func (e Estimator) Estimate(set *msa.SequenceSet) (msa.DivergenceScore, error) {
	if set == nil || set.Len() < 2 {
		n := 0
		if set != nil {
			n = set.Len()
		}
		return 0, msa.InsufficientData("divergence", "need at least 2 sequences, got %d", n)
	}

	k := e.k(set.Type())
	pairs := e.Pairs(set.Len())

	profiles := make(map[int]profile)
	get := func(i int) profile {
		p, ok := profiles[i]
		if !ok {
			p = newProfile(set.At(i).Residues, k, set.Type())
			profiles[i] = p
		}
		return p
	}

	var sum float64
	for _, pr := range pairs {
		sum += distance(get(pr.A), get(pr.B), k)
	}
	return msa.DivergenceScore(sum / float64(len(pairs))), nil
}

// Pairs returns the pairs Estimate compares for a set of n sequences. All
// pairs are used when there are at most MaxPairs of them; otherwise MaxPairs
// pairs are drawn with a generator seeded from Seed.
func (e Estimator) Pairs(n int) []Pair {
	limit := e.MaxPairs
	if limit <= 0 {
		limit = DefaultMaxPairs
	}

	total := n * (n - 1) / 2
	if total <= limit {
		out := make([]Pair, 0, total)
		for a := 0; a < n; a++ {
			for b := a + 1; b < n; b++ {
				out = append(out, Pair{a, b})
			}
		}
		return out
	}

	seed := e.Seed
	if seed == 0 {
		seed = DefaultSeed
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	out := make([]Pair, limit)
	for i := range out {
		a := rng.IntN(n)
		b := rng.IntN(n - 1)
		if b >= a {
			b++
		}
		if a > b {
			a, b = b, a
		}
		out[i] = Pair{a, b}
	}
	return out
}

func (e Estimator) k(t msa.SeqType) int {
	if t == msa.Protein {
		if e.KProtein > 0 {
			return e.KProtein
		}
		return DefaultKProtein
	}
	if e.KNucleotide > 0 {
		return e.KNucleotide
	}
	return DefaultKNucleotide
}

// profile is a k-mer count table for one sequence.
type profile struct {
	residues string
	counts   map[uint64]int
}

func newProfile(residues string, k int, t msa.SeqType) profile {
	p := profile{residues: residues, counts: make(map[uint64]int)}
	if len(residues) < k {
		return p
	}
	b := []byte(residues)
	for i := 0; i+k <= len(b); i++ {
		code, ok := encode(b[i:i+k], t)
		if !ok {
			continue
		}
		p.counts[code]++
	}
	return p
}

// encode maps a k-mer to a key. Nucleotide k-mers use 2-bit encoding and are
// skipped when they contain ambiguous bases.
func encode(kmer []byte, t msa.SeqType) (uint64, bool) {
	if t == msa.Nucleotide {
		code, err := kmers.Encode(kmer)
		if err != nil {
			return 0, false
		}
		return code, true
	}
	if len(kmer) > 8 {
		return 0, false
	}
	var code uint64
	for _, c := range kmer {
		code = code<<8 | uint64(c)
	}
	return code, true
}

// distance is 1 - F, where F is the fraction of k-mers the shorter sequence
// shares with the other.
func distance(a, b profile, k int) float64 {
	shorter := min(len(a.residues), len(b.residues))
	if shorter < k {
		if a.residues == b.residues {
			return 0
		}
		return 1
	}

	small, large := a.counts, b.counts
	if len(small) > len(large) {
		small, large = large, small
	}
	shared := 0
	for code, n := range small {
		shared += min(n, large[code])
	}

	f := float64(shared) / float64(shorter-k+1)
	d := 1 - f
	switch {
	case d < 0:
		return 0
	case d > 1:
		return 1
	}
	return d
}
