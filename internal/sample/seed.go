// Package sample implements the random process samplers behind the simulator:
// Poisson arrival times, transaction amounts, feature vectors and fraud
// detection latencies.
//
// Every sampler is a pure function of its arguments. It takes an explicit
// sample count (or derives one from the arrival window) and an explicit seed,
// owns its random stream for the duration of the call, and returns identical
// output for identical input.
package sample

import (
	"encoding/binary"
	"math/rand/v2"

	"github.com/spaolacci/murmur3"
)

// SeedStrategy selects how one configured seed is spread over the samplers.
type SeedStrategy string

const (
	// SplitSeeds derives an independent stream per (class, sampler) pair.
	SplitSeeds SeedStrategy = "split"
	// SharedSeed feeds the configured seed to every sampler unchanged, so
	// draws within one generation call are correlated.
	SharedSeed SeedStrategy = "shared"
)

// Stream names used when deriving sub-seeds.
const (
	StreamArrivals  = "arrivals"
	StreamAmounts   = "amounts"
	StreamFeatures  = "features"
	StreamLatencies = "latencies"
)

// pcgIncrement is the fixed second PCG word; only the first word varies with the seed.
const pcgIncrement = 0xda3e39cb94b95bdb

// DeriveSeed maps a seed and a stream path to a new seed. It is a pure
// function: the same inputs always produce the same output, and distinct
// paths produce unrelated seeds.
func DeriveSeed(seed uint64, path ...string) uint64 {
	h := murmur3.New128()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], seed)
	h.Write(buf[:])
	for _, p := range path {
		h.Write([]byte{0})
		h.Write([]byte(p))
	}
	h1, _ := h.Sum128()
	return h1
}

// SeedFor returns the seed a sampler should use under the given strategy.
func (s SeedStrategy) SeedFor(seed uint64, class, stream string) uint64 {
	if s == SharedSeed {
		return seed
	}
	return DeriveSeed(seed, class, stream)
}

// newSource returns a fresh PCG stream for a seed.
func newSource(seed uint64) *rand.PCG {
	return rand.NewPCG(seed, pcgIncrement)
}
