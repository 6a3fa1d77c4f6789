// Package rng derives deterministic random generators scoped to one
// example and one purpose. Re-running generation for the same example ID
// is bit-reproducible, and two different random decisions for the same
// example (e.g. offset sampling vs. channel selection) never share a
// stream. No global random state is consulted anywhere.
package rng

import (
	"crypto/sha256"
	"encoding/binary"
	"math/rand/v2"
)

// ForExample returns a generator seeded from the example ID and a purpose
// label. The NUL separator keeps ("ab","c") and ("a","bc") distinct.
func ForExample(exampleID, purpose string) *rand.Rand {
	h := sha256.New()
	h.Write([]byte(exampleID))
	h.Write([]byte{0})
	h.Write([]byte(purpose))
	sum := h.Sum(nil)

	seed1 := binary.LittleEndian.Uint64(sum[0:8])
	seed2 := binary.LittleEndian.Uint64(sum[8:16])
	return rand.New(rand.NewPCG(seed1, seed2))
}
