package cairo

import (
	"github.com/cairn-zk/cairn/felt"
	"github.com/cairn-zk/cairn/field/m31"
	"github.com/cairn-zk/cairn/field/qm31"
)

// LookupSumValid reports whether the global logup sum closes: the claimed
// totals of every component, plus one unit fraction per public memory entry
// against the idToValue relation, must cancel to zero. Every value a
// component consumes from a shared table has to be supplied, with matching
// multiplicity, by that table; the public entries are the terms the verifier
// contributes itself. The prover asserts this in debug builds, the verifier
// rejects on failure before replaying any constraint.
func LookupSumValid(claim *Claim, elements *InteractionElements, ic *InteractionClaim) bool {
	dens := make([]qm31.Element, len(claim.Public.PublicMemory))
	tuple := make([]m31.Element, 1+felt.NumLimbs)
	for i := range claim.Public.PublicMemory {
		entry := &claim.Public.PublicMemory[i]
		limbs := entry.Value.Split()
		tuple[0] = m31.New(entry.Address)
		copy(tuple[1:], limbs[:])
		dens[i] = elements.MemoryIDToValue.Combine(tuple...)
	}
	inv := qm31.BatchInvert(dens)

	sum := ic.Sum()
	for i := range inv {
		sum.Add(&sum, &inv[i])
	}
	return sum.IsZero()
}
