package lookup

import (
	"github.com/cairn-zk/cairn/channel"
	"github.com/cairn-zk/cairn/field/qm31"
)

// InteractionClaim is the public outcome of one component's interaction
// phase: the total of each of its running sum chains, and their sum.
type InteractionClaim struct {
	ClaimedSum qm31.Element
	ChainSums  []qm31.Element
}

// NewInteractionClaim sums the chain totals into the claimed sum.
func NewInteractionClaim(chainSums []qm31.Element) InteractionClaim {
	c := InteractionClaim{ChainSums: chainSums}
	for i := range chainSums {
		c.ClaimedSum.Add(&c.ClaimedSum, &chainSums[i])
	}
	return c
}

// Consistent reports whether the claimed sum equals the sum of the chain
// totals. The verifier rejects inconsistent claims before replaying any
// constraint.
func (c *InteractionClaim) Consistent() bool {
	var sum qm31.Element
	for i := range c.ChainSums {
		sum.Add(&sum, &c.ChainSums[i])
	}
	return sum.Equal(&c.ClaimedSum)
}

// MixInto absorbs the claim into the transcript, claimed sum first.
func (c *InteractionClaim) MixInto(ch *channel.Channel) {
	felts := make([]qm31.Element, 0, 1+len(c.ChainSums))
	felts = append(felts, c.ClaimedSum)
	felts = append(felts, c.ChainSums...)
	ch.MixFelts(felts...)
}
