package cairo

import (
	"github.com/cairn-zk/cairn/channel"
	"github.com/cairn-zk/cairn/field/qm31"
	"github.com/cairn-zk/cairn/lookup"
)

// InteractionClaim aggregates the running sum claims of every component, in
// component order.
type InteractionClaim struct {
	Ret               []lookup.InteractionClaim
	RangeCheckBuiltin lookup.InteractionClaim
	MemoryAddrToID    lookup.InteractionClaim
	MemoryIDToValue   lookup.InteractionClaim
	RangeCheck99      lookup.InteractionClaim
}

// MixInto absorbs every component's interaction claim into the transcript,
// in component order.
func (c *InteractionClaim) MixInto(ch *channel.Channel) {
	for i := range c.Ret {
		c.Ret[i].MixInto(ch)
	}
	c.RangeCheckBuiltin.MixInto(ch)
	c.MemoryAddrToID.MixInto(ch)
	c.MemoryIDToValue.MixInto(ch)
	c.RangeCheck99.MixInto(ch)
}

// Sum adds up every component's claimed sum.
func (c *InteractionClaim) Sum() qm31.Element {
	var sum qm31.Element
	for i := range c.Ret {
		sum.Add(&sum, &c.Ret[i].ClaimedSum)
	}
	sum.Add(&sum, &c.RangeCheckBuiltin.ClaimedSum)
	sum.Add(&sum, &c.MemoryAddrToID.ClaimedSum)
	sum.Add(&sum, &c.MemoryIDToValue.ClaimedSum)
	sum.Add(&sum, &c.RangeCheck99.ClaimedSum)
	return sum
}

// Consistent reports whether every component's claimed sum matches its own
// chain totals.
func (c *InteractionClaim) Consistent() bool {
	for i := range c.Ret {
		if !c.Ret[i].Consistent() {
			return false
		}
	}
	return c.RangeCheckBuiltin.Consistent() &&
		c.MemoryAddrToID.Consistent() &&
		c.MemoryIDToValue.Consistent() &&
		c.RangeCheck99.Consistent()
}
