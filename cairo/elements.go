package cairo

import (
	"github.com/cairn-zk/cairn/channel"
	"github.com/cairn-zk/cairn/lookup"
)

// InteractionElements holds the relation elements of the three logup
// relations. They are drawn once per run, after the base trace commitment,
// and never serialized: both sides recompute them from the transcript.
type InteractionElements struct {
	MemoryAddrToID  lookup.Elements
	MemoryIDToValue lookup.Elements
	RangeCheck99    lookup.Elements
}

// DrawInteractionElements draws every relation's elements from the
// transcript, in relation order.
func DrawInteractionElements(ch *channel.Channel) InteractionElements {
	var e InteractionElements
	e.MemoryAddrToID = lookup.DrawElements(ch)
	e.MemoryIDToValue = lookup.DrawElements(ch)
	e.RangeCheck99 = lookup.DrawElements(ch)
	return e
}
