package cairo

import (
	"github.com/cairn-zk/cairn/channel"
	"github.com/cairn-zk/cairn/components/addrtoid"
	"github.com/cairn-zk/cairn/components/idtovalue"
	"github.com/cairn-zk/cairn/components/rc99"
	"github.com/cairn-zk/cairn/components/rcbuiltin"
	"github.com/cairn-zk/cairn/components/retop"
	"github.com/cairn-zk/cairn/felt"
	"github.com/cairn-zk/cairn/stark"
	"github.com/cairn-zk/cairn/vm"
)

// PublicMemoryEntry is one publicly known memory cell.
type PublicMemoryEntry struct {
	Address uint32
	Value   felt.Felt
}

// PublicData carries the public inputs of one execution: the program cells
// and the boundary states of the machine.
type PublicData struct {
	PublicMemory []PublicMemoryEntry
	InitialState vm.State
	FinalState   vm.State
}

// Claim aggregates the public claims of every component of one run. The
// field order is the canonical component order: every transcript absorption
// and every column declaration enumerates components exactly this way, and
// both sides build their component sets in it.
type Claim struct {
	Public PublicData

	Ret               []retop.Claim
	RangeCheckBuiltin rcbuiltin.Claim
	MemoryAddrToID    addrtoid.Claim
	MemoryIDToValue   idtovalue.Claim
	RangeCheck99      rc99.Claim
}

// MixInto absorbs every component claim into the transcript in component
// order, the ret count first so the claim stream is self delimiting.
//
// TODO: the public data is not absorbed; binding it to the transcript needs
// the accompanying soundness argument before this can change.
func (c *Claim) MixInto(ch *channel.Channel) {
	ch.MixU64(uint64(len(c.Ret)))
	for i := range c.Ret {
		c.Ret[i].MixInto(ch)
	}
	c.RangeCheckBuiltin.MixInto(ch)
	c.MemoryAddrToID.MixInto(ch)
	c.MemoryIDToValue.MixInto(ch)
	c.RangeCheck99.MixInto(ch)
}

// LogSizes concatenates the column declarations of every component, in
// component order.
func (c *Claim) LogSizes() stark.TreeColLogSizes {
	var sizes stark.TreeColLogSizes
	for i := range c.Ret {
		sizes.Append(c.Ret[i].LogSizes())
	}
	sizes.Append(c.RangeCheckBuiltin.LogSizes())
	sizes.Append(c.MemoryAddrToID.LogSizes())
	sizes.Append(c.MemoryIDToValue.LogSizes())
	sizes.Append(c.RangeCheck99.LogSizes())
	return sizes
}
