// Package rcbuiltin implements the range check builtin segment component.
// Every cell of the segment is proved to hold a value below 2^128: the
// component commits its own limb copy of each cell, ties it to memory
// through the two memory relations, and constrains the high limbs directly.
package rcbuiltin

import (
	"github.com/cairn-zk/cairn/channel"
	"github.com/cairn-zk/cairn/components/addrtoid"
	"github.com/cairn-zk/cairn/components/idtovalue"
	"github.com/cairn-zk/cairn/felt"
	"github.com/cairn-zk/cairn/field/m31"
	"github.com/cairn-zk/cairn/field/qm31"
	"github.com/cairn-zk/cairn/input"
	"github.com/cairn-zk/cairn/lookup"
	"github.com/cairn-zk/cairn/stark"
)

// NumChains is the number of running sum chains in the interaction trace.
const NumChains = 1

const (
	colEnable = iota
	colAddr
	colID
	colLimb0

	numBaseColumns = colLimb0 + felt.NumLimbs
)

// A value below 2^128 fills 14 limbs; bits 126 and 127 land in the low two
// bits of limb 14, everything above must vanish.
const (
	topLimb      = 14
	topLimbBound = 4
)

// ClaimGenerator holds the builtin segment recorded by the runner.
type ClaimGenerator struct {
	seg input.Segment
	mem *input.Memory
}

// NewClaimGenerator returns a generator over the given segment.
func NewClaimGenerator(seg input.Segment, mem *input.Memory) *ClaimGenerator {
	return &ClaimGenerator{seg: seg, mem: mem}
}

// WriteTrace appends the enable, addr, id and limb columns to the base tree
// and registers every segment address with both memory collectors.
func (g *ClaimGenerator) WriteTrace(tb *stark.TreeBuilder, addrGen *addrtoid.ClaimGenerator, idGen *idtovalue.ClaimGenerator) (Claim, *InteractionClaimGenerator) {
	logSize := stark.NextLogSize(int(g.seg.Size))
	n := 1 << logSize

	enable := make([]m31.Element, n)
	addr := make([]m31.Element, n)
	id := make([]m31.Element, n)
	limbs := make([][]m31.Element, felt.NumLimbs)
	for i := range limbs {
		limbs[i] = make([]m31.Element, n)
	}

	for i := uint32(0); i < g.seg.Size; i++ {
		a := g.seg.Start + i
		enable[i] = m31.One()
		addr[i] = m31.New(a)
		id[i] = m31.New(a)
		v := g.mem.At(a)
		split := v.Split()
		for j, l := range split {
			limbs[j][i] = l
		}
		addrGen.Register(a)
		idGen.Register(a)
	}

	tb.Append(enable, addr, id)
	tb.Append(limbs...)

	claim := Claim{LogSize: logSize, SegmentStart: g.seg.Start, NbCells: g.seg.Size}
	return claim, &InteractionClaimGenerator{logSize: logSize, enable: enable, addr: addr, id: id, limbs: limbs}
}

// Claim is the public shape of the component.
type Claim struct {
	LogSize      uint32
	SegmentStart uint32
	NbCells      uint32
}

// MixInto absorbs the claim into the transcript.
func (c *Claim) MixInto(ch *channel.Channel) {
	ch.MixU64(uint64(c.LogSize))
	ch.MixU64(uint64(c.SegmentStart))
	ch.MixU64(uint64(c.NbCells))
}

// LogSizes declares the component's columns.
func (c *Claim) LogSizes() stark.TreeColLogSizes {
	return stark.UniformSizes(c.LogSize, numBaseColumns, NumChains*qm31.Limbs)
}

// InteractionClaimGenerator writes the running sum chain once the relation
// elements are known.
type InteractionClaimGenerator struct {
	logSize uint32
	enable  []m31.Element
	addr    []m31.Element
	id      []m31.Element
	limbs   [][]m31.Element
}

// WriteInteractionTrace emits, per enabled row, one unit fraction against
// the address relation and one against the value relation, appends the
// chain columns to the interaction tree and returns the claim.
func (g *InteractionClaimGenerator) WriteInteractionTrace(tb *stark.TreeBuilder, addrToID, memoryIDToValue *lookup.Elements) lookup.InteractionClaim {
	chain := lookup.NewChain(g.logSize, 2)

	tuple := make([]m31.Element, 1+felt.NumLimbs)
	for r := 0; r < 1<<g.logSize; r++ {
		row := uint32(r)
		en := qm31.FromM31(g.enable[r])
		tuple[0] = g.id[r]
		for i := 0; i < felt.NumLimbs; i++ {
			tuple[1+i] = g.limbs[i][r]
		}
		chain.Set(0, row, en, addrToID.Combine(g.addr[r], g.id[r]))
		chain.Set(1, row, en, memoryIDToValue.Combine(tuple...))
	}

	cols, total := chain.Finalize()
	tb.Append(cols...)
	return lookup.NewInteractionClaim([]qm31.Element{total})
}

// Component replays the builtin's constraints at sampled rows.
type Component struct {
	claim           Claim
	span            stark.ComponentSpan
	addrToID        lookup.Elements
	memoryIDToValue lookup.Elements
	total           qm31.Element
}

// NewComponent allocates the component's columns and binds the claims.
func NewComponent(alloc *stark.TraceLocationAllocator, claim Claim, addrToID, memoryIDToValue lookup.Elements, ic lookup.InteractionClaim) *Component {
	return &Component{
		claim:           claim,
		span:            alloc.Alloc(numBaseColumns, NumChains*qm31.Limbs),
		addrToID:        addrToID,
		memoryIDToValue: memoryIDToValue,
		total:           ic.ChainSums[0],
	}
}

// LogSize returns the component's domain height.
func (c *Component) LogSize() uint32 { return c.claim.LogSize }

// TraceLocation returns the allocated column ranges.
func (c *Component) TraceLocation() stark.ComponentSpan { return c.span }

// EvaluateConstraints checks that enable is boolean and covers a prefix,
// that the enabled addresses walk the segment contiguously from its start,
// that the high limbs bound the value below 2^128, and that both lookups
// step the chain.
func (c *Component) EvaluateConstraints(e *stark.PointEvaluator) {
	enable := e.Base(colEnable, stark.OffsetCurrent)
	addr := e.Base(colAddr, stark.OffsetCurrent)
	id := e.Base(colID, stark.OffsetCurrent)
	var limbs [felt.NumLimbs]m31.Element
	for i := range limbs {
		limbs[i] = e.Base(colLimb0+i, stark.OffsetCurrent)
	}
	one := m31.One()

	var notEnable m31.Element
	notEnable.Sub(&one, &enable)

	var b m31.Element
	b.Mul(&enable, &notEnable)
	res := qm31.FromM31(b)
	e.AddConstraint(&res)

	// A disabled row is never followed by an enabled one, except across the
	// wrap back to row zero.
	enableNext := e.Base(colEnable, stark.OffsetNext)
	isFirstNext := e.IsFirst(stark.OffsetNext)
	var notFirstNext, mono m31.Element
	notFirstNext.Sub(&one, &isFirstNext)
	mono.Mul(&enableNext, &notEnable)
	mono.Mul(&mono, &notFirstNext)
	res = qm31.FromM31(mono)
	e.AddConstraint(&res)

	// Each enabled row after the first continues the segment at the next
	// address.
	addrNext := e.Base(colAddr, stark.OffsetNext)
	var step m31.Element
	step.Sub(&addrNext, &addr)
	step.Sub(&step, &one)
	step.Mul(&step, &enableNext)
	step.Mul(&step, &notFirstNext)
	res = qm31.FromM31(step)
	e.AddConstraint(&res)

	// The first enabled row starts the segment.
	isFirst := e.IsFirst(stark.OffsetCurrent)
	segStart := m31.New(c.claim.SegmentStart)
	var anchor m31.Element
	anchor.Sub(&addr, &segStart)
	anchor.Mul(&anchor, &enable)
	anchor.Mul(&anchor, &isFirst)
	res = qm31.FromM31(anchor)
	e.AddConstraint(&res)

	// Limb 14 carries at most two bits.
	top := limbs[topLimb]
	var quartic, factor m31.Element
	quartic.Set(&top)
	for k := uint32(1); k < topLimbBound; k++ {
		kk := m31.New(k)
		factor.Sub(&top, &kk)
		quartic.Mul(&quartic, &factor)
	}
	res = qm31.FromM31(quartic)
	e.AddConstraint(&res)

	// Everything above limb 14 vanishes.
	for i := topLimb + 1; i < felt.NumLimbs; i++ {
		res = qm31.FromM31(limbs[i])
		e.AddConstraint(&res)
	}

	num := qm31.FromM31(enable)
	denA := c.addrToID.Combine(addr, id)
	tuple := make([]m31.Element, 0, 1+felt.NumLimbs)
	tuple = append(tuple, id)
	tuple = append(tuple, limbs[:]...)
	denV := c.memoryIDToValue.Combine(tuple...)

	sCur := e.Interaction(0, stark.OffsetCurrent)
	sPrev := e.Interaction(0, stark.OffsetPrev)
	chainRes := lookup.StepResidual2(&sCur, &sPrev, &c.total, isFirst, &num, &denA, &num, &denV)
	e.AddConstraint(&chainRes)
}

// EvaluateDomain sweeps the full domain.
func (c *Component) EvaluateDomain(tr *stark.Trace, acc *stark.DomainAccumulator) {
	stark.EvaluateByRow(c, tr, acc)
}
