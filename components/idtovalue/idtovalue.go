// Package idtovalue implements the memory id to value table. Each row
// supplies the value of one memory cell, decomposed into 9 bit limbs, under
// the idToValue relation; consumers combine (id, limbs) and the single
// supplier row per id is what makes memory single valued. The committed limb
// columns are bounded by pinning each adjacent pair to the 9 bit pair table.
package idtovalue

import (
	"sync"

	"github.com/cairn-zk/cairn/channel"
	"github.com/cairn-zk/cairn/components/rc99"
	"github.com/cairn-zk/cairn/felt"
	"github.com/cairn-zk/cairn/field/m31"
	"github.com/cairn-zk/cairn/field/qm31"
	"github.com/cairn-zk/cairn/input"
	"github.com/cairn-zk/cairn/lookup"
	"github.com/cairn-zk/cairn/stark"
)

// NumChains is the number of running sum chains in the interaction trace.
// The memory fraction shares the first chain with the first limb pair; the
// remaining pairs fill the rest, two per chain, one left over.
const NumChains = 8

const (
	numPairs       = felt.NumLimbs / 2
	numBaseColumns = felt.NumLimbs + 1

	colMult = felt.NumLimbs
)

// ClaimGenerator counts, per id, how many times the rest of the trace
// resolves it to a value. It is safe for concurrent registration.
type ClaimGenerator struct {
	mu        sync.Mutex
	mem       *input.Memory
	counts    []uint32
	finalized bool
}

// NewClaimGenerator returns a collector over the given memory.
func NewClaimGenerator(mem *input.Memory) *ClaimGenerator {
	return &ClaimGenerator{mem: mem}
}

// Register records one resolution of id.
func (g *ClaimGenerator) Register(id uint32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.finalized {
		panic("idtovalue: register after trace write")
	}
	if n := int(id) + 1; n > len(g.counts) {
		g.counts = append(g.counts, make([]uint32, n-len(g.counts))...)
	}
	g.counts[id]++
}

// WriteTrace freezes the registrations and appends the limb and multiplicity
// columns to the base tree. The table covers every written memory cell even
// when nothing looked it up, so public memory rows always exist. Every limb
// pair of every row is registered with the pair table.
func (g *ClaimGenerator) WriteTrace(tb *stark.TreeBuilder, rcGen *rc99.ClaimGenerator) (Claim, *InteractionClaimGenerator) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.finalized {
		panic("idtovalue: trace already written")
	}
	g.finalized = true

	rows := len(g.counts)
	if n := int(g.mem.MaxAddress()) + 1; n > rows {
		rows = n
	}
	logSize := stark.NextLogSize(rows)
	n := 1 << logSize

	limbs := make([][]m31.Element, felt.NumLimbs)
	for i := range limbs {
		limbs[i] = make([]m31.Element, n)
	}
	mult := make([]m31.Element, n)

	for r := 0; r < n; r++ {
		v := g.mem.At(uint32(r))
		split := v.Split()
		for i, l := range split {
			limbs[i][r] = l
		}
		for p := 0; p < numPairs; p++ {
			rcGen.Register(split[2*p].Uint32(), split[2*p+1].Uint32())
		}
	}
	for id, c := range g.counts {
		mult[id] = m31.New(c)
	}

	tb.Append(limbs...)
	tb.Append(mult)

	return Claim{LogSize: logSize}, &InteractionClaimGenerator{logSize: logSize, limbs: limbs, mult: mult}
}

// Claim is the public shape of the component.
type Claim struct {
	LogSize uint32
}

// MixInto absorbs the claim into the transcript.
func (c *Claim) MixInto(ch *channel.Channel) {
	ch.MixU64(uint64(c.LogSize))
}

// LogSizes declares the component's columns.
func (c *Claim) LogSizes() stark.TreeColLogSizes {
	return stark.UniformSizes(c.LogSize, numBaseColumns, NumChains*qm31.Limbs)
}

// InteractionClaimGenerator writes the running sum chains once the relation
// elements are known.
type InteractionClaimGenerator struct {
	logSize uint32
	limbs   [][]m31.Element
	mult    []m31.Element
}

// WriteInteractionTrace emits, per row, -multiplicity over the combined
// (id, limbs) tuple plus one unit fraction per limb pair, appends the chain
// columns to the interaction tree and returns the claim.
func (g *InteractionClaimGenerator) WriteInteractionTrace(tb *stark.TreeBuilder, memoryIDToValue, rangeCheck *lookup.Elements) lookup.InteractionClaim {
	one := qm31.One()
	chains := make([]*lookup.Chain, NumChains)
	for k := 0; k < NumChains-1; k++ {
		chains[k] = lookup.NewChain(g.logSize, 2)
	}
	chains[NumChains-1] = lookup.NewChain(g.logSize, 1)

	pairDen := func(p, r int) qm31.Element {
		return rangeCheck.Combine(g.limbs[2*p][r], g.limbs[2*p+1][r])
	}

	tuple := make([]m31.Element, 1+felt.NumLimbs)
	for r := 0; r < 1<<g.logSize; r++ {
		row := uint32(r)
		tuple[0] = m31.New(row)
		for i := 0; i < felt.NumLimbs; i++ {
			tuple[1+i] = g.limbs[i][r]
		}
		num := qm31.FromM31(g.mult[r])
		num.Neg(&num)

		chains[0].Set(0, row, num, memoryIDToValue.Combine(tuple...))
		chains[0].Set(1, row, one, pairDen(0, r))
		for k := 1; k <= 6; k++ {
			chains[k].Set(0, row, one, pairDen(2*k-1, r))
			chains[k].Set(1, row, one, pairDen(2*k, r))
		}
		chains[7].Set(0, row, one, pairDen(numPairs-1, r))
	}

	sums := make([]qm31.Element, NumChains)
	for k, c := range chains {
		cols, total := c.Finalize()
		tb.Append(cols...)
		sums[k] = total
	}
	return lookup.NewInteractionClaim(sums)
}

// Component replays the table's constraints at sampled rows.
type Component struct {
	claim           Claim
	span            stark.ComponentSpan
	memoryIDToValue lookup.Elements
	rangeCheck      lookup.Elements
	totals          [NumChains]qm31.Element
}

// NewComponent allocates the component's columns and binds the claims.
func NewComponent(alloc *stark.TraceLocationAllocator, claim Claim, memoryIDToValue, rangeCheck lookup.Elements, ic lookup.InteractionClaim) *Component {
	c := &Component{
		claim:           claim,
		span:            alloc.Alloc(numBaseColumns, NumChains*qm31.Limbs),
		memoryIDToValue: memoryIDToValue,
		rangeCheck:      rangeCheck,
	}
	copy(c.totals[:], ic.ChainSums)
	return c
}

// LogSize returns the component's domain height.
func (c *Component) LogSize() uint32 { return c.claim.LogSize }

// TraceLocation returns the allocated column ranges.
func (c *Component) TraceLocation() stark.ComponentSpan { return c.span }

// EvaluateConstraints checks one chain step per chain. The supplied id is
// rebuilt from the sampled row index; the limb values come from the
// committed base columns, exactly as the interaction writer read them.
func (c *Component) EvaluateConstraints(e *stark.PointEvaluator) {
	var limbs [felt.NumLimbs]m31.Element
	for i := range limbs {
		limbs[i] = e.Base(i, stark.OffsetCurrent)
	}

	tuple := make([]m31.Element, 0, 1+felt.NumLimbs)
	tuple = append(tuple, m31.New(e.Row()))
	tuple = append(tuple, limbs[:]...)
	denMem := c.memoryIDToValue.Combine(tuple...)
	numMem := qm31.FromM31(e.Base(colMult, stark.OffsetCurrent))
	numMem.Neg(&numMem)

	one := qm31.One()
	isFirst := e.IsFirst(stark.OffsetCurrent)
	pairDen := func(p int) qm31.Element {
		return c.rangeCheck.Combine(limbs[2*p], limbs[2*p+1])
	}

	sCur := e.Interaction(0, stark.OffsetCurrent)
	sPrev := e.Interaction(0, stark.OffsetPrev)
	d := pairDen(0)
	res := lookup.StepResidual2(&sCur, &sPrev, &c.totals[0], isFirst, &numMem, &denMem, &one, &d)
	e.AddConstraint(&res)

	for k := 1; k <= 6; k++ {
		sCur = e.Interaction(k, stark.OffsetCurrent)
		sPrev = e.Interaction(k, stark.OffsetPrev)
		da := pairDen(2*k - 1)
		db := pairDen(2 * k)
		res = lookup.StepResidual2(&sCur, &sPrev, &c.totals[k], isFirst, &one, &da, &one, &db)
		e.AddConstraint(&res)
	}

	sCur = e.Interaction(NumChains-1, stark.OffsetCurrent)
	sPrev = e.Interaction(NumChains-1, stark.OffsetPrev)
	d = pairDen(numPairs - 1)
	res = lookup.StepResidual1(&sCur, &sPrev, &c.totals[NumChains-1], isFirst, &one, &d)
	e.AddConstraint(&res)
}

// EvaluateDomain sweeps the full domain.
func (c *Component) EvaluateDomain(tr *stark.Trace, acc *stark.DomainAccumulator) {
	stark.EvaluateByRow(c, tr, acc)
}
