// Package addrtoid implements the memory address to id table. Memory
// consumers look addresses up through the addrToID relation; this component
// supplies every (address, id) pair with the multiplicity of its uses. Ids
// coincide with addresses, so the tuple supplied at row r is (r, r) and the
// committed base trace is a single multiplicity column.
package addrtoid

import (
	"sync"

	"github.com/cairn-zk/cairn/channel"
	"github.com/cairn-zk/cairn/field/m31"
	"github.com/cairn-zk/cairn/field/qm31"
	"github.com/cairn-zk/cairn/lookup"
	"github.com/cairn-zk/cairn/stark"
)

// NumChains is the number of running sum chains in the interaction trace.
const NumChains = 1

const numBaseColumns = 1

// ClaimGenerator counts, per address, how many times the rest of the trace
// consumes the addrToID relation. It is safe for concurrent registration.
type ClaimGenerator struct {
	mu        sync.Mutex
	counts    []uint32
	finalized bool
}

// NewClaimGenerator returns an empty collector.
func NewClaimGenerator() *ClaimGenerator {
	return &ClaimGenerator{}
}

// Register records one lookup of addr.
func (g *ClaimGenerator) Register(addr uint32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.finalized {
		panic("addrtoid: register after trace write")
	}
	if n := int(addr) + 1; n > len(g.counts) {
		g.counts = append(g.counts, make([]uint32, n-len(g.counts))...)
	}
	g.counts[addr]++
}

// WriteTrace freezes the registrations, appends the multiplicity column to
// the base tree and returns the claim together with the interaction phase
// generator.
func (g *ClaimGenerator) WriteTrace(tb *stark.TreeBuilder) (Claim, *InteractionClaimGenerator) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.finalized {
		panic("addrtoid: trace already written")
	}
	g.finalized = true

	logSize := stark.NextLogSize(len(g.counts))
	mult := make([]m31.Element, 1<<logSize)
	for addr, c := range g.counts {
		mult[addr] = m31.New(c)
	}
	tb.Append(mult)

	return Claim{LogSize: logSize}, &InteractionClaimGenerator{logSize: logSize, mult: mult}
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

// InteractionClaimGenerator writes the running sum chain once the relation
// elements are known.
type InteractionClaimGenerator struct {
	logSize uint32
	mult    []m31.Element
}

// WriteInteractionTrace emits -multiplicity/(r + alpha*r - z) at every row,
// appends the chain columns to the interaction tree and returns the claim.
func (g *InteractionClaimGenerator) WriteInteractionTrace(tb *stark.TreeBuilder, addrToID *lookup.Elements) lookup.InteractionClaim {
	chain := lookup.NewChain(g.logSize, 1)
	for r := uint32(0); r < uint32(len(g.mult)); r++ {
		num := qm31.FromM31(g.mult[r])
		num.Neg(&num)
		rr := m31.New(r)
		chain.Set(0, r, num, addrToID.Combine(rr, rr))
	}
	cols, total := chain.Finalize()
	tb.Append(cols...)
	return lookup.NewInteractionClaim([]qm31.Element{total})
}

// Component replays the table's constraints at sampled rows.
type Component struct {
	claim    Claim
	span     stark.ComponentSpan
	addrToID lookup.Elements
	total    qm31.Element
}

// NewComponent allocates the component's columns and binds the claims.
func NewComponent(alloc *stark.TraceLocationAllocator, claim Claim, addrToID lookup.Elements, ic lookup.InteractionClaim) *Component {
	return &Component{
		claim:    claim,
		span:     alloc.Alloc(numBaseColumns, NumChains*qm31.Limbs),
		addrToID: addrToID,
		total:    ic.ChainSums[0],
	}
}

// LogSize returns the component's domain height.
func (c *Component) LogSize() uint32 { return c.claim.LogSize }

// TraceLocation returns the allocated column ranges.
func (c *Component) TraceLocation() stark.ComponentSpan { return c.span }

// EvaluateConstraints checks the chain step. The supplied tuple is rebuilt
// from the sampled row index, so the prover has no freedom over it.
func (c *Component) EvaluateConstraints(e *stark.PointEvaluator) {
	rr := m31.New(e.Row())
	den := c.addrToID.Combine(rr, rr)
	num := qm31.FromM31(e.Base(0, stark.OffsetCurrent))
	num.Neg(&num)

	sCur := e.Interaction(0, stark.OffsetCurrent)
	sPrev := e.Interaction(0, stark.OffsetPrev)
	res := lookup.StepResidual1(&sCur, &sPrev, &c.total, e.IsFirst(stark.OffsetCurrent), &num, &den)
	e.AddConstraint(&res)
}

// EvaluateDomain sweeps the full domain.
func (c *Component) EvaluateDomain(tr *stark.Trace, acc *stark.DomainAccumulator) {
	stark.EvaluateByRow(c, tr, acc)
}
