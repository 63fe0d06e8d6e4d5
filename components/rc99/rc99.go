// Package rc99 implements the 9 bit pair range check table. Memory values
// are committed as 9 bit limbs, and nothing else bounds the committed limb
// columns. Consumers pin each adjacent limb pair to this table, whose rows
// enumerate every well formed pair exactly once, so a pair lookup bounds
// both limbs at once.
package rc99

import (
	"fmt"
	"sync"

	"github.com/cairn-zk/cairn/channel"
	"github.com/cairn-zk/cairn/felt"
	"github.com/cairn-zk/cairn/field/m31"
	"github.com/cairn-zk/cairn/field/qm31"
	"github.com/cairn-zk/cairn/lookup"
	"github.com/cairn-zk/cairn/stark"
)

const (
	// LogTableSize is the fixed log2 height of the pair table: one row per
	// (hi, lo) pair of limb values.
	LogTableSize = 2 * felt.LimbBits

	// NumChains is the number of running sum chains in the interaction
	// trace.
	NumChains = 1
)

const (
	limbBits = felt.LimbBits
	limbMask = 1<<limbBits - 1

	numBaseColumns = 1
)

// ClaimGenerator counts, per limb pair, how many times the rest of the trace
// checks it. It is safe for concurrent registration.
type ClaimGenerator struct {
	mu        sync.Mutex
	counts    []uint32
	finalized bool
}

// NewClaimGenerator returns a collector over the full pair table.
func NewClaimGenerator() *ClaimGenerator {
	return &ClaimGenerator{counts: make([]uint32, 1<<LogTableSize)}
}

// Register records one check of the limb pair (hi, lo).
func (g *ClaimGenerator) Register(hi, lo uint32) {
	if hi > limbMask || lo > limbMask {
		panic(fmt.Sprintf("rc99: limb pair (%d, %d) out of range", hi, lo))
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.finalized {
		panic("rc99: register after trace write")
	}
	g.counts[hi<<limbBits|lo]++
}

// WriteTrace freezes the registrations, appends the multiplicity column to
// the base tree and returns the claim together with the interaction phase
// generator.
func (g *ClaimGenerator) WriteTrace(tb *stark.TreeBuilder) (Claim, *InteractionClaimGenerator) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.finalized {
		panic("rc99: trace already written")
	}
	g.finalized = true

	mult := make([]m31.Element, len(g.counts))
	for r, c := range g.counts {
		mult[r] = m31.New(c)
	}
	tb.Append(mult)

	return Claim{LogSize: LogTableSize}, &InteractionClaimGenerator{mult: mult}
}

// Claim is the public shape of the component. LogSize always equals
// LogTableSize; it is carried so the claim declares its columns like every
// other one.
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
	mult []m31.Element
}

// WriteInteractionTrace emits -multiplicity/(hi + alpha*lo - z) at every
// row, appends the chain columns to the interaction tree and returns the
// claim.
func (g *InteractionClaimGenerator) WriteInteractionTrace(tb *stark.TreeBuilder, rangeCheck *lookup.Elements) lookup.InteractionClaim {
	chain := lookup.NewChain(LogTableSize, 1)
	for r := uint32(0); r < uint32(len(g.mult)); r++ {
		num := qm31.FromM31(g.mult[r])
		num.Neg(&num)
		den := rangeCheck.Combine(m31.New(r>>limbBits), m31.New(r&limbMask))
		chain.Set(0, r, num, den)
	}
	cols, total := chain.Finalize()
	tb.Append(cols...)
	return lookup.NewInteractionClaim([]qm31.Element{total})
}

// Component replays the table's constraints at sampled rows.
type Component struct {
	claim      Claim
	span       stark.ComponentSpan
	rangeCheck lookup.Elements
	total      qm31.Element
}

// NewComponent allocates the component's columns and binds the claims.
func NewComponent(alloc *stark.TraceLocationAllocator, claim Claim, rangeCheck lookup.Elements, ic lookup.InteractionClaim) *Component {
	return &Component{
		claim:      claim,
		span:       alloc.Alloc(numBaseColumns, NumChains*qm31.Limbs),
		rangeCheck: rangeCheck,
		total:      ic.ChainSums[0],
	}
}

// LogSize returns the component's domain height.
func (c *Component) LogSize() uint32 { return c.claim.LogSize }

// TraceLocation returns the allocated column ranges.
func (c *Component) TraceLocation() stark.ComponentSpan { return c.span }

// EvaluateConstraints checks the chain step. The pair is rebuilt from the
// sampled row index, so the prover has no freedom over it.
func (c *Component) EvaluateConstraints(e *stark.PointEvaluator) {
	r := e.Row()
	den := c.rangeCheck.Combine(m31.New(r>>limbBits), m31.New(r&limbMask))
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
