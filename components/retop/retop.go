// Package retop implements the return opcode component. One enabled row per
// executed ret proves, through the two memory relations, that the cell at
// the recorded pc holds the canonical ret encoding.
package retop

import (
	"github.com/cairn-zk/cairn/channel"
	"github.com/cairn-zk/cairn/components/addrtoid"
	"github.com/cairn-zk/cairn/components/idtovalue"
	"github.com/cairn-zk/cairn/felt"
	"github.com/cairn-zk/cairn/field/m31"
	"github.com/cairn-zk/cairn/field/qm31"
	"github.com/cairn-zk/cairn/lookup"
	"github.com/cairn-zk/cairn/stark"
	"github.com/cairn-zk/cairn/vm"
)

// NumChains is the number of running sum chains in the interaction trace.
const NumChains = 1

const (
	colEnable = iota
	colPc
	colID

	numBaseColumns
)

// retLimbs is the limb decomposition every enabled row must resolve its id
// to.
var retLimbs = func() [felt.NumLimbs]m31.Element {
	w := vm.RetEncoding.Word()
	return w.Split()
}()

// ClaimGenerator holds the ret states recorded by the runner.
type ClaimGenerator struct {
	rets []vm.State
}

// NewClaimGenerator returns a generator over the recorded ret states.
func NewClaimGenerator(rets []vm.State) *ClaimGenerator {
	return &ClaimGenerator{rets: rets}
}

// WriteTrace appends the enable, pc and id columns to the base tree and
// registers every enabled pc with both memory collectors.
func (g *ClaimGenerator) WriteTrace(tb *stark.TreeBuilder, addrGen *addrtoid.ClaimGenerator, idGen *idtovalue.ClaimGenerator) (Claim, *InteractionClaimGenerator) {
	logSize := stark.NextLogSize(len(g.rets))
	n := 1 << logSize

	enable := make([]m31.Element, n)
	pc := make([]m31.Element, n)
	id := make([]m31.Element, n)
	for i, st := range g.rets {
		enable[i] = m31.One()
		pc[i] = m31.New(st.Pc)
		id[i] = m31.New(st.Pc)
		addrGen.Register(st.Pc)
		idGen.Register(st.Pc)
	}
	tb.Append(enable, pc, id)

	claim := Claim{LogSize: logSize, NbRets: uint32(len(g.rets))}
	return claim, &InteractionClaimGenerator{logSize: logSize, enable: enable, pc: pc, id: id}
}

// Claim is the public shape of the component.
type Claim struct {
	LogSize uint32
	NbRets  uint32
}

// MixInto absorbs the claim into the transcript.
func (c *Claim) MixInto(ch *channel.Channel) {
	ch.MixU64(uint64(c.LogSize))
	ch.MixU64(uint64(c.NbRets))
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
	pc      []m31.Element
	id      []m31.Element
}

// WriteInteractionTrace emits, per enabled row, one unit fraction against
// the address relation and one against the value relation, appends the
// chain columns to the interaction tree and returns the claim.
func (g *InteractionClaimGenerator) WriteInteractionTrace(tb *stark.TreeBuilder, addrToID, memoryIDToValue *lookup.Elements) lookup.InteractionClaim {
	chain := lookup.NewChain(g.logSize, 2)

	tuple := make([]m31.Element, 1+felt.NumLimbs)
	copy(tuple[1:], retLimbs[:])
	for r := 0; r < 1<<g.logSize; r++ {
		row := uint32(r)
		en := qm31.FromM31(g.enable[r])
		tuple[0] = g.id[r]
		chain.Set(0, row, en, addrToID.Combine(g.pc[r], g.id[r]))
		chain.Set(1, row, en, memoryIDToValue.Combine(tuple...))
	}

	cols, total := chain.Finalize()
	tb.Append(cols...)
	return lookup.NewInteractionClaim([]qm31.Element{total})
}

// Component replays the opcode's constraints at sampled rows.
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

// EvaluateConstraints checks that enable is boolean, that the enabled rows
// form a prefix of the trace, and that both lookups step their chain.
func (c *Component) EvaluateConstraints(e *stark.PointEvaluator) {
	enable := e.Base(colEnable, stark.OffsetCurrent)
	pc := e.Base(colPc, stark.OffsetCurrent)
	id := e.Base(colID, stark.OffsetCurrent)
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
	var gate, mono m31.Element
	gate.Sub(&one, &isFirstNext)
	mono.Mul(&enableNext, &notEnable)
	mono.Mul(&mono, &gate)
	res = qm31.FromM31(mono)
	e.AddConstraint(&res)

	num := qm31.FromM31(enable)
	denA := c.addrToID.Combine(pc, id)
	tuple := make([]m31.Element, 1+felt.NumLimbs)
	tuple[0] = id
	copy(tuple[1:], retLimbs[:])
	denV := c.memoryIDToValue.Combine(tuple...)

	sCur := e.Interaction(0, stark.OffsetCurrent)
	sPrev := e.Interaction(0, stark.OffsetPrev)
	step := lookup.StepResidual2(&sCur, &sPrev, &c.total, e.IsFirst(stark.OffsetCurrent), &num, &denA, &num, &denV)
	e.AddConstraint(&step)
}

// EvaluateDomain sweeps the full domain.
func (c *Component) EvaluateDomain(tr *stark.Trace, acc *stark.DomainAccumulator) {
	stark.EvaluateByRow(c, tr, acc)
}
