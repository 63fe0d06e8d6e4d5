package stark

import (
	"sync"

	"github.com/cairn-zk/cairn/field/m31"
	"github.com/cairn-zk/cairn/field/qm31"
	"github.com/cairn-zk/cairn/internal/parallel"
)

// Offsets into the sampled row neighborhood. Every constraint is expressed
// over the values of a row, its cyclic predecessor and its cyclic successor.
const (
	OffsetPrev = iota
	OffsetCurrent
	OffsetNext
	NumOffsets
)

// Component is the verifiable view of a trace component: enough to replay its
// constraints at a sampled row.
type Component interface {
	// LogSize is the log2 height of the component's columns.
	LogSize() uint32

	// TraceLocation returns the column ranges assigned by the shared
	// allocator at construction.
	TraceLocation() ComponentSpan

	// EvaluateConstraints reads the sampled row through e and feeds every
	// constraint residual to e.AddConstraint, always in the same order.
	EvaluateConstraints(e *PointEvaluator)
}

// ComponentProver is the provable view: it can additionally sweep its full
// trace to confirm every constraint holds at every row.
type ComponentProver interface {
	Component

	// EvaluateDomain evaluates the constraints at every row of the
	// component's own domain, recording failures into acc. An honest trace
	// records nothing.
	EvaluateDomain(tr *Trace, acc *DomainAccumulator)
}

// Trace is the prover side view of the committed columns, tree by tree.
type Trace struct {
	Trees [NumTrees][][]m31.Element
}

// ConstraintFailure locates the first violated constraint found by a sweep.
type ConstraintFailure struct {
	Row        uint32
	Constraint int
}

// DomainAccumulator collects constraint failures from a concurrent sweep.
type DomainAccumulator struct {
	mu       sync.Mutex
	failures []ConstraintFailure
}

func (a *DomainAccumulator) record(row uint32, constraint int) {
	a.mu.Lock()
	a.failures = append(a.failures, ConstraintFailure{Row: row, Constraint: constraint})
	a.mu.Unlock()
}

// Failure returns the failure with the lowest row, or nil if the sweep was
// clean.
func (a *DomainAccumulator) Failure() *ConstraintFailure {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.failures) == 0 {
		return nil
	}
	best := a.failures[0]
	for _, f := range a.failures[1:] {
		if f.Row < best.Row {
			best = f
		}
	}
	return &best
}

// PointEvaluator gives a component access to its own columns at one sampled
// row and accumulates the alpha batched constraint residuals.
type PointEvaluator struct {
	row     uint32
	base    [][NumOffsets]m31.Element
	inter   [][NumOffsets]m31.Element
	isFirst [NumOffsets]m31.Element

	alpha qm31.Element
	acc   qm31.Element
	pow   qm31.Element

	strict           bool
	failedConstraint int
	count            int
}

func newPointEvaluator(nbBase, nbInteraction int, alpha qm31.Element) *PointEvaluator {
	return &PointEvaluator{
		base:  make([][NumOffsets]m31.Element, nbBase),
		inter: make([][NumOffsets]m31.Element, nbInteraction),
		alpha: alpha,
	}
}

// reset prepares the evaluator for a new row, seeding the running batching
// power with pow.
func (e *PointEvaluator) reset(pow qm31.Element) {
	e.acc.SetZero()
	e.pow = pow
	e.failedConstraint = -1
	e.count = 0
}

// Row returns the sampled row index in the component's own domain.
func (e *PointEvaluator) Row() uint32 { return e.row }

// Base returns the value of the component's base column col at the given
// offset.
func (e *PointEvaluator) Base(col, offset int) m31.Element {
	return e.base[col][offset]
}

// Interaction returns the extension field value of logup chain column chain
// at the given offset, packed from its 4 base columns.
func (e *PointEvaluator) Interaction(chain, offset int) qm31.Element {
	return qm31.FromM31s(
		e.inter[4*chain][offset],
		e.inter[4*chain+1][offset],
		e.inter[4*chain+2][offset],
		e.inter[4*chain+3][offset],
	)
}

// IsFirst returns the first row selector at the given offset.
func (e *PointEvaluator) IsFirst(offset int) m31.Element {
	return e.isFirst[offset]
}

// AddConstraint feeds one constraint residual into the running batch.
func (e *PointEvaluator) AddConstraint(v *qm31.Element) {
	if e.strict && e.failedConstraint < 0 && !v.IsZero() {
		e.failedConstraint = e.count
	}
	var t qm31.Element
	t.Mul(&e.pow, v)
	e.acc.Add(&e.acc, &t)
	e.pow.Mul(&e.pow, &e.alpha)
	e.count++
}

// loadFromTrace fills the evaluator buffers with the neighborhood of row in
// the component's columns.
func (e *PointEvaluator) loadFromTrace(tr *Trace, span ComponentSpan, logSize, row uint32) {
	n := uint32(1) << logSize
	prev := (row + n - 1) & (n - 1)
	next := (row + 1) & (n - 1)
	e.row = row

	for i := 0; i < span.Base.Len(); i++ {
		col := tr.Trees[TreeBase][span.Base.Start+i]
		e.base[i] = [NumOffsets]m31.Element{col[prev], col[row], col[next]}
	}
	for i := 0; i < span.Interaction.Len(); i++ {
		col := tr.Trees[TreeInteraction][span.Interaction.Start+i]
		e.inter[i] = [NumOffsets]m31.Element{col[prev], col[row], col[next]}
	}
	col := tr.Trees[TreeConstant][span.Constant]
	e.isFirst = [NumOffsets]m31.Element{col[prev], col[row], col[next]}
}

// EvaluateByRow is the generic full domain sweep used by component provers:
// it checks every constraint of c individually at every row.
func EvaluateByRow(c Component, tr *Trace, acc *DomainAccumulator) {
	span := c.TraceLocation()
	logSize := c.LogSize()
	n := 1 << logSize

	parallel.Execute(n, func(start, end int) {
		e := newPointEvaluator(span.Base.Len(), span.Interaction.Len(), qm31.One())
		e.strict = true
		for r := start; r < end; r++ {
			e.loadFromTrace(tr, span, logSize, uint32(r))
			e.reset(qm31.One())
			c.EvaluateConstraints(e)
			if e.failedConstraint >= 0 {
				acc.record(uint32(r), e.failedConstraint)
				return
			}
		}
	})
}
