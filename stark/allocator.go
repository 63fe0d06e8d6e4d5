package stark

// ColumnRange is a half open range of column indices inside one tree.
type ColumnRange struct {
	Start int
	End   int
}

// Len returns the number of columns in the range.
func (r ColumnRange) Len() int { return r.End - r.Start }

// ComponentSpan records where a component's columns live inside the committed
// trees.
type ComponentSpan struct {
	Base        ColumnRange
	Interaction ColumnRange
	// Constant is the index of the component's first row selector column in
	// the constant tree.
	Constant int
}

// TraceLocationAllocator assigns disjoint column ranges to components in
// registration order. The prover and the verifier build their component sets
// through allocators fed in the same fixed order, so both sides agree on the
// trace layout without it ever being serialized.
type TraceLocationAllocator struct {
	nextBase        int
	nextInteraction int
	nextComponent   int
}

// NewTraceLocationAllocator returns an empty allocator.
func NewTraceLocationAllocator() *TraceLocationAllocator {
	return &TraceLocationAllocator{}
}

// Alloc reserves nbBase base columns, nbInteraction interaction columns and
// one selector column for the next component.
func (a *TraceLocationAllocator) Alloc(nbBase, nbInteraction int) ComponentSpan {
	span := ComponentSpan{
		Base:        ColumnRange{Start: a.nextBase, End: a.nextBase + nbBase},
		Interaction: ColumnRange{Start: a.nextInteraction, End: a.nextInteraction + nbInteraction},
		Constant:    a.nextComponent,
	}
	a.nextBase += nbBase
	a.nextInteraction += nbInteraction
	a.nextComponent++
	return span
}

// NumComponents returns the number of components allocated so far.
func (a *TraceLocationAllocator) NumComponents() int { return a.nextComponent }

// NumColumns returns the total number of columns allocated in tree t.
func (a *TraceLocationAllocator) NumColumns(t int) int {
	switch t {
	case TreeBase:
		return a.nextBase
	case TreeInteraction:
		return a.nextInteraction
	case TreeConstant:
		return a.nextComponent
	}
	return 0
}
