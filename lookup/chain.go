package lookup

import (
	"fmt"

	"github.com/cairn-zk/cairn/field/m31"
	"github.com/cairn-zk/cairn/field/qm31"
)

// Chain accumulates the fractions of one running sum column. A chain holds
// one or two fraction slots per row; wider components spread their fractions
// over several chains so that the step constraint stays low degree.
type Chain struct {
	n    int
	nums [][]qm31.Element
	dens [][]qm31.Element
}

// NewChain returns an empty chain of 1<<logSize rows with nbSlots fraction
// slots per row. Unset slots contribute nothing to the sum.
func NewChain(logSize uint32, nbSlots int) *Chain {
	if nbSlots < 1 || nbSlots > 2 {
		panic(fmt.Sprintf("lookup: chain with %d slots per row", nbSlots))
	}
	n := 1 << logSize
	c := &Chain{
		n:    n,
		nums: make([][]qm31.Element, nbSlots),
		dens: make([][]qm31.Element, nbSlots),
	}
	for s := 0; s < nbSlots; s++ {
		c.nums[s] = make([]qm31.Element, n)
		c.dens[s] = make([]qm31.Element, n)
	}
	return c
}

// Set records the fraction num/den of one slot at one row. A zero numerator
// cancels the slot whatever the denominator holds.
func (c *Chain) Set(slot int, row uint32, num, den qm31.Element) {
	c.nums[slot][row] = num
	c.dens[slot][row] = den
}

// Finalize builds the cyclic running sum of all fractions and returns its 4
// base limb columns together with the total, which is the value the sum
// wraps back from at row 0.
func (c *Chain) Finalize() ([][]m31.Element, qm31.Element) {
	flat := make([]qm31.Element, 0, len(c.dens)*c.n)
	for _, d := range c.dens {
		flat = append(flat, d...)
	}
	inv := qm31.BatchInvert(flat)

	var sum qm31.Element
	col := make([]qm31.Element, c.n)
	for r := 0; r < c.n; r++ {
		for s := range c.nums {
			var t qm31.Element
			t.Mul(&c.nums[s][r], &inv[s*c.n+r])
			sum.Add(&sum, &t)
		}
		col[r] = sum
	}
	return SecureColumns(col), sum
}

// SecureColumns splits an extension field column into its 4 base field limb
// columns, in limb order.
func SecureColumns(col []qm31.Element) [][]m31.Element {
	cols := make([][]m31.Element, qm31.Limbs)
	for i := range cols {
		cols[i] = make([]m31.Element, len(col))
	}
	for r := range col {
		for i := 0; i < qm31.Limbs; i++ {
			cols[i][r] = col[r][i]
		}
	}
	return cols
}

// StepResidual1 is the cleared step constraint of a single slot chain:
//
//	(S[cur] - S[prev] + isFirst*total) * den - num
//
// It vanishes on every row of an honest column, including the wrap at row 0
// where the total folds back in.
func StepResidual1(sCur, sPrev, total *qm31.Element, isFirst m31.Element, num, den *qm31.Element) qm31.Element {
	var delta, fold qm31.Element
	delta.Sub(sCur, sPrev)
	fold.MulByM31(total, isFirst)
	delta.Add(&delta, &fold)
	delta.Mul(&delta, den)
	delta.Sub(&delta, num)
	return delta
}

// StepResidual2 is the cleared step constraint of a two slot chain:
//
//	(S[cur] - S[prev] + isFirst*total) * d1*d2 - (n1*d2 + n2*d1)
func StepResidual2(sCur, sPrev, total *qm31.Element, isFirst m31.Element, n1, d1, n2, d2 *qm31.Element) qm31.Element {
	var delta, fold, dd, t qm31.Element
	delta.Sub(sCur, sPrev)
	fold.MulByM31(total, isFirst)
	delta.Add(&delta, &fold)
	dd.Mul(d1, d2)
	delta.Mul(&delta, &dd)
	t.Mul(n1, d2)
	delta.Sub(&delta, &t)
	t.Mul(n2, d1)
	delta.Sub(&delta, &t)
	return delta
}
