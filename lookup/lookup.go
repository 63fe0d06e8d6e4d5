// Package lookup implements the logup building blocks shared by all trace
// components: the transcript drawn relation elements, the folding of tuples
// into fraction denominators, and the cyclic running sum columns that carry
// the argument inside the interaction trace.
//
// A component emits a fraction num/den per occupied slot and row. Consumers
// of a relation emit +1 (or an enable flag) over the combined tuple,
// suppliers emit -multiplicity over the same combination. If every tuple is
// supplied as often as it is consumed, the grand total of all fractions is
// zero.
package lookup

import (
	"github.com/cairn-zk/cairn/channel"
	"github.com/cairn-zk/cairn/field/m31"
	"github.com/cairn-zk/cairn/field/qm31"
)

// Elements is the verifier randomness of one lookup relation. Tuples are
// folded with powers of Alpha and shifted by Z.
type Elements struct {
	Z     qm31.Element
	Alpha qm31.Element
}

// DrawElements draws the relation elements from the transcript, Z first.
func DrawElements(ch *channel.Channel) Elements {
	return Elements{
		Z:     ch.DrawFelt(),
		Alpha: ch.DrawFelt(),
	}
}

// Combine folds a tuple of base field values into a fraction denominator:
//
//	vals[0] + Alpha*vals[1] + ... + Alpha^(n-1)*vals[n-1] - Z
func (e *Elements) Combine(vals ...m31.Element) qm31.Element {
	var acc qm31.Element
	for i := len(vals) - 1; i >= 0; i-- {
		acc.Mul(&acc, &e.Alpha)
		acc.AddM31(&acc, vals[i])
	}
	acc.Sub(&acc, &e.Z)
	return acc
}
