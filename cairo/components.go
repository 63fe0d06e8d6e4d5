package cairo

import (
	"fmt"

	"github.com/cairn-zk/cairn/components/addrtoid"
	"github.com/cairn-zk/cairn/components/idtovalue"
	"github.com/cairn-zk/cairn/components/rc99"
	"github.com/cairn-zk/cairn/components/rcbuiltin"
	"github.com/cairn-zk/cairn/components/retop"
	"github.com/cairn-zk/cairn/stark"
)

// Components is the component set of one run, allocated through a single
// shared allocator in component order. Prover and verifier build it from the
// same claims, so both sides agree on every column offset.
type Components struct {
	Ret               []*retop.Component
	RangeCheckBuiltin *rcbuiltin.Component
	MemoryAddrToID    *addrtoid.Component
	MemoryIDToValue   *idtovalue.Component
	RangeCheck99      *rc99.Component
}

// NewComponents validates the claim shapes and builds every component. It
// never panics on malformed claims.
func NewComponents(claim *Claim, elements *InteractionElements, ic *InteractionClaim) (*Components, error) {
	if err := checkShapes(claim, ic); err != nil {
		return nil, err
	}

	alloc := stark.NewTraceLocationAllocator()
	cs := &Components{}
	for i := range claim.Ret {
		cs.Ret = append(cs.Ret, retop.NewComponent(alloc, claim.Ret[i], elements.MemoryAddrToID, elements.MemoryIDToValue, ic.Ret[i]))
	}
	cs.RangeCheckBuiltin = rcbuiltin.NewComponent(alloc, claim.RangeCheckBuiltin, elements.MemoryAddrToID, elements.MemoryIDToValue, ic.RangeCheckBuiltin)
	cs.MemoryAddrToID = addrtoid.NewComponent(alloc, claim.MemoryAddrToID, elements.MemoryAddrToID, ic.MemoryAddrToID)
	cs.MemoryIDToValue = idtovalue.NewComponent(alloc, claim.MemoryIDToValue, elements.MemoryIDToValue, elements.RangeCheck99, ic.MemoryIDToValue)
	cs.RangeCheck99 = rc99.NewComponent(alloc, claim.RangeCheck99, elements.RangeCheck99, ic.RangeCheck99)
	return cs, nil
}

// Provers returns the provable component views, in component order.
func (c *Components) Provers() []stark.ComponentProver {
	ps := make([]stark.ComponentProver, 0, len(c.Ret)+4)
	for _, r := range c.Ret {
		ps = append(ps, r)
	}
	return append(ps, c.RangeCheckBuiltin, c.MemoryAddrToID, c.MemoryIDToValue, c.RangeCheck99)
}

// Verifiers returns the verifiable component views, in component order.
func (c *Components) Verifiers() []stark.Component {
	vs := make([]stark.Component, 0, len(c.Ret)+4)
	for _, r := range c.Ret {
		vs = append(vs, r)
	}
	return append(vs, c.RangeCheckBuiltin, c.MemoryAddrToID, c.MemoryIDToValue, c.RangeCheck99)
}

// checkShapes rejects structurally malformed claim pairs, so that component
// construction and everything after it can index freely.
func checkShapes(claim *Claim, ic *InteractionClaim) error {
	if len(ic.Ret) != len(claim.Ret) {
		return fmt.Errorf("%w: %d ret interaction claims for %d ret claims", ErrClaimShape, len(ic.Ret), len(claim.Ret))
	}
	for i := range ic.Ret {
		if n := len(ic.Ret[i].ChainSums); n != retop.NumChains {
			return fmt.Errorf("%w: ret %d has %d chain sums, want %d", ErrClaimShape, i, n, retop.NumChains)
		}
	}
	if n := len(ic.RangeCheckBuiltin.ChainSums); n != rcbuiltin.NumChains {
		return fmt.Errorf("%w: range check builtin has %d chain sums, want %d", ErrClaimShape, n, rcbuiltin.NumChains)
	}
	if n := len(ic.MemoryAddrToID.ChainSums); n != addrtoid.NumChains {
		return fmt.Errorf("%w: memory addr to id has %d chain sums, want %d", ErrClaimShape, n, addrtoid.NumChains)
	}
	if n := len(ic.MemoryIDToValue.ChainSums); n != idtovalue.NumChains {
		return fmt.Errorf("%w: memory id to value has %d chain sums, want %d", ErrClaimShape, n, idtovalue.NumChains)
	}
	if n := len(ic.RangeCheck99.ChainSums); n != rc99.NumChains {
		return fmt.Errorf("%w: range check 9 9 has %d chain sums, want %d", ErrClaimShape, n, rc99.NumChains)
	}

	for i := range claim.Ret {
		if err := checkLogSize(claim.Ret[i].LogSize); err != nil {
			return err
		}
		if claim.Ret[i].NbRets > 1<<claim.Ret[i].LogSize {
			return fmt.Errorf("%w: ret %d claims %d rets in a domain of %d rows",
				ErrClaimShape, i, claim.Ret[i].NbRets, 1<<claim.Ret[i].LogSize)
		}
	}
	if err := checkLogSize(claim.RangeCheckBuiltin.LogSize); err != nil {
		return err
	}
	if claim.RangeCheckBuiltin.NbCells > 1<<claim.RangeCheckBuiltin.LogSize {
		return fmt.Errorf("%w: range check builtin claims %d cells in a domain of %d rows",
			ErrClaimShape, claim.RangeCheckBuiltin.NbCells, 1<<claim.RangeCheckBuiltin.LogSize)
	}
	if err := checkLogSize(claim.MemoryAddrToID.LogSize); err != nil {
		return err
	}
	if err := checkLogSize(claim.MemoryIDToValue.LogSize); err != nil {
		return err
	}
	if claim.RangeCheck99.LogSize != rc99.LogTableSize {
		return fmt.Errorf("%w: range check 9 9 log size %d, want %d",
			ErrClaimShape, claim.RangeCheck99.LogSize, rc99.LogTableSize)
	}
	return nil
}

func checkLogSize(ls uint32) error {
	if ls < 1 || ls > 28 {
		return fmt.Errorf("%w: log size %d outside [1, 28]", ErrClaimShape, ls)
	}
	return nil
}
