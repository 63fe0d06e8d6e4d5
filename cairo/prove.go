package cairo

import (
	"fmt"
	"time"

	"github.com/cairn-zk/cairn/channel"
	"github.com/cairn-zk/cairn/components/addrtoid"
	"github.com/cairn-zk/cairn/components/idtovalue"
	"github.com/cairn-zk/cairn/components/rc99"
	"github.com/cairn-zk/cairn/components/rcbuiltin"
	"github.com/cairn-zk/cairn/components/retop"
	"github.com/cairn-zk/cairn/debug"
	"github.com/cairn-zk/cairn/input"
	"github.com/cairn-zk/cairn/logger"
	"github.com/cairn-zk/cairn/stark"
)

// Prove generates a proof for one execution. The transcript schedule is
// fixed: mix the claim, commit the base trace, draw the interaction
// elements, commit the interaction trace after mixing the interaction
// claim, commit the constant trace, then run the low level prover.
func Prove(inp *input.Input, cfg stark.Config) (*Proof, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := logger.Logger().With().Str("backend", "cairo").Logger()
	start := time.Now()

	cache, err := stark.NewDomainCache(cfg.LogMaxRows)
	if err != nil {
		return nil, err
	}
	pcs := stark.NewCommitmentSchemeProver(cfg)
	ch := channel.New()

	// Collectors for the shared tables. Consumers register their lookups
	// before each table's own trace is written.
	addrGen := addrtoid.NewClaimGenerator()
	idGen := idtovalue.NewClaimGenerator(inp.Mem)
	rcGen := rc99.NewClaimGenerator()

	tb := pcs.TreeBuilder(stark.TreeBase)
	retClaim, retIC := retop.NewClaimGenerator(inp.Instructions.Ret).WriteTrace(tb, addrGen, idGen)
	rcbClaim, rcbIC := rcbuiltin.NewClaimGenerator(inp.RangeCheckBuiltin, inp.Mem).WriteTrace(tb, addrGen, idGen)

	public := publicData(inp)
	for _, entry := range public.PublicMemory {
		addrGen.Register(entry.Address)
		idGen.Register(entry.Address)
	}

	a2iClaim, a2iIC := addrGen.WriteTrace(tb)
	i2vClaim, i2vIC := idGen.WriteTrace(tb, rcGen)
	rc99Claim, rc99IC := rcGen.WriteTrace(tb)

	claim := &Claim{
		Public:            public,
		Ret:               []retop.Claim{retClaim},
		RangeCheckBuiltin: rcbClaim,
		MemoryAddrToID:    a2iClaim,
		MemoryIDToValue:   i2vClaim,
		RangeCheck99:      rc99Claim,
	}
	sizes := claim.LogSizes()
	if max := sizes.Max(); max > cfg.LogMaxRows {
		return nil, fmt.Errorf("%w: claim declares log size %d, configured maximum %d",
			stark.ErrTraceTooLarge, max, cfg.LogMaxRows)
	}

	claim.MixInto(ch)
	if err := tb.Commit(ch); err != nil {
		return nil, fmt.Errorf("cairo: base trace commitment: %w", err)
	}

	elements := DrawInteractionElements(ch)

	tb = pcs.TreeBuilder(stark.TreeInteraction)
	ic := &InteractionClaim{}
	ic.Ret = append(ic.Ret, retIC.WriteInteractionTrace(tb, &elements.MemoryAddrToID, &elements.MemoryIDToValue))
	ic.RangeCheckBuiltin = rcbIC.WriteInteractionTrace(tb, &elements.MemoryAddrToID, &elements.MemoryIDToValue)
	ic.MemoryAddrToID = a2iIC.WriteInteractionTrace(tb, &elements.MemoryAddrToID)
	ic.MemoryIDToValue = i2vIC.WriteInteractionTrace(tb, &elements.MemoryIDToValue, &elements.RangeCheck99)
	ic.RangeCheck99 = rc99IC.WriteInteractionTrace(tb, &elements.RangeCheck99)
	if debug.Debug && !LookupSumValid(claim, &elements, ic) {
		panic("cairo: logup sums do not cancel on an honest trace")
	}
	ic.MixInto(ch)
	if err := tb.Commit(ch); err != nil {
		return nil, fmt.Errorf("cairo: interaction trace commitment: %w", err)
	}

	tb = pcs.TreeBuilder(stark.TreeConstant)
	for _, ls := range sizes[stark.TreeConstant] {
		sel, err := cache.IsFirst(ls)
		if err != nil {
			return nil, err
		}
		tb.Append(sel)
	}
	if err := tb.Commit(ch); err != nil {
		return nil, fmt.Errorf("cairo: constant trace commitment: %w", err)
	}

	comps, err := NewComponents(claim, &elements, ic)
	if err != nil {
		return nil, err
	}
	starkProof, err := stark.Prove(comps.Provers(), ch, pcs)
	if err != nil {
		return nil, fmt.Errorf("cairo: stark proving failed: %w", err)
	}

	log.Info().
		Dur("took", time.Since(start)).
		Int("publicMemory", len(claim.Public.PublicMemory)).
		Uint32("rets", retClaim.NbRets).
		Msg("proof generated")

	return &Proof{Claim: *claim, InteractionClaim: *ic, Stark: *starkProof}, nil
}

func publicData(inp *input.Input) PublicData {
	entries := make([]PublicMemoryEntry, len(inp.PublicMemoryAddresses))
	for i, addr := range inp.PublicMemoryAddresses {
		entries[i] = PublicMemoryEntry{Address: addr, Value: inp.Mem.At(addr)}
	}
	return PublicData{
		PublicMemory: entries,
		InitialState: inp.Instructions.InitialState,
		FinalState:   inp.Instructions.FinalState,
	}
}
