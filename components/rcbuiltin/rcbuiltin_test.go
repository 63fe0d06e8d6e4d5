package rcbuiltin

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cairn-zk/cairn/channel"
	"github.com/cairn-zk/cairn/components/addrtoid"
	"github.com/cairn-zk/cairn/components/idtovalue"
	"github.com/cairn-zk/cairn/felt"
	"github.com/cairn-zk/cairn/field/m31"
	"github.com/cairn-zk/cairn/input"
	"github.com/cairn-zk/cairn/lookup"
	"github.com/cairn-zk/cairn/stark"
)

// segmentMemory writes the given values into a fresh memory starting at
// start and returns it with the matching segment.
func segmentMemory(t *testing.T, start uint32, values []felt.Felt) (input.Segment, *input.Memory) {
	t.Helper()
	mem := input.NewMemory()
	for i, v := range values {
		require.NoError(t, mem.Write(start+uint32(i), v))
	}
	return input.Segment{Start: start, Size: uint32(len(values))}, mem
}

func TestWriteTraceLayout(t *testing.T) {
	assert := require.New(t)

	seg, mem := segmentMemory(t, 7, []felt.Felt{
		felt.FromUint64(12),
		{0xffffffff, 0xffffffff, 0xffffffff, 0xffffffff, 0, 0, 0, 0},
		felt.FromUint64(0),
	})
	gen := NewClaimGenerator(seg, mem)

	pcs := stark.NewCommitmentSchemeProver(stark.Config{LogMaxRows: 8, NQueries: 4})
	claim, icGen := gen.WriteTrace(pcs.TreeBuilder(stark.TreeBase), addrtoid.NewClaimGenerator(), idtovalue.NewClaimGenerator(mem))

	assert.Equal(uint32(2), claim.LogSize)
	assert.Equal(uint32(7), claim.SegmentStart)
	assert.Equal(uint32(3), claim.NbCells)
	assert.Equal(stark.UniformSizes(2, 31, 4), claim.LogSizes())

	assert.Equal(m31.New(7), icGen.addr[0])
	assert.Equal(m31.New(9), icGen.addr[2])
	assert.Equal(icGen.addr[1], icGen.id[1])
	assert.True(icGen.enable[3].IsZero())
	assert.True(icGen.addr[3].IsZero())

	// The largest admissible value fills limb 14 with its two high bits.
	assert.Equal(m31.New(3), icGen.limbs[topLimb][1])
	for i := topLimb + 1; i < felt.NumLimbs; i++ {
		assert.True(icGen.limbs[i][1].IsZero())
	}
}

// proveSegment runs the full prover side for one builtin segment.
func proveSegment(t *testing.T, cfg stark.Config, seg input.Segment, mem *input.Memory, tamper func(*InteractionClaimGenerator)) (Claim, lookup.InteractionClaim, *stark.Proof, error) {
	t.Helper()

	gen := NewClaimGenerator(seg, mem)
	pcs := stark.NewCommitmentSchemeProver(cfg)
	ch := channel.New()

	tb := pcs.TreeBuilder(stark.TreeBase)
	claim, icGen := gen.WriteTrace(tb, addrtoid.NewClaimGenerator(), idtovalue.NewClaimGenerator(mem))
	if tamper != nil {
		tamper(icGen)
	}
	claim.MixInto(ch)
	require.NoError(t, tb.Commit(ch))

	addrElts := lookup.DrawElements(ch)
	valElts := lookup.DrawElements(ch)

	tb = pcs.TreeBuilder(stark.TreeInteraction)
	ic := icGen.WriteInteractionTrace(tb, &addrElts, &valElts)
	ic.MixInto(ch)
	require.NoError(t, tb.Commit(ch))

	tb = pcs.TreeBuilder(stark.TreeConstant)
	sel := make([]m31.Element, 1<<claim.LogSize)
	sel[0] = m31.One()
	tb.Append(sel)
	require.NoError(t, tb.Commit(ch))

	comp := NewComponent(stark.NewTraceLocationAllocator(), claim, addrElts, valElts, ic)
	proof, err := stark.Prove([]stark.ComponentProver{comp}, ch, pcs)
	return claim, ic, proof, err
}

// verifySegment replays the verifier side of proveSegment.
func verifySegment(cfg stark.Config, claim Claim, ic lookup.InteractionClaim, proof *stark.Proof) error {
	pcsv := stark.NewCommitmentSchemeVerifier(cfg)
	ch := channel.New()
	sizes := claim.LogSizes()

	claim.MixInto(ch)
	if err := pcsv.Commit(stark.TreeBase, sizes[stark.TreeBase], proof.ColumnRoots[stark.TreeBase], ch); err != nil {
		return err
	}
	addrElts := lookup.DrawElements(ch)
	valElts := lookup.DrawElements(ch)
	ic.MixInto(ch)
	if err := pcsv.Commit(stark.TreeInteraction, sizes[stark.TreeInteraction], proof.ColumnRoots[stark.TreeInteraction], ch); err != nil {
		return err
	}
	if err := pcsv.Commit(stark.TreeConstant, sizes[stark.TreeConstant], proof.ColumnRoots[stark.TreeConstant], ch); err != nil {
		return err
	}

	comp := NewComponent(stark.NewTraceLocationAllocator(), claim, addrElts, valElts, ic)
	return stark.Verify([]stark.Component{comp}, ch, pcsv, proof)
}

func TestProveVerifyRoundTrip(t *testing.T) {
	cfg := stark.Config{LogMaxRows: 8, NQueries: 8}
	seg, mem := segmentMemory(t, 20, []felt.Felt{
		felt.FromUint64(0),
		felt.FromUint64(1),
		felt.FromUint64(99999),
		{0xffffffff, 0xffffffff, 0xffffffff, 0xffffffff, 0, 0, 0, 0},
		felt.FromUint64(1 << 40),
	})

	claim, ic, proof, err := proveSegment(t, cfg, seg, mem, nil)
	require.NoError(t, err)
	require.NoError(t, verifySegment(cfg, claim, ic, proof))
}

func TestProveVerifyEmptySegment(t *testing.T) {
	cfg := stark.Config{LogMaxRows: 8, NQueries: 8}
	seg, mem := segmentMemory(t, 20, nil)

	claim, ic, proof, err := proveSegment(t, cfg, seg, mem, nil)
	require.NoError(t, err)
	require.True(t, ic.ClaimedSum.IsZero())
	require.NoError(t, verifySegment(cfg, claim, ic, proof))
}

func TestProveRejectsValueAtBound(t *testing.T) {
	cfg := stark.Config{LogMaxRows: 8, NQueries: 8}
	// 2^128 itself: limb 14 holds 4, tripping the two bit bound.
	seg, mem := segmentMemory(t, 5, []felt.Felt{
		{0, 0, 0, 0, 1, 0, 0, 0},
	})

	_, _, _, err := proveSegment(t, cfg, seg, mem, nil)
	require.ErrorIs(t, err, stark.ErrConstraintsNotSatisfied)
}

func TestProveRejectsWideValue(t *testing.T) {
	cfg := stark.Config{LogMaxRows: 8, NQueries: 8}
	// A bit far above the window lands in the zeroed limbs.
	seg, mem := segmentMemory(t, 5, []felt.Felt{
		{0, 0, 0, 0, 0, 0, 1, 0},
	})

	_, _, _, err := proveSegment(t, cfg, seg, mem, nil)
	require.ErrorIs(t, err, stark.ErrConstraintsNotSatisfied)
}

func TestProveRejectsNonContiguousAddresses(t *testing.T) {
	cfg := stark.Config{LogMaxRows: 8, NQueries: 8}
	seg, mem := segmentMemory(t, 20, []felt.Felt{
		felt.FromUint64(1),
		felt.FromUint64(2),
		felt.FromUint64(3),
	})

	_, _, _, err := proveSegment(t, cfg, seg, mem, func(icGen *InteractionClaimGenerator) {
		icGen.addr[1] = m31.New(25)
		icGen.id[1] = m31.New(25)
	})
	require.ErrorIs(t, err, stark.ErrConstraintsNotSatisfied)
}
