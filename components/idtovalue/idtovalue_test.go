package idtovalue

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cairn-zk/cairn/channel"
	"github.com/cairn-zk/cairn/components/rc99"
	"github.com/cairn-zk/cairn/felt"
	"github.com/cairn-zk/cairn/field/m31"
	"github.com/cairn-zk/cairn/field/qm31"
	"github.com/cairn-zk/cairn/input"
	"github.com/cairn-zk/cairn/lookup"
	"github.com/cairn-zk/cairn/stark"
)

func testMemory(t *testing.T) *input.Memory {
	t.Helper()
	mem := input.NewMemory()
	require.NoError(t, mem.Write(0, felt.FromUint64(0x480680017fff8000)))
	require.NoError(t, mem.Write(1, felt.FromUint64(42)))
	require.NoError(t, mem.Write(2, felt.Felt{0xffffffff, 0xffffffff, 3, 0, 0, 0, 0, 0}))
	require.NoError(t, mem.Write(9, felt.FromUint64(7)))
	return mem
}

func TestWriteTraceCoversMemory(t *testing.T) {
	assert := require.New(t)

	mem := testMemory(t)
	gen := NewClaimGenerator(mem)
	gen.Register(2)
	gen.Register(2)
	gen.Register(1)

	pcs := stark.NewCommitmentSchemeProver(stark.Config{LogMaxRows: 8, NQueries: 4})
	claim, icGen := gen.WriteTrace(pcs.TreeBuilder(stark.TreeBase), rc99.NewClaimGenerator())

	// Address 9 is the highest written cell, so the table spans 16 rows even
	// though only ids 1 and 2 were looked up.
	assert.Equal(uint32(4), claim.LogSize)
	assert.Equal(stark.UniformSizes(4, 29, 32), claim.LogSizes())

	assert.Equal(m31.New(2), icGen.mult[2])
	assert.Equal(m31.New(1), icGen.mult[1])
	assert.True(icGen.mult[9].IsZero())

	v := mem.At(2)
	split := v.Split()
	for i := 0; i < felt.NumLimbs; i++ {
		assert.Equal(split[i], icGen.limbs[i][2])
	}
	for i := 0; i < felt.NumLimbs; i++ {
		assert.True(icGen.limbs[i][12].IsZero())
	}
}

func TestRegisterPanicsAfterWrite(t *testing.T) {
	gen := NewClaimGenerator(testMemory(t))
	gen.Register(1)

	pcs := stark.NewCommitmentSchemeProver(stark.Config{LogMaxRows: 8, NQueries: 4})
	gen.WriteTrace(pcs.TreeBuilder(stark.TreeBase), rc99.NewClaimGenerator())

	require.Panics(t, func() { gen.Register(1) })
}

func TestInteractionTotalMatchesManualSum(t *testing.T) {
	assert := require.New(t)

	mem := testMemory(t)
	gen := NewClaimGenerator(mem)
	gen.Register(0)
	gen.Register(2)
	gen.Register(2)

	pcs := stark.NewCommitmentSchemeProver(stark.Config{LogMaxRows: 8, NQueries: 4})
	_, icGen := gen.WriteTrace(pcs.TreeBuilder(stark.TreeBase), rc99.NewClaimGenerator())

	memV := lookup.Elements{Z: qm31.New(5, 1, 8, 2), Alpha: qm31.New(4, 9, 0, 3)}
	rc := lookup.Elements{Z: qm31.New(2, 6, 6, 1), Alpha: qm31.New(7, 3, 2, 8)}
	ic := icGen.WriteInteractionTrace(pcs.TreeBuilder(stark.TreeInteraction), &memV, &rc)

	var want qm31.Element
	tuple := make([]m31.Element, 1+felt.NumLimbs)
	for r := 0; r < len(icGen.mult); r++ {
		tuple[0] = m31.New(uint32(r))
		for i := 0; i < felt.NumLimbs; i++ {
			tuple[1+i] = icGen.limbs[i][r]
		}
		den := memV.Combine(tuple...)
		den.Inverse(&den)
		var term qm31.Element
		term.MulByM31(&den, icGen.mult[r])
		want.Sub(&want, &term)

		for p := 0; p < numPairs; p++ {
			den = rc.Combine(icGen.limbs[2*p][r], icGen.limbs[2*p+1][r])
			den.Inverse(&den)
			want.Add(&want, &den)
		}
	}

	assert.Len(ic.ChainSums, NumChains)
	assert.True(ic.Consistent())
	assert.True(want.Equal(&ic.ClaimedSum))
}

func TestProveVerifyRoundTrip(t *testing.T) {
	cfg := stark.Config{LogMaxRows: 8, NQueries: 8}

	mem := testMemory(t)
	gen := NewClaimGenerator(mem)
	gen.Register(0)
	gen.Register(1)
	gen.Register(2)
	gen.Register(2)

	pcs := stark.NewCommitmentSchemeProver(cfg)
	ch := channel.New()

	tb := pcs.TreeBuilder(stark.TreeBase)
	claim, icGen := gen.WriteTrace(tb, rc99.NewClaimGenerator())
	claim.MixInto(ch)
	require.NoError(t, tb.Commit(ch))

	memV := lookup.DrawElements(ch)
	rc := lookup.DrawElements(ch)

	tb = pcs.TreeBuilder(stark.TreeInteraction)
	ic := icGen.WriteInteractionTrace(tb, &memV, &rc)
	ic.MixInto(ch)
	require.NoError(t, tb.Commit(ch))

	tb = pcs.TreeBuilder(stark.TreeConstant)
	sel := make([]m31.Element, 1<<claim.LogSize)
	sel[0] = m31.One()
	tb.Append(sel)
	require.NoError(t, tb.Commit(ch))

	comp := NewComponent(stark.NewTraceLocationAllocator(), claim, memV, rc, ic)
	proof, err := stark.Prove([]stark.ComponentProver{comp}, ch, pcs)
	require.NoError(t, err)

	pcsv := stark.NewCommitmentSchemeVerifier(cfg)
	vch := channel.New()
	sizes := claim.LogSizes()
	claim.MixInto(vch)
	require.NoError(t, pcsv.Commit(stark.TreeBase, sizes[stark.TreeBase], proof.ColumnRoots[stark.TreeBase], vch))
	vMemV := lookup.DrawElements(vch)
	vRc := lookup.DrawElements(vch)
	ic.MixInto(vch)
	require.NoError(t, pcsv.Commit(stark.TreeInteraction, sizes[stark.TreeInteraction], proof.ColumnRoots[stark.TreeInteraction], vch))
	require.NoError(t, pcsv.Commit(stark.TreeConstant, sizes[stark.TreeConstant], proof.ColumnRoots[stark.TreeConstant], vch))

	vcomp := NewComponent(stark.NewTraceLocationAllocator(), claim, vMemV, vRc, ic)
	require.NoError(t, stark.Verify([]stark.Component{vcomp}, vch, pcsv, proof))
}
