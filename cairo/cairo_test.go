package cairo

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/cairn-zk/cairn/channel"
	"github.com/cairn-zk/cairn/components/addrtoid"
	"github.com/cairn-zk/cairn/components/idtovalue"
	"github.com/cairn-zk/cairn/components/rc99"
	"github.com/cairn-zk/cairn/components/rcbuiltin"
	"github.com/cairn-zk/cairn/components/retop"
	"github.com/cairn-zk/cairn/felt"
	"github.com/cairn-zk/cairn/field/m31"
	"github.com/cairn-zk/cairn/field/qm31"
	"github.com/cairn-zk/cairn/input"
	"github.com/cairn-zk/cairn/stark"
	"github.com/cairn-zk/cairn/vm"
)

func program(parts ...[]felt.Felt) []felt.Felt {
	var p []felt.Felt
	for _, part := range parts {
		p = append(p, part...)
	}
	return p
}

// The pair table always spans 2^18 rows, so every run needs at least that
// much headroom.
func testConfig() stark.Config {
	return stark.Config{LogMaxRows: rc99.LogTableSize, NQueries: 8}
}

// callBranchRet runs a program with one call, one taken branch and two
// executed rets, plus a 40 cell range check segment whose last value sits
// right below the bound.
func callBranchRet(t *testing.T) *input.Input {
	t.Helper()

	rcValues := make([]felt.Felt, 40)
	for i := range rcValues {
		rcValues[i] = felt.FromUint64(uint64(i) * 7)
	}
	rcValues[39] = felt.Felt{0xffffffff, 0xffffffff, 0xffffffff, 0xffffffff}

	in, err := input.Plain(program(
		vm.AssertApImm(7), // 1
		vm.CallRel(3),     // 3, jumps to 6
		vm.Ret(),          // 5
		vm.Jnz(3),         // 6, jumps to 9
		vm.Ret(),          // 8
		vm.Ret(),          // 9
	), rcValues)
	require.NoError(t, err)
	return in
}

func proveCallBranchRet(t *testing.T) *Proof {
	t.Helper()
	proof, err := Prove(callBranchRet(t), testConfig())
	require.NoError(t, err)
	return proof
}

func cloneProof(t *testing.T, p *Proof) *Proof {
	t.Helper()
	var buf bytes.Buffer
	_, err := p.WriteTo(&buf)
	require.NoError(t, err)
	clone := new(Proof)
	_, err = clone.ReadFrom(&buf)
	require.NoError(t, err)
	return clone
}

func TestProveVerifyCallBranchRet(t *testing.T) {
	assert := require.New(t)

	proof := proveCallBranchRet(t)
	assert.Len(proof.Claim.Ret, 1)
	assert.EqualValues(2, proof.Claim.Ret[0].NbRets)
	assert.EqualValues(40, proof.Claim.RangeCheckBuiltin.NbCells)
	assert.True(proof.InteractionClaim.Consistent())

	assert.NoError(Verify(proof, testConfig()))
}

func TestProveVerifyAssertRet(t *testing.T) {
	assert := require.New(t)

	in, err := input.Plain(program(vm.AssertApImm(5), vm.Ret()), nil)
	assert.NoError(err)
	proof, err := Prove(in, testConfig())
	assert.NoError(err)

	assert.EqualValues(0, proof.Claim.RangeCheckBuiltin.NbCells)
	assert.True(proof.InteractionClaim.RangeCheckBuiltin.ClaimedSum.IsZero())

	assert.NoError(Verify(proof, testConfig()))
}

func TestDrawInteractionElements(t *testing.T) {
	assert := require.New(t)

	claim := Claim{
		Ret:               []retop.Claim{{LogSize: 4, NbRets: 2}},
		RangeCheckBuiltin: rcbuiltin.Claim{LogSize: 6, SegmentStart: 12, NbCells: 40},
		MemoryAddrToID:    addrtoid.Claim{LogSize: 7},
		MemoryIDToValue:   idtovalue.Claim{LogSize: 8},
		RangeCheck99:      rc99.Claim{LogSize: rc99.LogTableSize},
	}
	draw := func(c *Claim) InteractionElements {
		ch := channel.New()
		c.MixInto(ch)
		return DrawInteractionElements(ch)
	}

	// Replaying the same claim draws the same elements.
	assert.Equal(draw(&claim), draw(&claim))

	// Exchanging the two memory log sizes mixes the same words in a
	// different order; the draws must change.
	swapped := claim
	swapped.MemoryAddrToID.LogSize, swapped.MemoryIDToValue.LogSize =
		claim.MemoryIDToValue.LogSize, claim.MemoryAddrToID.LogSize
	assert.NotEqual(draw(&claim), draw(&swapped))

	// Each relation gets its own elements.
	e := draw(&claim)
	assert.NotEqual(e.MemoryAddrToID, e.MemoryIDToValue)
	assert.NotEqual(e.MemoryIDToValue, e.RangeCheck99)
}

func TestLookupSumValid(t *testing.T) {
	assert := require.New(t)

	elements := DrawInteractionElements(channel.New())
	claim := Claim{Public: PublicData{PublicMemory: []PublicMemoryEntry{
		{Address: 1, Value: felt.FromUint64(0x2d)},
		{Address: 2, Value: felt.FromUint64(1 << 40)},
	}}}

	// The verifier's own contribution: one unit fraction per public entry
	// against the id to value relation.
	var public qm31.Element
	tuple := make([]m31.Element, 1+felt.NumLimbs)
	for i := range claim.Public.PublicMemory {
		entry := &claim.Public.PublicMemory[i]
		limbs := entry.Value.Split()
		tuple[0] = m31.New(entry.Address)
		copy(tuple[1:], limbs[:])
		den := elements.MemoryIDToValue.Combine(tuple...)
		den.Inverse(&den)
		public.Add(&public, &den)
	}

	// The sum closes exactly when the claimed totals cancel the public terms.
	var ic InteractionClaim
	ic.MemoryIDToValue.ClaimedSum.Neg(&public)
	assert.True(LookupSumValid(&claim, &elements, &ic))

	one := qm31.New(1, 0, 0, 0)
	ic.RangeCheck99.ClaimedSum.Add(&ic.RangeCheck99.ClaimedSum, &one)
	assert.False(LookupSumValid(&claim, &elements, &ic))
}

func TestVerifyRejectsTamperedProof(t *testing.T) {
	proof := proveCallBranchRet(t)

	cases := []struct {
		name   string
		tamper func(p *Proof)
		want   error
	}{
		{
			name: "claimed sum off by one",
			tamper: func(p *Proof) {
				s := &p.InteractionClaim.RangeCheck99.ClaimedSum
				one := qm31.New(1, 0, 0, 0)
				s.Add(s, &one)
			},
			want: ErrInvalidLogupSum,
		},
		{
			// Shifting a chain total and the claimed sum together keeps the
			// claim internally consistent but moves the global sum off zero.
			name: "shifted chain total",
			tamper: func(p *Proof) {
				ic := &p.InteractionClaim.RangeCheck99
				one := qm31.New(1, 0, 0, 0)
				ic.ChainSums[0].Add(&ic.ChainSums[0], &one)
				ic.ClaimedSum.Add(&ic.ClaimedSum, &one)
			},
			want: ErrInvalidLogupSum,
		},
		{
			name: "altered public memory value",
			tamper: func(p *Proof) {
				p.Claim.Public.PublicMemory[0].Value = felt.FromUint64(99)
			},
			want: ErrInvalidLogupSum,
		},
		{
			name: "missing ret interaction claim",
			tamper: func(p *Proof) {
				p.InteractionClaim.Ret = nil
			},
			want: ErrClaimShape,
		},
		{
			name: "wrong pair table size",
			tamper: func(p *Proof) {
				p.Claim.RangeCheck99.LogSize = 17
			},
			want: ErrClaimShape,
		},
		{
			name: "truncated chain sums",
			tamper: func(p *Proof) {
				ic := &p.InteractionClaim.MemoryIDToValue
				ic.ChainSums = ic.ChainSums[:4]
			},
			want: ErrClaimShape,
		},
		{
			name: "ret count above domain",
			tamper: func(p *Proof) {
				p.Claim.Ret[0].NbRets = 3
			},
			want: ErrClaimShape,
		},
		{
			name: "opened value",
			tamper: func(p *Proof) {
				v := &p.Stark.Openings[stark.TreeBase][0].Columns[0].Values[stark.OffsetCurrent]
				one := m31.One()
				v.Add(v, &one)
			},
			want: stark.ErrInvalidOpening,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			clone := cloneProof(t, proof)
			tc.tamper(clone)
			require.ErrorIs(t, Verify(clone, testConfig()), tc.want)
		})
	}
}

func TestVerifyRejectsWrongRoot(t *testing.T) {
	proof := proveCallBranchRet(t)
	clone := cloneProof(t, proof)
	clone.Stark.ColumnRoots[stark.TreeBase][0][0] ^= 0xff
	require.Error(t, Verify(clone, testConfig()))
}

func TestVerifyRejectsAlteredRetCount(t *testing.T) {
	// Dropping the count from 2 to 1 keeps the claim well formed but
	// diverges the transcript from the committed trace.
	proof := proveCallBranchRet(t)
	clone := cloneProof(t, proof)
	clone.Claim.Ret[0].NbRets = 1
	require.Error(t, Verify(clone, testConfig()))
}

func TestProveDeterministic(t *testing.T) {
	assert := require.New(t)

	in := callBranchRet(t)
	first, err := Prove(in, testConfig())
	assert.NoError(err)
	second, err := Prove(in, testConfig())
	assert.NoError(err)

	var b1, b2 bytes.Buffer
	_, err = first.WriteTo(&b1)
	assert.NoError(err)
	_, err = second.WriteTo(&b2)
	assert.NoError(err)
	assert.True(bytes.Equal(b1.Bytes(), b2.Bytes()))
}

func TestProofSerializationRoundTrip(t *testing.T) {
	assert := require.New(t)

	proof := proveCallBranchRet(t)
	restored := cloneProof(t, proof)
	assert.Empty(cmp.Diff(proof, restored))
	assert.NoError(Verify(restored, testConfig()))
}

func TestProveRejectsSmallConfig(t *testing.T) {
	in, err := input.Plain(program(vm.AssertApImm(5), vm.Ret()), nil)
	require.NoError(t, err)
	_, err = Prove(in, stark.Config{LogMaxRows: 10, NQueries: 8})
	require.ErrorIs(t, err, stark.ErrTraceTooLarge)
}
