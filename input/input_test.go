package input

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cairn-zk/cairn/felt"
	"github.com/cairn-zk/cairn/vm"
)

func program(parts ...[]felt.Felt) []felt.Felt {
	var p []felt.Felt
	for _, part := range parts {
		p = append(p, part...)
	}
	return p
}

func TestPlainAssertRet(t *testing.T) {
	assert := require.New(t)

	in, err := Plain(
		program(vm.AssertApImm(5), vm.Ret()),
		[]felt.Felt{felt.FromUint64(10), felt.FromUint64(1 << 40)},
	)
	assert.NoError(err)

	// Program words at 1..3, sentinel frame at 4..5, execution from 6.
	assert.Equal(vm.State{Pc: 1, Ap: 6, Fp: 6}, in.Instructions.InitialState)
	assert.Equal(vm.State{Pc: 0, Ap: 7, Fp: 0}, in.Instructions.FinalState)
	assert.Equal([]vm.State{{Pc: 3, Ap: 7, Fp: 6}}, in.Instructions.Ret)

	assert.Equal(felt.FromUint64(5), in.Mem.At(6))
	assert.Equal([]uint32{1, 2, 3}, in.PublicMemoryAddresses)

	assert.Equal(Segment{Start: 7, Size: 2}, in.RangeCheckBuiltin)
	assert.Equal(felt.FromUint64(10), in.Mem.At(7))
	assert.Equal(felt.FromUint64(1<<40), in.Mem.At(8))
}

func TestPlainCallBranchRet(t *testing.T) {
	assert := require.New(t)

	// main: [ap] = 7; call fn; ret
	// fn:   jnz +3 on [ap-1] (the return address, nonzero); ret / ret
	in, err := Plain(program(
		vm.AssertApImm(7), // 1
		vm.CallRel(3),     // 3, jumps to 6
		vm.Ret(),          // 5
		vm.Jnz(3),         // 6, jumps to 9
		vm.Ret(),          // 8
		vm.Ret(),          // 9
	), nil)
	assert.NoError(err)

	assert.Equal(vm.State{Pc: 1, Ap: 12, Fp: 12}, in.Instructions.InitialState)
	assert.Equal([]vm.State{
		{Pc: 9, Ap: 15, Fp: 15},
		{Pc: 5, Ap: 15, Fp: 12},
	}, in.Instructions.Ret)
	assert.Equal(vm.State{Pc: 0, Ap: 15, Fp: 0}, in.Instructions.FinalState)

	// The call frame: saved fp and return address.
	assert.Equal(felt.FromUint64(12), in.Mem.At(13))
	assert.Equal(felt.FromUint64(5), in.Mem.At(14))

	assert.Equal(Segment{Start: 15, Size: 0}, in.RangeCheckBuiltin)
}

func TestPlainJnzNotTaken(t *testing.T) {
	assert := require.New(t)

	in, err := Plain(program(
		vm.AssertApImm(0), // 1
		vm.Jnz(2),         // 3, condition [ap-1] == 0, falls through to 5
		vm.Ret(),          // 5
	), nil)
	assert.NoError(err)
	assert.Equal([]vm.State{{Pc: 5, Ap: 9, Fp: 8}}, in.Instructions.Ret)
}

func TestPlainAddAp(t *testing.T) {
	assert := require.New(t)

	in, err := Plain(program(
		vm.AssertApImm(1), // 1
		vm.AddAp(5),       // 3
		vm.Ret(),          // 5
	), nil)
	assert.NoError(err)
	assert.Equal([]vm.State{{Pc: 5, Ap: 14, Fp: 8}}, in.Instructions.Ret)
}

func TestPlainAssertAddImm(t *testing.T) {
	assert := require.New(t)

	in, err := Plain(program(
		vm.AssertApImm(30),    // 1
		vm.AssertApAddImm(12), // 3
		vm.Ret(),              // 5
	), nil)
	assert.NoError(err)
	assert.Equal(felt.FromUint64(30), in.Mem.At(8))
	assert.Equal(felt.FromUint64(42), in.Mem.At(9))
}

func TestPlainStepLimit(t *testing.T) {
	_, err := Plain(program(vm.JmpRel(0), vm.Ret()), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "step limit")
}

func TestPlainRejectsOversizedRangeCheckValue(t *testing.T) {
	var big felt.Felt
	big[4] = 1 // bit 128
	_, err := Plain(program(vm.Ret()), []felt.Felt{big})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "above 2^128")
}

func TestPlainRejectsEmptyProgram(t *testing.T) {
	_, err := Plain(nil, nil)
	require.Error(t, err)
}

func TestPlainRejectsRunoffPc(t *testing.T) {
	// A lone assert never reaches a ret and falls off the program.
	_, err := Plain(program(vm.AssertApImm(1)), nil)
	require.Error(t, err)
}
