// Package input builds the proving input bundle from a program execution:
// the populated write once memory, the executed control flow, the public
// memory addresses, and the builtin segments.
package input

import (
	"errors"
	"fmt"
	"math"

	"github.com/cairn-zk/cairn/felt"
	"github.com/cairn-zk/cairn/vm"
)

const (
	// programBase is the address of the first program word.
	programBase = 1

	// stepLimit bounds a plain run.
	stepLimit = 1 << 20
)

// Segment locates a builtin segment in memory.
type Segment struct {
	Start uint32
	Size  uint32
}

// Instructions carries the executed control flow of one run.
type Instructions struct {
	InitialState vm.State
	FinalState   vm.State

	// Ret holds the register state at every executed ret, in execution
	// order.
	Ret []vm.State
}

// Input bundles everything a proving run needs from one execution.
type Input struct {
	Mem                   *Memory
	Instructions          Instructions
	PublicMemoryAddresses []uint32
	RangeCheckBuiltin     Segment
}

// Plain executes a program with the plain runner and returns the input
// bundle: memory, executed ret states, the program cells as public memory,
// and a range check builtin segment holding rcValues right after the
// execution memory.
//
// The program is loaded at address 1 and started with an outermost frame
// whose return address is the sentinel 0; execution halts when a ret jumps
// there. Only the builder subset of the instruction set is supported.
func Plain(program []felt.Felt, rcValues []felt.Felt) (*Input, error) {
	if len(program) == 0 {
		return nil, errors.New("input: empty program")
	}

	mem := NewMemory()
	for i, w := range program {
		if err := mem.Write(programBase+uint32(i), w); err != nil {
			return nil, err
		}
	}

	execBase := programBase + uint32(len(program))
	if err := mem.Write(execBase, felt.FromUint64(0)); err != nil {
		return nil, err
	}
	if err := mem.Write(execBase+1, felt.FromUint64(0)); err != nil {
		return nil, err
	}

	st := vm.State{Pc: programBase, Ap: execBase + 2, Fp: execBase + 2}
	in := &Input{
		Mem:          mem,
		Instructions: Instructions{InitialState: st},
	}

	for steps := 0; ; steps++ {
		if steps >= stepLimit {
			return nil, errors.New("input: step limit exceeded")
		}
		if !mem.Known(st.Pc) {
			return nil, fmt.Errorf("input: pc %d points at unwritten memory", st.Pc)
		}
		ins, err := vm.FromFelt(mem.At(st.Pc))
		if err != nil {
			return nil, err
		}
		next, done, err := step(mem, ins, st, &in.Instructions)
		if err != nil {
			return nil, fmt.Errorf("input: pc %d: %w", st.Pc, err)
		}
		st = next
		if done {
			break
		}
	}
	in.Instructions.FinalState = st

	rcBase := mem.MaxAddress() + 1
	for i, v := range rcValues {
		limbs := v.Split()
		if limbs[14].Uint32() >= 4 {
			return nil, fmt.Errorf("input: range check value %d is %s, above 2^128", i, v)
		}
		for k := 15; k < felt.NumLimbs; k++ {
			if !limbs[k].IsZero() {
				return nil, fmt.Errorf("input: range check value %d is %s, above 2^128", i, v)
			}
		}
		if err := mem.Write(rcBase+uint32(i), v); err != nil {
			return nil, err
		}
	}
	in.RangeCheckBuiltin = Segment{Start: rcBase, Size: uint32(len(rcValues))}

	in.PublicMemoryAddresses = make([]uint32, len(program))
	for i := range program {
		in.PublicMemoryAddresses[i] = programBase + uint32(i)
	}
	return in, nil
}

func step(mem *Memory, ins vm.Instruction, st vm.State, rec *Instructions) (vm.State, bool, error) {
	switch {
	case ins.Flag(vm.FlagOpcodeAssertEq):
		return stepAssertEq(mem, ins, st)
	case ins.Flag(vm.FlagOpcodeCall):
		return stepCall(mem, ins, st)
	case ins.Flag(vm.FlagOpcodeRet):
		return stepRet(mem, ins, st, rec)
	case ins.Flag(vm.FlagPcJnz):
		return stepJnz(mem, ins, st)
	case ins.Flag(vm.FlagPcJumpRel):
		return stepJmpRel(mem, ins, st)
	case ins.Flag(vm.FlagApAdd):
		return stepAddAp(mem, ins, st)
	}
	return st, false, fmt.Errorf("unsupported instruction %#x", uint64(ins))
}

func stepAssertEq(mem *Memory, ins vm.Instruction, st vm.State) (vm.State, bool, error) {
	dstAddr, err := offsetAddr(registerBase(ins.Flag(vm.FlagDstFp), st), ins.OffDst())
	if err != nil {
		return st, false, err
	}
	op1, err := operand1(mem, ins, st)
	if err != nil {
		return st, false, err
	}

	var res felt.Felt
	switch {
	case ins.Flag(vm.FlagResMul):
		return st, false, errors.New("unsupported mul result")
	case ins.Flag(vm.FlagResAdd):
		op0Addr, err := offsetAddr(registerBase(ins.Flag(vm.FlagOp0Fp), st), ins.OffOp0())
		if err != nil {
			return st, false, err
		}
		op0, err := readCell(mem, op0Addr)
		if err != nil {
			return st, false, err
		}
		res.Add(&op0, &op1)
	default:
		res = op1
	}

	if err := mem.Write(dstAddr, res); err != nil {
		return st, false, err
	}
	next := st
	next.Pc += ins.Size()
	if ins.Flag(vm.FlagApAdd1) {
		next.Ap++
	}
	return next, false, nil
}

func stepCall(mem *Memory, ins vm.Instruction, st vm.State) (vm.State, bool, error) {
	if !ins.Flag(vm.FlagOp1Imm) || !ins.Flag(vm.FlagPcJumpRel) {
		return st, false, errors.New("unsupported call form")
	}
	imm, err := readCell(mem, st.Pc+1)
	if err != nil {
		return st, false, err
	}
	if err := mem.Write(st.Ap, felt.FromUint64(uint64(st.Fp))); err != nil {
		return st, false, err
	}
	if err := mem.Write(st.Ap+1, felt.FromUint64(uint64(st.Pc)+2)); err != nil {
		return st, false, err
	}
	pc, err := relativePc(st.Pc, imm)
	if err != nil {
		return st, false, err
	}
	return vm.State{Pc: pc, Ap: st.Ap + 2, Fp: st.Ap + 2}, false, nil
}

func stepRet(mem *Memory, ins vm.Instruction, st vm.State, rec *Instructions) (vm.State, bool, error) {
	rec.Ret = append(rec.Ret, st)

	pcAddr, err := offsetAddr(st.Fp, ins.OffOp1())
	if err != nil {
		return st, false, err
	}
	fpAddr, err := offsetAddr(st.Fp, ins.OffDst())
	if err != nil {
		return st, false, err
	}
	pcCell, err := readCell(mem, pcAddr)
	if err != nil {
		return st, false, err
	}
	fpCell, err := readCell(mem, fpAddr)
	if err != nil {
		return st, false, err
	}
	pc, ok := pcCell.Uint64()
	if !ok || pc > math.MaxUint32 {
		return st, false, fmt.Errorf("return address %s out of range", pcCell)
	}
	fp, ok := fpCell.Uint64()
	if !ok || fp > math.MaxUint32 {
		return st, false, fmt.Errorf("caller frame pointer %s out of range", fpCell)
	}
	next := vm.State{Pc: uint32(pc), Ap: st.Ap, Fp: uint32(fp)}
	return next, next.Pc == 0, nil
}

func stepJnz(mem *Memory, ins vm.Instruction, st vm.State) (vm.State, bool, error) {
	dstAddr, err := offsetAddr(registerBase(ins.Flag(vm.FlagDstFp), st), ins.OffDst())
	if err != nil {
		return st, false, err
	}
	dst, err := readCell(mem, dstAddr)
	if err != nil {
		return st, false, err
	}
	next := st
	if dst.IsZero() {
		next.Pc += ins.Size()
		return next, false, nil
	}
	imm, err := readCell(mem, st.Pc+1)
	if err != nil {
		return st, false, err
	}
	next.Pc, err = relativePc(st.Pc, imm)
	return next, false, err
}

func stepJmpRel(mem *Memory, ins vm.Instruction, st vm.State) (vm.State, bool, error) {
	op1, err := operand1(mem, ins, st)
	if err != nil {
		return st, false, err
	}
	next := st
	next.Pc, err = relativePc(st.Pc, op1)
	if err != nil {
		return st, false, err
	}
	if ins.Flag(vm.FlagApAdd1) {
		next.Ap++
	}
	return next, false, nil
}

func stepAddAp(mem *Memory, ins vm.Instruction, st vm.State) (vm.State, bool, error) {
	op1, err := operand1(mem, ins, st)
	if err != nil {
		return st, false, err
	}
	v, ok := op1.Uint64()
	if !ok || uint64(st.Ap)+v > math.MaxUint32 {
		return st, false, fmt.Errorf("ap increment %s out of range", op1)
	}
	next := st
	next.Ap += uint32(v)
	next.Pc += ins.Size()
	return next, false, nil
}

func registerBase(useFp bool, st vm.State) uint32 {
	if useFp {
		return st.Fp
	}
	return st.Ap
}

func offsetAddr(base uint32, off int32) (uint32, error) {
	a := int64(base) + int64(off)
	if a < 0 || a > math.MaxUint32 {
		return 0, fmt.Errorf("address %d out of range", a)
	}
	return uint32(a), nil
}

func readCell(mem *Memory, addr uint32) (felt.Felt, error) {
	if !mem.Known(addr) {
		return felt.Felt{}, fmt.Errorf("read of unwritten address %d", addr)
	}
	return mem.At(addr), nil
}

func operand1(mem *Memory, ins vm.Instruction, st vm.State) (felt.Felt, error) {
	switch {
	case ins.Flag(vm.FlagOp1Imm):
		return readCell(mem, st.Pc+1)
	case ins.Flag(vm.FlagOp1Fp):
		a, err := offsetAddr(st.Fp, ins.OffOp1())
		if err != nil {
			return felt.Felt{}, err
		}
		return readCell(mem, a)
	case ins.Flag(vm.FlagOp1Ap):
		a, err := offsetAddr(st.Ap, ins.OffOp1())
		if err != nil {
			return felt.Felt{}, err
		}
		return readCell(mem, a)
	}
	return felt.Felt{}, errors.New("unsupported operand form")
}

func relativePc(pc uint32, off felt.Felt) (uint32, error) {
	v, ok := off.Uint64()
	if !ok || uint64(pc)+v > math.MaxUint32 {
		return 0, fmt.Errorf("jump offset %s out of range", off)
	}
	return pc + uint32(v), nil
}
