// Package vm holds the Cairo machine model shared by the input layer and the
// trace components: register states, the instruction word encoding, and
// builders for the small instruction subset the plain runner executes.
package vm

import (
	"fmt"

	"github.com/cairn-zk/cairn/felt"
)

// State is a register snapshot of the machine.
type State struct {
	Pc uint32
	Ap uint32
	Fp uint32
}

// Instruction is one encoded instruction word: three biased 16 bit offsets
// in the low 48 bits and 15 flag bits above them.
type Instruction uint64

// Flag bit positions, counted from bit 48 of the word.
const (
	FlagDstFp = iota
	FlagOp0Fp
	FlagOp1Imm
	FlagOp1Fp
	FlagOp1Ap
	FlagResAdd
	FlagResMul
	FlagPcJumpAbs
	FlagPcJumpRel
	FlagPcJnz
	FlagApAdd
	FlagApAdd1
	FlagOpcodeCall
	FlagOpcodeRet
	FlagOpcodeAssertEq
	NumFlags
)

const offsetBias = 1 << 15

// RetEncoding is the canonical `ret` instruction word.
const RetEncoding Instruction = 0x208b7fff7fff7ffe

func flags(bits ...int) uint64 {
	var f uint64
	for _, b := range bits {
		f |= 1 << b
	}
	return f
}

func encode(offDst, offOp0, offOp1 int32, flags uint64) Instruction {
	return Instruction(uint64(uint16(offDst+offsetBias)) |
		uint64(uint16(offOp0+offsetBias))<<16 |
		uint64(uint16(offOp1+offsetBias))<<32 |
		flags<<48)
}

// FromFelt converts a memory word into an instruction. Valid instruction
// words fit in 63 bits.
func FromFelt(w felt.Felt) (Instruction, error) {
	v, ok := w.Uint64()
	if !ok || v >= 1<<63 {
		return 0, fmt.Errorf("vm: word %s is not an instruction", w)
	}
	return Instruction(v), nil
}

// Word returns the instruction as a memory word.
func (ins Instruction) Word() felt.Felt {
	return felt.FromUint64(uint64(ins))
}

// OffDst returns the unbiased destination offset.
func (ins Instruction) OffDst() int32 {
	return int32(uint32(ins&0xffff)) - offsetBias
}

// OffOp0 returns the unbiased first operand offset.
func (ins Instruction) OffOp0() int32 {
	return int32(uint32(ins>>16&0xffff)) - offsetBias
}

// OffOp1 returns the unbiased second operand offset.
func (ins Instruction) OffOp1() int32 {
	return int32(uint32(ins>>32&0xffff)) - offsetBias
}

// Flag returns the flag at the given bit position.
func (ins Instruction) Flag(bit int) bool {
	return ins>>(48+bit)&1 == 1
}

// Size returns the number of memory words the instruction occupies: 2 with
// an immediate operand, 1 otherwise.
func (ins Instruction) Size() uint32 {
	if ins.Flag(FlagOp1Imm) {
		return 2
	}
	return 1
}

// The builders below encode the canonical cairo-lang forms of the supported
// subset. Each returns the memory words the instruction occupies, immediate
// included.

// AssertApImm encodes `[ap] = imm, ap++`.
func AssertApImm(imm uint64) []felt.Felt {
	w := encode(0, -1, 1, flags(FlagOp0Fp, FlagOp1Imm, FlagApAdd1, FlagOpcodeAssertEq))
	return []felt.Felt{w.Word(), felt.FromUint64(imm)}
}

// AssertApAddImm encodes `[ap] = [ap-1] + imm, ap++`.
func AssertApAddImm(imm uint64) []felt.Felt {
	w := encode(0, -1, 1, flags(FlagOp1Imm, FlagResAdd, FlagApAdd1, FlagOpcodeAssertEq))
	return []felt.Felt{w.Word(), felt.FromUint64(imm)}
}

// AddAp encodes `ap += imm`.
func AddAp(imm uint64) []felt.Felt {
	w := encode(-1, -1, 1, flags(FlagDstFp, FlagOp0Fp, FlagOp1Imm, FlagApAdd))
	return []felt.Felt{w.Word(), felt.FromUint64(imm)}
}

// CallRel encodes `call rel imm`.
func CallRel(imm uint64) []felt.Felt {
	w := encode(0, 1, 1, flags(FlagOp1Imm, FlagPcJumpRel, FlagOpcodeCall))
	return []felt.Felt{w.Word(), felt.FromUint64(imm)}
}

// JmpRel encodes `jmp rel imm`.
func JmpRel(imm uint64) []felt.Felt {
	w := encode(-1, -1, 1, flags(FlagDstFp, FlagOp0Fp, FlagOp1Imm, FlagPcJumpRel))
	return []felt.Felt{w.Word(), felt.FromUint64(imm)}
}

// Jnz encodes `jmp rel imm if [ap-1] != 0`.
func Jnz(imm uint64) []felt.Felt {
	w := encode(-1, -1, 1, flags(FlagOp0Fp, FlagOp1Imm, FlagPcJnz))
	return []felt.Felt{w.Word(), felt.FromUint64(imm)}
}

// Ret encodes `ret`.
func Ret() []felt.Felt {
	return []felt.Felt{RetEncoding.Word()}
}
