// Package felt handles 252 bit Cairo field values as they appear in memory
// dumps and public memory: 8 little endian 32 bit words, decomposed into 9 bit
// limbs when a trace component needs to range check or look up the value.
package felt

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"math/bits"
	"strings"

	"github.com/icza/bitio"

	"github.com/cairn-zk/cairn/field/m31"
)

const (
	// NumLimbs is the number of 9 bit limbs covering a 252 bit value.
	NumLimbs = 28

	// LimbBits is the width of a single limb.
	LimbBits = 9

	// Words is the number of 32 bit words backing a value.
	Words = 8
)

// Felt is a 252 bit value stored as little endian 32 bit words. The top 4
// bits of the most significant word are outside the 252 bit range and are
// ignored by Split.
type Felt [Words]uint32

// FromUint64 returns the value v as a Felt.
func FromUint64(v uint64) Felt {
	var f Felt
	f[0] = uint32(v)
	f[1] = uint32(v >> 32)
	return f
}

// prime is the Cairo field modulus 2^251 + 17*2^192 + 1.
var prime = Felt{1, 0, 0, 0, 0, 0, 0x11, 0x08000000}

// IsZero returns true if all words of f are zero.
func (f *Felt) IsZero() bool {
	return *f == Felt{}
}

// Equal returns true if f equals x.
func (f *Felt) Equal(x *Felt) bool {
	return *f == *x
}

// Uint64 returns the value as a uint64, with ok reporting whether it fits.
func (f *Felt) Uint64() (uint64, bool) {
	for i := 2; i < Words; i++ {
		if f[i] != 0 {
			return 0, false
		}
	}
	return uint64(f[0]) | uint64(f[1])<<32, true
}

// Add sets z = x + y modulo the Cairo prime and returns z. Both inputs must
// be canonical.
func (z *Felt) Add(x, y *Felt) *Felt {
	var carry uint32
	for i := 0; i < Words; i++ {
		z[i], carry = bits.Add32(x[i], y[i], carry)
	}
	if carry != 0 || !z.less(&prime) {
		var borrow uint32
		for i := 0; i < Words; i++ {
			z[i], borrow = bits.Sub32(z[i], prime[i], borrow)
		}
	}
	return z
}

func (f *Felt) less(x *Felt) bool {
	for i := Words - 1; i >= 0; i-- {
		if f[i] != x[i] {
			return f[i] < x[i]
		}
	}
	return false
}

func (f Felt) String() string {
	be := f.bigEndian()
	s := strings.TrimLeft(hex.EncodeToString(be[:]), "0")
	if s == "" {
		s = "0"
	}
	return "0x" + s
}

// bigEndian returns the 32 byte big endian form of f.
func (f *Felt) bigEndian() [4 * Words]byte {
	var be [4 * Words]byte
	for i := 0; i < Words; i++ {
		binary.BigEndian.PutUint32(be[i*4:], f[Words-1-i])
	}
	return be
}

// Split decomposes the low 252 bits of f into NumLimbs limbs of LimbBits bits
// each, least significant limb first.
func (f *Felt) Split() [NumLimbs]m31.Element {
	be := f.bigEndian()
	r := bitio.NewReader(bytes.NewReader(be[:]))
	if _, err := r.ReadBits(4); err != nil {
		panic(err)
	}
	var limbs [NumLimbs]m31.Element
	for i := NumLimbs - 1; i >= 0; i-- {
		v, err := r.ReadBits(LimbBits)
		if err != nil {
			panic(err)
		}
		limbs[i] = m31.New(uint32(v))
	}
	return limbs
}

// Pack is the inverse of Split. Limb values are truncated to LimbBits bits.
func Pack(limbs *[NumLimbs]m31.Element) Felt {
	var bb bytes.Buffer
	w := bitio.NewWriter(&bb)
	if err := w.WriteBits(0, 4); err != nil {
		panic(err)
	}
	for i := NumLimbs - 1; i >= 0; i-- {
		v := uint64(limbs[i].Uint32()) & (1<<LimbBits - 1)
		if err := w.WriteBits(v, LimbBits); err != nil {
			panic(err)
		}
	}
	if err := w.Close(); err != nil {
		panic(err)
	}

	be := bb.Bytes()
	var f Felt
	for i := 0; i < Words; i++ {
		f[Words-1-i] = binary.BigEndian.Uint32(be[i*4:])
	}
	return f
}
