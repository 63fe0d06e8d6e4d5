// Package m31 implements arithmetic over the Mersenne prime field with
// modulus q = 2^31 - 1.
//
// Elements are held reduced in [0, q) inside a single uint32. The API follows
// the mutating pointer convention of math/big: z.Op(&x, &y) stores x op y
// into z and returns z for chaining.
package m31

import (
	"encoding/binary"
	"strconv"
)

const (
	// Modulus is the field characteristic, 2^31 - 1.
	Modulus uint32 = 1<<31 - 1

	// Bits is the number of bits needed to represent an element.
	Bits = 31

	// Bytes is the size of the canonical little endian encoding.
	Bytes = 4
)

// Element is a field element reduced modulo 2^31 - 1.
type Element uint32

// New returns v reduced modulo q.
func New(v uint32) Element {
	r := (v >> 31) + (v & Modulus)
	if r >= Modulus {
		r -= Modulus
	}
	return Element(r)
}

// NewFromUint64 returns v reduced modulo q.
func NewFromUint64(v uint64) Element {
	return Element(reduce(v))
}

// Zero returns the additive identity.
func Zero() Element {
	return Element(0)
}

// One returns the multiplicative identity.
func One() Element {
	return Element(1)
}

// reduce maps v < 2^62 into [0, q).
func reduce(v uint64) uint32 {
	v = (v >> 31) + (v & uint64(Modulus))
	v = (v >> 31) + (v & uint64(Modulus))
	r := uint32(v)
	if r >= Modulus {
		r -= Modulus
	}
	return r
}

// Uint32 returns the canonical representative of z.
func (z *Element) Uint32() uint32 {
	return uint32(*z)
}

// Set sets z to x and returns z.
func (z *Element) Set(x *Element) *Element {
	*z = *x
	return z
}

// SetZero sets z to 0 and returns z.
func (z *Element) SetZero() *Element {
	*z = 0
	return z
}

// SetOne sets z to 1 and returns z.
func (z *Element) SetOne() *Element {
	*z = 1
	return z
}

// SetUint32 sets z to v reduced modulo q and returns z.
func (z *Element) SetUint32(v uint32) *Element {
	*z = New(v)
	return z
}

// IsZero returns true if z is the additive identity.
func (z *Element) IsZero() bool {
	return *z == 0
}

// IsOne returns true if z is the multiplicative identity.
func (z *Element) IsOne() bool {
	return *z == 1
}

// Equal returns true if z equals x.
func (z *Element) Equal(x *Element) bool {
	return *z == *x
}

// Add sets z = x + y mod q and returns z.
func (z *Element) Add(x, y *Element) *Element {
	t := uint32(*x) + uint32(*y)
	if t >= Modulus {
		t -= Modulus
	}
	*z = Element(t)
	return z
}

// Double sets z = 2*x mod q and returns z.
func (z *Element) Double(x *Element) *Element {
	return z.Add(x, x)
}

// Sub sets z = x - y mod q and returns z.
func (z *Element) Sub(x, y *Element) *Element {
	t := uint32(*x) + Modulus - uint32(*y)
	if t >= Modulus {
		t -= Modulus
	}
	*z = Element(t)
	return z
}

// Neg sets z = -x mod q and returns z.
func (z *Element) Neg(x *Element) *Element {
	if x.IsZero() {
		*z = 0
		return z
	}
	*z = Element(Modulus - uint32(*x))
	return z
}

// Mul sets z = x * y mod q and returns z.
func (z *Element) Mul(x, y *Element) *Element {
	*z = Element(reduce(uint64(*x) * uint64(*y)))
	return z
}

// Square sets z = x * x mod q and returns z.
func (z *Element) Square(x *Element) *Element {
	return z.Mul(x, x)
}

// Exp sets z = x^e mod q and returns z.
func (z *Element) Exp(x Element, e uint64) *Element {
	res := One()
	for ; e > 0; e >>= 1 {
		if e&1 == 1 {
			res.Mul(&res, &x)
		}
		x.Square(&x)
	}
	return z.Set(&res)
}

// Inverse sets z = 1/x mod q and returns z. The inverse of 0 is 0.
func (z *Element) Inverse(x *Element) *Element {
	return z.Exp(*x, uint64(Modulus)-2)
}

// BatchInvert returns a new slice with the inverses of the input elements,
// using a single field inversion. Zero entries stay zero.
func BatchInvert(a []Element) []Element {
	res := make([]Element, len(a))
	if len(a) == 0 {
		return res
	}

	zeroes := make([]bool, len(a))
	accumulator := One()

	for i := 0; i < len(a); i++ {
		if a[i].IsZero() {
			zeroes[i] = true
			continue
		}
		res[i] = accumulator
		accumulator.Mul(&accumulator, &a[i])
	}

	accumulator.Inverse(&accumulator)

	for i := len(a) - 1; i >= 0; i-- {
		if zeroes[i] {
			continue
		}
		res[i].Mul(&res[i], &accumulator)
		accumulator.Mul(&accumulator, &a[i])
	}

	return res
}

// Bytes returns the canonical little endian encoding of z.
func (z *Element) Bytes() [Bytes]byte {
	var b [Bytes]byte
	binary.LittleEndian.PutUint32(b[:], uint32(*z))
	return b
}

// SetBytes sets z from the little endian encoding of a reduced element,
// reducing if the value overflows the modulus.
func (z *Element) SetBytes(b []byte) *Element {
	*z = New(binary.LittleEndian.Uint32(b))
	return z
}

func (z *Element) String() string {
	return strconv.FormatUint(uint64(*z), 10)
}
