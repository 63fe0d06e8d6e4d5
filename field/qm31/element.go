// Package qm31 implements the degree 4 extension of the Mersenne31 field used
// as the security field of the proving stack.
//
// The tower is QM31 = CM31[u] / (u^2 - (2+i)) with CM31 = M31[i] / (i^2 + 1).
// An element (a + bi) + (c + di)u is stored as the limb array [a, b, c, d].
// The API mirrors the mutating pointer style of the base field package.
package qm31

import (
	"encoding/binary"
	"fmt"

	"github.com/cairn-zk/cairn/field/m31"
)

// Bytes is the size of the canonical little endian encoding.
const Bytes = 4 * m31.Bytes

// Limbs is the extension degree over the base field.
const Limbs = 4

// Element is a QM31 field element stored as 4 base field limbs.
type Element [Limbs]m31.Element

// New returns the element with the given reduced limb values.
func New(a, b, c, d uint32) Element {
	return Element{m31.New(a), m31.New(b), m31.New(c), m31.New(d)}
}

// FromM31 embeds a base field element into the extension.
func FromM31(a m31.Element) Element {
	return Element{a}
}

// FromM31s builds an element from 4 base field limbs.
func FromM31s(a, b, c, d m31.Element) Element {
	return Element{a, b, c, d}
}

// Zero returns the additive identity.
func Zero() Element {
	return Element{}
}

// One returns the multiplicative identity.
func One() Element {
	return Element{m31.One()}
}

func (z *Element) first() *cm31  { return (*cm31)(z[0:2]) }
func (z *Element) second() *cm31 { return (*cm31)(z[2:4]) }

// Set sets z to x and returns z.
func (z *Element) Set(x *Element) *Element {
	*z = *x
	return z
}

// SetZero sets z to 0 and returns z.
func (z *Element) SetZero() *Element {
	*z = Element{}
	return z
}

// SetOne sets z to 1 and returns z.
func (z *Element) SetOne() *Element {
	*z = One()
	return z
}

// IsZero returns true if z is the additive identity.
func (z *Element) IsZero() bool {
	return z.first().isZero() && z.second().isZero()
}

// IsOne returns true if z is the multiplicative identity.
func (z *Element) IsOne() bool {
	one := One()
	return z.Equal(&one)
}

// Equal returns true if z equals x.
func (z *Element) Equal(x *Element) bool {
	return *z == *x
}

// Add sets z = x + y and returns z.
func (z *Element) Add(x, y *Element) *Element {
	z.first().add(x.first(), y.first())
	z.second().add(x.second(), y.second())
	return z
}

// Double sets z = 2*x and returns z.
func (z *Element) Double(x *Element) *Element {
	return z.Add(x, x)
}

// AddM31 sets z = x + y for a base field element y and returns z.
func (z *Element) AddM31(x *Element, y m31.Element) *Element {
	z.Set(x)
	z[0].Add(&z[0], &y)
	return z
}

// SubM31 sets z = x - y for a base field element y and returns z.
func (z *Element) SubM31(x *Element, y m31.Element) *Element {
	z.Set(x)
	z[0].Sub(&z[0], &y)
	return z
}

// Sub sets z = x - y and returns z.
func (z *Element) Sub(x, y *Element) *Element {
	z.first().sub(x.first(), y.first())
	z.second().sub(x.second(), y.second())
	return z
}

// Neg sets z = -x and returns z.
func (z *Element) Neg(x *Element) *Element {
	z.first().neg(x.first())
	z.second().neg(x.second())
	return z
}

// Mul sets z = x * y and returns z, using
// (x0 + x1 u)(y0 + y1 u) = x0 y0 + R x1 y1 + (x0 y1 + x1 y0) u with R = 2+i.
func (z *Element) Mul(x, y *Element) *Element {
	var v0, v1, t0, t1, r0, r1 cm31
	v0.mul(x.first(), y.first())
	v1.mul(x.second(), y.second())
	t0.mulByR(&v1)
	r0.add(&v0, &t0)
	t0.mul(x.first(), y.second())
	t1.mul(x.second(), y.first())
	r1.add(&t0, &t1)
	z.first().set(&r0)
	z.second().set(&r1)
	return z
}

// Square sets z = x * x and returns z.
func (z *Element) Square(x *Element) *Element {
	return z.Mul(x, x)
}

// MulByM31 sets z = x * y for a base field scalar y and returns z.
func (z *Element) MulByM31(x *Element, y m31.Element) *Element {
	z.first().mulByM31(x.first(), y)
	z.second().mulByM31(x.second(), y)
	return z
}

// Inverse sets z = 1/x and returns z, using the norm descent
// (x0 + x1 u)^-1 = (x0 - x1 u) / (x0^2 - R x1^2). The inverse of 0 is 0.
func (z *Element) Inverse(x *Element) *Element {
	var a2, b2, rb2, denom cm31
	a2.square(x.first())
	b2.square(x.second())
	rb2.mulByR(&b2)
	denom.sub(&a2, &rb2)
	denom.inverse(&denom)
	var r0, r1, nx1 cm31
	r0.mul(x.first(), &denom)
	nx1.neg(x.second())
	r1.mul(&nx1, &denom)
	z.first().set(&r0)
	z.second().set(&r1)
	return z
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

// Bytes returns the canonical little endian encoding of z, limb by limb.
func (z *Element) Bytes() [Bytes]byte {
	var b [Bytes]byte
	for i := 0; i < Limbs; i++ {
		binary.LittleEndian.PutUint32(b[i*m31.Bytes:], z[i].Uint32())
	}
	return b
}

// SetBytes sets z from the little endian encoding produced by Bytes,
// reducing limbs that overflow the base modulus.
func (z *Element) SetBytes(b []byte) *Element {
	for i := 0; i < Limbs; i++ {
		z[i].SetBytes(b[i*m31.Bytes:])
	}
	return z
}

func (z *Element) String() string {
	return fmt.Sprintf("(%s+%s*i)+(%s+%s*i)*u", z[0].String(), z[1].String(), z[2].String(), z[3].String())
}
