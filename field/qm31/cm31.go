package qm31

import (
	"github.com/cairn-zk/cairn/field/m31"
)

// cm31 is the degree 2 extension M31[i] / (i^2 + 1), stored as [real, imag].
type cm31 [2]m31.Element

func (z *cm31) set(x *cm31) *cm31 {
	*z = *x
	return z
}

func (z *cm31) isZero() bool {
	return z[0].IsZero() && z[1].IsZero()
}

func (z *cm31) add(x, y *cm31) *cm31 {
	z[0].Add(&x[0], &y[0])
	z[1].Add(&x[1], &y[1])
	return z
}

func (z *cm31) sub(x, y *cm31) *cm31 {
	z[0].Sub(&x[0], &y[0])
	z[1].Sub(&x[1], &y[1])
	return z
}

func (z *cm31) neg(x *cm31) *cm31 {
	z[0].Neg(&x[0])
	z[1].Neg(&x[1])
	return z
}

// mul sets z = x * y using (a+bi)(c+di) = (ac - bd) + (ad + bc)i.
func (z *cm31) mul(x, y *cm31) *cm31 {
	var ac, bd, ad, bc m31.Element
	ac.Mul(&x[0], &y[0])
	bd.Mul(&x[1], &y[1])
	ad.Mul(&x[0], &y[1])
	bc.Mul(&x[1], &y[0])
	z[0].Sub(&ac, &bd)
	z[1].Add(&ad, &bc)
	return z
}

func (z *cm31) square(x *cm31) *cm31 {
	return z.mul(x, x)
}

func (z *cm31) mulByM31(x *cm31, y m31.Element) *cm31 {
	z[0].Mul(&x[0], &y)
	z[1].Mul(&x[1], &y)
	return z
}

// mulByR sets z = x * (2 + i), the non residue of the degree 4 tower.
func (z *cm31) mulByR(x *cm31) *cm31 {
	var a2, b2 m31.Element
	a2.Double(&x[0])
	b2.Double(&x[1])
	var re, im m31.Element
	re.Sub(&a2, &x[1])
	im.Add(&x[0], &b2)
	z[0] = re
	z[1] = im
	return z
}

// inverse sets z = 1/x using (a+bi)^-1 = (a-bi) / (a^2 + b^2).
// The inverse of 0 is 0.
func (z *cm31) inverse(x *cm31) *cm31 {
	var a2, b2, norm m31.Element
	a2.Square(&x[0])
	b2.Square(&x[1])
	norm.Add(&a2, &b2)
	norm.Inverse(&norm)
	z[0].Mul(&x[0], &norm)
	var nb m31.Element
	nb.Neg(&x[1])
	z[1].Mul(&nb, &norm)
	return z
}
