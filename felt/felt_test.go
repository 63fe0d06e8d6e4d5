package felt

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"

	"github.com/cairn-zk/cairn/field/m31"
)

func TestSplitLowWords(t *testing.T) {
	f := FromUint64(1023) // 0b11_1111_1111
	limbs := f.Split()
	assert.Equal(t, uint32(511), limbs[0].Uint32())
	assert.Equal(t, uint32(1), limbs[1].Uint32())
	for i := 2; i < NumLimbs; i++ {
		assert.True(t, limbs[i].IsZero(), "limb %d", i)
	}
}

func TestSplitHighLimb(t *testing.T) {
	// Bit 243 is the least significant bit of the last limb.
	var f Felt
	f[7] = 1 << (243 - 224)
	limbs := f.Split()
	assert.Equal(t, uint32(1), limbs[NumLimbs-1].Uint32())
	for i := 0; i < NumLimbs-1; i++ {
		assert.True(t, limbs[i].IsZero(), "limb %d", i)
	}
}

func TestSplitDiscardsTopBits(t *testing.T) {
	var f Felt
	f[7] = 0xF0000000
	limbs := f.Split()
	for i := range limbs {
		assert.True(t, limbs[i].IsZero(), "limb %d", i)
	}
}

func genFelt() gopter.Gen {
	words := make([]gopter.Gen, Words)
	for i := range words {
		words[i] = gen.UInt32()
	}
	return gopter.CombineGens(words...).Map(func(vs []interface{}) Felt {
		var f Felt
		for i := range f {
			f[i] = vs[i].(uint32)
		}
		f[Words-1] &= 0x0FFFFFFF // stay inside the 252 bit range
		return f
	})
}

func TestSplitPackProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 500
	properties := gopter.NewProperties(parameters)

	properties.Property("limbs fit in 9 bits", prop.ForAll(
		func(f Felt) bool {
			limbs := f.Split()
			for i := range limbs {
				if limbs[i].Uint32() >= 1<<LimbBits {
					return false
				}
			}
			return true
		},
		genFelt(),
	))

	properties.Property("pack inverts split", prop.ForAll(
		func(f Felt) bool {
			limbs := f.Split()
			back := Pack(&limbs)
			return back.Equal(&f)
		},
		genFelt(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestPackTruncatesLimbs(t *testing.T) {
	var limbs [NumLimbs]m31.Element
	limbs[0] = m31.New(512 + 5)
	f := Pack(&limbs)
	assert.Equal(t, FromUint64(5), f)
}

func TestUint64(t *testing.T) {
	f := FromUint64(0xDEADBEEFCAFE)
	v, ok := f.Uint64()
	assert.True(t, ok)
	assert.Equal(t, uint64(0xDEADBEEFCAFE), v)

	f[2] = 1
	_, ok = f.Uint64()
	assert.False(t, ok)
}

func TestAdd(t *testing.T) {
	a := FromUint64(1 << 40)
	b := FromUint64(12345)
	var z Felt
	z.Add(&a, &b)
	assert.Equal(t, FromUint64(1<<40+12345), z)

	// p - 1 + 2 wraps to 1.
	pm1 := prime
	pm1[0] = 0
	two := FromUint64(2)
	z.Add(&pm1, &two)
	assert.Equal(t, FromUint64(1), z)

	// Aliasing is fine.
	z = FromUint64(7)
	z.Add(&z, &z)
	assert.Equal(t, FromUint64(14), z)
}

func TestString(t *testing.T) {
	assert.Equal(t, "0x0", Felt{}.String())
	assert.Equal(t, "0x1f4", FromUint64(500).String())
}
