// Package channel implements the Blake2s Fiat-Shamir transcript shared by the
// prover and the verifier.
//
// The channel keeps a 32 byte rolling digest. Mixing absorbs data into the
// digest; drawing expands the digest in counter mode without changing it, so
// that draws are repeatable until the next mix. Both sides must perform the
// exact same sequence of mixes and draws to stay synchronized.
package channel

import (
	"encoding/binary"
	"sort"

	"golang.org/x/crypto/blake2s"

	"github.com/cairn-zk/cairn/field/m31"
	"github.com/cairn-zk/cairn/field/qm31"
)

// DigestSize is the size of the rolling transcript digest.
const DigestSize = blake2s.Size

// Channel is a deterministic Fiat-Shamir transcript. The zero value is a
// fresh transcript.
type Channel struct {
	digest  [DigestSize]byte
	counter uint64

	// unread words from the current expansion block
	buf   [8]uint32
	avail int
}

// New returns a fresh transcript.
func New() *Channel {
	return &Channel{}
}

// Digest returns the current transcript digest.
func (c *Channel) Digest() [DigestSize]byte {
	return c.digest
}

func (c *Channel) mix(data []byte) {
	buf := make([]byte, 0, DigestSize+len(data))
	buf = append(buf, c.digest[:]...)
	buf = append(buf, data...)
	c.digest = blake2s.Sum256(buf)
	c.counter = 0
	c.avail = 0
}

// MixDigest absorbs a commitment digest into the transcript.
func (c *Channel) MixDigest(d [DigestSize]byte) {
	c.mix(d[:])
}

// MixU32s absorbs 32 bit values into the transcript.
func (c *Channel) MixU32s(vs ...uint32) {
	data := make([]byte, 4*len(vs))
	for i, v := range vs {
		binary.LittleEndian.PutUint32(data[i*4:], v)
	}
	c.mix(data)
}

// MixU64 absorbs a 64 bit value into the transcript.
func (c *Channel) MixU64(v uint64) {
	var data [8]byte
	binary.LittleEndian.PutUint64(data[:], v)
	c.mix(data[:])
}

// MixFelts absorbs extension field elements into the transcript.
func (c *Channel) MixFelts(felts ...qm31.Element) {
	data := make([]byte, 0, qm31.Bytes*len(felts))
	for i := range felts {
		b := felts[i].Bytes()
		data = append(data, b[:]...)
	}
	c.mix(data)
}

// refill expands the digest into the next block of 8 words.
func (c *Channel) refill() {
	var b [DigestSize + 8]byte
	copy(b[:DigestSize], c.digest[:])
	binary.LittleEndian.PutUint64(b[DigestSize:], c.counter)
	c.counter++
	s := blake2s.Sum256(b[:])
	for i := range c.buf {
		c.buf[i] = binary.LittleEndian.Uint32(s[i*4:])
	}
	c.avail = len(c.buf)
}

func (c *Channel) drawWord() uint32 {
	if c.avail == 0 {
		c.refill()
	}
	w := c.buf[len(c.buf)-c.avail]
	c.avail--
	return w
}

// drawBaseFelt draws a uniform base field element by rejection sampling: a 32
// bit word is kept iff it is below 2q, which folds 2 to 1 onto [0, q).
func (c *Channel) drawBaseFelt() m31.Element {
	for {
		w := c.drawWord()
		if w < 2*m31.Modulus {
			return m31.New(w)
		}
	}
}

// DrawFelt draws a uniform extension field element.
func (c *Channel) DrawFelt() qm31.Element {
	a := c.drawBaseFelt()
	b := c.drawBaseFelt()
	cc := c.drawBaseFelt()
	d := c.drawBaseFelt()
	return qm31.FromM31s(a, b, cc, d)
}

// DrawFelts draws n uniform extension field elements.
func (c *Channel) DrawFelts(n int) []qm31.Element {
	res := make([]qm31.Element, n)
	for i := range res {
		res[i] = c.DrawFelt()
	}
	return res
}

// DrawQueryPositions draws n row indices below 1<<logSize and returns them
// sorted with duplicates removed.
func (c *Channel) DrawQueryPositions(n int, logSize uint32) []uint32 {
	mask := uint32(1)<<logSize - 1
	pos := make([]uint32, n)
	for i := range pos {
		pos[i] = c.drawWord() & mask
	}
	sort.Slice(pos, func(i, j int) bool { return pos[i] < pos[j] })
	out := pos[:0]
	for i, p := range pos {
		if i == 0 || p != pos[i-1] {
			out = append(out, p)
		}
	}
	return out
}
