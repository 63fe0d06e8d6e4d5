// Package merkle commits to trace columns with Blake2s binary Merkle trees.
//
// Each column gets its own tree over leaf hashes of the element encodings. A
// group of columns is committed as the hash of the concatenated column roots,
// so an opening for one (column, row) pair only carries a path of the column
// height plus the per column roots already present in the proof.
package merkle

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/bits"

	"golang.org/x/crypto/blake2s"

	"github.com/cairn-zk/cairn/field/m31"
)

// DigestSize is the size of node hashes.
const DigestSize = blake2s.Size

// ErrInvalidOpening is returned when a path does not hash back to the root.
var ErrInvalidOpening = errors.New("merkle: opening does not match root")

// Tree is a binary Merkle tree over a single column.
type Tree struct {
	logSize uint32
	// layers[0] holds the leaf hashes, the last layer holds the root.
	layers [][][DigestSize]byte
}

func leafHash(v m31.Element) [DigestSize]byte {
	var b [m31.Bytes]byte
	binary.LittleEndian.PutUint32(b[:], v.Uint32())
	return blake2s.Sum256(b[:])
}

func nodeHash(left, right *[DigestSize]byte) [DigestSize]byte {
	var b [2 * DigestSize]byte
	copy(b[:DigestSize], left[:])
	copy(b[DigestSize:], right[:])
	return blake2s.Sum256(b[:])
}

// NewTree builds the tree of a column. The column length must be a power of
// two; anything else is a caller bug.
func NewTree(column []m31.Element) *Tree {
	n := len(column)
	if n == 0 || n&(n-1) != 0 {
		panic(fmt.Sprintf("merkle: column length %d is not a power of two", n))
	}
	logSize := uint32(bits.TrailingZeros(uint(n)))

	layers := make([][][DigestSize]byte, logSize+1)
	layers[0] = make([][DigestSize]byte, n)
	for i := range column {
		layers[0][i] = leafHash(column[i])
	}
	for l := uint32(1); l <= logSize; l++ {
		prev := layers[l-1]
		cur := make([][DigestSize]byte, len(prev)/2)
		for i := range cur {
			cur[i] = nodeHash(&prev[2*i], &prev[2*i+1])
		}
		layers[l] = cur
	}

	return &Tree{logSize: logSize, layers: layers}
}

// Root returns the tree root.
func (t *Tree) Root() [DigestSize]byte {
	return t.layers[t.logSize][0]
}

// LogSize returns the column height.
func (t *Tree) LogSize() uint32 {
	return t.logSize
}

// Open returns the sibling path of the leaf at pos, bottom up.
func (t *Tree) Open(pos uint32) [][DigestSize]byte {
	if pos >= uint32(len(t.layers[0])) {
		panic(fmt.Sprintf("merkle: position %d out of range", pos))
	}
	path := make([][DigestSize]byte, t.logSize)
	for l := uint32(0); l < t.logSize; l++ {
		path[l] = t.layers[l][pos^1]
		pos >>= 1
	}
	return path
}

// VerifyOpening checks that value sits at pos in a column of height logSize
// under root. It is total: malformed paths return ErrInvalidOpening.
func VerifyOpening(root [DigestSize]byte, logSize, pos uint32, value m31.Element, path [][DigestSize]byte) error {
	if uint32(len(path)) != logSize {
		return fmt.Errorf("%w: path length %d, column height %d", ErrInvalidOpening, len(path), logSize)
	}
	if logSize < 32 && pos >= uint32(1)<<logSize {
		return fmt.Errorf("%w: position %d out of range", ErrInvalidOpening, pos)
	}
	h := leafHash(value)
	for l := range path {
		if pos&1 == 0 {
			h = nodeHash(&h, &path[l])
		} else {
			h = nodeHash(&path[l], &h)
		}
		pos >>= 1
	}
	if h != root {
		return ErrInvalidOpening
	}
	return nil
}

// HashRoots commits to a group of column roots.
func HashRoots(roots [][DigestSize]byte) [DigestSize]byte {
	buf := make([]byte, 0, len(roots)*DigestSize)
	for i := range roots {
		buf = append(buf, roots[i][:]...)
	}
	return blake2s.Sum256(buf)
}
