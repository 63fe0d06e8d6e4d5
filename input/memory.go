package input

import (
	"fmt"
	"io"

	"github.com/bits-and-blooms/bitset"

	"github.com/cairn-zk/cairn/felt"
	"github.com/cairn-zk/cairn/internal/ioutils"
)

// maxDumpWords bounds a single decompressed stream of a memory dump.
const maxDumpWords = 1 << 28

// Memory is the write once address space of one execution: felt252 cells
// with bitset tracked occupancy.
type Memory struct {
	cells []felt.Felt
	known *bitset.BitSet
}

// NewMemory returns an empty memory.
func NewMemory() *Memory {
	return &Memory{known: bitset.New(0)}
}

// Write sets the cell at addr. Rewriting a cell with the same value is a
// no-op, rewriting it with a different value is an error.
func (m *Memory) Write(addr uint32, v felt.Felt) error {
	if m.known.Test(uint(addr)) {
		if cur := m.cells[addr]; !cur.Equal(&v) {
			return fmt.Errorf("memory: conflicting write at address %d: %s then %s", addr, cur, v)
		}
		return nil
	}
	if n := int(addr) + 1; n > len(m.cells) {
		m.cells = append(m.cells, make([]felt.Felt, n-len(m.cells))...)
	}
	m.cells[addr] = v
	m.known.Set(uint(addr))
	return nil
}

// At returns the cell at addr, or the zero value for an unwritten cell.
func (m *Memory) At(addr uint32) felt.Felt {
	if int(addr) >= len(m.cells) {
		return felt.Felt{}
	}
	return m.cells[addr]
}

// Known reports whether addr has been written.
func (m *Memory) Known(addr uint32) bool {
	return m.known.Test(uint(addr))
}

// MaxAddress returns the highest written address, or 0 for an empty memory.
func (m *Memory) MaxAddress() uint32 {
	if len(m.cells) == 0 {
		return 0
	}
	return uint32(len(m.cells)) - 1
}

// WriteTo dumps the memory as two compressed integer streams: the sorted
// written addresses, then 8 words per written cell.
func (m *Memory) WriteTo(w io.Writer) (int64, error) {
	addrs := make([]uint32, 0, m.known.Count())
	for i, ok := m.known.NextSet(0); ok; i, ok = m.known.NextSet(i + 1) {
		addrs = append(addrs, uint32(i))
	}
	written, err := ioutils.CompressAndWriteUints32(w, addrs)
	if err != nil {
		return written, err
	}

	words := make([]uint32, 0, len(addrs)*felt.Words)
	for _, a := range addrs {
		words = append(words, m.cells[a][:]...)
	}
	n, err := ioutils.CompressAndWriteUints32(w, words)
	return written + n, err
}

// ReadFrom restores a dump produced by WriteTo, replacing the receiver's
// contents.
func (m *Memory) ReadFrom(r io.Reader) (int64, error) {
	read, addrs, err := ioutils.ReadAndDecompressUints32(r, maxDumpWords)
	if err != nil {
		return read, err
	}
	n, words, err := ioutils.ReadAndDecompressUints32(r, maxDumpWords)
	read += n
	if err != nil {
		return read, err
	}
	if len(words) != len(addrs)*felt.Words {
		return read, fmt.Errorf("memory: dump carries %d value words for %d addresses", len(words), len(addrs))
	}

	m.cells = nil
	m.known = bitset.New(0)
	for i, a := range addrs {
		var v felt.Felt
		copy(v[:], words[i*felt.Words:])
		if err := m.Write(a, v); err != nil {
			return read, err
		}
	}
	return read, nil
}
