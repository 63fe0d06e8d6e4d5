package stark

import "math/bits"

// A proof run commits to three trees of columns, always in the same order.
const (
	// TreeBase holds the witness columns written during trace generation.
	TreeBase = iota
	// TreeInteraction holds the logup columns written after the interaction
	// elements are drawn.
	TreeInteraction
	// TreeConstant holds the first row selector columns.
	TreeConstant

	NumTrees
)

// TreeColLogSizes declares, per tree, the log2 height of every column in
// commitment order.
type TreeColLogSizes [NumTrees][]uint32

// Append concatenates the per tree columns of other after those of s.
func (s *TreeColLogSizes) Append(other TreeColLogSizes) {
	for t := 0; t < NumTrees; t++ {
		s[t] = append(s[t], other[t]...)
	}
}

// Max returns the largest declared log size, or 0 if there are no columns.
func (s *TreeColLogSizes) Max() uint32 {
	var max uint32
	for t := 0; t < NumTrees; t++ {
		for _, ls := range s[t] {
			if ls > max {
				max = ls
			}
		}
	}
	return max
}

// NumColumns returns the number of declared columns in tree t.
func (s *TreeColLogSizes) NumColumns(t int) int {
	return len(s[t])
}

// NextLogSize returns the log2 height of the smallest domain holding n rows.
// Domains have at least two rows.
func NextLogSize(n int) uint32 {
	if n <= 2 {
		return 1
	}
	return uint32(bits.Len(uint(n - 1)))
}

// UniformSizes declares a component whose columns all share one log size:
// nbBase base columns, nbInteraction interaction columns and one selector.
func UniformSizes(logSize uint32, nbBase, nbInteraction int) TreeColLogSizes {
	var s TreeColLogSizes
	s[TreeBase] = repeatLogSize(logSize, nbBase)
	s[TreeInteraction] = repeatLogSize(logSize, nbInteraction)
	s[TreeConstant] = []uint32{logSize}
	return s
}

func repeatLogSize(logSize uint32, n int) []uint32 {
	s := make([]uint32, n)
	for i := range s {
		s[i] = logSize
	}
	return s
}
