package stark

import (
	"github.com/cairn-zk/cairn/field/m31"
	"github.com/cairn-zk/cairn/merkle"
)

// Proof carries the commitments and query openings of one run. It embeds no
// layout information: every shape is checked against the declared claims at
// verification time.
type Proof struct {
	// ColumnRoots holds, per tree, the Merkle root of every column in
	// commitment order. The digest mixed into the transcript for a tree is
	// the hash of its column roots.
	ColumnRoots [NumTrees][][merkle.DigestSize]byte

	// Openings holds, per tree, one entry per sampled query position, in
	// ascending position order.
	Openings [NumTrees][]QueryOpening
}

// QueryOpening opens every column of one tree around one sampled position.
type QueryOpening struct {
	// Columns has one opening per column of the tree, in commitment order.
	Columns []ColumnOpening
}

// ColumnOpening opens one column at the rows mapped from a sampled position:
// the row itself and its two cyclic neighbors.
type ColumnOpening struct {
	Values [NumOffsets]m31.Element
	Paths  [NumOffsets][][merkle.DigestSize]byte
}
