package stark

import (
	"fmt"
	"math/bits"

	"github.com/cairn-zk/cairn/channel"
	"github.com/cairn-zk/cairn/field/m31"
	"github.com/cairn-zk/cairn/internal/parallel"
	"github.com/cairn-zk/cairn/merkle"
)

// CommitmentSchemeProver commits to the three column trees of a proving run
// and retains the raw columns for the opening phase.
type CommitmentSchemeProver struct {
	cfg   Config
	trees [NumTrees]*committedTree
}

type committedTree struct {
	columns [][]m31.Element
	merkles []*merkle.Tree
	roots   [][merkle.DigestSize]byte
	root    [merkle.DigestSize]byte
}

// NewCommitmentSchemeProver returns an empty scheme.
func NewCommitmentSchemeProver(cfg Config) *CommitmentSchemeProver {
	return &CommitmentSchemeProver{cfg: cfg}
}

// TreeBuilder starts the commitment of tree t. Each tree is committed exactly
// once, in the order base, interaction, constant.
func (s *CommitmentSchemeProver) TreeBuilder(t int) *TreeBuilder {
	if s.trees[t] != nil {
		panic(fmt.Sprintf("stark: tree %d already committed", t))
	}
	return &TreeBuilder{scheme: s, tree: t}
}

// Trace returns the committed columns for the constraint sweep. All trees
// must be committed first.
func (s *CommitmentSchemeProver) Trace() *Trace {
	tr := &Trace{}
	for t := 0; t < NumTrees; t++ {
		if s.trees[t] == nil {
			panic(fmt.Sprintf("stark: tree %d not committed", t))
		}
		tr.Trees[t] = s.trees[t].columns
	}
	return tr
}

// TreeBuilder accumulates the columns of one tree before its commitment.
type TreeBuilder struct {
	scheme  *CommitmentSchemeProver
	tree    int
	columns [][]m31.Element
}

// Append adds columns to the tree in commitment order.
func (b *TreeBuilder) Append(cols ...[]m31.Element) {
	b.columns = append(b.columns, cols...)
}

// Commit builds the per column Merkle trees, absorbs the tree root into the
// transcript and hands the columns over to the scheme.
func (b *TreeBuilder) Commit(ch *channel.Channel) error {
	for i, col := range b.columns {
		n := len(col)
		if n == 0 || n&(n-1) != 0 {
			return fmt.Errorf("stark: column %d of tree %d has length %d, want a power of two", i, b.tree, n)
		}
		if uint32(bits.TrailingZeros(uint(n))) > b.scheme.cfg.LogMaxRows {
			return fmt.Errorf("%w: column %d of tree %d has log size %d, maximum %d",
				ErrTraceTooLarge, i, b.tree, bits.TrailingZeros(uint(n)), b.scheme.cfg.LogMaxRows)
		}
	}

	ct := &committedTree{
		columns: b.columns,
		merkles: make([]*merkle.Tree, len(b.columns)),
		roots:   make([][merkle.DigestSize]byte, len(b.columns)),
	}
	parallel.Execute(len(b.columns), func(start, end int) {
		for i := start; i < end; i++ {
			ct.merkles[i] = merkle.NewTree(b.columns[i])
			ct.roots[i] = ct.merkles[i].Root()
		}
	})
	ct.root = merkle.HashRoots(ct.roots)

	b.scheme.trees[b.tree] = ct
	ch.MixDigest(ct.root)
	return nil
}

// CommitmentSchemeVerifier mirrors the prover side commitments from the
// declared column sizes and the roots carried by the proof.
type CommitmentSchemeVerifier struct {
	cfg       Config
	logSizes  [NumTrees][]uint32
	roots     [NumTrees][][merkle.DigestSize]byte
	committed [NumTrees]bool
}

// NewCommitmentSchemeVerifier returns an empty scheme.
func NewCommitmentSchemeVerifier(cfg Config) *CommitmentSchemeVerifier {
	return &CommitmentSchemeVerifier{cfg: cfg}
}

// Commit registers tree t: it checks the per column roots against the
// declared column sizes and absorbs the recomputed tree root into the
// transcript, exactly as the prover did.
func (v *CommitmentSchemeVerifier) Commit(t int, declared []uint32, columnRoots [][merkle.DigestSize]byte, ch *channel.Channel) error {
	if v.committed[t] {
		panic(fmt.Sprintf("stark: tree %d already committed", t))
	}
	if len(columnRoots) != len(declared) {
		return fmt.Errorf("%w: tree %d has %d column roots, claims declare %d columns",
			ErrProofShape, t, len(columnRoots), len(declared))
	}
	for i, ls := range declared {
		if ls > v.cfg.LogMaxRows {
			return fmt.Errorf("%w: column %d of tree %d has log size %d, maximum %d",
				ErrTraceTooLarge, i, t, ls, v.cfg.LogMaxRows)
		}
	}
	v.logSizes[t] = declared
	v.roots[t] = columnRoots
	v.committed[t] = true
	ch.MixDigest(merkle.HashRoots(columnRoots))
	return nil
}
