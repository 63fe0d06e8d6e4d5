package stark

import (
	"fmt"
	"time"

	"github.com/cairn-zk/cairn/channel"
	"github.com/cairn-zk/cairn/internal/parallel"
	"github.com/cairn-zk/cairn/logger"
)

// Prove runs the opening phase: it draws the batching challenge and the query
// positions from the transcript, sweeps the committed trace to confirm every
// constraint holds, and opens the sampled rows of every column.
//
// All three trees must have been committed through pcs before the call.
func Prove(components []ComponentProver, ch *channel.Channel, pcs *CommitmentSchemeProver) (*Proof, error) {
	log := logger.Logger().With().Str("backend", "stark").Logger()
	start := time.Now()

	tr := pcs.Trace()
	logMax, err := checkLayout(componentsOf(components), tr)
	if err != nil {
		return nil, err
	}

	// drawn for transcript alignment with the verifier, which uses it to
	// batch the residuals at the sampled rows
	_ = ch.DrawFelt()

	sweepStart := time.Now()
	for i, c := range components {
		var acc DomainAccumulator
		c.EvaluateDomain(tr, &acc)
		if f := acc.Failure(); f != nil {
			return nil, fmt.Errorf("%w: component %d, row %d, constraint %d",
				ErrConstraintsNotSatisfied, i, f.Row, f.Constraint)
		}
	}
	log.Debug().Dur("took", time.Since(sweepStart)).Msg("constraint sweep clean")

	positions := ch.DrawQueryPositions(pcs.cfg.NQueries, logMax)

	proof := &Proof{}
	for t := 0; t < NumTrees; t++ {
		ct := pcs.trees[t]
		proof.ColumnRoots[t] = ct.roots
		proof.Openings[t] = make([]QueryOpening, len(positions))
		for q, pos := range positions {
			cols := make([]ColumnOpening, len(ct.columns))
			parallel.Execute(len(cols), func(cstart, cend int) {
				for i := cstart; i < cend; i++ {
					cols[i] = openColumn(ct, i, pos, logMax)
				}
			})
			proof.Openings[t][q] = QueryOpening{Columns: cols}
		}
	}

	log.Debug().
		Dur("took", time.Since(start)).
		Int("queries", len(positions)).
		Uint32("logMaxRows", logMax).
		Msg("prover done")
	return proof, nil
}

func componentsOf(provers []ComponentProver) []Component {
	cs := make([]Component, len(provers))
	for i, p := range provers {
		cs[i] = p
	}
	return cs
}

// checkLayout confirms that the component spans tile the committed trees
// exactly and that every column has its component's height. It returns the
// largest component log size.
func checkLayout(components []Component, tr *Trace) (uint32, error) {
	var nb [NumTrees]int
	var logMax uint32
	for i, c := range components {
		span := c.TraceLocation()
		n := 1 << c.LogSize()
		if c.LogSize() > logMax {
			logMax = c.LogSize()
		}
		for col := span.Base.Start; col < span.Base.End; col++ {
			if col >= len(tr.Trees[TreeBase]) || len(tr.Trees[TreeBase][col]) != n {
				return 0, fmt.Errorf("%w: component %d base column %d", ErrLayoutMismatch, i, col)
			}
		}
		for col := span.Interaction.Start; col < span.Interaction.End; col++ {
			if col >= len(tr.Trees[TreeInteraction]) || len(tr.Trees[TreeInteraction][col]) != n {
				return 0, fmt.Errorf("%w: component %d interaction column %d", ErrLayoutMismatch, i, col)
			}
		}
		if span.Constant >= len(tr.Trees[TreeConstant]) || len(tr.Trees[TreeConstant][span.Constant]) != n {
			return 0, fmt.Errorf("%w: component %d selector column %d", ErrLayoutMismatch, i, span.Constant)
		}
		nb[TreeBase] += span.Base.Len()
		nb[TreeInteraction] += span.Interaction.Len()
		nb[TreeConstant]++
	}
	for t := 0; t < NumTrees; t++ {
		if nb[t] != len(tr.Trees[t]) {
			return 0, fmt.Errorf("%w: tree %d has %d columns, components span %d", ErrLayoutMismatch, t, len(tr.Trees[t]), nb[t])
		}
	}
	return logMax, nil
}

func openColumn(ct *committedTree, i int, pos, logMax uint32) ColumnOpening {
	tree := ct.merkles[i]
	l := tree.LogSize()
	n := uint32(1) << l
	cur := pos >> (logMax - l)
	rows := [NumOffsets]uint32{(cur + n - 1) & (n - 1), cur, (cur + 1) & (n - 1)}

	var co ColumnOpening
	for o, r := range rows {
		co.Values[o] = ct.columns[i][r]
		co.Paths[o] = tree.Open(r)
	}
	return co
}
