package stark

import (
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cairn-zk/cairn/channel"
	"github.com/cairn-zk/cairn/field/m31"
	"github.com/cairn-zk/cairn/field/qm31"
	"github.com/cairn-zk/cairn/logger"
	"github.com/cairn-zk/cairn/merkle"
)

// Verify replays the opening phase against the registered commitments: it
// draws the same challenge and positions as the prover, checks every opening
// against its column root, checks the selector openings against their
// definition, and re-evaluates the batched constraint residual at every
// sampled row.
//
// It is total on malformed proofs: every failure is an error, never a panic.
func Verify(components []Component, ch *channel.Channel, pcsv *CommitmentSchemeVerifier, proof *Proof) error {
	log := logger.Logger().With().Str("backend", "stark").Logger()
	start := time.Now()

	for t := 0; t < NumTrees; t++ {
		if !pcsv.committed[t] {
			panic(fmt.Sprintf("stark: tree %d not committed", t))
		}
	}
	logMax, err := checkDeclaredLayout(components, pcsv)
	if err != nil {
		return err
	}

	alpha := ch.DrawFelt()
	positions := ch.DrawQueryPositions(pcsv.cfg.NQueries, logMax)

	var g errgroup.Group
	for t := 0; t < NumTrees; t++ {
		g.Go(func() error {
			return verifyTreeOpenings(pcsv, proof, t, positions, logMax)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	// The openings are sound; replay the constraints on them.
	evals := make([]*PointEvaluator, len(components))
	for i, c := range components {
		span := c.TraceLocation()
		evals[i] = newPointEvaluator(span.Base.Len(), span.Interaction.Len(), alpha)
	}
	for q, pos := range positions {
		var acc qm31.Element
		pow := qm31.One()
		for i, c := range components {
			e := evals[i]
			e.loadFromProof(proof, c.TraceLocation(), c.LogSize(), pos, logMax, q)
			e.reset(pow)
			c.EvaluateConstraints(e)
			acc.Add(&acc, &e.acc)
			pow = e.pow
		}
		if !acc.IsZero() {
			return fmt.Errorf("%w: query position %d", ErrConstraintsNotSatisfied, pos)
		}
	}

	log.Debug().
		Dur("took", time.Since(start)).
		Int("queries", len(positions)).
		Msg("verifier done")
	return nil
}

// checkDeclaredLayout confirms that the component spans tile the declared
// column sizes exactly, and returns the largest component log size.
func checkDeclaredLayout(components []Component, pcsv *CommitmentSchemeVerifier) (uint32, error) {
	var nb [NumTrees]int
	var logMax uint32
	for i, c := range components {
		span := c.TraceLocation()
		ls := c.LogSize()
		if ls > logMax {
			logMax = ls
		}
		for col := span.Base.Start; col < span.Base.End; col++ {
			if col >= len(pcsv.logSizes[TreeBase]) || pcsv.logSizes[TreeBase][col] != ls {
				return 0, fmt.Errorf("%w: component %d base column %d", ErrProofShape, i, col)
			}
		}
		for col := span.Interaction.Start; col < span.Interaction.End; col++ {
			if col >= len(pcsv.logSizes[TreeInteraction]) || pcsv.logSizes[TreeInteraction][col] != ls {
				return 0, fmt.Errorf("%w: component %d interaction column %d", ErrProofShape, i, col)
			}
		}
		if span.Constant >= len(pcsv.logSizes[TreeConstant]) || pcsv.logSizes[TreeConstant][span.Constant] != ls {
			return 0, fmt.Errorf("%w: component %d selector column %d", ErrProofShape, i, span.Constant)
		}
		nb[TreeBase] += span.Base.Len()
		nb[TreeInteraction] += span.Interaction.Len()
		nb[TreeConstant]++
	}
	for t := 0; t < NumTrees; t++ {
		if nb[t] != len(pcsv.logSizes[t]) {
			return 0, fmt.Errorf("%w: tree %d declares %d columns, components span %d",
				ErrProofShape, t, len(pcsv.logSizes[t]), nb[t])
		}
	}
	return logMax, nil
}

func verifyTreeOpenings(pcsv *CommitmentSchemeVerifier, proof *Proof, t int, positions []uint32, logMax uint32) error {
	sizes := pcsv.logSizes[t]
	if len(proof.Openings[t]) != len(positions) {
		return fmt.Errorf("%w: tree %d has %d query openings, want %d",
			ErrProofShape, t, len(proof.Openings[t]), len(positions))
	}
	for q, pos := range positions {
		qo := &proof.Openings[t][q]
		if len(qo.Columns) != len(sizes) {
			return fmt.Errorf("%w: tree %d query %d opens %d columns, want %d",
				ErrProofShape, t, q, len(qo.Columns), len(sizes))
		}
		for col := range qo.Columns {
			co := &qo.Columns[col]
			l := sizes[col]
			n := uint32(1) << l
			cur := pos >> (logMax - l)
			rows := [NumOffsets]uint32{(cur + n - 1) & (n - 1), cur, (cur + 1) & (n - 1)}
			for o, r := range rows {
				if err := merkle.VerifyOpening(pcsv.roots[t][col], l, r, co.Values[o], co.Paths[o]); err != nil {
					return fmt.Errorf("%w: tree %d column %d row %d: %s", ErrInvalidOpening, t, col, r, err)
				}
				if t == TreeConstant {
					want := m31.Zero()
					if r == 0 {
						want = m31.One()
					}
					if !co.Values[o].Equal(&want) {
						return fmt.Errorf("%w: column %d row %d", ErrSelectorMismatch, col, r)
					}
				}
			}
		}
	}
	return nil
}

// loadFromProof fills the evaluator buffers with the verified openings of one
// component at one query.
func (e *PointEvaluator) loadFromProof(proof *Proof, span ComponentSpan, logSize, pos, logMax uint32, q int) {
	e.row = pos >> (logMax - logSize)

	for i := 0; i < span.Base.Len(); i++ {
		e.base[i] = proof.Openings[TreeBase][q].Columns[span.Base.Start+i].Values
	}
	for i := 0; i < span.Interaction.Len(); i++ {
		e.inter[i] = proof.Openings[TreeInteraction][q].Columns[span.Interaction.Start+i].Values
	}
	e.isFirst = proof.Openings[TreeConstant][q].Columns[span.Constant].Values
}
