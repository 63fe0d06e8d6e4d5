package cairo

import (
	"fmt"

	"github.com/cairn-zk/cairn/channel"
	"github.com/cairn-zk/cairn/logger"
	"github.com/cairn-zk/cairn/stark"
)

// Verify checks a proof. It replays the prover's transcript schedule, so
// any divergence between the claims carried by the proof and the committed
// traces surfaces as a verification error. Failures are reported through
// typed errors; malformed proofs are rejected, never a cause for a panic.
func Verify(proof *Proof, cfg stark.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	claim := &proof.Claim
	ic := &proof.InteractionClaim
	if err := checkShapes(claim, ic); err != nil {
		return err
	}

	pcsv := stark.NewCommitmentSchemeVerifier(cfg)
	ch := channel.New()
	sizes := claim.LogSizes()

	claim.MixInto(ch)
	if err := pcsv.Commit(stark.TreeBase, sizes[stark.TreeBase], proof.Stark.ColumnRoots[stark.TreeBase], ch); err != nil {
		return fmt.Errorf("cairo: base trace commitment: %w", err)
	}

	elements := DrawInteractionElements(ch)

	if !ic.Consistent() {
		return fmt.Errorf("%w: a component's claimed sum does not match its chain totals", ErrInvalidLogupSum)
	}
	if !LookupSumValid(claim, &elements, ic) {
		return fmt.Errorf("%w: interaction claims and public memory terms", ErrInvalidLogupSum)
	}

	ic.MixInto(ch)
	if err := pcsv.Commit(stark.TreeInteraction, sizes[stark.TreeInteraction], proof.Stark.ColumnRoots[stark.TreeInteraction], ch); err != nil {
		return fmt.Errorf("cairo: interaction trace commitment: %w", err)
	}
	if err := pcsv.Commit(stark.TreeConstant, sizes[stark.TreeConstant], proof.Stark.ColumnRoots[stark.TreeConstant], ch); err != nil {
		return fmt.Errorf("cairo: constant trace commitment: %w", err)
	}

	comps, err := NewComponents(claim, &elements, ic)
	if err != nil {
		return err
	}
	if err := stark.Verify(comps.Verifiers(), ch, pcsv, &proof.Stark); err != nil {
		return fmt.Errorf("cairo: stark verification failed: %w", err)
	}

	log := logger.Logger()
	log.Debug().Str("backend", "cairo").Msg("proof verified")
	return nil
}
