package cairo

import "errors"

var (
	// ErrInvalidLogupSum is returned by the verifier when the interaction
	// claims and the public memory terms do not cancel. It fires before any
	// constraint is replayed.
	ErrInvalidLogupSum = errors.New("cairo: logup sums do not cancel")

	// ErrClaimShape is returned when a proof's claims are structurally
	// malformed.
	ErrClaimShape = errors.New("cairo: malformed claim")
)
