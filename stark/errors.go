package stark

import "errors"

var (
	// ErrTraceTooLarge is returned when a claim asks for a column higher than
	// the configured maximum.
	ErrTraceTooLarge = errors.New("stark: trace exceeds configured maximum size")

	// ErrConstraintsNotSatisfied is returned by the prover when a committed
	// trace violates a constraint, and by the verifier when the batched
	// residual at a sampled row is not zero.
	ErrConstraintsNotSatisfied = errors.New("stark: constraint residual is not zero")

	// ErrProofShape is returned when a proof does not have the structure the
	// claims declare.
	ErrProofShape = errors.New("stark: malformed proof")

	// ErrInvalidOpening is returned when a Merkle opening in the proof does
	// not match the committed root.
	ErrInvalidOpening = errors.New("stark: invalid trace opening")

	// ErrSelectorMismatch is returned when an opened first row selector value
	// does not match its definition.
	ErrSelectorMismatch = errors.New("stark: first row selector opening mismatch")

	// ErrLayoutMismatch is returned by the prover when the components and the
	// committed trees disagree on the column layout.
	ErrLayoutMismatch = errors.New("stark: component layout does not match committed trace")
)
