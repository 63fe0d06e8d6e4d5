// Package cairo assembles the trace components of one Cairo execution into a
// single proof and verifies it.
//
// A proving run follows a fixed transcript schedule: the claim is absorbed,
// the base trace committed, the interaction elements drawn, the interaction
// trace committed and the constant trace committed, before the engine
// samples its query rows. The verifier replays the same schedule, so every
// challenge is a deterministic function of the commitments preceding it.
//
// Components communicate through three logup relations: addrToID resolves an
// address to a memory id, idToValue resolves an id to a 252 bit value, and
// rangeCheck99 bounds limb pairs. The verifier accepts only if the claimed
// running sum totals of all components, together with one unit term per
// public memory entry, cancel to zero, and the sampled constraint replay
// passes.
package cairo
