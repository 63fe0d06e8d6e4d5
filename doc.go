// Package cairn provides a STARK prover and verifier for Cairo-VM executions
// over the Mersenne31 field.
//
// The high level entry points live in the cairo package:
//   - cairo.Prove turns a VM execution (package input) into a cairo.Proof
//   - cairo.Verify checks a cairo.Proof against its embedded public data
//
// Supporting packages (field arithmetic, Fiat-Shamir channel, commitment
// scheme, logup relations) are exported so that new trace components can be
// written against the same engine.
package cairn

import (
	"github.com/blang/semver/v4"
)

var Version = semver.MustParse("0.1.0")
