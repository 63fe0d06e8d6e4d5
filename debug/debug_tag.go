//go:build debug

package debug

// Debug is true when the debug build tag is set. It enables the prover side
// self checks (full constraint sweeps, logup cancellation) and verbose logs
// in tests.
const Debug = true
