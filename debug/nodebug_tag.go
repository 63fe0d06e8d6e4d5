//go:build !debug

package debug

// Debug is false in regular builds.
const Debug = false
