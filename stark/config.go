package stark

import "fmt"

// Config bounds a proving or verifying run. The same values must be used on
// both sides of a proof.
type Config struct {
	// LogMaxRows bounds the log2 height of any committed column. The domain
	// cache is precomputed up to this bound.
	LogMaxRows uint32

	// NQueries is the number of rows sampled from the transcript after the
	// commitment phase.
	NQueries int
}

// DefaultConfig returns the configuration used by the command line tools.
func DefaultConfig() Config {
	return Config{
		LogMaxRows: 20,
		NQueries:   16,
	}
}

// Validate checks that the configuration is usable.
func (cfg Config) Validate() error {
	if cfg.LogMaxRows < 1 || cfg.LogMaxRows > 28 {
		return fmt.Errorf("stark: log max rows %d outside [1, 28]", cfg.LogMaxRows)
	}
	if cfg.NQueries < 1 || cfg.NQueries > 256 {
		return fmt.Errorf("stark: query count %d outside [1, 256]", cfg.NQueries)
	}
	return nil
}
