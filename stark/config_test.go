package stark

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
		ok   bool
	}{
		{"default", DefaultConfig(), true},
		{"smallest", Config{LogMaxRows: 1, NQueries: 1}, true},
		{"largest", Config{LogMaxRows: 28, NQueries: 256}, true},
		{"zero rows", Config{LogMaxRows: 0, NQueries: 16}, false},
		{"rows too large", Config{LogMaxRows: 29, NQueries: 16}, false},
		{"zero queries", Config{LogMaxRows: 20, NQueries: 0}, false},
		{"too many queries", Config{LogMaxRows: 20, NQueries: 257}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
