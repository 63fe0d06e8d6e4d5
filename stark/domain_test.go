package stark

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cairn-zk/cairn/field/m31"
)

func TestDomainCache(t *testing.T) {
	assert := require.New(t)

	cache, err := NewDomainCache(8)
	assert.NoError(err)
	assert.Equal(uint32(8), cache.LogMaxRows())

	for ls := uint32(0); ls <= 8; ls++ {
		col, err := cache.IsFirst(ls)
		assert.NoError(err)
		assert.Len(col, 1<<ls)
		one := m31.One()
		assert.True(col[0].Equal(&one))
		for r := 1; r < len(col); r++ {
			assert.True(col[r].IsZero(), "log size %d row %d", ls, r)
		}
	}

	_, err = cache.IsFirst(9)
	assert.ErrorIs(err, ErrTraceTooLarge)
}

func TestDomainCacheBounds(t *testing.T) {
	assert := require.New(t)

	_, err := NewDomainCache(0)
	assert.Error(err)
	_, err = NewDomainCache(29)
	assert.Error(err)
}
