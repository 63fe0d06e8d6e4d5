package parallel

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExecuteCoversRange(t *testing.T) {
	const n = 1000
	var hits [n]int32
	Execute(n, func(start, end int) {
		for i := start; i < end; i++ {
			atomic.AddInt32(&hits[i], 1)
		}
	})
	for i := range hits {
		assert.Equal(t, int32(1), hits[i], "index %d", i)
	}
}

func TestExecuteSmallRange(t *testing.T) {
	var count int32
	Execute(3, func(start, end int) {
		atomic.AddInt32(&count, int32(end-start))
	})
	assert.Equal(t, int32(3), count)
}

func TestExecuteEmptyRange(t *testing.T) {
	Execute(0, func(start, end int) {
		t.Fatal("work called on empty range")
	})
}
