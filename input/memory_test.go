package input

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cairn-zk/cairn/felt"
)

func TestMemoryWriteOnce(t *testing.T) {
	m := NewMemory()

	require.NoError(t, m.Write(3, felt.FromUint64(7)))
	assert.True(t, m.Known(3))
	assert.False(t, m.Known(2))
	assert.Equal(t, felt.FromUint64(7), m.At(3))
	assert.Equal(t, felt.Felt{}, m.At(100))

	// Same value again is fine, a different one is not.
	require.NoError(t, m.Write(3, felt.FromUint64(7)))
	err := m.Write(3, felt.FromUint64(8))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "conflicting write")
	assert.Equal(t, felt.FromUint64(7), m.At(3))
}

func TestMemoryMaxAddress(t *testing.T) {
	m := NewMemory()
	assert.Equal(t, uint32(0), m.MaxAddress())

	require.NoError(t, m.Write(10, felt.FromUint64(1)))
	require.NoError(t, m.Write(4, felt.FromUint64(2)))
	assert.Equal(t, uint32(10), m.MaxAddress())
}

func TestMemoryDumpRoundTrip(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.Write(1, felt.FromUint64(11)))
	require.NoError(t, m.Write(5, felt.FromUint64(55)))
	var wide felt.Felt
	wide[7] = 0x0ABCDEF0
	require.NoError(t, m.Write(1000, wide))

	var buf bytes.Buffer
	n, err := m.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)

	got := NewMemory()
	require.NoError(t, got.Write(77, felt.FromUint64(9))) // replaced by the dump
	read, err := got.ReadFrom(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, n, read)

	assert.False(t, got.Known(77))
	assert.True(t, got.Known(1))
	assert.True(t, got.Known(5))
	assert.True(t, got.Known(1000))
	assert.False(t, got.Known(2))
	assert.Equal(t, felt.FromUint64(11), got.At(1))
	assert.Equal(t, felt.FromUint64(55), got.At(5))
	assert.Equal(t, wide, got.At(1000))
	assert.Equal(t, uint32(1000), got.MaxAddress())
}

func TestMemoryDumpTruncated(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.Write(2, felt.FromUint64(42)))

	var buf bytes.Buffer
	_, err := m.WriteTo(&buf)
	require.NoError(t, err)

	truncated := buf.Bytes()[:buf.Len()-3]
	_, err = NewMemory().ReadFrom(bytes.NewReader(truncated))
	require.Error(t, err)
}
