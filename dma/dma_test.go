package dma

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ardnew/softxhci/pkg"
)

func newTestArena(size int) *Arena {
	return New(make([]byte, size), 0x10000)
}

func TestArena_AllocAlignment(t *testing.T) {
	a := newTestArena(4096)

	b1, err := a.Alloc(10, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x10000), b1.Addr)

	b2, err := a.Alloc(64, 64, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x10040), b2.Addr)
	assert.Len(t, b2.Bytes, 64)
	assert.Equal(t, 0x80, a.Used())
}

func TestArena_AllocBoundary(t *testing.T) {
	a := newTestArena(8192)

	_, err := a.Alloc(0xF00, 1, 0)
	require.NoError(t, err)

	// 0x10F00..0x11100 would cross a 4 KiB boundary.
	b, err := a.Alloc(0x200, 64, 0x1000)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x11000), b.Addr)
}

func TestArena_Exhausted(t *testing.T) {
	a := newTestArena(128)

	_, err := a.Alloc(100, 1, 0)
	require.NoError(t, err)

	_, err = a.Alloc(64, 1, 0)
	assert.ErrorIs(t, err, pkg.ErrNoResources)
}

func TestArena_AllocZeroes(t *testing.T) {
	buf := make([]byte, 64)
	for i := range buf {
		buf[i] = 0xFF
	}
	a := New(buf, 0)

	b, err := a.Alloc(32, 8, 0)
	require.NoError(t, err)
	assert.Equal(t, make([]byte, 32), b.Bytes)
}

func TestArena_Slice(t *testing.T) {
	a := newTestArena(256)
	b, err := a.Alloc(16, 16, 0)
	require.NoError(t, err)
	Store32(b.Bytes, 4, 0xCAFEF00D)

	s, ok := a.Slice(b.Addr+4, 4)
	require.True(t, ok)
	assert.Equal(t, uint32(0xCAFEF00D), Load32(s, 0))

	_, ok = a.Slice(0x100, 4)
	assert.False(t, ok)
	_, ok = a.Slice(a.Base()+250, 16)
	assert.False(t, ok)
}

func TestLoadStore64(t *testing.T) {
	b := make([]byte, 16)
	Store64(b, 8, 0x0123456789ABCDEF)

	assert.Equal(t, uint32(0x89ABCDEF), Load32(b, 8))
	assert.Equal(t, uint32(0x01234567), Load32(b, 12))
	assert.Equal(t, uint64(0x0123456789ABCDEF), Load64(b, 8))
}

func TestNewStatic(t *testing.T) {
	a := NewStatic()
	assert.Equal(t, StaticSize, a.Size())
	assert.Zero(t, a.Base()%8)
}
