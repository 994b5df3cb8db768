package mmio

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// memBus is a flat register file keyed by address.
type memBus struct {
	regs  map[uint64]uint32
	reads int
	// clearAfter clears register bits after the given number of reads.
	clearAfter map[uint64]int
}

func newMemBus() *memBus {
	return &memBus{regs: map[uint64]uint32{}, clearAfter: map[uint64]int{}}
}

func (m *memBus) Read32(addr uint64) uint32 {
	m.reads++
	if n, ok := m.clearAfter[addr]; ok {
		if n == 0 {
			m.regs[addr] = 0
		} else {
			m.clearAfter[addr] = n - 1
		}
	}
	return m.regs[addr]
}

func (m *memBus) Write32(addr uint64, val uint32) {
	m.regs[addr] = val
}

func TestReadWrite64(t *testing.T) {
	b := newMemBus()
	Write64(b, 0x100, 0x1122334455667788)

	assert.Equal(t, uint32(0x55667788), b.regs[0x100])
	assert.Equal(t, uint32(0x11223344), b.regs[0x104])
	assert.Equal(t, uint64(0x1122334455667788), Read64(b, 0x100))
}

func TestSetClearGet(t *testing.T) {
	b := newMemBus()
	Set(b, 0x10, 1)
	Set(b, 0x10, 4)
	assert.Equal(t, uint32(0b10010), b.regs[0x10])

	Clear(b, 0x10, 1)
	assert.Equal(t, uint32(0b10000), b.regs[0x10])
	assert.Equal(t, uint32(1), Get(b, 0x10, 4, 1))
}

func TestWait(t *testing.T) {
	t.Run("observed", func(t *testing.T) {
		b := newMemBus()
		b.regs[0x0] = 1 << 1
		b.clearAfter[0x0] = 3

		assert.True(t, Wait(b, 0x0, 1, 1, 0, 10))
	})

	t.Run("bounded", func(t *testing.T) {
		b := newMemBus()
		b.regs[0x0] = 1 << 1

		assert.False(t, Wait(b, 0x0, 1, 1, 0, 5))
		assert.Equal(t, 5, b.reads)
	})
}
