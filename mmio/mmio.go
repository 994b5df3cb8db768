// Package mmio provides access to memory-mapped device registers.
//
// Drivers never dereference register addresses themselves; they go through
// a [Bus]. On bare metal the bus is [Direct], which performs volatile 32-bit
// loads and stores at the physical address (the kernel identity-maps the
// MMIO window). Tests and the host tool substitute an emulated bus.
package mmio

import (
	"sync/atomic"
	"unsafe"
)

// Bus performs 32-bit register accesses at physical addresses.
type Bus interface {
	Read32(addr uint64) uint32
	Write32(addr uint64, val uint32)
}

// Direct accesses registers through identity-mapped physical addresses.
type Direct struct{}

// Read32 loads the register at addr.
func (Direct) Read32(addr uint64) uint32 {
	return atomic.LoadUint32((*uint32)(unsafe.Pointer(uintptr(addr))))
}

// Write32 stores val to the register at addr.
func (Direct) Write32(addr uint64, val uint32) {
	atomic.StoreUint32((*uint32)(unsafe.Pointer(uintptr(addr))), val)
}

// Read64 reads a 64-bit register as two dword accesses, low dword first.
func Read64(b Bus, addr uint64) uint64 {
	lo := b.Read32(addr)
	hi := b.Read32(addr + 4)
	return uint64(hi)<<32 | uint64(lo)
}

// Write64 writes a 64-bit register as two dword accesses, low dword first.
func Write64(b Bus, addr uint64, val uint64) {
	b.Write32(addr, uint32(val))
	b.Write32(addr+4, uint32(val>>32))
}

// Set sets bit pos of the register at addr.
func Set(b Bus, addr uint64, pos int) {
	b.Write32(addr, b.Read32(addr)|1<<pos)
}

// Clear clears bit pos of the register at addr.
func Clear(b Bus, addr uint64, pos int) {
	b.Write32(addr, b.Read32(addr)&^(1<<pos))
}

// Get returns the field of width mask at bit pos.
func Get(b Bus, addr uint64, pos int, mask uint32) uint32 {
	return (b.Read32(addr) >> pos) & mask
}

// Wait polls the field of width mask at bit pos until it equals val or
// limit reads have been made. It reports whether the value was observed.
func Wait(b Bus, addr uint64, pos int, mask uint32, val uint32, limit int) bool {
	for i := 0; i < limit; i++ {
		if Get(b, addr, pos, mask) == val {
			return true
		}
	}
	return false
}
