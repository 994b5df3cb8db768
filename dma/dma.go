// Package dma provides the statically reserved memory that the driver
// shares with the host controller.
//
// All controller-visible structures (rings, contexts, the device context
// base address array, transfer buffers) are carved from one [Arena] that is
// sized once at build time and never returned. This keeps the driver free
// of general-purpose allocation, which is not available at boot.
//
// Controller-visible words are read and written with [Load32], [Store32],
// [Load64] and [Store64]. The stores are ordered, so writing a TRB's cycle
// dword last publishes the whole TRB to the controller. Words are accessed in
// host byte order; the supported targets (amd64, arm64) are little-endian,
// which is the controller's byte order.
package dma

import (
	"sync/atomic"
	"unsafe"

	"github.com/ardnew/softxhci/pkg"
)

// StaticSize is the size of the arena backing the boot-time controller.
const StaticSize = 256 << 10

// static is the reserved region for NewStatic. It is declared as uint64 so
// that its first byte is 8-byte aligned.
var static [StaticSize / 8]uint64

// Block is a contiguous allocation inside an arena.
type Block struct {
	Addr  uint64 // Physical address of Bytes[0]
	Bytes []byte
}

// Arena is a bump allocator over a fixed region of physical memory.
type Arena struct {
	base uint64
	buf  []byte
	off  int
}

// New returns an arena over buf, whose first byte is at physical address
// base. buf must be at least 8-byte aligned.
func New(buf []byte, base uint64) *Arena {
	return &Arena{base: base, buf: buf}
}

// NewStatic returns an arena over the package's reserved region. The kernel
// identity-maps memory, so the virtual address of the region is its
// physical address.
func NewStatic() *Arena {
	buf := unsafe.Slice((*byte)(unsafe.Pointer(&static[0])), StaticSize)
	return New(buf, uint64(uintptr(unsafe.Pointer(&static[0]))))
}

// Base returns the physical address of the arena's first byte.
func (a *Arena) Base() uint64 { return a.base }

// Size returns the arena capacity in bytes.
func (a *Arena) Size() int { return len(a.buf) }

// Used returns the number of bytes consumed, including alignment padding.
func (a *Arena) Used() int { return a.off }

// Alloc returns a zeroed block of size bytes whose physical address is a
// multiple of align and which does not cross a multiple of boundary.
// A zero boundary means no boundary constraint.
func (a *Arena) Alloc(size, align, boundary int) (Block, error) {
	if size <= 0 || align <= 0 || align&(align-1) != 0 {
		return Block{}, pkg.Errorf(pkg.CauseInvalidState, "bad allocation size %d align %d", size, align)
	}
	if boundary > 0 && size > boundary {
		return Block{}, pkg.Errorf(pkg.CauseNoResources, "allocation of %d bytes exceeds boundary %d", size, boundary)
	}

	addr := alignUp(a.base+uint64(a.off), uint64(align))
	if boundary > 0 {
		b := uint64(boundary)
		if addr/b != (addr+uint64(size)-1)/b {
			addr = alignUp(addr, b)
		}
	}

	start := int(addr - a.base)
	end := start + size
	if end > len(a.buf) {
		return Block{}, pkg.Errorf(pkg.CauseNoResources, "arena exhausted: need %d bytes, %d free", size, len(a.buf)-a.off)
	}
	a.off = end

	blk := Block{Addr: addr, Bytes: a.buf[start:end:end]}
	clear(blk.Bytes)
	return blk, nil
}

// Slice returns the n bytes at physical address addr, or false if the range
// is not inside the arena.
func (a *Arena) Slice(addr uint64, n int) ([]byte, bool) {
	if addr < a.base || n < 0 {
		return nil, false
	}
	start := addr - a.base
	if start+uint64(n) > uint64(len(a.buf)) {
		return nil, false
	}
	return a.buf[start : start+uint64(n)], true
}

func alignUp(v, align uint64) uint64 {
	return (v + align - 1) &^ (align - 1)
}

// Load32 reads the dword at b[off]. off must be 4-byte aligned.
func Load32(b []byte, off int) uint32 {
	_ = b[off+3]
	return atomic.LoadUint32((*uint32)(unsafe.Pointer(&b[off])))
}

// Store32 writes the dword at b[off]. off must be 4-byte aligned.
func Store32(b []byte, off int, v uint32) {
	_ = b[off+3]
	atomic.StoreUint32((*uint32)(unsafe.Pointer(&b[off])), v)
}

// Load64 reads the qword at b[off] as two dwords, low dword first.
func Load64(b []byte, off int) uint64 {
	return uint64(Load32(b, off)) | uint64(Load32(b, off+4))<<32
}

// Store64 writes the qword at b[off] as two dwords, low dword first.
func Store64(b []byte, off int, v uint64) {
	Store32(b, off, uint32(v))
	Store32(b, off+4, uint32(v>>32))
}
