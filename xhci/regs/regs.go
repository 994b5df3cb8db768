// Package regs provides typed views over the xHCI register blocks.
//
// The capability registers sit at the MMIO base. The operational, runtime
// and doorbell blocks sit at offsets read from the capability registers
// (CAPLENGTH, RTSOFF, DBOFF). Each window holds only a bus and a base
// address; reads always go to the hardware.
package regs

import "github.com/ardnew/softxhci/mmio"

// Windows groups the four register blocks of one controller.
type Windows struct {
	Cap      Capability
	Op       Operational
	Runtime  Runtime
	Doorbell Doorbell
}

// Map reads the capability registers at base and returns the windows.
func Map(bus mmio.Bus, base uint64) Windows {
	c := Capability{bus: bus, base: base}
	return Windows{
		Cap:      c,
		Op:       Operational{bus: bus, base: base + uint64(c.Length())},
		Runtime:  Runtime{bus: bus, base: base + uint64(c.RuntimeOffset())},
		Doorbell: Doorbell{bus: bus, base: base + uint64(c.DoorbellOffset())},
	}
}

// Capability register offsets.
const (
	CAPLENGTH  = 0x00 // CAPLENGTH (7:0) and HCIVERSION (31:16)
	HCSPARAMS1 = 0x04
	HCSPARAMS2 = 0x08
	HCSPARAMS3 = 0x0C
	HCCPARAMS1 = 0x10
	DBOFF      = 0x14
	RTSOFF     = 0x18
	HCCPARAMS2 = 0x1C
)

// Capability is the read-only capability register block.
type Capability struct {
	bus  mmio.Bus
	base uint64
}

// Base returns the address of the block.
func (c Capability) Base() uint64 { return c.base }

// Length returns CAPLENGTH, the offset of the operational registers.
func (c Capability) Length() uint8 { return uint8(c.bus.Read32(c.base + CAPLENGTH)) }

// Version returns HCIVERSION in BCD.
func (c Capability) Version() uint16 { return uint16(c.bus.Read32(c.base+CAPLENGTH) >> 16) }

// MaxSlots returns the number of device slots supported.
func (c Capability) MaxSlots() int { return int(c.bus.Read32(c.base+HCSPARAMS1) & 0xFF) }

// MaxInterrupters returns the number of interrupters supported.
func (c Capability) MaxInterrupters() int { return int(c.bus.Read32(c.base+HCSPARAMS1)>>8) & 0x7FF }

// MaxPorts returns the number of root hub ports.
func (c Capability) MaxPorts() int { return int(c.bus.Read32(c.base+HCSPARAMS1) >> 24) }

// ERSTMax returns the log2 of the maximum event ring segment table size.
func (c Capability) ERSTMax() int { return int(c.bus.Read32(c.base+HCSPARAMS2)>>4) & 0xF }

// MaxScratchpadBuffers returns the number of scratchpad pages the
// controller requires.
func (c Capability) MaxScratchpadBuffers() int {
	v := c.bus.Read32(c.base + HCSPARAMS2)
	hi := (v >> 21) & 0x1F
	lo := (v >> 27) & 0x1F
	return int(hi<<5 | lo)
}

// AC64 reports 64-bit addressing capability.
func (c Capability) AC64() bool { return c.bus.Read32(c.base+HCCPARAMS1)&1 != 0 }

// ContextSize returns the size of a context data structure: 64 when
// HCCPARAMS1.CSZ is set, else 32.
func (c Capability) ContextSize() int {
	if c.bus.Read32(c.base+HCCPARAMS1)&(1<<2) != 0 {
		return 64
	}
	return 32
}

// ExtendedCapabilities returns the byte offset of the first extended
// capability from the MMIO base, or 0 if there is none.
func (c Capability) ExtendedCapabilities() uint64 {
	return uint64(c.bus.Read32(c.base+HCCPARAMS1)>>16) << 2
}

// DoorbellOffset returns DBOFF.
func (c Capability) DoorbellOffset() uint32 { return c.bus.Read32(c.base+DBOFF) &^ 0x3 }

// RuntimeOffset returns RTSOFF.
func (c Capability) RuntimeOffset() uint32 { return c.bus.Read32(c.base+RTSOFF) &^ 0x1F }
