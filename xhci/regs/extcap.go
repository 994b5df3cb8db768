package regs

import "github.com/ardnew/softxhci/mmio"

// Extended capability IDs.
const (
	ExtCapLegacySupport     = 1
	ExtCapSupportedProtocol = 2
)

// USBLEGSUP bits.
const (
	USBLEGSUP_BIOS_OWNED = 16
	USBLEGSUP_OS_OWNED   = 24
)

// ExtendedCapability is one entry of the extended capability list.
type ExtendedCapability struct {
	bus  mmio.Bus
	addr uint64
}

// Addr returns the address of the capability's first dword.
func (e ExtendedCapability) Addr() uint64 { return e.addr }

// ID returns the capability ID.
func (e ExtendedCapability) ID() uint8 { return uint8(e.bus.Read32(e.addr)) }

// Next returns the following capability, or false at the end of the list.
func (e ExtendedCapability) Next() (ExtendedCapability, bool) {
	next := uint64((e.bus.Read32(e.addr)>>8)&0xFF) << 2
	if next == 0 {
		return ExtendedCapability{}, false
	}
	return ExtendedCapability{bus: e.bus, addr: e.addr + next}, true
}

// FindExtendedCapability walks the list for the first capability with id.
// limit bounds the walk against a malformed list.
func FindExtendedCapability(c Capability, id uint8, limit int) (ExtendedCapability, bool) {
	off := c.ExtendedCapabilities()
	if off == 0 {
		return ExtendedCapability{}, false
	}
	e := ExtendedCapability{bus: c.bus, addr: c.base + off}
	for i := 0; i < limit; i++ {
		if e.ID() == id {
			return e, true
		}
		var ok bool
		if e, ok = e.Next(); !ok {
			break
		}
	}
	return ExtendedCapability{}, false
}
