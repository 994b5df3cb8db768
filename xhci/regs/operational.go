package regs

import "github.com/ardnew/softxhci/mmio"

// Operational register offsets.
const (
	USBCMD   = 0x00
	USBSTS   = 0x04
	PAGESIZE = 0x08
	DNCTRL   = 0x14
	CRCR     = 0x18
	DCBAAP   = 0x30
	CONFIG   = 0x38

	// PortRegisterBase is the offset of the first port register set.
	PortRegisterBase = 0x400
	// PortRegisterSize is the stride between port register sets.
	PortRegisterSize = 0x10
)

// USBCMD bits.
const (
	USBCMD_RS    = 0 // Run/Stop
	USBCMD_HCRST = 1 // Host Controller Reset
	USBCMD_INTE  = 2 // Interrupter Enable
	USBCMD_HSEE  = 3 // Host System Error Enable
)

// USBSTS bits.
const (
	USBSTS_HCH  = 0  // HC Halted
	USBSTS_HSE  = 2  // Host System Error
	USBSTS_EINT = 3  // Event Interrupt
	USBSTS_PCD  = 4  // Port Change Detect
	USBSTS_CNR  = 11 // Controller Not Ready
	USBSTS_HCE  = 12 // Host Controller Error
)

// CRCR bits.
const (
	CRCR_RCS = 0 // Ring Cycle State
	CRCR_CRR = 3 // Command Ring Running
)

// Operational is the operational register block.
type Operational struct {
	bus  mmio.Bus
	base uint64
}

// Base returns the address of the block.
func (o Operational) Base() uint64 { return o.base }

// Bus returns the bus the block is accessed through.
func (o Operational) Bus() mmio.Bus { return o.bus }

// Addr returns the address of the register at offset off.
func (o Operational) Addr(off uint64) uint64 { return o.base + off }

// Command returns USBCMD.
func (o Operational) Command() uint32 { return o.bus.Read32(o.base + USBCMD) }

// SetCommandBit sets bit pos of USBCMD.
func (o Operational) SetCommandBit(pos int) { mmio.Set(o.bus, o.base+USBCMD, pos) }

// ClearCommandBit clears bit pos of USBCMD.
func (o Operational) ClearCommandBit(pos int) { mmio.Clear(o.bus, o.base+USBCMD, pos) }

// Status returns USBSTS.
func (o Operational) Status() uint32 { return o.bus.Read32(o.base + USBSTS) }

// AckStatus clears the RW1C bits of USBSTS that are set in mask.
func (o Operational) AckStatus(mask uint32) { o.bus.Write32(o.base+USBSTS, mask) }

// Halted reports USBSTS.HCH.
func (o Operational) Halted() bool { return o.Status()&(1<<USBSTS_HCH) != 0 }

// WaitStatus polls USBSTS bit pos until it equals val, at most limit reads.
func (o Operational) WaitStatus(pos int, val uint32, limit int) bool {
	return mmio.Wait(o.bus, o.base+USBSTS, pos, 1, val, limit)
}

// WaitCommand polls USBCMD bit pos until it equals val, at most limit reads.
func (o Operational) WaitCommand(pos int, val uint32, limit int) bool {
	return mmio.Wait(o.bus, o.base+USBCMD, pos, 1, val, limit)
}

// PageSize returns the controller page size in bytes.
func (o Operational) PageSize() int {
	return int(o.bus.Read32(o.base+PAGESIZE)&0xFFFF) << 12
}

// SetMaxSlotsEnabled programs CONFIG.MaxSlotsEn.
func (o Operational) SetMaxSlotsEnabled(n int) {
	v := o.bus.Read32(o.base + CONFIG)
	o.bus.Write32(o.base+CONFIG, v&^0xFF|uint32(n)&0xFF)
}

// MaxSlotsEnabled returns CONFIG.MaxSlotsEn.
func (o Operational) MaxSlotsEnabled() int { return int(o.bus.Read32(o.base+CONFIG) & 0xFF) }

// SetDCBAAP programs the Device Context Base Address Array pointer.
func (o Operational) SetDCBAAP(addr uint64) { mmio.Write64(o.bus, o.base+DCBAAP, addr&^0x3F) }

// DCBAAP returns the Device Context Base Address Array pointer.
func (o Operational) DCBAAP() uint64 { return mmio.Read64(o.bus, o.base+DCBAAP) }

// SetCommandRing programs CRCR with the ring pointer and its cycle state.
func (o Operational) SetCommandRing(addr uint64, cycle bool) {
	v := addr &^ 0x3F
	if cycle {
		v |= 1 << CRCR_RCS
	}
	mmio.Write64(o.bus, o.base+CRCR, v)
}

// Port returns the register set of root hub port n (1-based).
func (o Operational) Port(n int) PortRegisters {
	return PortRegisters{bus: o.bus, base: o.base + PortRegisterBase + uint64(n-1)*PortRegisterSize}
}
