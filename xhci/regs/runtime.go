package regs

import "github.com/ardnew/softxhci/mmio"

// Interrupter register set offsets, relative to the interrupter.
const (
	InterrupterBase = 0x20
	InterrupterSize = 0x20

	IMAN   = 0x00
	IMOD   = 0x04
	ERSTSZ = 0x08
	ERSTBA = 0x10
	ERDP   = 0x18
)

// IMAN and ERDP bits.
const (
	IMAN_IP  = 1 << 0 // Interrupt Pending (RW1C)
	IMAN_IE  = 1 << 1 // Interrupt Enable
	ERDP_EHB = 1 << 3 // Event Handler Busy (RW1C)
)

// Runtime is the runtime register block.
type Runtime struct {
	bus  mmio.Bus
	base uint64
}

// Base returns the address of the block.
func (r Runtime) Base() uint64 { return r.base }

// Interrupter returns interrupter i.
func (r Runtime) Interrupter(i int) Interrupter {
	return Interrupter{bus: r.bus, base: r.base + InterrupterBase + uint64(i)*InterrupterSize}
}

// Interrupter is one interrupter register set.
type Interrupter struct {
	bus  mmio.Bus
	base uint64
}

// Enable sets IMAN.IE and acknowledges any pending interrupt.
func (i Interrupter) Enable() {
	i.bus.Write32(i.base+IMAN, IMAN_IE|IMAN_IP)
}

// Pending reports IMAN.IP.
func (i Interrupter) Pending() bool { return i.bus.Read32(i.base+IMAN)&IMAN_IP != 0 }

// AckPending clears IMAN.IP, keeping IE as it is.
func (i Interrupter) AckPending() {
	i.bus.Write32(i.base+IMAN, i.bus.Read32(i.base+IMAN)|IMAN_IP)
}

// SetModeration programs IMOD.IMODI in 250 ns units.
func (i Interrupter) SetModeration(interval uint16) {
	v := i.bus.Read32(i.base + IMOD)
	i.bus.Write32(i.base+IMOD, v&^0xFFFF|uint32(interval))
}

// SetSegmentTableSize programs ERSTSZ.
func (i Interrupter) SetSegmentTableSize(n int) {
	v := i.bus.Read32(i.base + ERSTSZ)
	i.bus.Write32(i.base+ERSTSZ, v&^0xFFFF|uint32(n)&0xFFFF)
}

// SetSegmentTableBase programs ERSTBA. Writing ERSTBA enables the event
// ring, so ERSTSZ and ERDP must be programmed first.
func (i Interrupter) SetSegmentTableBase(addr uint64) {
	mmio.Write64(i.bus, i.base+ERSTBA, addr&^0x3F)
}

// SetDequeuePointer writes ERDP, clearing Event Handler Busy.
func (i Interrupter) SetDequeuePointer(addr uint64) {
	mmio.Write64(i.bus, i.base+ERDP, addr&^0xF|ERDP_EHB)
}

// DequeuePointer returns ERDP without its flag bits.
func (i Interrupter) DequeuePointer() uint64 { return mmio.Read64(i.bus, i.base+ERDP) &^ 0xF }

// Doorbell is the doorbell array.
type Doorbell struct {
	bus  mmio.Bus
	base uint64
}

// Base returns the address of doorbell 0.
func (d Doorbell) Base() uint64 { return d.base }

// Ring writes target to doorbell slot. Slot 0 is the command doorbell with
// target 0; device slots take the device context index of the endpoint.
func (d Doorbell) Ring(slot uint8, target uint8) {
	d.bus.Write32(d.base+uint64(slot)*4, uint32(target))
}
