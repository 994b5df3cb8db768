package regs

import "github.com/ardnew/softxhci/mmio"

// Port register set offsets.
const (
	PORTSC   = 0x0
	PORTPMSC = 0x4
	PORTLI   = 0x8
	PORTHLPM = 0xC
)

// PORTSC bits.
const (
	PORTSC_CCS = 1 << 0  // Current Connect Status
	PORTSC_PED = 1 << 1  // Port Enabled/Disabled (RW1C)
	PORTSC_OCA = 1 << 3  // Over-current Active
	PORTSC_PR  = 1 << 4  // Port Reset (RW1S)
	PORTSC_PP  = 1 << 9  // Port Power
	PORTSC_LWS = 1 << 16 // Port Link State Write Strobe
	PORTSC_CSC = 1 << 17 // Connect Status Change
	PORTSC_PEC = 1 << 18 // Port Enabled/Disabled Change
	PORTSC_WRC = 1 << 19 // Warm Port Reset Change
	PORTSC_OCC = 1 << 20 // Over-current Change
	PORTSC_PRC = 1 << 21 // Port Reset Change
	PORTSC_PLC = 1 << 22 // Port Link State Change
	PORTSC_CEC = 1 << 23 // Port Config Error Change
	PORTSC_CAS = 1 << 24 // Cold Attach Status
	PORTSC_WCE = 1 << 25 // Wake on Connect Enable
	PORTSC_WDE = 1 << 26 // Wake on Disconnect Enable
	PORTSC_WOE = 1 << 27 // Wake on Over-current Enable
	PORTSC_DR  = 1 << 30 // Device Removable
	PORTSC_WPR = 1 << 31 // Warm Port Reset

	PORTSC_PLS_SHIFT   = 5
	PORTSC_PLS_MASK    = 0xF
	PORTSC_SPEED_SHIFT = 10
	PORTSC_SPEED_MASK  = 0xF
	PORTSC_PIC_MASK    = 0x3 << 14

	// PORTSC_CHANGE is every RW1C change bit.
	PORTSC_CHANGE = PORTSC_CSC | PORTSC_PEC | PORTSC_WRC | PORTSC_OCC |
		PORTSC_PRC | PORTSC_PLC | PORTSC_CEC

	// portscPreserve keeps the bits that are safe to write back unchanged.
	portscPreserve = PORTSC_CCS | PORTSC_OCA | PORTSC_PLS_MASK<<PORTSC_PLS_SHIFT |
		PORTSC_PP | PORTSC_SPEED_MASK<<PORTSC_SPEED_SHIFT | PORTSC_PIC_MASK |
		PORTSC_CAS | PORTSC_WCE | PORTSC_WDE | PORTSC_WOE | PORTSC_DR
)

// Port link states (PORTSC.PLS).
const (
	LinkU0       = 0
	LinkU3       = 3
	LinkDisabled = 4
	LinkRxDetect = 5
	LinkPolling  = 7
	LinkRecovery = 8
	LinkResume   = 15
)

// PortRegisters is the register set of one root hub port.
type PortRegisters struct {
	bus  mmio.Bus
	base uint64
}

// Addr returns the address of PORTSC.
func (p PortRegisters) Addr() uint64 { return p.base + PORTSC }

// Status returns PORTSC.
func (p PortRegisters) Status() uint32 { return p.bus.Read32(p.base + PORTSC) }

// Neutral returns v with every RW1C and RW1S bit cleared, so writing it
// back changes nothing.
func Neutral(v uint32) uint32 { return v & portscPreserve }

// Write writes the neutral form of the current PORTSC with set ORed in.
func (p PortRegisters) Write(set uint32) {
	p.bus.Write32(p.base+PORTSC, Neutral(p.Status())|set)
}

// AckChanges clears the change bits in mask.
func (p PortRegisters) AckChanges(mask uint32) {
	p.Write(mask & PORTSC_CHANGE)
}

// Reset starts a port reset.
func (p PortRegisters) Reset() { p.Write(PORTSC_PR) }

// WaitStatus polls PORTSC until (PORTSC & mask) == val, at most limit reads.
func (p PortRegisters) WaitStatus(mask, val uint32, limit int) bool {
	for i := 0; i < limit; i++ {
		if p.Status()&mask == val {
			return true
		}
	}
	return false
}
