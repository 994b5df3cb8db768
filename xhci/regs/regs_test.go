package regs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const base = 0xFEB0_0000

// memBus is a register file that records writes.
type memBus struct {
	regs   map[uint64]uint32
	writes []uint64
}

func newMemBus() *memBus { return &memBus{regs: make(map[uint64]uint32)} }

func (b *memBus) Read32(addr uint64) uint32 { return b.regs[addr] }

func (b *memBus) Write32(addr uint64, val uint32) {
	b.regs[addr] = val
	b.writes = append(b.writes, addr)
}

func capabilities(b *memBus) {
	b.regs[base+CAPLENGTH] = 0x0110_0020 // 1.10, CAPLENGTH 0x20
	b.regs[base+HCSPARAMS1] = 8<<24 | 4<<8 | 32
	b.regs[base+HCSPARAMS2] = 1<<27 | 2<<21 | 3<<4 // 65 scratchpads
	b.regs[base+HCCPARAMS1] = 0x0500<<16 | 1<<2 | 1
	b.regs[base+DBOFF] = 0x2000
	b.regs[base+RTSOFF] = 0x3000
}

// =============================================================================
// Capability Tests
// =============================================================================

func TestCapability(t *testing.T) {
	b := newMemBus()
	capabilities(b)
	w := Map(b, base)

	assert.Equal(t, uint8(0x20), w.Cap.Length())
	assert.Equal(t, uint16(0x0110), w.Cap.Version())
	assert.Equal(t, 32, w.Cap.MaxSlots())
	assert.Equal(t, 4, w.Cap.MaxInterrupters())
	assert.Equal(t, 8, w.Cap.MaxPorts())
	assert.Equal(t, 3, w.Cap.ERSTMax())
	assert.Equal(t, 2<<5|1, w.Cap.MaxScratchpadBuffers())
	assert.True(t, w.Cap.AC64())
	assert.Equal(t, 64, w.Cap.ContextSize())
	assert.Equal(t, uint64(0x1400), w.Cap.ExtendedCapabilities())

	assert.Equal(t, uint64(base+0x20), w.Op.Base())
	assert.Equal(t, uint64(base+0x3000), w.Runtime.Base())
	assert.Equal(t, uint64(base+0x2000), w.Doorbell.Base())
}

// =============================================================================
// Operational Tests
// =============================================================================

func TestOperational(t *testing.T) {
	b := newMemBus()
	capabilities(b)
	w := Map(b, base)
	op := base + 0x20

	b.regs[uint64(op+PAGESIZE)] = 1
	assert.Equal(t, 4096, w.Op.PageSize())

	b.regs[uint64(op+CONFIG)] = 0xABCD_EF00
	w.Op.SetMaxSlotsEnabled(16)
	assert.Equal(t, uint32(0xABCD_EF10), b.regs[uint64(op+CONFIG)])
	assert.Equal(t, 16, w.Op.MaxSlotsEnabled())

	w.Op.SetCommandRing(0x1_0000_1040, true)
	assert.Equal(t, uint32(0x0000_1041), b.regs[uint64(op+CRCR)])
	assert.Equal(t, uint32(0x1), b.regs[uint64(op+CRCR+4)])

	w.Op.SetDCBAAP(0x2000_0000)
	assert.Equal(t, uint64(0x2000_0000), w.Op.DCBAAP())

	w.Op.SetCommandBit(USBCMD_RS)
	assert.Equal(t, uint32(1), w.Op.Command())
	w.Op.ClearCommandBit(USBCMD_RS)
	assert.Zero(t, w.Op.Command())

	b.regs[uint64(op+USBSTS)] = 1 << USBSTS_HCH
	assert.True(t, w.Op.Halted())
	assert.True(t, w.Op.WaitStatus(USBSTS_HCH, 1, 1))
	assert.False(t, w.Op.WaitStatus(USBSTS_CNR, 1, 10))
}

// =============================================================================
// Port Tests
// =============================================================================

func TestPort_WritePreservesAndNeverClearsChanges(t *testing.T) {
	b := newMemBus()
	capabilities(b)
	w := Map(b, base)
	p := w.Op.Port(2)

	require.Equal(t, uint64(base+0x20+0x400+0x10), p.Addr())

	status := uint32(PORTSC_CCS | PORTSC_PED | PORTSC_PP | 3<<PORTSC_SPEED_SHIFT |
		PORTSC_CSC | PORTSC_PRC)
	b.regs[p.Addr()] = status

	p.Reset()
	written := b.regs[p.Addr()]
	assert.NotZero(t, written&PORTSC_PR)
	assert.NotZero(t, written&PORTSC_PP)
	assert.Equal(t, uint32(3), written>>PORTSC_SPEED_SHIFT&PORTSC_SPEED_MASK)
	assert.Zero(t, written&PORTSC_PED, "writing PED disables the port")
	assert.Zero(t, written&PORTSC_CHANGE, "writing change bits clears them")

	b.regs[p.Addr()] = status
	p.AckChanges(PORTSC_PRC | PORTSC_PED)
	written = b.regs[p.Addr()]
	assert.Equal(t, uint32(PORTSC_PRC), written&(PORTSC_CHANGE|PORTSC_PED))
}

func TestPort_WaitStatus(t *testing.T) {
	b := newMemBus()
	capabilities(b)
	p := Map(b, base).Op.Port(1)

	b.regs[p.Addr()] = PORTSC_PRC
	assert.True(t, p.WaitStatus(PORTSC_PR|PORTSC_PRC, PORTSC_PRC, 1))
	b.regs[p.Addr()] = PORTSC_PR
	assert.False(t, p.WaitStatus(PORTSC_PR|PORTSC_PRC, PORTSC_PRC, 100))
}

// =============================================================================
// Runtime and Doorbell Tests
// =============================================================================

func TestInterrupter(t *testing.T) {
	b := newMemBus()
	capabilities(b)
	w := Map(b, base)
	ir := w.Runtime.Interrupter(0)
	at := uint64(base + 0x3000 + InterrupterBase)

	ir.SetSegmentTableSize(1)
	ir.SetDequeuePointer(0x8000)
	ir.SetSegmentTableBase(0x9000)
	ir.SetModeration(4000)
	ir.Enable()

	assert.Equal(t, uint32(1), b.regs[at+ERSTSZ])
	assert.Equal(t, uint32(0x8000|ERDP_EHB), b.regs[at+ERDP])
	assert.Equal(t, uint64(0x8000), ir.DequeuePointer())
	assert.Equal(t, uint32(0x9000), b.regs[at+ERSTBA])
	assert.Equal(t, uint32(4000), b.regs[at+IMOD])
	assert.Equal(t, uint32(IMAN_IE|IMAN_IP), b.regs[at+IMAN])

	// ERSTBA must be written after ERSTSZ and ERDP.
	var order []uint64
	for _, a := range b.writes {
		if a == at+ERSTSZ || a == at+ERDP || a == at+ERSTBA {
			order = append(order, a)
		}
	}
	assert.Equal(t, []uint64{at + ERSTSZ, at + ERDP, at + ERSTBA}, order)
}

func TestDoorbell(t *testing.T) {
	b := newMemBus()
	capabilities(b)
	w := Map(b, base)

	w.Doorbell.Ring(0, 0)
	w.Doorbell.Ring(3, 5)
	assert.Equal(t, uint32(5), b.regs[base+0x2000+12])
	assert.Equal(t, []uint64{base + 0x2000, base + 0x2000 + 12}, b.writes)
}

// =============================================================================
// Extended Capability Tests
// =============================================================================

func TestFindExtendedCapability(t *testing.T) {
	b := newMemBus()
	capabilities(b)
	c := Map(b, base).Cap

	first := uint64(base + 0x1400)
	b.regs[first] = 4<<8 | ExtCapSupportedProtocol
	b.regs[first+16] = ExtCapLegacySupport | 1<<USBLEGSUP_BIOS_OWNED

	e, ok := FindExtendedCapability(c, ExtCapLegacySupport, 8)
	require.True(t, ok)
	assert.Equal(t, first+16, e.Addr())

	_, ok = FindExtendedCapability(c, 0x42, 8)
	assert.False(t, ok)
}
