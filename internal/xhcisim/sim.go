// Package xhcisim emulates an xHCI host controller with attached USB
// devices, for tests and the simulate command.
//
// The emulator is an [mmio.Bus]. It shares a [dma.Arena] with the driver
// and reads and writes the driver's rings and contexts through it. Every
// register write takes effect immediately: ringing a doorbell runs the
// commands or transfers queued so far and posts their events before the
// write returns. There is no timing model.
//
// The emulator is not safe for concurrent use; drive it from the same
// goroutine as the driver.
package xhcisim

import (
	"unsafe"

	"github.com/ardnew/softxhci/dma"
	"github.com/ardnew/softxhci/mmio"
	"github.com/ardnew/softxhci/pkg"
	"github.com/ardnew/softxhci/xhci/regs"
	"github.com/ardnew/softxhci/xhci/ring"
)

// Register layout of the emulated controller, relative to its base.
const (
	capLength      = 0x20
	hciVersion     = 0x0110
	runtimeOffset  = 0x2000
	doorbellOffset = 0x3000
	legacyOffset   = 0x4000
	windowSize     = 0x5000

	// DefaultBase is the MMIO base used when none is given.
	DefaultBase = 0xFEB0_0000

	// DefaultArenaBase is the physical address of the shared arena.
	DefaultArenaBase = 0x0100_0000

	// DefaultArenaSize is large enough for every slot and scratchpad page.
	DefaultArenaSize = 1 << 20
)

var _ mmio.Bus = (*Controller)(nil)

// Controller is an emulated xHCI host controller.
type Controller struct {
	base        uint64
	arena       *dma.Arena
	numPorts    int
	numSlots    int
	ctx64       bool
	scratchpads int
	biosOwned   bool
	stuckBIOS   bool
	stuck       []int

	regs   map[uint64]uint32
	ports  []port
	slots  []slot
	events eventRing

	cmdDeq uint64
	cmdCCS bool

	failNext ring.CompletionCode
	failType ring.Type
	commands []ring.Type
	dropped  int
}

type port struct {
	sc    uint32
	dev   *Device
	stuck bool
}

// New returns an emulated controller with no devices attached.
func New(opts ...Option) *Controller {
	c := &Controller{
		base:        DefaultBase,
		numPorts:    4,
		numSlots:    8,
		scratchpads: 1,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.arena == nil {
		c.arena = NewArena(DefaultArenaBase, DefaultArenaSize)
	}
	c.ports = make([]port, c.numPorts+1)
	for _, n := range c.stuck {
		if n >= 1 && n <= c.numPorts {
			c.ports[n].stuck = true
		}
	}
	c.powerOn()
	return c
}

// NewArena returns an arena of size bytes at physical address base, backed
// by 8-byte aligned host memory.
func NewArena(base uint64, size int) *dma.Arena {
	words := make([]uint64, (size+7)/8)
	buf := unsafe.Slice((*byte)(unsafe.Pointer(&words[0])), len(words)*8)
	return dma.New(buf, base)
}

func (c *Controller) powerOn() {
	c.regs = map[uint64]uint32{}
	c.slots = make([]slot, c.numSlots+1)
	c.events = eventRing{}
	c.cmdDeq, c.cmdCCS = 0, false
	c.setReg(capLength+regs.USBSTS, 1<<regs.USBSTS_HCH)
	legsup := uint32(regs.ExtCapLegacySupport)
	if c.biosOwned {
		legsup |= 1 << regs.USBLEGSUP_BIOS_OWNED
	}
	c.setReg(legacyOffset, legsup)
	for n := 1; n <= c.numPorts; n++ {
		p := &c.ports[n]
		p.sc = regs.PORTSC_PP
		if p.dev != nil {
			p.sc |= regs.PORTSC_CCS | regs.PORTSC_CSC | uint32(p.dev.Speed)<<regs.PORTSC_SPEED_SHIFT
		}
	}
}

// Base returns the MMIO base address.
func (c *Controller) Base() uint64 { return c.base }

// Arena returns the memory shared with the driver.
func (c *Controller) Arena() *dma.Arena { return c.arena }

// Running reports whether Run/Stop is set.
func (c *Controller) Running() bool {
	return c.reg(capLength+regs.USBCMD)&(1<<regs.USBCMD_RS) != 0
}

// PortStatus returns PORTSC of port n.
func (c *Controller) PortStatus(n int) uint32 {
	if n < 1 || n > c.numPorts {
		return 0
	}
	return c.ports[n].sc
}

// EnabledSlots returns the number of slots currently enabled.
func (c *Controller) EnabledSlots() int {
	k := 0
	for id := 1; id <= c.numSlots; id++ {
		if c.slots[id].enabled {
			k++
		}
	}
	return k
}

// Commands returns the types of every command executed, in order.
func (c *Controller) Commands() []ring.Type { return c.commands }

// CommandCount returns how many commands of type t were executed.
func (c *Controller) CommandCount(t ring.Type) int {
	k := 0
	for _, x := range c.commands {
		if x == t {
			k++
		}
	}
	return k
}

// Dropped returns the number of events lost to a full event ring.
func (c *Controller) Dropped() int { return c.dropped }

// DeviceContextBase returns entry i of the device context base address
// array programmed by the driver. Entry 0 is the scratchpad array.
func (c *Controller) DeviceContextBase(i int) uint64 {
	addr := c.reg64(capLength+regs.DCBAAP) &^ 0x3F
	mem, ok := c.arena.Slice(addr+uint64(i)*8, 8)
	if !ok {
		return 0
	}
	return dma.Load64(mem, 0)
}

// Connect attaches d to port n and reports the connect change.
func (c *Controller) Connect(n int, d *Device) error {
	if n < 1 || n > c.numPorts {
		return pkg.Errorf(pkg.CauseNoSuchDevice, "port %d of %d", n, c.numPorts)
	}
	p := &c.ports[n]
	if p.dev != nil {
		return pkg.Errorf(pkg.CauseInvalidState, "port %d occupied", n)
	}
	p.dev = d
	p.sc &^= regs.PORTSC_SPEED_MASK << regs.PORTSC_SPEED_SHIFT
	p.sc |= regs.PORTSC_CCS | regs.PORTSC_CSC | uint32(d.Speed)<<regs.PORTSC_SPEED_SHIFT
	pkg.LogDebug(pkg.ComponentSim, "device connected", "port", n, "speed", d.Speed.String())
	c.portChange(n)
	return nil
}

// Disconnect detaches the device on port n and reports the change.
func (c *Controller) Disconnect(n int) error {
	if n < 1 || n > c.numPorts || c.ports[n].dev == nil {
		return pkg.Errorf(pkg.CauseNoSuchDevice, "port %d: nothing attached", n)
	}
	p := &c.ports[n]
	p.dev = nil
	p.sc &^= regs.PORTSC_CCS | regs.PORTSC_PED | regs.PORTSC_SPEED_MASK<<regs.PORTSC_SPEED_SHIFT
	p.sc |= regs.PORTSC_CSC
	c.orphan(n)
	pkg.LogDebug(pkg.ComponentSim, "device disconnected", "port", n)
	c.portChange(n)
	return nil
}

// orphan detaches every slot bound to port n from it and stops their
// transfer endpoints. The slots stay enabled until Disable Slot.
func (c *Controller) orphan(n int) {
	for id := 1; id <= c.numSlots; id++ {
		s := &c.slots[id]
		if !s.enabled || s.port != n {
			continue
		}
		s.port = 0
		for dci := 2; dci < len(s.eps); dci++ {
			s.eps[dci] = endpoint{}
		}
	}
}

// FailNextCommand makes the next command complete with code.
func (c *Controller) FailNextCommand(code ring.CompletionCode) {
	c.failNext, c.failType = code, 0
}

// FailCommand makes the next command of type t complete with code.
func (c *Controller) FailCommand(t ring.Type, code ring.CompletionCode) {
	c.failNext, c.failType = code, t
}

// PostEvent writes t to the event ring as the controller would.
func (c *Controller) PostEvent(t ring.TRB) bool { return c.post(t) }

func (c *Controller) portChange(n int) {
	if c.Running() {
		c.post(ring.NewPortStatusChange(uint8(n)))
		c.setReg(capLength+regs.USBSTS, c.reg(capLength+regs.USBSTS)|1<<regs.USBSTS_PCD)
	}
}

func (c *Controller) reg(off uint64) uint32       { return c.regs[off] }
func (c *Controller) setReg(off uint64, v uint32) { c.regs[off] = v }
func (c *Controller) reg64(off uint64) uint64     { return uint64(c.regs[off]) | uint64(c.regs[off+4])<<32 }

// mem returns n bytes of shared memory at addr, or nil outside the arena.
func (c *Controller) mem(addr uint64, n int) []byte {
	b, _ := c.arena.Slice(addr, n)
	return b
}
