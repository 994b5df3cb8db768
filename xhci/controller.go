package xhci

import (
	"github.com/ardnew/softxhci/dma"
	"github.com/ardnew/softxhci/hid"
	"github.com/ardnew/softxhci/mmio"
	"github.com/ardnew/softxhci/pkg"
	"github.com/ardnew/softxhci/xhci/regs"
	"github.com/ardnew/softxhci/xhci/ring"
)

// Controller drives one xHCI host controller. It owns the register
// windows, every controller-visible structure and the class drivers.
//
// A Controller is used from a single thread and takes no locks. The zero
// value is not usable; construct with [New] or [NewInto].
type Controller struct {
	base      uint64
	bus       mmio.Bus
	arena     *dma.Arena
	regs      regs.Windows
	intr      regs.Interrupter
	pollLimit int
	slotCap   int

	maxSlots int
	maxPorts int
	ctxSize  int
	pageSize int

	dcbaa      dma.Block
	scratch    dma.Block // scratchpad buffer array
	cmdBlock   dma.Block
	eventBlock dma.Block
	erstBlock  dma.Block

	cmd    ring.Ring
	events ring.EventRing

	outstanding command
	ports       [maxPortNumber + 1]portState
	slots       [MaxSlots + 1]Slot

	// depth counts active waits. Port changes seen while it is nonzero are
	// deferred to pending.
	depth       int
	configuring int
	pending     [4]uint64

	mouse    hid.Mouse
	keyboard hid.Keyboard

	initialized bool
	running     bool

	// err records a construction failure, reported by Initialize.
	err error
}

// command tracks the single outstanding command.
type command struct {
	addr    uint64
	typ     ring.Type
	pending bool
	code    ring.CompletionCode
	slot    uint8
}

type portState struct {
	slot uint8
}

// New constructs a controller for the register block at mmioBase.
//
// It maps the register windows, reads the controller's limits and carves
// the command ring, event ring and device context array from the arena.
// Allocation failures are reported by Initialize.
func New(mmioBase uint64, opts ...Option) *Controller {
	c := new(Controller)
	NewInto(c, mmioBase, opts...)
	return c
}

// NewInto constructs a controller in caller-provided storage, typically a
// package-level variable, so that construction needs no heap.
func NewInto(c *Controller, mmioBase uint64, opts ...Option) {
	*c = Controller{
		base:      mmioBase,
		pollLimit: DefaultPollLimit,
		slotCap:   MaxSlots,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.bus == nil {
		c.bus = mmio.Direct{}
	}
	if c.arena == nil {
		c.arena = dma.NewStatic()
	}

	c.regs = regs.Map(c.bus, mmioBase)
	c.intr = c.regs.Runtime.Interrupter(0)
	c.maxSlots = min(c.regs.Cap.MaxSlots(), c.slotCap)
	c.maxPorts = c.regs.Cap.MaxPorts()
	c.ctxSize = c.regs.Cap.ContextSize()
	c.pageSize = c.regs.Op.PageSize()
	if c.pageSize == 0 {
		c.pageSize = 4096
	}

	if err := c.allocate(); err != nil {
		c.err = err
		pkg.LogErr(pkg.ComponentController, "construction failed", err)
		return
	}
	pkg.LogInfo(pkg.ComponentController, "controller constructed",
		"base", mmioBase,
		"version", c.regs.Cap.Version(),
		"slots", c.maxSlots,
		"ports", c.maxPorts,
		"contextSize", c.ctxSize)
}

func (c *Controller) allocate() error {
	var err error
	if c.dcbaa, err = c.arena.Alloc((MaxSlots+1)*8, alignDCBAA, c.pageSize); err != nil {
		return err
	}
	if c.cmdBlock, err = c.arena.Alloc(CommandRingSize*ring.Size, alignRing, boundary64K); err != nil {
		return err
	}
	if c.eventBlock, err = c.arena.Alloc(EventRingSize*ring.Size, alignRing, boundary64K); err != nil {
		return err
	}
	if c.erstBlock, err = c.arena.Alloc(ring.ERSTEntrySize, alignERST, 0); err != nil {
		return err
	}
	if n := c.regs.Cap.MaxScratchpadBuffers(); n > 0 {
		if c.scratch, err = c.arena.Alloc(n*8, alignDCBAA, c.pageSize); err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			page, err := c.arena.Alloc(c.pageSize, c.pageSize, 0)
			if err != nil {
				return err
			}
			dma.Store64(c.scratch.Bytes, i*8, page.Addr)
		}
	}
	c.cmd.Init(c.cmdBlock)
	c.events.Init(c.eventBlock, c.erstBlock)
	return nil
}

// Initialize takes ownership from firmware, resets the controller and
// programs the device context array, command ring and primary event ring.
// Every poll is bounded; an expired bound returns a Timeout naming the
// register.
func (c *Controller) Initialize() error {
	if c.err != nil {
		return c.err
	}
	op := c.regs.Op

	if err := c.takeOwnership(); err != nil {
		return err
	}

	if !op.Halted() {
		op.ClearCommandBit(regs.USBCMD_RS)
		if !op.WaitStatus(regs.USBSTS_HCH, 1, c.pollLimit) {
			return pkg.NewError(pkg.CauseTimeout, "USBSTS.HCH after stop")
		}
	}

	op.SetCommandBit(regs.USBCMD_HCRST)
	if !op.WaitCommand(regs.USBCMD_HCRST, 0, c.pollLimit) {
		return pkg.NewError(pkg.CauseTimeout, "USBCMD.HCRST")
	}
	if !op.WaitStatus(regs.USBSTS_CNR, 0, c.pollLimit) {
		return pkg.NewError(pkg.CauseTimeout, "USBSTS.CNR")
	}

	op.SetMaxSlotsEnabled(c.maxSlots)

	clear(c.dcbaa.Bytes)
	if c.scratch.Addr != 0 {
		dma.Store64(c.dcbaa.Bytes, 0, c.scratch.Addr)
	}
	op.SetDCBAAP(c.dcbaa.Addr)

	c.cmd.Init(c.cmdBlock)
	op.SetCommandRing(c.cmd.Addr(), c.cmd.Cycle())

	c.events.Init(c.eventBlock, c.erstBlock)
	c.intr.SetSegmentTableSize(c.events.SegmentCount())
	c.intr.SetDequeuePointer(c.events.DequeuePointer())
	c.intr.SetSegmentTableBase(c.events.SegmentTable())
	c.intr.SetModeration(defaultModeration)
	c.intr.Enable()

	op.SetCommandBit(regs.USBCMD_INTE)

	c.resetState()
	c.initialized = true
	c.running = false
	pkg.LogInfo(pkg.ComponentController, "controller initialized",
		"slots", c.maxSlots, "scratchpads", len(c.scratch.Bytes)/8)
	return nil
}

// takeOwnership performs the BIOS to OS handoff through the USB Legacy
// Support capability, if the controller has one.
func (c *Controller) takeOwnership() error {
	legsup, ok := regs.FindExtendedCapability(c.regs.Cap, regs.ExtCapLegacySupport, legacyHandoffLimit)
	if !ok {
		return nil
	}
	addr := legsup.Addr()
	if mmio.Get(c.bus, addr, regs.USBLEGSUP_BIOS_OWNED, 1) != 0 {
		mmio.Set(c.bus, addr, regs.USBLEGSUP_OS_OWNED)
		if !mmio.Wait(c.bus, addr, regs.USBLEGSUP_BIOS_OWNED, 1, 0, c.pollLimit) {
			return pkg.NewError(pkg.CauseTimeout, "USBLEGSUP BIOS owned")
		}
		pkg.LogInfo(pkg.ComponentController, "took ownership from firmware")
	}
	// Disable SMIs and clear their status bits in USBLEGCTLSTS.
	ctl := c.bus.Read32(addr + 4)
	ctl &^= 1<<0 | 1<<4 | 1<<13 | 1<<14 | 1<<15
	ctl |= 0x7 << 29
	c.bus.Write32(addr+4, ctl)
	return nil
}

func (c *Controller) resetState() {
	c.outstanding = command{}
	c.ports = [maxPortNumber + 1]portState{}
	for i := range c.slots {
		s := &c.slots[i]
		s.release()
	}
	c.depth = 0
	c.configuring = 0
	c.pending = [4]uint64{}
}

// Run sets Run/Stop and waits for the controller to leave the halted state.
func (c *Controller) Run() error {
	if !c.initialized {
		return pkg.NewError(pkg.CauseInvalidState, "run before initialize")
	}
	op := c.regs.Op
	op.SetCommandBit(regs.USBCMD_RS)
	if !op.WaitStatus(regs.USBSTS_HCH, 0, c.pollLimit) {
		return pkg.NewError(pkg.CauseTimeout, "USBSTS.HCH after run")
	}
	c.running = true
	pkg.LogInfo(pkg.ComponentController, "controller running")
	return nil
}

// Halted reports USBSTS.HCH.
func (c *Controller) Halted() bool { return c.regs.Op.Halted() }

// MaxPorts returns the number of root hub ports. Ports are numbered
// 1..MaxPorts.
func (c *Controller) MaxPorts() int { return c.maxPorts }

// MaxSlots returns the number of device slots enabled.
func (c *Controller) MaxSlots() int { return c.maxSlots }

// FreeSlots returns the number of enabled slots not assigned to a device.
func (c *Controller) FreeSlots() int {
	n := c.maxSlots
	for id := 1; id <= c.maxSlots; id++ {
		if c.slots[id].inUse {
			n--
		}
	}
	return n
}

// Slot returns the device slot with the given ID.
func (c *Controller) Slot(id uint8) (*Slot, error) {
	if id == 0 || int(id) > c.maxSlots || !c.slots[id].inUse {
		return nil, pkg.Errorf(pkg.CauseNoSuchDevice, "slot %d", id)
	}
	return &c.slots[id], nil
}

// Mouse returns the mouse class driver.
func (c *Controller) Mouse() *hid.Mouse { return &c.mouse }

// Keyboard returns the keyboard class driver.
func (c *Controller) Keyboard() *hid.Keyboard { return &c.keyboard }
