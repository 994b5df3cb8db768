package xhci

import (
	"github.com/ardnew/softxhci/dma"
	"github.com/ardnew/softxhci/hid"
	"github.com/ardnew/softxhci/pkg"
	"github.com/ardnew/softxhci/usb"
	"github.com/ardnew/softxhci/xhci/ring"
)

// Slot is the driver state of one addressed device.
type Slot struct {
	id     uint8
	port   int
	speed  usb.Speed
	inUse  bool
	device usb.DeviceDescriptor
	config usb.Configuration

	iface  uint8
	ep     usb.EndpointDescriptor
	dci    uint8
	driver hid.Driver
	armed  bool

	ctrl control
	mem  slotMemory
}

// slotMemory is the controller-visible storage of a slot ID. It is
// allocated the first time the ID is assigned and reused afterwards.
type slotMemory struct {
	allocated bool
	device    dma.Block
	input     dma.Block
	ep0Block  dma.Block
	intrBlock dma.Block
	ctrlBuf   dma.Block
	reportBuf dma.Block
	ep0       ring.Ring
	intr      ring.Ring
}

// control tracks the outstanding control transfer of a slot.
type control struct {
	pending  bool
	dataTRB  uint64
	lastTRB  uint64
	length   uint32
	residual uint32
	code     ring.CompletionCode
}

// ID returns the slot ID.
func (s *Slot) ID() uint8 { return s.id }

// Port returns the root hub port number of the device.
func (s *Slot) Port() int { return s.port }

// Speed returns the device speed.
func (s *Slot) Speed() usb.Speed { return s.speed }

// Device returns the device descriptor.
func (s *Slot) Device() usb.DeviceDescriptor { return s.device }

// Configuration returns the parsed active configuration.
func (s *Slot) Configuration() *usb.Configuration { return &s.config }

// Driver returns the attached class driver, or nil.
func (s *Slot) Driver() hid.Driver { return s.driver }

// State returns the slot state the controller reports in the output
// device context.
func (s *Slot) State() uint8 {
	if !s.mem.allocated {
		return SlotStateDisabled
	}
	return slotState(s.mem.device.Bytes)
}

func (s *Slot) input(ctxSize int) inputContext {
	return inputContext{mem: s.mem.input.Bytes, ctxSize: ctxSize}
}

// release returns the slot to the unassigned state, keeping its memory.
func (s *Slot) release() {
	mem := s.mem
	*s = Slot{mem: mem}
}

// allocate carves the slot's storage from the arena on first use.
func (c *Controller) allocateSlot(s *Slot) error {
	m := &s.mem
	if m.allocated {
		return nil
	}
	var err error
	if m.device, err = c.arena.Alloc(deviceContextSize(c.ctxSize), alignContext, c.pageSize); err != nil {
		return err
	}
	if m.input, err = c.arena.Alloc(inputContextSize(c.ctxSize), alignContext, c.pageSize); err != nil {
		return err
	}
	if m.ep0Block, err = c.arena.Alloc(TransferRingSize*ring.Size, alignRing, boundary64K); err != nil {
		return err
	}
	if m.intrBlock, err = c.arena.Alloc(TransferRingSize*ring.Size, alignRing, boundary64K); err != nil {
		return err
	}
	if m.ctrlBuf, err = c.arena.Alloc(ControlBufferSize, alignRing, boundary64K); err != nil {
		return err
	}
	if m.reportBuf, err = c.arena.Alloc(ReportBufferSize, alignRing, boundary64K); err != nil {
		return err
	}
	m.allocated = true
	return nil
}

// claimSlot binds a controller-assigned slot ID to a port.
func (c *Controller) claimSlot(id uint8, port int, speed usb.Speed) (*Slot, error) {
	if id == 0 || int(id) > c.maxSlots {
		return nil, pkg.Errorf(pkg.CauseInvalidState, "controller assigned slot %d of %d", id, c.maxSlots)
	}
	s := &c.slots[id]
	if s.inUse {
		return nil, pkg.Errorf(pkg.CauseInvalidState, "controller assigned busy slot %d", id)
	}
	if err := c.allocateSlot(s); err != nil {
		return nil, err
	}
	s.release()
	s.id, s.port, s.speed, s.inUse = id, port, speed, true
	clear(s.mem.device.Bytes)
	s.mem.ep0.Init(s.mem.ep0Block)
	s.mem.intr.Init(s.mem.intrBlock)
	return s, nil
}
