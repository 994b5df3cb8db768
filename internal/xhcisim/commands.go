package xhcisim

import (
	"github.com/ardnew/softxhci/dma"
	"github.com/ardnew/softxhci/pkg"
	"github.com/ardnew/softxhci/xhci/regs"
	"github.com/ardnew/softxhci/xhci/ring"
)

// Slot and endpoint states written to output contexts.
const (
	slotStateAddressed  = 2
	slotStateConfigured = 3
	epStateRunning      = 1
	epTypeInterruptIn   = 7
)

type slot struct {
	enabled bool
	port    int
	eps     [32]endpoint
	td      controlTD
}

type endpoint struct {
	enabled bool
	typ     uint8
	deq     uint64
	ccs     bool

	// armed is the Normal TRB waiting for a report.
	armed     bool
	armedAddr uint64
	armedTRB  ring.TRB
}

// next returns the next TRB the consumer owns, following links.
func (e *endpoint) next(c *Controller) (ring.TRB, uint64, bool) {
	for range 4 {
		mem := c.mem(e.deq, ring.Size)
		if mem == nil {
			return ring.TRB{}, 0, false
		}
		t := ring.Read(mem, 0)
		if t.Cycle() != e.ccs {
			return ring.TRB{}, 0, false
		}
		if t.Type() != ring.TypeLink {
			return t, e.deq, true
		}
		e.deq = t.Pointer() &^ 0xF
		if t.ToggleCycle() {
			e.ccs = !e.ccs
		}
	}
	return ring.TRB{}, 0, false
}

func (c *Controller) ctxSize() int {
	if c.ctx64 {
		return 64
	}
	return 32
}

// runCommands executes every command the driver has handed over.
func (c *Controller) runCommands() {
	cmd := endpoint{deq: c.cmdDeq, ccs: c.cmdCCS}
	for {
		t, addr, ok := cmd.next(c)
		if !ok {
			break
		}
		cmd.deq = addr + ring.Size
		var code ring.CompletionCode
		var id uint8
		if c.failNext != 0 && (c.failType == 0 || c.failType == t.Type()) {
			code, id, c.failNext = c.failNext, t.SlotID(), 0
		} else {
			code, id = c.execute(t)
		}
		c.commands = append(c.commands, t.Type())
		pkg.LogDebug(pkg.ComponentSim, "command executed",
			"type", t.Type().String(), "code", code.String(), "slot", id)
		c.post(ring.NewCommandCompletion(addr, code, id))
	}
	c.cmdDeq, c.cmdCCS = cmd.deq, cmd.ccs
}

func (c *Controller) execute(t ring.TRB) (ring.CompletionCode, uint8) {
	switch t.Type() {
	case ring.TypeNoOpCommand:
		return ring.CodeSuccess, 0
	case ring.TypeEnableSlot:
		for id := 1; id <= c.numSlots; id++ {
			if !c.slots[id].enabled {
				c.slots[id] = slot{enabled: true}
				return ring.CodeSuccess, uint8(id)
			}
		}
		return ring.CodeNoSlotsAvailable, 0
	}

	id := t.SlotID()
	if id == 0 || int(id) > c.numSlots || !c.slots[id].enabled {
		return ring.CodeSlotNotEnabled, id
	}
	s := &c.slots[id]
	switch t.Type() {
	case ring.TypeDisableSlot:
		*s = slot{}
		return ring.CodeSuccess, id
	case ring.TypeAddressDevice:
		return c.addressDevice(id, s, t.Pointer()), id
	case ring.TypeConfigureEndpoint:
		return c.configureEndpoints(id, s, t.Pointer()), id
	case ring.TypeEvaluateContext:
		return c.evaluateContext(id, t.Pointer()), id
	}
	return ring.CodeTRB, id
}

// contexts returns the input context at addr and the output device
// context of slot id.
func (c *Controller) contexts(id uint8, input uint64) (in, out []byte, ok bool) {
	sz := c.ctxSize()
	in = c.mem(input, 33*sz)
	out = c.mem(c.DeviceContextBase(int(id)), 32*sz)
	return in, out, in != nil && out != nil
}

func (c *Controller) addressDevice(id uint8, s *slot, input uint64) ring.CompletionCode {
	in, out, ok := c.contexts(id, input)
	if !ok {
		return ring.CodeParameter
	}
	sz := c.ctxSize()
	if dma.Load32(in, 4)&0x3 != 0x3 {
		return ring.CodeParameter
	}
	n := int(dma.Load32(in, sz+4) >> 16 & 0xFF)
	if n < 1 || n > c.numPorts || c.ports[n].dev == nil || c.ports[n].sc&regs.PORTSC_PED == 0 {
		return ring.CodeUSBTransaction
	}
	s.port = n
	copy(out[:sz], in[sz:2*sz])
	dma.Store32(out, 12, slotStateAddressed<<27|uint32(id))
	if code := c.loadEndpoint(s, in, out, 1); code != ring.CodeSuccess {
		return code
	}
	c.ports[n].dev.address = id
	return ring.CodeSuccess
}

func (c *Controller) configureEndpoints(id uint8, s *slot, input uint64) ring.CompletionCode {
	in, out, ok := c.contexts(id, input)
	if !ok {
		return ring.CodeParameter
	}
	sz := c.ctxSize()
	add := dma.Load32(in, 4)
	for dci := 2; dci < 32; dci++ {
		if add&(1<<dci) == 0 {
			continue
		}
		if code := c.loadEndpoint(s, in, out, dci); code != ring.CodeSuccess {
			return code
		}
	}
	entries := dma.Load32(in, sz) >> 27
	dword0 := dma.Load32(out, 0)&^(0x1F<<27) | entries<<27
	dma.Store32(out, 0, dword0)
	dma.Store32(out, 12, slotStateConfigured<<27|uint32(id))
	return ring.CodeSuccess
}

func (c *Controller) evaluateContext(id uint8, input uint64) ring.CompletionCode {
	in, out, ok := c.contexts(id, input)
	if !ok {
		return ring.CodeParameter
	}
	if dma.Load32(in, 4)&(1<<1) != 0 {
		sz := c.ctxSize()
		mps := dma.Load32(in, 2*sz+4) & 0xFFFF_0000
		v := dma.Load32(out, sz+4)
		dma.Store32(out, sz+4, v&0xFFFF|mps)
	}
	return ring.CodeSuccess
}

// loadEndpoint copies the endpoint context for dci from the input context
// to the output context and starts its transfer ring.
func (c *Controller) loadEndpoint(s *slot, in, out []byte, dci int) ring.CompletionCode {
	sz := c.ctxSize()
	src := in[(1+dci)*sz : (2+dci)*sz]
	dst := out[dci*sz : (dci+1)*sz]
	typ := uint8(dma.Load32(src, 4) >> 3 & 0x7)
	deq := dma.Load64(src, 8)
	if typ == 0 || deq&^0xF == 0 {
		return ring.CodeParameter
	}
	copy(dst, src)
	dma.Store32(dst, 0, dma.Load32(dst, 0)&^0x7|epStateRunning)
	s.eps[dci] = endpoint{enabled: true, typ: typ, deq: deq &^ 0xF, ccs: deq&1 != 0}
	return ring.CodeSuccess
}
