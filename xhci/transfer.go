package xhci

import (
	"github.com/ardnew/softxhci/pkg"
	"github.com/ardnew/softxhci/usb"
	"github.com/ardnew/softxhci/xhci/ring"
)

// issue places a command on the command ring, rings the command doorbell
// and waits for its completion. It returns the slot ID reported by the
// completion event.
func (c *Controller) issue(t ring.TRB) (uint8, error) {
	if c.outstanding.pending {
		return 0, pkg.Errorf(pkg.CauseInvalidState, "%s while %s outstanding", t.Type(), c.outstanding.typ)
	}
	addr := c.cmd.Push(t)
	c.outstanding = command{addr: addr, typ: t.Type(), pending: true}
	pkg.LogDebug(pkg.ComponentCommand, "command issued", "type", t.Type().String(), "trb", addr)
	c.regs.Doorbell.Ring(0, 0)

	if err := c.wait(func() bool { return !c.outstanding.pending }, t.Type().String()); err != nil {
		c.outstanding.pending = false
		return 0, err
	}
	if code := c.outstanding.code; code != ring.CodeSuccess {
		return c.outstanding.slot, pkg.CodeError(pkg.CauseCommandFailed, uint8(code),
			t.Type().String()+": "+code.String())
	}
	return c.outstanding.slot, nil
}

// wait dispatches events until done reports true or the poll limit is
// reached. Errors from unrelated events are logged, not returned.
func (c *Controller) wait(done func() bool, what string) error {
	c.depth++
	defer func() { c.depth-- }()
	for i := 0; i < c.pollLimit; i++ {
		if done() {
			return nil
		}
		t, ok := c.popEvent()
		if !ok {
			continue
		}
		if err := c.dispatch(t); err != nil && !done() {
			pkg.LogErr(pkg.ComponentEvent, "event failed during wait", err, "waiting", what)
		}
	}
	if done() {
		return nil
	}
	return pkg.Errorf(pkg.CauseTimeout, "waiting for %s", what)
}

// controlTransfer runs a control transfer on the default endpoint of s.
// For IN requests up to len(data) bytes are copied back; it returns the
// number of bytes moved in the data stage.
func (c *Controller) controlTransfer(s *Slot, setup usb.SetupPacket, data []byte) (int, error) {
	length := int(setup.Length)
	if length > len(s.mem.ctrlBuf.Bytes) {
		return 0, pkg.Errorf(pkg.CauseInvalidState, "control transfer of %d bytes", length)
	}
	if s.ctrl.pending {
		return 0, pkg.Errorf(pkg.CauseInvalidState, "slot %d: control transfer outstanding", s.id)
	}

	in := setup.IsIn()
	trt := uint8(ring.TransferNoData)
	switch {
	case length > 0 && in:
		trt = ring.TransferIn
	case length > 0:
		trt = ring.TransferOut
		copy(s.mem.ctrlBuf.Bytes, data[:min(len(data), length)])
	}

	tr := &s.mem.ep0
	s.ctrl = control{pending: true, length: uint32(length)}
	tr.Push(ring.NewSetupStage(setup.RequestType, setup.Request, setup.Value, setup.Index, setup.Length, trt))
	if length > 0 {
		s.ctrl.dataTRB = tr.Push(ring.NewDataStage(s.mem.ctrlBuf.Addr, uint32(length), in, true, true))
	}
	// The status stage runs opposite to the data stage, IN when there is none.
	s.ctrl.lastTRB = tr.Push(ring.NewStatusStage(!in || length == 0, true))
	c.regs.Doorbell.Ring(s.id, dciEP0)

	err := c.wait(func() bool { return !s.ctrl.pending }, "control transfer")
	if err != nil {
		s.ctrl.pending = false
		return 0, err
	}
	if code := s.ctrl.code; code != ring.CodeSuccess && code != ring.CodeShortPacket {
		return 0, pkg.CodeError(pkg.CauseTransferFailed, uint8(code),
			"control request "+requestName(setup)+": "+code.String())
	}

	n := length - int(s.ctrl.residual)
	if n < 0 {
		n = 0
	}
	if in {
		n = copy(data, s.mem.ctrlBuf.Bytes[:n])
	}
	return n, nil
}

// onControlEvent records a transfer event for the default endpoint.
func (s *Slot) onControlEvent(t ring.TRB) error {
	if !s.ctrl.pending {
		return pkg.Errorf(pkg.CauseInvalidState, "slot %d: unexpected control event", s.id)
	}
	code := t.CompletionCode()
	switch {
	case code != ring.CodeSuccess && code != ring.CodeShortPacket:
		s.ctrl.code = code
		s.ctrl.pending = false
	case t.Pointer() == s.ctrl.dataTRB:
		s.ctrl.residual = t.TransferLength()
		s.ctrl.code = code
	case t.Pointer() == s.ctrl.lastTRB:
		if s.ctrl.code == 0 {
			s.ctrl.code = code
		}
		s.ctrl.pending = false
	}
	return nil
}

// reportSize is the length of one interrupt transfer: a single packet,
// bounded by the report buffer.
func (s *Slot) reportSize() int {
	return min(int(s.ep.PacketSize()), len(s.mem.reportBuf.Bytes))
}

// armInterrupt queues one interrupt IN transfer into the report buffer.
func (c *Controller) armInterrupt(s *Slot) {
	n := s.reportSize()
	s.mem.intr.Push(ring.NewNormal(s.mem.reportBuf.Addr, uint32(n), true, true))
	s.armed = true
	c.regs.Doorbell.Ring(s.id, s.dci)
}

// onInterruptEvent hands a completed report to the class driver and
// re-arms the endpoint. A failed transfer leaves the endpoint unarmed.
func (c *Controller) onInterruptEvent(s *Slot, t ring.TRB) error {
	s.armed = false
	code := t.CompletionCode()
	if code != ring.CodeSuccess && code != ring.CodeShortPacket {
		pkg.LogWarn(pkg.ComponentHID, "interrupt endpoint stopped, device inactive until replugged",
			"slot", s.id, "port", s.port, "code", code.String())
		return pkg.CodeError(pkg.CauseTransferFailed, uint8(code),
			"interrupt transfer: "+code.String())
	}
	if s.driver == nil {
		return pkg.Errorf(pkg.CauseInvalidState, "slot %d: interrupt event without driver", s.id)
	}
	n := s.reportSize() - int(t.TransferLength())
	if n < 0 {
		n = 0
	}
	err := s.driver.OnReport(s.id, s.mem.reportBuf.Bytes[:n])
	c.armInterrupt(s)
	return err
}

func requestName(s usb.SetupPacket) string {
	switch s.Request {
	case usb.RequestGetDescriptor:
		return "GET_DESCRIPTOR"
	case usb.RequestSetConfiguration:
		return "SET_CONFIGURATION"
	case usb.RequestHIDSetProtocol:
		return "SET_PROTOCOL"
	case usb.RequestHIDSetIdle:
		return "SET_IDLE"
	default:
		return "request"
	}
}
