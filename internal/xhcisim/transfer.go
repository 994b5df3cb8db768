package xhcisim

import (
	"github.com/ardnew/softxhci/pkg"
	"github.com/ardnew/softxhci/usb"
	"github.com/ardnew/softxhci/xhci/ring"
)

// controlTD is a control transfer being assembled from its stage TRBs.
type controlTD struct {
	setup     usb.SetupPacket
	haveSetup bool
	data      ring.TRB
	dataAddr  uint64
	haveData  bool
}

func (c *Controller) ringDoorbell(id, target uint8) {
	if !c.Running() {
		return
	}
	if id == 0 {
		c.runCommands()
		return
	}
	if int(id) > c.numSlots || !c.slots[id].enabled {
		pkg.LogWarn(pkg.ComponentSim, "doorbell for disabled slot", "slot", id)
		return
	}
	s := &c.slots[id]
	if target == 0 || target > 31 || !s.eps[target].enabled {
		pkg.LogWarn(pkg.ComponentSim, "doorbell for disabled endpoint", "slot", id, "endpoint", target)
		return
	}
	if target == 1 {
		c.runControl(id, s)
		return
	}
	c.armInterrupt(id, target, &s.eps[target])
}

// runControl consumes stage TRBs on the default endpoint, answering each
// complete setup, data and status sequence.
func (c *Controller) runControl(id uint8, s *slot) {
	ep := &s.eps[1]
	for {
		t, addr, ok := ep.next(c)
		if !ok {
			return
		}
		ep.deq = addr + ring.Size
		switch t.Type() {
		case ring.TypeSetupStage:
			rt, req, val, idx, length := t.SetupPacket()
			s.td = controlTD{
				setup:     usb.SetupPacket{RequestType: rt, Request: req, Value: val, Index: idx, Length: length},
				haveSetup: true,
			}
		case ring.TypeDataStage:
			s.td.data, s.td.dataAddr, s.td.haveData = t, addr, true
		case ring.TypeStatusStage:
			if s.td.haveSetup {
				c.completeControl(id, s, t, addr)
			}
			s.td = controlTD{}
		default:
			c.post(ring.NewTransferEvent(addr, 0, ring.CodeTRB, id, 1))
		}
	}
}

func (c *Controller) completeControl(id uint8, s *slot, status ring.TRB, statusAddr uint64) {
	td := &s.td
	dev := c.ports[s.port].dev
	if dev == nil {
		c.post(ring.NewTransferEvent(statusAddr, 0, ring.CodeUSBTransaction, id, 1))
		return
	}
	resp, ok := dev.handle(td.setup)
	if !ok {
		at := statusAddr
		if td.haveData {
			at = td.dataAddr
		}
		pkg.LogDebug(pkg.ComponentSim, "request stalled", "slot", id, "request", td.setup.Request)
		c.post(ring.NewTransferEvent(at, 0, ring.CodeStall, id, 1))
		return
	}

	if td.haveData {
		length := td.data.TransferLength()
		n := uint32(0)
		if td.data.DirectionIn() {
			buf := c.mem(td.data.Pointer(), int(length))
			if buf == nil {
				c.post(ring.NewTransferEvent(td.dataAddr, length, ring.CodeDataBuffer, id, 1))
				return
			}
			n = uint32(copy(buf, report(resp, int(td.setup.Length))))
		} else {
			n = length
		}
		residual := length - n
		code := ring.CodeSuccess
		if residual > 0 {
			code = ring.CodeShortPacket
		}
		if td.data.IOC() || (residual > 0 && td.data.ISP()) {
			c.post(ring.NewTransferEvent(td.dataAddr, residual, code, id, 1))
		}
	}
	if status.IOC() {
		c.post(ring.NewTransferEvent(statusAddr, 0, ring.CodeSuccess, id, 1))
	}
}

// armInterrupt records the next Normal TRB of an interrupt endpoint. It
// completes when a report is sent.
func (c *Controller) armInterrupt(id, dci uint8, ep *endpoint) {
	if ep.armed {
		return
	}
	t, addr, ok := ep.next(c)
	if !ok {
		return
	}
	if t.Type() != ring.TypeNormal {
		ep.deq = addr + ring.Size
		c.post(ring.NewTransferEvent(addr, 0, ring.CodeTRB, id, dci))
		return
	}
	ep.armed, ep.armedAddr, ep.armedTRB = true, addr, t
}

// interruptEndpoint finds the armed interrupt IN endpoint of the device on
// port n.
func (c *Controller) interruptEndpoint(n int) (uint8, uint8, *endpoint, error) {
	if n < 1 || n > c.numPorts || c.ports[n].dev == nil {
		return 0, 0, nil, pkg.Errorf(pkg.CauseNoSuchDevice, "port %d: nothing attached", n)
	}
	for id := 1; id <= c.numSlots; id++ {
		s := &c.slots[id]
		if !s.enabled || s.port != n {
			continue
		}
		for dci := 3; dci < 32; dci += 2 {
			ep := &s.eps[dci]
			if ep.enabled && ep.typ == epTypeInterruptIn {
				if !ep.armed {
					return 0, 0, nil, pkg.Errorf(pkg.CauseInvalidState, "port %d: endpoint %d not armed", n, dci)
				}
				return uint8(id), uint8(dci), ep, nil
			}
		}
	}
	return 0, 0, nil, pkg.Errorf(pkg.CauseNoSuchDevice, "port %d: no interrupt endpoint", n)
}

// ArmedLength returns the length of the interrupt transfer armed for the
// device on port n.
func (c *Controller) ArmedLength(n int) (uint32, error) {
	_, _, ep, err := c.interruptEndpoint(n)
	if err != nil {
		return 0, err
	}
	return ep.armedTRB.TransferLength(), nil
}

// SendReport completes the armed interrupt transfer of the device on port
// n with r.
func (c *Controller) SendReport(n int, r []byte) error {
	id, dci, ep, err := c.interruptEndpoint(n)
	if err != nil {
		return err
	}
	length := ep.armedTRB.TransferLength()
	buf := c.mem(ep.armedTRB.Pointer(), int(length))
	if buf == nil {
		return pkg.Errorf(pkg.CauseInvalidState, "port %d: report buffer outside arena", n)
	}
	k := uint32(copy(buf, report(r, int(length))))
	code := ring.CodeSuccess
	if k < length {
		code = ring.CodeShortPacket
	}
	c.finishInterrupt(id, dci, ep, length-k, code)
	return nil
}

// FailTransfer completes the armed interrupt transfer of the device on
// port n with an error code.
func (c *Controller) FailTransfer(n int, code ring.CompletionCode) error {
	id, dci, ep, err := c.interruptEndpoint(n)
	if err != nil {
		return err
	}
	c.finishInterrupt(id, dci, ep, ep.armedTRB.TransferLength(), code)
	return nil
}

func (c *Controller) finishInterrupt(id, dci uint8, ep *endpoint, residual uint32, code ring.CompletionCode) {
	addr := ep.armedAddr
	ep.armed = false
	ep.deq = addr + ring.Size
	c.post(ring.NewTransferEvent(addr, residual, code, id, dci))
	// A TRB queued behind the completed one is picked up at once.
	c.armInterrupt(id, dci, ep)
}
