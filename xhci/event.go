package xhci

import (
	"github.com/ardnew/softxhci/pkg"
	"github.com/ardnew/softxhci/xhci/regs"
	"github.com/ardnew/softxhci/xhci/ring"
)

// HasFront reports whether an unconsumed event is waiting on the primary
// event ring. It has no side effects.
func (c *Controller) HasFront() bool { return c.events.HasFront() }

// ProcessEvent consumes exactly one event and dispatches it. The ring
// cursor and ERDP are advanced before dispatch, so an event whose handling
// fails is never seen again. With no event pending it returns nil.
// IMAN.IP is cleared on every call, so ProcessEvent can run from the
// interrupt handler.
func (c *Controller) ProcessEvent() error {
	if c.intr.Pending() {
		c.intr.AckPending()
	}
	t, ok := c.popEvent()
	if !ok {
		return nil
	}
	err := c.dispatch(t)
	if c.depth == 0 {
		c.drainPending()
	}
	return err
}

func (c *Controller) popEvent() (ring.TRB, bool) {
	t, ok := c.events.Pop()
	if ok {
		c.intr.SetDequeuePointer(c.events.DequeuePointer())
	}
	return t, ok
}

func (c *Controller) dispatch(t ring.TRB) error {
	switch t.Type() {
	case ring.TypePortStatusChange:
		return c.onPortStatusChange(int(t.PortID()))
	case ring.TypeCommandCompletion:
		return c.onCommandCompletion(t)
	case ring.TypeTransferEvent:
		return c.onTransferEvent(t)
	default:
		pkg.LogDebug(pkg.ComponentEvent, "event ignored",
			"type", t.Type().String(), "code", t.CompletionCode().String())
		return nil
	}
}

func (c *Controller) onCommandCompletion(t ring.TRB) error {
	code := t.CompletionCode()
	matched := c.outstanding.pending && t.Pointer() == c.outstanding.addr
	if matched {
		c.outstanding.pending = false
		c.outstanding.code = code
		c.outstanding.slot = t.SlotID()
	}
	pkg.LogDebug(pkg.ComponentCommand, "command completed",
		"trb", t.Pointer(), "code", code.String(), "slot", t.SlotID(), "matched", matched)
	if code != ring.CodeSuccess {
		return pkg.CodeError(pkg.CauseCommandFailed, uint8(code), "command completion: "+code.String())
	}
	if !matched {
		return pkg.Errorf(pkg.CauseInvalidState, "completion for unknown command %#x", t.Pointer())
	}
	return nil
}

func (c *Controller) onTransferEvent(t ring.TRB) error {
	id := t.SlotID()
	if id == 0 || int(id) > c.maxSlots || !c.slots[id].inUse {
		return pkg.Errorf(pkg.CauseNoSuchDevice, "transfer event for slot %d", id)
	}
	s := &c.slots[id]
	switch dci := t.EndpointID(); {
	case dci == dciEP0:
		return s.onControlEvent(t)
	case dci == s.dci && s.dci != 0:
		return c.onInterruptEvent(s, t)
	default:
		return pkg.Errorf(pkg.CauseNoSuchDevice, "slot %d: transfer event for endpoint %d", id, dci)
	}
}

// onPortStatusChange acknowledges the change and reconciles the port with
// its configuration. While a wait is active the port is deferred; changes
// on the port being configured belong to that configuration.
func (c *Controller) onPortStatusChange(n int) error {
	p, err := c.PortAt(n)
	if err != nil {
		return err
	}
	if n == c.configuring {
		p.ackChanges()
		return nil
	}
	if c.depth > 0 {
		c.markPending(n)
		return nil
	}
	return c.reconcile(p)
}

// reconcile acknowledges the changes of port p and brings its
// configuration in line with PORTSC. A connect change on a configured port
// means the device was replaced: the old slot is released before the new
// device is configured.
func (c *Controller) reconcile(p Port) error {
	v := p.ackChanges()
	connected := v&regs.PORTSC_CCS != 0
	replaced := v&regs.PORTSC_CSC != 0
	pkg.LogDebug(pkg.ComponentPort, "port status change",
		"port", p.n, "connected", connected, "connectChange", replaced, "configured", p.Configured())

	if p.Configured() && (!connected || replaced) {
		err := c.releasePort(p.n)
		if !connected {
			return err
		}
		if err != nil {
			pkg.LogErr(pkg.ComponentPort, "release of replaced device failed", err, "port", p.n)
		}
	}
	if connected && !p.Configured() {
		return c.ConfigurePort(p.n)
	}
	return nil
}

// drainPending handles port changes deferred during waits.
func (c *Controller) drainPending() {
	for n := c.nextPending(); n != 0; n = c.nextPending() {
		p, err := c.PortAt(n)
		if err == nil {
			err = c.reconcile(p)
		}
		if err != nil {
			pkg.LogErr(pkg.ComponentPort, "deferred port change failed", err, "port", n)
		}
	}
}
