package xhci

import (
	"fmt"

	"github.com/ardnew/softxhci/pkg"
	"github.com/ardnew/softxhci/usb"
	"github.com/ardnew/softxhci/xhci/regs"
)

// Port is a view of one root hub port. Every query reads PORTSC; nothing
// is cached.
type Port struct {
	c    *Controller
	n    int
	regs regs.PortRegisters
}

// PortAt returns the port numbered n, 1 <= n <= MaxPorts.
func (c *Controller) PortAt(n int) (Port, error) {
	if n < 1 || n > c.maxPorts {
		return Port{}, pkg.Errorf(pkg.CauseNoSuchDevice, "port %d of %d", n, c.maxPorts)
	}
	return Port{c: c, n: n, regs: c.regs.Op.Port(n)}, nil
}

// Number returns the 1-based port number.
func (p Port) Number() int { return p.n }

// Status returns the raw PORTSC value.
func (p Port) Status() uint32 { return p.regs.Status() }

// Connected reports whether a device is attached.
func (p Port) Connected() bool { return p.Status()&regs.PORTSC_CCS != 0 }

// Enabled reports whether the port is enabled.
func (p Port) Enabled() bool { return p.Status()&regs.PORTSC_PED != 0 }

// LinkState returns PORTSC.PLS.
func (p Port) LinkState() uint8 {
	return uint8(p.Status()>>regs.PORTSC_PLS_SHIFT) & regs.PORTSC_PLS_MASK
}

// Speed returns the speed of the attached device.
func (p Port) Speed() usb.Speed {
	return usb.Speed(p.Status()>>regs.PORTSC_SPEED_SHIFT) & regs.PORTSC_SPEED_MASK
}

// Configured reports whether the port has a device slot assigned.
func (p Port) Configured() bool { return p.c.ports[p.n].slot != 0 }

// Slot returns the slot ID assigned to the port, or 0.
func (p Port) Slot() uint8 { return p.c.ports[p.n].slot }

// String summarizes the port state.
func (p Port) String() string {
	v := p.Status()
	return fmt.Sprintf("port %d: connected=%t enabled=%t link=%d speed=%d",
		p.n, v&regs.PORTSC_CCS != 0, v&regs.PORTSC_PED != 0,
		v>>regs.PORTSC_PLS_SHIFT&regs.PORTSC_PLS_MASK,
		v>>regs.PORTSC_SPEED_SHIFT&regs.PORTSC_SPEED_MASK)
}

// reset drives a port reset and waits for it to complete.
func (p Port) reset(limit int) error {
	p.regs.Reset()
	if !p.regs.WaitStatus(regs.PORTSC_PR|regs.PORTSC_PRC, regs.PORTSC_PRC, limit) {
		return pkg.Errorf(pkg.CauseTimeout, "port %d reset", p.n)
	}
	p.regs.AckChanges(regs.PORTSC_PRC)
	if !p.Enabled() {
		return pkg.Errorf(pkg.CauseNoSuchDevice, "port %d not enabled after reset", p.n)
	}
	return nil
}

// ackChanges clears every change bit currently set.
func (p Port) ackChanges() uint32 {
	v := p.Status()
	if v&regs.PORTSC_CHANGE != 0 {
		p.regs.AckChanges(v)
	}
	return v
}

// markPending defers handling of a port change until no wait is active.
func (c *Controller) markPending(n int) {
	c.pending[n/64] |= 1 << (n % 64)
}

// nextPending pops the lowest deferred port, or returns 0.
func (c *Controller) nextPending() int {
	for i, w := range c.pending {
		if w == 0 {
			continue
		}
		for b := 0; b < 64; b++ {
			if w&(1<<b) != 0 {
				c.pending[i] &^= 1 << b
				return i*64 + b
			}
		}
	}
	return 0
}
