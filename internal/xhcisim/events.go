package xhcisim

import (
	"github.com/ardnew/softxhci/dma"
	"github.com/ardnew/softxhci/pkg"
	"github.com/ardnew/softxhci/xhci/regs"
	"github.com/ardnew/softxhci/xhci/ring"
)

// eventRing is the producer side of the primary event ring. Only the
// first segment of the table is used.
type eventRing struct {
	seg   uint64
	size  int
	enq   int
	cycle bool
}

// configure reloads the segment table after ERSTBA is written.
func (r *eventRing) configure(c *Controller) {
	*r = eventRing{}
	base := c.reg64(intr0Base+regs.ERSTBA) &^ 0x3F
	if base == 0 || c.reg(intr0Base+regs.ERSTSZ)&0xFFFF == 0 {
		return
	}
	entry := c.mem(base, ring.ERSTEntrySize)
	if entry == nil {
		pkg.LogWarn(pkg.ComponentSim, "segment table outside arena", "erstba", base)
		return
	}
	r.seg = dma.Load64(entry, 0) &^ 0x3F
	r.size = int(dma.Load32(entry, 8) & 0xFFFF)
	r.cycle = true
}

// post writes t at the enqueue index with the producer cycle. It reports
// false when the ring is not configured or the consumer has not freed a
// slot.
func (c *Controller) post(t ring.TRB) bool {
	r := &c.events
	if r.size == 0 {
		c.dropped++
		return false
	}
	erdp := c.reg64(intr0Base+regs.ERDP) &^ 0xF
	deq := int((erdp - r.seg) / ring.Size)
	if (r.enq+1)%r.size == deq {
		c.dropped++
		pkg.LogWarn(pkg.ComponentSim, "event ring full", "event", t.Type().String())
		return false
	}
	mem := c.mem(r.seg, r.size*ring.Size)
	if mem == nil {
		c.dropped++
		return false
	}
	t.SetCycle(r.cycle)
	ring.Write(mem, r.enq*ring.Size, t)
	r.enq++
	if r.enq == r.size {
		r.enq = 0
		r.cycle = !r.cycle
	}

	iman := uint64(intr0Base + regs.IMAN)
	c.setReg(iman, c.reg(iman)|regs.IMAN_IP)
	c.setReg(intr0Base+regs.ERDP, c.reg(intr0Base+regs.ERDP)|regs.ERDP_EHB)
	sts := uint64(opBase + regs.USBSTS)
	c.setReg(sts, c.reg(sts)|1<<regs.USBSTS_EINT)
	pkg.LogDebug(pkg.ComponentSim, "event posted", "event", t.String())
	return true
}
