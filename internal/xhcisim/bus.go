package xhcisim

import (
	"github.com/ardnew/softxhci/pkg"
	"github.com/ardnew/softxhci/xhci/regs"
)

const (
	opBase    = capLength
	portBase  = opBase + regs.PortRegisterBase
	intr0Base = runtimeOffset + regs.InterrupterBase
)

// Read32 implements mmio.Bus.
func (c *Controller) Read32(addr uint64) uint32 {
	off, ok := c.offset(addr)
	if !ok {
		return 0xFFFF_FFFF
	}
	switch {
	case off < capLength:
		return c.readCapability(off)
	case off >= portBase && off < portBase+uint64(c.numPorts)*regs.PortRegisterSize:
		n, r := c.portOf(off)
		if r == regs.PORTSC {
			return c.ports[n].sc
		}
		return 0
	case off == opBase+regs.PAGESIZE:
		return 1 // 4 KiB
	case off >= doorbellOffset && off < legacyOffset:
		return 0
	}
	return c.reg(off)
}

// Write32 implements mmio.Bus.
func (c *Controller) Write32(addr uint64, v uint32) {
	off, ok := c.offset(addr)
	if !ok || off < capLength {
		return
	}
	switch {
	case off == opBase+regs.USBCMD:
		c.writeCommand(v)
	case off == opBase+regs.USBSTS:
		c.setReg(off, c.reg(off)&^(v&(1<<regs.USBSTS_HSE|1<<regs.USBSTS_EINT|1<<regs.USBSTS_PCD)))
	case off == opBase+regs.CRCR || off == opBase+regs.CRCR+4:
		c.setReg(off, v)
		crcr := c.reg64(opBase + regs.CRCR)
		c.cmdDeq = crcr &^ 0x3F
		c.cmdCCS = crcr&(1<<regs.CRCR_RCS) != 0
	case off >= portBase && off < portBase+uint64(c.numPorts)*regs.PortRegisterSize:
		if n, r := c.portOf(off); r == regs.PORTSC {
			c.writePortStatus(n, v)
		}
	case off == intr0Base+regs.IMAN:
		iman := c.reg(off) &^ (v & regs.IMAN_IP)
		iman = iman&^regs.IMAN_IE | v&regs.IMAN_IE
		c.setReg(off, iman)
	case off == intr0Base+regs.ERSTBA || off == intr0Base+regs.ERSTBA+4:
		c.setReg(off, v)
		c.events.configure(c)
	case off == intr0Base+regs.ERDP:
		// EHB is RW1C and set by the controller.
		c.setReg(off, v&^0xF|c.reg(off)&^(v&regs.ERDP_EHB)&regs.ERDP_EHB)
	case off >= doorbellOffset && off < doorbellOffset+uint64(c.numSlots+1)*4:
		c.ringDoorbell(uint8((off-doorbellOffset)/4), uint8(v))
	case off == legacyOffset:
		c.writeLegacySupport(v)
	default:
		c.setReg(off, v)
	}
}

func (c *Controller) offset(addr uint64) (uint64, bool) {
	if addr < c.base || addr >= c.base+windowSize || addr&3 != 0 {
		pkg.LogWarn(pkg.ComponentSim, "access outside register window", "addr", addr)
		return 0, false
	}
	return addr - c.base, true
}

func (c *Controller) portOf(off uint64) (int, uint64) {
	rel := off - portBase
	return int(rel/regs.PortRegisterSize) + 1, rel % regs.PortRegisterSize
}

func (c *Controller) readCapability(off uint64) uint32 {
	switch off {
	case regs.CAPLENGTH:
		return hciVersion<<16 | capLength
	case regs.HCSPARAMS1:
		return uint32(c.numPorts)<<24 | 1<<8 | uint32(c.numSlots)
	case regs.HCSPARAMS2:
		n := uint32(c.scratchpads)
		return (n&0x1F)<<27 | (n>>5&0x1F)<<21
	case regs.HCCPARAMS1:
		v := uint32(legacyOffset>>2)<<16 | 1 // AC64
		if c.ctx64 {
			v |= 1 << 2
		}
		return v
	case regs.DBOFF:
		return doorbellOffset
	case regs.RTSOFF:
		return runtimeOffset
	}
	return 0
}

func (c *Controller) writeCommand(v uint32) {
	off := uint64(opBase + regs.USBCMD)
	if v&(1<<regs.USBCMD_HCRST) != 0 {
		pkg.LogDebug(pkg.ComponentSim, "controller reset")
		legsup := c.reg(legacyOffset)
		c.powerOn()
		c.setReg(legacyOffset, legsup)
		return
	}
	was := c.reg(off)&(1<<regs.USBCMD_RS) != 0
	c.setReg(off, v)
	sts := c.reg(opBase + regs.USBSTS)
	switch run := v&(1<<regs.USBCMD_RS) != 0; {
	case run && !was:
		c.setReg(opBase+regs.USBSTS, sts&^(1<<regs.USBSTS_HCH))
		// Changes latched while halted are reported now.
		for n := 1; n <= c.numPorts; n++ {
			if c.ports[n].sc&regs.PORTSC_CHANGE != 0 {
				c.portChange(n)
			}
		}
	case !run && was:
		c.setReg(opBase+regs.USBSTS, sts|1<<regs.USBSTS_HCH)
	}
}

func (c *Controller) writePortStatus(n int, v uint32) {
	p := &c.ports[n]
	p.sc &^= v & regs.PORTSC_CHANGE
	if v&regs.PORTSC_PED != 0 {
		p.sc &^= regs.PORTSC_PED
	}
	if v&regs.PORTSC_PR == 0 || p.dev == nil {
		return
	}
	p.sc |= regs.PORTSC_PR
	if p.stuck {
		pkg.LogDebug(pkg.ComponentSim, "port reset stuck", "port", n)
		return
	}
	p.sc &^= regs.PORTSC_PR
	p.sc |= regs.PORTSC_PED | regs.PORTSC_PRC
	c.portChange(n)
}

func (c *Controller) writeLegacySupport(v uint32) {
	cur := c.reg(legacyOffset)
	cur = cur&^(1<<regs.USBLEGSUP_OS_OWNED) | v&(1<<regs.USBLEGSUP_OS_OWNED)
	if cur&(1<<regs.USBLEGSUP_OS_OWNED) != 0 && !c.stuckBIOS {
		cur &^= 1 << regs.USBLEGSUP_BIOS_OWNED
	}
	c.setReg(legacyOffset, cur)
}
