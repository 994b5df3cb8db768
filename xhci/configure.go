package xhci

import (
	"github.com/ardnew/softxhci/dma"
	"github.com/ardnew/softxhci/pkg"
	"github.com/ardnew/softxhci/usb"
	"github.com/ardnew/softxhci/xhci/regs"
	"github.com/ardnew/softxhci/xhci/ring"
)

// ConfigurePort brings the device on port n from attached to configured:
// port reset, slot assignment, addressing, descriptor fetch, configuration
// and, for a HID boot keyboard or mouse, attaching its class driver and
// arming the first interrupt transfer.
//
// A port that is already configured is left alone. Port changes that
// arrive while the device is being configured are handled afterwards.
func (c *Controller) ConfigurePort(n int) error {
	p, err := c.PortAt(n)
	if err != nil {
		return err
	}
	if !c.running {
		return pkg.NewError(pkg.CauseInvalidState, "configure before run")
	}
	if c.configuring != 0 {
		return pkg.Errorf(pkg.CauseInvalidState, "port %d: port %d is being configured", n, c.configuring)
	}
	if p.Configured() {
		return nil
	}
	if !p.Connected() {
		return pkg.Errorf(pkg.CauseNoSuchDevice, "port %d: nothing attached", n)
	}

	c.configuring = n
	err = c.configurePort(p)
	c.configuring = 0
	if c.depth == 0 {
		c.drainPending()
	}
	return err
}

// ConfigurePorts scans every root hub port once. Connected ports are
// configured, disconnected ones released and replaced devices set up
// again; a failing port is logged and the scan moves on.
func (c *Controller) ConfigurePorts() {
	for n := 1; n <= c.maxPorts; n++ {
		p, err := c.PortAt(n)
		if err != nil {
			continue
		}
		if err := c.reconcile(p); err != nil {
			pkg.LogErr(pkg.ComponentPort, "port configuration failed", err, "port", n)
		}
	}
}

func (c *Controller) configurePort(p Port) error {
	// The connect change is consumed by this configuration.
	p.regs.AckChanges(regs.PORTSC_CSC)
	if err := p.reset(c.pollLimit); err != nil {
		return err
	}
	speed := p.Speed()
	pkg.LogDebug(pkg.ComponentPort, "port reset", "port", p.n, "speed", speed.String())

	s, err := c.enableSlot(p.n, speed)
	if err != nil {
		return err
	}
	if err := c.setupDevice(s); err != nil {
		c.disableSlot(s)
		return err
	}
	c.ports[p.n].slot = s.id
	return nil
}

// enableSlot obtains a slot ID from the controller and binds it to port n.
func (c *Controller) enableSlot(n int, speed usb.Speed) (*Slot, error) {
	if c.FreeSlots() == 0 {
		return nil, pkg.Errorf(pkg.CauseNoResources, "port %d: no free slots", n)
	}
	id, err := c.issue(ring.NewEnableSlot())
	if err != nil {
		return nil, err
	}
	s, err := c.claimSlot(id, n, speed)
	if err != nil {
		c.issueDisable(id)
		return nil, err
	}
	return s, nil
}

// setupDevice runs everything after Enable Slot. On failure the caller
// disables the slot.
func (c *Controller) setupDevice(s *Slot) error {
	mps := s.speed.MaxPacketSize0()
	if err := c.addressDevice(s, mps); err != nil {
		return err
	}

	// The first 8 bytes carry bMaxPacketSize0.
	buf, err := c.getDescriptor(s, usb.GetDescriptor(usb.DescriptorTypeDevice, 0, usb.DeviceDescriptorPrefix))
	if err != nil {
		return err
	}
	if len(buf) < usb.DeviceDescriptorPrefix {
		return pkg.Errorf(pkg.CauseInvalidDescriptor, "device descriptor prefix: %d bytes", len(buf))
	}
	prefix := usb.DeviceDescriptor{MaxPacketSize0: buf[7]}
	if actual := prefix.EP0MaxPacketSize(s.speed); actual != 0 && actual != mps {
		if err := c.evaluateEP0(s, actual); err != nil {
			return err
		}
	}

	if buf, err = c.getDescriptor(s, usb.GetDescriptor(usb.DescriptorTypeDevice, 0, usb.DeviceDescriptorSize)); err != nil {
		return err
	}
	if err := usb.ParseDeviceDescriptor(buf, &s.device); err != nil {
		return err
	}

	if err := c.fetchConfiguration(s); err != nil {
		return err
	}
	if _, err := c.controlTransfer(s, usb.SetConfiguration(s.config.Header.ConfigurationValue), nil); err != nil {
		return err
	}

	iface, ep, ok := s.config.BootInterface()
	if !ok {
		pkg.LogInfo(pkg.ComponentPort, "device configured without class driver",
			"port", s.port, "slot", s.id,
			"vendor", s.device.VendorID, "product", s.device.ProductID)
		return nil
	}
	return c.attachHID(s, iface, ep)
}

func (c *Controller) addressDevice(s *Slot, mps uint16) error {
	in := s.input(c.ctxSize)
	in.reset()
	in.add(dciEP0)
	in.setSlot(s.speed, s.port, dciEP0)
	in.setEndpoint(dciEP0, epTypeControl, mps, 0, &s.mem.ep0, 8)
	dma.Store64(c.dcbaa.Bytes, int(s.id)*8, s.mem.device.Addr)
	if _, err := c.issue(ring.NewAddressDevice(s.mem.input.Addr, s.id, false)); err != nil {
		return err
	}
	pkg.LogDebug(pkg.ComponentPort, "device addressed",
		"port", s.port, "slot", s.id, "state", s.State())
	return nil
}

// evaluateEP0 updates the default endpoint's max packet size.
func (c *Controller) evaluateEP0(s *Slot, mps uint16) error {
	in := s.input(c.ctxSize)
	in.reset()
	in.add(dciEP0)
	in.setSlot(s.speed, s.port, dciEP0)
	in.setEndpoint(dciEP0, epTypeControl, mps, 0, &s.mem.ep0, 8)
	in.setMaxPacket(dciEP0, mps)
	_, err := c.issue(ring.NewEvaluateContext(s.mem.input.Addr, s.id))
	return err
}

// getDescriptor runs an IN request into the slot's control buffer and
// returns the bytes received. The result is valid until the next request.
func (c *Controller) getDescriptor(s *Slot, setup usb.SetupPacket) ([]byte, error) {
	buf := s.mem.ctrlBuf.Bytes
	n, err := c.controlTransfer(s, setup, buf)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

// fetchConfiguration reads configuration 0, header first to learn
// wTotalLength, then the whole tree.
func (c *Controller) fetchConfiguration(s *Slot) error {
	buf, err := c.getDescriptor(s, usb.GetDescriptor(usb.DescriptorTypeConfiguration, 0, usb.ConfigurationDescriptorSize))
	if err != nil {
		return err
	}
	var hdr usb.ConfigurationDescriptor
	if err := usb.ParseConfigurationDescriptor(buf, &hdr); err != nil {
		return err
	}
	total := int(hdr.TotalLength)
	if total > ControlBufferSize {
		return pkg.Errorf(pkg.CauseInvalidDescriptor, "configuration of %d bytes", total)
	}
	if buf, err = c.getDescriptor(s, usb.GetDescriptor(usb.DescriptorTypeConfiguration, 0, uint16(total))); err != nil {
		return err
	}
	return usb.ParseConfiguration(buf, &s.config)
}

// attachHID switches a boot interface to the boot protocol, configures its
// interrupt IN endpoint and arms the first report.
func (c *Controller) attachHID(s *Slot, iface *usb.Interface, ep *usb.EndpointDescriptor) error {
	num := iface.Descriptor.InterfaceNumber
	if iface.HasHID && iface.HID.ReportLength > 0 {
		length := min(iface.HID.ReportLength, ControlBufferSize)
		if _, err := c.getDescriptor(s, usb.GetInterfaceDescriptor(usb.DescriptorTypeHIDReport, 0, num, length)); err != nil {
			return err
		}
	}
	if _, err := c.controlTransfer(s, usb.SetProtocol(num, usb.HIDBootProtocol), nil); err != nil {
		return err
	}
	if _, err := c.controlTransfer(s, usb.SetIdle(num, 0, 0), nil); err != nil {
		// Optional for mice; some devices stall it.
		pkg.LogErr(pkg.ComponentHID, "SET_IDLE rejected", err, "slot", s.id)
	}

	dci := ep.ContextIndex()
	mps := ep.PacketSize()
	in := s.input(c.ctxSize)
	in.reset()
	in.add(dci)
	in.setSlot(s.speed, s.port, dci)
	in.setEndpoint(dci, epTypeInterruptIn, mps, interruptInterval(s.speed, ep.Interval), &s.mem.intr, mps)
	if _, err := c.issue(ring.NewConfigureEndpoint(s.mem.input.Addr, s.id)); err != nil {
		return err
	}

	s.iface, s.ep, s.dci = num, *ep, dci
	var kind string
	if iface.Descriptor.IsBootKeyboard() {
		s.driver, kind = &c.keyboard, "keyboard"
	} else {
		s.driver, kind = &c.mouse, "mouse"
	}
	c.armInterrupt(s)
	pkg.LogInfo(pkg.ComponentHID, "boot device attached",
		"kind", kind, "port", s.port, "slot", s.id, "endpoint", dci,
		"maxPacket", mps, "interval", ep.Interval)
	return nil
}

// releasePort tears down the device of a port whose device went away.
func (c *Controller) releasePort(n int) error {
	id := c.ports[n].slot
	if id == 0 {
		return nil
	}
	c.ports[n] = portState{}
	s := &c.slots[id]
	if s.driver != nil {
		s.driver.Detach(id)
	}
	err := c.disableSlot(s)
	pkg.LogInfo(pkg.ComponentPort, "device released", "port", n, "slot", id)
	return err
}

// disableSlot hands the slot ID back to the controller and returns s to
// the free pool. The pool is updated even if the command fails.
func (c *Controller) disableSlot(s *Slot) error {
	if !s.inUse {
		return nil
	}
	err := c.issueDisable(s.id)
	dma.Store64(c.dcbaa.Bytes, int(s.id)*8, 0)
	s.release()
	return err
}

func (c *Controller) issueDisable(id uint8) error {
	_, err := c.issue(ring.NewDisableSlot(id))
	if err != nil {
		pkg.LogErr(pkg.ComponentCommand, "disable slot failed", err, "slot", id)
	}
	return err
}
