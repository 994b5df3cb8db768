package xhcisim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ardnew/softxhci/pkg"
	"github.com/ardnew/softxhci/usb"
	"github.com/ardnew/softxhci/xhci/regs"
)

func TestCapabilityRegisters(t *testing.T) {
	c := New(WithPorts(6), WithSlots(16), WithScratchpads(40), WithContextSize64())
	caps := regs.Map(c, c.Base()).Cap

	assert.Equal(t, uint8(capLength), caps.Length())
	assert.Equal(t, uint16(hciVersion), caps.Version())
	assert.Equal(t, 6, caps.MaxPorts())
	assert.Equal(t, 16, caps.MaxSlots())
	assert.Equal(t, 40, caps.MaxScratchpadBuffers())
	assert.Equal(t, 64, caps.ContextSize())
	assert.Equal(t, uint64(legacyOffset), caps.ExtendedCapabilities())
}

func TestReset_PreservesAttachedDevices(t *testing.T) {
	c := New()
	require.NoError(t, c.Connect(2, NewMouse(usb.SpeedLow)))
	op := regs.Map(c, c.Base()).Op

	op.SetCommandBit(regs.USBCMD_HCRST)
	assert.Zero(t, op.Command()&(1<<regs.USBCMD_HCRST))
	assert.True(t, op.Halted())

	sc := op.Port(2).Status()
	assert.NotZero(t, sc&regs.PORTSC_CCS)
	assert.NotZero(t, sc&regs.PORTSC_CSC)
	assert.Zero(t, sc&regs.PORTSC_PED)
	assert.Equal(t, uint32(usb.SpeedLow), sc>>regs.PORTSC_SPEED_SHIFT&regs.PORTSC_SPEED_MASK)
}

func TestPortReset(t *testing.T) {
	c := New(WithStuckReset(3))
	require.NoError(t, c.Connect(1, NewKeyboard(usb.SpeedFull)))
	require.NoError(t, c.Connect(3, NewKeyboard(usb.SpeedFull)))
	op := regs.Map(c, c.Base()).Op

	p := op.Port(1)
	p.Reset()
	assert.Equal(t, uint32(regs.PORTSC_PRC), p.Status()&(regs.PORTSC_PR|regs.PORTSC_PRC))
	assert.NotZero(t, p.Status()&regs.PORTSC_PED)
	p.AckChanges(regs.PORTSC_PRC)
	assert.Zero(t, p.Status()&regs.PORTSC_PRC)
	assert.NotZero(t, p.Status()&regs.PORTSC_CSC, "other change bits survive a neutral write")

	stuck := op.Port(3)
	stuck.Reset()
	assert.False(t, stuck.WaitStatus(regs.PORTSC_PR, 0, 100))
}

func TestConnect_Errors(t *testing.T) {
	c := New(WithPorts(2))
	d := NewMouse(usb.SpeedHigh)
	assert.Equal(t, pkg.CauseNoSuchDevice, pkg.CauseOf(c.Connect(3, d)))
	require.NoError(t, c.Connect(1, d))
	assert.Equal(t, pkg.CauseInvalidState, pkg.CauseOf(c.Connect(1, d)))
	require.NoError(t, c.Disconnect(1))
	assert.Equal(t, pkg.CauseNoSuchDevice, pkg.CauseOf(c.Disconnect(1)))
	assert.Zero(t, c.PortStatus(1)&regs.PORTSC_CCS)
}

func TestDevice_Descriptors(t *testing.T) {
	for _, d := range []*Device{NewKeyboard(usb.SpeedHigh), NewMouse(usb.SpeedFull), NewMassStorage(usb.SpeedSuper)} {
		raw, ok := d.handle(usb.GetDescriptor(usb.DescriptorTypeDevice, 0, usb.DeviceDescriptorSize))
		require.True(t, ok)
		var dev usb.DeviceDescriptor
		require.NoError(t, usb.ParseDeviceDescriptor(raw, &dev))

		raw, ok = d.handle(usb.GetDescriptor(usb.DescriptorTypeConfiguration, 0, usb.MaxConfigurationSize))
		require.True(t, ok)
		var cfg usb.Configuration
		require.NoError(t, usb.ParseConfiguration(raw, &cfg))

		_, _, boot := cfg.BootInterface()
		assert.Equal(t, d.Report != nil, boot)
	}
}

func TestDevice_Requests(t *testing.T) {
	d := NewMouse(usb.SpeedHigh)

	_, ok := d.handle(usb.SetProtocol(0, usb.HIDBootProtocol))
	assert.True(t, ok)
	proto, set := d.Protocol()
	assert.True(t, set)
	assert.Equal(t, uint16(usb.HIDBootProtocol), proto)

	d.StallSetIdle = true
	_, ok = d.handle(usb.SetIdle(0, 0, 0))
	assert.False(t, ok)

	_, ok = d.handle(usb.GetDescriptor(usb.DescriptorTypeString, 1, 255))
	assert.False(t, ok, "unknown requests stall")
	assert.Len(t, d.Requests(), 3)
}
