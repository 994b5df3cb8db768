package xhcisim

import "github.com/ardnew/softxhci/usb"

// Boot protocol report descriptors (HID 1.11, appendix B).
var (
	bootKeyboardReport = []byte{
		0x05, 0x01, 0x09, 0x06, 0xA1, 0x01, 0x05, 0x07, 0x19, 0xE0, 0x29, 0xE7,
		0x15, 0x00, 0x25, 0x01, 0x75, 0x01, 0x95, 0x08, 0x81, 0x02, 0x95, 0x01,
		0x75, 0x08, 0x81, 0x01, 0x95, 0x05, 0x75, 0x01, 0x05, 0x08, 0x19, 0x01,
		0x29, 0x05, 0x91, 0x02, 0x95, 0x01, 0x75, 0x03, 0x91, 0x01, 0x95, 0x06,
		0x75, 0x08, 0x15, 0x00, 0x25, 0x65, 0x05, 0x07, 0x19, 0x00, 0x29, 0x65,
		0x81, 0x00, 0xC0,
	}
	bootMouseReport = []byte{
		0x05, 0x01, 0x09, 0x02, 0xA1, 0x01, 0x09, 0x01, 0xA1, 0x00, 0x05, 0x09,
		0x19, 0x01, 0x29, 0x03, 0x15, 0x00, 0x25, 0x01, 0x95, 0x03, 0x75, 0x01,
		0x81, 0x02, 0x95, 0x01, 0x75, 0x05, 0x81, 0x01, 0x05, 0x01, 0x09, 0x30,
		0x09, 0x31, 0x15, 0x81, 0x25, 0x7F, 0x75, 0x08, 0x95, 0x02, 0x81, 0x06,
		0xC0, 0xC0,
	}
)

// Device is an emulated USB device. Its descriptors are served to the
// driver's control requests; the requests it receives are recorded.
type Device struct {
	Speed      usb.Speed
	Descriptor usb.DeviceDescriptor
	Config     []byte // full configuration descriptor tree
	Report     []byte // HID report descriptor, nil for non-HID devices

	// StallSetIdle makes the device reject SET_IDLE, as some mice do.
	StallSetIdle bool

	address       uint8
	configuration uint8
	protocol      uint16
	protocolSet   bool
	requests      []usb.SetupPacket
}

// NewKeyboard returns a HID boot keyboard.
func NewKeyboard(speed usb.Speed) *Device {
	return newHIDDevice(speed, 0x413C, 0x2107, usb.HIDProtocolKeyboard, 8, 10, bootKeyboardReport)
}

// NewMouse returns a HID boot mouse.
func NewMouse(speed usb.Speed) *Device {
	return newHIDDevice(speed, 0x046D, 0xC077, usb.HIDProtocolMouse, 4, 10, bootMouseReport)
}

// NewMassStorage returns a bulk-only mass storage device, which the
// driver configures without a class driver.
func NewMassStorage(speed usb.Speed) *Device {
	d := &Device{Speed: speed, Descriptor: deviceDescriptor(speed, 0x0781, 0x5567)}
	mps := uint16(64)
	if speed == usb.SpeedHigh {
		mps = 512
	} else if speed >= usb.SpeedSuper {
		mps = 1024
	}
	iface := usb.InterfaceDescriptor{
		InterfaceNumber:   0,
		NumEndpoints:      2,
		InterfaceClass:    usb.ClassMassStorage,
		InterfaceSubClass: 0x06, // SCSI transparent
		InterfaceProtocol: 0x50, // bulk-only
	}
	in := usb.EndpointDescriptor{EndpointAddress: 0x81, Attributes: usb.EndpointTypeBulk, MaxPacketSize: mps}
	out := usb.EndpointDescriptor{EndpointAddress: 0x02, Attributes: usb.EndpointTypeBulk, MaxPacketSize: mps}
	d.Config = buildConfig(&iface, nil, &in, &out)
	return d
}

func newHIDDevice(speed usb.Speed, vid, pid uint16, protocol uint8, mps uint16, interval uint8, report []byte) *Device {
	d := &Device{
		Speed:      speed,
		Descriptor: deviceDescriptor(speed, vid, pid),
		Report:     report,
		protocol:   usb.HIDReportProtocol,
	}
	iface := usb.InterfaceDescriptor{
		InterfaceNumber:   0,
		NumEndpoints:      1,
		InterfaceClass:    usb.ClassHID,
		InterfaceSubClass: usb.HIDSubclassBoot,
		InterfaceProtocol: protocol,
	}
	hid := usb.HIDDescriptor{HIDVersion: 0x0111, NumDescriptors: 1, ReportType: usb.DescriptorTypeHIDReport, ReportLength: uint16(len(report))}
	if speed == usb.SpeedHigh {
		interval = 7 // 2^(7-1) microframes = 8 ms
	}
	ep := usb.EndpointDescriptor{EndpointAddress: 0x81, Attributes: usb.EndpointTypeInterrupt, MaxPacketSize: mps, Interval: interval}
	d.Config = buildConfig(&iface, &hid, &ep)
	return d
}

func deviceDescriptor(speed usb.Speed, vid, pid uint16) usb.DeviceDescriptor {
	d := usb.DeviceDescriptor{
		USBVersion:        0x0200,
		VendorID:          vid,
		ProductID:         pid,
		DeviceVersion:     0x0100,
		NumConfigurations: 1,
	}
	switch speed {
	case usb.SpeedLow:
		d.MaxPacketSize0 = 8
		d.USBVersion = 0x0110
	case usb.SpeedFull, usb.SpeedHigh:
		d.MaxPacketSize0 = 64
	default:
		d.MaxPacketSize0 = 9 // 2^9 = 512
		d.USBVersion = 0x0300
	}
	return d
}

func buildConfig(iface *usb.InterfaceDescriptor, hid *usb.HIDDescriptor, eps ...*usb.EndpointDescriptor) []byte {
	body := iface.AppendBinary(nil)
	if hid != nil {
		body = hid.AppendBinary(body)
	}
	for _, ep := range eps {
		body = ep.AppendBinary(body)
	}
	hdr := usb.ConfigurationDescriptor{
		TotalLength:        uint16(usb.ConfigurationDescriptorSize + len(body)),
		NumInterfaces:      1,
		ConfigurationValue: 1,
		Attributes:         0x80,
		MaxPower:           50,
	}
	return append(hdr.AppendBinary(make([]byte, 0, int(hdr.TotalLength))), body...)
}

// Address returns the USB address assigned by Address Device, or 0.
func (d *Device) Address() uint8 { return d.address }

// Configuration returns the value of the last SET_CONFIGURATION.
func (d *Device) Configuration() uint8 { return d.configuration }

// Protocol returns the HID protocol last selected with SET_PROTOCOL.
func (d *Device) Protocol() (uint16, bool) { return d.protocol, d.protocolSet }

// Requests returns every control request received, in order.
func (d *Device) Requests() []usb.SetupPacket { return d.requests }

// handle answers a control request. For IN requests it returns the data
// stage; ok is false when the device stalls.
func (d *Device) handle(setup usb.SetupPacket) (data []byte, ok bool) {
	d.requests = append(d.requests, setup)
	typ := setup.RequestType & (usb.RequestTypeClass | usb.RequestTypeVendor)
	switch {
	case typ == usb.RequestTypeStandard && setup.Request == usb.RequestGetDescriptor:
		return d.descriptor(setup)
	case typ == usb.RequestTypeStandard && setup.Request == usb.RequestSetConfiguration:
		d.configuration = uint8(setup.Value)
		return nil, true
	case typ == usb.RequestTypeClass && setup.Request == usb.RequestHIDSetProtocol && d.Report != nil:
		d.protocol, d.protocolSet = setup.Value, true
		return nil, true
	case typ == usb.RequestTypeClass && setup.Request == usb.RequestHIDSetIdle && d.Report != nil:
		return nil, !d.StallSetIdle
	}
	return nil, false
}

func (d *Device) descriptor(setup usb.SetupPacket) ([]byte, bool) {
	switch uint8(setup.Value >> 8) {
	case usb.DescriptorTypeDevice:
		return d.Descriptor.AppendBinary(nil), true
	case usb.DescriptorTypeConfiguration:
		if uint8(setup.Value) != 0 {
			return nil, false
		}
		return d.Config, true
	case usb.DescriptorTypeHIDReport:
		if d.Report == nil {
			return nil, false
		}
		return d.Report, true
	}
	return nil, false
}

// report fits r into a buffer of n bytes, the way a device sends at most
// wMaxPacketSize per transaction.
func report(r []byte, n int) []byte {
	if len(r) > n {
		return r[:n]
	}
	return r
}
