package usb

import (
	"encoding/binary"

	"github.com/ardnew/softxhci/pkg"
)

// Descriptor sizes in bytes.
const (
	DeviceDescriptorSize        = 18
	ConfigurationDescriptorSize = 9
	InterfaceDescriptorSize     = 9
	EndpointDescriptorSize      = 7
	HIDDescriptorSize           = 9 // with one class descriptor entry

	// DeviceDescriptorPrefix is the number of bytes read first to learn
	// bMaxPacketSize0.
	DeviceDescriptorPrefix = 8
)

var le = binary.LittleEndian

// header checks the bLength/bDescriptorType pair common to every
// descriptor. exact requires bLength to equal size rather than cover it.
func header(data []byte, typ uint8, size int, exact bool) bool {
	if len(data) < size || data[1] != typ {
		return false
	}
	if exact {
		return int(data[0]) == size
	}
	return int(data[0]) >= size
}

// =============================================================================
// Device
// =============================================================================

// DeviceDescriptor is the standard device descriptor.
type DeviceDescriptor struct {
	Length            uint8
	DescriptorType    uint8
	USBVersion        uint16 // bcdUSB
	DeviceClass       uint8
	DeviceSubClass    uint8
	DeviceProtocol    uint8
	MaxPacketSize0    uint8 // exponent on SuperSpeed
	VendorID          uint16
	ProductID         uint16
	DeviceVersion     uint16 // bcdDevice
	ManufacturerIndex uint8
	ProductIndex      uint8
	SerialNumberIndex uint8
	NumConfigurations uint8
}

// AppendBinary appends the wire form of d to b.
func (d *DeviceDescriptor) AppendBinary(b []byte) []byte {
	b = append(b, DeviceDescriptorSize, DescriptorTypeDevice)
	b = le.AppendUint16(b, d.USBVersion)
	b = append(b, d.DeviceClass, d.DeviceSubClass, d.DeviceProtocol, d.MaxPacketSize0)
	b = le.AppendUint16(b, d.VendorID)
	b = le.AppendUint16(b, d.ProductID)
	b = le.AppendUint16(b, d.DeviceVersion)
	return append(b, d.ManufacturerIndex, d.ProductIndex, d.SerialNumberIndex, d.NumConfigurations)
}

// ParseDeviceDescriptor decodes data into out. The descriptor must be
// complete and declare at least one configuration.
func ParseDeviceDescriptor(data []byte, out *DeviceDescriptor) error {
	if !header(data, DescriptorTypeDevice, DeviceDescriptorSize, true) {
		if len(data) < 2 {
			return pkg.Errorf(pkg.CauseInvalidDescriptor, "device descriptor: %d bytes", len(data))
		}
		return pkg.Errorf(pkg.CauseInvalidDescriptor,
			"device descriptor: %d bytes, length %d type %#x", len(data), data[0], data[1])
	}
	*out = DeviceDescriptor{
		Length:            data[0],
		DescriptorType:    data[1],
		USBVersion:        le.Uint16(data[2:]),
		DeviceClass:       data[4],
		DeviceSubClass:    data[5],
		DeviceProtocol:    data[6],
		MaxPacketSize0:    data[7],
		VendorID:          le.Uint16(data[8:]),
		ProductID:         le.Uint16(data[10:]),
		DeviceVersion:     le.Uint16(data[12:]),
		ManufacturerIndex: data[14],
		ProductIndex:      data[15],
		SerialNumberIndex: data[16],
		NumConfigurations: data[17],
	}
	if out.NumConfigurations == 0 {
		return pkg.NewError(pkg.CauseInvalidDescriptor, "device descriptor: no configurations")
	}
	return nil
}

// EP0MaxPacketSize returns the control endpoint max packet size in bytes.
// SuperSpeed devices encode it as a power of two.
func (d *DeviceDescriptor) EP0MaxPacketSize(speed Speed) uint16 {
	if speed < SpeedSuper {
		return uint16(d.MaxPacketSize0)
	}
	if d.MaxPacketSize0 > 15 {
		return 512
	}
	return 1 << d.MaxPacketSize0
}

// =============================================================================
// Configuration
// =============================================================================

// ConfigurationDescriptor is the header of a configuration descriptor tree.
type ConfigurationDescriptor struct {
	Length             uint8
	DescriptorType     uint8
	TotalLength        uint16 // header plus every following descriptor
	NumInterfaces      uint8
	ConfigurationValue uint8 // argument to SET_CONFIGURATION
	ConfigurationIndex uint8
	Attributes         uint8
	MaxPower           uint8 // 2 mA units
}

// AppendBinary appends the wire form of c to b.
func (c *ConfigurationDescriptor) AppendBinary(b []byte) []byte {
	b = append(b, ConfigurationDescriptorSize, DescriptorTypeConfiguration)
	b = le.AppendUint16(b, c.TotalLength)
	return append(b, c.NumInterfaces, c.ConfigurationValue, c.ConfigurationIndex, c.Attributes, c.MaxPower)
}

// ParseConfigurationDescriptor decodes a configuration header.
func ParseConfigurationDescriptor(data []byte, out *ConfigurationDescriptor) error {
	if !header(data, DescriptorTypeConfiguration, ConfigurationDescriptorSize, false) {
		return pkg.Errorf(pkg.CauseInvalidDescriptor, "configuration descriptor: %d bytes", len(data))
	}
	*out = ConfigurationDescriptor{
		Length:             data[0],
		DescriptorType:     data[1],
		TotalLength:        le.Uint16(data[2:]),
		NumInterfaces:      data[4],
		ConfigurationValue: data[5],
		ConfigurationIndex: data[6],
		Attributes:         data[7],
		MaxPower:           data[8],
	}
	if out.TotalLength < ConfigurationDescriptorSize {
		return pkg.Errorf(pkg.CauseInvalidDescriptor, "configuration descriptor: total length %d", out.TotalLength)
	}
	return nil
}

// =============================================================================
// Interface
// =============================================================================

// InterfaceDescriptor is the standard interface descriptor.
type InterfaceDescriptor struct {
	Length            uint8
	DescriptorType    uint8
	InterfaceNumber   uint8
	AlternateSetting  uint8
	NumEndpoints      uint8
	InterfaceClass    uint8
	InterfaceSubClass uint8
	InterfaceProtocol uint8
	InterfaceIndex    uint8
}

// AppendBinary appends the wire form of i to b.
func (i *InterfaceDescriptor) AppendBinary(b []byte) []byte {
	return append(b, InterfaceDescriptorSize, DescriptorTypeInterface,
		i.InterfaceNumber, i.AlternateSetting, i.NumEndpoints,
		i.InterfaceClass, i.InterfaceSubClass, i.InterfaceProtocol, i.InterfaceIndex)
}

// ParseInterfaceDescriptor decodes an interface descriptor.
func ParseInterfaceDescriptor(data []byte, out *InterfaceDescriptor) error {
	if !header(data, DescriptorTypeInterface, InterfaceDescriptorSize, false) {
		return pkg.NewError(pkg.CauseInvalidDescriptor, "interface descriptor")
	}
	*out = InterfaceDescriptor{
		Length:            data[0],
		DescriptorType:    data[1],
		InterfaceNumber:   data[2],
		AlternateSetting:  data[3],
		NumEndpoints:      data[4],
		InterfaceClass:    data[5],
		InterfaceSubClass: data[6],
		InterfaceProtocol: data[7],
		InterfaceIndex:    data[8],
	}
	return nil
}

func (i *InterfaceDescriptor) isBoot(protocol uint8) bool {
	return i.InterfaceClass == ClassHID &&
		i.InterfaceSubClass == HIDSubclassBoot &&
		i.InterfaceProtocol == protocol
}

// IsBootKeyboard reports a HID boot keyboard interface.
func (i *InterfaceDescriptor) IsBootKeyboard() bool { return i.isBoot(HIDProtocolKeyboard) }

// IsBootMouse reports a HID boot mouse interface.
func (i *InterfaceDescriptor) IsBootMouse() bool { return i.isBoot(HIDProtocolMouse) }

// =============================================================================
// Endpoint
// =============================================================================

// EndpointDescriptor is the standard endpoint descriptor.
type EndpointDescriptor struct {
	Length          uint8
	DescriptorType  uint8
	EndpointAddress uint8 // bit 7 set for IN
	Attributes      uint8 // transfer type in bits 1:0
	MaxPacketSize   uint16
	Interval        uint8
}

// AppendBinary appends the wire form of e to b.
func (e *EndpointDescriptor) AppendBinary(b []byte) []byte {
	b = append(b, EndpointDescriptorSize, DescriptorTypeEndpoint, e.EndpointAddress, e.Attributes)
	b = le.AppendUint16(b, e.MaxPacketSize)
	return append(b, e.Interval)
}

// ParseEndpointDescriptor decodes an endpoint descriptor. Endpoint 0 is
// never described and is rejected.
func ParseEndpointDescriptor(data []byte, out *EndpointDescriptor) error {
	if !header(data, DescriptorTypeEndpoint, EndpointDescriptorSize, false) {
		return pkg.NewError(pkg.CauseInvalidDescriptor, "endpoint descriptor")
	}
	*out = EndpointDescriptor{
		Length:          data[0],
		DescriptorType:  data[1],
		EndpointAddress: data[2],
		Attributes:      data[3],
		MaxPacketSize:   le.Uint16(data[4:]),
		Interval:        data[6],
	}
	if out.Number() == 0 {
		return pkg.NewError(pkg.CauseInvalidDescriptor, "endpoint descriptor: address 0")
	}
	return nil
}

// PacketSize returns the max packet size in bytes, without the additional
// transaction bits 12:11.
func (e *EndpointDescriptor) PacketSize() uint16 { return e.MaxPacketSize & 0x7FF }

// Number returns the endpoint number.
func (e *EndpointDescriptor) Number() uint8 { return e.EndpointAddress & 0x0F }

// IsIn reports an IN endpoint.
func (e *EndpointDescriptor) IsIn() bool { return e.EndpointAddress&EndpointDirectionIn != 0 }

// TransferType returns bits 1:0 of bmAttributes.
func (e *EndpointDescriptor) TransferType() uint8 { return e.Attributes & 0x03 }

// IsInterrupt reports an interrupt endpoint.
func (e *EndpointDescriptor) IsInterrupt() bool { return e.TransferType() == EndpointTypeInterrupt }

// ContextIndex returns the xHCI device context index of the endpoint:
// 2*number for OUT, 2*number+1 for IN.
func (e *EndpointDescriptor) ContextIndex() uint8 {
	dci := e.Number() << 1
	if e.IsIn() {
		dci |= 1
	}
	return dci
}

// =============================================================================
// HID
// =============================================================================

// HIDDescriptor is a HID class descriptor with its first class
// descriptor entry, which for boot devices is the report descriptor.
type HIDDescriptor struct {
	Length         uint8
	DescriptorType uint8
	HIDVersion     uint16
	CountryCode    uint8
	NumDescriptors uint8
	ReportType     uint8
	ReportLength   uint16
}

// AppendBinary appends the wire form of h, with a single report entry, to b.
func (h *HIDDescriptor) AppendBinary(b []byte) []byte {
	b = append(b, HIDDescriptorSize, DescriptorTypeHID)
	b = le.AppendUint16(b, h.HIDVersion)
	b = append(b, h.CountryCode, 1, DescriptorTypeHIDReport)
	return le.AppendUint16(b, h.ReportLength)
}

// ParseHIDDescriptor decodes a HID descriptor.
func ParseHIDDescriptor(data []byte, out *HIDDescriptor) error {
	if !header(data, DescriptorTypeHID, HIDDescriptorSize, false) {
		return pkg.NewError(pkg.CauseInvalidDescriptor, "HID descriptor")
	}
	*out = HIDDescriptor{
		Length:         data[0],
		DescriptorType: data[1],
		HIDVersion:     le.Uint16(data[2:]),
		CountryCode:    data[4],
		NumDescriptors: data[5],
		ReportType:     data[6],
		ReportLength:   le.Uint16(data[7:]),
	}
	return nil
}
