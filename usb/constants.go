package usb

import "fmt"

// Speed is a USB connection speed. Values equal the default xHCI Protocol
// Speed IDs reported in PORTSC.
type Speed uint8

// USB speeds.
const (
	SpeedUnknown   Speed = 0 // Not connected or unknown
	SpeedFull      Speed = 1 // 12 Mbps (USB 1.1)
	SpeedLow       Speed = 2 // 1.5 Mbps (USB 1.0)
	SpeedHigh      Speed = 3 // 480 Mbps (USB 2.0)
	SpeedSuper     Speed = 4 // 5 Gbps (USB 3.0)
	SpeedSuperPlus Speed = 5 // 10 Gbps (USB 3.1)
)

// String returns a human-readable speed description.
func (s Speed) String() string {
	switch s {
	case SpeedLow:
		return "Low Speed (1.5 Mbps)"
	case SpeedFull:
		return "Full Speed (12 Mbps)"
	case SpeedHigh:
		return "High Speed (480 Mbps)"
	case SpeedSuper:
		return "Super Speed (5 Gbps)"
	case SpeedSuperPlus:
		return "Super Speed Plus (10 Gbps)"
	default:
		return fmt.Sprintf("Unknown Speed (%d)", s)
	}
}

// MaxPacketSize0 returns the initial maximum packet size for the default
// control endpoint at this speed, used before the device descriptor is read.
func (s Speed) MaxPacketSize0() uint16 {
	switch s {
	case SpeedSuper, SpeedSuperPlus:
		return 512
	case SpeedHigh:
		return 64
	default:
		return 8
	}
}

// Descriptor types (USB 2.0 Table 9-5, HID 1.11 7.1).
const (
	DescriptorTypeDevice               = 0x01
	DescriptorTypeConfiguration        = 0x02
	DescriptorTypeString               = 0x03
	DescriptorTypeInterface            = 0x04
	DescriptorTypeEndpoint             = 0x05
	DescriptorTypeDeviceQualifier      = 0x06
	DescriptorTypeInterfaceAssociation = 0x0B
	DescriptorTypeBOS                  = 0x0F
	DescriptorTypeHID                  = 0x21
	DescriptorTypeHIDReport            = 0x22
	DescriptorTypeSSEndpointCompanion  = 0x30
)

// Class codes.
const (
	ClassPerInterface = 0x00
	ClassHID          = 0x03
	ClassMassStorage  = 0x08
	ClassHub          = 0x09
	ClassVendor       = 0xFF
)

// HID subclass and boot protocol codes (HID 1.11 4.2, 4.3).
const (
	HIDSubclassBoot     = 0x01
	HIDProtocolNone     = 0x00
	HIDProtocolKeyboard = 0x01
	HIDProtocolMouse    = 0x02
)

// Standard request codes (USB 2.0 Table 9-4).
const (
	RequestGetStatus        = 0x00
	RequestClearFeature     = 0x01
	RequestSetFeature       = 0x03
	RequestSetAddress       = 0x05
	RequestGetDescriptor    = 0x06
	RequestGetConfiguration = 0x08
	RequestSetConfiguration = 0x09
	RequestGetInterface     = 0x0A
	RequestSetInterface     = 0x0B
)

// HID class request codes (HID 1.11 7.2).
const (
	RequestHIDGetReport   = 0x01
	RequestHIDGetIdle     = 0x02
	RequestHIDGetProtocol = 0x03
	RequestHIDSetReport   = 0x09
	RequestHIDSetIdle     = 0x0A
	RequestHIDSetProtocol = 0x0B
)

// HID protocol values for SET_PROTOCOL.
const (
	HIDBootProtocol   = 0
	HIDReportProtocol = 1
)

// bmRequestType fields.
const (
	RequestTypeOut       = 0x00 // Host to device
	RequestTypeIn        = 0x80 // Device to host
	RequestTypeStandard  = 0x00
	RequestTypeClass     = 0x20
	RequestTypeVendor    = 0x40
	RequestTypeDevice    = 0x00 // Recipient: device
	RequestTypeInterface = 0x01 // Recipient: interface
	RequestTypeEndpoint  = 0x02 // Recipient: endpoint
)

// Endpoint transfer types.
const (
	EndpointTypeControl     = 0x00
	EndpointTypeIsochronous = 0x01
	EndpointTypeBulk        = 0x02
	EndpointTypeInterrupt   = 0x03
)

// Endpoint directions.
const (
	EndpointDirectionOut = 0x00
	EndpointDirectionIn  = 0x80
)

// Limits for the fixed-size configuration tree.
const (
	MaxInterfaces         = 8
	MaxInterfaceEndpoints = 4

	// MaxConfigurationSize bounds a full configuration descriptor read.
	MaxConfigurationSize = 512
)
