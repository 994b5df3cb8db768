package usb

import "encoding/binary"

// SetupPacket is an 8-byte USB SETUP packet.
type SetupPacket struct {
	RequestType uint8  // bmRequestType: direction, type, recipient
	Request     uint8  // bRequest
	Value       uint16 // wValue
	Index       uint16 // wIndex
	Length      uint16 // wLength
}

// SetupPacketSize is the size of a SETUP packet in bytes.
const SetupPacketSize = 8

// ParseSetupPacket parses a setup packet from data into out.
// Returns false if data is too short.
func ParseSetupPacket(data []byte, out *SetupPacket) bool {
	if len(data) < SetupPacketSize {
		return false
	}
	out.RequestType = data[0]
	out.Request = data[1]
	out.Value = binary.LittleEndian.Uint16(data[2:4])
	out.Index = binary.LittleEndian.Uint16(data[4:6])
	out.Length = binary.LittleEndian.Uint16(data[6:8])
	return true
}

// MarshalTo writes the setup packet to buf.
// Returns the number of bytes written (8), or 0 if buf is too small.
func (s *SetupPacket) MarshalTo(buf []byte) int {
	if len(buf) < SetupPacketSize {
		return 0
	}
	buf[0] = s.RequestType
	buf[1] = s.Request
	binary.LittleEndian.PutUint16(buf[2:4], s.Value)
	binary.LittleEndian.PutUint16(buf[4:6], s.Index)
	binary.LittleEndian.PutUint16(buf[6:8], s.Length)
	return SetupPacketSize
}

// IsIn reports a device-to-host data stage.
func (s *SetupPacket) IsIn() bool { return s.RequestType&RequestTypeIn != 0 }

// GetDescriptor builds a standard GET_DESCRIPTOR request.
func GetDescriptor(descType, index uint8, length uint16) SetupPacket {
	return SetupPacket{
		RequestType: RequestTypeIn | RequestTypeStandard | RequestTypeDevice,
		Request:     RequestGetDescriptor,
		Value:       uint16(descType)<<8 | uint16(index),
		Length:      length,
	}
}

// GetInterfaceDescriptor builds a GET_DESCRIPTOR request addressed to an
// interface, used for class descriptors such as the HID report descriptor.
func GetInterfaceDescriptor(descType, index uint8, iface uint8, length uint16) SetupPacket {
	return SetupPacket{
		RequestType: RequestTypeIn | RequestTypeStandard | RequestTypeInterface,
		Request:     RequestGetDescriptor,
		Value:       uint16(descType)<<8 | uint16(index),
		Index:       uint16(iface),
		Length:      length,
	}
}

// SetConfiguration builds a SET_CONFIGURATION request.
func SetConfiguration(value uint8) SetupPacket {
	return SetupPacket{
		RequestType: RequestTypeOut | RequestTypeStandard | RequestTypeDevice,
		Request:     RequestSetConfiguration,
		Value:       uint16(value),
	}
}

// SetProtocol builds a HID SET_PROTOCOL request.
func SetProtocol(iface uint8, protocol uint16) SetupPacket {
	return SetupPacket{
		RequestType: RequestTypeOut | RequestTypeClass | RequestTypeInterface,
		Request:     RequestHIDSetProtocol,
		Value:       protocol,
		Index:       uint16(iface),
	}
}

// SetIdle builds a HID SET_IDLE request. A duration of 0 reports only on
// change.
func SetIdle(iface uint8, duration, reportID uint8) SetupPacket {
	return SetupPacket{
		RequestType: RequestTypeOut | RequestTypeClass | RequestTypeInterface,
		Request:     RequestHIDSetIdle,
		Value:       uint16(duration)<<8 | uint16(reportID),
		Index:       uint16(iface),
	}
}
