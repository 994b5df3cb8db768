package ring

import "fmt"

// Size is the size of a TRB in bytes.
const Size = 16

// Type is the TRB type field (dword 3 bits 15:10).
type Type uint8

// TRB types (xHCI 1.2, Table 6-91).
const (
	TypeNormal              Type = 1
	TypeSetupStage          Type = 2
	TypeDataStage           Type = 3
	TypeStatusStage         Type = 4
	TypeLink                Type = 6
	TypeNoOp                Type = 8
	TypeEnableSlot          Type = 9
	TypeDisableSlot         Type = 10
	TypeAddressDevice       Type = 11
	TypeConfigureEndpoint   Type = 12
	TypeEvaluateContext     Type = 13
	TypeResetEndpoint       Type = 14
	TypeStopEndpoint        Type = 15
	TypeNoOpCommand         Type = 23
	TypeTransferEvent       Type = 32
	TypeCommandCompletion   Type = 33
	TypePortStatusChange    Type = 34
	TypeHostControllerEvent Type = 37
)

// String returns the TRB type name.
func (t Type) String() string {
	switch t {
	case TypeNormal:
		return "Normal"
	case TypeSetupStage:
		return "Setup Stage"
	case TypeDataStage:
		return "Data Stage"
	case TypeStatusStage:
		return "Status Stage"
	case TypeLink:
		return "Link"
	case TypeNoOp:
		return "No Op"
	case TypeEnableSlot:
		return "Enable Slot"
	case TypeDisableSlot:
		return "Disable Slot"
	case TypeAddressDevice:
		return "Address Device"
	case TypeConfigureEndpoint:
		return "Configure Endpoint"
	case TypeEvaluateContext:
		return "Evaluate Context"
	case TypeResetEndpoint:
		return "Reset Endpoint"
	case TypeStopEndpoint:
		return "Stop Endpoint"
	case TypeNoOpCommand:
		return "No Op Command"
	case TypeTransferEvent:
		return "Transfer Event"
	case TypeCommandCompletion:
		return "Command Completion"
	case TypePortStatusChange:
		return "Port Status Change"
	case TypeHostControllerEvent:
		return "Host Controller Event"
	default:
		return fmt.Sprintf("Type(%d)", uint8(t))
	}
}

// CompletionCode is the completion status reported in event TRBs.
type CompletionCode uint8

// Completion codes (xHCI 1.2, Table 6-90).
const (
	CodeInvalid              CompletionCode = 0
	CodeSuccess              CompletionCode = 1
	CodeDataBuffer           CompletionCode = 2
	CodeBabbleDetected       CompletionCode = 3
	CodeUSBTransaction       CompletionCode = 4
	CodeTRB                  CompletionCode = 5
	CodeStall                CompletionCode = 6
	CodeResource             CompletionCode = 7
	CodeBandwidth            CompletionCode = 8
	CodeNoSlotsAvailable     CompletionCode = 9
	CodeInvalidStreamType    CompletionCode = 10
	CodeSlotNotEnabled       CompletionCode = 11
	CodeEndpointNotEnabled   CompletionCode = 12
	CodeShortPacket          CompletionCode = 13
	CodeRingUnderrun         CompletionCode = 14
	CodeRingOverrun          CompletionCode = 15
	CodeParameter            CompletionCode = 17
	CodeContextState         CompletionCode = 19
	CodeEventRingFull        CompletionCode = 21
	CodeCommandRingStopped   CompletionCode = 24
	CodeCommandAborted       CompletionCode = 25
	CodeStopped              CompletionCode = 26
	CodeStoppedLengthInvalid CompletionCode = 27
)

// String returns the completion code name.
func (c CompletionCode) String() string {
	switch c {
	case CodeInvalid:
		return "Invalid"
	case CodeSuccess:
		return "Success"
	case CodeDataBuffer:
		return "Data Buffer Error"
	case CodeBabbleDetected:
		return "Babble Detected"
	case CodeUSBTransaction:
		return "USB Transaction Error"
	case CodeTRB:
		return "TRB Error"
	case CodeStall:
		return "Stall Error"
	case CodeResource:
		return "Resource Error"
	case CodeBandwidth:
		return "Bandwidth Error"
	case CodeNoSlotsAvailable:
		return "No Slots Available"
	case CodeSlotNotEnabled:
		return "Slot Not Enabled"
	case CodeEndpointNotEnabled:
		return "Endpoint Not Enabled"
	case CodeShortPacket:
		return "Short Packet"
	case CodeParameter:
		return "Parameter Error"
	case CodeContextState:
		return "Context State Error"
	case CodeEventRingFull:
		return "Event Ring Full"
	default:
		return fmt.Sprintf("Code(%d)", uint8(c))
	}
}

// TRB is a Transfer Request Block as four dwords.
type TRB [4]uint32

// dword 3 control bits
const (
	bitCycle = 1 << 0
	bitTC    = 1 << 1 // Toggle Cycle (Link TRB)
	bitISP   = 1 << 2
	bitIOC   = 1 << 5
	bitIDT   = 1 << 6
	bitBSR   = 1 << 9 // Block Set Address Request (Address Device)
	bitDir   = 1 << 16
)

// Type returns the TRB type.
func (t TRB) Type() Type { return Type((t[3] >> 10) & 0x3F) }

// Cycle returns the cycle bit.
func (t TRB) Cycle() bool { return t[3]&bitCycle != 0 }

// SetCycle sets or clears the cycle bit.
func (t *TRB) SetCycle(c bool) {
	if c {
		t[3] |= bitCycle
	} else {
		t[3] &^= bitCycle
	}
}

// Pointer returns the 64-bit parameter in dwords 0 and 1.
func (t TRB) Pointer() uint64 { return uint64(t[0]) | uint64(t[1])<<32 }

// CompletionCode returns the completion code of an event TRB.
func (t TRB) CompletionCode() CompletionCode { return CompletionCode(t[2] >> 24) }

// TransferLength returns dword 2 bits 23:0: the residual length of a
// Transfer Event or the buffer length of a transfer TRB.
func (t TRB) TransferLength() uint32 { return t[2] & 0xFFFFFF }

// SlotID returns the slot ID of a command or event TRB.
func (t TRB) SlotID() uint8 { return uint8(t[3] >> 24) }

// EndpointID returns the endpoint (device context index) of a Transfer Event.
func (t TRB) EndpointID() uint8 { return uint8(t[3]>>16) & 0x1F }

// PortID returns the root hub port number of a Port Status Change event.
func (t TRB) PortID() uint8 { return uint8(t[0] >> 24) }

// IOC reports whether Interrupt On Completion is set.
func (t TRB) IOC() bool { return t[3]&bitIOC != 0 }

// ISP reports whether Interrupt on Short Packet is set.
func (t TRB) ISP() bool { return t[3]&bitISP != 0 }

// ToggleCycle reports whether a Link TRB toggles the cycle state.
func (t TRB) ToggleCycle() bool { return t[3]&bitTC != 0 }

// DirectionIn reports whether a Data Stage TRB is an IN transfer.
func (t TRB) DirectionIn() bool { return t[3]&bitDir != 0 }

// String returns a compact description of the TRB.
func (t TRB) String() string {
	return fmt.Sprintf("%s{%08x %08x %08x %08x}", t.Type(), t[0], t[1], t[2], t[3])
}

func withType(typ Type) TRB {
	var t TRB
	t[3] = uint32(typ) << 10
	return t
}

func (t *TRB) setPointer(p uint64) {
	t[0] = uint32(p)
	t[1] = uint32(p >> 32)
}

// Transfer TRBs

// NewNormal returns a Normal TRB for a buffer of length bytes.
func NewNormal(buf uint64, length uint32, ioc, isp bool) TRB {
	t := withType(TypeNormal)
	t.setPointer(buf)
	t[2] = length & 0x1FFFF
	if ioc {
		t[3] |= bitIOC
	}
	if isp {
		t[3] |= bitISP
	}
	return t
}

// Transfer types of a Setup Stage TRB (TRT field).
const (
	TransferNoData = 0
	TransferOut    = 2
	TransferIn     = 3
)

// NewSetupStage returns a Setup Stage TRB carrying the 8-byte setup packet
// as immediate data.
func NewSetupStage(requestType, request uint8, value, index, length uint16, trt uint8) TRB {
	t := withType(TypeSetupStage)
	t[0] = uint32(requestType) | uint32(request)<<8 | uint32(value)<<16
	t[1] = uint32(index) | uint32(length)<<16
	t[2] = 8
	t[3] |= bitIDT | uint32(trt&0x3)<<16
	return t
}

// SetupPacket returns the fields of a Setup Stage TRB's immediate data.
func (t TRB) SetupPacket() (requestType, request uint8, value, index, length uint16) {
	return uint8(t[0]), uint8(t[0] >> 8), uint16(t[0] >> 16), uint16(t[1]), uint16(t[1] >> 16)
}

// NewDataStage returns a Data Stage TRB.
func NewDataStage(buf uint64, length uint32, in, ioc, isp bool) TRB {
	t := withType(TypeDataStage)
	t.setPointer(buf)
	t[2] = length & 0x1FFFF
	if in {
		t[3] |= bitDir
	}
	if ioc {
		t[3] |= bitIOC
	}
	if isp {
		t[3] |= bitISP
	}
	return t
}

// NewStatusStage returns a Status Stage TRB. in is the direction of the
// status stage, which is opposite to the data stage.
func NewStatusStage(in, ioc bool) TRB {
	t := withType(TypeStatusStage)
	if in {
		t[3] |= bitDir
	}
	if ioc {
		t[3] |= bitIOC
	}
	return t
}

// NewLink returns a Link TRB pointing at target.
func NewLink(target uint64, toggle bool) TRB {
	t := withType(TypeLink)
	t.setPointer(target)
	if toggle {
		t[3] |= bitTC
	}
	return t
}

// Command TRBs

// NewNoOpCommand returns a No Op command.
func NewNoOpCommand() TRB { return withType(TypeNoOpCommand) }

// NewEnableSlot returns an Enable Slot command.
func NewEnableSlot() TRB { return withType(TypeEnableSlot) }

// NewDisableSlot returns a Disable Slot command for slot.
func NewDisableSlot(slot uint8) TRB {
	t := withType(TypeDisableSlot)
	t[3] |= uint32(slot) << 24
	return t
}

// NewAddressDevice returns an Address Device command.
func NewAddressDevice(inputContext uint64, slot uint8, bsr bool) TRB {
	t := withType(TypeAddressDevice)
	t.setPointer(inputContext)
	t[3] |= uint32(slot) << 24
	if bsr {
		t[3] |= bitBSR
	}
	return t
}

// NewConfigureEndpoint returns a Configure Endpoint command.
func NewConfigureEndpoint(inputContext uint64, slot uint8) TRB {
	t := withType(TypeConfigureEndpoint)
	t.setPointer(inputContext)
	t[3] |= uint32(slot) << 24
	return t
}

// NewEvaluateContext returns an Evaluate Context command.
func NewEvaluateContext(inputContext uint64, slot uint8) TRB {
	t := withType(TypeEvaluateContext)
	t.setPointer(inputContext)
	t[3] |= uint32(slot) << 24
	return t
}

// Event TRBs, as posted by the controller.

// NewTransferEvent returns a Transfer Event TRB.
func NewTransferEvent(trb uint64, residual uint32, code CompletionCode, slot, endpoint uint8) TRB {
	t := withType(TypeTransferEvent)
	t.setPointer(trb)
	t[2] = residual&0xFFFFFF | uint32(code)<<24
	t[3] |= uint32(slot)<<24 | uint32(endpoint&0x1F)<<16
	return t
}

// NewCommandCompletion returns a Command Completion Event TRB.
func NewCommandCompletion(cmd uint64, code CompletionCode, slot uint8) TRB {
	t := withType(TypeCommandCompletion)
	t.setPointer(cmd)
	t[2] = uint32(code) << 24
	t[3] |= uint32(slot) << 24
	return t
}

// NewPortStatusChange returns a Port Status Change Event TRB.
func NewPortStatusChange(port uint8) TRB {
	t := withType(TypePortStatusChange)
	t[0] = uint32(port) << 24
	t[2] = uint32(CodeSuccess) << 24
	return t
}

// NewHostControllerEvent returns a Host Controller Event TRB.
func NewHostControllerEvent(code CompletionCode) TRB {
	t := withType(TypeHostControllerEvent)
	t[2] = uint32(code) << 24
	return t
}
