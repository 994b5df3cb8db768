package xhci

import "github.com/ardnew/softxhci/usb"

// Compile-time limits. All controller storage is sized from these and
// carved from the arena once.
const (
	// MaxSlots is the most device slots the driver enables, regardless of
	// what HCSPARAMS1 advertises.
	MaxSlots = 32

	// maxPortNumber is the largest port number HCSPARAMS1 can report.
	maxPortNumber = 255

	// DefaultPollLimit bounds every register and event poll.
	DefaultPollLimit = 1 << 20

	CommandRingSize  = 32 // TRBs, including the link
	EventRingSize    = 64 // TRBs
	TransferRingSize = 32 // TRBs per endpoint, including the link

	// ControlBufferSize is the data stage buffer of each slot.
	ControlBufferSize = usb.MaxConfigurationSize

	// ReportBufferSize is the interrupt IN buffer of each slot.
	ReportBufferSize = 64

	// defaultModeration is IMOD in 250 ns units (1 ms).
	defaultModeration = 4000

	// legacyHandoffLimit bounds the extended capability list walk.
	legacyHandoffLimit = 64
)

// Alignment and boundary requirements (xHCI 1.2, Table 6-1).
const (
	alignContext = 64
	alignRing    = 64
	alignDCBAA   = 64
	alignERST    = 64
	boundary64K  = 64 << 10
)

// Endpoint context types.
const (
	epTypeControl     = 4
	epTypeInterruptIn = 7
)

// Device context indexes.
const (
	dciEP0 = 1
)

// Slot states in the slot context (xHCI 1.2, 6.2.2).
const (
	SlotStateDisabled   = 0
	SlotStateDefault    = 1
	SlotStateAddressed  = 2
	SlotStateConfigured = 3
)
