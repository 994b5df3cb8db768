package hid

// Keyboard modifier bits.
const (
	ModLeftCtrl   = 1 << 0
	ModLeftShift  = 1 << 1
	ModLeftAlt    = 1 << 2
	ModLeftGUI    = 1 << 3
	ModRightCtrl  = 1 << 4
	ModRightShift = 1 << 5
	ModRightAlt   = 1 << 6
	ModRightGUI   = 1 << 7

	ModShift = ModLeftShift | ModRightShift
)

// Mouse button bits.
const (
	MouseButtonLeft   = 1 << 0
	MouseButtonRight  = 1 << 1
	MouseButtonMiddle = 1 << 2

	mouseButtonMask = MouseButtonLeft | MouseButtonRight | MouseButtonMiddle
)

// Keyboard keycodes (USB HID Usage Tables, page 0x07).
const (
	KeyNone          = 0x00
	KeyErrorRollOver = 0x01
	KeyA             = 0x04
	KeyB             = 0x05
	KeyC             = 0x06
	KeyZ             = 0x1D
	Key1             = 0x1E
	Key0             = 0x27
	KeyEnter         = 0x28
	KeyEscape        = 0x29
	KeyBackspace     = 0x2A
	KeyTab           = 0x2B
	KeySpace         = 0x2C
	KeyMinus         = 0x2D
	KeySlash         = 0x38
	KeyCapsLock      = 0x39
	KeyF1            = 0x3A
	KeyRight         = 0x4F
	KeyLeft          = 0x50
	KeyDown          = 0x51
	KeyUp            = 0x52
	KeyPadSlash      = 0x54
	KeyPadEqual      = 0x67
	KeyNonUSSlash    = 0x89
)

// Boot report sizes.
const (
	MouseReportSize    = 3
	KeyboardReportSize = 8
	KeyboardKeyCount   = 6

	// MaxReportSize bounds an interrupt transfer buffer.
	MaxReportSize = 64
)

// maxSlots covers every possible xHCI slot ID.
const maxSlots = 256
