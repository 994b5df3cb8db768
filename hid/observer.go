package hid

// MouseObserver receives decoded mouse reports.
type MouseObserver interface {
	OnMouse(buttons uint8, dx, dy int8)
}

// KeyboardObserver receives one call per key transition.
type KeyboardObserver interface {
	OnKey(modifier, keycode uint8, pressed bool)
}

// MouseFunc adapts a function to MouseObserver.
type MouseFunc func(buttons uint8, dx, dy int8)

// OnMouse calls f.
func (f MouseFunc) OnMouse(buttons uint8, dx, dy int8) { f(buttons, dx, dy) }

// KeyboardFunc adapts a function to KeyboardObserver.
type KeyboardFunc func(modifier, keycode uint8, pressed bool)

// OnKey calls f.
func (f KeyboardFunc) OnKey(modifier, keycode uint8, pressed bool) { f(modifier, keycode, pressed) }

// Driver decodes interrupt IN payloads of one device class.
type Driver interface {
	// OnReport decodes a completed interrupt transfer from slot.
	OnReport(slot uint8, report []byte) error

	// Detach drops any per-slot state when the device goes away.
	Detach(slot uint8)
}
