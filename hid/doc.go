// Package hid decodes HID boot protocol reports from USB mice and keyboards
// and forwards the decoded input to a registered observer.
//
// The controller owns one [Mouse] and one [Keyboard]. Each holds at most one
// observer; registering again replaces it, and with no observer decoded
// events are dropped. Both drivers are called from the event loop only and
// take no locks.
//
// # Mouse
//
// A boot mouse report is [buttons, dx, dy, ...]. Every report produces one
// OnMouse call with buttons masked to the low three bits.
//
// # Keyboard
//
// A boot keyboard report is [modifier, reserved, k0..k5]. The keyboard keeps
// the previous report of every slot and turns the difference into discrete
// events: one release per vanished keycode, then one press per new keycode.
// Reports carrying ErrorRollOver (0x01) are ignored.
//
//	kbd.SetObserver(hid.KeyboardFunc(func(mod, key uint8, pressed bool) {
//	    if pressed {
//	        if c := hid.ASCII(mod, key); c != 0 {
//	            console.WriteByte(c)
//	        }
//	    }
//	}))
package hid
