package hid

import "github.com/ardnew/softxhci/pkg"

type keys [KeyboardKeyCount]uint8

func (k *keys) has(code uint8) bool {
	for _, c := range k {
		if c == code {
			return true
		}
	}
	return false
}

func (k *keys) firstIndex(code uint8) int {
	for i, c := range k {
		if c == code {
			return i
		}
	}
	return -1
}

// Keyboard decodes boot protocol keyboard reports into key transitions.
type Keyboard struct {
	observer KeyboardObserver
	prev     [maxSlots]keys
}

var _ Driver = (*Keyboard)(nil)

// SetObserver replaces the observer. A nil observer discards transitions.
func (k *Keyboard) SetObserver(o KeyboardObserver) {
	k.observer = o
}

// OnReport diffs report against the previous report of slot. Releases are
// reported before presses, each with the modifier of the current report.
func (k *Keyboard) OnReport(slot uint8, report []byte) error {
	if len(report) < 3 {
		return pkg.Errorf(pkg.CauseTransferFailed, "slot %d: keyboard report of %d bytes", slot, len(report))
	}
	modifier := report[0]

	var cur keys
	n := copy(cur[:], report[2:])
	for _, c := range cur[:n] {
		if c == KeyErrorRollOver {
			pkg.LogDebug(pkg.ComponentHID, "rollover report ignored", "slot", slot)
			return nil
		}
	}

	prev := &k.prev[slot]
	for _, c := range prev {
		if c != KeyNone && !cur.has(c) {
			k.emit(modifier, c, false)
		}
	}
	for i, c := range cur {
		if c == KeyNone || prev.has(c) || cur.firstIndex(c) != i {
			continue
		}
		k.emit(modifier, c, true)
	}
	*prev = cur
	return nil
}

func (k *Keyboard) emit(modifier, keycode uint8, pressed bool) {
	pkg.LogDebug(pkg.ComponentHID, "key",
		"modifier", modifier, "keycode", keycode, "pressed", pressed)
	if k.observer != nil {
		k.observer.OnKey(modifier, keycode, pressed)
	}
}

// Detach forgets the previous report of slot so a new device starts with
// no keys held.
func (k *Keyboard) Detach(slot uint8) {
	k.prev[slot] = keys{}
}
