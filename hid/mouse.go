package hid

import "github.com/ardnew/softxhci/pkg"

// Mouse decodes boot protocol mouse reports.
type Mouse struct {
	observer MouseObserver
}

var _ Driver = (*Mouse)(nil)

// SetObserver replaces the observer. A nil observer discards reports.
func (m *Mouse) SetObserver(o MouseObserver) {
	m.observer = o
}

// OnReport decodes [buttons, dx, dy] and notifies the observer once.
func (m *Mouse) OnReport(slot uint8, report []byte) error {
	if len(report) < MouseReportSize {
		return pkg.Errorf(pkg.CauseTransferFailed, "slot %d: mouse report of %d bytes", slot, len(report))
	}
	buttons := report[0] & mouseButtonMask
	dx, dy := int8(report[1]), int8(report[2])
	pkg.LogDebug(pkg.ComponentHID, "mouse report",
		"slot", slot, "buttons", buttons, "dx", dx, "dy", dy)
	if m.observer != nil {
		m.observer.OnMouse(buttons, dx, dy)
	}
	return nil
}

// Detach is a no-op; the mouse keeps no per-slot state.
func (m *Mouse) Detach(uint8) {}
