// Package xhci is a polled driver for an xHCI USB host controller.
//
// A [Controller] owns every controller-visible structure: the device
// context base address array, the command ring, one event ring and, per
// device slot, an input and output context with transfer rings. All of it
// is carved once from a dma.Arena, so steady-state operation does not
// allocate.
//
// Typical bring-up:
//
//	c := xhci.New(bar0)
//	if err := c.Initialize(); err != nil { ... }
//	if err := c.Run(); err != nil { ... }
//	c.ConfigurePorts()
//	for {
//		for c.HasFront() {
//			if err := c.ProcessEvent(); err != nil {
//				pkg.LogErr(pkg.ComponentEvent, "event", err)
//			}
//		}
//	}
//
// HID boot keyboards and mice are attached to hid.Keyboard and
// hid.Mouse; register observers on [Controller.Keyboard] and
// [Controller.Mouse] to receive decoded input.
//
// The controller is not safe for concurrent use. Commands and control
// transfers block, dispatching events themselves until their completion
// arrives or the poll limit runs out.
package xhci
