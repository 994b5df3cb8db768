// Package kernel is the interface between the kernel and the USB driver.
//
// The kernel owns one host controller, constructed into static storage by
// [Construct] and referred to afterwards by the returned [Handle]. Every
// entry point reports failure as a [pkg.Cause]; the full error, with the
// source location that raised it, is logged before it is reduced to a
// code.
package kernel

import (
	"github.com/ardnew/softxhci/bridge"
	"github.com/ardnew/softxhci/hid"
	"github.com/ardnew/softxhci/pkg"
	"github.com/ardnew/softxhci/xhci"
)

// Handle refers to a constructed controller. The zero Handle is invalid.
type Handle struct {
	c   *xhci.Controller
	gen uint32
}

// Valid reports whether h refers to the current controller.
func (h Handle) Valid() bool { return resolve(h) != nil }

var (
	controller xhci.Controller
	generation uint32

	mouseObserver    hid.MouseObserver
	keyboardObserver hid.KeyboardObserver
)

// Construct builds the controller for the register block at mmioBase in
// static storage. Constructing again replaces the previous controller and
// invalidates its handle.
func Construct(mmioBase uint64) Handle {
	return ConstructWith(mmioBase)
}

// ConstructWith is Construct with controller options, used to substitute
// the register bus or arena.
func ConstructWith(mmioBase uint64, opts ...xhci.Option) Handle {
	xhci.NewInto(&controller, mmioBase, opts...)
	generation++
	applyObservers()
	pkg.LogDebug(pkg.ComponentKernel, "controller constructed", "base", mmioBase, "generation", generation)
	return Handle{c: &controller, gen: generation}
}

func resolve(h Handle) *xhci.Controller {
	if h.c != &controller || h.gen == 0 || h.gen != generation {
		return nil
	}
	return h.c
}

// report logs err and reduces it to its cause.
func report(op string, err error) pkg.Cause {
	if err == nil {
		return pkg.CauseSuccess
	}
	pkg.LogErr(pkg.ComponentKernel, op+" failed", err)
	return pkg.CauseOf(err)
}

func invalid(op string) pkg.Cause {
	return report(op, pkg.NewError(pkg.CauseNoSuchDevice, "invalid controller handle"))
}

// Initialize resets the controller and programs its rings.
func Initialize(h Handle) pkg.Cause {
	c := resolve(h)
	if c == nil {
		return invalid("initialize")
	}
	return report("initialize", c.Initialize())
}

// Run starts the controller.
func Run(h Handle) pkg.Cause {
	c := resolve(h)
	if c == nil {
		return invalid("run")
	}
	return report("run", c.Run())
}

// ConfigurePorts configures every connected port of the controller h
// refers to. Per-port failures are logged.
func ConfigurePorts(h Handle) {
	c := resolve(h)
	if c == nil {
		invalid("configure ports")
		return
	}
	c.ConfigurePorts()
}

// HasPendingEvent reports whether an event is waiting. It is false for an
// invalid handle.
func HasPendingEvent(h Handle) bool {
	c := resolve(h)
	return c != nil && c.HasFront()
}

// ProcessEvent handles one pending event.
func ProcessEvent(h Handle) pkg.Cause {
	c := resolve(h)
	if c == nil {
		return invalid("process event")
	}
	return report("process event", c.ProcessEvent())
}

// RegisterMouseObserver sets the function that receives mouse reports. It
// replaces any earlier observer and survives reconstruction.
func RegisterMouseObserver(f func(buttons uint8, dx, dy int8)) {
	mouseObserver = nil
	if f != nil {
		mouseObserver = hid.MouseFunc(f)
	}
	applyObservers()
}

// RegisterKeyboardObserver sets the function that receives key
// transitions. It replaces any earlier observer and survives
// reconstruction.
func RegisterKeyboardObserver(f func(modifier, keycode uint8, pressed bool)) {
	keyboardObserver = nil
	if f != nil {
		keyboardObserver = hid.KeyboardFunc(f)
	}
	applyObservers()
}

func applyObservers() {
	controller.Mouse().SetObserver(mouseObserver)
	controller.Keyboard().SetObserver(keyboardObserver)
}

// RegisterScheduler installs the function that reports the running task's
// stack pointer.
func RegisterScheduler(f func() uint64) {
	if f == nil {
		bridge.SetScheduler(nil)
		return
	}
	bridge.SetScheduler(bridge.SchedulerFunc(f))
}

// GetCurrentTaskStackPointer returns the running task's stack pointer. It
// halts if the scheduler cannot provide one.
func GetCurrentTaskStackPointer() uint64 {
	return bridge.CurrentTaskStackPointer()
}
