// Package bridge connects the driver to the kernel's task scheduler.
//
// The scheduler is owned by the kernel and registered at boot with
// [SetScheduler]. The only query is the stack pointer of the running task,
// which interrupt entry code needs before it can switch stacks.
package bridge

import (
	"sync/atomic"

	"github.com/ardnew/softxhci/pkg"
)

// Scheduler reports the state of the running task.
type Scheduler interface {
	// CurrentStackPointer returns the saved stack pointer of the running
	// task, or 0 if there is none.
	CurrentStackPointer() uint64
}

// SchedulerFunc adapts a function to Scheduler.
type SchedulerFunc func() uint64

// CurrentStackPointer calls f.
func (f SchedulerFunc) CurrentStackPointer() uint64 { return f() }

// Halt stops the processor. It does not return on bare metal; tests replace
// it to observe the call.
var Halt = func() {
	for {
		spin()
	}
}

type holder struct{ s Scheduler }

var scheduler atomic.Pointer[holder]

// SetScheduler registers s. A nil s clears the registration.
func SetScheduler(s Scheduler) {
	if s == nil {
		scheduler.Store(nil)
		return
	}
	scheduler.Store(&holder{s: s})
}

// CurrentTaskStackPointer returns the stack pointer of the running task. A
// missing scheduler or a zero stack pointer is fatal: it is logged and the
// processor halted.
func CurrentTaskStackPointer() uint64 {
	h := scheduler.Load()
	if h == nil {
		pkg.LogError(pkg.ComponentBridge, "no scheduler registered")
		Halt()
		return 0
	}
	sp := h.s.CurrentStackPointer()
	if sp == 0 {
		pkg.LogError(pkg.ComponentBridge, "running task has no stack pointer")
		Halt()
	}
	return sp
}

//go:noinline
func spin() {}
