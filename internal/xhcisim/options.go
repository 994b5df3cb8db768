package xhcisim

import "github.com/ardnew/softxhci/dma"

// Option configures an emulated controller.
type Option func(*Controller)

// WithBase places the register window at base.
func WithBase(base uint64) Option {
	return func(c *Controller) { c.base = base }
}

// WithArena shares a instead of a fresh arena.
func WithArena(a *dma.Arena) Option {
	return func(c *Controller) { c.arena = a }
}

// WithPorts sets the number of root hub ports.
func WithPorts(n int) Option {
	return func(c *Controller) { c.numPorts = min(max(n, 1), 255) }
}

// WithSlots sets the number of device slots advertised.
func WithSlots(n int) Option {
	return func(c *Controller) { c.numSlots = min(max(n, 1), 255) }
}

// WithContextSize64 advertises 64-byte contexts.
func WithContextSize64() Option {
	return func(c *Controller) { c.ctx64 = true }
}

// WithScratchpads sets the number of scratchpad buffers requested.
func WithScratchpads(n int) Option {
	return func(c *Controller) { c.scratchpads = min(max(n, 0), 1023) }
}

// WithBIOSOwned starts the controller owned by firmware. If stuck, the
// firmware never releases it.
func WithBIOSOwned(stuck bool) Option {
	return func(c *Controller) {
		c.biosOwned = true
		c.stuckBIOS = stuck
	}
}

// WithStuckReset makes resets of the given ports never complete.
func WithStuckReset(ports ...int) Option {
	return func(c *Controller) { c.stuck = append(c.stuck, ports...) }
}
