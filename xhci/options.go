package xhci

import (
	"log/slog"

	"github.com/ardnew/softxhci/dma"
	"github.com/ardnew/softxhci/mmio"
	"github.com/ardnew/softxhci/pkg"
)

// Option configures a Controller at construction.
type Option func(*Controller)

// WithBus sets the register bus. The default is [mmio.Direct].
func WithBus(b mmio.Bus) Option {
	return func(c *Controller) { c.bus = b }
}

// WithArena sets the arena controller structures are carved from. The
// default is [dma.NewStatic].
func WithArena(a *dma.Arena) Option {
	return func(c *Controller) { c.arena = a }
}

// WithPollLimit bounds every poll to n attempts.
func WithPollLimit(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.pollLimit = n
		}
	}
}

// WithMaxSlots caps the number of device slots enabled.
func WithMaxSlots(n int) Option {
	return func(c *Controller) {
		if n > 0 && n < c.slotCap {
			c.slotCap = n
		}
	}
}

// WithLogger installs l as the driver log sink.
func WithLogger(l *slog.Logger) Option {
	return func(*Controller) {
		if l != nil {
			pkg.SetLogger(l)
		}
	}
}
