package xhci

import (
	"github.com/ardnew/softxhci/dma"
	"github.com/ardnew/softxhci/usb"
	"github.com/ardnew/softxhci/xhci/ring"
)

// Context layout (xHCI 1.2, 6.2). Every context is ctxSize bytes (32 or
// 64). The input context is the input control context followed by a
// device context; the device context is the slot context followed by 31
// endpoint contexts indexed by DCI.

const deviceContextEntries = 32

func inputContextSize(ctxSize int) int  { return (deviceContextEntries + 1) * ctxSize }
func deviceContextSize(ctxSize int) int { return deviceContextEntries * ctxSize }

// inputContext writes an input context in place.
type inputContext struct {
	mem     []byte
	ctxSize int
}

func (in inputContext) reset() { clear(in.mem) }

// add sets the add flags for the slot context (A0) and each dci.
func (in inputContext) add(dcis ...uint8) {
	flags := uint32(1) // A0
	for _, d := range dcis {
		flags |= 1 << d
	}
	dma.Store32(in.mem, 0, 0)
	dma.Store32(in.mem, 4, flags)
}

// slot returns the byte offset of the slot context.
func (in inputContext) slot() int { return in.ctxSize }

// endpoint returns the byte offset of the endpoint context for dci.
func (in inputContext) endpoint(dci uint8) int { return (1 + int(dci)) * in.ctxSize }

// setSlot fills the slot context for a device on a root hub port.
func (in inputContext) setSlot(speed usb.Speed, port int, entries uint8) {
	off := in.slot()
	dma.Store32(in.mem, off, uint32(entries)<<27|uint32(speed)<<20)
	dma.Store32(in.mem, off+4, uint32(port)<<16)
}

// setEndpoint fills an endpoint context with a transfer ring.
func (in inputContext) setEndpoint(dci, epType uint8, maxPacket uint16, interval uint8, tr *ring.Ring, avgTRB uint16) {
	off := in.endpoint(dci)
	dma.Store32(in.mem, off, uint32(interval)<<16)
	const cerr = 3
	dma.Store32(in.mem, off+4, uint32(maxPacket)<<16|uint32(epType)<<3|cerr<<1)
	deq := tr.Addr()
	if tr.Cycle() {
		deq |= 1 // DCS
	}
	dma.Store64(in.mem, off+8, deq)
	esit := uint32(0)
	if epType == epTypeInterruptIn {
		esit = uint32(maxPacket)
	}
	dma.Store32(in.mem, off+16, esit<<16|uint32(avgTRB))
}

// setMaxPacket updates only the max packet size of an endpoint context.
func (in inputContext) setMaxPacket(dci uint8, maxPacket uint16) {
	off := in.endpoint(dci) + 4
	v := dma.Load32(in.mem, off)
	dma.Store32(in.mem, off, v&0xFFFF|uint32(maxPacket)<<16)
}

// interruptInterval converts bInterval to the xHCI endpoint interval, the
// exponent of the service period in 125 us units.
func interruptInterval(speed usb.Speed, bInterval uint8) uint8 {
	switch speed {
	case usb.SpeedLow, usb.SpeedFull:
		// bInterval is in 1 ms frames.
		frames := uint32(bInterval)
		if frames == 0 {
			frames = 1
		}
		exp := uint8(0)
		for v := frames * 8; v > 1; v >>= 1 {
			exp++
		}
		return clampInterval(exp, 3, 10)
	default:
		// bInterval is already an exponent plus one.
		if bInterval == 0 {
			return 0
		}
		return clampInterval(bInterval-1, 0, 15)
	}
}

func clampInterval(v, lo, hi uint8) uint8 {
	return max(lo, min(v, hi))
}

// slotState returns the slot state from a device context.
func slotState(device []byte) uint8 {
	return uint8(dma.Load32(device, 12) >> 27)
}
