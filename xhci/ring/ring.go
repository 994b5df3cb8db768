package ring

import (
	"github.com/ardnew/softxhci/dma"
)

// Read returns the TRB at byte offset off of mem. The cycle dword is read
// first so that the remaining dwords are not observed before ownership.
func Read(mem []byte, off int) TRB {
	var t TRB
	t[3] = dma.Load32(mem, off+12)
	t[0] = dma.Load32(mem, off)
	t[1] = dma.Load32(mem, off+4)
	t[2] = dma.Load32(mem, off+8)
	return t
}

// Write stores t at byte offset off of mem. The cycle dword is written last
// so the consumer never sees a partially written TRB it owns.
func Write(mem []byte, off int, t TRB) {
	dma.Store32(mem, off, t[0])
	dma.Store32(mem, off+4, t[1])
	dma.Store32(mem, off+8, t[2])
	dma.Store32(mem, off+12, t[3])
}

// Ring is a producer ring (Command or Transfer Ring). Software enqueues
// TRBs and the controller consumes them. The last slot holds a Link TRB
// back to the first with Toggle Cycle set.
type Ring struct {
	mem   []byte
	addr  uint64
	size  int
	enq   int
	cycle bool
}

// Init formats blk as an empty ring. blk must hold at least two TRBs and be
// 64-byte aligned.
func (r *Ring) Init(blk dma.Block) {
	r.mem = blk.Bytes
	r.addr = blk.Addr
	r.size = len(blk.Bytes) / Size
	r.enq = 0
	r.cycle = true
	clear(r.mem)
	// The link starts with cycle 0 so the controller stops in front of it
	// until the producer wraps.
	Write(r.mem, (r.size-1)*Size, NewLink(r.addr, true))
}

// Addr returns the physical address of the first TRB.
func (r *Ring) Addr() uint64 { return r.addr }

// Cycle returns the producer cycle state.
func (r *Ring) Cycle() bool { return r.cycle }

// Index returns the enqueue index.
func (r *Ring) Index() int { return r.enq }

// Capacity returns the number of TRBs the ring holds, excluding the link.
func (r *Ring) Capacity() int { return r.size - 1 }

// Push enqueues t with the producer cycle bit and returns its physical
// address. Reaching the link hands it to the controller and flips the
// producer cycle.
func (r *Ring) Push(t TRB) uint64 {
	t.SetCycle(r.cycle)
	off := r.enq * Size
	Write(r.mem, off, t)
	addr := r.addr + uint64(off)

	r.enq++
	if r.enq == r.size-1 {
		link := NewLink(r.addr, true)
		link.SetCycle(r.cycle)
		Write(r.mem, r.enq*Size, link)
		r.cycle = !r.cycle
		r.enq = 0
	}
	return addr
}

// At returns the TRB at index i.
func (r *Ring) At(i int) TRB {
	return Read(r.mem, i*Size)
}

// EventRing is a consumer ring with a single segment. The controller
// produces Event TRBs and software consumes them.
type EventRing struct {
	mem   []byte
	addr  uint64
	size  int
	deq   int
	cycle bool

	erst     []byte
	erstAddr uint64
}

// ERSTEntrySize is the size of one Event Ring Segment Table entry.
const ERSTEntrySize = 16

// Init formats seg as an empty event ring and writes its Event Ring Segment
// Table entry into erst. seg must be 64-byte aligned and erst must hold one
// entry.
func (r *EventRing) Init(seg, erst dma.Block) {
	r.mem = seg.Bytes
	r.addr = seg.Addr
	r.size = len(seg.Bytes) / Size
	r.deq = 0
	r.cycle = true
	clear(r.mem)

	r.erst = erst.Bytes
	r.erstAddr = erst.Addr
	clear(r.erst)
	dma.Store64(r.erst, 0, r.addr)
	dma.Store32(r.erst, 8, uint32(r.size))
}

// SegmentTable returns the physical address of the segment table.
func (r *EventRing) SegmentTable() uint64 { return r.erstAddr }

// SegmentCount returns the number of segments in the table.
func (r *EventRing) SegmentCount() int { return 1 }

// Addr returns the physical address of the segment.
func (r *EventRing) Addr() uint64 { return r.addr }

// Capacity returns the number of TRBs in the segment.
func (r *EventRing) Capacity() int { return r.size }

// Index returns the dequeue index.
func (r *EventRing) Index() int { return r.deq }

// Cycle returns the consumer cycle state.
func (r *EventRing) Cycle() bool { return r.cycle }

// DequeuePointer returns the physical address of the next TRB to consume.
func (r *EventRing) DequeuePointer() uint64 {
	return r.addr + uint64(r.deq*Size)
}

// HasFront reports whether the TRB at the dequeue index is owned by
// software. It has no side effects.
func (r *EventRing) HasFront() bool {
	if r.size == 0 {
		return false
	}
	owned := dma.Load32(r.mem, r.deq*Size+12)&bitCycle != 0
	return owned == r.cycle
}

// Front returns the TRB at the dequeue index without consuming it.
func (r *EventRing) Front() (TRB, bool) {
	if !r.HasFront() {
		return TRB{}, false
	}
	return Read(r.mem, r.deq*Size), true
}

// Pop consumes the TRB at the dequeue index. Wrapping past the end of the
// segment flips the expected cycle state.
func (r *EventRing) Pop() (TRB, bool) {
	t, ok := r.Front()
	if !ok {
		return TRB{}, false
	}
	r.deq++
	if r.deq == r.size {
		r.deq = 0
		r.cycle = !r.cycle
	}
	return t, true
}
