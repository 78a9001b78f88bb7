// Package buffer implements the pinned output buffer contract: a
// growable, append-only container whose previously-written positions
// never move in memory, so concurrent workers can safely claim disjoint
// index ranges and write into them without a lock.
package buffer

import "sync/atomic"

// firstBlockSize is the capacity of the first allocated block. Each
// subsequent block doubles in size, the same growth strategy
// orx-parallel's SplitVec uses to bound the number of blocks for large
// buffers while keeping small buffers cheap.
const firstBlockSize = 64

// Pinned is a segmented growable buffer with constant-time indexed access
// and no relocation of existing elements: growth only appends a new block
// pointer, it never copies or moves a previously allocated block. Reserve
// is meant to be called by a single coordinating goroutine before any
// concurrent Claim calls begin (the collect path reserves up front when
// the source length is known); written tracks the high-water mark via
// CAS so concurrent Claim calls across disjoint ranges never lose an
// update even though block allocation itself is not concurrent-safe.
type Pinned[T any] struct {
	blocks    [][]T
	written   atomic.Int64
	blockBase []int // blockBase[i] is the global index of blocks[i][0]
}

// NewPinned creates a buffer pre-sized for sizeHint elements when the
// exact length is known ahead of time (the common case for a
// length-preserving map); when sizeHint <= 0 no block is allocated until
// the first Reserve.
func NewPinned[T any](sizeHint int) *Pinned[T] {
	p := &Pinned[T]{}
	if sizeHint > 0 {
		p.Reserve(sizeHint)
	}
	return p
}

// Reserve ensures capacity for at least n more elements beyond the
// current high-water mark of claimed slots, allocating new blocks as
// needed without moving existing ones.
func (p *Pinned[T]) Reserve(n int) {
	capacity := p.capacity()
	for capacity < int(p.written.Load())+n {
		size := firstBlockSize
		if len(p.blocks) > 0 {
			size = len(p.blocks[len(p.blocks)-1]) * 2
		}
		p.blockBase = append(p.blockBase, capacity)
		p.blocks = append(p.blocks, make([]T, size))
		capacity += size
	}
}

func (p *Pinned[T]) capacity() int {
	if len(p.blocks) == 0 {
		return 0
	}
	last := len(p.blocks) - 1
	return p.blockBase[last] + len(p.blocks[last])
}

// SliceHandle grants exclusive write permission over [begin, begin+n) of
// a Pinned buffer. Multiple non-overlapping handles may be outstanding at
// once; the buffer itself performs no locking because the caller
// (the collect path) guarantees claims never overlap.
type SliceHandle[T any] struct {
	p     *Pinned[T]
	begin int
	n     int
}

// Claim reserves [begin, begin+n) for exclusive writing and returns a
// handle over it. The caller must ensure begin+n has already been made
// available via Reserve.
func (p *Pinned[T]) Claim(begin, n int) SliceHandle[T] {
	want := int64(begin + n)
	for {
		cur := p.written.Load()
		if cur >= want {
			break
		}
		if p.written.CompareAndSwap(cur, want) {
			break
		}
	}
	return SliceHandle[T]{p: p, begin: begin, n: n}
}

// WriteAt writes v into slot begin+offset of the claimed range. offset
// must be in [0, n).
func (h SliceHandle[T]) WriteAt(offset int, v T) {
	idx := h.begin + offset
	blockIdx, within := h.p.locate(idx)
	h.p.blocks[blockIdx][within] = v
}

// locate finds which block holds global index idx and the offset within
// it, using a linear scan over blockBase (the number of blocks is
// O(log(total/firstBlockSize)) thanks to the doubling growth, so this
// stays cheap even for large buffers).
func (p *Pinned[T]) locate(idx int) (blockIdx, within int) {
	for i := len(p.blockBase) - 1; i >= 0; i-- {
		if idx >= p.blockBase[i] {
			return i, idx - p.blockBase[i]
		}
	}
	return 0, idx
}

// Push appends v at the next dense position, growing the buffer if
// necessary. Used by sinks that write contiguously rather than into a
// pre-claimed range.
func (p *Pinned[T]) Push(v T) {
	p.Reserve(1)
	begin := int(p.written.Load())
	h := p.Claim(begin, 1)
	h.WriteAt(0, v)
}

// Finalize asserts all slots in [0, total) have been written and
// surrenders the buffer's contents as a single contiguous slice.
func (p *Pinned[T]) Finalize(total int) []T {
	if int64(total) > p.written.Load() {
		panic("buffer: finalize requested more elements than were written")
	}
	out := make([]T, total)
	remaining := total
	pos := 0
	for _, block := range p.blocks {
		if remaining <= 0 {
			break
		}
		n := len(block)
		if n > remaining {
			n = remaining
		}
		copy(out[pos:pos+n], block[:n])
		pos += n
		remaining -= n
	}
	return out
}
