package parallel

import (
	"sync"
	"sync/atomic"

	"github.com/ilxqx/go-parallel/internal/buffer"
	"github.com/ilxqx/go-parallel/internal/runner"
	"github.com/ilxqx/go-parallel/internal/values"
)

// Using describes a per-worker resource that must not be shared across
// goroutines: a *rand.Rand, a buffered encoder, a channel's send half.
// Closure capture works for read-only state, but a resource with
// internal mutable state needs one live instance per worker rather than
// one shared instance guarded by a mutex (which would serialize the
// workers) or one instance created per item (which would be wasteful).
// Recovered from the original implementation's using/ module, which
// makes the same distinction explicit as its own type rather than
// leaving it to documentation.
type Using[U any] struct {
	new   func(workerID int) U
	close func(U)
}

// NewUsing builds a Using descriptor. newFn is called once per worker,
// lazily, the first time that worker needs the resource; closeFn, if
// non-nil, runs once per realized resource after every worker has
// joined, just before the terminal call returns.
func NewUsing[U any](newFn func(workerID int) U, closeFn func(U)) Using[U] {
	return Using[U]{new: newFn, close: closeFn}
}

// usingSlots lazily realizes one U per worker. Each slot is only ever
// touched by the single worker goroutine that owns that index, so no
// locking is needed around the realized value itself.
type usingSlots[U any] struct {
	u      Using[U]
	slots  []U
	filled []bool
}

func newUsingSlots[U any](u Using[U], n int) *usingSlots[U] {
	return &usingSlots[U]{u: u, slots: make([]U, n), filled: make([]bool, n)}
}

func (s *usingSlots[U]) get(workerID int) U {
	if !s.filled[workerID] {
		s.slots[workerID] = s.u.new(workerID)
		s.filled[workerID] = true
	}
	return s.slots[workerID]
}

func (s *usingSlots[U]) closeAll() {
	if s.u.close == nil {
		return
	}
	for i, filled := range s.filled {
		if filled {
			s.u.close(s.slots[i])
		}
	}
}

// ForEachUsing is ForEach's Using-aware counterpart: action receives each
// worker's own U alongside the element, for side effects that need
// non-shareable per-worker state (a channel sender, a buffered writer).
func ForEachUsing[In, Mid, U any](p Pipeline[In, Mid], u Using[U], action func(U, Mid), opts ...Option) int {
	p.params = withOverrides(p.params, opts)
	rp := buildRunner(p, runner.Collect)
	n := rp.NumThreads()
	slots := newUsingSlots(u, n)
	defer slots.closeAll()

	execute(p, rp, func(workerID, _ int, v values.Value[Mid]) {
		worker := slots.get(workerID)
		for _, out := range v.Values() {
			action(worker, out)
		}
	})
	return n
}

// CollectUsing is Collect's Using-aware counterpart: fn receives each
// worker's own U alongside the element, typically to draw from a
// per-worker random source. The result is always collected Ordered,
// since Using resources are most often wired up for reproducible
// per-source-index output (a per-worker random source) where Arbitrary
// order would defeat the point.
func CollectUsing[In, Mid, Out, U any](p Pipeline[In, Mid], u Using[U], fn func(U, Mid) Out, opts ...Option) ([]Out, int) {
	p.params = withOverrides(p.params, opts)
	rp := buildRunner(p, runner.Collect)
	n := rp.NumThreads()
	slots := newUsingSlots(u, n)
	defer slots.closeAll()

	lenHint, lenKnown := p.src.TryLen()
	pb := buffer.NewPinned[Out](0)
	var reserveMu sync.Mutex
	if lenKnown {
		pb.Reserve(lenHint)
	}

	var maxIdx atomic.Int64
	maxIdx.Store(-1)
	execute(p, rp, func(workerID, idx int, v values.Value[Mid]) {
		worker := slots.get(workerID)
		outs := v.Values()
		if len(outs) == 0 {
			return
		}
		out := fn(worker, outs[0])
		if !lenKnown {
			// Growing the buffer is not safe alongside concurrent writes,
			// so an unknown-length source serializes growth and write.
			reserveMu.Lock()
			pb.Reserve(idx + 1)
			pb.Claim(idx, 1).WriteAt(0, out)
			reserveMu.Unlock()
		} else {
			h := pb.Claim(idx, 1)
			h.WriteAt(0, out)
		}
		for {
			cur := maxIdx.Load()
			if cur >= int64(idx) {
				break
			}
			if maxIdx.CompareAndSwap(cur, int64(idx)) {
				break
			}
		}
	})

	total := int(maxIdx.Load()) + 1
	if total < 0 {
		total = 0
	}
	return pb.Finalize(total), n
}
