package parallel

import (
	"sync"
	"sync/atomic"

	"github.com/ilxqx/go-parallel/internal/buffer"
	"github.com/ilxqx/go-parallel/internal/runner"
	"github.com/ilxqx/go-parallel/internal/values"
)

// Collect runs the pipeline to completion and gathers every surviving
// output into a slice. Under Ordered (the default) the result is
// isomorphic to applying the pipeline sequentially over the source; under
// Arbitrary only the resulting multiset is guaranteed. The second return
// value is the number of workers actually spawned (NumSpawned).
func Collect[In, Out any](p Pipeline[In, Out], opts ...Option) ([]Out, int) {
	p.params = withOverrides(p.params, opts)
	rp := buildRunner(p, runner.Collect)
	n := rp.NumThreads()

	if p.params.Ordering == Arbitrary {
		return collectArbitrary(p, rp), n
	}
	if !p.sparse {
		out, _ := collectDense(p, rp)
		return out, n
	}
	out, _ := collectSparse(p, rp, n)
	return out, n
}

// collectArbitrary is the Arbitrary-ordering collect path from spec
// section 4.5: every worker appends straight to a single mutex-guarded
// bag, with no per-index merge step. Outputs land in whatever order the
// workers happen to finish in; only the resulting multiset is
// guaranteed to match the sequential result. A StopByError value is
// dropped rather than surfaced here — Collect has no error return;
// CollectResult is the fallible counterpart and uses the ordered merge
// path under either ordering.
func collectArbitrary[In, Out any](p Pipeline[In, Out], rp *runner.ParallelRunner) []Out {
	lenHint, lenKnown := p.src.TryLen()
	sizeHint := 0
	if lenKnown {
		sizeHint = lenHint
	}
	bag := buffer.NewArbitraryBag[Out](sizeHint)

	execute(p, rp, func(_ int, _ int, v values.Value[Out]) {
		if v.St() == values.StopByError {
			return
		}
		if outs := v.Values(); len(outs) > 0 {
			bag.AppendMany(outs)
		}
	})

	return bag.Finalize()
}

// collectDense handles the common case where every input produces
// exactly one output (a pure Map chain): a worker can write straight to
// its source index with no merge step, using the pinned buffer's
// lock-free disjoint-range writes when the source length is known (an
// unknown-length source takes a mutex around each growth and write).
func collectDense[In, Out any](p Pipeline[In, Out], rp *runner.ParallelRunner) ([]Out, *stopTracker) {
	lenHint, lenKnown := p.src.TryLen()
	pb := buffer.NewPinned[Out](0)
	var reserveMu sync.Mutex
	if lenKnown {
		pb.Reserve(lenHint)
	}

	var maxIdx atomic.Int64
	maxIdx.Store(-1)

	st := execute(p, rp, func(_ int, idx int, v values.Value[Out]) {
		if !lenKnown {
			// Growing the buffer is not safe alongside concurrent writes,
			// so an unknown-length source serializes growth and write.
			reserveMu.Lock()
			pb.Reserve(idx + 1)
			pb.Claim(idx, 1).WriteAt(0, v.Values()[0])
			reserveMu.Unlock()
		} else {
			h := pb.Claim(idx, 1)
			h.WriteAt(0, v.Values()[0])
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
	// A dense pipeline never stops (Atom values never carry a stop
	// status), so every claimed slot is always live; Finalize gives back
	// the values in source order.
	return pb.Finalize(total), st
}

// collectSparse handles pipelines whose cardinality can change or stop
// (Filter, FlatMap, MapWhile, TryMap): each worker stages its outputs in
// its own sorted index, and a k-way merge over all workers produces the
// final order, truncated at the smallest stop index observed.
func collectSparse[In, Out any](p Pipeline[In, Out], rp *runner.ParallelRunner, numThreads int) ([]Out, *stopTracker) {
	indexes := make([]*buffer.SparseIndex[Out], numThreads)
	for i := range indexes {
		indexes[i] = buffer.NewSparseIndex[Out]()
	}

	st := execute(p, rp, func(workerID, idx int, v values.Value[Out]) {
		indexes[workerID].Insert(idx, v.Values())
	})

	stopIdx := -1
	if s, ok := st.snapshot(); ok {
		stopIdx = s
	}
	out, _ := buffer.MergeSparseUpTo(indexes, stopIdx)
	return out, st
}

// CollectWhile is Collect sugar for a map_while-shaped pipeline: it
// applies fn to each element and stops at the first element for which fn
// reports ok=false, returning every output collected before that point.
func CollectWhile[In, Mid, Out any](p Pipeline[In, Mid], fn func(Mid) (Out, bool), opts ...Option) ([]Out, int) {
	return Collect(MapWhile(p, fn), opts...)
}

// CollectResult is Collect sugar for a fallible (TryMap-shaped) pipeline:
// on success it returns Ok(outputs); on the first error observed at the
// smallest source index, it returns Err(that error) and only the outputs
// that precede it.
func CollectResult[In, Mid, Out any](p Pipeline[In, Mid], fn func(Mid) (Out, error), opts ...Option) Result[[]Out] {
	tp := TryMap(p, fn)
	tp.params = withOverrides(tp.params, opts)
	rp := buildRunner(tp, runner.Collect)
	n := rp.NumThreads()

	indexes := make([]*buffer.SparseIndex[Out], n)
	for i := range indexes {
		indexes[i] = buffer.NewSparseIndex[Out]()
	}

	var errMu sync.Mutex
	var firstErr error
	var firstErrIdx = -1

	st := execute(tp, rp, func(workerID, idx int, v values.Value[Out]) {
		if v.St() == values.StopByError {
			errMu.Lock()
			if firstErrIdx == -1 || idx < firstErrIdx {
				firstErrIdx = idx
				firstErr = v.Err()
			}
			errMu.Unlock()
			return
		}
		indexes[workerID].Insert(idx, v.Values())
	})

	stopIdx := -1
	if s, ok := st.snapshot(); ok {
		stopIdx = s
	}
	out, _ := buffer.MergeSparseUpTo(indexes, stopIdx)

	if firstErr != nil {
		return Result[[]Out]{value: out, err: firstErr}
	}
	return Ok(out)
}
