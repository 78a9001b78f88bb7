package parallel

import (
	"github.com/ilxqx/go-parallel/internal/buffer"
	"github.com/ilxqx/go-parallel/internal/orch"
	"github.com/ilxqx/go-parallel/internal/runner"
)

// executeEarly drives an early-return search: every worker pulls dense
// chunks sized for low latency (runner.EarlyReturn favors small chunks
// over throughput) and stops once a match fires, recording the matching
// value in a registry keyed by source index. When arbitrary is false
// (First/FindFirst/Any), every worker keeps examining indices smaller
// than the current best match so the final answer is always the smallest
// matching index; when arbitrary is true (NextAny), the very first match
// any worker reports ends the search immediately regardless of index.
func executeEarly[In, Out any](p Pipeline[In, Out], match func(Out) bool, arbitrary bool) (*buffer.ResultRegistry[Out], *stopTracker, int) {
	rp := buildRunner(p, runner.EarlyReturn)
	n := rp.NumThreads()
	reg := buffer.NewResultRegistry[Out]()
	st := newStopTracker()

	orchestratorFor(p).RunScope(func(scope *orch.Scope) {
		for w := 0; w < n; w++ {
			workerID := w
			scope.Spawn(func() {
				tr := rp.ThreadRunnerFor(workerID)
				defer tr.CompleteTask()

				for {
					remaining, known := p.src.TryLen()
					size, more := tr.NextChunkSize(remaining, known)
					if !more {
						return
					}

					tr.BeginChunk(size)
					begin, chunk := p.src.NextChunk(size)
					if len(chunk) == 0 {
						tr.CompleteChunk(0)
						return
					}

					if stopAt, ok := st.snapshot(); ok && (arbitrary || begin >= stopAt) {
						tr.CompleteChunk(0)
						return
					}

					processed := 0
					stopped := false
					for i, item := range chunk {
						idx := begin + i
						if stopAt, ok := st.snapshot(); ok && (arbitrary || idx >= stopAt) {
							stopped = true
							break
						}
						v := p.stage(item)
						processed++

						found := false
						for _, out := range v.Values() {
							if match(out) {
								reg.Record(idx, out)
								found = true
								break
							}
						}
						if found || v.Stopped() {
							if arbitrary {
								st.recordFirst(idx)
							} else {
								st.record(idx)
							}
							stopped = true
							break
						}
					}
					tr.CompleteChunk(processed)
					if stopped {
						return
					}
				}
			})
		}
	})

	return reg, st, n
}

// First returns the output at the smallest source index, if any.
func First[In, Out any](p Pipeline[In, Out], opts ...Option) (Out, bool, int) {
	return FindFirst(p, func(Out) bool { return true }, opts...)
}

// FindFirst returns the output at the smallest source index satisfying
// pred, if any.
func FindFirst[In, Out any](p Pipeline[In, Out], pred func(Out) bool, opts ...Option) (Out, bool, int) {
	p.params = withOverrides(p.params, opts)
	reg, st, n := executeEarly(p, pred, false)
	idx, ok := st.snapshot()
	if !ok {
		var zero Out
		return zero, false, n
	}
	v, ok := reg.Lookup(idx)
	return v, ok, n
}

// Any reports whether any surviving output satisfies pred. It runs the
// same smallest-index search as FindFirst.
func Any[In, Out any](p Pipeline[In, Out], pred func(Out) bool, opts ...Option) (bool, int) {
	_, ok, n := FindFirst(p, pred, opts...)
	return ok, n
}

// NextAny returns whichever matching output any worker finds first, with
// no promise about which source index it came from; useful when the
// caller only wants "a" match as fast as possible rather than the
// leftmost one under Ordered search semantics.
func NextAny[In, Out any](p Pipeline[In, Out], pred func(Out) bool, opts ...Option) (Out, bool, int) {
	p.params = withOverrides(p.params, opts)
	p.params.Ordering = Arbitrary
	reg, st, n := executeEarly(p, pred, true)
	idx, ok := st.snapshot()
	if !ok {
		var zero Out
		return zero, false, n
	}
	v, ok := reg.Lookup(idx)
	return v, ok, n
}
