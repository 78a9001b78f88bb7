package parallel

import (
	"github.com/ilxqx/go-parallel/internal/buffer"
	"github.com/ilxqx/go-parallel/internal/runner"
	"github.com/ilxqx/go-parallel/internal/values"
)

// Reduce folds every surviving output with op, an operation that must be
// associative for the result to be thread-count-independent; op need not
// be commutative, because every output is folded in source order
// regardless of which worker produced it or when. Each worker stages its
// own outputs in a per-worker SparseIndex exactly the way collectSparse
// does, rather than folding them immediately as they arrive: a
// MapWhile-composed pipeline can only learn the true stop index once
// every worker has joined, so an eagerly-folded value at an index past
// that point would corrupt the result with no way to undo it afterward.
// identity is op's identity element, used only to seed the fold and
// returned as-is when the pipeline produces nothing at all.
func Reduce[In, Out any](p Pipeline[In, Out], identity Out, op func(Out, Out) Out, opts ...Option) (Out, int) {
	p.params = withOverrides(p.params, opts)
	rp := buildRunner(p, runner.Reduce)
	n := rp.NumThreads()

	indexes := make([]*buffer.SparseIndex[Out], n)
	for i := range indexes {
		indexes[i] = buffer.NewSparseIndex[Out]()
	}

	st := execute(p, rp, func(workerID, idx int, v values.Value[Out]) {
		if v.Stopped() && v.St() != values.StopByWhile {
			// Fallible pipelines aren't meaningful under Reduce; a
			// TryMap stage's error is dropped at the value-algebra
			// level here since Reduce has no error return. Use
			// CollectResult followed by a sequential fold instead when
			// fallibility matters.
			return
		}
		indexes[workerID].Insert(idx, v.Values())
	})

	stopIdx := -1
	if s, ok := st.snapshot(); ok {
		stopIdx = s
	}
	ordered, _ := buffer.MergeSparseUpTo(indexes, stopIdx)

	total := Identity(identity)
	for _, o := range ordered {
		if total.isIdentity {
			total = Aggregate(o)
		} else {
			total = Aggregate(op(total.value, o))
		}
	}
	if total.isIdentity {
		return identity, n
	}
	return total.value, n
}
