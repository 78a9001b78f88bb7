package parallel

import (
	"sync/atomic"

	"github.com/ilxqx/go-parallel/internal/orch"
	"github.com/ilxqx/go-parallel/internal/runner"
	"github.com/ilxqx/go-parallel/internal/values"
)

// defaultOrchestrator is the structured-concurrency strategy every
// terminal uses: one goroutine per worker, joined before the terminal
// returns, panics re-raised only after every worker has joined.
var defaultOrchestrator = orch.NewGoroutineOrchestrator()

// stopTracker holds the smallest source index at which any worker
// observed a stop (StopByWhile or StopByError). Workers consult it to
// avoid doing further work past a point that will be truncated anyway,
// and terminals consult it to know where to truncate their sink.
type stopTracker struct {
	idx atomic.Int64
}

func newStopTracker() *stopTracker {
	st := &stopTracker{}
	st.idx.Store(-1)
	return st
}

func (s *stopTracker) record(idx int) {
	for {
		cur := s.idx.Load()
		if cur != -1 && cur <= int64(idx) {
			return
		}
		if s.idx.CompareAndSwap(cur, int64(idx)) {
			return
		}
	}
}

// recordFirst sets the stop index once, whichever caller gets there
// first; later callers are ignored even if their index is smaller. Used
// by searches that want "any match" rather than "smallest-index match".
func (s *stopTracker) recordFirst(idx int) {
	s.idx.CompareAndSwap(-1, int64(idx))
}

// snapshot reports the smallest stop index recorded so far, if any.
func (s *stopTracker) snapshot() (int, bool) {
	v := s.idx.Load()
	if v < 0 {
		return 0, false
	}
	return int(v), true
}

func withOverrides(base Params, opts []Option) Params {
	p := base
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

// buildRunner resolves the worker count and chunk-sizing policy for one
// terminal call against the pipeline's source length hint.
func buildRunner[In, Out any](p Pipeline[In, Out], kind runner.Kind) *runner.ParallelRunner {
	lenHint, lenKnown := p.src.TryLen()
	return runner.NewParallelRunner(kind, runner.Params{
		Threads:   p.params.Threads,
		Chunk:     p.params.Chunk,
		Arbitrary: p.params.Ordering == Arbitrary,
	}, lenHint, lenKnown)
}

// orchestratorFor returns the pipeline's configured Orchestrator, or the
// package default if none was set (a zero-value Params, built without
// going through DefaultParams/buildParams, would otherwise carry a nil
// one).
func orchestratorFor[In, Out any](p Pipeline[In, Out]) orch.Orchestrator {
	if p.params.orchestrator != nil {
		return p.params.orchestrator
	}
	return defaultOrchestrator
}

// execute spawns rp.NumThreads() workers under the pipeline's configured
// orchestrator, each pulling chunks from p.src, applying p.stage per
// element, and calling onItem(workerID, srcIdx, value) for every element
// processed.
// Once any worker's stage stops, the shared stopTracker records the
// stopping index and every worker abandons elements at or past it.
func execute[In, Out any](p Pipeline[In, Out], rp *runner.ParallelRunner, onItem func(workerID, idx int, v values.Value[Out])) *stopTracker {
	st := newStopTracker()
	numThreads := rp.NumThreads()

	orchestratorFor(p).RunScope(func(scope *orch.Scope) {
		for w := 0; w < numThreads; w++ {
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

					if stopAt, ok := st.snapshot(); ok && begin >= stopAt {
						tr.CompleteChunk(0)
						return
					}

					processed := 0
					stopped := false
					for i, item := range chunk {
						idx := begin + i
						if stopAt, ok := st.snapshot(); ok && idx >= stopAt {
							stopped = true
							break
						}
						v := p.stage(item)
						onItem(workerID, idx, v)
						processed++
						if v.Stopped() {
							st.record(idx)
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

	return st
}
