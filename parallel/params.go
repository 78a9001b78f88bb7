// Package parallel is the public surface of the parallel execution engine:
// build a Pipeline over a source, chain Map/Filter/FlatMap/MapWhile/TryMap
// stages, then drive it to a result with one of the terminal functions
// (Collect, Reduce, ForEach, First, Any, ...).
package parallel

import (
	"github.com/ilxqx/go-parallel/internal/orch"
	"github.com/ilxqx/go-parallel/internal/runner"
)

// Ordering selects what guarantee a terminal makes about output order.
// Generalized from the teacher's ParallelConfig.Ordered bool into a named
// enum, since this engine also has to describe ordering for reduce and
// early-return terminals, not just collect.
type Ordering int

const (
	// Ordered means the terminal's output is isomorphic to applying the
	// pipeline sequentially over the source, in source order.
	Ordered Ordering = iota
	// Arbitrary means the output is only guaranteed to be the right
	// multiset of values; order is whatever arrival order produces.
	Arbitrary
)

// Params configures one terminal call: how many workers to use, how to
// size their chunks, what ordering guarantee to honor, and which
// Orchestrator binds those workers to goroutines.
type Params struct {
	Threads      runner.ThreadsSpec
	Chunk        runner.ChunkSpec
	Ordering     Ordering
	orchestrator orch.Orchestrator
}

// DefaultParams matches the teacher's DefaultParallelConfig: auto thread
// count, auto chunk sizing, ordered output, and the default
// fresh-goroutine-per-call Orchestrator.
func DefaultParams() Params {
	return Params{
		Threads:      runner.AutoThreads(),
		Chunk:        runner.AutoChunk(),
		Ordering:     Ordered,
		orchestrator: defaultOrchestrator,
	}
}

// Option modifies Params, mirroring the teacher's ParallelOption shape.
type Option func(*Params)

// WithThreads pins the worker count to n.
func WithThreads(n int) Option {
	return func(p *Params) { p.Threads = runner.ExactThreads(n) }
}

// WithAutoThreads restores the default auto-detected worker count.
func WithAutoThreads() Option {
	return func(p *Params) { p.Threads = runner.AutoThreads() }
}

// WithChunkSize pins every worker's chunk size to n.
func WithChunkSize(n int) Option {
	return func(p *Params) { p.Chunk = runner.ExactChunkOf(n) }
}

// WithMinChunkSize sets a floor under the auto-computed chunk size.
func WithMinChunkSize(n int) Option {
	return func(p *Params) { p.Chunk = runner.MinChunk(n) }
}

// WithArbitraryOrder relaxes the terminal to Arbitrary ordering, usually
// faster since it skips the ordered merge/reorder step.
func WithArbitraryOrder() Option {
	return func(p *Params) { p.Ordering = Arbitrary }
}

// WithOrderedOutput restores the default Ordered guarantee.
func WithOrderedOutput() Option {
	return func(p *Params) { p.Ordering = Ordered }
}

// WithOrchestrator swaps in a caller-supplied Orchestrator (for example
// an orch.PoolOrchestrator shared across many terminal calls) in place
// of the default one-goroutine-per-worker strategy. Spec.md section 4.6
// calls this out explicitly: the Orchestrator is "pluggable (OS threads,
// externally supplied pool)".
func WithOrchestrator(o orch.Orchestrator) Option {
	return func(p *Params) { p.orchestrator = o }
}

func buildParams(opts []Option) Params {
	p := DefaultParams()
	for _, opt := range opts {
		opt(&p)
	}
	return p
}
