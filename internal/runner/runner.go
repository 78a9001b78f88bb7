// Package runner implements the thread-runner / parallel-runner split:
// the per-worker chunk-sizing policy and the top-level policy that turns
// one terminal call's (kind, params, length hint) into a worker count and
// a shared sizing state.
package runner

import (
	"os"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/zhangyunhao116/fastrand"
)

// Kind is the computation kind a terminal performs; it informs chunk
// sizing and whether an ordering-preserving sink is required.
type Kind int

const (
	Collect Kind = iota
	Reduce
	EarlyReturn
)

// ThreadsSpec selects how many workers a terminal call uses.
type ThreadsSpec struct {
	auto  bool
	exact int
}

// AutoThreads resolves to min(available parallelism, env-var bound).
func AutoThreads() ThreadsSpec { return ThreadsSpec{auto: true} }

// ExactThreads pins the worker count to n (n must be >= 1).
func ExactThreads(n int) ThreadsSpec {
	if n < 1 {
		n = 1
	}
	return ThreadsSpec{exact: n}
}

// ChunkSpec selects how a terminal call sizes its chunks.
type ChunkSpec struct {
	kind ChunkSpecKind
	n    int
}

type ChunkSpecKind int

const (
	ChunkAuto ChunkSpecKind = iota
	ChunkMin
	ChunkExact
)

func AutoChunk() ChunkSpec          { return ChunkSpec{kind: ChunkAuto} }
func MinChunk(m int) ChunkSpec      { return ChunkSpec{kind: ChunkMin, n: m} }
func ExactChunkOf(m int) ChunkSpec  { return ChunkSpec{kind: ChunkExact, n: m} }

const (
	minAutoChunk = 1
	maxAutoChunk = 1 << 20
	targetDense  = 64
)

// envMaxThreadsVar is read once per process per spec section 6 and 9
// ("Global state. Only the env-var read is process-wide").
const envMaxThreadsVar = "ORX_PARALLEL_MAX_NUM_THREADS"

var envMaxThreads = sync.OnceValue(func() int {
	s, ok := os.LookupEnv(envMaxThreadsVar)
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
})

// resolveThreads turns a ThreadsSpec into a concrete worker count.
func resolveThreads(spec ThreadsSpec) int {
	if !spec.auto {
		return spec.exact
	}
	n := runtime.NumCPU()
	if bound := envMaxThreads(); bound > 0 && bound < n {
		n = bound
	}
	if n < 1 {
		n = 1
	}
	return n
}

// ThreadRunner is the per-worker chunk-sizing policy across the chunks of
// one task. Implementations may hold adaptive mutable state; the default
// fixed-chunk policy is stateless beyond its configured size.
type ThreadRunner interface {
	// NextChunkSize returns the size of the next chunk to pull, or
	// (0, false) to stop pulling. remainingHint is the source's
	// TryLen() result at the time of the call, if known.
	NextChunkSize(remainingHint int, hintKnown bool) (int, bool)
	BeginChunk(k int)
	CompleteChunk(k int)
	CompleteTask()
}

// fixedChunkRunner is the default policy from spec section 4.4: a fixed
// size computed once by the ParallelRunner and handed out unchanged every
// call, stopping only once the source is known to be exhausted.
type fixedChunkRunner struct {
	size    int
	started bool
}

const startJitterMax = 200 * time.Microsecond

// NextChunkSize staggers the very first pull with a small random delay
// so a burst of newly spawned workers doesn't all land on the source's
// fetch-add cursor in the same instant; the returned chunk size itself
// never depends on the jitter, so output order and content are
// unaffected, only which worker happens to observe a cursor position
// first.
func (f *fixedChunkRunner) NextChunkSize(remainingHint int, hintKnown bool) (int, bool) {
	if hintKnown && remainingHint == 0 {
		return 0, false
	}
	if !f.started {
		f.started = true
		if d := fastrand.Uint32n(uint32(startJitterMax)); d > 0 {
			time.Sleep(time.Duration(d))
		}
	}
	return f.size, true
}

func (f *fixedChunkRunner) BeginChunk(int)    {}
func (f *fixedChunkRunner) CompleteChunk(int) {}
func (f *fixedChunkRunner) CompleteTask()     {}

// ParallelRunner is the top-level policy for one terminal call: given the
// computation kind, Params and an input length hint, it decides worker
// count and per-worker chunk size.
type ParallelRunner struct {
	kind        Kind
	numThreads  int
	chunkSize   int
}

// Params mirrors the public Params type without importing the root
// package (which would create an import cycle); the root package passes
// its own Params fields through at this shape.
type Params struct {
	Threads   ThreadsSpec
	Chunk     ChunkSpec
	Arbitrary bool
}

// NewParallelRunner builds a ParallelRunner for one terminal call.
// lenHint/lenKnown is the input source's TryLen() at call time.
func NewParallelRunner(kind Kind, params Params, lenHint int, lenKnown bool) *ParallelRunner {
	numThreads := resolveThreads(params.Threads)

	chunkSize := resolveChunkSize(kind, params.Chunk, numThreads, lenHint, lenKnown)

	return &ParallelRunner{kind: kind, numThreads: numThreads, chunkSize: chunkSize}
}

func resolveChunkSize(kind Kind, spec ChunkSpec, numThreads, lenHint int, lenKnown bool) int {
	switch spec.kind {
	case ChunkExact:
		return max(1, spec.n)
	case ChunkMin:
		auto := autoChunkSize(kind, numThreads, lenHint, lenKnown)
		return max(spec.n, auto)
	default:
		return autoChunkSize(kind, numThreads, lenHint, lenKnown)
	}
}

func autoChunkSize(kind Kind, numThreads, lenHint int, lenKnown bool) int {
	if kind == EarlyReturn {
		return targetDense
	}
	hint := targetDense
	if lenKnown && numThreads > 0 {
		hint = lenHint / (numThreads * 4)
	}
	if hint < minAutoChunk {
		hint = minAutoChunk
	}
	if hint > maxAutoChunk {
		hint = maxAutoChunk
	}
	return hint
}

// NumThreads returns the number of workers this terminal call will spawn.
func (r *ParallelRunner) NumThreads() int { return r.numThreads }

// ThreadRunnerFor builds the ThreadRunner for worker workerID. The
// default policy ignores workerID since it has no per-worker state.
func (r *ParallelRunner) ThreadRunnerFor(workerID int) ThreadRunner {
	return &fixedChunkRunner{size: r.chunkSize}
}
