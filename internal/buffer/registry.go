package buffer

import "github.com/puzpuzpuz/xsync/v3"

// ResultRegistry is a concurrent src_idx -> value map used by the
// early-return paths (first / find / next): every worker that finds a
// candidate stores it here keyed by its src_idx, and once all workers
// have joined the engine looks up exactly the entry matching the final
// winning index. Because xsync.MapOf shards its internal locking, workers
// recording distinct candidates never contend with each other the way a
// single mutex-guarded map would.
type ResultRegistry[T any] struct {
	m *xsync.MapOf[int, T]
}

// NewResultRegistry creates an empty registry.
func NewResultRegistry[T any]() *ResultRegistry[T] {
	return &ResultRegistry[T]{m: xsync.NewMapOf[int, T]()}
}

// Record stores v as the candidate found at srcIdx.
func (r *ResultRegistry[T]) Record(srcIdx int, v T) {
	r.m.Store(srcIdx, v)
}

// Lookup retrieves the candidate recorded at srcIdx, if any.
func (r *ResultRegistry[T]) Lookup(srcIdx int) (T, bool) {
	return r.m.Load(srcIdx)
}
