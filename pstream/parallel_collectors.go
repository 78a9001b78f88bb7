package pstream

import (
	"cmp"

	collections "github.com/ilxqx/go-collections"
	"github.com/zhangyunhao116/skipmap"
	"github.com/zhangyunhao116/skipset"

	pengine "github.com/ilxqx/go-parallel/parallel"
)

// ToHashMapParallel builds a collections.Map[K, V] from data the way
// ToHashMapCollector does, except keyFn/valFn run across the parallel
// execution engine's worker pool instead of a single sequential pass.
// collections.Map is not safe for concurrent writes, so each element is
// mapped to its own single-entry map and the engine's Reduce merges
// those maps one after another in source order once the workers have
// joined, rather than every worker racing to Put into one shared map.
func ToHashMapParallel[T any, K comparable, V any](data []T, keyFn func(T) K, valFn func(T) V, opts ...pengine.Option) collections.Map[K, V] {
	opts = arbitraryOpts(opts)
	p := pengine.Map(pengine.FromSlice(data, opts...), func(v T) collections.Map[K, V] {
		m := collections.NewHashMap[K, V]()
		m.Put(keyFn(v), valFn(v))
		return m
	})
	merged, _ := pengine.Reduce(p, collections.Map[K, V](nil), mergeHashMaps[K, V])
	if merged == nil {
		return collections.NewHashMap[K, V]()
	}
	return merged
}

func mergeHashMaps[K comparable, V any](a, b collections.Map[K, V]) collections.Map[K, V] {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	for k, v := range b.Seq() {
		a.Put(k, v)
	}
	return a
}

// ToHashSetParallel builds a collections.Set[T] from data in parallel,
// following the same per-element-then-merge shape as ToHashMapParallel
// for the same concurrent-write-safety reason.
func ToHashSetParallel[T comparable](data []T, opts ...pengine.Option) collections.Set[T] {
	opts = arbitraryOpts(opts)
	p := pengine.Map(pengine.FromSlice(data, opts...), func(v T) collections.Set[T] {
		s := collections.NewHashSet[T]()
		s.Add(v)
		return s
	})
	merged, _ := pengine.Reduce(p, collections.Set[T](nil), mergeHashSets[T])
	if merged == nil {
		return collections.NewHashSet[T]()
	}
	return merged
}

func mergeHashSets[T comparable](a, b collections.Set[T]) collections.Set[T] {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	for v := range b.Seq() {
		a.Add(v)
	}
	return a
}

// ToSkipMapParallel builds a skip-list-backed ordered map from data with
// keyFn/valFn running across the engine's worker pool. Unlike
// ToHashMapParallel, skipmap.OrderedMapOf is itself safe for concurrent
// Store calls, so every worker writes straight into one shared map
// instead of needing a per-element-then-merge step — the genuinely
// concurrent container §3 of SPEC_FULL.md names this library for.
func ToSkipMapParallel[T any, K cmp.Ordered, V any](data []T, keyFn func(T) K, valFn func(T) V, opts ...pengine.Option) *skipmap.OrderedMapOf[K, V] {
	m := skipmap.NewOrdered[K, V]()
	pengine.ForEach(pengine.FromSlice(data, arbitraryOpts(opts)...), func(v T) {
		m.Store(keyFn(v), valFn(v))
	})
	return m
}

// ToSkipSetParallel builds a skip-list-backed ordered set from data with
// the engine's worker pool, writing straight into the shared
// skipset.OrderedSet since it too is safe for concurrent Add calls.
func ToSkipSetParallel[T cmp.Ordered](data []T, opts ...pengine.Option) *skipset.OrderedSet[T] {
	s := skipset.NewOrdered[T]()
	pengine.ForEach(pengine.FromSlice(data, arbitraryOpts(opts)...), func(v T) {
		s.Add(v)
	})
	return s
}

// arbitraryOpts appends WithArbitraryOrder to opts: none of the parallel
// collectors above depend on source order. Reduce still merges by source
// index under Arbitrary, so for the hash collectors the option changes
// nothing.
func arbitraryOpts(opts []pengine.Option) []pengine.Option {
	out := make([]pengine.Option, 0, len(opts)+1)
	out = append(out, opts...)
	out = append(out, pengine.WithArbitraryOrder())
	return out
}
