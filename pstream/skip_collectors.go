package pstream

import (
	"cmp"

	streams "github.com/ilxqx/go-streams"
	"github.com/zhangyunhao116/skipmap"
	"github.com/zhangyunhao116/skipset"
)

// ToSkipMapCollector accumulates key/value pairs into a skip-list-backed
// ordered map instead of a plain Go map, the same structure
// ToSkipMapParallel builds, for when the result needs to stay sorted by
// key without a separate sort pass at the end (skipmap.OrderedMapOf's
// Range already walks keys in order).
func ToSkipMapCollector[T any, K cmp.Ordered, V any](keyFn func(T) K, valFn func(T) V) streams.Collector[T, *skipmap.OrderedMapOf[K, V], *skipmap.OrderedMapOf[K, V]] {
	return streams.Collector[T, *skipmap.OrderedMapOf[K, V], *skipmap.OrderedMapOf[K, V]]{
		Supplier: func() *skipmap.OrderedMapOf[K, V] {
			return skipmap.NewOrdered[K, V]()
		},
		Accumulator: func(acc *skipmap.OrderedMapOf[K, V], v T) *skipmap.OrderedMapOf[K, V] {
			acc.Store(keyFn(v), valFn(v))
			return acc
		},
		Finisher: func(acc *skipmap.OrderedMapOf[K, V]) *skipmap.OrderedMapOf[K, V] { return acc },
	}
}

// ToSkipSetCollector accumulates elements into a skip-list-backed ordered
// set, giving a dedup'd, sorted-by-value result without a separate
// slices.Sort pass.
func ToSkipSetCollector[T cmp.Ordered]() streams.Collector[T, *skipset.OrderedSet[T], *skipset.OrderedSet[T]] {
	return streams.Collector[T, *skipset.OrderedSet[T], *skipset.OrderedSet[T]]{
		Supplier: func() *skipset.OrderedSet[T] {
			return skipset.NewOrdered[T]()
		},
		Accumulator: func(acc *skipset.OrderedSet[T], v T) *skipset.OrderedSet[T] {
			acc.Add(v)
			return acc
		},
		Finisher: func(acc *skipset.OrderedSet[T]) *skipset.OrderedSet[T] { return acc },
	}
}

// SkipMapKeys drains a skip-list-backed ordered map's keys, in ascending
// order, into a plain slice.
func SkipMapKeys[K cmp.Ordered, V any](m *skipmap.OrderedMapOf[K, V]) []K {
	keys := make([]K, 0)
	m.Range(func(k K, _ V) bool {
		keys = append(keys, k)
		return true
	})
	return keys
}

// SkipSetValues drains a skip-list-backed ordered set, in ascending
// order, into a plain slice.
func SkipSetValues[T cmp.Ordered](s *skipset.OrderedSet[T]) []T {
	values := make([]T, 0)
	s.Range(func(v T) bool {
		values = append(values, v)
		return true
	})
	return values
}
