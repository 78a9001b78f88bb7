package buffer

import "github.com/tidwall/btree"

// SparseIndex is a single worker's staging area for the ordered-sparse
// collect path (filter / flat-map / map-while / fallible pipelines, where
// a chunk's output count differs from its input count). Each worker owns
// one SparseIndex exclusively; a src_idx is inserted at most once, and
// because a worker only ever receives chunks whose begin index is larger
// than every chunk it has already processed (the shared source hands out
// strictly increasing begin indices over time), a worker's own inserts
// already arrive in ascending src_idx order — btree.Map just gives us
// that order back on Scan without a separate sort pass.
type SparseIndex[T any] struct {
	tree btree.Map[int, []T]
}

// NewSparseIndex creates an empty per-worker staging index.
func NewSparseIndex[T any]() *SparseIndex[T] {
	return &SparseIndex[T]{}
}

// Insert records the (possibly multi-valued) outputs produced for
// src_idx. An empty vs is not stored.
func (s *SparseIndex[T]) Insert(srcIdx int, vs []T) {
	if len(vs) == 0 {
		return
	}
	s.tree.Set(srcIdx, vs)
}

// mergeStream is the cursor a single SparseIndex exposes during a k-way
// merge: repeated calls to next() return (idx, values) pairs in
// ascending idx order, then ok=false once exhausted.
type mergeStream[T any] struct {
	iter  btree.MapIter[int, []T]
	ready bool
}

func (s *SparseIndex[T]) cursor() *mergeStream[T] {
	m := &mergeStream[T]{iter: s.tree.Iter()}
	m.ready = m.iter.First()
	return m
}

func (m *mergeStream[T]) peek() (idx int, vs []T, ok bool) {
	if !m.ready {
		return 0, nil, false
	}
	return m.iter.Key(), m.iter.Value(), true
}

func (m *mergeStream[T]) advance() {
	m.ready = m.iter.Next()
}

// mergeHeap is a min-heap over the current head of each worker's sorted
// stream, the same k-way merge shape as streams.MergeSortedNHeap in the
// teacher repo, specialized to merge-by-src_idx instead of merge-by-value.
type mergeHeap[T any] struct {
	streams []*mergeStream[T]
}

func (h *mergeHeap[T]) Len() int { return len(h.streams) }

func (h *mergeHeap[T]) less(i, j int) bool {
	ii, _, _ := h.streams[i].peek()
	jj, _, _ := h.streams[j].peek()
	return ii < jj
}

func (h *mergeHeap[T]) swap(i, j int) { h.streams[i], h.streams[j] = h.streams[j], h.streams[i] }

func (h *mergeHeap[T]) push(s *mergeStream[T]) {
	h.streams = append(h.streams, s)
	i := len(h.streams) - 1
	for i > 0 {
		parent := (i - 1) / 2
		if !h.less(i, parent) {
			break
		}
		h.swap(i, parent)
		i = parent
	}
}

func (h *mergeHeap[T]) popMin() *mergeStream[T] {
	n := len(h.streams)
	top := h.streams[0]
	h.streams[0] = h.streams[n-1]
	h.streams = h.streams[:n-1]
	n--
	i := 0
	for {
		left := 2*i + 1
		if left >= n {
			break
		}
		smallest := left
		if right := left + 1; right < n && h.less(right, left) {
			smallest = right
		}
		if !h.less(smallest, i) {
			break
		}
		h.swap(i, smallest)
		i = smallest
	}
	return top
}

// MergeSparseUpTo merges worker-local sparse indexes in ascending src_idx
// order, stopping before any src_idx >= stopIdx (stopIdx < 0 means no
// limit — merge everything), and returns the flattened outputs plus the
// largest src_idx consumed (or -1 if nothing was consumed). This is the
// "k-way merge by src_idx" execution path spec section 4.5 describes for
// ordered collect over a length-changing pipeline.
func MergeSparseUpTo[T any](indexes []*SparseIndex[T], stopIdx int) ([]T, int) {
	h := &mergeHeap[T]{}
	for _, idx := range indexes {
		c := idx.cursor()
		if _, _, ok := c.peek(); ok {
			h.push(c)
		}
	}

	var out []T
	lastIdx := -1
	for h.Len() > 0 {
		s := h.popMin()
		idx, vs, _ := s.peek()
		if stopIdx >= 0 && idx >= stopIdx {
			break
		}
		out = append(out, vs...)
		lastIdx = idx
		s.advance()
		if _, _, ok := s.peek(); ok {
			h.push(s)
		}
	}
	return out, lastIdx
}
