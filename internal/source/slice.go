package source

import "sync/atomic"

// SliceSource is a random-access concurrent source backed by a slice. It
// supports NextChunk via a single atomic fetch-add over the cursor, so
// workers never block each other acquiring a chunk.
type SliceSource[T any] struct {
	data   []T
	cursor atomic.Int64
}

// NewSliceSource wraps data as a concurrent source. data is read-only for
// the lifetime of the source; callers must not mutate it concurrently.
func NewSliceSource[T any](data []T) *SliceSource[T] {
	return &SliceSource[T]{data: data}
}

func (s *SliceSource[T]) TryLen() (int, bool) {
	remaining := int64(len(s.data)) - s.cursor.Load()
	if remaining < 0 {
		remaining = 0
	}
	return int(remaining), true
}

func (s *SliceSource[T]) Next() (T, bool) {
	begin, chunk := s.NextChunk(1)
	_ = begin
	if len(chunk) == 0 {
		var zero T
		return zero, false
	}
	return chunk[0], true
}

func (s *SliceSource[T]) NextChunk(n int) (int, []T) {
	if n <= 0 {
		return len(s.data), nil
	}
	begin := int(s.cursor.Add(int64(n)) - int64(n))
	if begin >= len(s.data) {
		return len(s.data), nil
	}
	end := begin + n
	if end > len(s.data) {
		end = len(s.data)
	}
	return begin, s.data[begin:end]
}
