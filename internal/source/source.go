// Package source implements the concurrent input source contract: a
// thread-safe cursor over an input sequence that hands out non-overlapping
// chunks to concurrent callers. SliceSource does this with one atomic add
// per chunk; SeqSource and ChannelSource take a mutex per chunk.
package source

// Source is a thread-safe cursor over an input sequence. Implementations
// must guarantee that two concurrent NextChunk calls never return
// overlapping index ranges, and that once the source is exhausted every
// subsequent NextChunk call returns an empty chunk.
type Source[T any] interface {
	// TryLen returns the number of remaining items if known, or
	// (0, false) for unknown/infinite sources.
	TryLen() (n int, ok bool)
	// Next pulls a single item, or (zero, false) if exhausted.
	Next() (v T, ok bool)
	// NextChunk pulls up to n items atomically, returning the start
	// index of the first returned item (monotonic across concurrent
	// callers) and the chunk itself. len(chunk) <= n; len(chunk) == 0
	// means the source is exhausted.
	NextChunk(n int) (begin int, chunk []T)
}
