package parallel

import (
	"iter"

	"github.com/ilxqx/go-parallel/internal/source"
	"github.com/ilxqx/go-parallel/internal/values"
)

// Pipeline is a not-yet-executed parallel computation: a concurrent
// source plus a chain of Value-algebra stages mapping In to Out. It
// carries no goroutines of its own; a terminal (Collect, Reduce,
// ForEach, ...) is what actually runs it.
type Pipeline[In, Out any] struct {
	src    source.Source[In]
	stage  func(In) values.Value[Out]
	params Params
	// sparse is true once a stage in the chain can change cardinality or
	// stop early (Filter, FlatMap, MapWhile, TryMap). A pipeline that is
	// still dense (pure Map only) lets Collect use the cheaper
	// contiguous Pinned buffer instead of the sparse index/merge path.
	sparse bool
}

// FromSlice builds a Pipeline directly over a slice, the common case.
func FromSlice[In any](data []In, opts ...Option) Pipeline[In, In] {
	return fromSource[In](source.NewSliceSource(data), opts)
}

// FromSeq adapts a standard iter.Seq[In] (including streams.Stream[In].Seq)
// into a Pipeline.
func FromSeq[In any](seq iter.Seq[In], opts ...Option) Pipeline[In, In] {
	return fromSource[In](source.NewSeqSource(seq), opts)
}

// FromChannel adapts a receive-only channel into a Pipeline.
func FromChannel[In any](ch <-chan In, opts ...Option) Pipeline[In, In] {
	return fromSource[In](source.NewChannelSource(ch), opts)
}

func fromSource[In any](src source.Source[In], opts []Option) Pipeline[In, In] {
	return Pipeline[In, In]{
		src:    src,
		stage:  values.Map(func(v In) In { return v }),
		params: buildParams(opts),
	}
}

// Map applies fn to every element the pipeline so far produces.
func Map[In, Mid, Out any](p Pipeline[In, Mid], fn func(Mid) Out) Pipeline[In, Out] {
	return Pipeline[In, Out]{
		src:    p.src,
		params: p.params,
		sparse: p.sparse,
		stage:  values.Chain(p.stage, values.Map(fn)),
	}
}

// Filter keeps only elements for which pred returns true.
func Filter[In, Out any](p Pipeline[In, Out], pred func(Out) bool) Pipeline[In, Out] {
	return Pipeline[In, Out]{
		src:    p.src,
		params: p.params,
		sparse: true,
		stage: values.Chain(p.stage, func(v Out) values.Value[Out] {
			return values.OptionValue(v, pred(v))
		}),
	}
}

// FlatMap maps each element to zero or more outputs.
func FlatMap[In, Mid, Out any](p Pipeline[In, Mid], fn func(Mid) []Out) Pipeline[In, Out] {
	return Pipeline[In, Out]{
		src:    p.src,
		params: p.params,
		sparse: true,
		stage: values.Chain(p.stage, func(v Mid) values.Value[Out] {
			return values.VectorValue(fn(v))
		}),
	}
}

// MapWhile maps each element until fn reports ok=false, at which point
// the pipeline stops at that element without error (map_while semantics,
// recovered from the original Rust implementation's while-family).
func MapWhile[In, Mid, Out any](p Pipeline[In, Mid], fn func(Mid) (Out, bool)) Pipeline[In, Out] {
	return Pipeline[In, Out]{
		src:    p.src,
		params: p.params,
		sparse: true,
		stage: values.Chain(p.stage, func(v Mid) values.Value[Out] {
			out, ok := fn(v)
			return values.WhileOption(out, ok)
		}),
	}
}

// TryMap maps each element with a function that may fail; the pipeline
// stops at the first error and that error is surfaced by CollectResult /
// the fallible terminals.
func TryMap[In, Mid, Out any](p Pipeline[In, Mid], fn func(Mid) (Out, error)) Pipeline[In, Out] {
	return Pipeline[In, Out]{
		src:    p.src,
		params: p.params,
		sparse: true,
		stage: values.Chain(p.stage, func(v Mid) values.Value[Out] {
			out, err := fn(v)
			return values.WhileOk(out, err)
		}),
	}
}
