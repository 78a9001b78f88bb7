// Package values implements the generalized value algebra that every
// pipeline stage yields: zero or more outputs plus a stop signal. It lets
// the engine treat map, filter, flat-map, filter-map, map-while and
// fallible-map uniformly, so the execution engine above it needs only one
// code path instead of one per stage kind.
package values

// Status describes why a Value carries the outputs it does.
type Status int

const (
	// Continue means the stage produced its outputs normally; the
	// pipeline should keep pulling from the source.
	Continue Status = iota
	// StopByWhile means a while-predicate failed (map_while / take_while
	// style termination). Not an error — callers truncate, they don't fail.
	StopByWhile
	// StopByError means the stage observed a user error; Err holds it.
	StopByError
)

// Value is the unified yield of one pipeline stage: 0..N outputs plus an
// optional stop signal. All six algebra variants in spec section 4.2
// (Atom, Option, Vector, WhileOption, WhileOk, WhileVector) construct one
// of these; the engine only ever deals with this one type.
type Value[T any] struct {
	outputs []T
	status  Status
	err     error
}

// Atom wraps exactly one output (map-like).
func Atom[T any](v T) Value[T] {
	return Value[T]{outputs: []T{v}}
}

// OptionValue wraps zero or one output depending on ok (filter-map-like).
func OptionValue[T any](v T, ok bool) Value[T] {
	if !ok {
		return Value[T]{}
	}
	return Value[T]{outputs: []T{v}}
}

// VectorValue wraps zero or more outputs (flat-map-like).
func VectorValue[T any](vs []T) Value[T] {
	return Value[T]{outputs: vs}
}

// WhileOption yields v if ok, otherwise stops the pipeline without error
// (map_while semantics).
func WhileOption[T any](v T, ok bool) Value[T] {
	if !ok {
		return Value[T]{status: StopByWhile}
	}
	return Value[T]{outputs: []T{v}}
}

// WhileOk yields v if err is nil, otherwise stops the pipeline with err
// (fallible map semantics).
func WhileOk[T any](v T, err error) Value[T] {
	if err != nil {
		return Value[T]{status: StopByError, err: err}
	}
	return Value[T]{outputs: []T{v}}
}

// WhileVector yields vs, additionally stopping the pipeline after this
// item if cont is false (a "stop after this" marker for a batch that
// exhausted its while-condition partway through).
func WhileVector[T any](vs []T, cont bool) Value[T] {
	if cont {
		return Value[T]{outputs: vs}
	}
	return Value[T]{outputs: vs, status: StopByWhile}
}

// Values returns the outputs carried by this Value.
func (v Value[T]) Values() []T { return v.outputs }

// St returns the stop status.
func (v Value[T]) St() Status { return v.status }

// Stopped reports whether this Value carries any stop signal.
func (v Value[T]) Stopped() bool { return v.status != Continue }

// Err returns the error, if the stop was StopByError.
func (v Value[T]) Err() error { return v.err }

// Chain composes two pipeline stages f: In -> Value[Mid] and
// g: Mid -> Value[Out] into a single In -> Value[Out] stage, following the
// composition rule from spec section 4.2: if f(x) stops, g is never
// invoked and the stop propagates unchanged; otherwise g runs over every
// mid value from f(x), outputs concatenate, and the first stop from g
// discards the remaining mids from this same x.
func Chain[In, Mid, Out any](f func(In) Value[Mid], g func(Mid) Value[Out]) func(In) Value[Out] {
	return func(in In) Value[Out] {
		mv := f(in)
		if mv.Stopped() {
			return Value[Out]{status: mv.status, err: mv.err}
		}
		var out []Out
		for _, mid := range mv.outputs {
			ov := g(mid)
			out = append(out, ov.outputs...)
			if ov.Stopped() {
				return Value[Out]{outputs: out, status: ov.status, err: ov.err}
			}
		}
		return Value[Out]{outputs: out}
	}
}

// Map adapts a plain T -> U function into a Value-algebra stage (the Atom
// variant), the most common case used to seed a Chain.
func Map[In, Out any](fn func(In) Out) func(In) Value[Out] {
	return func(in In) Value[Out] { return Atom(fn(in)) }
}
