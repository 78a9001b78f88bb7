package parallel

// FoldResult distinguishes a fold that has consumed at least one element
// from one that hasn't: Reduce seeds its running total with Identity and
// switches to Aggregate on the first element it folds, so op only ever
// runs between two values that actually came from the pipeline. Without
// this split, an empty pipeline (no elements at all) would have to apply
// op(identity, identity) to produce a result, which is wrong whenever
// identity isn't a true two-sided identity for op.
type FoldResult[T any] struct {
	isIdentity bool
	value      T
}

// Identity marks a fold that has not yet consumed an element.
func Identity[T any](identity T) FoldResult[T] {
	return FoldResult[T]{isIdentity: true, value: identity}
}

// Aggregate marks a fold that has consumed at least one element, value.
func Aggregate[T any](value T) FoldResult[T] {
	return FoldResult[T]{value: value}
}
