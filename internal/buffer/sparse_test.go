package buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeSparseUpToMergesInSourceOrder(t *testing.T) {
	t.Parallel()

	// Two workers staged disjoint, ascending-by-index src entries, as the
	// shared fetch-add source guarantees for any one worker's own chunk
	// sequence.
	a := NewSparseIndex[string]()
	a.Insert(0, []string{"a0"})
	a.Insert(2, []string{"a2a", "a2b"})
	a.Insert(5, []string{"a5"})

	b := NewSparseIndex[string]()
	b.Insert(1, []string{"b1"})
	b.Insert(3, []string{"b3"})
	b.Insert(4, nil) // filtered out entirely, must not appear

	out, lastIdx := MergeSparseUpTo([]*SparseIndex[string]{a, b}, -1)
	assert.Equal(t, []string{"a0", "b1", "a2a", "a2b", "b3", "a5"}, out)
	assert.Equal(t, 5, lastIdx)
}

func TestMergeSparseUpToRespectsStopIndex(t *testing.T) {
	t.Parallel()

	a := NewSparseIndex[int]()
	a.Insert(0, []int{1})
	a.Insert(4, []int{2})

	b := NewSparseIndex[int]()
	b.Insert(2, []int{3})
	b.Insert(6, []int{4})

	out, lastIdx := MergeSparseUpTo([]*SparseIndex[int]{a, b}, 4)
	assert.Equal(t, []int{1, 3}, out)
	assert.Equal(t, 2, lastIdx)
}

func TestMergeSparseUpToEmpty(t *testing.T) {
	t.Parallel()

	out, lastIdx := MergeSparseUpTo([]*SparseIndex[int]{NewSparseIndex[int](), NewSparseIndex[int]()}, -1)
	assert.Empty(t, out)
	assert.Equal(t, -1, lastIdx)
}
