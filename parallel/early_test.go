package parallel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFindFirstReturnsSmallestMatchingIndex(t *testing.T) {
	t.Parallel()

	data := sequentialData(5000)
	v, ok, n := FindFirst(FromSlice(data, WithThreads(8), WithChunkSize(3)), func(x int) bool {
		return x > 999 && x%7 == 0
	})
	assert.True(t, ok)
	assert.Greater(t, n, 0)
	assert.Equal(t, 1001, v)
}

func TestFindFirstNoMatch(t *testing.T) {
	t.Parallel()

	data := sequentialData(100)
	_, ok, _ := FindFirst(FromSlice(data, WithThreads(4)), func(x int) bool { return x > 1000 })
	assert.False(t, ok)
}

func TestAny(t *testing.T) {
	t.Parallel()

	data := sequentialData(1000)
	ok, _ := Any(FromSlice(data, WithThreads(4)), func(x int) bool { return x == 500 })
	assert.True(t, ok)

	ok, _ = Any(FromSlice(data, WithThreads(4)), func(x int) bool { return x == 5000 })
	assert.False(t, ok)
}

func TestNextAnyFindsAMatchingElement(t *testing.T) {
	t.Parallel()

	data := sequentialData(2000)
	v, ok, n := NextAny(FromSlice(data, WithThreads(6)), func(x int) bool { return x%97 == 0 && x > 0 })
	assert.True(t, ok)
	assert.Greater(t, n, 0)
	assert.Zero(t, v%97)
}

func TestFirstIsSmallestIndexRegardlessOfThreadCount(t *testing.T) {
	t.Parallel()

	data := sequentialData(3000)
	for _, threads := range []int{1, 2, 5, 16} {
		v, ok, _ := First(FromSlice(data, WithThreads(threads)))
		assert.True(t, ok)
		assert.Equal(t, 0, v)
	}
}
