package parallel

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

// stepRNG is a tiny deterministic per-worker counter standing in for a
// real non-shareable resource (a *rand.Rand, a buffered writer); it
// exists only to prove each worker gets its own instance.
type stepRNG struct{ n int }

func (r *stepRNG) next() int { r.n++; return r.n }

func TestCollectUsingGivesEachWorkerItsOwnResource(t *testing.T) {
	t.Parallel()

	data := sequentialData(200)
	var created int
	var mu sync.Mutex
	u := NewUsing(func(workerID int) *stepRNG {
		mu.Lock()
		created++
		mu.Unlock()
		return &stepRNG{}
	}, nil)

	out, n := CollectUsing(FromSlice(data, WithThreads(4)), u, func(r *stepRNG, v int) int {
		return v + r.next()
	})

	assert.Len(t, out, len(data))
	assert.LessOrEqual(t, created, n)
	assert.Positive(t, created)
}

func TestForEachUsingClosesEveryRealizedResource(t *testing.T) {
	t.Parallel()

	data := sequentialData(50)
	var mu sync.Mutex
	var closed int
	u := NewUsing(func(workerID int) *stepRNG {
		return &stepRNG{}
	}, func(r *stepRNG) {
		mu.Lock()
		closed++
		mu.Unlock()
	})

	var sum int
	var sumMu sync.Mutex
	n := ForEachUsing(FromSlice(data, WithThreads(4)), u, func(r *stepRNG, v int) {
		sumMu.Lock()
		sum += v
		sumMu.Unlock()
	})

	want := 0
	for _, v := range data {
		want += v
	}
	assert.Equal(t, want, sum)
	assert.LessOrEqual(t, closed, n)
	assert.Positive(t, closed)
}
