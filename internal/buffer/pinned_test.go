package buffer

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPinnedSequentialWrite(t *testing.T) {
	t.Parallel()

	p := NewPinned[int](4)
	for i := range 4 {
		h := p.Claim(i, 1)
		h.WriteAt(0, i*i)
	}
	assert.Equal(t, []int{0, 1, 4, 9}, p.Finalize(4))
}

func TestPinnedGrowsAcrossBlocks(t *testing.T) {
	t.Parallel()

	p := NewPinned[int](0)
	const n = 500
	for i := range n {
		p.Reserve(1)
		h := p.Claim(i, 1)
		h.WriteAt(0, i)
	}
	out := p.Finalize(n)
	for i := range n {
		assert.Equal(t, i, out[i])
	}
}

func TestPinnedConcurrentDisjointClaims(t *testing.T) {
	t.Parallel()

	const n = 2000
	p := NewPinned[int](n)
	var wg sync.WaitGroup
	chunk := 50
	for start := 0; start < n; start += chunk {
		begin := start
		wg.Go(func() {
			end := min(begin+chunk, n)
			for i := begin; i < end; i++ {
				h := p.Claim(i, 1)
				h.WriteAt(0, i*2)
			}
		})
	}
	wg.Wait()

	out := p.Finalize(n)
	for i := range n {
		assert.Equal(t, i*2, out[i])
	}
}

func TestPinnedFinalizePanicsOnOverclaim(t *testing.T) {
	t.Parallel()

	p := NewPinned[int](2)
	h := p.Claim(0, 1)
	h.WriteAt(0, 1)
	assert.Panics(t, func() { p.Finalize(5) })
}

func TestPinnedPush(t *testing.T) {
	t.Parallel()

	p := NewPinned[string](0)
	p.Push("a")
	p.Push("b")
	p.Push("c")
	assert.Equal(t, []string{"a", "b", "c"}, p.Finalize(3))
}
