package buffer

import (
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestArbitraryBag(t *testing.T) {
	t.Parallel()

	b := NewArbitraryBag[int](0)
	var wg sync.WaitGroup
	for w := range 8 {
		worker := w
		wg.Go(func() {
			b.AppendMany([]int{worker*10 + 1, worker*10 + 2})
		})
	}
	wg.Wait()

	out := b.Finalize()
	assert.Len(t, out, 16)

	sort.Ints(out)
	var want []int
	for w := range 8 {
		want = append(want, w*10+1, w*10+2)
	}
	sort.Ints(want)
	assert.Equal(t, want, out)
}

func TestArbitraryBagAppendOne(t *testing.T) {
	t.Parallel()

	b := NewArbitraryBag[string](2)
	b.AppendOne("x")
	b.AppendOne("y")
	assert.Equal(t, []string{"x", "y"}, b.Finalize())
}
