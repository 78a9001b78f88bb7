package parallel

import (
	"sync"

	"github.com/ilxqx/go-parallel/internal/runner"
	"github.com/ilxqx/go-parallel/internal/values"
)

// ForEach runs action over every surviving output for its side effects
// and returns the number of workers spawned. If the pipeline is fallible
// (built with TryMap) and an element errors, ForEach stops calling
// action past that point and returns the first error observed at the
// smallest source index.
func ForEach[In, Out any](p Pipeline[In, Out], action func(Out), opts ...Option) (int, error) {
	p.params = withOverrides(p.params, opts)
	rp := buildRunner(p, runner.Collect)
	n := rp.NumThreads()

	var errMu sync.Mutex
	var firstErr error
	firstErrIdx := -1

	execute(p, rp, func(_ int, idx int, v values.Value[Out]) {
		if v.St() == values.StopByError {
			errMu.Lock()
			if firstErrIdx == -1 || idx < firstErrIdx {
				firstErrIdx = idx
				firstErr = v.Err()
			}
			errMu.Unlock()
			return
		}
		for _, out := range v.Values() {
			action(out)
		}
	})

	return n, firstErr
}
