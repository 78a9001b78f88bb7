// Command pardemo drives the parallel execution engine over a small
// synthetic workload and prints the result, the way a teacher repo's
// cmd/ directory gives a runnable entry point alongside its library
// packages. It performs no internal logging on the hot path, matching
// the engine's own logging-free style; any failure is wrapped with
// fmt.Errorf and reported once, at the edge.
package main

import (
	"fmt"
	"os"

	pengine "github.com/ilxqx/go-parallel/parallel"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	const n = 100_000

	input := make([]int, n)
	for i := range input {
		input[i] = i
	}

	p := pengine.Filter(
		pengine.Map(
			pengine.FromSlice(input, pengine.WithAutoThreads()),
			func(v int) int { return v * v },
		),
		func(v int) bool { return v%7 == 0 },
	)

	out, workers := pengine.Collect(p)
	if len(out) == 0 {
		return fmt.Errorf("pardemo: expected at least one surviving element, got none")
	}

	sum, _ := pengine.Reduce(
		pengine.Map(pengine.FromSlice(out), func(v int) int { return v }),
		0,
		func(a, b int) int { return a + b },
	)

	fmt.Printf("workers=%d surviving=%d sum=%d\n", workers, len(out), sum)
	return nil
}
