package orch

// PoolOrchestrator runs every Scope's spawned tasks on a small set of
// persistent goroutines instead of spinning up new ones per call,
// letting a caller that drives many terminal calls back to back reuse
// the same goroutines rather than paying creation cost on every one.
// Recovered from orx-parallel's pluggable orch::implementations — the
// default goOrchestrator always spawns fresh goroutines (matching the
// teacher's wg.Go()-based pools in parallel.go); this is the
// "externally supplied pool" collaborator spec.md section 4.6 names but
// leaves unspecified in shape. Task submission itself still blocks the
// submitting goroutine until a pool worker picks it up, so RunScope's
// structured-concurrency contract (every task joined before it returns)
// is unaffected by which Orchestrator a caller chooses.
type PoolOrchestrator struct {
	tasks chan func()
	done  chan struct{}
}

// NewPoolOrchestrator starts size persistent worker goroutines pulling
// tasks off a shared, unbuffered queue until Close is called. size < 1
// is treated as 1.
func NewPoolOrchestrator(size int) *PoolOrchestrator {
	if size < 1 {
		size = 1
	}
	p := &PoolOrchestrator{
		tasks: make(chan func()),
		done:  make(chan struct{}),
	}
	for range size {
		go p.loop()
	}
	return p
}

func (p *PoolOrchestrator) loop() {
	for {
		select {
		case f := <-p.tasks:
			f()
		case <-p.done:
			return
		}
	}
}

// Close stops every persistent worker goroutine. Callers must not start
// a new RunScope on this orchestrator once Close has been called, and
// must not call Close while a RunScope is still in flight.
func (p *PoolOrchestrator) Close() {
	close(p.done)
}

// RunScope submits every task spawned from f's Scope onto the shared
// pool and blocks until they have all run to completion, exactly like
// goOrchestrator's contract; only the goroutines doing the work differ.
// If the pool is smaller than the number of tasks a scope spawns, the
// extra tasks simply queue behind the ones already running — engine
// callers never spawn more per-scope tasks than fit a terminal's worker
// count, so this never deadlocks against itself.
func (p *PoolOrchestrator) RunScope(f func(*Scope)) {
	s := &Scope{dispatch: func(task func()) { p.tasks <- task }}

	f(s)

	s.wg.Wait()

	for _, h := range s.handles {
		if h.panicked {
			panic(h.payload)
		}
	}
}
