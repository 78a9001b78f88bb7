// Package orch implements the orchestrator contract: structured
// concurrency around a terminal call. A Scope guarantees every task
// spawned from it has finished before the scope closes; a panic in any
// spawned task is captured and re-raised on the calling goroutine only
// after every other task has joined, so a worker panic never leaves a
// partially written buffer observable to the caller.
package orch

import "sync"

// Handle is a joinable reference to one spawned task.
type Handle struct {
	done    chan struct{}
	panicked bool
	payload  any
}

// Join blocks until the task completes and reports whether it panicked.
func (h *Handle) Join() (panicked bool, payload any) {
	<-h.done
	return h.panicked, h.payload
}

// Scope lets spawned tasks be added to one structured-concurrency group.
// dispatch, if set, routes a spawned task onto a shared pool instead of
// a freshly created goroutine; nil means "go func(){...}()".
type Scope struct {
	wg       sync.WaitGroup
	mu       sync.Mutex
	handles  []*Handle
	dispatch func(func())
}

// Spawn runs f, tracked by this scope, either on a new goroutine or on
// the scope's pool if one is bound. A panic inside f is recovered and
// recorded on the returned Handle rather than crashing the process.
func (s *Scope) Spawn(f func()) *Handle {
	h := &Handle{done: make(chan struct{})}
	s.mu.Lock()
	s.handles = append(s.handles, h)
	s.mu.Unlock()

	s.wg.Add(1)
	task := func() {
		defer s.wg.Done()
		defer close(h.done)
		defer func() {
			if r := recover(); r != nil {
				h.panicked = true
				h.payload = r
			}
		}()
		f()
	}
	if s.dispatch != nil {
		s.dispatch(task)
	} else {
		go task()
	}
	return h
}

// Orchestrator binds a thread-pool strategy to the scope/spawn contract.
type Orchestrator interface {
	// RunScope invokes f with a fresh Scope and blocks until every task
	// spawned on it has joined. If any spawned task panicked, RunScope
	// re-panics with the first captured payload after every other task
	// has finished joining — partial results from other workers are
	// discarded by the caller, never returned.
	RunScope(f func(*Scope))
}

// goOrchestrator is the default implementation: one OS-scheduled
// goroutine per Scope.Spawn call, joined via sync.WaitGroup, matching the
// teacher's wg.Go()-based worker pools in parallel.go.
type goOrchestrator struct{}

// NewGoroutineOrchestrator returns the default orchestrator.
func NewGoroutineOrchestrator() Orchestrator { return goOrchestrator{} }

func (goOrchestrator) RunScope(f func(*Scope)) {
	s := &Scope{}

	// A panic directly inside f (not inside a spawned task) propagates to
	// the caller immediately; only task panics go through the structured
	// join-then-repanic path below.
	f(s)

	s.wg.Wait()

	for _, h := range s.handles {
		if h.panicked {
			panic(h.payload)
		}
	}
}
