package orch

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScopeJoinsAllSpawnedTasks(t *testing.T) {
	t.Parallel()

	var done atomic.Int64
	o := NewGoroutineOrchestrator()
	o.RunScope(func(s *Scope) {
		for range 20 {
			s.Spawn(func() { done.Add(1) })
		}
	})
	assert.Equal(t, int64(20), done.Load())
}

func TestHandleJoinReportsPanic(t *testing.T) {
	t.Parallel()

	var h *Handle
	o := NewGoroutineOrchestrator()
	o.RunScope(func(s *Scope) {
		h = s.Spawn(func() { panic("boom") })
	})
	panicked, payload := h.Join()
	assert.True(t, panicked)
	assert.Equal(t, "boom", payload)
}

func TestRunScopeRepanicsAfterEveryTaskJoins(t *testing.T) {
	t.Parallel()

	var otherDone atomic.Bool
	o := NewGoroutineOrchestrator()

	assert.PanicsWithValue(t, "boom", func() {
		o.RunScope(func(s *Scope) {
			s.Spawn(func() { panic("boom") })
			s.Spawn(func() { otherDone.Store(true) })
		})
	})
	assert.True(t, otherDone.Load())
}

func TestRunScopeWithNoPanicsReturnsCleanly(t *testing.T) {
	t.Parallel()

	o := NewGoroutineOrchestrator()
	assert.NotPanics(t, func() {
		o.RunScope(func(s *Scope) {
			s.Spawn(func() {})
		})
	})
}
