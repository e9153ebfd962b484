/*
Package routinehelper counts the goroutines started by a component, by
name, so that a teardown can be verified to leave no goroutine behind.

Example:

	type T struct {
		routinehelper.TT
	}

	func (t *T) start() {
		go func() {
			defer t.Trace("loop")()
			// loop code
		}()
	}
*/
package routinehelper

import (
	"sync"
)

type (
	// Tracer is implemented by the counting and the noop tracers
	Tracer interface {
		Trace(name string) func()
		TraceRDump() Stat
	}

	// TT is embedded by the traced components
	TT struct {
		t Tracer
	}

	// Stat is a snapshot of the traced goroutines
	Stat struct {
		// Count is the number of currently running traced goroutines
		Count int

		// Max is the highest Count observed
		Max int

		// Details is Count per goroutine name
		Details map[string]int
	}

	counter struct {
		mu     sync.Mutex
		count  int
		max    int
		byName map[string]int
	}

	noop struct{}
)

// NewTracer returns a counting tracer
func NewTracer() *TT {
	return &TT{t: &counter{byName: make(map[string]int)}}
}

// NewTracerNoop returns a tracer counting nothing
func NewTracerNoop() *TT {
	return &TT{t: noop{}}
}

// SetTracer is used by the WithRoutineTracer funcopts
func (tt *TT) SetTracer(t Tracer) {
	tt.t = t
}

// Trace records a running goroutine named name. The returned func must
// be called when the goroutine returns:
//
//	defer t.Trace("name")()
func (tt *TT) Trace(name string) func() {
	if tt.t == nil {
		return func() {}
	}
	return tt.t.Trace(name)
}

// TraceRDump returns the current Stat
func (tt *TT) TraceRDump() Stat {
	if tt.t == nil {
		return Stat{}
	}
	return tt.t.TraceRDump()
}

func (c *counter) Trace(name string) func() {
	c.add(name, 1)
	var once sync.Once
	return func() {
		once.Do(func() { c.add(name, -1) })
	}
}

func (c *counter) add(name string, delta int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count += delta
	c.byName[name] += delta
	if c.byName[name] == 0 {
		delete(c.byName, name)
	}
	if c.count > c.max {
		c.max = c.count
	}
}

func (c *counter) TraceRDump() Stat {
	c.mu.Lock()
	defer c.mu.Unlock()
	details := make(map[string]int, len(c.byName))
	for k, v := range c.byName {
		details[k] = v
	}
	return Stat{Count: c.count, Max: c.max, Details: details}
}

func (noop) Trace(_ string) func() {
	return func() {}
}

func (noop) TraceRDump() Stat {
	return Stat{}
}
