package inference

import (
	"slices"
	"sync"
	"sync/atomic"
)

// FuncRunner is a Runner backed by a function. Tests and tools use it to
// stand in for a real model.
type FuncRunner struct {
	In    []int
	Out   []int
	Fn    func(input []float32) ([]float32, error)
	calls atomic.Int32

	mu     sync.Mutex
	closed bool
}

// Run implements Runner
func (f *FuncRunner) Run(input []float32) ([]float32, error) {
	f.calls.Add(1)
	if err := checkInputLen(Elements(f.In), len(input)); err != nil {
		return nil, err
	}
	return f.Fn(input)
}

// InputShape implements Runner
func (f *FuncRunner) InputShape() []int { return slices.Clone(f.In) }

// OutputShape implements Runner
func (f *FuncRunner) OutputShape() []int { return slices.Clone(f.Out) }

// Close implements Runner
func (f *FuncRunner) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// Calls returns how many times Run was invoked
func (f *FuncRunner) Calls() int { return int(f.calls.Load()) }

// Closed reports whether Close was called
func (f *FuncRunner) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
