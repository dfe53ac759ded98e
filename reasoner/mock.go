package reasoner

import (
	"context"
	"fmt"
	"sync"
)

// Call records one invocation observed by the mock.
type Call struct {
	Prompt string
	Shape  Shape
}

type stub struct {
	result Result
	err    error
}

// Mock is a scriptable in-memory Reasoner useful for tests and examples.
// Results are enqueued per shape and consumed in FIFO order; an exhausted
// shape queue yields an error so tests fail loudly on unexpected calls.
type Mock struct {
	mu    sync.Mutex
	stubs map[Shape][]stub
	calls []Call
}

// NewMock constructs an empty scriptable reasoner.
func NewMock() *Mock {
	return &Mock{stubs: make(map[Shape][]stub)}
}

// Enqueue scripts the next result returned for the given shape.
func (m *Mock) Enqueue(shape Shape, result Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stubs[shape] = append(m.stubs[shape], stub{result: result})
}

// EnqueueError scripts the next call for the given shape to fail.
func (m *Mock) EnqueueError(shape Shape, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stubs[shape] = append(m.stubs[shape], stub{err: err})
}

// Call implements Reasoner, consuming the next scripted stub for the shape.
func (m *Mock) Call(_ context.Context, prompt string, shape Shape) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Prompt: prompt, Shape: shape})
	queue := m.stubs[shape]
	if len(queue) == 0 {
		return nil, fmt.Errorf("mock reasoner: no scripted result for shape %q", shape)
	}
	next := queue[0]
	m.stubs[shape] = queue[1:]
	if next.err != nil {
		return nil, next.err
	}
	return next.result, nil
}

// Calls returns every invocation observed so far.
func (m *Mock) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns the number of calls observed for one shape.
func (m *Mock) CallCount(shape Shape) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c.Shape == shape {
			n++
		}
	}
	return n
}
