// Package graph implements the processor-graph model: atomic processors
// (filters, store modules, detectors) chained into a rooted DAG traversed
// depth-first per input element, plus the window variant driven by the
// worker's wall-clock tick.
package graph

import (
	"fmt"

	"github.com/pable/go-pitch-stream/internal/element"
)

// Processor consumes one element and produces zero or more output elements.
// Implementations must not block on I/O; all state access goes through the
// keyed stores.
type Processor interface {
	Name() string
	Process(e *element.Element) ([]*element.Element, error)
}

// WindowProcessor is a graph root invoked on the worker's periodic tick, with
// no input element. Its outputs traverse the child subgraph like any other.
type WindowProcessor interface {
	Name() string
	Window(match string, ts int64) ([]*element.Element, error)
}

// ElementError wraps a processing failure with the element it occurred on, so
// the worker can log stream, key, and reason in one line.
type ElementError struct {
	Node    string
	Stream  string
	Key     string
	Wrapped error
}

func (e *ElementError) Error() string {
	return fmt.Sprintf("processor %s on %s[%s]: %v", e.Node, e.Stream, e.Key, e.Wrapped)
}

func (e *ElementError) Unwrap() error { return e.Wrapped }
