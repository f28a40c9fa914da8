package graph

import (
	"github.com/pable/go-pitch-stream/internal/element"
	"github.com/pable/go-pitch-stream/internal/state"
)

// Store performs the configured state writes for each element. With forward
// set it re-emits the element unchanged, which is how store modules sit as
// pass-throughs between filters and detectors.
type Store struct {
	name    string
	writes  []state.ElementWriter
	forward bool
}

func NewStore(name string, forward bool, writes ...state.ElementWriter) *Store {
	return &Store{name: name, writes: writes, forward: forward}
}

func (s *Store) Name() string { return s.name }

func (s *Store) Process(e *element.Element) ([]*element.Element, error) {
	for _, w := range s.writes {
		if err := w.WriteElement(e); err != nil {
			return nil, err
		}
	}
	if !s.forward {
		return nil, nil
	}
	return []*element.Element{e}, nil
}
