package worker

import (
	"fmt"
	"sync"

	"github.com/pable/go-pitch-stream/internal/element"
)

// Source delivers stream elements in arrival order. The channel is closed
// when no more elements will come.
type Source interface {
	Elements() <-chan *element.Element
}

// Sink accepts elements a worker emits.
type Sink interface {
	Emit(e *element.Element) error
}

// Bus is the in-process transport between workers: publishers hand elements
// in, each subscription receives the elements of the streams it asked for,
// in publish order. Sends block, so a slow consumer backpressures the
// publisher rather than reordering or dropping.
type Bus struct {
	mu     sync.Mutex
	subs   []*Subscription
	closed bool
}

func NewBus() *Bus {
	return &Bus{}
}

// Subscription is a Source fed by the bus.
type Subscription struct {
	name    string
	streams map[string]bool
	ch      chan *element.Element
}

func (s *Subscription) Elements() <-chan *element.Element { return s.ch }

// Subscribe registers interest in the named streams. An empty stream list
// subscribes to everything.
func (b *Bus) Subscribe(name string, buffer int, streams ...string) *Subscription {
	set := make(map[string]bool, len(streams))
	for _, s := range streams {
		set[s] = true
	}
	sub := &Subscription{name: name, streams: set, ch: make(chan *element.Element, buffer)}
	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()
	return sub
}

// Publish fans the element out to every matching subscription.
func (b *Bus) Publish(e *element.Element) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return fmt.Errorf("bus closed")
	}
	subs := b.subs
	b.mu.Unlock()
	for _, sub := range subs {
		if len(sub.streams) > 0 && !sub.streams[e.StreamName] {
			continue
		}
		sub.ch <- e
	}
	return nil
}

// Close closes all subscription channels. Publish after Close is an error.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, sub := range b.subs {
		close(sub.ch)
	}
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(e *element.Element) error

func (f SinkFunc) Emit(e *element.Element) error { return f(e) }

// BusSink publishes emitted elements back onto a bus.
func BusSink(b *Bus) Sink {
	return SinkFunc(b.Publish)
}

// MultiSink fans emitted elements out to several sinks; the first error wins.
func MultiSink(sinks ...Sink) Sink {
	return SinkFunc(func(e *element.Element) error {
		for _, s := range sinks {
			if err := s.Emit(e); err != nil {
				return err
			}
		}
		return nil
	})
}
