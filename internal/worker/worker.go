// Package worker runs processor graphs over keyed element streams. Each
// worker owns one graph; elements are partitioned by match id onto
// dedicated goroutines so all state of a match is touched by exactly one
// goroutine at a time.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pable/go-pitch-stream/internal/element"
	"github.com/pable/go-pitch-stream/internal/graph"
	"github.com/pable/go-pitch-stream/internal/metrics"
)

// Options configure a worker.
type Options struct {
	// Tick enables the window graph, driven at this period. Zero disables it.
	Tick time.Duration
	// Buffer is the per-match channel capacity.
	Buffer int
	// Restore is called once per match before its first element is
	// processed, to rebuild state from the durable mirror.
	Restore func(match string) error
}

// Worker consumes a Source, runs each element through its graph and emits
// the outputs to a Sink.
type Worker struct {
	name   string
	graph  *graph.Graph
	window *graph.WindowGraph
	sink   Sink
	log    *slog.Logger
	opts   Options
}

func New(name string, g *graph.Graph, w *graph.WindowGraph, sink Sink, log *slog.Logger, opts Options) *Worker {
	if opts.Buffer <= 0 {
		opts.Buffer = 256
	}
	return &Worker{name: name, graph: g, window: w, sink: sink, log: log.With("worker", name), opts: opts}
}

func (w *Worker) Name() string { return w.name }

// Run consumes the source until it closes or the context is cancelled. All
// per-match goroutines are drained before Run returns.
func (w *Worker) Run(ctx context.Context, src Source) error {
	chans := make(map[string]chan *element.Element)
	var wg sync.WaitGroup

	dispatch := func(e *element.Element) {
		ch, ok := chans[e.Key]
		if !ok {
			ch = make(chan *element.Element, w.opts.Buffer)
			chans[e.Key] = ch
			wg.Add(1)
			metrics.ActiveMatches.WithLabelValues(w.name).Inc()
			go w.runMatch(e.Key, ch, &wg)
		}
		ch <- e
	}

	in := src.Elements()
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case e, ok := <-in:
			if !ok {
				break loop
			}
			metrics.ElementsProcessed.WithLabelValues(w.name).Inc()
			dispatch(e)
		}
	}
	for _, ch := range chans {
		close(ch)
	}
	wg.Wait()
	return ctx.Err()
}

// runMatch is the single goroutine touching the state of one match.
func (w *Worker) runMatch(match string, in <-chan *element.Element, wg *sync.WaitGroup) {
	defer wg.Done()
	defer metrics.ActiveMatches.WithLabelValues(w.name).Dec()
	log := w.log.With("match", match)

	if w.opts.Restore != nil {
		if err := w.opts.Restore(match); err != nil {
			log.Error("state restore failed", "err", err)
		}
	}

	emit := func(out *element.Element) {
		metrics.ElementsEmitted.WithLabelValues(w.name, out.StreamName).Inc()
		if err := w.sink.Emit(out); err != nil {
			log.Error("emit failed", "stream", out.StreamName, "err", err)
		}
	}

	var tickC <-chan time.Time
	if w.window != nil && w.opts.Tick > 0 {
		t := time.NewTicker(w.opts.Tick)
		defer t.Stop()
		tickC = t.C
	}

	for {
		select {
		case e, ok := <-in:
			if !ok {
				return
			}
			w.report(log, w.graph.Process(e, emit))
		case now := <-tickC:
			w.report(log, w.window.Tick(match, now.UnixMilli(), emit))
		}
	}
}

// report logs element-level failures; the element is dropped, the worker
// keeps going.
func (w *Worker) report(log *slog.Logger, errs []error) {
	for _, err := range errs {
		metrics.ElementErrors.WithLabelValues(w.name).Inc()
		log.Warn("element dropped", "err", err)
	}
}
