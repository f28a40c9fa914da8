package graph

import (
	"strings"

	"github.com/pable/go-pitch-stream/internal/element"
)

// Node is one processor in the DAG with its ordered children.
type Node struct {
	proc     Processor
	children []*Node
}

func NewNode(p Processor, children ...*Node) *Node {
	return &Node{proc: p, children: children}
}

// Graph is a rooted DAG of processors, one root per input-stream filter.
// Process traverses depth-first: each output of a node is handed to each
// child in order; outputs of leaves are emitted.
type Graph struct {
	name  string
	roots []*Node
}

func New(name string, roots ...*Node) *Graph {
	return &Graph{name: name, roots: roots}
}

func (g *Graph) Name() string { return g.name }

// Process feeds the element to every root. Emitted elements reach emit in
// depth-first order. Processor failures are collected as ElementErrors; the
// traversal continues with the remaining branches.
func (g *Graph) Process(e *element.Element, emit func(*element.Element)) []error {
	var errs []error
	for _, root := range g.roots {
		traverse(root, e, emit, &errs)
	}
	return errs
}

func traverse(n *Node, e *element.Element, emit func(*element.Element), errs *[]error) {
	outs, err := n.proc.Process(e)
	if err != nil {
		*errs = append(*errs, &ElementError{Node: n.proc.Name(), Stream: e.StreamName, Key: e.Key, Wrapped: err})
		return
	}
	for _, out := range outs {
		if len(n.children) == 0 {
			emit(out)
			continue
		}
		for _, child := range n.children {
			traverse(child, out, emit, errs)
		}
	}
}

// String renders the DAG as an ASCII tree, a debug aid over the typed graph.
func (g *Graph) String() string {
	var b strings.Builder
	b.WriteString(g.name)
	b.WriteByte('\n')
	for _, root := range g.roots {
		renderNode(&b, root, 1)
	}
	return b.String()
}

func renderNode(b *strings.Builder, n *Node, depth int) {
	b.WriteString(strings.Repeat("  ", depth))
	b.WriteString("└─ ")
	b.WriteString(n.proc.Name())
	b.WriteByte('\n')
	for _, c := range n.children {
		renderNode(b, c, depth+1)
	}
}

// WindowRoot pairs a window processor with the subgraph its outputs traverse.
type WindowRoot struct {
	proc     WindowProcessor
	children []*Node
}

func NewWindowRoot(p WindowProcessor, children ...*Node) *WindowRoot {
	return &WindowRoot{proc: p, children: children}
}

// WindowGraph is the tick-driven variant: roots produce elements with no
// input, then the same depth-first traversal applies.
type WindowGraph struct {
	name  string
	roots []*WindowRoot
}

func NewWindow(name string, roots ...*WindowRoot) *WindowGraph {
	return &WindowGraph{name: name, roots: roots}
}

func (g *WindowGraph) Name() string { return g.name }

// Tick invokes every window root for the given match.
func (g *WindowGraph) Tick(match string, ts int64, emit func(*element.Element)) []error {
	var errs []error
	for _, root := range g.roots {
		outs, err := root.proc.Window(match, ts)
		if err != nil {
			errs = append(errs, &ElementError{Node: root.proc.Name(), Stream: element.StreamInternalActiveKeys, Key: match, Wrapped: err})
			continue
		}
		for _, out := range outs {
			if len(root.children) == 0 {
				emit(out)
				continue
			}
			for _, child := range root.children {
				traverse(child, out, emit, &errs)
			}
		}
	}
	return errs
}

// String renders the window DAG.
func (g *WindowGraph) String() string {
	var b strings.Builder
	b.WriteString(g.name)
	b.WriteString(" (window)\n")
	for _, root := range g.roots {
		b.WriteString("  └─ ")
		b.WriteString(root.proc.Name())
		b.WriteByte('\n')
		for _, c := range root.children {
			renderNode(&b, c, 2)
		}
	}
	return b.String()
}
