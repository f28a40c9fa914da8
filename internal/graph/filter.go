package graph

import (
	"fmt"

	"github.com/pable/go-pitch-stream/internal/element"
	"github.com/pable/go-pitch-stream/internal/schema"
)

// Combinator joins the predicate results of a Filter.
type Combinator int

const (
	And Combinator = iota
	Or
)

type predicateOp int

const (
	opEQ predicateOp = iota
	opNEQ
	opIN
)

// Predicate compares a schema-extracted value against configured constants.
type Predicate struct {
	op     predicateOp
	schema *schema.Schema
	value  any
	set    []any
}

// EQ holds when the schema value equals v.
func EQ(s *schema.Schema, v any) Predicate { return Predicate{op: opEQ, schema: s, value: v} }

// NEQ holds when the schema value differs from v.
func NEQ(s *schema.Schema, v any) Predicate { return Predicate{op: opNEQ, schema: s, value: v} }

// IN holds when the schema value is one of vs.
func IN(s *schema.Schema, vs ...any) Predicate { return Predicate{op: opIN, schema: s, set: vs} }

func (p Predicate) eval(e *element.Element) (bool, error) {
	v, err := p.schema.Apply(e)
	if err != nil {
		return false, err
	}
	switch p.op {
	case opEQ:
		return valuesEqual(v, p.value), nil
	case opNEQ:
		return !valuesEqual(v, p.value), nil
	case opIN:
		for _, c := range p.set {
			if valuesEqual(v, c) {
				return true, nil
			}
		}
		return false, nil
	default:
		return false, fmt.Errorf("corrupt predicate op %d", p.op)
	}
}

// valuesEqual compares schema results against configured constants, treating
// all numeric kinds as one domain (the JSON codec erases integer-ness).
func valuesEqual(a, b any) bool {
	if af, aok := asFloat(a); aok {
		bf, bok := asFloat(b)
		return bok && af == bf
	}
	return a == b
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

// Filter re-emits the element unchanged iff the combination of its predicates
// holds. A schema-apply failure drops the element with a typed error.
type Filter struct {
	name  string
	comb  Combinator
	preds []Predicate
}

func NewFilter(name string, comb Combinator, preds ...Predicate) *Filter {
	return &Filter{name: name, comb: comb, preds: preds}
}

func (f *Filter) Name() string { return f.name }

func (f *Filter) Process(e *element.Element) ([]*element.Element, error) {
	pass := f.comb == And
	for _, p := range f.preds {
		ok, err := p.eval(e)
		if err != nil {
			return nil, err
		}
		if f.comb == And {
			pass = pass && ok
			if !pass {
				return nil, nil
			}
		} else {
			pass = pass || ok
			if pass {
				break
			}
		}
	}
	if !pass {
		return nil, nil
	}
	return []*element.Element{e}, nil
}
