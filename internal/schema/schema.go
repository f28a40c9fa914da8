// Package schema implements the small extractor language used to derive
// state inner keys and store values from stream elements. Schemas are parsed
// once at startup; a parse failure is a configuration error and fatal.
package schema

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/pable/go-pitch-stream/internal/element"
	"github.com/pable/go-pitch-stream/internal/geometry"
)

type kind int

const (
	kindKey kind = iota
	kindStreamName
	kindStatic
	kindFieldValue
	kindArrayValue
	kindArraySize
	kindPositionValue
	kindPhase
	kindNo
)

// ErrNotApplicable is returned when the no-op schema is applied.
var ErrNotApplicable = errors.New("schema not applicable")

// Schema is a compiled extractor. Apply never panics; failures come back as
// wrapped errors carrying the stream name and field.
type Schema struct {
	kind      kind
	name      string
	index     int
	inPayload bool
	constant  string
	spec      string
}

// Process-wide singletons.
var (
	// No never applies; processors that key their state manually use it.
	No = &Schema{kind: kindNo, spec: "no"}
	// Static maps every element of a stream to the single inner key "all".
	Static = &Schema{kind: kindStatic, constant: "all", spec: `static{all}`}
)

// StaticValue builds a schema yielding a fixed string.
func StaticValue(v string) *Schema {
	return &Schema{kind: kindStatic, constant: v, spec: fmt.Sprintf("static{%s}", v)}
}

// Key is the match-identifier schema.
var Key = &Schema{kind: kindKey, spec: "key"}

// ObjectID yields the i-th object identifier of the element.
func ObjectID(i int) *Schema {
	return &Schema{kind: kindArrayValue, name: "objectIdentifiers", index: i, spec: fmt.Sprintf("arrayValue{objectIdentifiers,%d,false}", i)}
}

// GroupID yields the i-th group identifier of the element.
func GroupID(i int) *Schema {
	return &Schema{kind: kindArrayValue, name: "groupIdentifiers", index: i, spec: fmt.Sprintf("arrayValue{groupIdentifiers,%d,false}", i)}
}

// Field yields a named payload or header scalar.
func Field(name string, inPayload bool) *Schema {
	return &Schema{kind: kindFieldValue, name: name, inPayload: inPayload, spec: fmt.Sprintf("fieldValue{%s,%t}", name, inPayload)}
}

// Position yields the i-th position vector.
func Position(i int) *Schema {
	return &Schema{kind: kindPositionValue, index: i, spec: fmt.Sprintf("positionValue{%d}", i)}
}

// Parse compiles a textual schema specification.
//
//	key | streamName | phase | no
//	static{V}
//	fieldValue{name,inPayload}
//	arrayValue{name,i,inPayload}
//	arraySize{name,inPayload}
//	positionValue{i}
func Parse(spec string) (*Schema, error) {
	spec = strings.TrimSpace(spec)
	switch spec {
	case "key":
		return &Schema{kind: kindKey, spec: spec}, nil
	case "streamName":
		return &Schema{kind: kindStreamName, spec: spec}, nil
	case "phase":
		return &Schema{kind: kindPhase, spec: spec}, nil
	case "no":
		return No, nil
	}

	open := strings.IndexByte(spec, '{')
	if open < 0 || !strings.HasSuffix(spec, "}") {
		return nil, fmt.Errorf("schema %q: unknown form", spec)
	}
	form := spec[:open]
	args := strings.Split(spec[open+1:len(spec)-1], ",")
	for i := range args {
		args[i] = strings.TrimSpace(args[i])
	}

	switch form {
	case "static":
		if len(args) != 1 {
			return nil, fmt.Errorf("schema %q: static takes one argument", spec)
		}
		return &Schema{kind: kindStatic, constant: args[0], spec: spec}, nil
	case "fieldValue":
		if len(args) != 2 {
			return nil, fmt.Errorf("schema %q: fieldValue takes name,inPayload", spec)
		}
		inPayload, err := strconv.ParseBool(args[1])
		if err != nil {
			return nil, fmt.Errorf("schema %q: bad inPayload: %w", spec, err)
		}
		return &Schema{kind: kindFieldValue, name: args[0], inPayload: inPayload, spec: spec}, nil
	case "arrayValue":
		if len(args) != 3 {
			return nil, fmt.Errorf("schema %q: arrayValue takes name,i,inPayload", spec)
		}
		idx, err := strconv.Atoi(args[1])
		if err != nil {
			return nil, fmt.Errorf("schema %q: bad index: %w", spec, err)
		}
		inPayload, err := strconv.ParseBool(args[2])
		if err != nil {
			return nil, fmt.Errorf("schema %q: bad inPayload: %w", spec, err)
		}
		return &Schema{kind: kindArrayValue, name: args[0], index: idx, inPayload: inPayload, spec: spec}, nil
	case "arraySize":
		if len(args) != 2 {
			return nil, fmt.Errorf("schema %q: arraySize takes name,inPayload", spec)
		}
		inPayload, err := strconv.ParseBool(args[1])
		if err != nil {
			return nil, fmt.Errorf("schema %q: bad inPayload: %w", spec, err)
		}
		return &Schema{kind: kindArraySize, name: args[0], inPayload: inPayload, spec: spec}, nil
	case "positionValue":
		if len(args) != 1 {
			return nil, fmt.Errorf("schema %q: positionValue takes one index", spec)
		}
		idx, err := strconv.Atoi(args[0])
		if err != nil {
			return nil, fmt.Errorf("schema %q: bad index: %w", spec, err)
		}
		return &Schema{kind: kindPositionValue, index: idx, spec: spec}, nil
	default:
		return nil, fmt.Errorf("schema %q: unknown form %q", spec, form)
	}
}

// MustParse is Parse for statically known specifications.
func MustParse(spec string) *Schema {
	s, err := Parse(spec)
	if err != nil {
		panic(err)
	}
	return s
}

// String returns the textual specification the schema was built from.
func (s *Schema) String() string { return s.spec }

// Apply extracts the schema's value from the element.
func (s *Schema) Apply(e *element.Element) (any, error) {
	switch s.kind {
	case kindKey:
		return e.Key, nil
	case kindStreamName:
		return e.StreamName, nil
	case kindStatic:
		return s.constant, nil
	case kindFieldValue:
		return e.FieldValue(s.name, s.inPayload)
	case kindArrayValue:
		arr, err := e.ArrayValues(s.name, s.inPayload)
		if err != nil {
			return nil, err
		}
		if s.index < 0 || s.index >= len(arr) {
			return nil, fmt.Errorf("%s[%d] on %s: %w", s.name, s.index, e.StreamName, element.ErrNoSuchField)
		}
		return arr[s.index], nil
	case kindArraySize:
		arr, err := e.ArrayValues(s.name, s.inPayload)
		if err != nil {
			return nil, err
		}
		return int64(len(arr)), nil
	case kindPositionValue:
		return e.Position(s.index)
	case kindPhase:
		return e.FieldValue("phase", false)
	case kindNo:
		return nil, fmt.Errorf("%w: %s", ErrNotApplicable, s.spec)
	default:
		return nil, fmt.Errorf("schema %q: corrupt kind", s.spec)
	}
}

// ApplyKey applies the schema and stringifies the result for use as a state
// inner key.
func (s *Schema) ApplyKey(e *element.Element) (string, error) {
	v, err := s.Apply(e)
	if err != nil {
		return "", err
	}
	switch k := v.(type) {
	case string:
		return k, nil
	case int64:
		return strconv.FormatInt(k, 10), nil
	case float64:
		return strconv.FormatFloat(k, 'g', -1, 64), nil
	case bool:
		return strconv.FormatBool(k), nil
	case geometry.Vec3:
		return "", fmt.Errorf("schema %q: vector cannot be an inner key", s.spec)
	default:
		return fmt.Sprintf("%v", k), nil
	}
}
