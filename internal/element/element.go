package element

import (
	"errors"
	"fmt"

	"github.com/pable/go-pitch-stream/internal/geometry"
)

// Category classifies a stream by the kind of elements it carries.
type Category string

const (
	CategoryRaw        Category = "raw"
	CategoryState      Category = "state"
	CategoryEvent      Category = "event"
	CategoryStatistics Category = "statistics"
	CategoryInternal   Category = "internal"
)

// Phase is the lifecycle phase of a non-atomic event episode.
type Phase string

const (
	PhaseStart  Phase = "START"
	PhaseActive Phase = "ACTIVE"
	PhaseEnd    Phase = "END"
)

var (
	ErrNoSuchField = errors.New("no such field")
	ErrWrongType   = errors.New("unexpected field type")
	ErrAtomic      = errors.New("atomic element has no phase")
)

// Payload holds the stream-specific named values of an element. Values are
// one of: bool, int64, float64, string, geometry.Vec3, or a slice of those.
// Payloads are built by the typed factory functions in this package; treat
// them as read-only once the element is constructed.
type Payload map[string]any

// Element is a single immutable record on a named stream. All elements of a
// stream share the same payload schema; the stream name determines it.
type Element struct {
	StreamName string
	Category   Category
	Key        string // match identifier
	Timestamp  int64  // generation timestamp, ms

	ObjectIDs []string
	GroupIDs  []string
	Positions []geometry.Vec3

	Atomic  bool
	Phase   Phase  // only meaningful when !Atomic
	EventID string // episode inner key, only when !Atomic
	Counter int64  // episode counter, only when !Atomic

	Payload Payload
}

// ObjectID returns the i-th object identifier.
func (e *Element) ObjectID(i int) (string, error) {
	if i < 0 || i >= len(e.ObjectIDs) {
		return "", fmt.Errorf("objectIdentifiers[%d] on %s: %w", i, e.StreamName, ErrNoSuchField)
	}
	return e.ObjectIDs[i], nil
}

// GroupID returns the i-th group identifier.
func (e *Element) GroupID(i int) (string, error) {
	if i < 0 || i >= len(e.GroupIDs) {
		return "", fmt.Errorf("groupIdentifiers[%d] on %s: %w", i, e.StreamName, ErrNoSuchField)
	}
	return e.GroupIDs[i], nil
}

// Position returns the i-th position vector.
func (e *Element) Position(i int) (geometry.Vec3, error) {
	if i < 0 || i >= len(e.Positions) {
		return geometry.Vec3{}, fmt.Errorf("positions[%d] on %s: %w", i, e.StreamName, ErrNoSuchField)
	}
	return e.Positions[i], nil
}

// FieldValue resolves a named header or payload value.
func (e *Element) FieldValue(name string, inPayload bool) (any, error) {
	if inPayload {
		v, ok := e.Payload[name]
		if !ok {
			return nil, fmt.Errorf("payload field %q on %s: %w", name, e.StreamName, ErrNoSuchField)
		}
		return v, nil
	}
	switch name {
	case "streamName":
		return e.StreamName, nil
	case "streamCategory":
		return string(e.Category), nil
	case "key":
		return e.Key, nil
	case "generationTimestamp":
		return e.Timestamp, nil
	case "atomic":
		return e.Atomic, nil
	case "phase":
		if e.Atomic {
			return nil, fmt.Errorf("phase on %s: %w", e.StreamName, ErrAtomic)
		}
		return string(e.Phase), nil
	case "eventIdentifier":
		return e.EventID, nil
	case "eventIdentifierCounter":
		return e.Counter, nil
	default:
		return nil, fmt.Errorf("header field %q on %s: %w", name, e.StreamName, ErrNoSuchField)
	}
}

// ArrayValues resolves a named array, header or payload.
func (e *Element) ArrayValues(name string, inPayload bool) ([]any, error) {
	if !inPayload {
		switch name {
		case "objectIdentifiers":
			return toAnySlice(e.ObjectIDs), nil
		case "groupIdentifiers":
			return toAnySlice(e.GroupIDs), nil
		case "positions":
			return toAnySlice(e.Positions), nil
		default:
			return nil, fmt.Errorf("header array %q on %s: %w", name, e.StreamName, ErrNoSuchField)
		}
	}
	v, ok := e.Payload[name]
	if !ok {
		return nil, fmt.Errorf("payload array %q on %s: %w", name, e.StreamName, ErrNoSuchField)
	}
	switch a := v.(type) {
	case []any:
		return a, nil
	case []string:
		return toAnySlice(a), nil
	case []int64:
		return toAnySlice(a), nil
	case []float64:
		return toAnySlice(a), nil
	case []geometry.Vec3:
		return toAnySlice(a), nil
	default:
		return nil, fmt.Errorf("payload field %q on %s is not an array: %w", name, e.StreamName, ErrWrongType)
	}
}

func toAnySlice[T any](s []T) []any {
	out := make([]any, len(s))
	for i, v := range s {
		out[i] = v
	}
	return out
}

// ---- Typed payload accessors ----
//
// Values may arrive via the JSON codec, where all numbers decode as float64;
// the accessors coerce between the numeric kinds.

// Double returns a payload value as float64.
func (e *Element) Double(name string) (float64, error) {
	v, err := e.FieldValue(name, true)
	if err != nil {
		return 0, err
	}
	return CoerceDouble(v, e.StreamName, name)
}

// Long returns a payload value as int64.
func (e *Element) Long(name string) (int64, error) {
	v, err := e.FieldValue(name, true)
	if err != nil {
		return 0, err
	}
	return CoerceLong(v, e.StreamName, name)
}

// Bool returns a payload value as bool.
func (e *Element) Bool(name string) (bool, error) {
	v, err := e.FieldValue(name, true)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("payload field %q on %s: %w", name, e.StreamName, ErrWrongType)
	}
	return b, nil
}

// String returns a payload value as string.
func (e *Element) String(name string) (string, error) {
	v, err := e.FieldValue(name, true)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("payload field %q on %s: %w", name, e.StreamName, ErrWrongType)
	}
	return s, nil
}

// Vec returns a payload value as a vector.
func (e *Element) Vec(name string) (geometry.Vec3, error) {
	v, err := e.FieldValue(name, true)
	if err != nil {
		return geometry.Vec3{}, err
	}
	return CoerceVec(v, e.StreamName, name)
}

// CoerceDouble converts a payload value to float64.
func CoerceDouble(v any, stream, name string) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int64:
		return float64(n), nil
	case int:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("payload field %q on %s: %w", name, stream, ErrWrongType)
	}
}

// CoerceLong converts a payload value to int64. Float values produced by the
// JSON codec are truncated.
func CoerceLong(v any, stream, name string) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case float64:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("payload field %q on %s: %w", name, stream, ErrWrongType)
	}
}

// CoerceVec converts a payload value to a vector. The JSON codec decodes
// vectors as map[string]any.
func CoerceVec(v any, stream, name string) (geometry.Vec3, error) {
	switch p := v.(type) {
	case geometry.Vec3:
		return p, nil
	case map[string]any:
		x, xok := p["x"].(float64)
		y, yok := p["y"].(float64)
		z, zok := p["z"].(float64)
		if !xok || !yok || !zok {
			return geometry.Vec3{}, fmt.Errorf("payload field %q on %s: %w", name, stream, ErrWrongType)
		}
		return geometry.Vec3{X: x, Y: y, Z: z}, nil
	default:
		return geometry.Vec3{}, fmt.Errorf("payload field %q on %s: %w", name, stream, ErrWrongType)
	}
}
