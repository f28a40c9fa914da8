package state

import (
	"fmt"

	"github.com/pable/go-pitch-stream/internal/element"
	"github.com/pable/go-pitch-stream/internal/geometry"
	"github.com/pable/go-pitch-stream/internal/schema"
)

// Number constrains the value types that support monotonic increase.
type Number interface {
	~int64 | ~float64
}

// SingleValueStore maps (matchID, innerKey) to a single value of type T.
// Reads of unset entries yield the zero value, so statistics emitters never
// special-case "uninitialized".
type SingleValueStore[T any] struct {
	backend Backend
	name    string
	inner   *schema.Schema
}

// NewSingleValue creates a store. inner derives the inner key from the
// current element; pass schema.No for stores that are always keyed manually.
func NewSingleValue[T any](b Backend, name string, inner *schema.Schema) *SingleValueStore[T] {
	return &SingleValueStore[T]{backend: b, name: name, inner: inner}
}

func (s *SingleValueStore[T]) Name() string { return s.name }

func (s *SingleValueStore[T]) innerOf(e *element.Element) (string, error) {
	k, err := s.inner.ApplyKey(e)
	if err != nil {
		return "", fmt.Errorf("store %s inner key: %w", s.name, err)
	}
	return k, nil
}

// Get reads the value for the element's inner key, zero-valued when unset.
func (s *SingleValueStore[T]) Get(e *element.Element) (T, error) {
	var zero T
	inner, err := s.innerOf(e)
	if err != nil {
		return zero, err
	}
	return s.GetKey(e.Key, inner), nil
}

// GetKey reads the value for an explicit inner key, zero-valued when unset.
func (s *SingleValueStore[T]) GetKey(match, inner string) T {
	v, ok := s.TryGetKey(match, inner)
	if !ok {
		var zero T
		return zero
	}
	return v
}

// TryGetKey reads the value and reports whether it was ever set with the
// expected type.
func (s *SingleValueStore[T]) TryGetKey(match, inner string) (T, bool) {
	var zero T
	raw, ok := s.backend.Get(s.name, match, inner)
	if !ok {
		return zero, false
	}
	v, ok := raw.(T)
	if !ok {
		return zero, false
	}
	return v, true
}

// Put writes the value under the element's inner key.
func (s *SingleValueStore[T]) Put(e *element.Element, v T) error {
	inner, err := s.innerOf(e)
	if err != nil {
		return err
	}
	s.PutKey(e.Key, inner, v)
	return nil
}

// PutKey writes the value under an explicit inner key.
func (s *SingleValueStore[T]) PutKey(match, inner string, v T) {
	s.backend.Put(s.name, match, inner, v)
}

// Increase atomically adds delta under the per-match single-thread discipline
// and returns the new value. Unset entries start from zero.
func Increase[T Number](s *SingleValueStore[T], match, inner string, delta T) T {
	v := s.GetKey(match, inner) + delta
	s.PutKey(match, inner, v)
	return v
}

// HistoryStore maps (matchID, innerKey) to a bounded list of the most recent
// values, newest first. Capacity is fixed at construction.
type HistoryStore[T any] struct {
	backend  Backend
	name     string
	inner    *schema.Schema
	capacity int
}

func NewHistory[T any](b Backend, name string, inner *schema.Schema, capacity int) *HistoryStore[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &HistoryStore[T]{backend: b, name: name, inner: inner, capacity: capacity}
}

func (h *HistoryStore[T]) Name() string  { return h.name }
func (h *HistoryStore[T]) Capacity() int { return h.capacity }

func (h *HistoryStore[T]) innerOf(e *element.Element) (string, error) {
	k, err := h.inner.ApplyKey(e)
	if err != nil {
		return "", fmt.Errorf("store %s inner key: %w", h.name, err)
	}
	return k, nil
}

// Add prepends a value under the element's inner key, dropping the oldest
// beyond capacity.
func (h *HistoryStore[T]) Add(e *element.Element, v T) error {
	inner, err := h.innerOf(e)
	if err != nil {
		return err
	}
	h.AddKey(e.Key, inner, v)
	return nil
}

// AddKey prepends a value under an explicit inner key.
func (h *HistoryStore[T]) AddKey(match, inner string, v T) {
	cur := h.ListKey(match, inner)
	next := make([]T, 0, min(len(cur)+1, h.capacity))
	next = append(next, v)
	for _, old := range cur {
		if len(next) == h.capacity {
			break
		}
		next = append(next, old)
	}
	h.backend.Put(h.name, match, inner, next)
}

// List returns the stored values newest-first for the element's inner key.
func (h *HistoryStore[T]) List(e *element.Element) ([]T, error) {
	inner, err := h.innerOf(e)
	if err != nil {
		return nil, err
	}
	return h.ListKey(e.Key, inner), nil
}

// ListKey returns the stored values newest-first. The returned slice is the
// caller's to keep.
func (h *HistoryStore[T]) ListKey(match, inner string) []T {
	raw, ok := h.backend.Get(h.name, match, inner)
	if !ok {
		return nil
	}
	list, ok := raw.([]T)
	if !ok {
		return nil
	}
	out := make([]T, len(list))
	copy(out, list)
	return out
}

// Latest returns the newest value for the element's inner key.
func (h *HistoryStore[T]) Latest(e *element.Element) (T, bool, error) {
	inner, err := h.innerOf(e)
	if err != nil {
		var zero T
		return zero, false, err
	}
	v, ok := h.LatestKey(e.Key, inner)
	return v, ok, nil
}

// LatestKey returns the newest value for an explicit inner key.
func (h *HistoryStore[T]) LatestKey(match, inner string) (T, bool) {
	list := h.ListKey(match, inner)
	if len(list) == 0 {
		var zero T
		return zero, false
	}
	return list[0], true
}

// ---- Store-module glue ----

// ElementWriter is one configured write of a StoreModule: apply a value
// schema to the element, write the result into a store.
type ElementWriter interface {
	WriteElement(e *element.Element) error
	Target() string
}

// SingleWrite writes a schema-extracted value into a SingleValueStore.
type SingleWrite[T any] struct {
	Value *schema.Schema
	Store *SingleValueStore[T]
}

func (w SingleWrite[T]) Target() string { return w.Store.Name() }

func (w SingleWrite[T]) WriteElement(e *element.Element) error {
	v, err := w.Value.Apply(e)
	if err != nil {
		return err
	}
	t, err := convertTo[T](v, e.StreamName)
	if err != nil {
		return fmt.Errorf("store %s: %w", w.Store.Name(), err)
	}
	return w.Store.Put(e, t)
}

// HistoryWrite prepends a schema-extracted value into a HistoryStore.
type HistoryWrite[T any] struct {
	Value *schema.Schema
	Store *HistoryStore[T]
}

func (w HistoryWrite[T]) Target() string { return w.Store.Name() }

func (w HistoryWrite[T]) WriteElement(e *element.Element) error {
	v, err := w.Value.Apply(e)
	if err != nil {
		return err
	}
	t, err := convertTo[T](v, e.StreamName)
	if err != nil {
		return fmt.Errorf("store %s: %w", w.Store.Name(), err)
	}
	return w.Store.Add(e, t)
}

// convertTo coerces a schema-extracted value to the store's value type.
func convertTo[T any](v any, stream string) (T, error) {
	if t, ok := v.(T); ok {
		return t, nil
	}
	var zero T
	var out any
	var err error
	switch any(zero).(type) {
	case float64:
		out, err = element.CoerceDouble(v, stream, "value")
	case int64:
		out, err = element.CoerceLong(v, stream, "value")
	case geometry.Vec3:
		out, err = element.CoerceVec(v, stream, "value")
	default:
		return zero, fmt.Errorf("cannot convert %T: %w", v, element.ErrWrongType)
	}
	if err != nil {
		return zero, err
	}
	return out.(T), nil
}
