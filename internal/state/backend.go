// Package state holds the keyed per-match state substrate: a kv backend
// addressed by (storeName, matchID, innerKey) plus the typed single-value and
// history store wrappers the detectors use.
package state

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/pable/go-pitch-stream/internal/geometry"
)

// Backend is the raw keyed kv store. State for distinct matches is disjoint;
// within one match all access is single-threaded (worker ownership), so
// implementations only need to synchronize the per-match map creation.
type Backend interface {
	Get(store, match, inner string) (any, bool)
	Put(store, match, inner string, v any)
	// DropMatch releases all state of one match.
	DropMatch(match string)
}

// Memory is the in-process backend.
type Memory struct {
	mu      sync.RWMutex
	matches map[string]map[string]any
}

func NewMemory() *Memory {
	return &Memory{matches: make(map[string]map[string]any)}
}

func compositeKey(store, inner string) string {
	return store + "\x1f" + inner
}

func (m *Memory) Get(store, match, inner string) (any, bool) {
	m.mu.RLock()
	kv := m.matches[match]
	m.mu.RUnlock()
	if kv == nil {
		return nil, false
	}
	v, ok := kv[compositeKey(store, inner)]
	return v, ok
}

func (m *Memory) Put(store, match, inner string, v any) {
	m.mu.RLock()
	kv := m.matches[match]
	m.mu.RUnlock()
	if kv == nil {
		m.mu.Lock()
		kv = m.matches[match]
		if kv == nil {
			kv = make(map[string]any)
			m.matches[match] = kv
		}
		m.mu.Unlock()
	}
	kv[compositeKey(store, inner)] = v
}

func (m *Memory) DropMatch(match string) {
	m.mu.Lock()
	delete(m.matches, match)
	m.mu.Unlock()
}

// Mirror is a durable change log of the backend. Implementations must replay
// a match's state before its first element is processed after a restart.
type Mirror interface {
	Record(store, match, inner string, encoded []byte) error
	// Restore calls fn for every recorded entry of the match.
	Restore(match string, fn func(store, inner string, encoded []byte) error) error
	Close() error
}

// Mirrored is a write-through backend: every Put is recorded in the mirror.
type Mirrored struct {
	Backend
	mirror Mirror
	onErr  func(error)
}

// NewMirrored wraps the backend. onErr receives mirror write failures; the
// in-memory write always succeeds regardless.
func NewMirrored(b Backend, m Mirror, onErr func(error)) *Mirrored {
	if onErr == nil {
		onErr = func(error) {}
	}
	return &Mirrored{Backend: b, mirror: m, onErr: onErr}
}

func (w *Mirrored) Put(store, match, inner string, v any) {
	w.Backend.Put(store, match, inner, v)
	enc, err := EncodeValue(v)
	if err != nil {
		w.onErr(fmt.Errorf("mirror %s/%s/%s: %w", store, match, inner, err))
		return
	}
	if err := w.mirror.Record(store, match, inner, enc); err != nil {
		w.onErr(fmt.Errorf("mirror %s/%s/%s: %w", store, match, inner, err))
	}
}

// RestoreMatch replays the mirror into the in-memory backend.
func (w *Mirrored) RestoreMatch(match string) error {
	return w.mirror.Restore(match, func(store, inner string, enc []byte) error {
		v, err := DecodeValue(enc)
		if err != nil {
			return fmt.Errorf("restore %s/%s/%s: %w", store, match, inner, err)
		}
		w.Backend.Put(store, match, inner, v)
		return nil
	})
}

// ---- Value envelope ----
//
// Stored values are drawn from a closed set of kinds so that the mirror can
// round-trip them without per-store registration.

type envelope struct {
	T string          `json:"t"`
	V json.RawMessage `json:"v"`
}

// EncodeValue serializes a store value for the mirror.
func EncodeValue(v any) ([]byte, error) {
	var tag string
	switch v.(type) {
	case bool:
		tag = "bool"
	case int64:
		tag = "long"
	case float64:
		tag = "double"
	case string:
		tag = "string"
	case geometry.Vec3:
		tag = "vec"
	case []bool:
		tag = "bools"
	case []int64:
		tag = "longs"
	case []float64:
		tag = "doubles"
	case []string:
		tag = "strings"
	case []geometry.Vec3:
		tag = "vecs"
	case map[string]int64:
		tag = "counts"
	case []map[string]int64:
		tag = "countsList"
	default:
		return nil, fmt.Errorf("unsupported store value type %T", v)
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{T: tag, V: raw})
}

// DecodeValue restores a mirrored value to its in-memory type.
func DecodeValue(b []byte) (any, error) {
	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, err
	}
	switch env.T {
	case "bool":
		var v bool
		return v, json.Unmarshal(env.V, &v)
	case "long":
		var v int64
		return v, json.Unmarshal(env.V, &v)
	case "double":
		var v float64
		return v, json.Unmarshal(env.V, &v)
	case "string":
		var v string
		return v, json.Unmarshal(env.V, &v)
	case "vec":
		var v geometry.Vec3
		return v, json.Unmarshal(env.V, &v)
	case "bools":
		var v []bool
		return v, json.Unmarshal(env.V, &v)
	case "longs":
		var v []int64
		return v, json.Unmarshal(env.V, &v)
	case "doubles":
		var v []float64
		return v, json.Unmarshal(env.V, &v)
	case "strings":
		var v []string
		return v, json.Unmarshal(env.V, &v)
	case "vecs":
		var v []geometry.Vec3
		return v, json.Unmarshal(env.V, &v)
	case "counts":
		var v map[string]int64
		return v, json.Unmarshal(env.V, &v)
	case "countsList":
		var v []map[string]int64
		return v, json.Unmarshal(env.V, &v)
	default:
		return nil, fmt.Errorf("unknown value tag %q", env.T)
	}
}
