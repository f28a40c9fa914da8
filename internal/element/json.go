package element

import (
	"encoding/json"
	"fmt"

	"github.com/pable/go-pitch-stream/internal/geometry"
)

// wireElement is the canonical JSON encoding used on the transport.
type wireElement struct {
	StreamName string          `json:"streamName"`
	Category   string          `json:"streamCategory"`
	Key        string          `json:"key"`
	Timestamp  int64           `json:"generationTimestamp"`
	ObjectIDs  []string        `json:"objectIdentifiers,omitempty"`
	GroupIDs   []string        `json:"groupIdentifiers,omitempty"`
	Positions  []geometry.Vec3 `json:"positions,omitempty"`
	Atomic     bool            `json:"atomic"`
	Phase      string          `json:"phase,omitempty"`
	EventID    string          `json:"eventIdentifier,omitempty"`
	Counter    int64           `json:"eventIdentifierCounter,omitempty"`
	Payload    map[string]any  `json:"payload,omitempty"`
}

// Marshal encodes an element for the transport.
func Marshal(e *Element) ([]byte, error) {
	w := wireElement{
		StreamName: e.StreamName,
		Category:   string(e.Category),
		Key:        e.Key,
		Timestamp:  e.Timestamp,
		ObjectIDs:  e.ObjectIDs,
		GroupIDs:   e.GroupIDs,
		Positions:  e.Positions,
		Atomic:     e.Atomic,
		Phase:      string(e.Phase),
		EventID:    e.EventID,
		Counter:    e.Counter,
		Payload:    e.Payload,
	}
	b, err := json.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("marshal %s element: %w", e.StreamName, err)
	}
	return b, nil
}

// Unmarshal decodes a transport element. Numbers inside the payload decode as
// float64; the typed accessors on Element coerce them back.
func Unmarshal(b []byte) (*Element, error) {
	var w wireElement
	if err := json.Unmarshal(b, &w); err != nil {
		return nil, fmt.Errorf("unmarshal element: %w", err)
	}
	if w.StreamName == "" {
		return nil, fmt.Errorf("unmarshal element: missing streamName")
	}
	if w.Key == "" {
		return nil, fmt.Errorf("unmarshal element: missing key")
	}
	e := &Element{
		StreamName: w.StreamName,
		Category:   Category(w.Category),
		Key:        w.Key,
		Timestamp:  w.Timestamp,
		ObjectIDs:  w.ObjectIDs,
		GroupIDs:   w.GroupIDs,
		Positions:  w.Positions,
		Atomic:     w.Atomic,
		Phase:      Phase(w.Phase),
		EventID:    w.EventID,
		Counter:    w.Counter,
		Payload:    w.Payload,
	}
	return e, nil
}
