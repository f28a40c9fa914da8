package schema

import (
	"errors"
	"testing"

	"github.com/pable/go-pitch-stream/internal/element"
	"github.com/pable/go-pitch-stream/internal/geometry"
)

func sample() *element.Element {
	return &element.Element{
		StreamName: "testStream",
		Category:   element.CategoryEvent,
		Key:        "m1",
		Timestamp:  1234,
		ObjectIDs:  []string{"p1", "p2"},
		GroupIDs:   []string{"home"},
		Positions:  []geometry.Vec3{{X: 1, Y: 2, Z: 3}},
		Atomic:     true,
		Payload:    element.Payload{"vabs": 7.5, "zone": "center"},
	}
}

func TestApplyForms(t *testing.T) {
	e := sample()
	cases := []struct {
		spec string
		want any
	}{
		{"key", "m1"},
		{"streamName", "testStream"},
		{"static{all}", "all"},
		{"fieldValue{vabs,true}", 7.5},
		{"fieldValue{generationTimestamp,false}", int64(1234)},
		{"arrayValue{objectIdentifiers,1,false}", "p2"},
		{"arrayValue{groupIdentifiers,0,false}", "home"},
		{"arraySize{objectIdentifiers,false}", int64(2)},
		{"positionValue{0}", geometry.Vec3{X: 1, Y: 2, Z: 3}},
	}
	for _, c := range cases {
		t.Run(c.spec, func(t *testing.T) {
			s, err := Parse(c.spec)
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			got, err := s.Apply(e)
			if err != nil {
				t.Fatalf("Apply: %v", err)
			}
			if got != c.want {
				t.Errorf("Apply = %v (%T), want %v (%T)", got, got, c.want, c.want)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	for _, spec := range []string{
		"", "bogus", "static{}{", "fieldValue{onlyname}",
		"arrayValue{name,notanumber,true}", "positionValue{x}",
	} {
		if _, err := Parse(spec); err == nil {
			t.Errorf("Parse(%q) should fail", spec)
		}
	}
}

func TestApplyKeyStringifies(t *testing.T) {
	e := sample()
	cases := []struct {
		spec string
		want string
	}{
		{"fieldValue{vabs,true}", "7.5"},
		{"fieldValue{generationTimestamp,false}", "1234"},
		{"arrayValue{objectIdentifiers,0,false}", "p1"},
	}
	for _, c := range cases {
		s := MustParse(c.spec)
		got, err := s.ApplyKey(e)
		if err != nil {
			t.Fatalf("ApplyKey(%s): %v", c.spec, err)
		}
		if got != c.want {
			t.Errorf("ApplyKey(%s) = %q, want %q", c.spec, got, c.want)
		}
	}
	// A vector cannot become an inner key.
	if _, err := MustParse("positionValue{0}").ApplyKey(e); err == nil {
		t.Error("expected error keying on a position")
	}
}

func TestNoSchemaNeverApplies(t *testing.T) {
	_, err := No.Apply(sample())
	if !errors.Is(err, ErrNotApplicable) {
		t.Errorf("expected ErrNotApplicable, got %v", err)
	}
}

func TestArrayIndexOutOfRange(t *testing.T) {
	s := ObjectID(5)
	if _, err := s.Apply(sample()); !errors.Is(err, element.ErrNoSuchField) {
		t.Error("expected ErrNoSuchField for index out of range")
	}
}
