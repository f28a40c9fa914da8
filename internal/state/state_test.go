package state

import (
	"testing"

	"github.com/pable/go-pitch-stream/internal/geometry"
	"github.com/pable/go-pitch-stream/internal/schema"
)

func TestSingleValueZeroWhenUnset(t *testing.T) {
	b := NewMemory()
	s := NewSingleValue[int64](b, "counter", schema.No)
	if got := s.GetKey("m1", "all"); got != 0 {
		t.Errorf("unset read = %v, want 0", got)
	}
	if _, ok := s.TryGetKey("m1", "all"); ok {
		t.Error("TryGetKey should report unset")
	}
	s.PutKey("m1", "all", 7)
	if got := s.GetKey("m1", "all"); got != 7 {
		t.Errorf("read after put = %v, want 7", got)
	}
}

func TestMatchIsolation(t *testing.T) {
	b := NewMemory()
	s := NewSingleValue[string](b, "holder", schema.No)
	s.PutKey("m1", "all", "p1")
	s.PutKey("m2", "all", "p9")
	if got := s.GetKey("m1", "all"); got != "p1" {
		t.Errorf("m1 read = %q", got)
	}
	if got := s.GetKey("m2", "all"); got != "p9" {
		t.Errorf("m2 read = %q", got)
	}
	b.DropMatch("m1")
	if _, ok := s.TryGetKey("m1", "all"); ok {
		t.Error("m1 state should be gone after DropMatch")
	}
	if got := s.GetKey("m2", "all"); got != "p9" {
		t.Error("DropMatch(m1) must not touch m2")
	}
}

func TestIncreaseStartsFromZero(t *testing.T) {
	b := NewMemory()
	s := NewSingleValue[int64](b, "seq", schema.No)
	if got := Increase(s, "m1", "all", 1); got != 1 {
		t.Errorf("first Increase = %v, want 1", got)
	}
	if got := Increase(s, "m1", "all", 2); got != 3 {
		t.Errorf("second Increase = %v, want 3", got)
	}
}

func TestHistoryNewestFirstAndBounded(t *testing.T) {
	b := NewMemory()
	h := NewHistory[int64](b, "hist", schema.No, 3)
	for _, v := range []int64{1, 2, 3, 4, 5} {
		h.AddKey("m1", "ball", v)
	}
	got := h.ListKey("m1", "ball")
	want := []int64{5, 4, 3}
	if len(got) != len(want) {
		t.Fatalf("history length = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("history[%d] = %v, want %v", i, got[i], want[i])
		}
	}
	if v, ok := h.LatestKey("m1", "ball"); !ok || v != 5 {
		t.Errorf("LatestKey = %v, %v", v, ok)
	}
}

func TestHistoryListIsACopy(t *testing.T) {
	b := NewMemory()
	h := NewHistory[int64](b, "hist", schema.No, 3)
	h.AddKey("m1", "ball", 1)
	got := h.ListKey("m1", "ball")
	got[0] = 99
	if v, _ := h.LatestKey("m1", "ball"); v != 1 {
		t.Error("mutating the returned slice must not affect the store")
	}
}

func TestEncodeDecodeValueKinds(t *testing.T) {
	values := []any{
		true,
		int64(42),
		3.25,
		"hello",
		geometry.Vec3{X: 1, Y: 2, Z: 3},
		[]int64{1, 2},
		[]float64{0.5},
		[]string{"a", "b"},
		[]geometry.Vec3{{X: 1}},
		map[string]int64{"cell": 4},
		[]map[string]int64{{"cell": 4}, {"cell": 7}},
	}
	for _, v := range values {
		enc, err := EncodeValue(v)
		if err != nil {
			t.Fatalf("EncodeValue(%T): %v", v, err)
		}
		dec, err := DecodeValue(enc)
		if err != nil {
			t.Fatalf("DecodeValue(%T): %v", v, err)
		}
		switch want := v.(type) {
		case map[string]int64:
			got := dec.(map[string]int64)
			if len(got) != len(want) || got["cell"] != want["cell"] {
				t.Errorf("counts round trip: %v != %v", got, want)
			}
		case []map[string]int64:
			got := dec.([]map[string]int64)
			if len(got) != len(want) || got[0]["cell"] != want[0]["cell"] || got[1]["cell"] != want[1]["cell"] {
				t.Errorf("counts list round trip: %v != %v", got, want)
			}
		case []int64:
			got := dec.([]int64)
			if len(got) != len(want) || got[0] != want[0] {
				t.Errorf("longs round trip: %v != %v", got, want)
			}
		case []float64:
			got := dec.([]float64)
			if len(got) != len(want) || got[0] != want[0] {
				t.Errorf("doubles round trip: %v != %v", got, want)
			}
		case []string:
			got := dec.([]string)
			if len(got) != len(want) || got[0] != want[0] {
				t.Errorf("strings round trip: %v != %v", got, want)
			}
		case []geometry.Vec3:
			got := dec.([]geometry.Vec3)
			if len(got) != len(want) || got[0] != want[0] {
				t.Errorf("vecs round trip: %v != %v", got, want)
			}
		default:
			if dec != v {
				t.Errorf("round trip: %v (%T) != %v (%T)", dec, dec, v, v)
			}
		}
	}
}

func TestEncodeValueRejectsUnknownTypes(t *testing.T) {
	if _, err := EncodeValue(struct{}{}); err == nil {
		t.Error("expected error for unsupported type")
	}
}

func TestMirroredRestoreRoundTrip(t *testing.T) {
	mirror, err := OpenMirror(":memory:")
	if err != nil {
		t.Fatalf("open mirror: %v", err)
	}
	t.Cleanup(func() { mirror.Close() })

	var mirrorErrs []error
	src := NewMirrored(NewMemory(), mirror, func(err error) { mirrorErrs = append(mirrorErrs, err) })

	holder := NewSingleValue[string](src, "holder", schema.No)
	pos := NewSingleValue[geometry.Vec3](src, "position", schema.No)
	counts := NewSingleValue[map[string]int64](src, "counts", schema.No)
	diffs := NewHistory[map[string]int64](src, "diffs", schema.No, 3)
	holder.PutKey("m1", "all", "p3")
	pos.PutKey("m1", "p3", geometry.Vec3{X: 10, Y: -2})
	counts.PutKey("m1", "p3", map[string]int64{"successful": 2})
	diffs.AddKey("m1", "p3", map[string]int64{"0,0": 1})
	diffs.AddKey("m1", "p3", map[string]int64{"1,1": 4})
	holder.PutKey("m2", "all", "p9")

	if len(mirrorErrs) != 0 {
		t.Fatalf("unexpected mirror errors: %v", mirrorErrs)
	}

	// A fresh backend fed from the same mirror sees m1 but not m2.
	restored := NewMirrored(NewMemory(), mirror, nil)
	if err := restored.RestoreMatch("m1"); err != nil {
		t.Fatalf("RestoreMatch: %v", err)
	}
	rHolder := NewSingleValue[string](restored, "holder", schema.No)
	rPos := NewSingleValue[geometry.Vec3](restored, "position", schema.No)
	rCounts := NewSingleValue[map[string]int64](restored, "counts", schema.No)
	if got := rHolder.GetKey("m1", "all"); got != "p3" {
		t.Errorf("restored holder = %q, want p3", got)
	}
	if got := rPos.GetKey("m1", "p3"); got != (geometry.Vec3{X: 10, Y: -2}) {
		t.Errorf("restored position = %v", got)
	}
	if got := rCounts.GetKey("m1", "p3"); got["successful"] != 2 {
		t.Errorf("restored counts = %v", got)
	}
	rDiffs := NewHistory[map[string]int64](restored, "diffs", schema.No, 3)
	if got := rDiffs.ListKey("m1", "p3"); len(got) != 2 || got[0]["1,1"] != 4 || got[1]["0,0"] != 1 {
		t.Errorf("restored diff history = %v", got)
	}
	if _, ok := rHolder.TryGetKey("m2", "all"); ok {
		t.Error("restore of m1 must not pull in m2")
	}
}

func TestMirrorKeepsLatestValueOnly(t *testing.T) {
	mirror, err := OpenMirror(":memory:")
	if err != nil {
		t.Fatalf("open mirror: %v", err)
	}
	t.Cleanup(func() { mirror.Close() })

	src := NewMirrored(NewMemory(), mirror, nil)
	s := NewSingleValue[int64](src, "seq", schema.No)
	for i := int64(1); i <= 5; i++ {
		s.PutKey("m1", "all", i)
	}

	restored := NewMirrored(NewMemory(), mirror, nil)
	if err := restored.RestoreMatch("m1"); err != nil {
		t.Fatalf("RestoreMatch: %v", err)
	}
	r := NewSingleValue[int64](restored, "seq", schema.No)
	if got := r.GetKey("m1", "all"); got != 5 {
		t.Errorf("restored value = %v, want 5 (latest upsert)", got)
	}
}
