package detector

import (
	"testing"

	"github.com/pable/go-pitch-stream/internal/element"
	"github.com/pable/go-pitch-stream/internal/geometry"
)

func TestPressingIndexZeroWithoutPossession(t *testing.T) {
	f := newFixture(t)
	f.shared.PressingIndex.PutKey(testMatch, innerAll, 3)
	d := NewPressingDetector(f.shared)

	if _, err := d.Process(ballState(1000, geometry.Vec3{}, 5)); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if got := f.shared.PressingIndex.GetKey(testMatch, innerAll); got != 0 {
		t.Errorf("index without possession = %v, want 0", got)
	}
}

func TestPressingIndexFromClosingSpeeds(t *testing.T) {
	f := newFixture(t)
	f.setPossession("p1", "home")
	// p3 closes in on the ball at 2 m/s from 5 m out while the ball rolls
	// toward p3 at 1 m/s.
	f.place("p3", geometry.Vec3{X: 5})
	f.shared.Velocity.PutKey(testMatch, "p3", geometry.Vec3{X: -2})
	d := NewPressingDetector(f.shared)

	ball := element.NewFieldObjectState(testMatch, 1000, ballID, "none",
		geometry.Vec3{}, geometry.Vec3{X: 1}, 1)
	out, err := d.Process(ball)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(out) != 0 {
		t.Errorf("pressing emits nothing, got %v", streamsOf(out))
	}
	if got := f.shared.PressingIndex.GetKey(testMatch, innerAll); !almostEqual(got, 0.6) {
		t.Errorf("index = %v, want (2+1)/5", got)
	}
}

func TestRetreatingDefendersDoNotPress(t *testing.T) {
	f := newFixture(t)
	f.setPossession("p1", "home")
	f.place("p3", geometry.Vec3{X: 5})
	f.shared.Velocity.PutKey(testMatch, "p3", geometry.Vec3{X: 4})
	d := NewPressingDetector(f.shared)

	ball := element.NewFieldObjectState(testMatch, 1000, ballID, "none",
		geometry.Vec3{}, geometry.Vec3{X: 1}, 1)
	if _, err := d.Process(ball); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if got := f.shared.PressingIndex.GetKey(testMatch, innerAll); got != 0 {
		t.Errorf("index = %v, want 0 with the defender backing off", got)
	}
}
