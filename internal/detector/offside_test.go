package detector

import (
	"testing"

	"github.com/pable/go-pitch-stream/internal/geometry"
)

func TestOffsideLineAtSecondLastDefender(t *testing.T) {
	f := newFixture(t)
	f.setSides("home", "away")
	f.setPossession("p1", "home")
	f.place("p1", geometry.Vec3{X: 10})
	f.place("p2", geometry.Vec3{X: 35})
	f.place("p3", geometry.Vec3{X: 40})
	f.place("p4", geometry.Vec3{X: 30})
	d := NewOffsideDetector(f.b, f.shared)

	// Only the holder's own sample refreshes the line.
	out, err := d.Process(playerState(1000, "p2", "home", geometry.Vec3{X: 35}, 2))
	if err != nil || len(out) != 0 {
		t.Fatalf("non-holder sample: out %v, err %v", streamsOf(out), err)
	}

	out, err = d.Process(playerState(1000, "p1", "home", geometry.Vec3{X: 10}, 2))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("emitted %v", streamsOf(out))
	}
	if valid, _ := out[0].Bool("valid"); !valid {
		t.Error("line must be valid with a holder and two defenders")
	}
	// The last away defender stands at x=40, the second-last at x=30.
	if lineX, _ := out[0].Double("lineX"); !almostEqual(lineX, 30) {
		t.Errorf("lineX = %v, want 30", lineX)
	}
	if len(out[0].ObjectIDs) != 1 || out[0].ObjectIDs[0] != "p2" {
		t.Errorf("players beyond the line = %v, want [p2]", out[0].ObjectIDs)
	}
}

func TestOffsideLineNeverBehindHolder(t *testing.T) {
	f := newFixture(t)
	f.setSides("home", "away")
	f.setPossession("p1", "home")
	f.place("p1", geometry.Vec3{X: 45})
	f.place("p2", geometry.Vec3{X: 20})
	f.place("p3", geometry.Vec3{X: 40})
	f.place("p4", geometry.Vec3{X: 30})
	d := NewOffsideDetector(f.b, f.shared)

	out, err := d.Process(playerState(1000, "p1", "home", geometry.Vec3{X: 45}, 2))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if lineX, _ := out[0].Double("lineX"); !almostEqual(lineX, 45) {
		t.Errorf("lineX = %v, want the holder position 45", lineX)
	}
}

func TestOffsideNullLineSentOnce(t *testing.T) {
	f := newFixture(t)
	d := NewOffsideDetector(f.b, f.shared)

	out, err := d.Process(ballState(1000, geometry.Vec3{}, 5))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("emitted %v, want one null line", streamsOf(out))
	}
	if valid, _ := out[0].Bool("valid"); valid {
		t.Error("line must be invalid without possession")
	}
	if out, _ := d.Process(ballState(1040, geometry.Vec3{}, 5)); len(out) != 0 {
		t.Errorf("repeated null line: %v", streamsOf(out))
	}
}
