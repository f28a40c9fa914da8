package detector

import (
	"testing"

	"github.com/pable/go-pitch-stream/internal/element"
	"github.com/pable/go-pitch-stream/internal/geometry"
)

func kickConfig() KickConfig {
	return KickConfig{
		MinKickDist:               2,
		MaxBallbackDist:           1,
		AttackedPressingThreshold: 50,
	}
}

func TestKickFiresOncePerSeparation(t *testing.T) {
	f := newFixture(t)
	f.setField(100, 60)
	f.setSides("home", "away")
	f.setPossession("p1", "home")
	f.place("p1", geometry.Vec3{})
	d := NewKickDetector(f.b, f.shared, kickConfig())

	process := func(ts int64, ballPos geometry.Vec3) []*element.Element {
		t.Helper()
		out, err := d.Process(ballState(ts, ballPos, 20))
		if err != nil {
			t.Fatalf("Process: %v", err)
		}
		return out
	}

	out := process(1000, geometry.Vec3{X: 3})
	if len(out) != 1 || out[0].StreamName != element.StreamKickEvent {
		t.Fatalf("emitted %v, want one kick", streamsOf(out))
	}
	if id, _ := out[0].ObjectID(0); id != "p1" {
		t.Errorf("kicker = %q", id)
	}

	// Ball still away: the same separation must not fire again.
	if out = process(1040, geometry.Vec3{X: 4}); len(out) != 0 {
		t.Errorf("second tick of the same separation emitted %v", streamsOf(out))
	}

	// Ball back at the possessor re-arms detection.
	if out = process(1080, geometry.Vec3{X: 0.5}); len(out) != 0 {
		t.Errorf("ball back emitted %v", streamsOf(out))
	}
	if out = process(1120, geometry.Vec3{X: 3}); len(out) != 1 {
		t.Fatalf("re-armed separation emitted %v, want one kick", streamsOf(out))
	}
}

func TestKickAttackedAndZone(t *testing.T) {
	f := newFixture(t)
	f.setField(100, 60)
	f.setSides("home", "away")
	f.setPossession("p1", "home")
	f.place("p1", geometry.Vec3{})
	f.shared.AreaFlag.PutKey(testMatch, flagKey(ballID, AreaCenterThird), true)
	d := NewKickDetector(f.b, f.shared, kickConfig())

	out, err := d.Process(ballState(1000, geometry.Vec3{X: 3}, 20))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("emitted %v", streamsOf(out))
	}
	if attacked, _ := out[0].Bool("attacked"); attacked {
		t.Error("nobody contests the kicker, attacked must be false")
	}
	if zone, _ := out[0].String("zone"); zone != ZoneCenter {
		t.Errorf("zone = %q, want %q", zone, ZoneCenter)
	}

	// A running duel marks the next kick as attacked.
	f.shared.DuelPhase.PutKey(testMatch, innerAll, string(element.PhaseActive))
	d.activeKick.PutKey(testMatch, innerAll, false)
	out, _ = d.Process(ballState(1040, geometry.Vec3{X: 3}, 20))
	if len(out) != 1 {
		t.Fatalf("emitted %v", streamsOf(out))
	}
	if attacked, _ := out[0].Bool("attacked"); !attacked {
		t.Error("kick during a duel must be attacked")
	}

	// So does a pressing index at the threshold, with the duel over.
	f.shared.DuelPhase.PutKey(testMatch, innerAll, string(element.PhaseEnd))
	f.shared.PressingIndex.PutKey(testMatch, innerAll, 60)
	d.activeKick.PutKey(testMatch, innerAll, false)
	out, _ = d.Process(ballState(1080, geometry.Vec3{X: 3}, 20))
	if len(out) != 1 {
		t.Fatalf("emitted %v", streamsOf(out))
	}
	if attacked, _ := out[0].Bool("attacked"); !attacked {
		t.Error("kick under heavy pressing must be attacked")
	}
}

func TestNoKickWithoutPossession(t *testing.T) {
	f := newFixture(t)
	d := NewKickDetector(f.b, f.shared, kickConfig())
	out, err := d.Process(ballState(1000, geometry.Vec3{X: 3}, 20))
	if err != nil || len(out) != 0 {
		t.Errorf("without a possessor: out %v, err %v", streamsOf(out), err)
	}
}
