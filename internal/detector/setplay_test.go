package detector

import (
	"testing"

	"github.com/pable/go-pitch-stream/internal/element"
	"github.com/pable/go-pitch-stream/internal/geometry"
)

func setPlayConfig() SetPlayConfig {
	return SetPlayConfig{
		QuiescenceSpeed: 0.5,
		QuiescenceTime:  2000,
		PenaltySpotDist: 1,
		MidcircleRadius: 9.15,
	}
}

func newSetPlay(t *testing.T) (*fixture, *SetPlayDetector) {
	t.Helper()
	f := newFixture(t)
	f.setField(100, 60)
	f.setSides("home", "away")
	return f, NewSetPlayDetector(f.b, f.shared, setPlayConfig())
}

func fieldExit(ts int64, pos geometry.Vec3) *element.Element {
	return element.NewAreaEvent(testMatch, ts, ballID, "none", AreaField, false, pos)
}

func fieldEntry(ts int64, pos geometry.Vec3) *element.Element {
	return element.NewAreaEvent(testMatch, ts, ballID, "none", AreaField, true, pos)
}

func setPlayOf(t *testing.T, d *SetPlayDetector, e *element.Element) []*element.Element {
	t.Helper()
	out, err := d.Process(e)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	return out
}

func TestThrowInForOpponent(t *testing.T) {
	f, d := newSetPlay(t)
	f.setPossession("p1", "home")

	// Crossing the sideline pends the restart; it fires on re-entry.
	if out := setPlayOf(t, d, fieldExit(1000, geometry.Vec3{X: 10, Y: 31})); len(out) != 0 {
		t.Fatalf("exit already emitted %v", streamsOf(out))
	}
	out := setPlayOf(t, d, fieldEntry(4000, geometry.Vec3{X: 10, Y: 29}))
	if len(out) != 1 {
		t.Fatalf("re-entry emitted %v", streamsOf(out))
	}
	if kind, _ := out[0].String("setPlayType"); kind != element.SetPlayThrowIn {
		t.Errorf("setPlayType = %q, want throwIn", kind)
	}
	if team, _ := out[0].GroupID(0); team != "away" {
		t.Errorf("awarded to %q, want the opponent away", team)
	}

	// The pending restart is consumed.
	if out := setPlayOf(t, d, fieldEntry(5000, geometry.Vec3{X: 10, Y: 28})); len(out) != 0 {
		t.Errorf("second re-entry emitted %v", streamsOf(out))
	}
}

func TestGoalKickAndCornerKick(t *testing.T) {
	f, d := newSetPlay(t)

	// The attacking side puts the ball past the away goal line: goal kick for
	// the defenders.
	f.setPossession("p1", "home")
	setPlayOf(t, d, fieldExit(1000, geometry.Vec3{X: 52, Y: 5}))
	out := setPlayOf(t, d, fieldEntry(4000, geometry.Vec3{X: 48, Y: 5}))
	if kind, _ := out[0].String("setPlayType"); kind != element.SetPlayGoalKick {
		t.Errorf("setPlayType = %q, want goalKick", kind)
	}
	if team, _ := out[0].GroupID(0); team != "away" {
		t.Errorf("goal kick for %q, want away", team)
	}

	// The defenders deflecting it past their own line concede a corner.
	f.setPossession("p3", "away")
	setPlayOf(t, d, fieldExit(6000, geometry.Vec3{X: 52, Y: 5}))
	out = setPlayOf(t, d, fieldEntry(9000, geometry.Vec3{X: 48, Y: 5}))
	if kind, _ := out[0].String("setPlayType"); kind != element.SetPlayCornerKick {
		t.Errorf("setPlayType = %q, want cornerKick", kind)
	}
	if team, _ := out[0].GroupID(0); team != "home" {
		t.Errorf("corner for %q, want home", team)
	}
}

func TestFreeKickAfterQuiescence(t *testing.T) {
	f, d := newSetPlay(t)
	f.setPossession("p1", "home")

	// The first resting tick only starts the clock.
	if out := setPlayOf(t, d, ballState(1000, geometry.Vec3{X: 20}, 0.2)); len(out) != 0 {
		t.Fatalf("first quiet tick emitted %v", streamsOf(out))
	}
	if out := setPlayOf(t, d, ballState(2000, geometry.Vec3{X: 20}, 0.2)); len(out) != 0 {
		t.Fatalf("quiet tick inside the window emitted %v", streamsOf(out))
	}

	out := setPlayOf(t, d, ballState(3500, geometry.Vec3{X: 20}, 0.2))
	if len(out) != 1 {
		t.Fatalf("emitted %v, want a free kick", streamsOf(out))
	}
	if kind, _ := out[0].String("setPlayType"); kind != element.SetPlayFreeKick {
		t.Errorf("setPlayType = %q, want freeKick", kind)
	}
	if team, _ := out[0].GroupID(0); team != "home" {
		t.Errorf("free kick for %q", team)
	}

	// Once flagged, the same rest reports nothing more; movement re-arms.
	if out := setPlayOf(t, d, ballState(4000, geometry.Vec3{X: 20}, 0.2)); len(out) != 0 {
		t.Errorf("flagged rest emitted %v", streamsOf(out))
	}
	setPlayOf(t, d, ballState(4500, geometry.Vec3{X: 25}, 8))
	setPlayOf(t, d, ballState(5000, geometry.Vec3{X: 30}, 0.2))
	if out := setPlayOf(t, d, ballState(8000, geometry.Vec3{X: 30}, 0.2)); len(out) != 1 {
		t.Errorf("re-armed rest emitted %v", streamsOf(out))
	}
}

func TestPenaltyOnTheSpot(t *testing.T) {
	f, d := newSetPlay(t)
	f.setPossession("p1", "home")

	// The right penalty spot of a 100m pitch sits at x=39.
	setPlayOf(t, d, ballState(1000, geometry.Vec3{X: 39.5}, 0.2))
	out := setPlayOf(t, d, ballState(3500, geometry.Vec3{X: 39.5}, 0.2))
	if len(out) != 1 {
		t.Fatalf("emitted %v", streamsOf(out))
	}
	if kind, _ := out[0].String("setPlayType"); kind != element.SetPlayPenalty {
		t.Errorf("setPlayType = %q, want penalty", kind)
	}
}

func TestMidcircleRestIsNoSetPlay(t *testing.T) {
	f, d := newSetPlay(t)
	f.setPossession("p1", "home")
	setPlayOf(t, d, ballState(1000, geometry.Vec3{X: 1}, 0.2))
	if out := setPlayOf(t, d, ballState(5000, geometry.Vec3{X: 1}, 0.2)); len(out) != 0 {
		t.Errorf("resting kickoff ball emitted %v", streamsOf(out))
	}
}
