package detector

import (
	"testing"

	"github.com/pable/go-pitch-stream/internal/config"
	"github.com/pable/go-pitch-stream/internal/geometry"
	"github.com/pable/go-pitch-stream/internal/state"
)

func TestTeamAreaFromPlayerPositions(t *testing.T) {
	b := state.NewMemory()
	cohort := &config.Cohort{
		Players: []config.PlayerSpec{
			{ID: "p1", TeamID: "home"}, {ID: "p2", TeamID: "home"}, {ID: "p5", TeamID: "home"},
			{ID: "p3", TeamID: "away"}, {ID: "p4", TeamID: "away"}, {ID: "p6", TeamID: "away"},
		},
		Teams:  []string{"home", "away"},
		BallID: ballID,
	}
	shared := NewShared(b, cohort)
	d := NewTeamAreaDetector(b, shared)

	shared.Position.PutKey(testMatch, "p1", geometry.Vec3{})
	shared.Position.PutKey(testMatch, "p2", geometry.Vec3{X: 4})

	// Two known positions span no area yet.
	out, err := d.Process(playerState(1000, "p1", "home", geometry.Vec3{}, 2))
	if err != nil || len(out) != 0 {
		t.Fatalf("two points: out %v, err %v", streamsOf(out), err)
	}

	shared.Position.PutKey(testMatch, "p5", geometry.Vec3{Y: 3})
	out, err = d.Process(playerState(1040, "p5", "home", geometry.Vec3{Y: 3}, 2))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("emitted %v, want one team area state", streamsOf(out))
	}
	if mbr, _ := out[0].Double("mbrArea"); !almostEqual(mbr, 12) {
		t.Errorf("mbrArea = %v, want 4*3", mbr)
	}
	if hull, _ := out[0].Double("hullArea"); !almostEqual(hull, 6) {
		t.Errorf("hullArea = %v, want the triangle area 6", hull)
	}

	// Unchanged positions are suppressed.
	out, _ = d.Process(playerState(1080, "p1", "home", geometry.Vec3{}, 2))
	if len(out) != 0 {
		t.Errorf("unchanged area emitted %v", streamsOf(out))
	}

	shared.Position.PutKey(testMatch, "p5", geometry.Vec3{Y: 4})
	out, _ = d.Process(playerState(1120, "p5", "home", geometry.Vec3{Y: 4}, 2))
	if len(out) != 1 {
		t.Fatalf("moved team emitted %v", streamsOf(out))
	}
	if mbr, _ := out[0].Double("mbrArea"); !almostEqual(mbr, 16) {
		t.Errorf("mbrArea = %v, want 16", mbr)
	}
}
