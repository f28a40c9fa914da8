package detector

import (
	"testing"

	"github.com/pable/go-pitch-stream/internal/element"
	"github.com/pable/go-pitch-stream/internal/geometry"
)

func dribbleConfig() DribbleConfig {
	return DribbleConfig{
		SpeedLevelThresholds:    []float64{2, 5},
		DribblingSpeedThreshold: 3,
		DribblingTimeThreshold:  100,
	}
}

func playerState(ts int64, playerID, teamID string, pos geometry.Vec3, vabs float64) *element.Element {
	return element.NewFieldObjectState(testMatch, ts, playerID, teamID, pos, geometry.Vec3{}, vabs)
}

func newDribble(t *testing.T) (*fixture, *DribbleDetector) {
	t.Helper()
	f := newFixture(t)
	d := NewDribbleDetector(f.b, f.shared, dribbleConfig())
	return f, d
}

func mustProcess(t *testing.T, d *DribbleDetector, e *element.Element) []*element.Element {
	t.Helper()
	out, err := d.Process(e)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	return out
}

func TestSpeedLevelSeedingIsSilent(t *testing.T) {
	f, d := newDribble(t)

	// The first sample seeds the level and emits only the zeroed statistics.
	out := mustProcess(t, d, playerState(1000, "p1", "home", geometry.Vec3{}, 1))
	if want := 2 * len(Items(f.shared.Cohort)); len(out) != want {
		t.Fatalf("first sample emitted %d elements, want the %d-element burst", len(out), want)
	}
	if len(onlyStream(out, element.StreamSpeedLevelChange)) != 0 {
		t.Error("seeding the level must not report a change")
	}
}

func TestSpeedLevelChangeAttributesTime(t *testing.T) {
	_, d := newDribble(t)
	mustProcess(t, d, playerState(1000, "p1", "home", geometry.Vec3{}, 1))

	// 1 m/s is level 0, 3 m/s is level 1. The second between the samples is
	// attributed to the level the player leaves.
	out := mustProcess(t, d, playerState(2000, "p1", "home", geometry.Vec3{}, 3))
	changes := onlyStream(out, element.StreamSpeedLevelChange)
	if len(changes) != 1 {
		t.Fatalf("emitted %v, want one level change", streamsOf(out))
	}
	if oldL, _ := changes[0].Long("oldLevel"); oldL != 0 {
		t.Errorf("oldLevel = %v", oldL)
	}
	if newL, _ := changes[0].Long("newLevel"); newL != 1 {
		t.Errorf("newLevel = %v", newL)
	}

	stats := onlyStream(out, element.StreamSpeedLevelStats)
	if len(stats) != 2 {
		t.Fatalf("want player and team statistics, got %v", streamsOf(out))
	}
	ms := stats[0].Payload["msPerLevel"].([]int64)
	if len(ms) != 3 || ms[0] != 1000 || ms[1] != 0 {
		t.Errorf("msPerLevel = %v, want [1000 0 0]", ms)
	}

	// Same level again: nothing.
	if out := mustProcess(t, d, playerState(2500, "p1", "home", geometry.Vec3{}, 4)); len(out) != 0 {
		t.Errorf("unchanged level emitted %v", streamsOf(out))
	}
}

func TestDribblingEpisode(t *testing.T) {
	f, d := newDribble(t)
	f.setPossession("p1", "home")
	mustProcess(t, d, playerState(1000, "p1", "home", geometry.Vec3{}, 4))

	// Still inside the waiting window: no episode yet.
	if out := mustProcess(t, d, playerState(1050, "p1", "home", geometry.Vec3{X: 1}, 4)); len(out) != 0 {
		t.Fatalf("waiting window emitted %v", streamsOf(out))
	}

	// Past the time threshold the episode starts where the player is now.
	out := mustProcess(t, d, playerState(1200, "p1", "home", geometry.Vec3{X: 2}, 4))
	if len(out) != 1 || out[0].Phase != element.PhaseStart || out[0].Counter != 1 {
		t.Fatalf("expected dribbling START #1, got %v", streamsOf(out))
	}

	out = mustProcess(t, d, playerState(1400, "p1", "home", geometry.Vec3{X: 6}, 4))
	if len(out) != 1 || out[0].Phase != element.PhaseActive {
		t.Fatalf("expected dribbling ACTIVE, got %v", streamsOf(out))
	}
	if length, _ := out[0].Double("length"); !almostEqual(length, 4) {
		t.Errorf("length = %v, want 4", length)
	}
	if ms, _ := out[0].Long("durationMs"); ms != 200 {
		t.Errorf("durationMs = %v, want 200", ms)
	}
	if v, _ := out[0].Double("velocity"); !almostEqual(v, 20) {
		t.Errorf("velocity = %v, want 20", v)
	}

	// Slowing down ends the episode. The sample also drops a speed level, so
	// the output carries the level change alongside the dribbling events.
	out = mustProcess(t, d, playerState(1600, "p1", "home", geometry.Vec3{X: 8}, 1))
	ends := onlyStream(out, element.StreamDribblingEvent)
	if len(ends) != 1 || ends[0].Phase != element.PhaseEnd {
		t.Fatalf("expected dribbling END, got %v", streamsOf(out))
	}
	if length, _ := ends[0].Double("length"); !almostEqual(length, 6) {
		t.Errorf("episode length = %v, want 6", length)
	}
	if ms, _ := ends[0].Long("durationMs"); ms != 400 {
		t.Errorf("episode duration = %v, want 400", ms)
	}

	stats := onlyStream(out, element.StreamDribblingStats)
	if len(stats) != 2 {
		t.Fatalf("want dribbler and team statistics, got %v", streamsOf(out))
	}
	if n, _ := stats[0].Long("numDribblings"); n != 1 {
		t.Errorf("numDribblings = %v", n)
	}
	if sum, _ := stats[0].Double("sumLength"); !almostEqual(sum, 6) {
		t.Errorf("sumLength = %v, want 6", sum)
	}
	if ms, _ := stats[0].Long("sumDurationMs"); ms != 400 {
		t.Errorf("sumDurationMs = %v, want 400", ms)
	}
}

func TestDribblingEndsWhenPossessionIsLost(t *testing.T) {
	f, d := newDribble(t)
	f.setPossession("p1", "home")
	mustProcess(t, d, playerState(1000, "p1", "home", geometry.Vec3{}, 4))
	mustProcess(t, d, playerState(1050, "p1", "home", geometry.Vec3{X: 1}, 4))
	out := mustProcess(t, d, playerState(1200, "p1", "home", geometry.Vec3{X: 2}, 4))
	if len(out) != 1 || out[0].Phase != element.PhaseStart {
		t.Fatalf("expected START, got %v", streamsOf(out))
	}

	// The ball is taken: the dribbler's next sample closes the episode.
	f.setPossession("p3", "away")
	out = mustProcess(t, d, playerState(1300, "p1", "home", geometry.Vec3{X: 3}, 4))
	ends := onlyStream(out, element.StreamDribblingEvent)
	if len(ends) != 1 || ends[0].Phase != element.PhaseEnd {
		t.Fatalf("expected END after losing the ball, got %v", streamsOf(out))
	}
}
