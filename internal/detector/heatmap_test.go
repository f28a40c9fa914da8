package detector

import (
	"testing"

	"github.com/pable/go-pitch-stream/internal/element"
	"github.com/pable/go-pitch-stream/internal/geometry"
)

func heatmapFixture(t *testing.T, cfg HeatmapConfig) (*fixture, *HeatmapBuilder, *HeatmapSender) {
	t.Helper()
	f := newFixture(t)
	f.setField(100, 60)
	return f, NewHeatmapBuilder(f.b, f.shared, cfg), NewHeatmapSender(f.b, f.shared, cfg)
}

func buildSamples(t *testing.T, b *HeatmapBuilder, ts int64, pos geometry.Vec3, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if _, err := b.Process(playerState(ts, "p1", "home", pos, 2)); err != nil {
			t.Fatalf("Process: %v", err)
		}
	}
}

func heatmapsOf(elems []*element.Element, playerID string, interval int64) []*element.Element {
	var out []*element.Element
	for _, e := range elems {
		if e.StreamName != element.StreamHeatmapStats {
			continue
		}
		if iv, _ := e.Long("intervalSeconds"); iv != interval {
			continue
		}
		if playerID == "" && len(e.ObjectIDs) == 0 {
			out = append(out, e)
		} else if len(e.ObjectIDs) == 1 && e.ObjectIDs[0] == playerID {
			out = append(out, e)
		}
	}
	return out
}

func TestHeatmapBuilderExcludesBoundary(t *testing.T) {
	_, b, _ := heatmapFixture(t, HeatmapConfig{XCells: 2, YCells: 2, Intervals: []int64{0}})
	buildSamples(t, b, 1000, geometry.Vec3{X: 50}, 1)
	buildSamples(t, b, 1000, geometry.Vec3{Y: -30}, 1)
	if grid := b.lastSecond.GetKey(testMatch, "p1"); len(grid) != 0 {
		t.Errorf("boundary samples counted: %v", grid)
	}

	buildSamples(t, b, 1000, geometry.Vec3{X: -10, Y: -10}, 1)
	grid := b.lastSecond.GetKey(testMatch, "p1")
	if grid[cellKey(0, 0)] != 1 {
		t.Errorf("in-field sample not counted: %v", grid)
	}
	// The team grid is bumped alongside the player grid.
	if grid := b.lastSecond.GetKey(testMatch, "home"); grid[cellKey(0, 0)] != 1 {
		t.Errorf("team grid = %v", grid)
	}
}

func TestHeatmapCellEncoding(t *testing.T) {
	// Two samples in the lower-left cell and three in the upper-right cell of
	// a 2x2 grid encode as "2;0x2;3".
	_, b, s := heatmapFixture(t, HeatmapConfig{XCells: 2, YCells: 2, Intervals: []int64{0}})
	buildSamples(t, b, 1000, geometry.Vec3{X: -10, Y: -10}, 2)
	buildSamples(t, b, 1000, geometry.Vec3{X: 10, Y: 10}, 3)

	out, err := s.Window(testMatch, 2000)
	if err != nil {
		t.Fatalf("Window: %v", err)
	}
	// Only p1 and its team have samples; the other items are skipped.
	if len(out) != 2 {
		t.Fatalf("tick emitted %d elements, want 2", len(out))
	}
	hm := heatmapsOf(out, "p1", 0)
	if len(hm) != 1 {
		t.Fatalf("no heatmap for p1 in %v", streamsOf(out))
	}
	if cells, _ := hm[0].String("cells"); cells != "2;0x2;3" {
		t.Errorf("cells = %q, want \"2;0x2;3\"", cells)
	}
	if total, _ := hm[0].Long("totalNum"); total != 5 {
		t.Errorf("totalNum = %v, want 5", total)
	}
	if nx, _ := hm[0].Long("numXGridCells"); nx != 2 {
		t.Errorf("numXGridCells = %v", nx)
	}
}

func TestHeatmapRollupWindows(t *testing.T) {
	_, b, s := heatmapFixture(t, HeatmapConfig{XCells: 2, YCells: 2, Intervals: []int64{2, 0}})

	tick := func(ts int64) []*element.Element {
		t.Helper()
		out, err := s.Window(testMatch, ts)
		if err != nil {
			t.Fatalf("Window: %v", err)
		}
		return out
	}

	// Second 1: one sample lower-left. Second 2: two samples upper-right.
	// Second 3: three samples lower-left.
	buildSamples(t, b, 500, geometry.Vec3{X: -10, Y: -10}, 1)
	tick(1000)
	buildSamples(t, b, 1500, geometry.Vec3{X: 10, Y: 10}, 2)
	tick(2000)
	buildSamples(t, b, 2500, geometry.Vec3{X: -10, Y: -10}, 3)
	out := tick(3000)

	// The 2-second window holds only the two newest diffs.
	windowed := heatmapsOf(out, "p1", 2)
	if len(windowed) != 1 {
		t.Fatalf("no 2s heatmap for p1")
	}
	if cells, _ := windowed[0].String("cells"); cells != "3;0x2;2" {
		t.Errorf("2s window cells = %q, want \"3;0x2;2\"", cells)
	}

	// The full-game grid keeps everything.
	full := heatmapsOf(out, "p1", 0)
	if cells, _ := full[0].String("cells"); cells != "4;0x2;2" {
		t.Errorf("full-game cells = %q, want \"4;0x2;2\"", cells)
	}
	if total, _ := full[0].Long("totalNum"); total != 6 {
		t.Errorf("full-game totalNum = %v, want 6", total)
	}
}

func TestHeatmapSkipsInactiveItems(t *testing.T) {
	_, b, s := heatmapFixture(t, HeatmapConfig{
		XCells: 2, YCells: 2, Intervals: []int64{0}, ActiveTimeThreshold: 2000,
	})
	buildSamples(t, b, 1000, geometry.Vec3{X: -10, Y: -10}, 1)

	out, err := s.Window(testMatch, 5000)
	if err != nil {
		t.Fatalf("Window: %v", err)
	}
	if len(out) != 0 {
		t.Errorf("stale items reported %d heatmaps", len(out))
	}
}
