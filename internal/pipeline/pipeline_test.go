package pipeline

import (
	"errors"
	"testing"

	"github.com/pable/go-pitch-stream/internal/config"
	"github.com/pable/go-pitch-stream/internal/detector"
	"github.com/pable/go-pitch-stream/internal/element"
	"github.com/pable/go-pitch-stream/internal/geometry"
	"github.com/pable/go-pitch-stream/internal/state"
)

func testProps() *config.Properties {
	return config.FromMap(map[string]string{
		"pitchstream.players":      "{p1:home},{p2:home},{p3:away},{p4:away}",
		"pitchstream.teams":        "home,away",
		"pitchstream.ball":         "ball",
		"pitchstream.field.length": "100",
		"pitchstream.field.width":  "60",
	})
}

func TestBuildRejectsBrokenCohort(t *testing.T) {
	props := config.FromMap(map[string]string{
		"pitchstream.players": "{p1:home},{p2:home},{p3:away}",
		"pitchstream.teams":   "home,away",
		"pitchstream.ball":    "ball",
	})
	if _, err := Build(props, state.NewMemory()); err == nil {
		t.Error("expected a cohort validation error")
	}
}

func TestPipelineEndToEnd(t *testing.T) {
	pl, err := Build(testProps(), state.NewMemory())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	var emitted []*element.Element
	feed := func(e *element.Element) []error {
		return pl.Graph.Process(e, func(out *element.Element) { emitted = append(emitted, out) })
	}
	seen := func(stream string) bool {
		for _, e := range emitted {
			if e.StreamName == stream {
				return true
			}
		}
		return false
	}

	// Metadata lands in the per-match stores without emitting anything.
	meta := element.NewMatchMetadata("m1", 900, 100, 60, false, false, "", "")
	if errs := feed(meta); len(errs) != 0 {
		t.Fatalf("metadata errors: %v", errs)
	}
	if len(emitted) != 0 {
		t.Fatalf("metadata emitted %d elements", len(emitted))
	}
	if got := pl.Shared.FieldLength.GetKey("m1", "all"); got != 100 {
		t.Fatalf("field length store = %v", got)
	}

	// A player sample enriches to a field object state, opens the field
	// areas and seeds the player position.
	p1 := element.NewRawPositionSample("m1", 1000, "p1", "home", geometry.Vec3{X: 3.2})
	if errs := feed(p1); len(errs) != 0 {
		t.Fatalf("player sample errors: %v", errs)
	}
	if !seen(element.StreamFieldObjectState) {
		t.Error("no field object state emitted")
	}
	if !seen(element.StreamAreaEvent) {
		t.Error("no field-entry area event emitted")
	}
	if pos, ok := pl.Shared.Position.TryGetKey("m1", "p1"); !ok || pos.X != 3.2 {
		t.Errorf("player position store = %v, %v", pos, ok)
	}

	// The first ball samples cannot derive a ball hit yet; the error is
	// reported per element and the rest of the graph keeps running.
	errs := feed(element.NewRawPositionSample("m1", 1000, "ball", "none", geometry.Vec3{}))
	if len(errs) == 0 || !errors.Is(errs[0], detector.ErrInsufficientHistory) {
		t.Fatalf("expected an insufficient-history error, got %v", errs)
	}
	feed(element.NewRawPositionSample("m1", 1100, "ball", "none", geometry.Vec3{X: 2.5}))

	// The third sample decelerates the ball next to p1: possession changes.
	if errs := feed(element.NewRawPositionSample("m1", 1200, "ball", "none", geometry.Vec3{X: 3})); len(errs) != 0 {
		t.Fatalf("third ball sample errors: %v", errs)
	}
	if !seen(element.StreamBallPossessionChange) {
		t.Error("no possession change emitted")
	}
	if got := pl.Shared.PlayerInPossession.GetKey("m1", "all"); got != "p1" {
		t.Errorf("possession store = %q, want p1", got)
	}
	if !seen(element.StreamPassStatistics) {
		t.Error("no initial pass statistics emitted")
	}

	// The window graph drives the heatmap sender for the match.
	var ticked []*element.Element
	if errs := pl.Window.Tick("m1", 2000, func(e *element.Element) { ticked = append(ticked, e) }); len(errs) != 0 {
		t.Fatalf("window tick errors: %v", errs)
	}
	found := false
	for _, e := range ticked {
		if e.StreamName == element.StreamHeatmapStats {
			found = true
		}
	}
	if !found {
		t.Error("window tick produced no heatmap statistics")
	}
}
