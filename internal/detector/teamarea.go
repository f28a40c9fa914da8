package detector

import (
	"github.com/pable/go-pitch-stream/internal/element"
	"github.com/pable/go-pitch-stream/internal/geometry"
	"github.com/pable/go-pitch-stream/internal/schema"
	"github.com/pable/go-pitch-stream/internal/state"
)

const (
	storeTeamMbrArea  = "teamMbrArea"
	storeTeamHullArea = "teamHullArea"

	areaChangeEpsilon = 1e-5
)

// TeamAreaDetector tracks the area a team covers: the minimum bounding
// rectangle and the convex hull of its player positions. A new state is
// emitted only when one of the two areas actually moved.
type TeamAreaDetector struct {
	shared *Shared

	mbr  *state.SingleValueStore[float64]
	hull *state.SingleValueStore[float64]
}

func NewTeamAreaDetector(b state.Backend, shared *Shared) *TeamAreaDetector {
	return &TeamAreaDetector{
		shared: shared,
		mbr:    state.NewSingleValue[float64](b, storeTeamMbrArea, schema.No),
		hull:   state.NewSingleValue[float64](b, storeTeamHullArea, schema.No),
	}
}

func (d *TeamAreaDetector) Name() string { return "teamAreaDetection" }

func (d *TeamAreaDetector) Process(e *element.Element) ([]*element.Element, error) {
	teamID, err := e.GroupID(0)
	if err != nil {
		return nil, err
	}
	match := e.Key

	var points []geometry.Vec3
	for _, p := range d.shared.Cohort.Players {
		if p.TeamID != teamID {
			continue
		}
		pos, ok := d.shared.Position.TryGetKey(match, p.ID)
		if !ok {
			continue
		}
		points = append(points, pos)
	}
	if len(points) < 3 {
		return nil, nil
	}

	mbr := geometry.BoundingRectArea(points)
	hull := geometry.PolygonArea(geometry.ConvexHull(points))

	if abs(mbr-d.mbr.GetKey(match, teamID)) <= areaChangeEpsilon &&
		abs(hull-d.hull.GetKey(match, teamID)) <= areaChangeEpsilon {
		return nil, nil
	}
	d.mbr.PutKey(match, teamID, mbr)
	d.hull.PutKey(match, teamID, hull)
	return []*element.Element{element.NewTeamAreaState(match, e.Timestamp, teamID, mbr, hull)}, nil
}
