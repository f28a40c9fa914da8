package detector

import (
	"testing"

	"github.com/pable/go-pitch-stream/internal/config"
	"github.com/pable/go-pitch-stream/internal/element"
	"github.com/pable/go-pitch-stream/internal/geometry"
	"github.com/pable/go-pitch-stream/internal/state"
)

const (
	testMatch = "m1"
	ballID    = "ball"
)

func testCohort() *config.Cohort {
	return &config.Cohort{
		Players: []config.PlayerSpec{
			{ID: "p1", TeamID: "home"}, {ID: "p2", TeamID: "home"},
			{ID: "p3", TeamID: "away"}, {ID: "p4", TeamID: "away"},
		},
		Teams:  []string{"home", "away"},
		BallID: ballID,
	}
}

// fixture wires a memory backend and the shared store bundle the way the
// pipeline does, with helpers to seed the state the store modules would
// normally write.
type fixture struct {
	t      *testing.T
	b      state.Backend
	shared *Shared
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	b := state.NewMemory()
	return &fixture{t: t, b: b, shared: NewShared(b, testCohort())}
}

func (f *fixture) setField(length, width float64) {
	f.shared.FieldLength.PutKey(testMatch, innerAll, length)
	f.shared.FieldWidth.PutKey(testMatch, innerAll, width)
}

func (f *fixture) setSides(left, right string) {
	f.shared.LeftTeam.PutKey(testMatch, innerAll, left)
	f.shared.RightTeam.PutKey(testMatch, innerAll, right)
}

func (f *fixture) place(objectID string, pos geometry.Vec3) {
	f.shared.Position.PutKey(testMatch, objectID, pos)
}

func (f *fixture) setPossession(playerID, teamID string) {
	f.shared.PlayerInPossession.PutKey(testMatch, innerAll, playerID)
	f.shared.TeamInPossession.PutKey(testMatch, innerAll, teamID)
}

// seedBallHistory appends samples oldest first, the order the store modules
// see them in.
func (f *fixture) seedBallHistory(positions []geometry.Vec3, vabs []float64) {
	for _, p := range positions {
		f.shared.PositionHist.AddKey(testMatch, ballID, p)
	}
	for _, v := range vabs {
		f.shared.VabsHist.AddKey(testMatch, ballID, v)
	}
}

func ballState(ts int64, pos geometry.Vec3, vabs float64) *element.Element {
	return element.NewFieldObjectState(testMatch, ts, ballID, "none", pos, geometry.Vec3{}, vabs)
}

func streamsOf(elems []*element.Element) []string {
	out := make([]string, len(elems))
	for i, e := range elems {
		out[i] = e.StreamName
	}
	return out
}

func onlyStream(elems []*element.Element, stream string) []*element.Element {
	var out []*element.Element
	for _, e := range elems {
		if e.StreamName == stream {
			out = append(out, e)
		}
	}
	return out
}

func almostEqual(a, b float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < 1e-9
}
