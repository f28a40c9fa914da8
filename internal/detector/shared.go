// Package detector holds the event-detection state machines that run on top
// of the state substrate and the processor graph. Detectors read state the
// co-located store modules write, keep their own episode state in private
// stores, and emit derived stream elements.
package detector

import (
	"errors"
	"sort"

	"github.com/pable/go-pitch-stream/internal/config"
	"github.com/pable/go-pitch-stream/internal/geometry"
	"github.com/pable/go-pitch-stream/internal/schema"
	"github.com/pable/go-pitch-stream/internal/state"
)

// ErrInsufficientHistory reports a derivation that needs more samples than
// the history stores hold yet. The element is dropped and logged.
var ErrInsufficientHistory = errors.New("insufficient history")

// innerAll is the inner key of match-global state entries.
const innerAll = "all"

// Store names shared between the store modules and the detectors. Two
// handles with the same name over the same backend address the same data.
const (
	StorePosition        = "position"
	StoreVelocity        = "velocity"
	StorePositionHistory = "positionHistory"
	StoreVabsHistory     = "vabsHistory"
	StoreFieldLength     = "fieldLength"
	StoreFieldWidth      = "fieldWidth"

	StorePlayerInPossession = "playerInBallPossession"
	StoreTeamInPossession   = "teamInBallPossession"
	StoreBallInField        = "ballInField"
	StoreLeftTeam           = "leftTeam"
	StoreRightTeam          = "rightTeam"
	StoreDuelPhase          = "duelPhase"
	StorePressingIndex      = "pressingIndex"
	StoreAreaFlag           = "areaFlag"
)

// Shared bundles the store handles most detectors read. All handles address
// the worker's backend; an unset entry reads as the zero value.
type Shared struct {
	Position     *state.SingleValueStore[geometry.Vec3]
	Velocity     *state.SingleValueStore[geometry.Vec3]
	PositionHist *state.HistoryStore[geometry.Vec3]
	VabsHist     *state.HistoryStore[float64]
	FieldLength  *state.SingleValueStore[float64]
	FieldWidth   *state.SingleValueStore[float64]

	PlayerInPossession *state.SingleValueStore[string]
	TeamInPossession   *state.SingleValueStore[string]
	BallInField        *state.SingleValueStore[bool]
	LeftTeam           *state.SingleValueStore[string]
	RightTeam          *state.SingleValueStore[string]
	DuelPhase          *state.SingleValueStore[string]
	PressingIndex      *state.SingleValueStore[float64]
	AreaFlag           *state.SingleValueStore[bool]

	Cohort *config.Cohort
}

func NewShared(b state.Backend, cohort *config.Cohort) *Shared {
	obj := schema.ObjectID(0)
	return &Shared{
		Position:     state.NewSingleValue[geometry.Vec3](b, StorePosition, obj),
		Velocity:     state.NewSingleValue[geometry.Vec3](b, StoreVelocity, obj),
		PositionHist: state.NewHistory[geometry.Vec3](b, StorePositionHistory, obj, 3),
		VabsHist:     state.NewHistory[float64](b, StoreVabsHistory, obj, 2),
		FieldLength:  state.NewSingleValue[float64](b, StoreFieldLength, schema.Static),
		FieldWidth:   state.NewSingleValue[float64](b, StoreFieldWidth, schema.Static),

		PlayerInPossession: state.NewSingleValue[string](b, StorePlayerInPossession, schema.No),
		TeamInPossession:   state.NewSingleValue[string](b, StoreTeamInPossession, schema.No),
		BallInField:        state.NewSingleValue[bool](b, StoreBallInField, schema.No),
		LeftTeam:           state.NewSingleValue[string](b, StoreLeftTeam, schema.No),
		RightTeam:          state.NewSingleValue[string](b, StoreRightTeam, schema.No),
		DuelPhase:          state.NewSingleValue[string](b, StoreDuelPhase, schema.No),
		PressingIndex:      state.NewSingleValue[float64](b, StorePressingIndex, schema.No),
		AreaFlag:           state.NewSingleValue[bool](b, StoreAreaFlag, schema.No),

		Cohort: cohort,
	}
}

// BallInFieldOr reads the ball-in-field flag; before the first area event the
// ball is assumed in play.
func (s *Shared) BallInFieldOr(match string, def bool) bool {
	v, ok := s.BallInField.TryGetKey(match, innerAll)
	if !ok {
		return def
	}
	return v
}

// playerDist is one cohort player with a known position and their XY
// distance to a reference point.
type playerDist struct {
	id   string
	team string
	pos  geometry.Vec3
	dist float64
}

// playersByDistance lists cohort players with stored positions ordered by XY
// distance to ref, nearest first.
func (s *Shared) playersByDistance(match string, ref geometry.Vec3) []playerDist {
	out := make([]playerDist, 0, len(s.Cohort.Players))
	for _, p := range s.Cohort.Players {
		pos, ok := s.Position.TryGetKey(match, p.ID)
		if !ok {
			continue
		}
		out = append(out, playerDist{id: p.ID, team: p.TeamID, pos: pos, dist: ref.DistanceXY(pos)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].dist < out[j].dist })
	return out
}

// Packing counts opposing players strictly closer to the goal the given team
// attacks than the reference point. The left team attacks the right goal at
// (+fieldLength/2, 0, 0).
func (s *Shared) Packing(match, team string, ref geometry.Vec3) int64 {
	length := s.FieldLength.GetKey(match, innerAll)
	goalX := length / 2
	if team != s.LeftTeam.GetKey(match, innerAll) {
		goalX = -goalX
	}
	goal := geometry.Vec3{X: goalX}
	refDist := ref.DistanceXY(goal)
	var n int64
	for _, p := range s.Cohort.Players {
		if p.TeamID == team {
			continue
		}
		pos, ok := s.Position.TryGetKey(match, p.ID)
		if !ok {
			continue
		}
		if pos.DistanceXY(goal) < refDist {
			n++
		}
	}
	return n
}

// Item is one statistics item: a player (with team) or, with an empty
// PlayerID, the team itself. Both project to a single inner-key string.
type Item struct {
	PlayerID string
	TeamID   string
}

func (i Item) InnerKey() string {
	if i.PlayerID != "" {
		return i.PlayerID
	}
	return i.TeamID
}

// Items lists every statistics item of a cohort: all players, then all teams.
func Items(c *config.Cohort) []Item {
	out := make([]Item, 0, len(c.Players)+len(c.Teams))
	for _, p := range c.Players {
		out = append(out, Item{PlayerID: p.ID, TeamID: p.TeamID})
	}
	for _, t := range c.Teams {
		out = append(out, Item{TeamID: t})
	}
	return out
}

// bumpCounts applies deltas to a counts-map entry and returns the updated
// map. The stored map is never mutated in place.
func bumpCounts(s *state.SingleValueStore[map[string]int64], match, inner string, deltas map[string]int64) map[string]int64 {
	cur := s.GetKey(match, inner)
	next := make(map[string]int64, len(cur)+len(deltas))
	for k, v := range cur {
		next[k] = v
	}
	for k, d := range deltas {
		next[k] += d
	}
	s.PutKey(match, inner, next)
	return next
}
