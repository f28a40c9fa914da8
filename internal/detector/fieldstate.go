package detector

import (
	"fmt"
	"math"
	"sync"

	"github.com/pable/go-pitch-stream/internal/config"
	"github.com/pable/go-pitch-stream/internal/element"
	"github.com/pable/go-pitch-stream/internal/geometry"
	"github.com/pable/go-pitch-stream/internal/schema"
	"github.com/pable/go-pitch-stream/internal/state"
)

// Store names of the raw-sample histories and the per-match metadata the
// generator consumes. Metadata stores are fed by a store module on the
// matchMetadata stream.
const (
	StoreRawTsHistory  = "rawTimestampHistory"
	StoreRawPosHistory = "rawPositionHistory"
	StoreMirroredX     = "mirroredX"
	StoreMirroredY     = "mirroredY"
	StoreObjectRenames = "objectRenames"
	StoreTeamRenames   = "teamRenames"
)

// FieldStateConfig scales raw sensor readings to SI units.
type FieldStateConfig struct {
	PositionScale float64 // raw units per meter inverse, applied multiplicatively
	TimeScale     float64 // raw timestamp units per millisecond
}

// FieldStateGenerator turns raw positional sensor samples into enriched
// fieldObjectState elements: velocity from the two most recent samples,
// renamed ids, SI units, mirrored axes.
type FieldStateGenerator struct {
	cfg    FieldStateConfig
	shared *Shared

	tsHist  *state.HistoryStore[int64]
	posHist *state.HistoryStore[geometry.Vec3]
	mirX    *state.SingleValueStore[bool]
	mirY    *state.SingleValueStore[bool]
	objRen  *state.SingleValueStore[string]
	teamRen *state.SingleValueStore[string]

	// rename maps are parsed once per match and cached; the cache is the
	// only detector state shared across per-match goroutines.
	renames sync.Map // match id -> *renameMaps
}

type renameMaps struct {
	objects map[string]string
	teams   map[string]string
}

func NewFieldStateGenerator(b state.Backend, shared *Shared, cfg FieldStateConfig) *FieldStateGenerator {
	if cfg.PositionScale == 0 {
		cfg.PositionScale = 1
	}
	if cfg.TimeScale == 0 {
		cfg.TimeScale = 1
	}
	obj := schema.ObjectID(0)
	return &FieldStateGenerator{
		cfg:     cfg,
		shared:  shared,
		tsHist:  state.NewHistory[int64](b, StoreRawTsHistory, obj, 2),
		posHist: state.NewHistory[geometry.Vec3](b, StoreRawPosHistory, obj, 2),
		mirX:    state.NewSingleValue[bool](b, StoreMirroredX, schema.No),
		mirY:    state.NewSingleValue[bool](b, StoreMirroredY, schema.No),
		objRen:  state.NewSingleValue[string](b, StoreObjectRenames, schema.No),
		teamRen: state.NewSingleValue[string](b, StoreTeamRenames, schema.No),
	}
}

func (g *FieldStateGenerator) Name() string { return "fieldObjectStateGeneration" }

func (g *FieldStateGenerator) Process(e *element.Element) ([]*element.Element, error) {
	objectID, err := e.ObjectID(0)
	if err != nil {
		return nil, err
	}
	groupID, err := e.GroupID(0)
	if err != nil {
		return nil, err
	}
	rawPos, err := e.Position(0)
	if err != nil {
		return nil, err
	}

	if err := g.tsHist.Add(e, e.Timestamp); err != nil {
		return nil, err
	}
	if err := g.posHist.Add(e, rawPos); err != nil {
		return nil, err
	}

	tss := g.tsHist.ListKey(e.Key, objectID)
	poss := g.posHist.ListKey(e.Key, objectID)

	// Velocity from the two most recent samples, in raw units per raw time;
	// a timestamp regression resets the derivation for this object.
	var rawVel geometry.Vec3
	if len(tss) >= 2 && len(poss) >= 2 && tss[0] > tss[1] {
		dt := float64(tss[0] - tss[1])
		rawVel = poss[0].Sub(poss[1]).Scale(1 / dt)
	}

	ren, err := g.renameMapsFor(e.Key)
	if err != nil {
		return nil, err
	}
	if to, ok := ren.objects[objectID]; ok {
		objectID = to
	}
	if to, ok := ren.teams[groupID]; ok {
		groupID = to
	}

	pos := rawPos.Scale(g.cfg.PositionScale)
	// raw velocity is per raw time unit; convert to m/s.
	vel := rawVel.Scale(g.cfg.PositionScale * 1000 / g.cfg.TimeScale)
	if g.mirX.GetKey(e.Key, innerAll) {
		pos.X, vel.X = -pos.X, -vel.X
	}
	if g.mirY.GetKey(e.Key, innerAll) {
		pos.Y, vel.Y = -pos.Y, -vel.Y
	}
	vabs := math.Sqrt(vel.X*vel.X + vel.Y*vel.Y + vel.Z*vel.Z)

	ts := int64(float64(e.Timestamp) / g.cfg.TimeScale)
	return []*element.Element{
		element.NewFieldObjectState(e.Key, ts, objectID, groupID, pos, vel, vabs),
	}, nil
}

func (g *FieldStateGenerator) renameMapsFor(match string) (*renameMaps, error) {
	if cached, ok := g.renames.Load(match); ok {
		return cached.(*renameMaps), nil
	}
	objRaw, objSet := g.objRen.TryGetKey(match, innerAll)
	teamRaw, teamSet := g.teamRen.TryGetKey(match, innerAll)
	if !objSet && !teamSet {
		// metadata not seen yet; keep parsing lazily until it is
		return &renameMaps{}, nil
	}
	objects, err := config.ParseRenames(objRaw)
	if err != nil {
		return nil, fmt.Errorf("object renames for %s: %w", match, err)
	}
	teams, err := config.ParseRenames(teamRaw)
	if err != nil {
		return nil, fmt.Errorf("team renames for %s: %w", match, err)
	}
	m := &renameMaps{objects: objects, teams: teams}
	g.renames.Store(match, m)
	return m, nil
}
