package detector

import (
	"github.com/pable/go-pitch-stream/internal/element"
	"github.com/pable/go-pitch-stream/internal/geometry"
	"github.com/pable/go-pitch-stream/internal/schema"
	"github.com/pable/go-pitch-stream/internal/state"
)

const (
	storeSetPlayPendingType = "setPlayPendingType"
	storeSetPlayPendingTeam = "setPlayPendingTeam"
	storeSetPlayQuietSince  = "setPlayQuiescentSince"
	storeSetPlayFlagged     = "setPlayFlagged"
)

// SetPlayConfig holds the set-play recognition thresholds.
type SetPlayConfig struct {
	QuiescenceSpeed float64 // ball slower than this counts as resting, m/s
	QuiescenceTime  int64   // ms of rest before a free kick is assumed
	PenaltySpotDist float64 // max distance to a penalty spot, m
	MidcircleRadius float64 // rest near the midpoint is a kickoff, not a set play
}

// SetPlayDetector derives set plays from ball-area transitions and ball
// quiescence: leaving the field pends a throw-in, corner or goal kick which
// fires on re-entry; a resting ball inside the field signals a free kick, or
// a penalty when it rests on a penalty spot.
type SetPlayDetector struct {
	cfg    SetPlayConfig
	shared *Shared

	pendingType *state.SingleValueStore[string]
	pendingTeam *state.SingleValueStore[string]
	quietSince  *state.SingleValueStore[int64]
	flagged     *state.SingleValueStore[bool]
}

func NewSetPlayDetector(b state.Backend, shared *Shared, cfg SetPlayConfig) *SetPlayDetector {
	if cfg.MidcircleRadius == 0 {
		cfg.MidcircleRadius = 9.15
	}
	return &SetPlayDetector{
		cfg:         cfg,
		shared:      shared,
		pendingType: state.NewSingleValue[string](b, storeSetPlayPendingType, schema.No),
		pendingTeam: state.NewSingleValue[string](b, storeSetPlayPendingTeam, schema.No),
		quietSince:  state.NewSingleValue[int64](b, storeSetPlayQuietSince, schema.No),
		flagged:     state.NewSingleValue[bool](b, storeSetPlayFlagged, schema.No),
	}
}

func (d *SetPlayDetector) Name() string { return "setPlayDetection" }

func (d *SetPlayDetector) Process(e *element.Element) ([]*element.Element, error) {
	switch e.StreamName {
	case element.StreamAreaEvent:
		return d.fieldTransition(e)
	case element.StreamFieldObjectState:
		return d.quiescenceTick(e)
	}
	return nil, nil
}

// fieldTransition pends a restart when the ball leaves the field and fires
// it when the ball comes back.
func (d *SetPlayDetector) fieldTransition(e *element.Element) ([]*element.Element, error) {
	areaID, err := e.String("areaId")
	if err != nil {
		return nil, err
	}
	if areaID != AreaField {
		return nil, nil
	}
	inArea, err := e.Bool("inArea")
	if err != nil {
		return nil, err
	}
	pos, err := e.Position(0)
	if err != nil {
		return nil, err
	}
	match := e.Key

	if !inArea {
		kind, team := d.classifyExit(match, pos)
		if team != "" {
			d.pendingType.PutKey(match, innerAll, kind)
			d.pendingTeam.PutKey(match, innerAll, team)
		}
		return nil, nil
	}

	kind := d.pendingType.GetKey(match, innerAll)
	if kind == "" {
		return nil, nil
	}
	team := d.pendingTeam.GetKey(match, innerAll)
	d.pendingType.PutKey(match, innerAll, "")
	d.pendingTeam.PutKey(match, innerAll, "")
	return []*element.Element{element.NewSetPlayEvent(match, e.Timestamp, kind, team, pos)}, nil
}

// classifyExit decides what restart an out-of-field ball earns and for whom,
// from the exit position and the team that touched the ball last.
func (d *SetPlayDetector) classifyExit(match string, pos geometry.Vec3) (string, string) {
	lastTouch := d.shared.TeamInPossession.GetKey(match, innerAll)
	leftTeam := d.shared.LeftTeam.GetKey(match, innerAll)
	rightTeam := d.shared.RightTeam.GetKey(match, innerAll)
	if lastTouch == "" || leftTeam == "" || rightTeam == "" {
		return "", ""
	}
	opponent := leftTeam
	if lastTouch == leftTeam {
		opponent = rightTeam
	}

	halfL := d.shared.FieldLength.GetKey(match, innerAll) / 2
	if pos.X < -halfL || pos.X > halfL {
		defending := leftTeam
		if pos.X > halfL {
			defending = rightTeam
		}
		if lastTouch == defending {
			return element.SetPlayCornerKick, opponent
		}
		return element.SetPlayGoalKick, defending
	}
	return element.SetPlayThrowIn, opponent
}

// quiescenceTick flags a free kick (or penalty) when the ball rests inside
// the field away from the midpoint.
func (d *SetPlayDetector) quiescenceTick(e *element.Element) ([]*element.Element, error) {
	match := e.Key
	vabs, err := e.Double("vabs")
	if err != nil {
		return nil, err
	}
	pos, err := e.Position(0)
	if err != nil {
		return nil, err
	}

	if vabs >= d.cfg.QuiescenceSpeed || !d.shared.BallInFieldOr(match, true) {
		d.quietSince.PutKey(match, innerAll, 0)
		d.flagged.PutKey(match, innerAll, false)
		return nil, nil
	}
	if pos.NormXY() < d.cfg.MidcircleRadius {
		return nil, nil
	}

	since := d.quietSince.GetKey(match, innerAll)
	if since == 0 {
		d.quietSince.PutKey(match, innerAll, e.Timestamp)
		return nil, nil
	}
	if e.Timestamp-since <= d.cfg.QuiescenceTime || d.flagged.GetKey(match, innerAll) {
		return nil, nil
	}
	team := d.shared.TeamInPossession.GetKey(match, innerAll)
	if team == "" {
		return nil, nil
	}
	d.flagged.PutKey(match, innerAll, true)

	kind := element.SetPlayFreeKick
	halfL := d.shared.FieldLength.GetKey(match, innerAll) / 2
	for _, spotX := range []float64{halfL - 11, -(halfL - 11)} {
		if pos.DistanceXY(geometry.Vec3{X: spotX}) < d.cfg.PenaltySpotDist {
			kind = element.SetPlayPenalty
			break
		}
	}
	return []*element.Element{element.NewSetPlayEvent(match, e.Timestamp, kind, team, pos)}, nil
}
