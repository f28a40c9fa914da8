package detector

import (
	"github.com/pable/go-pitch-stream/internal/element"
	"github.com/pable/go-pitch-stream/internal/schema"
	"github.com/pable/go-pitch-stream/internal/state"
)

// Zone names carried by kickEvent.
const (
	ZoneLeft    = "left"
	ZoneCenter  = "center"
	ZoneRight   = "right"
	ZoneOutside = "outside"
)

// Third-of-field area ids the area detector maintains for the ball.
const (
	AreaLeftThird   = "leftThird"
	AreaCenterThird = "centerThird"
	AreaRightThird  = "rightThird"
)

const storeActiveKick = "activeKick"

// KickConfig holds the kick-detection thresholds.
type KickConfig struct {
	MinKickDist     float64 // ball past this distance from the possessor means a kick
	MaxBallbackDist float64 // ball back within this distance re-arms detection
	// AttackedPressingThreshold marks a kick as attacked when the pressing
	// index is at least this high, in addition to a running duel.
	AttackedPressingThreshold float64
}

// KickDetector flags the moment the ball leaves the possessing player. One
// kick is reported per separation episode; the flag re-arms when the ball
// returns close to the (new) possessor.
type KickDetector struct {
	cfg    KickConfig
	shared *Shared

	activeKick *state.SingleValueStore[bool]
}

func NewKickDetector(b state.Backend, shared *Shared, cfg KickConfig) *KickDetector {
	return &KickDetector{
		cfg:        cfg,
		shared:     shared,
		activeKick: state.NewSingleValue[bool](b, storeActiveKick, schema.No),
	}
}

func (d *KickDetector) Name() string { return "kickDetection" }

func (d *KickDetector) Process(e *element.Element) ([]*element.Element, error) {
	match := e.Key
	holder := d.shared.PlayerInPossession.GetKey(match, innerAll)
	if holder == "" {
		return nil, nil
	}
	ballPos, err := e.Position(0)
	if err != nil {
		return nil, err
	}
	ballID, err := e.ObjectID(0)
	if err != nil {
		return nil, err
	}
	holderPos, ok := d.shared.Position.TryGetKey(match, holder)
	if !ok {
		return nil, nil
	}

	dist := ballPos.DistanceXY(holderPos)
	var out []*element.Element
	if dist > d.cfg.MinKickDist && !d.activeKick.GetKey(match, innerAll) {
		d.activeKick.PutKey(match, innerAll, true)
		team := d.shared.TeamInPossession.GetKey(match, innerAll)
		packing := d.shared.Packing(match, team, ballPos)
		out = append(out, element.NewKickEvent(match, e.Timestamp, holder, team, ballPos,
			packing, d.attacked(match), d.zone(match, ballID)))
	}
	if dist < d.cfg.MaxBallbackDist {
		d.activeKick.PutKey(match, innerAll, false)
	}
	return out, nil
}

// attacked reports whether the kicker was contested: a duel episode that has
// not ended, or defenders pressing hard enough.
func (d *KickDetector) attacked(match string) bool {
	phase, set := d.shared.DuelPhase.TryGetKey(match, innerAll)
	if set && phase != string(element.PhaseEnd) {
		return true
	}
	if d.cfg.AttackedPressingThreshold > 0 &&
		d.shared.PressingIndex.GetKey(match, innerAll) >= d.cfg.AttackedPressingThreshold {
		return true
	}
	return false
}

// zone classifies the kick position from the ball's third-of-field flags.
func (d *KickDetector) zone(match, ballID string) string {
	switch {
	case d.shared.AreaFlag.GetKey(match, flagKey(ballID, AreaLeftThird)):
		return ZoneLeft
	case d.shared.AreaFlag.GetKey(match, flagKey(ballID, AreaCenterThird)):
		return ZoneCenter
	case d.shared.AreaFlag.GetKey(match, flagKey(ballID, AreaRightThird)):
		return ZoneRight
	default:
		return ZoneOutside
	}
}
