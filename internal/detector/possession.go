package detector

import (
	"fmt"

	"github.com/pable/go-pitch-stream/internal/element"
	"github.com/pable/go-pitch-stream/internal/geometry"
	"github.com/pable/go-pitch-stream/internal/schema"
	"github.com/pable/go-pitch-stream/internal/state"
)

// Private stores of the duel state machine.
const (
	storeDuelActive   = "duelActive"
	storeDuelDefender = "duelDefender"
	storeDuelAttacker = "duelAttacker"
	storeDuelDefTeam  = "duelDefenderTeam"
	storeDuelAttTeam  = "duelAttackerTeam"
	storeDuelCounter  = "duelCounter"
	storeDuelSeq      = "duelCounterSeq"
)

// PossessionConfig holds the ball-hit and possession thresholds.
type PossessionConfig struct {
	MaxVabsForVabsDiff          float64
	MinVabsDiff                 float64
	MinMovingDirAngleDiff       float64 // radians
	MaxBallPossessionChangeDist float64
	MaxDuelDist                 float64
}

// PossessionDetector derives ball-possession changes and duel episodes from
// ball field-object-states. It consumes one ball element per tick.
type PossessionDetector struct {
	cfg    PossessionConfig
	shared *Shared

	duelActive   *state.SingleValueStore[bool]
	duelDefender *state.SingleValueStore[string]
	duelAttacker *state.SingleValueStore[string]
	duelDefTeam  *state.SingleValueStore[string]
	duelAttTeam  *state.SingleValueStore[string]
	duelCounter  *state.SingleValueStore[int64]
	duelSeq      *state.SingleValueStore[int64]
}

func NewPossessionDetector(b state.Backend, shared *Shared, cfg PossessionConfig) *PossessionDetector {
	return &PossessionDetector{
		cfg:          cfg,
		shared:       shared,
		duelActive:   state.NewSingleValue[bool](b, storeDuelActive, schema.No),
		duelDefender: state.NewSingleValue[string](b, storeDuelDefender, schema.No),
		duelAttacker: state.NewSingleValue[string](b, storeDuelAttacker, schema.No),
		duelDefTeam:  state.NewSingleValue[string](b, storeDuelDefTeam, schema.No),
		duelAttTeam:  state.NewSingleValue[string](b, storeDuelAttTeam, schema.No),
		duelCounter:  state.NewSingleValue[int64](b, storeDuelCounter, schema.No),
		duelSeq:      state.NewSingleValue[int64](b, storeDuelSeq, schema.No),
	}
}

func (d *PossessionDetector) Name() string { return "ballPossessionDetection" }

func (d *PossessionDetector) Process(e *element.Element) ([]*element.Element, error) {
	match := e.Key
	ballPos, err := e.Position(0)
	if err != nil {
		return nil, err
	}

	var out []*element.Element

	// Ball off the field resets possession and ends any running duel.
	if !d.shared.BallInFieldOr(match, true) {
		if d.shared.PlayerInPossession.GetKey(match, innerAll) != "" {
			d.shared.PlayerInPossession.PutKey(match, innerAll, "")
			d.shared.TeamInPossession.PutKey(match, innerAll, "")
			out = append(out, element.NewBallPossessionCleared(match, e.Timestamp, ballPos))
		}
		out = append(out, d.endDuel(e)...)
		return out, nil
	}

	hit, err := d.ballHit(e)
	if err != nil {
		return nil, err
	}
	if hit {
		if ev := d.possessionChange(e, ballPos); ev != nil {
			out = append(out, ev)
		}
	}

	out = append(out, d.duelTick(e, ballPos)...)
	return out, nil
}

// ballHit decides whether the ball was touched this tick, from its two most
// recent speeds and three most recent positions.
func (d *PossessionDetector) ballHit(e *element.Element) (bool, error) {
	objectID, err := e.ObjectID(0)
	if err != nil {
		return false, err
	}
	vabs := d.shared.VabsHist.ListKey(e.Key, objectID)
	poss := d.shared.PositionHist.ListKey(e.Key, objectID)
	if len(vabs) < 2 || len(poss) < 3 {
		return false, fmt.Errorf("ball hit detection for %s: %w", e.Key, ErrInsufficientHistory)
	}
	if vabs[0] < d.cfg.MaxVabsForVabsDiff && abs(vabs[1]-vabs[0]) > d.cfg.MinVabsDiff {
		return true, nil
	}
	newer := poss[0].Sub(poss[1])
	older := poss[1].Sub(poss[2])
	return newer.AngleTo(older) > d.cfg.MinMovingDirAngleDiff, nil
}

// possessionChange assigns possession to the nearest player within reach, if
// that changes anything, and emits the change event with the packing value.
func (d *PossessionDetector) possessionChange(e *element.Element, ballPos geometry.Vec3) *element.Element {
	match := e.Key
	players := d.shared.playersByDistance(match, ballPos)
	if len(players) == 0 || players[0].dist > d.cfg.MaxBallPossessionChangeDist {
		return nil
	}
	nearest := players[0]
	if nearest.id == d.shared.PlayerInPossession.GetKey(match, innerAll) {
		return nil
	}
	d.shared.PlayerInPossession.PutKey(match, innerAll, nearest.id)
	d.shared.TeamInPossession.PutKey(match, innerAll, nearest.team)
	packing := d.shared.Packing(match, nearest.team, nearest.pos)
	return element.NewBallPossessionChange(match, e.Timestamp, nearest.id, nearest.team, ballPos, packing)
}

// duelTick advances the duel state machine for one ball tick.
func (d *PossessionDetector) duelTick(e *element.Element, ballPos geometry.Vec3) []*element.Element {
	match := e.Key
	holder := d.shared.PlayerInPossession.GetKey(match, innerAll)
	if holder == "" {
		return nil
	}

	if d.duelActive.GetKey(match, innerAll) && d.duelDefender.GetKey(match, innerAll) != holder {
		return d.endDuel(e)
	}

	players := d.shared.playersByDistance(match, ballPos)
	near := players[:0]
	for _, p := range players {
		if p.dist <= d.cfg.MaxDuelDist {
			near = append(near, p)
		}
	}
	active := d.duelActive.GetKey(match, innerAll)

	if len(near) != 2 {
		if active {
			return d.endDuel(e)
		}
		return nil
	}
	defender, attacker := near[0], near[1]
	if attacker.id == holder {
		defender, attacker = attacker, defender
	}
	if defender.id != holder || defender.team == attacker.team {
		if active {
			return d.endDuel(e)
		}
		return nil
	}

	if !active {
		counter := state.Increase(d.duelSeq, match, innerAll, 1)
		d.duelActive.PutKey(match, innerAll, true)
		d.duelDefender.PutKey(match, innerAll, defender.id)
		d.duelAttacker.PutKey(match, innerAll, attacker.id)
		d.duelDefTeam.PutKey(match, innerAll, defender.team)
		d.duelAttTeam.PutKey(match, innerAll, attacker.team)
		d.duelCounter.PutKey(match, innerAll, counter)
		return []*element.Element{element.NewDuelEvent(match, e.Timestamp, element.PhaseStart, counter,
			defender.id, defender.team, attacker.id, attacker.team, ballPos)}
	}
	if attacker.id == d.duelAttacker.GetKey(match, innerAll) {
		return []*element.Element{element.NewDuelEvent(match, e.Timestamp, element.PhaseActive,
			d.duelCounter.GetKey(match, innerAll),
			defender.id, defender.team, attacker.id, attacker.team, ballPos)}
	}
	return d.endDuel(e)
}

// endDuel emits the END phase for the stored episode, if one is running.
func (d *PossessionDetector) endDuel(e *element.Element) []*element.Element {
	match := e.Key
	if !d.duelActive.GetKey(match, innerAll) {
		return nil
	}
	d.duelActive.PutKey(match, innerAll, false)
	ballPos, _ := e.Position(0)
	return []*element.Element{element.NewDuelEvent(match, e.Timestamp, element.PhaseEnd,
		d.duelCounter.GetKey(match, innerAll),
		d.duelDefender.GetKey(match, innerAll), d.duelDefTeam.GetKey(match, innerAll),
		d.duelAttacker.GetKey(match, innerAll), d.duelAttTeam.GetKey(match, innerAll),
		ballPos)}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
