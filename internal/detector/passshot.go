package detector

import (
	"math"

	"github.com/pable/go-pitch-stream/internal/element"
	"github.com/pable/go-pitch-stream/internal/geometry"
	"github.com/pable/go-pitch-stream/internal/schema"
	"github.com/pable/go-pitch-stream/internal/state"
)

// Goal and field area ids.
const (
	AreaField          = "field"
	AreaLeftGoal       = "leftGoal"
	AreaRightGoal      = "rightGoal"
	AreaAboveLeftGoal  = "slightlyAboveLeftGoal"
	AreaAboveRightGoal = "slightlyAboveRightGoal"
)

// Stores describing the last kick, written by a store module on the
// kickEvent stream, plus the classifier's private stores.
const (
	StoreKickTs       = "kickTs"
	StoreKickPlayer   = "kickPlayer"
	StoreKickTeam     = "kickTeam"
	StoreKickPos      = "kickPos"
	StoreKickPacking  = "kickPacking"
	StoreKickAttacked = "kickAttacked"
	StoreKickZone     = "kickZone"

	storeLastUsedKickTs = "lastUsedKickTs"
	storePassCounts     = "passCounts"
	storeShotCounts     = "shotCounts"
	storePassStatsInit  = "passStatsInitialized"
)

// PassShotConfig holds the classification thresholds.
type PassShotConfig struct {
	MaxTime                 int64   // ms between kick and receive
	SidewardsAngleThreshold float64 // radians
	GoalHeight              float64 // crossbar height, m
}

// PassShotClassifier pairs the last unconsumed kick with its outcome: a
// possession change (pass received) or a ball-area transition (goal frame
// entered, ball left the field). It emits the classified event and refreshed
// pass/shot statistics for the kicker and their team.
type PassShotClassifier struct {
	cfg    PassShotConfig
	shared *Shared

	kickTs       *state.SingleValueStore[int64]
	kickPlayer   *state.SingleValueStore[string]
	kickTeam     *state.SingleValueStore[string]
	kickPos      *state.SingleValueStore[geometry.Vec3]
	kickPacking  *state.SingleValueStore[int64]
	kickAttacked *state.SingleValueStore[bool]
	kickZone     *state.SingleValueStore[string]

	lastUsed   *state.SingleValueStore[int64]
	passCounts *state.SingleValueStore[map[string]int64]
	shotCounts *state.SingleValueStore[map[string]int64]
	statsInit  *state.SingleValueStore[bool]
}

func NewPassShotClassifier(b state.Backend, shared *Shared, cfg PassShotConfig) *PassShotClassifier {
	return &PassShotClassifier{
		cfg:          cfg,
		shared:       shared,
		kickTs:       state.NewSingleValue[int64](b, StoreKickTs, schema.No),
		kickPlayer:   state.NewSingleValue[string](b, StoreKickPlayer, schema.No),
		kickTeam:     state.NewSingleValue[string](b, StoreKickTeam, schema.No),
		kickPos:      state.NewSingleValue[geometry.Vec3](b, StoreKickPos, schema.No),
		kickPacking:  state.NewSingleValue[int64](b, StoreKickPacking, schema.No),
		kickAttacked: state.NewSingleValue[bool](b, StoreKickAttacked, schema.No),
		kickZone:     state.NewSingleValue[string](b, StoreKickZone, schema.No),
		lastUsed:     state.NewSingleValue[int64](b, storeLastUsedKickTs, schema.No),
		passCounts:   state.NewSingleValue[map[string]int64](b, storePassCounts, schema.No),
		shotCounts:   state.NewSingleValue[map[string]int64](b, storeShotCounts, schema.No),
		statsInit:    state.NewSingleValue[bool](b, storePassStatsInit, schema.No),
	}
}

func (d *PassShotClassifier) Name() string { return "passAndShotDetection" }

// kickInfo is the stored last kick.
type kickInfo struct {
	ts       int64
	player   string
	team     string
	pos      geometry.Vec3
	packing  int64
	attacked bool
	zone     string
}

func (d *PassShotClassifier) Process(e *element.Element) ([]*element.Element, error) {
	match := e.Key
	out := d.initialStatistics(e)

	kick, ok := d.unconsumedKick(match, e.Timestamp)
	if !ok {
		return out, nil
	}

	switch e.StreamName {
	case element.StreamBallPossessionChange:
		possessed, err := e.Bool("possessed")
		if err != nil {
			return out, err
		}
		if !possessed {
			return out, nil
		}
		evs, err := d.classifyReceive(e, kick)
		if err != nil {
			return out, err
		}
		return append(out, evs...), nil
	case element.StreamAreaEvent:
		evs, err := d.classifyAreaTransition(e, kick)
		if err != nil {
			return out, err
		}
		return append(out, evs...), nil
	default:
		return out, nil
	}
}

// unconsumedKick loads the stored kick if it has not been classified yet and
// is recent enough.
func (d *PassShotClassifier) unconsumedKick(match string, now int64) (kickInfo, bool) {
	ts, set := d.kickTs.TryGetKey(match, innerAll)
	if !set || d.lastUsed.GetKey(match, innerAll) >= ts {
		return kickInfo{}, false
	}
	if now-ts > d.cfg.MaxTime {
		return kickInfo{}, false
	}
	return kickInfo{
		ts:       ts,
		player:   d.kickPlayer.GetKey(match, innerAll),
		team:     d.kickTeam.GetKey(match, innerAll),
		pos:      d.kickPos.GetKey(match, innerAll),
		packing:  d.kickPacking.GetKey(match, innerAll),
		attacked: d.kickAttacked.GetKey(match, innerAll),
		zone:     d.kickZone.GetKey(match, innerAll),
	}, true
}

// classifyReceive handles the possession-change outcome: a pass that reached
// a player of the same team, an interception, or a clearance picked up by
// the other side.
func (d *PassShotClassifier) classifyReceive(e *element.Element, kick kickInfo) ([]*element.Element, error) {
	match := e.Key
	receiver, err := e.ObjectID(0)
	if err != nil {
		return nil, err
	}
	receiverTeam, err := e.GroupID(0)
	if err != nil {
		return nil, err
	}
	receivePos, err := e.Position(0)
	if err != nil {
		return nil, err
	}
	outcome := d.outcome(match, kick, receivePos, e.Timestamp)

	if receiverTeam == kick.team {
		receivePacking, err := e.Long("numPlayersNearerToGoal")
		if err != nil {
			return nil, err
		}
		// Only a fully read receive consumes the kick.
		d.lastUsed.PutKey(match, innerAll, kick.ts)
		packingDiff := kick.packing - receivePacking
		ev := element.NewSuccessfulPass(match, e.Timestamp, kick.player, receiver, kick.team,
			kick.pos, receivePos, outcome, packingDiff)
		return append([]*element.Element{ev},
			d.bumpPass(e, kick, map[string]int64{"successful": 1, dirKey(outcome): 1, "packingSum": packingDiff})...), nil
	}

	d.lastUsed.PutKey(match, innerAll, kick.ts)
	if kick.attacked && d.kickInOwnThird(match, kick) && !d.inOwnThird(match, kick.team, receivePos) {
		ev := element.NewClearance(match, e.Timestamp, kick.player, kick.team, kick.pos, receivePos, outcome)
		return append([]*element.Element{ev},
			d.bumpPass(e, kick, map[string]int64{"clearances": 1, dirKey(outcome): 1})...), nil
	}
	ev := element.NewInterception(match, e.Timestamp, kick.player, kick.team, receiver, receiverTeam,
		kick.pos, receivePos, outcome)
	return append([]*element.Element{ev},
		d.bumpPass(e, kick, map[string]int64{"intercepted": 1, dirKey(outcome): 1})...), nil
}

// classifyAreaTransition handles the area outcomes: the ball entering a goal
// frame (goal, shot off target or clearance) or leaving the field
// (misplaced pass or clearance).
func (d *PassShotClassifier) classifyAreaTransition(e *element.Element, kick kickInfo) ([]*element.Element, error) {
	match := e.Key
	areaID, err := e.String("areaId")
	if err != nil {
		return nil, err
	}
	inArea, err := e.Bool("inArea")
	if err != nil {
		return nil, err
	}
	receivePos, err := e.Position(0)
	if err != nil {
		return nil, err
	}
	outcome := d.outcome(match, kick, receivePos, e.Timestamp)

	switch {
	case inArea && (areaID == AreaLeftGoal || areaID == AreaRightGoal):
		d.lastUsed.PutKey(match, innerAll, kick.ts)
		if receivePos.Z < d.cfg.GoalHeight {
			ev := element.NewGoal(match, e.Timestamp, kick.player, kick.team, kick.pos, receivePos, outcome)
			return append([]*element.Element{ev}, d.bumpShot(e, kick, "goals")...), nil
		}
		return d.missedGoalFrame(e, kick, areaID == AreaLeftGoal, receivePos, outcome), nil

	case inArea && (areaID == AreaAboveLeftGoal || areaID == AreaAboveRightGoal):
		d.lastUsed.PutKey(match, innerAll, kick.ts)
		return d.missedGoalFrame(e, kick, areaID == AreaAboveLeftGoal, receivePos, outcome), nil

	case !inArea && areaID == AreaField:
		d.lastUsed.PutKey(match, innerAll, kick.ts)
		if kick.attacked && d.kickInOwnThird(match, kick) {
			ev := element.NewClearance(match, e.Timestamp, kick.player, kick.team, kick.pos, receivePos, outcome)
			return append([]*element.Element{ev},
				d.bumpPass(e, kick, map[string]int64{"clearances": 1, dirKey(outcome): 1})...), nil
		}
		ev := element.NewMisplacedPass(match, e.Timestamp, kick.player, kick.team, kick.pos, receivePos, outcome)
		return append([]*element.Element{ev},
			d.bumpPass(e, kick, map[string]int64{"misplaced": 1, dirKey(outcome): 1})...), nil
	}
	return nil, nil
}

// missedGoalFrame classifies a ball over or beside a goal frame: a clearance
// when the kick was contested in the own third, a misplaced pass over the
// kicker's own goal, a shot off target otherwise.
func (d *PassShotClassifier) missedGoalFrame(e *element.Element, kick kickInfo, leftSide bool, receivePos geometry.Vec3, outcome element.PassOutcome) []*element.Element {
	match := e.Key
	if kick.attacked && d.kickInOwnThird(match, kick) {
		ev := element.NewClearance(match, e.Timestamp, kick.player, kick.team, kick.pos, receivePos, outcome)
		return append([]*element.Element{ev},
			d.bumpPass(e, kick, map[string]int64{"clearances": 1, dirKey(outcome): 1})...)
	}
	ownSide := leftSide == (kick.team == d.shared.LeftTeam.GetKey(match, innerAll))
	if ownSide {
		ev := element.NewMisplacedPass(match, e.Timestamp, kick.player, kick.team, kick.pos, receivePos, outcome)
		return append([]*element.Element{ev},
			d.bumpPass(e, kick, map[string]int64{"misplaced": 1, dirKey(outcome): 1})...)
	}
	ev := element.NewShotOffTarget(match, e.Timestamp, kick.player, kick.team, kick.pos, receivePos, outcome)
	return append([]*element.Element{ev}, d.bumpShot(e, kick, "shotsOffTarget")...)
}

// outcome measures the kick: length, velocity, angle to the kicker team's
// playing direction and the derived direction category.
func (d *PassShotClassifier) outcome(match string, kick kickInfo, receivePos geometry.Vec3, receiveTs int64) element.PassOutcome {
	delta := receivePos.Sub(kick.pos)
	length := delta.Norm()
	var velocity float64
	if dt := float64(receiveTs-kick.ts) / 1000; dt > 0 {
		velocity = length / dt
	}
	leftTeam := d.shared.LeftTeam.GetKey(match, innerAll)
	dir := geometry.Vec3{X: 1}
	if kick.team != leftTeam {
		dir.X = -1
	}
	angle := delta.AngleTo(dir)

	category := element.DirectionForward
	switch {
	case angle <= d.cfg.SidewardsAngleThreshold:
		category = element.DirectionForward
	case angle >= math.Pi-d.cfg.SidewardsAngleThreshold:
		category = element.DirectionBackward
	case delta.Y*dir.X > 0:
		category = element.DirectionLeft
	default:
		category = element.DirectionRight
	}
	return element.PassOutcome{Length: length, Velocity: velocity, Angle: angle, DirectionCategory: category}
}

// kickInOwnThird reports whether the stored kick zone is the kicker team's
// defensive third.
func (d *PassShotClassifier) kickInOwnThird(match string, kick kickInfo) bool {
	leftTeam := d.shared.LeftTeam.GetKey(match, innerAll)
	if kick.team == leftTeam {
		return kick.zone == ZoneLeft
	}
	return kick.zone == ZoneRight
}

// inOwnThird reports whether a position lies in the given team's defensive
// third of the field.
func (d *PassShotClassifier) inOwnThird(match, team string, pos geometry.Vec3) bool {
	length := d.shared.FieldLength.GetKey(match, innerAll)
	if team == d.shared.LeftTeam.GetKey(match, innerAll) {
		return pos.X < -length/6
	}
	return pos.X > length/6
}

// bumpPass updates the pass counters of the kicker and their team and emits
// the refreshed statistics, player first.
func (d *PassShotClassifier) bumpPass(e *element.Element, kick kickInfo, deltas map[string]int64) []*element.Element {
	match := e.Key
	playerCounts := bumpCounts(d.passCounts, match, kick.player, deltas)
	teamCounts := bumpCounts(d.passCounts, match, kick.team, deltas)
	return []*element.Element{
		element.NewPassStatistics(match, e.Timestamp, kick.player, kick.team, passStatsOf(playerCounts)),
		element.NewPassStatistics(match, e.Timestamp, "", kick.team, passStatsOf(teamCounts)),
	}
}

// bumpShot updates one shot counter for the kicker and their team and emits
// the refreshed shot statistics.
func (d *PassShotClassifier) bumpShot(e *element.Element, kick kickInfo, key string) []*element.Element {
	match := e.Key
	playerCounts := bumpCounts(d.shotCounts, match, kick.player, map[string]int64{key: 1})
	teamCounts := bumpCounts(d.shotCounts, match, kick.team, map[string]int64{key: 1})
	return []*element.Element{
		element.NewShotStatistics(match, e.Timestamp, kick.player, kick.team, playerCounts["shotsOffTarget"], playerCounts["goals"]),
		element.NewShotStatistics(match, e.Timestamp, "", kick.team, teamCounts["shotsOffTarget"], teamCounts["goals"]),
	}
}

// initialStatistics emits zeroed statistics for every player and team once
// per match, so consumers see a row before the first classified kick.
func (d *PassShotClassifier) initialStatistics(e *element.Element) []*element.Element {
	match := e.Key
	if d.statsInit.GetKey(match, innerAll) {
		return nil
	}
	d.statsInit.PutKey(match, innerAll, true)
	var out []*element.Element
	for _, item := range Items(d.shared.Cohort) {
		out = append(out,
			element.NewPassStatistics(match, e.Timestamp, item.PlayerID, item.TeamID, element.PassStats{}),
			element.NewShotStatistics(match, e.Timestamp, item.PlayerID, item.TeamID, 0, 0))
	}
	return out
}

func passStatsOf(c map[string]int64) element.PassStats {
	return element.PassStats{
		Successful:  c["successful"],
		Intercepted: c["intercepted"],
		Misplaced:   c["misplaced"],
		Clearances:  c["clearances"],
		Forward:     c["forward"],
		Backward:    c["backward"],
		Left:        c["left"],
		Right:       c["right"],
		PackingSum:  c["packingSum"],
	}
}

func dirKey(o element.PassOutcome) string {
	switch o.DirectionCategory {
	case element.DirectionForward:
		return "forward"
	case element.DirectionBackward:
		return "backward"
	case element.DirectionLeft:
		return "left"
	default:
		return "right"
	}
}
