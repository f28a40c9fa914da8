package detector

import (
	"github.com/pable/go-pitch-stream/internal/element"
	"github.com/pable/go-pitch-stream/internal/geometry"
	"github.com/pable/go-pitch-stream/internal/schema"
	"github.com/pable/go-pitch-stream/internal/state"
)

const (
	storeSpeedLevel       = "speedLevel"
	storeSpeedLevelTs     = "lastSpeedLevelChangeTs"
	storeMsPerLevel       = "msPerSpeedLevel"
	storeDribbleActive    = "dribblingActive"
	storeDribbler         = "dribbler"
	storeDribblerTeam     = "dribblerTeam"
	storeDribbleCounter   = "dribblingCounter"
	storeDribbleSeq       = "dribblingCounterSeq"
	storeDribbleStartTs   = "dribblingStartTs"
	storeDribbleStartPos  = "dribblingStartPos"
	storeDribbleLastPos   = "dribblingLastPos"
	storeDribbleLength    = "dribblingLength"
	storeDribbleWaiting   = "dribblingWaitingPlayer"
	storeDribbleWaitTs    = "dribblingWaitingSince"
	storeDribbleCounts    = "dribblingCounts"
	storeDribbleSumLen    = "dribblingSumLength"
	storeDribbleStatsInit = "dribblingStatsInitialized"
)

// DribbleConfig holds the speed-level thresholds and the dribbling episode
// parameters.
type DribbleConfig struct {
	SpeedLevelThresholds    []float64 // ascending, m/s
	DribblingSpeedThreshold float64   // m/s
	DribblingTimeThreshold  int64     // ms the holder must stay fast before START
}

// DribbleDetector derives speed-level changes and dribbling episodes from
// player field-object-states.
type DribbleDetector struct {
	cfg    DribbleConfig
	shared *Shared

	level      *state.SingleValueStore[int64]
	levelTs    *state.SingleValueStore[int64]
	msPerLevel *state.SingleValueStore[[]int64]

	active   *state.SingleValueStore[bool]
	dribbler *state.SingleValueStore[string]
	team     *state.SingleValueStore[string]
	counter  *state.SingleValueStore[int64]
	seq      *state.SingleValueStore[int64]
	startTs  *state.SingleValueStore[int64]
	startPos *state.SingleValueStore[geometry.Vec3]
	lastPos  *state.SingleValueStore[geometry.Vec3]
	length   *state.SingleValueStore[float64]
	waiting  *state.SingleValueStore[string]
	waitTs   *state.SingleValueStore[int64]

	counts    *state.SingleValueStore[map[string]int64]
	sumLength *state.SingleValueStore[float64]
	statsInit *state.SingleValueStore[bool]
}

func NewDribbleDetector(b state.Backend, shared *Shared, cfg DribbleConfig) *DribbleDetector {
	obj := schema.ObjectID(0)
	return &DribbleDetector{
		cfg:        cfg,
		shared:     shared,
		level:      state.NewSingleValue[int64](b, storeSpeedLevel, obj),
		levelTs:    state.NewSingleValue[int64](b, storeSpeedLevelTs, obj),
		msPerLevel: state.NewSingleValue[[]int64](b, storeMsPerLevel, schema.No),
		active:     state.NewSingleValue[bool](b, storeDribbleActive, schema.No),
		dribbler:   state.NewSingleValue[string](b, storeDribbler, schema.No),
		team:       state.NewSingleValue[string](b, storeDribblerTeam, schema.No),
		counter:    state.NewSingleValue[int64](b, storeDribbleCounter, schema.No),
		seq:        state.NewSingleValue[int64](b, storeDribbleSeq, schema.No),
		startTs:    state.NewSingleValue[int64](b, storeDribbleStartTs, schema.No),
		startPos:   state.NewSingleValue[geometry.Vec3](b, storeDribbleStartPos, schema.No),
		lastPos:    state.NewSingleValue[geometry.Vec3](b, storeDribbleLastPos, schema.No),
		length:     state.NewSingleValue[float64](b, storeDribbleLength, schema.No),
		waiting:    state.NewSingleValue[string](b, storeDribbleWaiting, schema.No),
		waitTs:     state.NewSingleValue[int64](b, storeDribbleWaitTs, schema.No),
		counts:     state.NewSingleValue[map[string]int64](b, storeDribbleCounts, schema.No),
		sumLength:  state.NewSingleValue[float64](b, storeDribbleSumLen, schema.No),
		statsInit:  state.NewSingleValue[bool](b, storeDribbleStatsInit, schema.No),
	}
}

func (d *DribbleDetector) Name() string { return "dribblingAndSpeedLevelDetection" }

func (d *DribbleDetector) Process(e *element.Element) ([]*element.Element, error) {
	playerID, err := e.ObjectID(0)
	if err != nil {
		return nil, err
	}
	teamID, err := e.GroupID(0)
	if err != nil {
		return nil, err
	}
	pos, err := e.Position(0)
	if err != nil {
		return nil, err
	}
	vabs, err := e.Double("vabs")
	if err != nil {
		return nil, err
	}

	out := d.initialStatistics(e)
	out = append(out, d.speedLevelTick(e, playerID, teamID, vabs)...)
	out = append(out, d.dribbleTick(e, playerID, teamID, pos, vabs)...)
	return out, nil
}

// speedLevel is the smallest threshold index the speed stays under.
func (d *DribbleDetector) speedLevel(vabs float64) int64 {
	for i, t := range d.cfg.SpeedLevelThresholds {
		if vabs < t {
			return int64(i)
		}
	}
	return int64(len(d.cfg.SpeedLevelThresholds))
}

func (d *DribbleDetector) speedLevelTick(e *element.Element, playerID, teamID string, vabs float64) []*element.Element {
	match := e.Key
	level := d.speedLevel(vabs)
	stored, seen := d.level.TryGetKey(match, playerID)
	if !seen {
		d.level.PutKey(match, playerID, level)
		d.levelTs.PutKey(match, playerID, e.Timestamp)
		return nil
	}
	if level == stored {
		return nil
	}

	out := []*element.Element{element.NewSpeedLevelChange(match, e.Timestamp, playerID, teamID, stored, level)}
	lastTs := d.levelTs.GetKey(match, playerID)
	if e.Timestamp >= lastTs {
		dt := e.Timestamp - lastTs
		playerMs := d.attributeTime(match, playerID, stored, dt)
		teamMs := d.attributeTime(match, teamID, stored, dt)
		out = append(out,
			element.NewSpeedLevelStatistics(match, e.Timestamp, playerID, teamID, playerMs),
			element.NewSpeedLevelStatistics(match, e.Timestamp, "", teamID, teamMs))
	}
	d.level.PutKey(match, playerID, level)
	d.levelTs.PutKey(match, playerID, e.Timestamp)
	return out
}

// attributeTime adds dt to one level's bucket and returns the updated
// per-level totals. The slice spans all levels including the open-ended top.
func (d *DribbleDetector) attributeTime(match, inner string, level, dt int64) []int64 {
	cur := d.msPerLevel.GetKey(match, inner)
	next := make([]int64, len(d.cfg.SpeedLevelThresholds)+1)
	copy(next, cur)
	next[level] += dt
	d.msPerLevel.PutKey(match, inner, next)
	return next
}

func (d *DribbleDetector) dribbleTick(e *element.Element, playerID, teamID string, pos geometry.Vec3, vabs float64) []*element.Element {
	match := e.Key
	holder := d.shared.PlayerInPossession.GetKey(match, innerAll)
	active := d.active.GetKey(match, innerAll)

	// A dribbler who lost the ball finishes the episode on their next sample.
	if active && d.dribbler.GetKey(match, innerAll) != holder {
		if playerID == d.dribbler.GetKey(match, innerAll) {
			return d.endDribble(e, pos)
		}
		return nil
	}

	if playerID != holder {
		if d.waiting.GetKey(match, innerAll) == playerID {
			d.waiting.PutKey(match, innerAll, "")
		}
		return nil
	}

	if !active {
		if vabs < d.cfg.DribblingSpeedThreshold {
			d.waiting.PutKey(match, innerAll, "")
			return nil
		}
		if d.waiting.GetKey(match, innerAll) != playerID {
			d.waiting.PutKey(match, innerAll, playerID)
			d.waitTs.PutKey(match, innerAll, e.Timestamp)
			return nil
		}
		if e.Timestamp-d.waitTs.GetKey(match, innerAll) <= d.cfg.DribblingTimeThreshold {
			return nil
		}
		counter := state.Increase(d.seq, match, innerAll, 1)
		d.active.PutKey(match, innerAll, true)
		d.dribbler.PutKey(match, innerAll, playerID)
		d.team.PutKey(match, innerAll, teamID)
		d.counter.PutKey(match, innerAll, counter)
		d.startTs.PutKey(match, innerAll, e.Timestamp)
		d.startPos.PutKey(match, innerAll, pos)
		d.lastPos.PutKey(match, innerAll, pos)
		d.length.PutKey(match, innerAll, 0)
		d.waiting.PutKey(match, innerAll, "")
		return []*element.Element{element.NewDribblingEvent(match, e.Timestamp, element.PhaseStart, counter,
			playerID, teamID, pos, pos, 0, 0, 0)}
	}

	// active and the dribbler still holds the ball
	length := d.length.GetKey(match, innerAll) + d.lastPos.GetKey(match, innerAll).DistanceXY(pos)
	d.length.PutKey(match, innerAll, length)
	d.lastPos.PutKey(match, innerAll, pos)
	if vabs < d.cfg.DribblingSpeedThreshold {
		return d.endDribble(e, pos)
	}
	duration := e.Timestamp - d.startTs.GetKey(match, innerAll)
	return []*element.Element{element.NewDribblingEvent(match, e.Timestamp, element.PhaseActive,
		d.counter.GetKey(match, innerAll), playerID, teamID,
		d.startPos.GetKey(match, innerAll), pos, length, duration, dribbleVelocity(length, duration))}
}

// endDribble emits the END phase with the episode totals and the refreshed
// dribbling statistics for the dribbler and their team.
func (d *DribbleDetector) endDribble(e *element.Element, pos geometry.Vec3) []*element.Element {
	match := e.Key
	playerID := d.dribbler.GetKey(match, innerAll)
	teamID := d.team.GetKey(match, innerAll)
	length := d.length.GetKey(match, innerAll)
	duration := e.Timestamp - d.startTs.GetKey(match, innerAll)
	d.active.PutKey(match, innerAll, false)

	out := []*element.Element{element.NewDribblingEvent(match, e.Timestamp, element.PhaseEnd,
		d.counter.GetKey(match, innerAll), playerID, teamID,
		d.startPos.GetKey(match, innerAll), pos, length, duration, dribbleVelocity(length, duration))}

	for _, inner := range []string{playerID, teamID} {
		counts := bumpCounts(d.counts, match, inner, map[string]int64{"numDribblings": 1, "sumDurationMs": duration})
		sum := d.sumLength.GetKey(match, inner) + length
		d.sumLength.PutKey(match, inner, sum)
		id := playerID
		if inner == teamID {
			id = ""
		}
		out = append(out, element.NewDribblingStatistics(match, e.Timestamp, id, teamID,
			counts["numDribblings"], counts["sumDurationMs"], sum))
	}
	return out
}

func dribbleVelocity(length float64, durationMs int64) float64 {
	if durationMs <= 0 {
		return 0
	}
	return length / (float64(durationMs) / 1000)
}

// initialStatistics emits zeroed dribbling and speed-level statistics once
// per match.
func (d *DribbleDetector) initialStatistics(e *element.Element) []*element.Element {
	match := e.Key
	if d.statsInit.GetKey(match, innerAll) {
		return nil
	}
	d.statsInit.PutKey(match, innerAll, true)
	levels := make([]int64, len(d.cfg.SpeedLevelThresholds)+1)
	var out []*element.Element
	for _, item := range Items(d.shared.Cohort) {
		out = append(out,
			element.NewDribblingStatistics(match, e.Timestamp, item.PlayerID, item.TeamID, 0, 0, 0),
			element.NewSpeedLevelStatistics(match, e.Timestamp, item.PlayerID, item.TeamID, levels))
	}
	return out
}
