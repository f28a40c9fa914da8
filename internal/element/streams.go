package element

import "github.com/pable/go-pitch-stream/internal/geometry"

// Stream names. The name of a stream fully determines its payload schema;
// the factory functions below are the only way elements for these streams
// are constructed inside the engine.
const (
	StreamRawPositionSensorData = "rawPositionSensorData"
	StreamMatchMetadata         = "matchMetadata"
	StreamFieldObjectState      = "fieldObjectState"
	StreamBallPossessionChange  = "ballPossessionChangeEvent"
	StreamDuelEvent             = "duelEvent"
	StreamKickEvent             = "kickEvent"
	StreamSuccessfulPass        = "successfulPassEvent"
	StreamInterception          = "interceptionEvent"
	StreamMisplacedPass         = "misplacedPassEvent"
	StreamClearance             = "clearanceEvent"
	StreamGoal                  = "goalEvent"
	StreamShotOffTarget         = "shotOffTargetEvent"
	StreamPassStatistics        = "passStatistics"
	StreamShotStatistics        = "shotStatistics"
	StreamPassSequenceEvent     = "passSequenceEvent"
	StreamDoublePassEvent       = "doublePassEvent"
	StreamPassSequenceStats     = "passSequenceStatistics"
	StreamSpeedLevelChange      = "speedLevelChangeEvent"
	StreamSpeedLevelStats       = "speedLevelStatistics"
	StreamDribblingEvent        = "dribblingEvent"
	StreamDribblingStats        = "dribblingStatistics"
	StreamKickoffEvent          = "kickoffEvent"
	StreamOffsideLineState      = "offsideLineState"
	StreamAreaEvent             = "areaEvent"
	StreamSetPlayEvent          = "setPlayEvent"
	StreamHeatmapStats          = "heatmapStatistics"
	StreamTeamAreaState         = "teamAreaState"
	StreamInternalActiveKeys    = "internalActiveKeys"
)

// Set-play types carried by setPlayEvent.
const (
	SetPlayFreeKick   = "freeKick"
	SetPlayCornerKick = "cornerKick"
	SetPlayGoalKick   = "goalKick"
	SetPlayThrowIn    = "throwIn"
	SetPlayPenalty    = "penalty"
)

// Pass direction categories.
const (
	DirectionForward  = "FORWARD"
	DirectionBackward = "BACKWARD"
	DirectionLeft     = "LEFT"
	DirectionRight    = "RIGHT"
)

// NewRawPositionSample builds a raw sensor sample for one tracked object.
func NewRawPositionSample(key string, ts int64, objectID, groupID string, pos geometry.Vec3) *Element {
	return &Element{
		StreamName: StreamRawPositionSensorData,
		Category:   CategoryRaw,
		Key:        key,
		Timestamp:  ts,
		ObjectIDs:  []string{objectID},
		GroupIDs:   []string{groupID},
		Positions:  []geometry.Vec3{pos},
		Atomic:     true,
	}
}

// NewMatchMetadata carries static per-match facts needed to enrich raw samples.
func NewMatchMetadata(key string, ts int64, fieldLength, fieldWidth float64, mirroredX, mirroredY bool, objectRenames, teamRenames string) *Element {
	return &Element{
		StreamName: StreamMatchMetadata,
		Category:   CategoryState,
		Key:        key,
		Timestamp:  ts,
		Atomic:     true,
		Payload: Payload{
			"fieldLength":   fieldLength,
			"fieldWidth":    fieldWidth,
			"mirroredX":     mirroredX,
			"mirroredY":     mirroredY,
			"objectRenames": objectRenames,
			"teamRenames":   teamRenames,
		},
	}
}

// NewFieldObjectState is the enriched positional sample for one object at one tick.
func NewFieldObjectState(key string, ts int64, objectID, groupID string, pos, vel geometry.Vec3, vabs float64) *Element {
	return &Element{
		StreamName: StreamFieldObjectState,
		Category:   CategoryState,
		Key:        key,
		Timestamp:  ts,
		ObjectIDs:  []string{objectID},
		GroupIDs:   []string{groupID},
		Positions:  []geometry.Vec3{pos},
		Atomic:     true,
		Payload: Payload{
			"vx":   vel.X,
			"vy":   vel.Y,
			"vz":   vel.Z,
			"vabs": vabs,
		},
	}
}

// NewBallPossessionChange reports a new player in possession. numNearerToGoal
// is the packing value for the new possessor.
func NewBallPossessionChange(key string, ts int64, playerID, teamID string, ballPos geometry.Vec3, numNearerToGoal int64) *Element {
	return &Element{
		StreamName: StreamBallPossessionChange,
		Category:   CategoryEvent,
		Key:        key,
		Timestamp:  ts,
		ObjectIDs:  []string{playerID},
		GroupIDs:   []string{teamID},
		Positions:  []geometry.Vec3{ballPos},
		Atomic:     true,
		Payload: Payload{
			"possessed":              true,
			"numPlayersNearerToGoal": numNearerToGoal,
		},
	}
}

// NewBallPossessionCleared reports that nobody is in possession (ball off field).
func NewBallPossessionCleared(key string, ts int64, ballPos geometry.Vec3) *Element {
	return &Element{
		StreamName: StreamBallPossessionChange,
		Category:   CategoryEvent,
		Key:        key,
		Timestamp:  ts,
		Positions:  []geometry.Vec3{ballPos},
		Atomic:     true,
		Payload: Payload{
			"possessed":              false,
			"numPlayersNearerToGoal": int64(0),
		},
	}
}

// NewDuelEvent is a phase of a duel episode between the defender (in
// possession) and an attacker.
func NewDuelEvent(key string, ts int64, phase Phase, counter int64, defenderID, defenderTeam, attackerID, attackerTeam string, ballPos geometry.Vec3) *Element {
	return &Element{
		StreamName: StreamDuelEvent,
		Category:   CategoryEvent,
		Key:        key,
		Timestamp:  ts,
		ObjectIDs:  []string{defenderID, attackerID},
		GroupIDs:   []string{defenderTeam, attackerTeam},
		Positions:  []geometry.Vec3{ballPos},
		Atomic:     false,
		Phase:      phase,
		EventID:    "duel",
		Counter:    counter,
	}
}

// NewKickEvent reports a detected kick.
func NewKickEvent(key string, ts int64, playerID, teamID string, ballPos geometry.Vec3, numNearerToGoal int64, attacked bool, zone string) *Element {
	return &Element{
		StreamName: StreamKickEvent,
		Category:   CategoryEvent,
		Key:        key,
		Timestamp:  ts,
		ObjectIDs:  []string{playerID},
		GroupIDs:   []string{teamID},
		Positions:  []geometry.Vec3{ballPos},
		Atomic:     true,
		Payload: Payload{
			"numPlayersNearerToGoal": numNearerToGoal,
			"attacked":               attacked,
			"zone":                   zone,
		},
	}
}

// PassOutcome carries the measured geometry of a classified kick outcome.
type PassOutcome struct {
	Length            float64
	Velocity          float64
	Angle             float64
	DirectionCategory string
}

func (o PassOutcome) payload() Payload {
	return Payload{
		"length":            o.Length,
		"velocity":          o.Velocity,
		"angle":             o.Angle,
		"directionCategory": o.DirectionCategory,
	}
}

// NewSuccessfulPass reports a completed pass from kicker to receiver of the same team.
func NewSuccessfulPass(key string, ts int64, kickerID, receiverID, teamID string, kickPos, receivePos geometry.Vec3, o PassOutcome, packingDiff int64) *Element {
	p := o.payload()
	p["packingDiff"] = packingDiff
	return &Element{
		StreamName: StreamSuccessfulPass,
		Category:   CategoryEvent,
		Key:        key,
		Timestamp:  ts,
		ObjectIDs:  []string{kickerID, receiverID},
		GroupIDs:   []string{teamID},
		Positions:  []geometry.Vec3{kickPos, receivePos},
		Atomic:     true,
		Payload:    p,
	}
}

// NewInterception reports a pass received by the other team.
func NewInterception(key string, ts int64, kickerID, kickerTeam, receiverID, receiverTeam string, kickPos, receivePos geometry.Vec3, o PassOutcome) *Element {
	return &Element{
		StreamName: StreamInterception,
		Category:   CategoryEvent,
		Key:        key,
		Timestamp:  ts,
		ObjectIDs:  []string{kickerID, receiverID},
		GroupIDs:   []string{kickerTeam, receiverTeam},
		Positions:  []geometry.Vec3{kickPos, receivePos},
		Atomic:     true,
		Payload:    o.payload(),
	}
}

// NewMisplacedPass reports a pass that left the field or missed everything.
func NewMisplacedPass(key string, ts int64, kickerID, teamID string, kickPos, receivePos geometry.Vec3, o PassOutcome) *Element {
	return &Element{
		StreamName: StreamMisplacedPass,
		Category:   CategoryEvent,
		Key:        key,
		Timestamp:  ts,
		ObjectIDs:  []string{kickerID},
		GroupIDs:   []string{teamID},
		Positions:  []geometry.Vec3{kickPos, receivePos},
		Atomic:     true,
		Payload:    o.payload(),
	}
}

// NewClearance reports a defensive clearance out of the own third.
func NewClearance(key string, ts int64, kickerID, teamID string, kickPos, receivePos geometry.Vec3, o PassOutcome) *Element {
	return &Element{
		StreamName: StreamClearance,
		Category:   CategoryEvent,
		Key:        key,
		Timestamp:  ts,
		ObjectIDs:  []string{kickerID},
		GroupIDs:   []string{teamID},
		Positions:  []geometry.Vec3{kickPos, receivePos},
		Atomic:     true,
		Payload:    o.payload(),
	}
}

// NewGoal reports a ball entering a goal below the crossbar.
func NewGoal(key string, ts int64, shooterID, teamID string, kickPos, receivePos geometry.Vec3, o PassOutcome) *Element {
	return &Element{
		StreamName: StreamGoal,
		Category:   CategoryEvent,
		Key:        key,
		Timestamp:  ts,
		ObjectIDs:  []string{shooterID},
		GroupIDs:   []string{teamID},
		Positions:  []geometry.Vec3{kickPos, receivePos},
		Atomic:     true,
		Payload:    o.payload(),
	}
}

// NewShotOffTarget reports a shot that missed the goal frame.
func NewShotOffTarget(key string, ts int64, shooterID, teamID string, kickPos, receivePos geometry.Vec3, o PassOutcome) *Element {
	return &Element{
		StreamName: StreamShotOffTarget,
		Category:   CategoryEvent,
		Key:        key,
		Timestamp:  ts,
		ObjectIDs:  []string{shooterID},
		GroupIDs:   []string{teamID},
		Positions:  []geometry.Vec3{kickPos, receivePos},
		Atomic:     true,
		Payload:    o.payload(),
	}
}

// PassStats is the running pass statistics of one player or team.
type PassStats struct {
	Successful  int64
	Intercepted int64
	Misplaced   int64
	Clearances  int64
	Forward     int64
	Backward    int64
	Left        int64
	Right       int64
	PackingSum  int64
}

// SuccessRate is the share of successful passes among all classified passes.
func (s PassStats) SuccessRate() float64 {
	total := s.Successful + s.Intercepted + s.Misplaced
	if total == 0 {
		return 0
	}
	return float64(s.Successful) / float64(total)
}

// NewPassStatistics emits a refreshed statistics element. For team statistics
// playerID is empty and the element carries only the group identifier.
func NewPassStatistics(key string, ts int64, playerID, teamID string, s PassStats) *Element {
	e := &Element{
		StreamName: StreamPassStatistics,
		Category:   CategoryStatistics,
		Key:        key,
		Timestamp:  ts,
		GroupIDs:   []string{teamID},
		Atomic:     true,
		Payload: Payload{
			"numSuccessfulPasses":  s.Successful,
			"numInterceptedPasses": s.Intercepted,
			"numMisplacedPasses":   s.Misplaced,
			"numClearances":        s.Clearances,
			"numForwardPasses":     s.Forward,
			"numBackwardPasses":    s.Backward,
			"numLeftPasses":        s.Left,
			"numRightPasses":       s.Right,
			"packingSum":           s.PackingSum,
			"passSuccessRate":      s.SuccessRate(),
		},
	}
	if playerID != "" {
		e.ObjectIDs = []string{playerID}
	}
	return e
}

// NewShotStatistics emits refreshed shot statistics for a player or team.
func NewShotStatistics(key string, ts int64, playerID, teamID string, shotsOffTarget, goals int64) *Element {
	e := &Element{
		StreamName: StreamShotStatistics,
		Category:   CategoryStatistics,
		Key:        key,
		Timestamp:  ts,
		GroupIDs:   []string{teamID},
		Atomic:     true,
		Payload: Payload{
			"numShotsOffTarget": shotsOffTarget,
			"numGoals":          goals,
		},
	}
	if playerID != "" {
		e.ObjectIDs = []string{playerID}
	}
	return e
}

// NewPassSequenceEvent reports the current uninterrupted pass sequence of one team.
func NewPassSequenceEvent(key string, ts int64, teamID string, players []string, length int64, firstTs int64) *Element {
	return &Element{
		StreamName: StreamPassSequenceEvent,
		Category:   CategoryEvent,
		Key:        key,
		Timestamp:  ts,
		ObjectIDs:  players,
		GroupIDs:   []string{teamID},
		Atomic:     true,
		Payload: Payload{
			"length":  length,
			"firstTs": firstTs,
		},
	}
}

// NewDoublePassEvent reports an A-B-A combination.
func NewDoublePassEvent(key string, ts int64, teamID, playerA, playerB string) *Element {
	return &Element{
		StreamName: StreamDoublePassEvent,
		Category:   CategoryEvent,
		Key:        key,
		Timestamp:  ts,
		ObjectIDs:  []string{playerA, playerB},
		GroupIDs:   []string{teamID},
		Atomic:     true,
	}
}

// NewPassSequenceStatistics emits refreshed pass-sequence statistics.
func NewPassSequenceStatistics(key string, ts int64, playerID, teamID string, numSequences, sumLength, maxLength, numDoublePasses int64) *Element {
	e := &Element{
		StreamName: StreamPassSequenceStats,
		Category:   CategoryStatistics,
		Key:        key,
		Timestamp:  ts,
		GroupIDs:   []string{teamID},
		Atomic:     true,
		Payload: Payload{
			"numPassSequences":      numSequences,
			"sumPassSequenceLength": sumLength,
			"maxPassSequenceLength": maxLength,
			"numDoublePasses":       numDoublePasses,
		},
	}
	if playerID != "" {
		e.ObjectIDs = []string{playerID}
	}
	return e
}

// NewSpeedLevelChange reports a player crossing a speed threshold.
func NewSpeedLevelChange(key string, ts int64, playerID, teamID string, oldLevel, newLevel int64) *Element {
	return &Element{
		StreamName: StreamSpeedLevelChange,
		Category:   CategoryEvent,
		Key:        key,
		Timestamp:  ts,
		ObjectIDs:  []string{playerID},
		GroupIDs:   []string{teamID},
		Atomic:     true,
		Payload: Payload{
			"oldLevel": oldLevel,
			"newLevel": newLevel,
		},
	}
}

// NewSpeedLevelStatistics emits cumulative time per speed level, ms.
func NewSpeedLevelStatistics(key string, ts int64, playerID, teamID string, msPerLevel []int64) *Element {
	e := &Element{
		StreamName: StreamSpeedLevelStats,
		Category:   CategoryStatistics,
		Key:        key,
		Timestamp:  ts,
		GroupIDs:   []string{teamID},
		Atomic:     true,
		Payload: Payload{
			"msPerLevel": msPerLevel,
		},
	}
	if playerID != "" {
		e.ObjectIDs = []string{playerID}
	}
	return e
}

// NewDribblingEvent is a phase of a dribbling episode.
func NewDribblingEvent(key string, ts int64, phase Phase, counter int64, playerID, teamID string, startPos, curPos geometry.Vec3, length float64, durationMs int64, velocity float64) *Element {
	return &Element{
		StreamName: StreamDribblingEvent,
		Category:   CategoryEvent,
		Key:        key,
		Timestamp:  ts,
		ObjectIDs:  []string{playerID},
		GroupIDs:   []string{teamID},
		Positions:  []geometry.Vec3{startPos, curPos},
		Atomic:     false,
		Phase:      phase,
		EventID:    "dribbling",
		Counter:    counter,
		Payload: Payload{
			"length":     length,
			"durationMs": durationMs,
			"velocity":   velocity,
		},
	}
}

// NewDribblingStatistics emits cumulative dribbling statistics.
func NewDribblingStatistics(key string, ts int64, playerID, teamID string, num, sumDurationMs int64, sumLength float64) *Element {
	e := &Element{
		StreamName: StreamDribblingStats,
		Category:   CategoryStatistics,
		Key:        key,
		Timestamp:  ts,
		GroupIDs:   []string{teamID},
		Atomic:     true,
		Payload: Payload{
			"numDribblings": num,
			"sumLength":     sumLength,
			"sumDurationMs": sumDurationMs,
		},
	}
	if playerID != "" {
		e.ObjectIDs = []string{playerID}
	}
	return e
}

// NewKickoffEvent reports a detected kickoff and the side assignment.
func NewKickoffEvent(key string, ts int64, kickerID, kickerTeam, leftTeamID, rightTeamID string, ballPos geometry.Vec3) *Element {
	return &Element{
		StreamName: StreamKickoffEvent,
		Category:   CategoryEvent,
		Key:        key,
		Timestamp:  ts,
		ObjectIDs:  []string{kickerID},
		GroupIDs:   []string{kickerTeam},
		Positions:  []geometry.Vec3{ballPos},
		Atomic:     true,
		Payload: Payload{
			"leftTeamId":  leftTeamID,
			"rightTeamId": rightTeamID,
		},
	}
}

// NewOffsideLineState reports the current offside line and the players beyond
// it. valid=false means nobody is in possession and there is no line.
func NewOffsideLineState(key string, ts int64, possessionTeam string, lineX float64, valid bool, playersBeyond []string) *Element {
	e := &Element{
		StreamName: StreamOffsideLineState,
		Category:   CategoryState,
		Key:        key,
		Timestamp:  ts,
		ObjectIDs:  playersBeyond,
		Atomic:     true,
		Payload: Payload{
			"lineX": lineX,
			"valid": valid,
		},
	}
	if possessionTeam != "" {
		e.GroupIDs = []string{possessionTeam}
	}
	return e
}

// NewAreaEvent reports an object entering or leaving a named area.
func NewAreaEvent(key string, ts int64, objectID, groupID, areaID string, inArea bool, pos geometry.Vec3) *Element {
	return &Element{
		StreamName: StreamAreaEvent,
		Category:   CategoryEvent,
		Key:        key,
		Timestamp:  ts,
		ObjectIDs:  []string{objectID},
		GroupIDs:   []string{groupID},
		Positions:  []geometry.Vec3{pos},
		Atomic:     true,
		Payload: Payload{
			"areaId": areaID,
			"inArea": inArea,
		},
	}
}

// NewSetPlayEvent reports a detected set play awarded to teamID.
func NewSetPlayEvent(key string, ts int64, setPlayType, teamID string, ballPos geometry.Vec3) *Element {
	return &Element{
		StreamName: StreamSetPlayEvent,
		Category:   CategoryEvent,
		Key:        key,
		Timestamp:  ts,
		GroupIDs:   []string{teamID},
		Positions:  []geometry.Vec3{ballPos},
		Atomic:     true,
		Payload: Payload{
			"setPlayType": setPlayType,
		},
	}
}

// NewHeatmapStatistics emits one interval rollup of a heatmap grid. cells is
// the run-length encoded row-major cell string.
func NewHeatmapStatistics(key string, ts int64, playerID, teamID string, intervalSeconds, totalNum int64, xCells, yCells int64, cells string) *Element {
	e := &Element{
		StreamName: StreamHeatmapStats,
		Category:   CategoryStatistics,
		Key:        key,
		Timestamp:  ts,
		GroupIDs:   []string{teamID},
		Atomic:     true,
		Payload: Payload{
			"intervalSeconds": intervalSeconds,
			"totalNum":        totalNum,
			"numXGridCells":   xCells,
			"numYGridCells":   yCells,
			"cells":           cells,
		},
	}
	if playerID != "" {
		e.ObjectIDs = []string{playerID}
	}
	return e
}

// NewTeamAreaState reports the covered area of one team.
func NewTeamAreaState(key string, ts int64, teamID string, mbrArea, hullArea float64) *Element {
	return &Element{
		StreamName: StreamTeamAreaState,
		Category:   CategoryState,
		Key:        key,
		Timestamp:  ts,
		GroupIDs:   []string{teamID},
		Atomic:     true,
		Payload: Payload{
			"mbrArea":  mbrArea,
			"hullArea": hullArea,
		},
	}
}

// NewActiveKeysTick is the per-match window tick marker.
func NewActiveKeysTick(key string, ts int64) *Element {
	return &Element{
		StreamName: StreamInternalActiveKeys,
		Category:   CategoryInternal,
		Key:        key,
		Timestamp:  ts,
		Atomic:     true,
	}
}
