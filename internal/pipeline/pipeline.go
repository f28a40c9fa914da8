// Package pipeline assembles the processor graphs of the engine from the
// property bag: one element graph covering every detector, and the window
// graph driving the heatmap sender.
package pipeline

import (
	"fmt"

	"github.com/pable/go-pitch-stream/internal/config"
	"github.com/pable/go-pitch-stream/internal/detector"
	"github.com/pable/go-pitch-stream/internal/element"
	"github.com/pable/go-pitch-stream/internal/geometry"
	"github.com/pable/go-pitch-stream/internal/graph"
	"github.com/pable/go-pitch-stream/internal/schema"
	"github.com/pable/go-pitch-stream/internal/state"
)

// Pipeline is the assembled engine for one worker.
type Pipeline struct {
	Graph  *graph.Graph
	Window *graph.WindowGraph
	Shared *detector.Shared
	Cohort *config.Cohort
}

// Build wires the full detector graph over the given backend. Configuration
// errors are fatal: the worker refuses to start.
func Build(props *config.Properties, b state.Backend) (*Pipeline, error) {
	cohort, err := props.Cohort()
	if err != nil {
		return nil, err
	}
	shared := detector.NewShared(b, cohort)

	cfg, err := loadThresholds(props)
	if err != nil {
		return nil, err
	}

	fieldStateGen := detector.NewFieldStateGenerator(b, shared, cfg.fieldState)
	possession := detector.NewPossessionDetector(b, shared, cfg.possession)
	kick := detector.NewKickDetector(b, shared, cfg.kick)
	passShot := detector.NewPassShotClassifier(b, shared, cfg.passShot)
	passCombo := detector.NewPassComboDetector(b, shared, cfg.passCombo)
	dribble := detector.NewDribbleDetector(b, shared, cfg.dribble)
	kickoff := detector.NewKickoffDetector(b, shared, cfg.kickoff)
	offside := detector.NewOffsideDetector(b, shared)
	setPlay := detector.NewSetPlayDetector(b, shared, cfg.setPlay)
	areas := detector.NewAreaDetector(shared, cfg.areas)
	heatmapBuild := detector.NewHeatmapBuilder(b, shared, cfg.heatmap)
	heatmapSend := detector.NewHeatmapSender(b, shared, cfg.heatmap)
	teamArea := detector.NewTeamAreaDetector(b, shared)
	pressing := detector.NewPressingDetector(shared)

	streamName := schema.MustParse("streamName")

	// ---- matchMetadata: static per-match facts ----
	metadataRoot := graph.NewNode(
		graph.NewFilter("matchMetadataFilter", graph.And,
			graph.EQ(streamName, element.StreamMatchMetadata)),
		graph.NewNode(graph.NewStore("matchMetadataStore", false,
			state.SingleWrite[float64]{Value: schema.Field("fieldLength", true), Store: singleStatic[float64](b, detector.StoreFieldLength)},
			state.SingleWrite[float64]{Value: schema.Field("fieldWidth", true), Store: singleStatic[float64](b, detector.StoreFieldWidth)},
			state.SingleWrite[bool]{Value: schema.Field("mirroredX", true), Store: singleStatic[bool](b, detector.StoreMirroredX)},
			state.SingleWrite[bool]{Value: schema.Field("mirroredY", true), Store: singleStatic[bool](b, detector.StoreMirroredY)},
			state.SingleWrite[string]{Value: schema.Field("objectRenames", true), Store: singleStatic[string](b, detector.StoreObjectRenames)},
			state.SingleWrite[string]{Value: schema.Field("teamRenames", true), Store: singleStatic[string](b, detector.StoreTeamRenames)},
		)),
	)

	// ---- pass-event chain below the classifier ----
	passTs, passTeam, passKicker, passReceiver := passCombo.Histories()
	successfulPassNode := graph.NewNode(
		graph.NewFilter("successfulPassFilter", graph.And,
			graph.EQ(streamName, element.StreamSuccessfulPass)),
		graph.NewNode(graph.NewStore("passHistoryStore", true,
			state.HistoryWrite[int64]{Value: schema.Field("generationTimestamp", false), Store: passTs},
			state.HistoryWrite[string]{Value: schema.GroupID(0), Store: passTeam},
			state.HistoryWrite[string]{Value: schema.ObjectID(0), Store: passKicker},
			state.HistoryWrite[string]{Value: schema.ObjectID(1), Store: passReceiver},
		),
			graph.NewNode(passCombo),
			emitter("successfulPassOut"),
		),
	)
	breakerNode := func(stream, name, store string) *graph.Node {
		return graph.NewNode(
			graph.NewFilter(name+"Filter", graph.And, graph.EQ(streamName, stream)),
			graph.NewNode(graph.NewStore(name+"Store", true,
				state.SingleWrite[int64]{Value: schema.Field("generationTimestamp", false), Store: singleStatic[int64](b, store)},
			)),
		)
	}
	passOutcomes := graph.NewNode(
		graph.NewFilter("remainingOutcomesFilter", graph.And,
			graph.IN(streamName,
				element.StreamGoal, element.StreamShotOffTarget,
				element.StreamPassStatistics, element.StreamShotStatistics)),
	)
	passShotNode := graph.NewNode(passShot,
		successfulPassNode,
		breakerNode(element.StreamInterception, "interception", detector.StoreInterceptionTs),
		breakerNode(element.StreamMisplacedPass, "misplacedPass", detector.StoreMisplacedTs),
		breakerNode(element.StreamClearance, "clearance", detector.StoreClearanceTs),
		passOutcomes,
	)

	// ---- ball branch ----
	ballInFieldNode := graph.NewNode(
		graph.NewFilter("fieldAreaFilter", graph.And,
			graph.EQ(schema.Field("areaId", true), detector.AreaField)),
		graph.NewNode(graph.NewStore("ballInFieldStore", true,
			state.SingleWrite[bool]{Value: schema.Field("inArea", true), Store: singleStatic[bool](b, detector.StoreBallInField)},
		),
			graph.NewNode(graph.NewFilter("ballLeftFieldFilter", graph.And,
				graph.EQ(schema.Field("inArea", true), false)),
				graph.NewNode(graph.NewStore("ballLeftFieldStore", false,
					state.SingleWrite[int64]{Value: schema.Field("generationTimestamp", false), Store: singleStatic[int64](b, detector.StoreBallLeftFieldTs)},
				)),
			),
		),
	)
	ballAreaNode := graph.NewNode(areas,
		ballInFieldNode,
		graph.NewNode(passShot,
			successfulPassNode,
			breakerNode(element.StreamInterception, "interceptionArea", detector.StoreInterceptionTs),
			breakerNode(element.StreamMisplacedPass, "misplacedPassArea", detector.StoreMisplacedTs),
			breakerNode(element.StreamClearance, "clearanceArea", detector.StoreClearanceTs),
			passOutcomes,
		),
		graph.NewNode(setPlay),
		emitter("ballAreaEventOut"),
	)
	possessionNode := graph.NewNode(possession,
		graph.NewNode(
			graph.NewFilter("duelFilter", graph.And, graph.EQ(streamName, element.StreamDuelEvent)),
			graph.NewNode(graph.NewStore("duelPhaseStore", true,
				state.SingleWrite[string]{Value: schema.Field("phase", false), Store: singleStatic[string](b, detector.StoreDuelPhase)},
			)),
		),
		graph.NewNode(
			graph.NewFilter("possessionChangeFilter", graph.And,
				graph.EQ(streamName, element.StreamBallPossessionChange)),
			passShotNode,
			emitter("possessionChangeOut"),
		),
	)
	kickNode := graph.NewNode(kick,
		graph.NewNode(graph.NewStore("kickEventStore", true,
			state.SingleWrite[int64]{Value: schema.Field("generationTimestamp", false), Store: singleStatic[int64](b, detector.StoreKickTs)},
			state.SingleWrite[string]{Value: schema.ObjectID(0), Store: singleStatic[string](b, detector.StoreKickPlayer)},
			state.SingleWrite[string]{Value: schema.GroupID(0), Store: singleStatic[string](b, detector.StoreKickTeam)},
			state.SingleWrite[geometry.Vec3]{Value: schema.Position(0), Store: singleStatic[geometry.Vec3](b, detector.StoreKickPos)},
			state.SingleWrite[int64]{Value: schema.Field("numPlayersNearerToGoal", true), Store: singleStatic[int64](b, detector.StoreKickPacking)},
			state.SingleWrite[bool]{Value: schema.Field("attacked", true), Store: singleStatic[bool](b, detector.StoreKickAttacked)},
			state.SingleWrite[string]{Value: schema.Field("zone", true), Store: singleStatic[string](b, detector.StoreKickZone)},
		)),
	)
	ballNode := graph.NewNode(
		graph.NewFilter("ballFilter", graph.And,
			graph.EQ(schema.ObjectID(0), cohort.BallID)),
		graph.NewNode(pressing),
		possessionNode,
		kickNode,
		ballAreaNode,
		graph.NewNode(kickoff),
		graph.NewNode(setPlay),
	)

	// ---- player branch ----
	playerNode := graph.NewNode(
		graph.NewFilter("playerFilter", graph.And,
			graph.NEQ(schema.ObjectID(0), cohort.BallID)),
		graph.NewNode(dribble),
		graph.NewNode(offside),
		graph.NewNode(heatmapBuild),
		graph.NewNode(teamArea),
		graph.NewNode(areas),
	)

	rawRoot := graph.NewNode(
		graph.NewFilter("rawPositionFilter", graph.And,
			graph.EQ(streamName, element.StreamRawPositionSensorData)),
		graph.NewNode(fieldStateGen,
			graph.NewNode(graph.NewStore("fieldObjectStateStore", true,
				state.SingleWrite[geometry.Vec3]{Value: schema.Position(0), Store: shared.Position},
				state.HistoryWrite[geometry.Vec3]{Value: schema.Position(0), Store: shared.PositionHist},
				state.HistoryWrite[float64]{Value: schema.Field("vabs", true), Store: shared.VabsHist},
				velocityWrite{store: shared.Velocity},
			),
				ballNode,
				playerNode,
				emitter("fieldObjectStateOut"),
			),
		),
	)

	g := graph.New("engine", metadataRoot, rawRoot)
	w := graph.NewWindow("engineWindow",
		graph.NewWindowRoot(activeKeys{}, graph.NewNode(heatmapSend)),
	)
	return &Pipeline{Graph: g, Window: w, Shared: shared, Cohort: cohort}, nil
}

// emitter is a pass-through leaf; whatever reaches it is emitted.
func emitter(name string) *graph.Node {
	return graph.NewNode(graph.NewStore(name, true))
}

// singleStatic builds a write handle addressing a match-global store entry.
func singleStatic[T any](b state.Backend, name string) *state.SingleValueStore[T] {
	return state.NewSingleValue[T](b, name, schema.Static)
}

// velocityWrite composes the velocity vector from the scalar payload fields
// of a fieldObjectState.
type velocityWrite struct {
	store *state.SingleValueStore[geometry.Vec3]
}

func (w velocityWrite) Target() string { return w.store.Name() }

func (w velocityWrite) WriteElement(e *element.Element) error {
	vx, err := e.Double("vx")
	if err != nil {
		return err
	}
	vy, err := e.Double("vy")
	if err != nil {
		return err
	}
	vz, err := e.Double("vz")
	if err != nil {
		return err
	}
	objectID, err := e.ObjectID(0)
	if err != nil {
		return err
	}
	w.store.PutKey(e.Key, objectID, geometry.Vec3{X: vx, Y: vy, Z: vz})
	return nil
}

// activeKeys is the window root: one tick marker per match per period.
type activeKeys struct{}

func (activeKeys) Name() string { return "activeKeysGeneration" }

func (activeKeys) Window(match string, ts int64) ([]*element.Element, error) {
	return []*element.Element{element.NewActiveKeysTick(match, ts)}, nil
}

// thresholds groups the per-detector configuration.
type thresholds struct {
	fieldState detector.FieldStateConfig
	possession detector.PossessionConfig
	kick       detector.KickConfig
	passShot   detector.PassShotConfig
	passCombo  detector.PassComboConfig
	dribble    detector.DribbleConfig
	kickoff    detector.KickoffConfig
	setPlay    detector.SetPlayConfig
	heatmap    detector.HeatmapConfig
	areas      []detector.Area
}

func loadThresholds(p *config.Properties) (*thresholds, error) {
	var t thresholds
	var err error

	read := func(dst *float64, key string, def float64) {
		if err != nil {
			return
		}
		*dst, err = p.DoubleOr(key, def)
	}
	readLong := func(dst *int64, key string, def int64) {
		if err != nil {
			return
		}
		*dst, err = p.LongOr(key, def)
	}

	read(&t.fieldState.PositionScale, "pitchstream.fieldObjectStateGeneration.positionScale", 1)
	read(&t.fieldState.TimeScale, "pitchstream.fieldObjectStateGeneration.timeScale", 1)

	read(&t.possession.MaxVabsForVabsDiff, "pitchstream.ballPossessionDetection.maxVabsForVabsDiff", 15)
	read(&t.possession.MinVabsDiff, "pitchstream.ballPossessionDetection.minVabsDiff", 10)
	read(&t.possession.MinMovingDirAngleDiff, "pitchstream.ballPossessionDetection.minMovingDirAngleDiff", 1)
	read(&t.possession.MaxBallPossessionChangeDist, "pitchstream.ballPossessionDetection.maxBallPossessionChangeDist", 1)
	read(&t.possession.MaxDuelDist, "pitchstream.ballPossessionDetection.maxDuelDist", 1)

	read(&t.kick.MinKickDist, "pitchstream.kickDetection.minKickDist", 1.5)
	read(&t.kick.MaxBallbackDist, "pitchstream.kickDetection.maxBallbackDist", 1)
	read(&t.kick.AttackedPressingThreshold, "pitchstream.kickDetection.attackedPressingThreshold", 0)

	readLong(&t.passShot.MaxTime, "pitchstream.passAndShotDetection.maxTime", 5000)
	read(&t.passShot.SidewardsAngleThreshold, "pitchstream.passAndShotDetection.sidewardsAngleThreshold", 0.7854)
	read(&t.passShot.GoalHeight, "pitchstream.passAndShotDetection.goalHeight", 2.44)

	readLong(&t.passCombo.MaxTimeBetweenPasses, "pitchstream.passCombinationDetection.maxTimeBetweenPasses", 10000)
	var histLen int64
	readLong(&histLen, "pitchstream.passCombinationDetection.historyLength", 10)
	t.passCombo.HistoryLength = int(histLen)

	read(&t.dribble.DribblingSpeedThreshold, "pitchstream.dribblingDetection.speedThreshold", 2)
	readLong(&t.dribble.DribblingTimeThreshold, "pitchstream.dribblingDetection.timeThreshold", 1000)

	read(&t.kickoff.MaxBallMidpointDist, "pitchstream.kickoffDetection.maxBallMidpointDist", 1)
	read(&t.kickoff.MinPlayerMidlineDist, "pitchstream.kickoffDetection.minPlayerMidlineDist", 1)
	read(&t.kickoff.MidcircleRadius, "pitchstream.kickoffDetection.midcircleRadius", 9.15)
	readLong(&t.kickoff.MinTimeBetweenKickoffs, "pitchstream.kickoffDetection.minTimeBetweenKickoffs", 60000)

	read(&t.setPlay.QuiescenceSpeed, "pitchstream.setPlayDetection.quiescenceSpeed", 0.5)
	readLong(&t.setPlay.QuiescenceTime, "pitchstream.setPlayDetection.quiescenceTime", 2000)
	read(&t.setPlay.PenaltySpotDist, "pitchstream.setPlayDetection.penaltySpotDist", 0.5)
	read(&t.setPlay.MidcircleRadius, "pitchstream.setPlayDetection.midcircleRadius", 9.15)

	readLong(&t.heatmap.XCells, "pitchstream.heatmap.grid.x", 50)
	readLong(&t.heatmap.YCells, "pitchstream.heatmap.grid.y", 25)
	readLong(&t.heatmap.ActiveTimeThreshold, "pitchstream.activeTimeThreshold", 60000)
	if err != nil {
		return nil, err
	}

	if _, set := p.Get("pitchstream.heatmap.intervals"); set {
		t.heatmap.Intervals, err = p.Longs("pitchstream.heatmap.intervals")
		if err != nil {
			return nil, err
		}
	} else {
		t.heatmap.Intervals = []int64{0, 60, 300}
	}

	if _, set := p.Get("pitchstream.dribblingDetection.speedLevelThresholds"); set {
		t.dribble.SpeedLevelThresholds, err = p.Doubles("pitchstream.dribblingDetection.speedLevelThresholds")
		if err != nil {
			return nil, err
		}
	} else {
		t.dribble.SpeedLevelThresholds = []float64{2, 4, 7}
	}

	fieldLength, err := p.DoubleOr("pitchstream.field.length", 105)
	if err != nil {
		return nil, err
	}
	fieldWidth, err := p.DoubleOr("pitchstream.field.width", 68)
	if err != nil {
		return nil, err
	}
	goalWidth, err := p.DoubleOr("pitchstream.field.goalWidth", 7.32)
	if err != nil {
		return nil, err
	}
	behindDepth, err := p.DoubleOr("pitchstream.field.behindDepth", 5)
	if err != nil {
		return nil, err
	}
	t.areas = detector.FieldAreas(fieldLength, fieldWidth, goalWidth, behindDepth)
	if extra, set := p.Get("pitchstream.areas"); set {
		parsed, err := detector.ParseAreas(extra)
		if err != nil {
			return nil, fmt.Errorf("pitchstream.areas: %w", err)
		}
		t.areas = append(t.areas, parsed...)
	}
	return &t, nil
}
