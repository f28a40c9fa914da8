package detector

import (
	"github.com/pable/go-pitch-stream/internal/element"
	"github.com/pable/go-pitch-stream/internal/schema"
	"github.com/pable/go-pitch-stream/internal/state"
)

// Stores fed by store modules: histories of the most recent successful
// passes (written before this detector runs) and the timestamps of the
// events that break a sequence.
const (
	StorePassHistTs       = "passHistTs"
	StorePassHistTeam     = "passHistTeam"
	StorePassHistKicker   = "passHistKicker"
	StorePassHistReceiver = "passHistReceiver"

	StoreInterceptionTs  = "lastInterceptionTs"
	StoreMisplacedTs     = "lastMisplacedPassTs"
	StoreClearanceTs     = "lastClearanceTs"
	StoreBallLeftFieldTs = "lastBallLeftFieldTs"

	storeSeqFirstTs   = "firstTsOfLastPassSequence"
	storeSeqLastLen   = "lastPassSequenceLength"
	storeSeqCounts    = "passSequenceCounts"
	storeSeqStatsInit = "passSequenceStatsInitialized"
)

// PassComboConfig holds the sequence thresholds. HistoryLength is the
// capacity of the pass histories, fixed at wiring time.
type PassComboConfig struct {
	MaxTimeBetweenPasses int64 // ms
	HistoryLength        int
}

// PassComboDetector finds uninterrupted pass sequences of one team and the
// A-B-A double passes inside them. It consumes successful-pass events after
// the co-located store module has prepended them to the histories.
type PassComboDetector struct {
	cfg    PassComboConfig
	shared *Shared

	ts       *state.HistoryStore[int64]
	team     *state.HistoryStore[string]
	kicker   *state.HistoryStore[string]
	receiver *state.HistoryStore[string]

	interceptionTs  *state.SingleValueStore[int64]
	misplacedTs     *state.SingleValueStore[int64]
	clearanceTs     *state.SingleValueStore[int64]
	ballLeftFieldTs *state.SingleValueStore[int64]

	seqFirstTs *state.SingleValueStore[int64]
	seqLastLen *state.SingleValueStore[int64]
	seqCounts  *state.SingleValueStore[map[string]int64]
	statsInit  *state.SingleValueStore[bool]
}

func NewPassComboDetector(b state.Backend, shared *Shared, cfg PassComboConfig) *PassComboDetector {
	if cfg.HistoryLength < 2 {
		cfg.HistoryLength = 10
	}
	return &PassComboDetector{
		cfg:             cfg,
		shared:          shared,
		ts:              state.NewHistory[int64](b, StorePassHistTs, schema.No, cfg.HistoryLength),
		team:            state.NewHistory[string](b, StorePassHistTeam, schema.No, cfg.HistoryLength),
		kicker:          state.NewHistory[string](b, StorePassHistKicker, schema.No, cfg.HistoryLength),
		receiver:        state.NewHistory[string](b, StorePassHistReceiver, schema.No, cfg.HistoryLength),
		interceptionTs:  state.NewSingleValue[int64](b, StoreInterceptionTs, schema.No),
		misplacedTs:     state.NewSingleValue[int64](b, StoreMisplacedTs, schema.No),
		clearanceTs:     state.NewSingleValue[int64](b, StoreClearanceTs, schema.No),
		ballLeftFieldTs: state.NewSingleValue[int64](b, StoreBallLeftFieldTs, schema.No),
		seqFirstTs:      state.NewSingleValue[int64](b, storeSeqFirstTs, schema.No),
		seqLastLen:      state.NewSingleValue[int64](b, storeSeqLastLen, schema.No),
		seqCounts:       state.NewSingleValue[map[string]int64](b, storeSeqCounts, schema.No),
		statsInit:       state.NewSingleValue[bool](b, storeSeqStatsInit, schema.No),
	}
}

func (d *PassComboDetector) Name() string { return "passCombinationDetection" }

// Histories lets the pipeline wire the store module onto the same handles
// this detector reads.
func (d *PassComboDetector) Histories() (ts *state.HistoryStore[int64], team, kicker, receiver *state.HistoryStore[string]) {
	return d.ts, d.team, d.kicker, d.receiver
}

func (d *PassComboDetector) Process(e *element.Element) ([]*element.Element, error) {
	match := e.Key
	out := d.initialStatistics(e)

	n := d.sequenceLength(match)
	if n < 2 {
		return out, nil
	}

	tss := d.ts.ListKey(match, innerAll)
	teams := d.team.ListKey(match, innerAll)
	kickers := d.kicker.ListKey(match, innerAll)
	receivers := d.receiver.ListKey(match, innerAll)

	firstTs := tss[n-1]
	team := teams[0]

	// Participants in chronological order: the kickers oldest-first, then the
	// final receiver.
	players := make([]string, 0, n+1)
	for i := n - 1; i >= 0; i-- {
		players = append(players, kickers[i])
	}
	players = append(players, receivers[0])

	out = append(out, element.NewPassSequenceEvent(match, e.Timestamp, team, players, int64(n), firstTs))

	doublePass := n == 2 && receivers[0] == kickers[1]
	if doublePass {
		out = append(out, element.NewDoublePassEvent(match, e.Timestamp, team, kickers[1], kickers[0]))
	}

	for _, item := range d.participants(team, players) {
		out = append(out, d.updateStatistics(e, item, int64(n), firstTs, doublePass))
	}
	return out, nil
}

// sequenceLength walks the pass histories newest to oldest and returns how
// many recent passes form one uninterrupted sequence of a single team.
func (d *PassComboDetector) sequenceLength(match string) int {
	tss := d.ts.ListKey(match, innerAll)
	teams := d.team.ListKey(match, innerAll)
	kickers := d.kicker.ListKey(match, innerAll)
	receivers := d.receiver.ListKey(match, innerAll)
	if len(tss) == 0 {
		return 0
	}

	breakers := []int64{
		d.interceptionTs.GetKey(match, innerAll),
		d.misplacedTs.GetKey(match, innerAll),
		d.clearanceTs.GetKey(match, innerAll),
		d.ballLeftFieldTs.GetKey(match, innerAll),
	}

	n := 1
	for i := 1; i < len(tss); i++ {
		if teams[i] != teams[0] {
			break
		}
		if tss[i-1]-tss[i] > d.cfg.MaxTimeBetweenPasses {
			break
		}
		if kickers[i-1] != receivers[i] {
			break
		}
		broken := false
		for _, b := range breakers {
			if b > tss[i] {
				broken = true
				break
			}
		}
		if broken {
			break
		}
		n++
	}
	return n
}

// participants lists the statistics items of a sequence: the team plus each
// distinct player.
func (d *PassComboDetector) participants(team string, players []string) []Item {
	out := []Item{{TeamID: team}}
	seen := map[string]bool{}
	for _, p := range players {
		if !seen[p] {
			seen[p] = true
			out = append(out, Item{PlayerID: p, TeamID: team})
		}
	}
	return out
}

// updateStatistics folds the sequence into one participant's counters. A
// sequence is counted once per participant, keyed by its first timestamp;
// when a known sequence grows, only the length delta is added to the sum.
func (d *PassComboDetector) updateStatistics(e *element.Element, item Item, length, firstTs int64, doublePass bool) *element.Element {
	match := e.Key
	inner := item.InnerKey()
	deltas := map[string]int64{}

	if d.seqFirstTs.GetKey(match, inner) != firstTs {
		d.seqFirstTs.PutKey(match, inner, firstTs)
		deltas["numPassSequences"] = 1
		deltas["sumLength"] = length
	} else {
		deltas["sumLength"] = length - d.seqLastLen.GetKey(match, inner)
	}
	d.seqLastLen.PutKey(match, inner, length)
	if doublePass {
		deltas["numDoublePasses"] = 1
	}

	counts := bumpCounts(d.seqCounts, match, inner, deltas)
	if length > counts["maxLength"] {
		counts = bumpCounts(d.seqCounts, match, inner, map[string]int64{"maxLength": length - counts["maxLength"]})
	}
	return element.NewPassSequenceStatistics(match, e.Timestamp, item.PlayerID, item.TeamID,
		counts["numPassSequences"], counts["sumLength"], counts["maxLength"], counts["numDoublePasses"])
}

// initialStatistics emits zeroed sequence statistics once per match.
func (d *PassComboDetector) initialStatistics(e *element.Element) []*element.Element {
	match := e.Key
	if d.statsInit.GetKey(match, innerAll) {
		return nil
	}
	d.statsInit.PutKey(match, innerAll, true)
	var out []*element.Element
	for _, item := range Items(d.shared.Cohort) {
		out = append(out, element.NewPassSequenceStatistics(match, e.Timestamp, item.PlayerID, item.TeamID, 0, 0, 0, 0))
	}
	return out
}
