package detector

import (
	"strconv"
	"strings"

	"github.com/pable/go-pitch-stream/internal/element"
	"github.com/pable/go-pitch-stream/internal/schema"
	"github.com/pable/go-pitch-stream/internal/state"
)

const (
	storeHeatmapLastSecond = "heatmapLastSecond"
	storeHeatmapDiffs      = "heatmapDiffs"
	storeHeatmapFullGame   = "heatmapFullGame"
	storeLastPositionTs    = "lastPositionTs"
)

// HeatmapConfig holds the grid geometry and the reporting intervals.
type HeatmapConfig struct {
	XCells    int64
	YCells    int64
	Intervals []int64 // seconds; 0 means the full game
	// ActiveTimeThreshold is how recently an item must have moved to stay
	// heatmap-eligible, ms. Zero disables the check.
	ActiveTimeThreshold int64
}

func (c HeatmapConfig) historyCap() int {
	max := 1
	for _, iv := range c.Intervals {
		if int(iv) > max {
			max = int(iv)
		}
	}
	return max
}

// HeatmapBuilder folds every in-field player position into the last-second
// grids of the player and their team.
type HeatmapBuilder struct {
	cfg    HeatmapConfig
	shared *Shared

	lastSecond *state.SingleValueStore[map[string]int64]
	lastPosTs  *state.SingleValueStore[int64]
}

func NewHeatmapBuilder(b state.Backend, shared *Shared, cfg HeatmapConfig) *HeatmapBuilder {
	return &HeatmapBuilder{
		cfg:        cfg,
		shared:     shared,
		lastSecond: state.NewSingleValue[map[string]int64](b, storeHeatmapLastSecond, schema.No),
		lastPosTs:  state.NewSingleValue[int64](b, storeLastPositionTs, schema.No),
	}
}

func (d *HeatmapBuilder) Name() string { return "heatmapConstruction" }

func (d *HeatmapBuilder) Process(e *element.Element) ([]*element.Element, error) {
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
	match := e.Key
	length := d.shared.FieldLength.GetKey(match, innerAll)
	width := d.shared.FieldWidth.GetKey(match, innerAll)
	if length == 0 || width == 0 {
		return nil, nil
	}
	// positions at or outside the boundary contribute nothing
	if pos.X <= -length/2 || pos.X >= length/2 || pos.Y <= -width/2 || pos.Y >= width/2 {
		return nil, nil
	}
	cx := int64((pos.X + length/2) / length * float64(d.cfg.XCells))
	cy := int64((pos.Y + width/2) / width * float64(d.cfg.YCells))
	cell := cellKey(cx, cy)

	for _, inner := range []string{playerID, teamID} {
		bumpCounts(d.lastSecond, match, inner, map[string]int64{cell: 1})
		d.lastPosTs.PutKey(match, inner, e.Timestamp)
	}
	return nil, nil
}

// HeatmapSender is the window half: once per tick it rolls the last-second
// grid of every statistics item into the diff history and the full-game
// grid, and emits one heatmapStatistics element per configured interval.
type HeatmapSender struct {
	cfg    HeatmapConfig
	shared *Shared

	lastSecond *state.SingleValueStore[map[string]int64]
	lastPosTs  *state.SingleValueStore[int64]
	diffs      *state.HistoryStore[map[string]int64]
	fullGame   *state.SingleValueStore[map[string]int64]
}

func NewHeatmapSender(b state.Backend, shared *Shared, cfg HeatmapConfig) *HeatmapSender {
	return &HeatmapSender{
		cfg:        cfg,
		shared:     shared,
		lastSecond: state.NewSingleValue[map[string]int64](b, storeHeatmapLastSecond, schema.No),
		lastPosTs:  state.NewSingleValue[int64](b, storeLastPositionTs, schema.No),
		diffs:      state.NewHistory[map[string]int64](b, storeHeatmapDiffs, schema.No, cfg.historyCap()),
		fullGame:   state.NewSingleValue[map[string]int64](b, storeHeatmapFullGame, schema.No),
	}
}

func (d *HeatmapSender) Name() string { return "heatmapSending" }

// Process lets the sender sit as a normal graph node consuming the per-match
// window tick elements.
func (d *HeatmapSender) Process(e *element.Element) ([]*element.Element, error) {
	return d.Window(e.Key, e.Timestamp)
}

func (d *HeatmapSender) Window(match string, ts int64) ([]*element.Element, error) {
	var out []*element.Element
	for _, item := range Items(d.shared.Cohort) {
		inner := item.InnerKey()
		lastTs, seen := d.lastPosTs.TryGetKey(match, inner)
		if !seen {
			continue
		}
		if d.cfg.ActiveTimeThreshold > 0 && ts-lastTs > d.cfg.ActiveTimeThreshold {
			continue
		}

		diff := d.lastSecond.GetKey(match, inner)
		d.diffs.AddKey(match, inner, diff)
		bumpCounts(d.fullGame, match, inner, diff)
		d.lastSecond.PutKey(match, inner, map[string]int64{})

		for _, interval := range d.cfg.Intervals {
			grid := d.rollup(match, inner, interval)
			var total int64
			for _, v := range grid {
				total += v
			}
			out = append(out, element.NewHeatmapStatistics(match, ts, item.PlayerID, item.TeamID,
				interval, total, d.cfg.XCells, d.cfg.YCells, d.encodeCells(grid)))
		}
	}
	return out, nil
}

// rollup sums the most recent interval diffs; fewer diffs than requested use
// all that exist. Interval 0 is the full game.
func (d *HeatmapSender) rollup(match, inner string, interval int64) map[string]int64 {
	if interval == 0 {
		return d.fullGame.GetKey(match, inner)
	}
	diffs := d.diffs.ListKey(match, inner)
	if int64(len(diffs)) > interval {
		diffs = diffs[:interval]
	}
	sum := map[string]int64{}
	for _, diff := range diffs {
		for k, v := range diff {
			sum[k] += v
		}
	}
	return sum
}

// encodeCells renders the grid row-major with zero runs compressed to `0xN`.
func (d *HeatmapSender) encodeCells(grid map[string]int64) string {
	var parts []string
	zeros := 0
	flushZeros := func() {
		if zeros > 0 {
			parts = append(parts, "0x"+strconv.Itoa(zeros))
			zeros = 0
		}
	}
	for x := int64(0); x < d.cfg.XCells; x++ {
		for y := int64(0); y < d.cfg.YCells; y++ {
			v := grid[cellKey(x, y)]
			if v == 0 {
				zeros++
				continue
			}
			flushZeros()
			parts = append(parts, strconv.FormatInt(v, 10))
		}
	}
	flushZeros()
	return strings.Join(parts, ";")
}

func cellKey(x, y int64) string {
	return strconv.FormatInt(x, 10) + "," + strconv.FormatInt(y, 10)
}
