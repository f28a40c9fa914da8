package detector

import (
	"sort"

	"github.com/pable/go-pitch-stream/internal/element"
	"github.com/pable/go-pitch-stream/internal/schema"
	"github.com/pable/go-pitch-stream/internal/state"
)

const storeOffsideNullSent = "offsideNullSent"

// OffsideDetector maintains the offside line while someone is in possession.
// The line sits at the second-last defender, measured in the possession
// team's playing direction, but never behind the possession holder.
type OffsideDetector struct {
	shared *Shared

	nullSent *state.SingleValueStore[bool]
}

func NewOffsideDetector(b state.Backend, shared *Shared) *OffsideDetector {
	return &OffsideDetector{
		shared:   shared,
		nullSent: state.NewSingleValue[bool](b, storeOffsideNullSent, schema.No),
	}
}

func (d *OffsideDetector) Name() string { return "offsideLineDetection" }

func (d *OffsideDetector) Process(e *element.Element) ([]*element.Element, error) {
	match := e.Key
	holder := d.shared.PlayerInPossession.GetKey(match, innerAll)

	if holder == "" {
		if d.nullSent.GetKey(match, innerAll) {
			return nil, nil
		}
		d.nullSent.PutKey(match, innerAll, true)
		return []*element.Element{element.NewOffsideLineState(match, e.Timestamp, "", 0, false, nil)}, nil
	}
	d.nullSent.PutKey(match, innerAll, false)

	playerID, err := e.ObjectID(0)
	if err != nil {
		return nil, err
	}
	if playerID != holder {
		return nil, nil
	}
	team := d.shared.TeamInPossession.GetKey(match, innerAll)
	holderPos, ok := d.shared.Position.TryGetKey(match, holder)
	if !ok {
		return nil, nil
	}

	// dir maps x onto advancement toward the opponent goal.
	dir := 1.0
	if team != d.shared.LeftTeam.GetKey(match, innerAll) {
		dir = -1.0
	}

	var foreignDepths []float64
	for _, p := range d.shared.Cohort.Players {
		if p.TeamID == team {
			continue
		}
		pos, ok := d.shared.Position.TryGetKey(match, p.ID)
		if !ok {
			continue
		}
		foreignDepths = append(foreignDepths, pos.X*dir)
	}
	if len(foreignDepths) < 2 {
		return nil, nil
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(foreignDepths)))
	lineDepth := foreignDepths[1]
	if holderDepth := holderPos.X * dir; lineDepth < holderDepth {
		lineDepth = holderDepth
	}

	var beyond []string
	for _, p := range d.shared.Cohort.Players {
		if p.TeamID != team || p.ID == holder {
			continue
		}
		pos, ok := d.shared.Position.TryGetKey(match, p.ID)
		if !ok {
			continue
		}
		if pos.X*dir > lineDepth {
			beyond = append(beyond, p.ID)
		}
	}
	return []*element.Element{element.NewOffsideLineState(match, e.Timestamp, team, lineDepth*dir, true, beyond)}, nil
}
