package detector

import (
	"github.com/pable/go-pitch-stream/internal/element"
	"github.com/pable/go-pitch-stream/internal/schema"
	"github.com/pable/go-pitch-stream/internal/state"
)

const storeLastKickoffTs = "lastKickoffTs"

// KickoffConfig holds the kickoff geometry and debounce thresholds.
type KickoffConfig struct {
	MaxBallMidpointDist    float64
	MinPlayerMidlineDist   float64 // no-man's-land half-width around x = 0
	MidcircleRadius        float64
	MinTimeBetweenKickoffs int64 // ms
}

// KickoffDetector recognizes a kickoff formation on ball ticks near the
// midpoint and records which team plays on which side.
type KickoffDetector struct {
	cfg    KickoffConfig
	shared *Shared

	lastTs *state.SingleValueStore[int64]
}

func NewKickoffDetector(b state.Backend, shared *Shared, cfg KickoffConfig) *KickoffDetector {
	if cfg.MidcircleRadius == 0 {
		cfg.MidcircleRadius = 9.15
	}
	return &KickoffDetector{
		cfg:    cfg,
		shared: shared,
		lastTs: state.NewSingleValue[int64](b, storeLastKickoffTs, schema.No),
	}
}

func (d *KickoffDetector) Name() string { return "kickoffDetection" }

func (d *KickoffDetector) Process(e *element.Element) ([]*element.Element, error) {
	match := e.Key
	ballPos, err := e.Position(0)
	if err != nil {
		return nil, err
	}
	if ballPos.NormXY() >= d.cfg.MaxBallMidpointDist {
		return nil, nil
	}

	// Debounced, except a timestamp regression signals a replayed run and is
	// accepted as a fresh kickoff.
	last, seen := d.lastTs.TryGetKey(match, innerAll)
	if seen && e.Timestamp >= last && e.Timestamp-last < d.cfg.MinTimeBetweenKickoffs {
		return nil, nil
	}

	var midcircle, left, right []playerDist
	for _, p := range d.shared.playersByDistance(match, ballPos) {
		pos := p.pos
		switch {
		case pos.NormXY() < d.cfg.MidcircleRadius:
			midcircle = append(midcircle, p)
		case pos.X < -d.cfg.MinPlayerMidlineDist:
			left = append(left, p)
		case pos.X > d.cfg.MinPlayerMidlineDist:
			right = append(right, p)
		}
	}
	if len(midcircle) == 0 || !singleTeam(midcircle) || !singleTeam(left) || !singleTeam(right) {
		return nil, nil
	}
	size := d.shared.Cohort.TeamSize()
	if len(left) > size || len(right) > size {
		return nil, nil
	}

	leftTeam, rightTeam := d.sides(left, right)
	if leftTeam == "" || rightTeam == "" {
		return nil, nil
	}

	kicker := midcircle[0] // nearest to the ball; the distance sort is stable here
	d.lastTs.PutKey(match, innerAll, e.Timestamp)
	d.shared.LeftTeam.PutKey(match, innerAll, leftTeam)
	d.shared.RightTeam.PutKey(match, innerAll, rightTeam)
	return []*element.Element{element.NewKickoffEvent(match, e.Timestamp, kicker.id, kicker.team,
		leftTeam, rightTeam, ballPos)}, nil
}

// sides derives the team of each half. An empty half falls back to the team
// the other half does not contain.
func (d *KickoffDetector) sides(left, right []playerDist) (string, string) {
	teams := d.shared.Cohort.Teams
	if len(teams) != 2 {
		return "", ""
	}
	leftTeam, rightTeam := "", ""
	if len(left) > 0 {
		leftTeam = left[0].team
	}
	if len(right) > 0 {
		rightTeam = right[0].team
	}
	if leftTeam == "" && rightTeam != "" {
		leftTeam = other(teams, rightTeam)
	}
	if rightTeam == "" && leftTeam != "" {
		rightTeam = other(teams, leftTeam)
	}
	if leftTeam == rightTeam {
		return "", ""
	}
	return leftTeam, rightTeam
}

func singleTeam(ps []playerDist) bool {
	for i := 1; i < len(ps); i++ {
		if ps[i].team != ps[0].team {
			return false
		}
	}
	return true
}

func other(teams []string, t string) string {
	if teams[0] == t {
		return teams[1]
	}
	return teams[0]
}
