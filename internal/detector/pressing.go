package detector

import (
	"github.com/pable/go-pitch-stream/internal/element"
	"github.com/pable/go-pitch-stream/internal/geometry"
)

// PressingDetector computes the pressing index on each ball tick: how hard
// the defending players converge on the ball. The value only feeds the
// shared pressing store; nothing is emitted.
type PressingDetector struct {
	shared *Shared
}

func NewPressingDetector(shared *Shared) *PressingDetector {
	return &PressingDetector{shared: shared}
}

func (d *PressingDetector) Name() string { return "pressingIndexCalculation" }

func (d *PressingDetector) Process(e *element.Element) ([]*element.Element, error) {
	match := e.Key
	team := d.shared.TeamInPossession.GetKey(match, innerAll)
	if team == "" {
		d.shared.PressingIndex.PutKey(match, innerAll, 0)
		return nil, nil
	}
	ballPos, err := e.Position(0)
	if err != nil {
		return nil, err
	}
	vx, err := e.Double("vx")
	if err != nil {
		return nil, err
	}
	vy, err := e.Double("vy")
	if err != nil {
		return nil, err
	}
	vz, err := e.Double("vz")
	if err != nil {
		return nil, err
	}
	ballVel := geometry.Vec3{X: vx, Y: vy, Z: vz}

	var index float64
	for _, p := range d.shared.Cohort.Players {
		if p.TeamID == team {
			continue
		}
		pos, ok := d.shared.Position.TryGetKey(match, p.ID)
		if !ok {
			continue
		}
		dist := ballPos.DistanceTo(pos)
		if dist <= 0 {
			continue
		}
		vel := d.shared.Velocity.GetKey(match, p.ID)
		vb := ballVel.ProjectOnto(pos.Sub(ballPos))
		vp := vel.ProjectOnto(ballPos.Sub(pos))
		if contribution := (vp + vb) / dist; contribution > 0 {
			index += contribution
		}
	}
	d.shared.PressingIndex.PutKey(match, innerAll, index)
	return nil, nil
}
