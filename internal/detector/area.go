package detector

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pable/go-pitch-stream/internal/element"
	"github.com/pable/go-pitch-stream/internal/geometry"
)

// Area is one axis-aligned rectangle the detector watches.
type Area struct {
	ID   string
	XMin float64
	XMax float64
	YMin float64
	YMax float64
}

// Contains tests XY membership, boundaries inclusive.
func (a Area) Contains(p geometry.Vec3) bool {
	return p.X >= a.XMin && p.X <= a.XMax && p.Y >= a.YMin && p.Y <= a.YMax
}

// ParseAreas parses the `{id:xMin:xMax:yMin:yMax}%…` area list encoding.
func ParseAreas(s string) ([]Area, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var out []Area
	for _, part := range strings.Split(s, "%") {
		part = strings.TrimSpace(part)
		if !strings.HasPrefix(part, "{") || !strings.HasSuffix(part, "}") {
			return nil, fmt.Errorf("area entry %q: expected {id:xMin:xMax:yMin:yMax}", part)
		}
		fields := strings.Split(part[1:len(part)-1], ":")
		if len(fields) != 5 {
			return nil, fmt.Errorf("area entry %q: expected 5 fields", part)
		}
		a := Area{ID: fields[0]}
		vals := make([]float64, 4)
		for i, f := range fields[1:] {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, fmt.Errorf("area entry %q: %w", part, err)
			}
			vals[i] = v
		}
		a.XMin, a.XMax, a.YMin, a.YMax = vals[0], vals[1], vals[2], vals[3]
		if a.XMin > a.XMax || a.YMin > a.YMax {
			return nil, fmt.Errorf("area entry %q: empty rectangle", part)
		}
		out = append(out, a)
	}
	return out, nil
}

// FieldAreas builds the standard area set for a pitch of the given
// dimensions: the field itself, its thirds, the goal frames and the bands
// slightly above them. goalWidth is the mouth width, aboveBand the height
// band tracked past the crossbar plane (areas are XY rectangles; the z test
// happens in the classifier).
func FieldAreas(length, width, goalWidth, behindDepth float64) []Area {
	halfL, halfW, halfG := length/2, width/2, goalWidth/2
	return []Area{
		{ID: AreaField, XMin: -halfL, XMax: halfL, YMin: -halfW, YMax: halfW},
		{ID: AreaLeftThird, XMin: -halfL, XMax: -length / 6, YMin: -halfW, YMax: halfW},
		{ID: AreaCenterThird, XMin: -length / 6, XMax: length / 6, YMin: -halfW, YMax: halfW},
		{ID: AreaRightThird, XMin: length / 6, XMax: halfL, YMin: -halfW, YMax: halfW},
		{ID: AreaLeftGoal, XMin: -halfL - behindDepth, XMax: -halfL, YMin: -halfG, YMax: halfG},
		{ID: AreaRightGoal, XMin: halfL, XMax: halfL + behindDepth, YMin: -halfG, YMax: halfG},
		{ID: AreaAboveLeftGoal, XMin: -halfL - behindDepth, XMax: -halfL, YMin: -halfG * 2, YMax: halfG * 2},
		{ID: AreaAboveRightGoal, XMin: halfL, XMax: halfL + behindDepth, YMin: -halfG * 2, YMax: halfG * 2},
	}
}

// AreaDetector emits an areaEvent whenever a tracked object crosses the
// boundary of a configured area. The per-(object, area) flag defaults to
// "outside", so the first in-area sample emits an entry event.
type AreaDetector struct {
	areas  []Area
	shared *Shared
}

func NewAreaDetector(shared *Shared, areas []Area) *AreaDetector {
	return &AreaDetector{areas: areas, shared: shared}
}

func (d *AreaDetector) Name() string { return "areaDetection" }

func (d *AreaDetector) Process(e *element.Element) ([]*element.Element, error) {
	objectID, err := e.ObjectID(0)
	if err != nil {
		return nil, err
	}
	groupID, err := e.GroupID(0)
	if err != nil {
		return nil, err
	}
	pos, err := e.Position(0)
	if err != nil {
		return nil, err
	}

	var out []*element.Element
	for _, a := range d.areas {
		in := a.Contains(pos)
		flag := flagKey(objectID, a.ID)
		if in == d.shared.AreaFlag.GetKey(e.Key, flag) {
			continue
		}
		d.shared.AreaFlag.PutKey(e.Key, flag, in)
		out = append(out, element.NewAreaEvent(e.Key, e.Timestamp, objectID, groupID, a.ID, in, pos))
	}
	return out, nil
}

func flagKey(objectID, areaID string) string {
	return objectID + "|" + areaID
}
