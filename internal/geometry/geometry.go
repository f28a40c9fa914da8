package geometry

import (
	"math"
	"sort"
)

// Vec3 is a position or velocity in metres (SI units), pitch-centric:
// X runs along the long axis of the field, Y across it, Z is height.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

func (v Vec3) Scale(f float64) Vec3 {
	return Vec3{v.X * f, v.Y * f, v.Z * f}
}

func (v Vec3) Dot(o Vec3) float64 {
	return v.X*o.X + v.Y*o.Y + v.Z*o.Z
}

// Norm is the Euclidean length.
func (v Vec3) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// NormXY is the length of the projection onto the pitch plane.
func (v Vec3) NormXY() float64 {
	return math.Hypot(v.X, v.Y)
}

func (v Vec3) DistanceTo(o Vec3) float64 {
	return v.Sub(o).Norm()
}

// DistanceXY is the distance in the pitch plane, ignoring height.
func (v Vec3) DistanceXY(o Vec3) float64 {
	return math.Hypot(v.X-o.X, v.Y-o.Y)
}

// AngleTo returns the angle between two vectors in radians, in [0, π].
// The angle to a zero vector is 0.
func (v Vec3) AngleTo(o Vec3) float64 {
	nv, no := v.Norm(), o.Norm()
	if nv == 0 || no == 0 {
		return 0
	}
	cos := v.Dot(o) / (nv * no)
	if cos > 1 {
		cos = 1
	} else if cos < -1 {
		cos = -1
	}
	return math.Acos(cos)
}

// ProjectOnto returns the scalar projection of v onto the direction of o.
// Positive means v points with o, negative against it. Zero if o is zero.
func (v Vec3) ProjectOnto(o Vec3) float64 {
	n := o.Norm()
	if n == 0 {
		return 0
	}
	return v.Dot(o) / n
}

// BoundingRectArea is the area of the minimal axis-aligned rectangle
// containing the XY projections of the given points.
func BoundingRectArea(points []Vec3) float64 {
	if len(points) == 0 {
		return 0
	}
	minX, maxX := points[0].X, points[0].X
	minY, maxY := points[0].Y, points[0].Y
	for _, p := range points[1:] {
		minX = math.Min(minX, p.X)
		maxX = math.Max(maxX, p.X)
		minY = math.Min(minY, p.Y)
		maxY = math.Max(maxY, p.Y)
	}
	return (maxX - minX) * (maxY - minY)
}

// ConvexHull computes the convex hull of the XY projections of the given
// points using Andrew's monotone chain. The hull is returned in
// counter-clockwise order without the closing point. Fewer than three
// distinct points yield the deduplicated input.
func ConvexHull(points []Vec3) []Vec3 {
	pts := make([]Vec3, len(points))
	copy(pts, points)
	sort.Slice(pts, func(i, j int) bool {
		if pts[i].X != pts[j].X {
			return pts[i].X < pts[j].X
		}
		return pts[i].Y < pts[j].Y
	})
	// Deduplicate.
	uniq := pts[:0]
	for i, p := range pts {
		if i == 0 || p.X != uniq[len(uniq)-1].X || p.Y != uniq[len(uniq)-1].Y {
			uniq = append(uniq, p)
		}
	}
	pts = uniq
	if len(pts) < 3 {
		return pts
	}

	cross := func(o, a, b Vec3) float64 {
		return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
	}

	var lower []Vec3
	for _, p := range pts {
		for len(lower) >= 2 && cross(lower[len(lower)-2], lower[len(lower)-1], p) <= 0 {
			lower = lower[:len(lower)-1]
		}
		lower = append(lower, p)
	}
	var upper []Vec3
	for i := len(pts) - 1; i >= 0; i-- {
		p := pts[i]
		for len(upper) >= 2 && cross(upper[len(upper)-2], upper[len(upper)-1], p) <= 0 {
			upper = upper[:len(upper)-1]
		}
		upper = append(upper, p)
	}
	return append(lower[:len(lower)-1], upper[:len(upper)-1]...)
}

// PolygonArea computes the area of a simple polygon given its vertices in
// counter-clockwise order (Surveyor's formula, XY plane).
func PolygonArea(hull []Vec3) float64 {
	if len(hull) < 3 {
		return 0
	}
	sum := 0.0
	for i := range hull {
		j := (i + 1) % len(hull)
		sum += hull[i].X*hull[j].Y - hull[j].X*hull[i].Y
	}
	return math.Abs(sum) / 2
}
