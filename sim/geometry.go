package sim

import "math"

// Vec2 is a 2D vector in world units
type Vec2 struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
}

func (v Vec2) Add(o Vec2) Vec2           { return Vec2{v.X + o.X, v.Y + o.Y} }
func (v Vec2) Sub(o Vec2) Vec2           { return Vec2{v.X - o.X, v.Y - o.Y} }
func (v Vec2) Scale(s float64) Vec2      { return Vec2{v.X * s, v.Y * s} }
func (v Vec2) Dot(o Vec2) float64        { return v.X*o.X + v.Y*o.Y }
func (v Vec2) Len() float64              { return math.Hypot(v.X, v.Y) }
func (v Vec2) LenSq() float64            { return v.X*v.X + v.Y*v.Y }
func (v Vec2) IsZero() bool              { return v.X == 0 && v.Y == 0 }
func (v Vec2) Rotate(deg float64) Vec2   { return rotate(v, deg) }
func (v Vec2) Towards(o Vec2) Vec2       { return o.Sub(v).Norm() }
func (v Vec2) DistanceTo(o Vec2) float64 { return Distance(v, o) }

// Norm returns the unit vector, or zero for the zero vector
func (v Vec2) Norm() Vec2 {
	l := v.Len()
	if l == 0 {
		return Vec2{}
	}
	return Vec2{v.X / l, v.Y / l}
}

func rotate(v Vec2, deg float64) Vec2 {
	s, c := math.Sincos(deg * math.Pi / 180)
	return Vec2{v.X*c - v.Y*s, v.X*s + v.Y*c}
}

// Heading returns the unit vector for an angle in degrees
func Heading(deg float64) Vec2 {
	s, c := math.Sincos(deg * math.Pi / 180)
	return Vec2{c, s}
}

// Polar returns origin + r along deg
func Polar(origin Vec2, deg, r float64) Vec2 {
	return origin.Add(Heading(deg).Scale(r))
}

// NormalizeDegrees wraps a into [0, 360)
func NormalizeDegrees(a float64) float64 {
	a = math.Mod(a, 360)
	if a < 0 {
		a += 360
	}
	// -1e-15 + 360 rounds to 360
	if a >= 360 {
		a = 0
	}
	return a
}

// AngleBetween returns the direction from b to a in degrees, [0, 360).
// Callers pass (target, self).
func AngleBetween(a, b Vec2) float64 {
	return NormalizeDegrees(math.Atan2(a.Y-b.Y, a.X-b.X) * 180 / math.Pi)
}

// Distance returns the euclidean distance between two points
func Distance(a, b Vec2) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// AngularDifference returns how far `from` must rotate clockwise and
// counter-clockwise to reach `target`. The pair always sums to 360;
// when the angles coincide it is (360, 0).
func AngularDifference(target, from float64) (cw, ccw float64) {
	ccw = NormalizeDegrees(target - from)
	cw = 360 - ccw
	return cw, ccw
}

// SmallestAngularDifference returns min(cw, ccw)
func SmallestAngularDifference(target, from float64) float64 {
	cw, ccw := AngularDifference(target, from)
	return math.Min(cw, ccw)
}

// TurnDirection returns +1 when counter-clockwise is the cheaper turn,
// -1 for clockwise, and 0 on a tie or when already aligned.
func TurnDirection(target, from float64) int {
	cw, ccw := AngularDifference(target, from)
	switch {
	case ccw == 0 || cw == ccw:
		return 0
	case ccw < cw:
		return 1
	default:
		return -1
	}
}

// Clamp restricts v to [lo, hi]
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
