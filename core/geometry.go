package core

import "math"

// EarthRadiusM is the mean Earth radius in metres, used by
// HasLineOfSight to test whether a satellite leg is occluded.
const EarthRadiusM = 6371000.0

// Vec3 is a cartesian vector in metres. Ground terminals sit at z=0 and
// the scenario origin is the trajectory centre projected to the ground,
// matching the coordinate convention of the scenario scripts.
type Vec3 struct {
	X, Y, Z float64
}

// Sub returns v - other.
func (v Vec3) Sub(other Vec3) Vec3 {
	return Vec3{X: v.X - other.X, Y: v.Y - other.Y, Z: v.Z - other.Z}
}

// Scale returns v multiplied by k.
func (v Vec3) Scale(k float64) Vec3 {
	return Vec3{X: v.X * k, Y: v.Y * k, Z: v.Z * k}
}

// Dot returns the dot product of two vectors.
func (v Vec3) Dot(other Vec3) float64 {
	return v.X*other.X + v.Y*other.Y + v.Z*other.Z
}

// Norm returns the Euclidean norm of the vector.
func (v Vec3) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// DistanceTo returns the straight-line distance between two points.
func (v Vec3) DistanceTo(other Vec3) float64 {
	return v.Sub(other).Norm()
}

// HasLineOfSight reports whether the straight segment between p1 and p2
// clears the Earth sphere. If the segment intersects the sphere, the
// Earth blocks the line of sight and the function returns false.
//
// Both positions are ECEF in metres; it only makes sense for scenarios
// whose coordinates are Earth-centred.
func HasLineOfSight(p1, p2 Vec3) bool {
	v := p2.Sub(p1)
	a := v.Dot(v)
	if a == 0 {
		// Degenerate case: same point. Outside Earth counts as LoS,
		// inside as blocked.
		return p1.Dot(p1) > EarthRadiusM*EarthRadiusM
	}

	// Closest point on the segment to the Earth's centre (origin):
	// t* minimises |p1 + t v|^2 over t ∈ ℝ, clamped to the segment.
	t := -p1.Dot(v) / a
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}

	closest := Vec3{
		X: p1.X + v.X*t,
		Y: p1.Y + v.Y*t,
		Z: p1.Z + v.Z*t,
	}
	return closest.Dot(closest) > EarthRadiusM*EarthRadiusM
}

// AngleBetween returns the angle between v1 and v2 in radians, in [0, π].
// If either vector has zero magnitude the angle is defined as 0: a
// degenerate pointing geometry carries no deflection penalty.
func AngleBetween(v1, v2 Vec3) float64 {
	n1 := v1.Norm()
	n2 := v2.Norm()
	if n1 == 0 || n2 == 0 {
		return 0
	}
	cos := v1.Dot(v2) / (n1 * n2)
	if cos > 1 {
		cos = 1
	} else if cos < -1 {
		cos = -1
	}
	return math.Acos(cos)
}
