// Package geo holds the vector and angle math used for camera placement.
// Positions are in engine units with Z up; angles are in degrees.
package geo

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Vector is a position or direction in world space.
type Vector = mgl32.Vec3

// QAngle is a view angle in degrees (pitch, yaw, roll).
type QAngle struct {
	Pitch float32
	Yaw   float32
	Roll  float32
}

// Up is the world vertical axis.
var Up = Vector{0, 0, 1}

// DirectionFromYaw returns the unit horizontal direction for a yaw in degrees.
// The Z component is always zero.
func DirectionFromYaw(yaw float32) Vector {
	rad := mgl32.DegToRad(yaw)
	return Vector{math32.Cos(rad), math32.Sin(rad), 0}
}

// Lerp interpolates componentwise between from and to. t is not clamped.
func Lerp(from, to Vector, t float32) Vector {
	return Vector{
		from[0] + (to[0]-from[0])*t,
		from[1] + (to[1]-from[1])*t,
		from[2] + (to[2]-from[2])*t,
	}
}

// Dot returns the dot product of a and b.
func Dot(a, b Vector) float32 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

// Length returns the Euclidean length of v.
func Length(v Vector) float32 {
	return math32.Sqrt(Dot(v, v))
}

// Normalize returns v scaled to unit length.
// A zero-length input yields the zero vector, which callers treat as "no direction".
func Normalize(v Vector) Vector {
	l := Length(v)
	if l == 0 {
		return Vector{}
	}
	return Vector{v[0] / l, v[1] / l, v[2] / l}
}

// Near reports whether every component of a and b differs by at most tol.
func Near(a, b Vector, tol float32) bool {
	for i := range a {
		if math32.Abs(a[i]-b[i]) > tol {
			return false
		}
	}
	return true
}

// ClampDistance limits d to [lo, hi]. If lo > hi the upper bound wins,
// so a requested distance below the minimum is never exceeded.
func ClampDistance(d, lo, hi float32) float32 {
	if lo > hi {
		return hi
	}
	return mgl32.Clamp(d, lo, hi)
}

// Facing reports whether target lies in the half-space in front of an observer
// at from looking along yaw.
func Facing(from Vector, yaw float32, target Vector) bool {
	return Dot(target.Sub(from), DirectionFromYaw(yaw)) > 0
}
