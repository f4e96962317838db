// Package geom holds the small amount of vector and rotation math shared
// by the scene model, the pin generator and the floor engine. Vectors and
// rotations are gonum's spatial/r3 types.
package geom

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Eps is the tolerance used for parallel/degenerate checks.
const Eps = 1e-9

var (
	X = r3.Vec{X: 1}
	Y = r3.Vec{Y: 1}
	Z = r3.Vec{Z: 1}
)

// Identity is the identity rotation.
func Identity() r3.Rotation {
	return r3.Rotation{Real: 1}
}

// IsZero reports whether q is the zero quaternion, which r3 does not treat
// as a rotation at all.
func IsZero(q r3.Rotation) bool {
	return q == r3.Rotation{}
}

// Normalize treats the zero quaternion as identity.
func Normalize(q r3.Rotation) r3.Rotation {
	if IsZero(q) {
		return Identity()
	}
	return q
}

// Compose returns the rotation applying a first, then b.
func Compose(a, b r3.Rotation) r3.Rotation {
	a, b = Normalize(a), Normalize(b)
	return r3.Rotation(quat.Mul(quat.Number(b), quat.Number(a)))
}

// AxisAngle decomposes a unit quaternion. The identity yields angle 0 and
// the Z axis.
func AxisAngle(q r3.Rotation) (axis r3.Vec, angle float64) {
	q = Normalize(q)
	w := math.Max(-1, math.Min(1, q.Real))
	angle = 2 * math.Acos(w)
	s := math.Sqrt(1 - w*w)
	if s < Eps {
		return Z, 0
	}
	return r3.Vec{X: q.Imag / s, Y: q.Jmag / s, Z: q.Kmag / s}, angle
}

// RotationBetween returns the minimal rotation taking direction from onto
// direction to. Antiparallel inputs rotate half a turn about any axis
// perpendicular to from.
func RotationBetween(from, to r3.Vec) r3.Rotation {
	if r3.Norm(from) < Eps || r3.Norm(to) < Eps {
		return Identity()
	}
	f, t := r3.Unit(from), r3.Unit(to)
	d := r3.Dot(f, t)
	switch {
	case d > 1-Eps:
		return Identity()
	case d < -1+Eps:
		return r3.NewRotation(math.Pi, Perpendicular(f))
	}
	axis := r3.Cross(f, t)
	return r3.NewRotation(math.Acos(d), axis)
}

// Perpendicular returns a unit vector perpendicular to v.
func Perpendicular(v r3.Vec) r3.Vec {
	ref := X
	if math.Abs(v.X) > 0.9 {
		ref = Y
	}
	return r3.Unit(r3.Cross(v, ref))
}

// Angle returns the angle between two vectors in radians.
func Angle(a, b r3.Vec) float64 {
	c := r3.Cos(a, b)
	return math.Acos(math.Max(-1, math.Min(1, c)))
}

// Array converts to the kernel's [3]float64 form.
func Array(v r3.Vec) [3]float64 {
	return [3]float64{v.X, v.Y, v.Z}
}

// Vec converts from the kernel's [3]float64 form.
func Vec(a [3]float64) r3.Vec {
	return r3.Vec{X: a[0], Y: a[1], Z: a[2]}
}

// Round3 rounds to three decimals, the precision radii are compared at.
func Round3(x float64) float64 {
	return math.Round(x*1000) / 1000
}
