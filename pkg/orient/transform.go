package orient

import (
	"fmt"
	"math"

	"github.com/chazu/orient/pkg/geom"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Transform is a similarity transform: uniform scale and rotation about the
// source start, followed by a move onto the target start. It is immutable.
//
// As a matrix it is
//
//	translate(target) * rotate(axis, angle) * scale(s) * translate(-origin)
type Transform struct {
	origin geom.Point3
	target geom.Point3
	scale  float64
	axis   geom.Vector3 // always unit length
	angle  float64      // radians, in [0, pi]

	m   sdf.M44
	rot r3.Rotation
}

func newTransform(origin, target geom.Point3, scale float64, axis geom.Vector3, angle float64) *Transform {
	s := v3.Vec{X: scale, Y: scale, Z: scale}
	m := sdf.Translate3d(target).
		Mul(sdf.Rotate3d(axis, angle)).
		Mul(sdf.Scale3d(s)).
		Mul(sdf.Translate3d(origin.MulScalar(-1)))

	return &Transform{
		origin: origin,
		target: target,
		scale:  scale,
		axis:   axis,
		angle:  angle,
		m:      m,
		rot:    r3.NewRotation(angle, toR3(axis)),
	}
}

// Identity returns the transform that leaves every point where it is.
func Identity() *Transform {
	return newTransform(geom.Point3{}, geom.Point3{}, 1, geom.Vector3{X: 1}, 0)
}

// Scale returns the uniform scale factor. It is always positive.
func (t *Transform) Scale() float64 { return t.scale }

// Axis returns the unit rotation axis. When Angle is zero the axis carries
// no meaning.
func (t *Transform) Axis() geom.Vector3 { return t.axis }

// Angle returns the rotation angle in radians.
func (t *Transform) Angle() float64 { return t.angle }

// Origin returns the point the transform pivots about (the source start).
func (t *Transform) Origin() geom.Point3 { return t.origin }

// Target returns the image of Origin (the target start).
func (t *Transform) Target() geom.Point3 { return t.target }

// Translation returns the image of the world origin, i.e. the translation
// column of Matrix.
func (t *Transform) Translation() geom.Vector3 {
	return t.Apply(geom.Point3{})
}

// Matrix returns the 4x4 homogeneous matrix of the transform.
func (t *Transform) Matrix() sdf.M44 { return t.m }

// Rotation returns the rotational part as a unit quaternion.
func (t *Transform) Rotation() r3.Rotation { return t.rot }

// Quaternion returns the rotation as (w, x, y, z).
func (t *Transform) Quaternion() [4]float64 {
	q := quat.Number(t.rot)
	return [4]float64{q.Real, q.Imag, q.Jmag, q.Kmag}
}

// Apply maps a point.
func (t *Transform) Apply(p geom.Point3) geom.Point3 {
	return t.m.MulPosition(p)
}

// ApplyVector maps a free vector: scaled and rotated, never translated.
func (t *Transform) ApplyVector(v geom.Vector3) geom.Vector3 {
	return fromR3(t.rot.Rotate(r3.Scale(t.scale, toR3(v))))
}

// IsIdentity reports whether the transform moves no point by more than a
// tolerance-sized amount near the origin.
func (t *Transform) IsIdentity(tol float64) bool {
	if math.Abs(t.scale-1) > tol || t.angle > tol {
		return false
	}
	return t.Translation().Length() <= tol
}

func (t *Transform) String() string {
	tr := t.Translation()
	return fmt.Sprintf("scale=%g axis=(%g,%g,%g) angle=%gdeg translation=(%g,%g,%g)",
		t.scale, t.axis.X, t.axis.Y, t.axis.Z, t.angle*180/math.Pi, tr.X, tr.Y, tr.Z)
}

func toR3(v v3.Vec) r3.Vec {
	return r3.Vec{X: v.X, Y: v.Y, Z: v.Z}
}

func fromR3(v r3.Vec) v3.Vec {
	return v3.Vec{X: v.X, Y: v.Y, Z: v.Z}
}
