package geom

import (
	"errors"
	"fmt"
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
	"gonum.org/v1/gonum/spatial/r3"
)

// ErrDegenerateLine is returned when a segment has zero length.
var ErrDegenerateLine = errors.New("degenerate line: segment has zero length")

// ErrNotALine is returned when a curve cannot be used as a two-point segment.
var ErrNotALine = errors.New("not a line: curve is not a two-point segment")

// ErrNonFinite is returned when a length or coordinate is infinite or NaN.
var ErrNonFinite = errors.New("non-finite line: value is infinite or NaN")

// Point3 is a position in model space.
type Point3 = v3.Vec

// Vector3 is a direction with magnitude.
type Vector3 = v3.Vec

// Segment is a directed line from Start to End.
type Segment struct {
	Start Point3 `json:"start"`
	End   Point3 `json:"end"`
}

// NewSegment returns the segment from start to end.
func NewSegment(start, end Point3) Segment {
	return Segment{Start: start, End: end}
}

// Vector returns End - Start.
func (s Segment) Vector() Vector3 {
	return s.End.Sub(s.Start)
}

// Length returns the Euclidean length of the segment. It does not underflow
// for tiny segments or overflow while squaring large ones.
func (s Segment) Length() float64 {
	return Norm(s.Vector())
}

// Norm returns the Euclidean norm of v, computed without intermediate
// overflow or underflow.
func Norm(v Vector3) float64 {
	return r3.Norm(r3.Vec{X: v.X, Y: v.Y, Z: v.Z})
}

// IsFinite reports whether f is neither infinite nor NaN.
func IsFinite(f float64) bool {
	return !math.IsInf(f, 0) && !math.IsNaN(f)
}

// Unit returns v divided by its norm. A zero vector fails with
// ErrDegenerateLine and an infinite or NaN norm with ErrNonFinite.
func Unit(v Vector3) (Vector3, error) {
	n := Norm(v)
	if n == 0 {
		return Vector3{}, ErrDegenerateLine
	}
	if !IsFinite(n) {
		return Vector3{}, ErrNonFinite
	}
	return Vector3{X: v.X / n, Y: v.Y / n, Z: v.Z / n}, nil
}

// IsDegenerate reports whether the endpoints coincide exactly.
// No tolerance is applied.
func (s Segment) IsDegenerate() bool {
	return s.Length() == 0
}

// Direction returns the unit vector from Start to End.
func (s Segment) Direction() (Vector3, error) {
	return Unit(s.Vector())
}

// PointAt returns Start + t*(End-Start). t=0 is Start, t=1 is End.
func (s Segment) PointAt(t float64) Point3 {
	return s.Start.Add(s.Vector().MulScalar(t))
}

// Reversed returns the segment with its endpoints swapped.
func (s Segment) Reversed() Segment {
	return Segment{Start: s.End, End: s.Start}
}

func (s Segment) String() string {
	return fmt.Sprintf("(%g,%g,%g)->(%g,%g,%g)",
		s.Start.X, s.Start.Y, s.Start.Z, s.End.X, s.End.Y, s.End.Z)
}
