package orient

import (
	"fmt"
	"math"

	"github.com/chazu/orient/pkg/geom"
)

// parallelTolerance is the cross-product magnitude below which two unit
// directions are treated as parallel or anti-parallel.
const parallelTolerance = 1e-12

// Solve returns the similarity transform that maps source.Start onto
// target.Start and source.End onto target.End. Points on the source line map
// proportionally onto the target line.
//
// Either segment having exactly zero length fails with geom.ErrDegenerateLine.
// Lengths, scales or images that overflow float64 fail with geom.ErrNonFinite.
//
// When the directions are exactly opposite the rotation axis is not unique.
// Solve then turns by pi about the axis perpendicularTo picks, so the result
// is still deterministic.
func Solve(source, target geom.Segment) (*Transform, error) {
	sourceLen := source.Length()
	targetLen := target.Length()
	if sourceLen == 0 {
		return nil, fmt.Errorf("source %s: %w", source, geom.ErrDegenerateLine)
	}
	if targetLen == 0 {
		return nil, fmt.Errorf("target %s: %w", target, geom.ErrDegenerateLine)
	}
	if !geom.IsFinite(sourceLen) {
		return nil, fmt.Errorf("source %s: %w", source, geom.ErrNonFinite)
	}
	if !geom.IsFinite(targetLen) {
		return nil, fmt.Errorf("target %s: %w", target, geom.ErrNonFinite)
	}

	scale := targetLen / sourceLen
	if scale == 0 || !geom.IsFinite(scale) {
		return nil, fmt.Errorf("scale %g/%g: %w", targetLen, sourceLen, geom.ErrNonFinite)
	}

	sourceDir, err := source.Direction()
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", source, err)
	}
	targetDir, err := target.Direction()
	if err != nil {
		return nil, fmt.Errorf("target %s: %w", target, err)
	}
	axis, angle := rotationBetween(sourceDir, targetDir)

	t := newTransform(source.Start, target.Start, scale, axis, angle)
	for _, p := range []geom.Point3{t.Apply(source.Start), t.Apply(source.End)} {
		if !geom.IsFinite(p.X) || !geom.IsFinite(p.Y) || !geom.IsFinite(p.Z) {
			return nil, fmt.Errorf("image of %s: %w", source, geom.ErrNonFinite)
		}
	}
	return t, nil
}

// rotationBetween returns the minimal rotation taking unit vector from onto
// unit vector to, as a unit axis and an angle in [0, pi].
func rotationBetween(from, to geom.Vector3) (geom.Vector3, float64) {
	cross := from.Cross(to)

	// Half-angle form, stable near 0 and pi.
	angle := 2 * math.Atan2(geom.Norm(from.Sub(to)), geom.Norm(from.Add(to)))

	if geom.Norm(cross) > parallelTolerance {
		// Near pi the cross product picks up rounding along from. Drop it so
		// the axis stays perpendicular to from.
		axis := cross.Sub(from.MulScalar(cross.Dot(from)))
		if u, err := geom.Unit(axis); err == nil {
			return u, angle
		}
	}

	axis := perpendicularTo(from)
	if from.Dot(to) > 0 {
		return axis, 0
	}
	return axis, math.Pi
}

// perpendicularTo returns a unit vector perpendicular to unit vector v: the
// cross product of v with the world axis least aligned with it. Ties go to
// X, then Y, then Z.
func perpendicularTo(v geom.Vector3) geom.Vector3 {
	ax, ay, az := math.Abs(v.X), math.Abs(v.Y), math.Abs(v.Z)

	var e geom.Vector3
	switch {
	case ax <= ay && ax <= az:
		e = geom.Vector3{X: 1}
	case ay <= az:
		e = geom.Vector3{Y: 1}
	default:
		e = geom.Vector3{Z: 1}
	}

	p := v.Cross(e)
	return p.MulScalar(1 / p.Length())
}
