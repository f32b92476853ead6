package orient

import (
	"errors"
	"math"
	"testing"

	"github.com/chazu/orient/pkg/geom"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

const tol = 1e-9

var approx = cmpopts.EquateApprox(0, tol)

func seg(x0, y0, z0, x1, y1, z1 float64) geom.Segment {
	return geom.NewSegment(geom.Point3{X: x0, Y: y0, Z: z0}, geom.Point3{X: x1, Y: y1, Z: z1})
}

func pt(x, y, z float64) geom.Point3 {
	return geom.Point3{X: x, Y: y, Z: z}
}

// segmentPairs covers generic, parallel, anti-parallel and scaled cases.
var segmentPairs = []struct {
	name           string
	source, target geom.Segment
}{
	{"x to y", seg(0, 0, 0, 1, 0, 0), seg(0, 0, 0, 0, 2, 0)},
	{"x to z", seg(0, 0, 0, 1, 0, 0), seg(0, 0, 0, 0, 0, 2)},
	{"offset generic", seg(1, 2, 3, 4, -2, 7), seg(-5, 0, 1, -5, 3, -1)},
	{"parallel shifted", seg(0, 0, 0, 2, 0, 0), seg(10, 10, 10, 16, 10, 10)},
	{"anti-parallel x", seg(0, 0, 0, 1, 0, 0), seg(3, 3, 3, 0, 3, 3)},
	{"anti-parallel diagonal", seg(1, 1, 1, 2, 2, 2), seg(0, 0, 0, -3, -3, -3)},
	{"anti-parallel z", seg(0, 0, 5, 0, 0, 1), seg(2, 2, 0, 2, 2, 8)},
	{"shrink", seg(-100, 50, 0, 100, 50, 0), seg(0, 0, 0, 0.001, 0.001, 0)},
	{"nearly parallel", seg(0, 0, 0, 1, 0, 0), seg(0, 0, 0, 1, 1e-9, 0)},
}

func TestSolveSelfIsIdentity(t *testing.T) {
	for _, tt := range segmentPairs {
		t.Run(tt.name, func(t *testing.T) {
			xf, err := Solve(tt.source, tt.source)
			if err != nil {
				t.Fatalf("Solve() error = %v", err)
			}
			if !xf.IsIdentity(tol) {
				t.Errorf("Solve(s, s) = %s, want identity", xf)
			}
			if math.Abs(xf.Scale()-1) > tol {
				t.Errorf("Scale() = %v, want 1", xf.Scale())
			}
			if xf.Angle() != 0 {
				t.Errorf("Angle() = %v, want 0", xf.Angle())
			}
			if diff := cmp.Diff(geom.Vector3{}, xf.Translation(), approx); diff != "" {
				t.Errorf("Translation() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSolveSelfLeavesObjectsUnchanged(t *testing.T) {
	xf, err := Solve(seg(3, -1, 2, 7, 4, 4), seg(3, -1, 2, 7, 4, 4))
	if err != nil {
		t.Fatalf("Solve() error = %v", err)
	}
	for _, p := range []geom.Point3{pt(0, 0, 0), pt(1, 2, 3), pt(-40, 17, 0.5), pt(1e3, -1e3, 7)} {
		if diff := cmp.Diff(p, xf.Apply(p), cmpopts.EquateApprox(0, 1e-9*(1+p.Length()))); diff != "" {
			t.Errorf("Apply(%v) moved the point (-want +got):\n%s", p, diff)
		}
	}
}

func TestSolveMapsEndpoints(t *testing.T) {
	for _, tt := range segmentPairs {
		t.Run(tt.name, func(t *testing.T) {
			xf, err := Solve(tt.source, tt.target)
			if err != nil {
				t.Fatalf("Solve() error = %v", err)
			}
			if diff := cmp.Diff(tt.target.Start, xf.Apply(tt.source.Start), approx); diff != "" {
				t.Errorf("start mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.target.End, xf.Apply(tt.source.End), approx); diff != "" {
				t.Errorf("end mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSolveScaleIsLengthRatio(t *testing.T) {
	for _, tt := range segmentPairs {
		t.Run(tt.name, func(t *testing.T) {
			xf, err := Solve(tt.source, tt.target)
			if err != nil {
				t.Fatalf("Solve() error = %v", err)
			}
			want := tt.target.Length() / tt.source.Length()
			if math.Abs(xf.Scale()-want) > tol*want {
				t.Errorf("Scale() = %v, want %v", xf.Scale(), want)
			}
			if xf.Scale() <= 0 {
				t.Errorf("Scale() = %v, want positive", xf.Scale())
			}
		})
	}
}

func TestSolveColinearPointsMapProportionally(t *testing.T) {
	for _, tt := range segmentPairs {
		t.Run(tt.name, func(t *testing.T) {
			xf, err := Solve(tt.source, tt.target)
			if err != nil {
				t.Fatalf("Solve() error = %v", err)
			}
			for _, u := range []float64{-1, 0.25, 0.5, 2} {
				want := tt.target.PointAt(u)
				got := xf.Apply(tt.source.PointAt(u))
				margin := tol * (1 + want.Length())
				if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, margin)); diff != "" {
					t.Errorf("PointAt(%v) mismatch (-want +got):\n%s", u, diff)
				}
			}
		})
	}
}

func TestSolveDegenerate(t *testing.T) {
	tests := []struct {
		name           string
		source, target geom.Segment
	}{
		{"source zero", seg(1, 1, 1, 1, 1, 1), seg(0, 0, 0, 1, 0, 0)},
		{"target zero", seg(0, 0, 0, 1, 0, 0), seg(2, 3, 4, 2, 3, 4)},
		{"both zero", seg(0, 0, 0, 0, 0, 0), seg(0, 0, 0, 0, 0, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			xf, err := Solve(tt.source, tt.target)
			if !errors.Is(err, geom.ErrDegenerateLine) {
				t.Fatalf("Solve() error = %v, want ErrDegenerateLine", err)
			}
			if xf != nil {
				t.Errorf("Solve() returned a transform alongside the error: %s", xf)
			}
		})
	}
}

func TestSolveRightAngle(t *testing.T) {
	xf, err := Solve(seg(0, 0, 0, 1, 0, 0), seg(0, 0, 0, 0, 2, 0))
	if err != nil {
		t.Fatalf("Solve() error = %v", err)
	}
	if diff := cmp.Diff(geom.Vector3{Z: 1}, xf.Axis(), approx); diff != "" {
		t.Errorf("Axis() mismatch (-want +got):\n%s", diff)
	}
	if math.Abs(xf.Angle()-math.Pi/2) > tol {
		t.Errorf("Angle() = %v, want pi/2", xf.Angle())
	}
	if diff := cmp.Diff(pt(0, 2, 0), xf.Apply(pt(1, 0, 0)), approx); diff != "" {
		t.Errorf("Apply mismatch (-want +got):\n%s", diff)
	}
}

func TestSolveAntiParallelConvention(t *testing.T) {
	source := seg(0, 0, 0, 1, 0, 0)
	target := seg(0, 0, 0, -1, 0, 0)

	xf, err := Solve(source, target)
	if err != nil {
		t.Fatalf("Solve() error = %v", err)
	}
	if math.Abs(xf.Angle()-math.Pi) > tol {
		t.Errorf("Angle() = %v, want pi", xf.Angle())
	}
	// X is least aligned with Y, so the axis is X cross Y.
	if diff := cmp.Diff(geom.Vector3{Z: 1}, xf.Axis(), approx); diff != "" {
		t.Errorf("Axis() mismatch (-want +got):\n%s", diff)
	}
	// Off-line points land on the z=0 plane, mirrored through the start.
	if diff := cmp.Diff(pt(0, -1, 0), xf.Apply(pt(0, 1, 0)), approx); diff != "" {
		t.Errorf("Apply(0,1,0) mismatch (-want +got):\n%s", diff)
	}

	again, _ := Solve(source, target)
	if again.Axis() != xf.Axis() || again.Angle() != xf.Angle() {
		t.Errorf("anti-parallel result not deterministic: %s vs %s", xf, again)
	}
}

func TestPerpendicularTo(t *testing.T) {
	dirs := []geom.Vector3{
		{X: 1}, {Y: 1}, {Z: 1}, {X: -1},
		{X: 1 / math.Sqrt(3), Y: 1 / math.Sqrt(3), Z: 1 / math.Sqrt(3)},
		{X: 0.6, Y: -0.8},
	}
	for _, d := range dirs {
		p := perpendicularTo(d)
		if math.Abs(p.Length()-1) > tol {
			t.Errorf("perpendicularTo(%v) length = %v, want 1", d, p.Length())
		}
		if math.Abs(p.Dot(d)) > tol {
			t.Errorf("perpendicularTo(%v) = %v is not perpendicular", d, p)
		}
	}
}

func TestRotationAgreesWithMatrix(t *testing.T) {
	for _, tt := range segmentPairs {
		t.Run(tt.name, func(t *testing.T) {
			xf, err := Solve(tt.source, tt.target)
			if err != nil {
				t.Fatalf("Solve() error = %v", err)
			}
			p := pt(0.3, -1.7, 2.2)
			v := geom.Vector3{X: 1, Y: 2, Z: -0.5}
			want := xf.Apply(p.Add(v)).Sub(xf.Apply(p))
			margin := tol * (1 + want.Length())
			if diff := cmp.Diff(want, xf.ApplyVector(v), cmpopts.EquateApprox(0, margin)); diff != "" {
				t.Errorf("ApplyVector mismatch (-matrix +quaternion):\n%s", diff)
			}

			q := xf.Quaternion()
			norm := math.Sqrt(q[0]*q[0] + q[1]*q[1] + q[2]*q[2] + q[3]*q[3])
			if math.Abs(norm-1) > tol {
				t.Errorf("quaternion norm = %v, want 1", norm)
			}
		})
	}
}

func TestIdentity(t *testing.T) {
	id := Identity()
	if !id.IsIdentity(0) {
		t.Errorf("Identity() = %s", id)
	}
	p := pt(4, 5, 6)
	if got := id.Apply(p); got != p {
		t.Errorf("Identity().Apply(%v) = %v", p, got)
	}
}

func TestSolveNearlyAntiParallelOblique(t *testing.T) {
	// Targets reversed from the source and nudged sideways by a tiny amount.
	// The rotation is close to pi about an axis the cross product alone
	// cannot resolve accurately.
	tests := []struct {
		name           string
		source, target geom.Segment
	}{
		{"3-4-12 nudged 1e-11", seg(0, 0, 0, 3, 4, 12), seg(0, 0, 0, -3+4e-11, -4-3e-11, -12)},
		{"3-4-12 nudged 1e-13", seg(0, 0, 0, 3, 4, 12), seg(0, 0, 0, -3+4e-13, -4-3e-13, -12)},
		{"1-2-3 offset", seg(5, -1, 2, 6, 1, 5), seg(-7, 3, 0, -7-2, 3-4+1e-10, 0-6)},
		{"long oblique", seg(10, 20, 30, 50, -25, 60), seg(0, 0, 0, -40+1e-9, 45, -30)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			xf, err := Solve(tt.source, tt.target)
			if err != nil {
				t.Fatalf("Solve() error = %v", err)
			}
			if diff := cmp.Diff(tt.target.Start, xf.Apply(tt.source.Start), approx); diff != "" {
				t.Errorf("start mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.target.End, xf.Apply(tt.source.End), approx); diff != "" {
				t.Errorf("end mismatch (-want +got):\n%s", diff)
			}
			dir, _ := tt.source.Direction()
			if d := xf.Axis().Dot(dir); math.Abs(d) > tol {
				t.Errorf("axis not perpendicular to source: dot = %g", d)
			}
			if n := geom.Norm(xf.Axis()); math.Abs(n-1) > tol {
				t.Errorf("|axis| = %v, want 1", n)
			}
		})
	}
}

func TestSolveExtremeMagnitudes(t *testing.T) {
	tests := []struct {
		name           string
		source, target geom.Segment
		wantScale      float64
	}{
		{"tiny", seg(0, 0, 0, 1e-200, 0, 0), seg(0, 0, 0, 0, 2e-200, 0), 2},
		{"huge", seg(0, 0, 0, 1e160, 0, 0), seg(0, 0, 0, 3e160, 0, 0), 3},
		{"huge to unit", seg(0, 0, 0, 0, 1e160, 0), seg(0, 0, 0, 0, 0, 1), 1e-160},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			xf, err := Solve(tt.source, tt.target)
			if err != nil {
				t.Fatalf("Solve() error = %v", err)
			}
			if math.Abs(xf.Scale()-tt.wantScale) > 1e-12*tt.wantScale {
				t.Errorf("Scale() = %g, want %g", xf.Scale(), tt.wantScale)
			}
			end := xf.Apply(tt.source.End)
			rel := geom.Norm(end.Sub(tt.target.End)) / tt.target.Length()
			if !(rel < 1e-9) {
				t.Errorf("end = %v, want %v (relative error %g)", end, tt.target.End, rel)
			}
		})
	}
}

func TestSolveNonFinite(t *testing.T) {
	tests := []struct {
		name           string
		source, target geom.Segment
	}{
		{"source overflows", seg(-1e308, 0, 0, 1e308, 0, 0), seg(0, 0, 0, 1, 0, 0)},
		{"target overflows", seg(0, 0, 0, 1, 0, 0), seg(0, 1e308, 0, 0, -1e308, 0)},
		{"scale overflows", seg(0, 0, 0, 1e-200, 0, 0), seg(0, 0, 0, 1e200, 0, 0)},
		{"scale underflows", seg(0, 0, 0, 1e200, 0, 0), seg(0, 0, 0, 1e-200, 0, 0)},
		{"NaN coordinate", seg(0, 0, 0, math.NaN(), 0, 0), seg(0, 0, 0, 1, 0, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			xf, err := Solve(tt.source, tt.target)
			if !errors.Is(err, geom.ErrNonFinite) {
				t.Fatalf("Solve() error = %v, want ErrNonFinite", err)
			}
			if xf != nil {
				t.Errorf("Solve() returned a transform alongside the error: %s", xf)
			}
		})
	}
}
