package brep

import (
	"math"
	"testing"

	"github.com/chazu/elbow/pkg/fault"
	"github.com/chazu/elbow/pkg/kernel"
	"gonum.org/v1/gonum/spatial/r3"
)

const tol = 1e-6

var xAxis = kernel.Axis{Direction: r3.Vec{X: 1}}

func mustCylinder(t *testing.T, k *Kernel, axis kernel.Axis, r, h float64) kernel.Solid {
	t.Helper()
	s, err := k.Cylinder(axis, r, h)
	if err != nil {
		t.Fatalf("Cylinder() error = %v", err)
	}
	return s
}

func mustTube(t *testing.T, k *Kernel, ro, ri, h float64) kernel.Solid {
	t.Helper()
	outer := mustCylinder(t, k, xAxis, ro, h)
	inner := mustCylinder(t, k, xAxis, ri, h)
	s, err := k.Cut(outer, inner)
	if err != nil {
		t.Fatalf("Cut() error = %v", err)
	}
	return s
}

// elbowSection is the half-annulus used for arc sectors: outer arc, radial
// line, inner arc back, radial line, in the plane x = pos.
func elbowSection(pos, ri, ro float64) kernel.Profile {
	return kernel.StartProfile(r3.Vec{X: pos, Z: -ro}).
		ArcThrough(r3.Vec{X: pos, Y: -ro}, r3.Vec{X: pos, Z: ro}).
		LineTo(r3.Vec{X: pos, Z: ri}).
		ArcThrough(r3.Vec{X: pos, Y: -ri}, r3.Vec{X: pos, Z: -ri}).
		Close()
}

func kinds(s kernel.Solid) []kernel.SurfaceKind {
	var out []kernel.SurfaceKind
	for _, f := range s.Faces() {
		out = append(out, f.Surface().Kind())
	}
	return out
}

func sameKinds(a, b []kernel.SurfaceKind) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestCylinder(t *testing.T) {
	k := New()
	s := mustCylinder(t, k, xAxis, 50, 1000)

	want := []kernel.SurfaceKind{kernel.CylinderSurface, kernel.PlaneSurface, kernel.PlaneSurface}
	if got := kinds(s); !sameKinds(got, want) {
		t.Fatalf("face kinds = %v, want %v", got, want)
	}

	faces := s.Faces()
	lateral := faces[0]
	if c := lateral.Surface().(kernel.Cylinder); math.Abs(c.Radius-50) > tol {
		t.Errorf("lateral radius = %v, want 50", c.Radius)
	}
	edges := lateral.Edges()
	if len(edges) != 4 || edges[0].Key() != edges[2].Key() {
		t.Errorf("lateral face should carry its seam twice, edges = %d", len(edges))
	}
	if lateral.Reversed() {
		t.Error("lateral face reversed")
	}
	if faces[1].Reversed() {
		t.Error("top disc reversed")
	}
	if !faces[2].Reversed() {
		t.Error("bottom disc should oppose its plane normal")
	}

	bb := s.BoundingBox()
	wantMin := r3.Vec{X: 0, Y: -50, Z: -50}
	wantMax := r3.Vec{X: 1000, Y: 50, Z: 50}
	if r3.Norm(r3.Sub(bb.Min, wantMin)) > tol || r3.Norm(r3.Sub(bb.Max, wantMax)) > tol {
		t.Errorf("BoundingBox() = %v, want [%v %v]", bb, wantMin, wantMax)
	}
}

func TestCylinderSharesRimEdges(t *testing.T) {
	k := New()
	s := mustCylinder(t, k, xAxis, 5, 10)
	faces := s.Faces()
	shared := func(a, b kernel.Face) bool {
		for _, ea := range a.Edges() {
			for _, eb := range b.Edges() {
				if ea.Key() == eb.Key() {
					return true
				}
			}
		}
		return false
	}
	if !shared(faces[0], faces[1]) || !shared(faces[0], faces[2]) {
		t.Error("lateral face does not share rims with both discs")
	}
	if shared(faces[1], faces[2]) {
		t.Error("discs should not share an edge")
	}
}

func TestCylinderRejectsBadInput(t *testing.T) {
	k := New()
	tests := []struct {
		name string
		axis kernel.Axis
		r, h float64
	}{
		{"zero radius", xAxis, 0, 10},
		{"negative height", xAxis, 1, -1},
		{"zero axis", kernel.Axis{}, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := k.Cylinder(tt.axis, tt.r, tt.h)
			if !fault.Is(err, fault.InvalidInput) {
				t.Errorf("Cylinder() error = %v, want INVALID_INPUT", err)
			}
		})
	}
}

func TestCutTube(t *testing.T) {
	k := New()
	s := mustTube(t, k, 50, 40, 1000)

	want := []kernel.SurfaceKind{
		kernel.CylinderSurface, kernel.PlaneSurface, kernel.CylinderSurface, kernel.PlaneSurface,
	}
	if got := kinds(s); !sameKinds(got, want) {
		t.Fatalf("face kinds = %v, want %v", got, want)
	}
	faces := s.Faces()
	inner := faces[2]
	if c := inner.Surface().(kernel.Cylinder); math.Abs(c.Radius-40) > tol {
		t.Errorf("inner radius = %v, want 40", c.Radius)
	}
	if !inner.Reversed() {
		t.Error("inner lateral face should be reversed")
	}
	if faces[0].Reversed() {
		t.Error("outer lateral face reversed")
	}
}

func TestCutUnsupported(t *testing.T) {
	k := New()
	a := mustCylinder(t, k, xAxis, 50, 100)
	tests := []struct {
		name string
		b    kernel.Solid
		kind fault.Kind
	}{
		{"other axis", mustCylinder(t, k, kernel.Axis{Direction: r3.Vec{Y: 1}}, 10, 100), fault.KernelFailure},
		{"other length", mustCylinder(t, k, xAxis, 10, 50), fault.KernelFailure},
		{"wider tool", mustCylinder(t, k, xAxis, 60, 100), fault.DegenerateGeometry},
		{"not a primitive", kernel.NewCompound(), fault.KernelFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := k.Cut(a, tt.b)
			if got := fault.KindOf(err); got != tt.kind {
				t.Errorf("Cut() kind = %q (%v), want %q", got, err, tt.kind)
			}
		})
	}
}

func TestRevolveArcSector(t *testing.T) {
	k := New()
	const (
		pos = 800.0
		ri  = 50.001
		ro  = 65.001
		R   = 80.0
	)
	axis := kernel.Axis{Location: r3.Vec{X: pos, Y: -R}, Direction: r3.Vec{Z: 1}}
	s, err := k.Revolve(elbowSection(pos, ri, ro), axis, math.Pi/2)
	if err != nil {
		t.Fatalf("Revolve() error = %v", err)
	}

	want := []kernel.SurfaceKind{
		kernel.TorusSurface, kernel.CylinderSurface, kernel.TorusSurface, kernel.CylinderSurface,
		kernel.PlaneSurface, kernel.PlaneSurface,
	}
	if got := kinds(s); !sameKinds(got, want) {
		t.Fatalf("face kinds = %v, want %v", got, want)
	}

	faces := s.Faces()
	outer := faces[0].Surface().(kernel.Torus)
	if math.Abs(outer.MajorRadius-R) > tol || math.Abs(outer.MinorRadius-ro) > tol {
		t.Errorf("outer torus radii = (%v, %v), want (%v, %v)", outer.MajorRadius, outer.MinorRadius, R, ro)
	}
	if r3.Norm(r3.Sub(outer.Axis.Location, r3.Vec{X: pos, Y: -R})) > tol {
		t.Errorf("torus center = %v", outer.Axis.Location)
	}
	if faces[0].Reversed() {
		t.Error("outer torus face reversed")
	}
	if !faces[2].Reversed() {
		t.Error("inner torus face should be reversed")
	}

	for i, f := range faces {
		fm, err := k.Triangulate(f, 0.5)
		if err != nil {
			t.Fatalf("Triangulate(face %d) error = %v", i, err)
		}
		if fm == nil || fm.TriangleCount() == 0 {
			t.Errorf("face %d (%v) has no triangulation", i, f.Surface().Kind())
		}
	}
}

func TestRevolveRejects(t *testing.T) {
	k := New()
	zAxis := kernel.Axis{Direction: r3.Vec{Z: 1}}
	square := kernel.StartProfile(r3.Vec{X: 1}).
		LineTo(r3.Vec{X: 2}).
		LineTo(r3.Vec{X: 2, Z: 1}).
		LineTo(r3.Vec{X: 1, Z: 1}).
		Close()
	crossing := kernel.StartProfile(r3.Vec{X: -1}).
		LineTo(r3.Vec{X: 2}).
		LineTo(r3.Vec{X: 2, Z: 1}).
		Close()
	skew := kernel.StartProfile(r3.Vec{X: 1}).
		LineTo(r3.Vec{X: 2, Y: 1}).
		LineTo(r3.Vec{X: 2, Z: 1}).
		Close()
	open := kernel.Profile{Segments: []kernel.Segment{
		{Kind: kernel.SegmentLine, Start: r3.Vec{X: 1}, End: r3.Vec{X: 2}},
		{Kind: kernel.SegmentLine, Start: r3.Vec{X: 2}, End: r3.Vec{X: 2, Z: 1}},
	}}

	tests := []struct {
		name  string
		p     kernel.Profile
		angle float64
	}{
		{"zero angle", square, 0},
		{"over a turn", square, 7},
		{"open profile", open, 1},
		{"crosses axis", crossing, 1},
		{"not coplanar", skew, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := k.Revolve(tt.p, zAxis, tt.angle)
			if !fault.Is(err, fault.InvalidInput) {
				t.Errorf("Revolve() error = %v, want INVALID_INPUT", err)
			}
		})
	}

	t.Run("partial square has planar caps", func(t *testing.T) {
		s, err := k.Revolve(square, zAxis, math.Pi)
		if err != nil {
			t.Fatalf("Revolve() error = %v", err)
		}
		faces := s.Faces()
		if len(faces) != 6 {
			t.Fatalf("faces = %d, want 6", len(faces))
		}
		// Polygonal caps are not triangulated by this kernel.
		fm, err := k.Triangulate(faces[5], 0.1)
		if err != nil || fm != nil {
			t.Errorf("Triangulate(cap) = %v, %v; want nil, nil", fm, err)
		}
	})
}

func TestRevolveSurfaceClasses(t *testing.T) {
	k := New()
	zAxis := kernel.Axis{Direction: r3.Vec{Z: 1}}
	tri := kernel.StartProfile(r3.Vec{X: 1}).
		LineTo(r3.Vec{X: 2}).
		LineTo(r3.Vec{X: 1, Z: 1}).
		Close()
	s, err := k.Revolve(tri, zAxis, 2*math.Pi)
	if err != nil {
		t.Fatalf("Revolve() error = %v", err)
	}
	want := []kernel.SurfaceKind{kernel.PlaneSurface, kernel.ConeSurface, kernel.CylinderSurface}
	if got := kinds(s); !sameKinds(got, want) {
		t.Errorf("face kinds = %v, want %v", got, want)
	}

	half := kernel.StartProfile(r3.Vec{Z: -1}).
		ArcThrough(r3.Vec{X: 1}, r3.Vec{Z: 1}).
		Close()
	s, err = k.Revolve(half, zAxis, 2*math.Pi)
	if err != nil {
		t.Fatalf("Revolve(half disc) error = %v", err)
	}
	if got := kinds(s); len(got) != 1 || got[0] != kernel.SphereSurface {
		t.Errorf("half disc kinds = %v, want [sphere]", got)
	}
}

func outwardOK(t *testing.T, k *Kernel, f kernel.Face, axis kernel.Axis, wantAway bool) {
	t.Helper()
	fm, err := k.Triangulate(f, 0.1)
	if err != nil || fm == nil {
		t.Fatalf("Triangulate() = %v, %v", fm, err)
	}
	for _, tri := range fm.Triangles {
		a, b, c := fm.Nodes[tri[0]], fm.Nodes[tri[1]], fm.Nodes[tri[2]]
		n := r3.Cross(r3.Sub(b, a), r3.Sub(c, a))
		centroid := r3.Scale(1.0/3, r3.Add(a, r3.Add(b, c)))
		away := r3.Dot(n, r3.Sub(centroid, axis.Project(centroid))) > 0
		if away != wantAway {
			t.Fatalf("triangle %v points away from axis = %v, want %v", tri, away, wantAway)
		}
	}
}

func TestTriangulateOrientation(t *testing.T) {
	k := New()
	faces := mustTube(t, k, 5, 4, 10).Faces()
	// Triangles follow the surface's natural normal, which points away from
	// the axis for both laterals; the inner face is marked reversed instead.
	outwardOK(t, k, faces[0], xAxis, true)
	outwardOK(t, k, faces[2], xAxis, true)
}

func TestTriangulateErrors(t *testing.T) {
	k := New(WithMaxSegments(8))
	s := mustCylinder(t, k, xAxis, 50, 100)
	lateral := s.Faces()[0]

	if _, err := k.Triangulate(lateral, 0); !fault.Is(err, fault.InvalidInput) {
		t.Errorf("zero deflection error = %v, want INVALID_INPUT", err)
	}
	if _, err := k.Triangulate(lateral, 1e-6); !fault.Is(err, fault.KernelFailure) {
		t.Errorf("fine deflection error = %v, want KERNEL_FAILURE", err)
	}

	var foreign kernel.Face = &fakeFace{}
	if _, err := k.Triangulate(foreign, 1); !fault.Is(err, fault.KernelFailure) {
		t.Errorf("foreign face error = %v, want KERNEL_FAILURE", err)
	}
}

type fakeFace struct{ face }

func (f *fakeFace) Key() kernel.ShapeKey { return 0 }

func TestSegments(t *testing.T) {
	tests := []struct {
		name       string
		span, r, d float64
		want       int
	}{
		{"line", 1, 0, 0.1, 1},
		{"coarse full turn", 2 * math.Pi, 1, 5, 3},
		{"quarter", math.Pi / 2, 10, 10 * (1 - math.Cos(math.Pi/8)), 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := segments(tt.span, tt.r, tt.d, 100)
			if err != nil {
				t.Fatalf("segments() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("segments() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMakeEdge(t *testing.T) {
	k := New()
	circle := kernel.Circle{Normal: r3.Vec{Z: 1}, XDir: r3.Vec{X: 1}, Radius: 80}

	e, err := k.MakeEdge(circle, 0, 2*math.Pi)
	if err != nil {
		t.Fatalf("MakeEdge() error = %v", err)
	}
	if e.Curve() == nil || e.Curve().Kind() != kernel.CircleCurve {
		t.Errorf("MakeEdge() curve = %v", e.Curve())
	}
	start, end := e.Endpoints()
	if r3.Norm(r3.Sub(start, end)) > tol {
		t.Errorf("closed circle endpoints differ: %v %v", start, end)
	}

	point := kernel.Circle{Normal: r3.Vec{Z: 1}, XDir: r3.Vec{X: 1}}
	if e, err := k.MakeEdge(point, 0, 1); err != nil || e.Curve() != nil {
		t.Errorf("zero radius edge = %v, %v; want curve-less edge", e, err)
	}
	if _, err := k.MakeEdge(nil, 0, 1); !fault.Is(err, fault.InvalidInput) {
		t.Errorf("nil curve error = %v", err)
	}
	if _, err := k.MakeEdge(circle, 1, 0); !fault.Is(err, fault.InvalidInput) {
		t.Errorf("inverted range error = %v", err)
	}
}

func TestToMesh(t *testing.T) {
	k := New(WithMeshDeflection(0.5))
	mesh, err := k.ToMesh(mustTube(t, k, 50, 40, 100))
	if err != nil {
		t.Fatalf("ToMesh() error = %v", err)
	}
	if mesh.IsEmpty() || mesh.TriangleCount() == 0 {
		t.Fatal("mesh is empty")
	}
	if len(mesh.Normals) != len(mesh.Vertices) {
		t.Errorf("normals length %d != vertices length %d", len(mesh.Normals), len(mesh.Vertices))
	}
	for _, idx := range mesh.Indices {
		if int(idx) >= mesh.VertexCount() {
			t.Fatalf("index %d out of range %d", idx, mesh.VertexCount())
		}
	}
}
